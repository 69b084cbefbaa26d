package runner

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/browser"
	"github.com/corpintel/dbd-cli/internal/config"
	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/store"
)

// emptyRegistrySession answers every search with the no-results marker, so
// all companies flow through the unresolved path end to end.
type emptyRegistrySession struct{}

func (emptyRegistrySession) Navigate(ctx context.Context, url string) error { return nil }
func (emptyRegistrySession) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (emptyRegistrySession) BodyText(ctx context.Context) (string, error)   { return "ไม่พบข้อมูล", nil }
func (emptyRegistrySession) BodyHTML(ctx context.Context) (string, error)   { return "", nil }
func (emptyRegistrySession) ClickText(ctx context.Context, text string) error {
	return eris.New("no such element")
}
func (emptyRegistrySession) EnterPageNumber(ctx context.Context, page int) error { return nil }
func (emptyRegistrySession) Screenshot(ctx context.Context, path string) error   { return nil }
func (emptyRegistrySession) Close() error                                        { return nil }

type fakeFactory struct {
	mu       sync.Mutex
	sessions int
}

func (f *fakeFactory) NewSession(ctx context.Context) (browser.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return emptyRegistrySession{}, nil
}

func (f *fakeFactory) Close() error { return nil }

func testRunConfig(t *testing.T, workers int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	rosterPath := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(rosterPath, []byte(
		"company_name\n"+
			"บริษัท หนึ่ง จำกัด\n"+
			"บริษัท สอง จำกัด\n"+
			"บริษัท สาม จำกัด\n"+
			"บริษัท สี่ จำกัด\n"+
			"บริษัท ห้า จำกัด\n"), 0o644))

	cfg := &config.Config{}
	cfg.Input.File = rosterPath
	cfg.Input.FilterThai = true
	cfg.Output.RecordsFile = filepath.Join(dir, "financials.csv")
	cfg.Output.NotFoundFile = filepath.Join(dir, "not_found.csv")
	cfg.Output.BatchDir = filepath.Join(dir, "batches")
	cfg.Search.BaseURL = "https://example.test"
	cfg.Search.MaxPages = 20
	cfg.Search.SimilarityThreshold = 0.95
	cfg.Processing.Workers = workers
	cfg.Processing.BatchSize = 2
	cfg.Retry.MaxRetries = 1
	cfg.Store.Path = filepath.Join(dir, "cache.db")
	return cfg
}

func notFoundCompanies(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var names []string
	for _, row := range rows[1:] {
		names = append(names, row[0])
	}
	sort.Strings(names)
	return names
}

func TestRun_EndToEndUnresolved(t *testing.T) {
	cfg := testRunConfig(t, 2)
	cache, err := store.Open(context.Background(), "sqlite", cfg.Store.Path, "")
	require.NoError(t, err)
	defer cache.Close()

	factory := &fakeFactory{}
	r := New(cfg, factory, cache)

	require.NoError(t, r.Run(context.Background(), Options{}))
	assert.Equal(t, 2, factory.sessions, "one session per worker")

	names := notFoundCompanies(t, cfg.Output.NotFoundFile)
	assert.Len(t, names, 5, "every roster company lands in the not-found output")

	// The financial output exists with its header and no rows.
	rows, err := os.ReadFile(cfg.Output.RecordsFile)
	require.NoError(t, err)
	assert.Contains(t, string(rows), "company_name")
}

func TestRun_ResumeProducesSameOutputSet(t *testing.T) {
	cfg := testRunConfig(t, 1)
	cache, err := store.Open(context.Background(), "sqlite", cfg.Store.Path, "")
	require.NoError(t, err)
	defer cache.Close()

	r := New(cfg, &fakeFactory{}, cache)
	require.NoError(t, r.Run(context.Background(), Options{}))
	first := notFoundCompanies(t, cfg.Output.NotFoundFile)

	// Resume over a fully completed run: everything skipped, output
	// set-equal, prior output backed up.
	require.NoError(t, r.Run(context.Background(), Options{Resume: true}))
	second := notFoundCompanies(t, cfg.Output.NotFoundFile)
	assert.Equal(t, first, second)

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.Output.NotFoundFile), "*_backup_*"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
}

func TestCachedResolutionRendersAsExisting(t *testing.T) {
	cfg := testRunConfig(t, 1)
	cache, err := store.Open(context.Background(), "sqlite", cfg.Store.Path, "")
	require.NoError(t, err)
	defer cache.Close()

	company := model.CompanyInput{Name: "บริษัท สยาม จำกัด"}
	require.NoError(t, cache.Put(context.Background(), store.FromResolution(model.ResolutionResult{
		Company:        company,
		RegistrationID: "0105540087110",
		FoundName:      company.Name,
		Match:          model.Exact(),
		Strategy:       "4",
	})))

	w := &worker{runner: &Runner{cfg: cfg, cache: cache}, log: zap.NewNop()}
	got, ok := w.cachedResolution(context.Background(), company)
	require.True(t, ok)
	assert.Equal(t, "0105540087110", got.RegistrationID)
	assert.Equal(t, model.MatchExisting, got.Match.Kind)
	assert.Empty(t, got.Strategy, "cache hits carry no search strategy")
}

// cancellingSession cancels the run on its first navigation, simulating an
// interrupt arriving while a company is in flight.
type cancellingSession struct {
	emptyRegistrySession
	cancel context.CancelFunc
}

func (s cancellingSession) Navigate(ctx context.Context, url string) error {
	s.cancel()
	return ctx.Err()
}

type cancellingFactory struct {
	cancel context.CancelFunc
}

func (f cancellingFactory) NewSession(ctx context.Context) (browser.Session, error) {
	return cancellingSession{cancel: f.cancel}, nil
}

func (f cancellingFactory) Close() error { return nil }

func TestRun_CancelMidCompanyAbandonsOutcome(t *testing.T) {
	cfg := testRunConfig(t, 1)
	cache, err := store.Open(context.Background(), "sqlite", cfg.Store.Path, "")
	require.NoError(t, err)
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(cfg, cancellingFactory{cancel: cancel}, cache)
	require.Error(t, r.Run(ctx, Options{}))

	// The in-flight company must not be checkpointed or written out, so a
	// resumed run replays it instead of trusting a cancellation-tainted
	// outcome.
	keys, err := os.ReadFile(filepath.Join(cfg.Output.BatchDir, "w01_b001.ckpt"))
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(keys)))

	rows, err := os.ReadFile(filepath.Join(cfg.Output.BatchDir, "notfound_w01_b001.csv"))
	require.NoError(t, err)
	assert.NotContains(t, string(rows), "context canceled")
	assert.NotContains(t, string(rows), "บริษัท สอง จำกัด")
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	cfg := testRunConfig(t, 2)
	cache, err := store.Open(context.Background(), "sqlite", cfg.Store.Path, "")
	require.NoError(t, err)
	defer cache.Close()

	factory := &fakeFactory{}
	r := New(cfg, factory, cache)

	require.NoError(t, r.Run(context.Background(), Options{DryRun: true}))
	assert.Zero(t, factory.sessions)
	_, err = os.Stat(cfg.Output.BatchDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_EmptyRosterWindow(t *testing.T) {
	cfg := testRunConfig(t, 1)
	cfg.Processing.StartIndex = 99
	cache, err := store.Open(context.Background(), "sqlite", cfg.Store.Path, "")
	require.NoError(t, err)
	defer cache.Close()

	r := New(cfg, &fakeFactory{}, cache)
	assert.Error(t, r.Run(context.Background(), Options{}))
}
