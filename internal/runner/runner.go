// Package runner orchestrates a full run: roster load, static partitioning
// across workers, per-company resolve + extract, durable batch checkpoints,
// and the final merge.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/corpintel/dbd-cli/internal/browser"
	"github.com/corpintel/dbd-cli/internal/checkpoint"
	"github.com/corpintel/dbd-cli/internal/config"
	"github.com/corpintel/dbd-cli/internal/extract"
	"github.com/corpintel/dbd-cli/internal/merge"
	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/resilience"
	"github.com/corpintel/dbd-cli/internal/resolve"
	"github.com/corpintel/dbd-cli/internal/roster"
	"github.com/corpintel/dbd-cli/internal/store"
)

// Options are the per-invocation switches layered on top of configuration.
type Options struct {
	// Resume keeps existing batch files and skips checkpointed companies.
	// When false the checkpoint directory is cleared first.
	Resume bool
	// DryRun loads and partitions the roster, then stops before touching
	// the browser.
	DryRun bool
	// SkipMerge leaves batch files unmerged, for a later merge-only
	// invocation.
	SkipMerge bool
}

// Runner wires the long-lived collaborators of one run.
type Runner struct {
	cfg     *config.Config
	factory browser.Factory
	cache   store.CacheStore
	ckpt    *checkpoint.Manager
}

func New(cfg *config.Config, factory browser.Factory, cache store.CacheStore) *Runner {
	return &Runner{
		cfg:     cfg,
		factory: factory,
		cache:   cache,
		ckpt:    checkpoint.NewManager(cfg.Output.BatchDir),
	}
}

// Run executes a full run. Cancellation via ctx stops each worker at the
// next company boundary; the interrupted run can be resumed.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))

	companies, err := roster.Load(r.cfg.Input.File, roster.Options{
		CompanyColumn: r.cfg.Input.CompanyColumn,
		RegColumn:     r.cfg.Input.RegColumn,
		Sheet:         r.cfg.Input.Sheet,
		FilterThai:    r.cfg.Input.FilterThai,
	})
	if err != nil {
		return err
	}
	companies = roster.Window(companies, r.cfg.Processing.StartIndex, r.cfg.Processing.Limit)
	if len(companies) == 0 {
		return eris.New("runner: roster window is empty")
	}

	chunks := checkpoint.Partition(companies, r.cfg.Processing.Workers)
	log.Info("run planned",
		zap.Int("companies", len(companies)),
		zap.Int("workers", len(chunks)),
		zap.Int("batch_size", r.cfg.Processing.BatchSize),
		zap.Bool("resume", opts.Resume))

	if opts.DryRun {
		for i, chunk := range chunks {
			log.Info("dry-run partition",
				zap.Int("worker", i+1),
				zap.Int("companies", len(chunk)),
				zap.Int("batches", len(checkpoint.Batches(chunk, r.cfg.Processing.BatchSize))))
		}
		return nil
	}

	if err := r.ckpt.EnsureDir(); err != nil {
		return err
	}
	if opts.Resume {
		done, err := r.ckpt.Completed()
		if err != nil {
			return err
		}
		log.Info("resuming from checkpoints", zap.Int("completed", len(done)))
	} else {
		if err := r.ckpt.Reset(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		w := &worker{
			id:      i + 1,
			runner:  r,
			chunk:   chunk,
			limiter: rate.NewLimiter(rate.Every(r.cfg.Processing.Delay()), 1),
			log:     log.With(zap.Int("worker", i+1)),
		}
		g.Go(func() error { return w.run(gctx) })
	}
	if err := g.Wait(); err != nil {
		if eris.Is(err, context.Canceled) {
			log.Warn("run interrupted, checkpoints kept for resume")
			return err
		}
		return err
	}

	if opts.SkipMerge {
		log.Info("run finished, merge skipped")
		return nil
	}
	_, err = merge.NewFinalizer(
		r.cfg.Output.BatchDir,
		r.cfg.Output.RecordsFile,
		r.cfg.Output.NotFoundFile,
		r.cfg.Output.ForceOverwrite,
	).Run()
	return err
}

// worker processes one contiguous roster chunk over one exclusive browser
// session.
type worker struct {
	id      int
	runner  *Runner
	chunk   []model.CompanyInput
	limiter *rate.Limiter
	log     *zap.Logger

	session   browser.Session
	resolver  *resolve.Engine
	extractor *extract.Engine
}

func (w *worker) run(ctx context.Context) error {
	if err := w.acquireSession(ctx); err != nil {
		return err
	}
	defer w.closeSession()

	batches := checkpoint.Batches(w.chunk, w.runner.cfg.Processing.BatchSize)
	for i, batch := range batches {
		num := i + 1
		if w.runner.ckpt.BatchDone(w.id, num) {
			w.log.Info("batch already complete", zap.Int("batch", num))
			continue
		}
		if err := w.runBatch(ctx, num, batch); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) runBatch(ctx context.Context, num int, batch []model.CompanyInput) error {
	bw, err := w.runner.ckpt.OpenBatch(w.id, num)
	if err != nil {
		return err
	}
	log := w.log.With(zap.Int("batch", num))

	for _, company := range batch {
		if err := ctx.Err(); err != nil {
			bw.Close(false)
			return err
		}
		if bw.Skip(company) {
			log.Debug("already checkpointed", zap.String("company", company.Name))
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			bw.Close(false)
			return err
		}

		outcome := w.process(ctx, company)
		// A cancellation mid-company poisons the outcome; abandon it so
		// resume replays the company instead of trusting a bogus result.
		if err := ctx.Err(); err != nil {
			bw.Close(false)
			return err
		}
		if err := bw.Append(outcome); err != nil {
			bw.Close(false)
			return err
		}

		if outcome.Status == model.StatusError {
			if err := w.recoverSession(ctx); err != nil {
				bw.Close(false)
				return err
			}
		}
	}

	if err := bw.Close(ctx.Err() == nil); err != nil {
		return err
	}
	log.Info("batch complete", zap.Int("companies", len(batch)))
	return nil
}

// process resolves and extracts one company. Resolution consults the cache
// first; the decision is written back regardless of outcome, the store's
// confidence rule decides whether it sticks.
func (w *worker) process(ctx context.Context, company model.CompanyInput) model.ExtractionOutcome {
	resolution, cached := w.cachedResolution(ctx, company)
	if !cached {
		resolution = w.resolver.Resolve(ctx, company)
		if err := w.runner.cache.Put(ctx, store.FromResolution(resolution)); err != nil {
			w.log.Warn("cache write failed", zap.Error(err))
		}
	}
	return w.extractor.Extract(ctx, resolution)
}

// cachedResolution returns a prior resolved decision for the company, if
// one exists. Unresolved cache entries are treated as misses so later runs
// get another chance at resolution.
func (w *worker) cachedResolution(ctx context.Context, company model.CompanyInput) (model.ResolutionResult, bool) {
	entry, err := w.runner.cache.Get(ctx, company.Name, company.KnownRegID)
	if err != nil {
		w.log.Warn("cache read failed", zap.Error(err))
		return model.ResolutionResult{}, false
	}
	if entry == nil || entry.RegistrationID == "" {
		return model.ResolutionResult{}, false
	}

	resolution := entry.ToResolution(company)
	resolution.Match = model.Existing()
	// Known-reg companies render with an empty strategy; cache hits do too.
	resolution.Strategy = ""
	w.log.Debug("cache hit",
		zap.String("company", company.Name),
		zap.String("reg", resolution.RegistrationID))
	return resolution, true
}

func (w *worker) acquireSession(ctx context.Context) error {
	err := resilience.Do(ctx, resilience.RetryConfig{
		MaxAttempts: 3,
		ExtraWait:   2 * time.Second,
		// Browser launch failures are worth retrying regardless of shape.
		ShouldRetry: func(error) bool { return true },
		OnRetry:     resilience.RetryLogger("runner", "acquire session"),
	}, func(ctx context.Context) error {
		session, err := w.runner.factory.NewSession(ctx)
		if err != nil {
			return err
		}
		w.session = session
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "runner: acquire session")
	}
	w.rebindEngines()
	return nil
}

func (w *worker) rebindEngines() {
	cfg := w.runner.cfg
	w.resolver = resolve.NewEngine(
		resolve.NewMatcher(w.session, cfg.Search.BaseURL, cfg.Search.MaxPages),
		cfg.Search.SimilarityThreshold,
	)

	debugDir := ""
	if cfg.Debug.Enabled {
		debugDir = cfg.Debug.Dir
	}
	w.extractor = extract.NewEngine(w.session, extract.Config{
		BaseURL: cfg.Search.BaseURL,
		Waits: browser.Waits{
			PageLoad:  time.Duration(cfg.Browser.PageLoadWait) * time.Second,
			TabClick:  time.Duration(cfg.Browser.TabClickWait) * time.Second,
			TableLoad: time.Duration(cfg.Browser.TableLoadWait) * time.Second,
			Extra:     time.Duration(cfg.Browser.ExtraWait) * time.Second,
		},
		MaxRetries:          cfg.Retry.MaxRetries,
		ExtraWait:           cfg.Retry.ExtraWait(),
		Mode:                cfg.Extraction.Mode,
		IncomeFields:        cfg.Extraction.IncomeStatementFields,
		IncludeBalanceSheet: cfg.Extraction.IncludeBalanceSheet,
		BalanceFields:       cfg.Extraction.BalanceSheetFields,
		DebugDir:            debugDir,
	})
}

// recoverSession probes the session after a failed company and replaces it
// if the browser died. The failed company keeps its recorded outcome; only
// subsequent companies benefit from the fresh session.
func (w *worker) recoverSession(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	_, err := w.session.CurrentURL(ctx)
	if err == nil {
		return nil
	}
	if !resilience.SessionLost(err) {
		w.log.Debug("session probe failed", zap.Error(err))
		return nil
	}
	w.log.Warn("browser session lost, restarting", zap.Error(err))

	w.closeSession()
	return w.acquireSession(ctx)
}

func (w *worker) closeSession() {
	if w.session == nil {
		return
	}
	if err := w.session.Close(); err != nil {
		w.log.Debug("session close failed", zap.Error(err))
	}
	w.session = nil
}
