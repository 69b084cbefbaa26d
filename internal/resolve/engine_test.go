package resolve

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/dbd-cli/internal/model"
)

// scriptedSearcher returns canned outcomes per ladder position and records
// which terms were tried.
type scriptedSearcher struct {
	exactAt int // 1-based ladder position that yields an exact match; 0 for never
	best    *Hit
	err     error
	calls   []string
}

func (s *scriptedSearcher) Search(ctx context.Context, term Term, targetName string) (*Hit, *Hit, model.SearchAttempt, error) {
	s.calls = append(s.calls, term.Label)
	attempt := model.SearchAttempt{Term: term.Text, Strategy: term.Label, PagesScanned: 1}
	if s.err != nil {
		return nil, nil, attempt, s.err
	}
	if s.exactAt > 0 && len(s.calls) == s.exactAt {
		return &Hit{RegistrationID: "0105540087110", FoundName: targetName}, nil, attempt, nil
	}
	return nil, s.best, attempt, nil
}

func TestResolve_ExistingRegistrationSkipsSearch(t *testing.T) {
	searcher := &scriptedSearcher{}
	engine := NewEngine(searcher, 0.95)

	result := engine.Resolve(context.Background(), model.CompanyInput{
		Name:       "บริษัท สยาม พาณิชย์ จำกัด",
		KnownRegID: "0105540087110",
	})

	assert.Empty(t, searcher.calls)
	assert.Equal(t, "0105540087110", result.RegistrationID)
	assert.Equal(t, model.MatchExisting, result.Match.Kind)
	assert.True(t, result.Resolved())
}

func TestResolve_StopsAtFirstExactMatch(t *testing.T) {
	searcher := &scriptedSearcher{exactAt: 5}
	engine := NewEngine(searcher, 0.95)

	company := model.CompanyInput{Name: "บริษัท สยาม พาณิชย์ รุ่งเรือง อินเตอร์เนชั่นแนล (ประเทศไทย) 2000 จำกัด"}
	require.GreaterOrEqual(t, len(SearchTerms(company.Name)), 6, "need enough ladder rungs for the test")

	result := engine.Resolve(context.Background(), company)

	assert.Len(t, searcher.calls, 5, "must not try terms past the exact match")
	assert.Equal(t, model.MatchExact, result.Match.Kind)
	assert.Equal(t, "5", result.Strategy)
	assert.Len(t, result.Attempts, 5)
}

func TestResolve_SimilarityFallback(t *testing.T) {
	searcher := &scriptedSearcher{
		best: &Hit{RegistrationID: "0105540087110", FoundName: "สยาม พาณิชย์", Score: 0.96},
	}
	engine := NewEngine(searcher, 0.95)

	result := engine.Resolve(context.Background(), model.CompanyInput{Name: "บริษัท สยาม พาณิชย์ จำกัด"})

	assert.Equal(t, model.MatchSimilarity, result.Match.Kind)
	assert.Equal(t, 0.96, result.Match.Score)
	assert.Equal(t, "fallback", result.Strategy)
	assert.True(t, result.Resolved())
}

func TestResolve_BelowThresholdUnresolved(t *testing.T) {
	searcher := &scriptedSearcher{
		best: &Hit{RegistrationID: "0105540087110", FoundName: "สยาม", Score: 0.93},
	}
	engine := NewEngine(searcher, 0.95)

	result := engine.Resolve(context.Background(), model.CompanyInput{Name: "บริษัท สยาม พาณิชย์ จำกัด"})

	assert.Equal(t, model.MatchUnresolved, result.Match.Kind)
	assert.Equal(t, "best match below threshold", result.Reason)
	assert.Empty(t, result.RegistrationID)
	assert.False(t, result.Resolved())
}

func TestResolve_NoResults(t *testing.T) {
	engine := NewEngine(&scriptedSearcher{}, 0.95)

	result := engine.Resolve(context.Background(), model.CompanyInput{Name: "บริษัท สยาม พาณิชย์ จำกัด"})

	assert.Equal(t, model.MatchUnresolved, result.Match.Kind)
	assert.Equal(t, "no search results", result.Reason)
}

func TestResolve_AllTermsFailing(t *testing.T) {
	searcher := &scriptedSearcher{err: eris.New("browser timeout")}
	engine := NewEngine(searcher, 0.95)

	result := engine.Resolve(context.Background(), model.CompanyInput{Name: "บริษัท สยาม พาณิชย์ จำกัด"})

	assert.Equal(t, model.MatchUnresolved, result.Match.Kind)
	assert.Contains(t, result.Reason, "search failed")
	assert.NotEmpty(t, searcher.calls)
}
