package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/model"
)

// Searcher is the paginated-match capability the engine drives, one term
// per call.
type Searcher interface {
	Search(ctx context.Context, term Term, targetName string) (exact, best *Hit, attempt model.SearchAttempt, err error)
}

// Engine resolves one company at a time: known registration numbers
// short-circuit, otherwise the term ladder is walked in order until an
// exact match, with a similarity fallback over the best candidate seen
// across all terms.
type Engine struct {
	searcher  Searcher
	threshold float64
}

// NewEngine creates a resolution engine. threshold is the minimum
// similarity score accepted from the fallback.
func NewEngine(searcher Searcher, threshold float64) *Engine {
	return &Engine{searcher: searcher, threshold: threshold}
}

// Resolve produces exactly one resolution decision for the company. A
// transient search failure on one term does not abort resolution; only if
// every term fails transiently is the result reported as a search failure
// rather than a no-match.
func (e *Engine) Resolve(ctx context.Context, company model.CompanyInput) model.ResolutionResult {
	result := model.ResolutionResult{Company: company}
	log := zap.L().With(zap.String("company", company.Name))

	if company.KnownRegID != "" {
		result.RegistrationID = company.KnownRegID
		result.Match = model.Existing()
		log.Debug("using existing registration number",
			zap.String("reg", company.KnownRegID))
		return result
	}

	terms := SearchTerms(company.Name)
	log.Debug("resolving", zap.Int("terms", len(terms)))

	var (
		best         *Hit
		bestStrategy string
		failures     int
		lastErr      error
	)

	for _, term := range terms {
		if ctx.Err() != nil {
			failures++
			lastErr = ctx.Err()
			break
		}

		exact, candidate, attempt, err := e.searcher.Search(ctx, term, company.Name)
		result.Attempts = append(result.Attempts, attempt)
		if err != nil {
			failures++
			lastErr = err
			log.Warn("search term failed",
				zap.String("term", term.Text), zap.Error(err))
			continue
		}

		if exact != nil {
			result.RegistrationID = exact.RegistrationID
			result.FoundName = exact.FoundName
			result.Match = model.Exact()
			result.Strategy = term.Label
			if exact.Direct {
				result.Strategy = "direct"
			}
			log.Info("resolved",
				zap.String("reg", exact.RegistrationID),
				zap.String("strategy", result.Strategy))
			return result
		}

		if candidate != nil && (best == nil || candidate.Score > best.Score) {
			best = candidate
			bestStrategy = term.Label
		}
	}

	if best != nil && best.Score >= e.threshold {
		result.RegistrationID = best.RegistrationID
		result.FoundName = best.FoundName
		result.Match = model.Similarity(best.Score)
		result.Strategy = "fallback"
		log.Info("resolved via similarity",
			zap.String("reg", best.RegistrationID),
			zap.Float64("score", best.Score),
			zap.String("term_strategy", bestStrategy))
		return result
	}

	result.Match = model.Unresolved()
	if failures == len(terms) && failures > 0 {
		// Every term failed at the interaction layer: distinguishable from
		// a genuine no-match.
		result.Reason = "search failed: " + lastErr.Error()
	} else if best != nil {
		result.Reason = "best match below threshold"
	} else {
		result.Reason = "no search results"
	}
	log.Info("unresolved", zap.String("reason", result.Reason))
	return result
}
