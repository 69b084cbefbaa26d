package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchKind classifies how a company was resolved to a registration number.
type MatchKind string

const (
	// MatchExact is a string-equal match on the normalized core name, or a
	// single-result redirect to the company detail page.
	MatchExact MatchKind = "exact"
	// MatchSimilarity is a token-overlap fallback match at or above the
	// configured threshold.
	MatchSimilarity MatchKind = "similarity"
	// MatchExisting means the registration number was supplied in the input
	// roster and no search was performed.
	MatchExisting MatchKind = "existing"
	// MatchUnresolved means every search strategy was exhausted below the
	// similarity threshold, or all searches failed.
	MatchUnresolved MatchKind = "unresolved"
)

// MatchType is a match kind plus, for similarity matches, the score that
// produced it.
type MatchType struct {
	Kind  MatchKind
	Score float64
}

func Exact() MatchType      { return MatchType{Kind: MatchExact, Score: 1.0} }
func Existing() MatchType   { return MatchType{Kind: MatchExisting, Score: 1.0} }
func Unresolved() MatchType { return MatchType{Kind: MatchUnresolved} }
func Similarity(score float64) MatchType {
	return MatchType{Kind: MatchSimilarity, Score: score}
}

// Confidence orders match types for cache replacement: an entry is only
// overwritten by a strictly higher-confidence one, so exact (1.0) is sticky.
func (m MatchType) Confidence() float64 {
	switch m.Kind {
	case MatchExact, MatchExisting:
		return 1.0
	case MatchSimilarity:
		return m.Score
	default:
		return 0
	}
}

// String renders the match type in output-file form: "exact", "existing",
// "similarity_95%", or "unresolved".
func (m MatchType) String() string {
	if m.Kind == MatchSimilarity {
		return fmt.Sprintf("similarity_%.0f%%", m.Score*100)
	}
	return string(m.Kind)
}

// ParseMatchType is the inverse of String, used when reloading cache rows.
func ParseMatchType(s string) MatchType {
	if rest, ok := strings.CutPrefix(s, "similarity_"); ok {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(rest, "%"), 64)
		if err == nil {
			return Similarity(pct / 100)
		}
		return MatchType{Kind: MatchSimilarity}
	}
	switch MatchKind(s) {
	case MatchExact:
		return Exact()
	case MatchExisting:
		return Existing()
	default:
		return Unresolved()
	}
}

// SearchAttempt records one search term tried during resolution, for
// traceability in logs.
type SearchAttempt struct {
	Term         string
	Strategy     string
	PagesScanned int
}

// ResolutionResult is the single resolution decision produced for each
// roster company. Immutable once produced.
type ResolutionResult struct {
	Company        CompanyInput
	RegistrationID string
	FoundName      string
	Match          MatchType
	// Strategy is the label of the search term that produced the match:
	// "direct" for a single-result redirect, a 1-based ladder index for a
	// paginated exact match, "fallback" for a similarity match, or empty
	// for existing registration numbers.
	Strategy string
	// Reason explains an unresolved result ("no search results" vs a
	// search-failure description).
	Reason   string
	Attempts []SearchAttempt
}

// Resolved reports whether the company can proceed to extraction.
func (r ResolutionResult) Resolved() bool {
	return r.RegistrationID != "" && r.Match.Kind != MatchUnresolved
}
