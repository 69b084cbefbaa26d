package resolve

import "strings"

// Similarity scores two company names by token overlap of their core names:
// the Jaccard coefficient over whitespace-separated token sets. Pure and
// deterministic; identical names score 1, names sharing no tokens (or with
// no tokens at all) score 0.
func Similarity(a, b string) float64 {
	tokensA := tokenSet(CoreName(a))
	tokensB := tokenSet(CoreName(b))

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	common := 0
	for tok := range tokensA {
		if tokensB[tok] {
			common++
		}
	}
	union := len(tokensA) + len(tokensB) - common

	return float64(common) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
