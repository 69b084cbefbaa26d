package resolve

import (
	"strconv"
	"strings"
)

// Term is one search-term variant with its strategy label: the 1-based
// ladder position that ends up in the output's search_strategy column.
type Term struct {
	Text  string
	Label string
}

// SearchTerms generates the ordered, deduplicated ladder of search-term
// variants for a company name. Each step is a strict simplification of an
// earlier one, ending with progressive word trimming down to a single word.
// Any input yields at least one term; malformed names never panic.
//
// Ladder: full name without the บริษัท prefix, public-company and
// partnership variants, core name, core minus fillers, core minus
// parentheses, core minus trailing numbers, then word trimming.
func SearchTerms(companyName string) []Term {
	var terms []Term
	seen := make(map[string]bool)
	add := func(text string) {
		text = collapseSpace(text)
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		terms = append(terms, Term{Text: text, Label: strconv.Itoa(len(terms) + 1)})
	}

	base := collapseSpace(strings.ReplaceAll(companyName, "บริษัท", ""))
	add(base)

	if IsPartnership(companyName) {
		noPrefix := base
		for _, prefix := range partnershipPrefixes {
			if strings.Contains(noPrefix, prefix) {
				noPrefix = strings.Replace(noPrefix, prefix, "", 1)
				break
			}
		}
		add(noPrefix)
		// Some registry entries use the short ห้างหุ้นส่วน form.
		add("ห้างหุ้นส่วน " + collapseSpace(noPrefix))
	} else if strings.Contains(base, "มหาชน") {
		noSpace := strings.ReplaceAll(base, "จำกัด (มหาชน)", "จำกัด(มหาชน)")
		noSpace = strings.ReplaceAll(noSpace, "จำกัด  (มหาชน)", "จำกัด(มหาชน)")
		add(noSpace)

		justLimited, _, _ := strings.Cut(base, "(มหาชน)")
		justLimited, _, _ = strings.Cut(justLimited, "มหาชน")
		add(justLimited)
	}

	core := CoreName(companyName)
	add(core)

	if cleaned := StripFillers(core); cleaned != core {
		add(cleaned)
	}
	noParens := StripParens(core)
	if noParens != core {
		add(noParens)
	}
	if noNumbers := StripTrailingNumbers(core); noNumbers != core {
		add(noNumbers)
	}

	// Progressive word trimming from the cleanest core variant.
	trimBase := core
	if noParens != "" && noParens != core {
		trimBase = noParens
	}
	words := strings.Fields(trimBase)
	for i := len(words) - 1; i >= 1; i-- {
		add(strings.Join(words[:i], " "))
	}

	if len(terms) == 0 {
		// Even a name that reduced to nothing gets its trimmed original.
		t := collapseSpace(companyName)
		if t == "" {
			t = companyName
		}
		terms = append(terms, Term{Text: t, Label: "1"})
	}

	return terms
}
