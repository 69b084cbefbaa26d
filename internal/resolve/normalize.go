// Package resolve maps roster company names to DBD registration numbers:
// a ladder of search-term variants, paginated exact matching, and a
// token-overlap similarity fallback.
package resolve

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// partnershipPrefixes are Thai partnership legal forms, longest first so the
// registered-ordinary form is not truncated by the ordinary one.
var partnershipPrefixes = []string{
	"ห้างหุ้นส่วนจำกัด",
	"ห้างหุ้นส่วนสามัญนิติบุคคล",
	"ห้างหุ้นส่วนสามัญ",
}

// fillerPatterns are tokens that routinely differ between data sources and
// the registry: Thailand markers, transliterated business words, and their
// common spelling variants.
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(ประเทศไทย\)`), regexp.MustCompile(`ประเทศไทย`),
	regexp.MustCompile(`\(ไทยแลนด์\)`), regexp.MustCompile(`ไทยแลนด์`),
	regexp.MustCompile(`(?i)\(Thailand\)`), regexp.MustCompile(`(?i)Thailand`),
	regexp.MustCompile(`\(เอเชีย\)`), regexp.MustCompile(`เอเชีย`),
	regexp.MustCompile(`(?i)\(Asia\)`), regexp.MustCompile(`(?i)Asia`),
	regexp.MustCompile(`อินเตอร์เนชั่นแนล`), regexp.MustCompile(`อินเตอร์เนชันแนล`),
	regexp.MustCompile(`กรุ๊ปส์`), regexp.MustCompile(`กรุ๊ป`),
	regexp.MustCompile(`โฮลดิ้งส์`), regexp.MustCompile(`โฮลดิ้ง`),
	regexp.MustCompile(`เอ็นเตอร์ไพรส์`), regexp.MustCompile(`เอ็นเตอร์ไพรซ์`),
	regexp.MustCompile(`คอร์ปอเรชั่น`), regexp.MustCompile(`คอร์ปอเรชัน`),
}

var (
	resultLineRe      = regexp.MustCompile(`\d+\s+(0\d{12})\s+(.+)`)
	parenRe           = regexp.MustCompile(`\([^)]*\)`)
	numberParenRe     = regexp.MustCompile(`\(\d+\)`)
	trailingNumbersRe = regexp.MustCompile(`\s+\d+\s*$`)
)

// collapseSpace normalizes runs of whitespace to single spaces and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// foldWidth narrows full-width punctuation (（）, digits) to ASCII so one
// set of patterns covers both forms.
func foldWidth(s string) string {
	return width.Narrow.String(s)
}

// NormalizeName strips legal-form markers for display-name comparison.
func NormalizeName(name string) string {
	n := strings.TrimSpace(name)
	n = strings.ReplaceAll(n, "บริษัท", "")
	n = strings.ReplaceAll(n, "ห้างหุ้นส่วนจำกัด", "")
	n = strings.ReplaceAll(n, "ห้างหุ้นส่วนสามัญ", "")
	return collapseSpace(n)
}

// CoreName extracts the core company name: legal-form prefixes and the
// จำกัด suffix removed. It also tolerates raw search-result lines that
// carry a row number and registration number before the name.
func CoreName(name string) string {
	core := strings.TrimSpace(name)

	if m := resultLineRe.FindStringSubmatch(core); m != nil {
		core = m[2]
	}

	// Partnership prefixes contain จำกัด, so they must go before the
	// suffix split.
	for _, prefix := range partnershipPrefixes {
		if strings.Contains(core, prefix) {
			core = strings.Replace(core, prefix, "", 1)
			break
		}
	}

	core = strings.ReplaceAll(core, "บริษัท", "")

	if idx := strings.Index(core, "จำกัด"); idx >= 0 {
		core = core[:idx]
	}

	return collapseSpace(core)
}

// IsPartnership reports whether the name carries a partnership legal form.
func IsPartnership(name string) bool {
	return strings.Contains(name, "ห้างหุ้นส่วน")
}

// StripFillers removes filler tokens (Thailand markers, กรุ๊ป, โฮลดิ้ง, …).
func StripFillers(name string) string {
	cleaned := name
	for _, re := range fillerPatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return collapseSpace(cleaned)
}

// StripParens removes parenthetical content, folding full-width parentheses
// first so both forms are covered.
func StripParens(name string) string {
	return collapseSpace(parenRe.ReplaceAllString(foldWidth(name), ""))
}

// StripTrailingNumbers removes a trailing numeric or year suffix, including
// the parenthesized form "(1999)".
func StripTrailingNumbers(name string) string {
	cleaned := numberParenRe.ReplaceAllString(foldWidth(name), "")
	cleaned = trailingNumbersRe.ReplaceAllString(cleaned, "")
	return collapseSpace(cleaned)
}
