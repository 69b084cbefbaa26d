package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTerms_CompanyLadder(t *testing.T) {
	terms := SearchTerms("บริษัท เอบีซี กรุ๊ป (ประเทศไทย) จำกัด")

	require.NotEmpty(t, terms)
	assert.Equal(t, "เอบีซี กรุ๊ป (ประเทศไทย) จำกัด", terms[0].Text)
	assert.Equal(t, "1", terms[0].Label)

	texts := termTexts(terms)
	assert.Contains(t, texts, "เอบีซี กรุ๊ป (ประเทศไทย)") // core, จำกัด removed
	assert.Contains(t, texts, "เอบีซี")                   // fillers and parens removed
}

func TestSearchTerms_Deduplicated(t *testing.T) {
	terms := SearchTerms("บริษัท สยาม จำกัด")

	seen := make(map[string]bool)
	for _, term := range terms {
		assert.False(t, seen[term.Text], "duplicate term %q", term.Text)
		seen[term.Text] = true
		assert.NotEmpty(t, term.Text)
	}
}

func TestSearchTerms_LabelsAreLadderPositions(t *testing.T) {
	terms := SearchTerms("บริษัท ไทยรุ่งเรือง อินเตอร์เนชั่นแนล จำกัด")

	for i, term := range terms {
		assert.Equal(t, i+1, atoiOrFail(t, term.Label))
	}
}

func TestSearchTerms_PublicCompanyVariants(t *testing.T) {
	terms := SearchTerms("บริษัท ปตท. จำกัด (มหาชน)")

	texts := termTexts(terms)
	assert.Contains(t, texts, "ปตท. จำกัด(มหาชน)")
	assert.Contains(t, texts, "ปตท.")
}

func TestSearchTerms_PartnershipVariants(t *testing.T) {
	terms := SearchTerms("ห้างหุ้นส่วนจำกัด รุ่งเรือง การช่าง")

	texts := termTexts(terms)
	assert.Equal(t, "ห้างหุ้นส่วนจำกัด รุ่งเรือง การช่าง", texts[0])
	assert.Contains(t, texts, "รุ่งเรือง การช่าง")
	assert.Contains(t, texts, "ห้างหุ้นส่วน รุ่งเรือง การช่าง")
}

func TestSearchTerms_WordTrimming(t *testing.T) {
	terms := SearchTerms("บริษัท หนึ่ง สอง สาม จำกัด")

	texts := termTexts(terms)
	assert.Contains(t, texts, "หนึ่ง สอง")
	assert.Contains(t, texts, "หนึ่ง")
	// Trimming stops before the empty string.
	assert.NotContains(t, texts, "")
}

func TestSearchTerms_TrailingNumbers(t *testing.T) {
	terms := SearchTerms("บริษัท ขนส่งไทย (1994) จำกัด")

	assert.Contains(t, termTexts(terms), "ขนส่งไทย")
}

func TestSearchTerms_NeverEmpty(t *testing.T) {
	for _, name := range []string{"", "   ", "บริษัท", "จำกัด", "x"} {
		terms := SearchTerms(name)
		assert.NotEmpty(t, terms, "input %q", name)
		assert.Equal(t, "1", terms[0].Label)
	}
}

func termTexts(terms []Term) []string {
	texts := make([]string, len(terms))
	for i, term := range terms {
		texts[i] = term.Text
	}
	return texts
}

func atoiOrFail(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		require.True(t, r >= '0' && r <= '9', "label %q is not numeric", s)
		n = n*10 + int(r-'0')
	}
	return n
}
