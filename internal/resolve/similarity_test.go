package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_IdenticalNames(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("บริษัท สยาม พาณิชย์ จำกัด", "บริษัท สยาม พาณิชย์ จำกัด"))
}

func TestSimilarity_LegalFormIgnored(t *testing.T) {
	// Core-name extraction makes the legal form irrelevant to the score.
	assert.Equal(t, 1.0, Similarity("บริษัท สยาม พาณิชย์ จำกัด", "สยาม พาณิชย์"))
}

func TestSimilarity_Symmetric(t *testing.T) {
	a, b := "บริษัท สยาม พาณิชย์ จำกัด", "บริษัท สยาม การค้า จำกัด"
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
}

func TestSimilarity_PartialOverlap(t *testing.T) {
	// Tokens {สยาม, พาณิชย์} vs {สยาม, การค้า}: 1 common, 3 in union.
	score := Similarity("สยาม พาณิชย์", "สยาม การค้า")
	assert.InDelta(t, 1.0/3.0, score, 1e-9)
}

func TestSimilarity_NoOverlap(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("สยาม พาณิชย์", "รุ่งเรือง ขนส่ง"))
}

func TestSimilarity_EmptyTokenSets(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("บริษัท จำกัด", "สยาม"))
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"สยาม พาณิชย์ กรุ๊ป", "สยาม พาณิชย์"},
		{"เอบีซี", "เอบีซี ดีอีเอฟ"},
		{"หนึ่ง สอง สาม", "สาม สี่ ห้า"},
	}
	for _, p := range pairs {
		score := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
