package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTypeString(t *testing.T) {
	tests := []struct {
		match MatchType
		want  string
	}{
		{Exact(), "exact"},
		{Existing(), "existing"},
		{Unresolved(), "unresolved"},
		{Similarity(0.95), "similarity_95%"},
		{Similarity(0.987), "similarity_99%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.match.String())
	}
}

func TestParseMatchTypeRoundTrip(t *testing.T) {
	for _, m := range []MatchType{Exact(), Existing(), Unresolved(), Similarity(0.95)} {
		assert.Equal(t, m.String(), ParseMatchType(m.String()).String())
	}
}

func TestMatchTypeConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Exact().Confidence())
	assert.Equal(t, 1.0, Existing().Confidence())
	assert.Equal(t, 0.96, Similarity(0.96).Confidence())
	assert.Equal(t, 0.0, Unresolved().Confidence())

	// Exact entries are sticky: nothing scores strictly higher.
	assert.False(t, Similarity(1.0).Confidence() > Exact().Confidence())
}

func TestResolved(t *testing.T) {
	assert.True(t, ResolutionResult{RegistrationID: "0105540087110", Match: Exact()}.Resolved())
	assert.False(t, ResolutionResult{Match: Unresolved()}.Resolved())
	assert.False(t, ResolutionResult{RegistrationID: "0105540087110", Match: Unresolved()}.Resolved())
}

func TestCompanyKey(t *testing.T) {
	a := CompanyInput{Name: "บริษัท สยาม จำกัด"}
	b := CompanyInput{Name: "บริษัท สยาม จำกัด", KnownRegID: "0105540087110"}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), CompanyInput{Name: "บริษัท สยาม จำกัด", RowIndex: 7}.Key())
}

func TestValidRegNumber(t *testing.T) {
	assert.True(t, ValidRegNumber("0105540087110"))
	assert.False(t, ValidRegNumber("105540087110"))   // no leading zero, 12 digits
	assert.False(t, ValidRegNumber("1105540087110"))  // leading 1
	assert.False(t, ValidRegNumber("01055400871101")) // 14 digits
	assert.False(t, ValidRegNumber(""))
}
