package model

import "regexp"

// regNumberRe matches a DBD juristic registration number: 13 digits with a
// leading zero.
var regNumberRe = regexp.MustCompile(`^0\d{12}$`)

// CompanyInput is one roster row: a company name, an optional known
// registration number, and the row's position in the input file.
// Immutable after roster load.
type CompanyInput struct {
	Name       string `json:"name"`
	KnownRegID string `json:"known_reg_id,omitempty"`
	RowIndex   int    `json:"row_index"`
}

// Key identifies a company across runs. Used for checkpoint bookkeeping and
// resolution cache lookups.
func (c CompanyInput) Key() string {
	return c.Name + "|" + c.KnownRegID
}

// ValidRegNumber reports whether s is a well-formed DBD registration number.
func ValidRegNumber(s string) bool {
	return regNumberRe.MatchString(s)
}
