package model

import "github.com/shopspring/decimal"

// TableType names a DBD financial statement table, in the Thai form used by
// the site and carried through to the output files.
type TableType string

const (
	IncomeStatement TableType = "งบกำไรขาดทุน"
	BalanceSheet    TableType = "งบแสดงฐานะการเงิน"
)

// FinancialRecord is one extracted field/year/value triple for a resolved
// company. Fiscal years are Buddhist-era strings as rendered by the site
// (e.g. "2563").
type FinancialRecord struct {
	RegistrationID string
	TableType      TableType
	FieldName      string
	Value          decimal.Decimal
	FiscalYear     string
}

// OutcomeStatus is the terminal state of extraction for one company.
type OutcomeStatus string

const (
	// StatusOK means at least one record was extracted.
	StatusOK OutcomeStatus = "ok"
	// StatusNoData means the registry holds no financial records for the
	// entity. A legitimate terminal state, not an error.
	StatusNoData OutcomeStatus = "no_data"
	// StatusError means the interaction layer kept failing until retries
	// ran out, or the company never resolved.
	StatusError OutcomeStatus = "error"
)

// ExtractionOutcome pairs a resolution decision with the records extracted
// for it. Exactly one is produced per roster company, even across resumed
// runs.
type ExtractionOutcome struct {
	Resolution ResolutionResult
	Records    []FinancialRecord
	Status     OutcomeStatus
	// Reason describes a no_data or error status for the not-found output.
	Reason string
}
