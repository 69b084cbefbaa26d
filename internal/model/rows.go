package model

// Column headers for the two output tables. Batch files and final merged
// files share these schemas.
var (
	RecordHeader = []string{
		"company_name", "registration_number", "match_type",
		"search_strategy", "table_type", "field_name", "value", "year",
	}
	NotFoundHeader = []string{
		"company_name", "registration_number", "match_type",
		"search_strategy", "reason",
	}
)

// RecordRows renders an outcome's financial records as CSV rows in
// RecordHeader order.
func RecordRows(o ExtractionOutcome) [][]string {
	rows := make([][]string, 0, len(o.Records))
	for _, rec := range o.Records {
		rows = append(rows, []string{
			o.Resolution.Company.Name,
			o.Resolution.RegistrationID,
			matchColumn(o.Resolution),
			o.Resolution.Strategy,
			string(rec.TableType),
			rec.FieldName,
			rec.Value.String(),
			rec.FiscalYear,
		})
	}
	return rows
}

// NotFoundRow renders an unresolved or no-data outcome as one CSV row in
// NotFoundHeader order.
func NotFoundRow(o ExtractionOutcome) []string {
	return []string{
		o.Resolution.Company.Name,
		o.Resolution.RegistrationID,
		matchColumn(o.Resolution),
		o.Resolution.Strategy,
		o.Reason,
	}
}

// matchColumn leaves the match type blank for companies that never resolved,
// matching the historical output format.
func matchColumn(r ResolutionResult) string {
	if r.Match.Kind == MatchUnresolved {
		return ""
	}
	return r.Match.String()
}
