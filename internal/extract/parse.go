// Package extract navigates a resolved company's financial-data view and
// parses the rendered statement tables into field/year/value records,
// retrying while the site has not finished rendering.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/corpintel/dbd-cli/internal/model"
)

var (
	// Statement years are Buddhist-era. 256x-257x covers the site's
	// reporting window.
	yearAnywhereRe = regexp.MustCompile(`25[6-9][0-9]`)
	yearCellRe     = regexp.MustCompile(`^25[6-7][0-9]$`)
)

// ParseStatement extracts the configured fields from the rendered statement
// table in html. The table layout pairs each fiscal year with two columns,
// value then percent-change, so for year index i the value sits in cell
// i*2. Placeholder cells ("-", empty, "0.00") are skipped. Returns no
// records (and no error) when the table or its year header is absent: the
// caller treats that as not-yet-rendered.
func ParseStatement(html string, fields []string, tableType model.TableType, registrationID string) ([]model.FinancialRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}

	table := findStatementTable(doc)
	if table == nil {
		return nil, nil
	}

	years := headerYears(table)
	if len(years) == 0 {
		return nil, nil
	}

	fieldRows := matchFieldRows(table, fields)

	// Output order: fields as configured, years ascending within a field.
	var records []model.FinancialRecord
	for _, field := range fields {
		row, ok := fieldRows[field]
		if !ok {
			continue
		}
		cells := row.Find("td")
		var fieldRecs []model.FinancialRecord
		for i, year := range years {
			valueIdx := i * 2
			if valueIdx >= cells.Length() {
				break
			}
			text := strings.TrimSpace(cells.Eq(valueIdx).Text())
			if text == "-" || text == "" || text == "0.00" {
				continue
			}
			value, err := decimal.NewFromString(strings.ReplaceAll(text, ",", ""))
			if err != nil {
				continue
			}
			fieldRecs = append(fieldRecs, model.FinancialRecord{
				RegistrationID: registrationID,
				TableType:      tableType,
				FieldName:      field,
				Value:          value,
				FiscalYear:     year,
			})
		}
		sort.Slice(fieldRecs, func(i, j int) bool {
			return fieldRecs[i].FiscalYear < fieldRecs[j].FiscalYear
		})
		records = append(records, fieldRecs...)
	}

	return records, nil
}

// findStatementTable picks the first table whose header row carries fiscal
// years.
func findStatementTable(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		header := tbl.Find("tr").First()
		if yearAnywhereRe.MatchString(header.Text()) {
			table = tbl
			return false
		}
		return true
	})
	return table
}

// headerYears reads the year columns from the table's header cells, in
// column order.
func headerYears(table *goquery.Selection) []string {
	var years []string
	table.Find("tr").First().Find("th").Each(func(_ int, cell *goquery.Selection) {
		text := strings.TrimSpace(cell.Text())
		if yearCellRe.MatchString(text) {
			years = append(years, text)
		}
	})
	return years
}

// matchFieldRows maps each wanted field to the first row containing its
// label. A row matches at most one field; later duplicates are ignored.
func matchFieldRows(table *goquery.Selection, fields []string) map[string]*goquery.Selection {
	fieldRows := make(map[string]*goquery.Selection)
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rowText := row.Text()
		for _, field := range fields {
			if strings.Contains(rowText, field) {
				if _, taken := fieldRows[field]; !taken {
					fieldRows[field] = row
				}
				break
			}
		}
	})
	return fieldRows
}
