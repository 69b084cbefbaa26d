package roster

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

func loadXLSX(path string, opts Options) ([]pair, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("roster: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if opts.Sheet != "" {
		named, ok := f.Sheet[opts.Sheet]
		if !ok {
			return nil, eris.Errorf("roster: sheet %q not found in %s", opts.Sheet, path)
		}
		sheet = named
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("roster: sheet %q is empty", sheet.Name)
	}

	header := rowStrings(sheet.Rows[0])
	nameIdx := columnIndex(header, opts.CompanyColumn)
	regIdx := -1
	if opts.RegColumn != "" {
		regIdx = indexOf(header, opts.RegColumn)
		if regIdx < 0 {
			zap.L().Warn("registration column not found",
				zap.String("column", opts.RegColumn))
		}
	}

	var pairs []pair
	for _, row := range sheet.Rows[1:] {
		cells := rowStrings(row)
		p := pair{}
		if nameIdx < len(cells) {
			p.name = cells[nameIdx]
		}
		if regIdx >= 0 && regIdx < len(cells) {
			p.reg = cells[regIdx]
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}
