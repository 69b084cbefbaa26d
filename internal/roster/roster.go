// Package roster loads the input company list from CSV, XLSX, or plain
// text files into CompanyInput rows.
package roster

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/model"
)

// Options controls roster parsing.
type Options struct {
	// CompanyColumn names the company-name column. Empty falls back to
	// "company_name", then the first column.
	CompanyColumn string
	// RegColumn optionally names a registration-number column. Values
	// failing validation are dropped, not errors.
	RegColumn string
	// Sheet selects an XLSX sheet by name; empty uses the first sheet.
	Sheet string
	// FilterThai keeps only names carrying a Thai legal form
	// (จำกัด / มหาชน).
	FilterThai bool
}

// Load reads the roster file by extension. Rows are deduplicated by name
// (rows carrying a registration number win), sorted by name, and assigned
// stable row indexes so resumed runs see the same partitioning.
func Load(path string, opts Options) ([]model.CompanyInput, error) {
	var (
		pairs []pair
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		pairs, err = loadCSV(path, opts)
	case ".xlsx", ".xls":
		pairs, err = loadXLSX(path, opts)
	case ".txt":
		pairs, err = loadTXT(path)
	default:
		return nil, eris.Errorf("roster: unsupported file format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string)
	skipped := 0
	for i, p := range pairs {
		name := strings.TrimSpace(p.name)
		if name == "" {
			zap.L().Warn("roster row skipped",
				zap.Int("row", i+1),
				zap.String("reason", "empty company name"))
			skipped++
			continue
		}
		if opts.FilterThai && !isThaiCompany(name) {
			zap.L().Warn("roster row skipped",
				zap.Int("row", i+1),
				zap.String("reason", "no Thai legal form"))
			skipped++
			continue
		}
		reg := strings.TrimSpace(p.reg)
		if reg != "" && !model.ValidRegNumber(reg) {
			zap.L().Warn("invalid registration number dropped",
				zap.Int("row", i+1),
				zap.String("reg", reg))
			reg = ""
		}
		if existing, ok := byName[name]; !ok || (existing == "" && reg != "") {
			byName[name] = reg
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	companies := make([]model.CompanyInput, 0, len(names))
	for i, name := range names {
		companies = append(companies, model.CompanyInput{
			Name:       name,
			KnownRegID: byName[name],
			RowIndex:   i,
		})
	}

	withReg := 0
	for _, c := range companies {
		if c.KnownRegID != "" {
			withReg++
		}
	}
	zap.L().Info("roster loaded",
		zap.String("file", path),
		zap.Int("companies", len(companies)),
		zap.Int("with_reg_number", withReg),
		zap.Int("skipped_rows", skipped),
	)
	return companies, nil
}

// Window restricts the roster to limit companies starting at offset start.
// A non-positive limit keeps everything after start.
func Window(companies []model.CompanyInput, start, limit int) []model.CompanyInput {
	if start < 0 {
		start = 0
	}
	if start >= len(companies) {
		return nil
	}
	companies = companies[start:]
	if limit > 0 && limit < len(companies) {
		companies = companies[:limit]
	}
	return companies
}

func isThaiCompany(name string) bool {
	return strings.Contains(name, "จำกัด") || strings.Contains(name, "มหาชน")
}

type pair struct {
	name string
	reg  string
}

func loadCSV(path string, opts Options) ([]pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "roster: read csv %s", path)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("roster: %s is empty", path)
	}

	header := rows[0]
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
	for _, row := range rows[1:] {
		p := pair{}
		if nameIdx < len(row) {
			p.name = row[nameIdx]
		}
		if regIdx >= 0 && regIdx < len(row) {
			p.reg = row[regIdx]
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func loadTXT(path string) ([]pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", path)
	}
	var pairs []pair
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			pairs = append(pairs, pair{name: line})
		}
	}
	return pairs, nil
}

// columnIndex resolves the name column: the configured column if present,
// then "company_name", then the first column.
func columnIndex(header []string, configured string) int {
	if configured != "" {
		if idx := indexOf(header, configured); idx >= 0 {
			return idx
		}
	}
	if idx := indexOf(header, "company_name"); idx >= 0 {
		return idx
	}
	if len(header) > 0 {
		zap.L().Info("using first column for company names",
			zap.String("column", header[0]))
	}
	return 0
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}
