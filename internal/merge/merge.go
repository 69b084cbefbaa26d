// Package merge combines per-worker batch outputs into the final result
// files, backing up any pre-existing output first.
package merge

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/model"
)

// Finalizer merges batch CSVs from BatchDir into RecordsPath and
// NotFoundPath. When Force is false, existing outputs are renamed to a
// timestamped backup before any new data is written.
type Finalizer struct {
	BatchDir     string
	RecordsPath  string
	NotFoundPath string
	Force        bool

	now func() time.Time
}

func NewFinalizer(batchDir, recordsPath, notFoundPath string, force bool) *Finalizer {
	return &Finalizer{
		BatchDir:     batchDir,
		RecordsPath:  recordsPath,
		NotFoundPath: notFoundPath,
		Force:        force,
		now:          time.Now,
	}
}

// Result reports how many data rows landed in each final output.
type Result struct {
	RecordRows   int
	NotFoundRows int
	RecordsFiles int
}

// Run performs the merge. Batch files are concatenated in filename order,
// which keeps the output deterministic for a given checkpoint directory.
func (f *Finalizer) Run() (Result, error) {
	var res Result

	recordFiles, err := sortedGlob(filepath.Join(f.BatchDir, "records_w*_b*.csv"))
	if err != nil {
		return res, err
	}
	notFoundFiles, err := sortedGlob(filepath.Join(f.BatchDir, "notfound_w*_b*.csv"))
	if err != nil {
		return res, err
	}
	if len(recordFiles) == 0 && len(notFoundFiles) == 0 {
		return res, eris.Errorf("merge: no batch files in %s", f.BatchDir)
	}
	res.RecordsFiles = len(recordFiles)

	if err := f.backup(f.RecordsPath); err != nil {
		return res, err
	}
	if err := f.backup(f.NotFoundPath); err != nil {
		return res, err
	}

	if res.RecordRows, err = concat(f.RecordsPath, model.RecordHeader, recordFiles); err != nil {
		return res, err
	}
	if res.NotFoundRows, err = concat(f.NotFoundPath, model.NotFoundHeader, notFoundFiles); err != nil {
		return res, err
	}

	zap.L().Info("merged batch outputs",
		zap.Int("record_rows", res.RecordRows),
		zap.Int("not_found_rows", res.NotFoundRows),
		zap.String("records", f.RecordsPath),
		zap.String("not_found", f.NotFoundPath))
	return res, nil
}

// backup renames an existing output aside. Must finish before the new
// file is created so an interrupted merge never clobbers prior results.
func (f *Finalizer) backup(path string) error {
	if f.Force {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return eris.Wrapf(err, "merge: stat %s", path)
	}

	stamp := f.now().Format("20060102_150405")
	ext := filepath.Ext(path)
	backupPath := fmt.Sprintf("%s_backup_%s%s", path[:len(path)-len(ext)], stamp, ext)
	if err := os.Rename(path, backupPath); err != nil {
		return eris.Wrapf(err, "merge: back up %s", path)
	}
	zap.L().Info("backed up previous output", zap.String("backup", backupPath))
	return nil
}

func sortedGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, eris.Wrap(err, "merge: glob batch files")
	}
	sort.Strings(matches)
	return matches, nil
}

// concat writes header then every data row of each source file in order.
// Source headers are skipped; row count excludes the header.
func concat(outPath string, header []string, sources []string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, eris.Wrap(err, "merge: create output dir")
	}
	out, err := os.Create(outPath)
	if err != nil {
		return 0, eris.Wrapf(err, "merge: create %s", outPath)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return 0, eris.Wrap(err, "merge: write header")
	}

	total := 0
	for _, src := range sources {
		rows, err := readCSV(src)
		if err != nil {
			return total, err
		}
		if len(rows) < 2 {
			continue
		}
		for _, row := range rows[1:] {
			if err := w.Write(row); err != nil {
				return total, eris.Wrapf(err, "merge: append rows from %s", filepath.Base(src))
			}
			total++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return total, eris.Wrap(err, "merge: flush output")
	}
	return total, eris.Wrapf(out.Sync(), "merge: sync %s", outPath)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: open %s", filepath.Base(path))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	return rows, eris.Wrapf(err, "merge: read %s", filepath.Base(path))
}
