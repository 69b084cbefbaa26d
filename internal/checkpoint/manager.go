package checkpoint

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/corpintel/dbd-cli/internal/model"
)

// Manager owns the on-disk layout of a run's checkpoint directory:
//
//	records_w01_b003.csv   financial rows appended per completed company
//	notfound_w01_b003.csv  unresolved / failed companies
//	w01_b003.ckpt          one company key per line, appended after its rows
//	w01_b003.done          marker written when the whole batch finished
//
// A company's rows are written before its key; a key present in a .ckpt
// file therefore guarantees the rows landed.
type Manager struct {
	Dir string
}

func NewManager(dir string) *Manager {
	return &Manager{Dir: dir}
}

// EnsureDir creates the checkpoint directory if it does not exist.
func (m *Manager) EnsureDir() error {
	return eris.Wrap(os.MkdirAll(m.Dir, 0o755), "checkpoint: create dir")
}

// Reset removes all batch artifacts so a run starts from scratch.
func (m *Manager) Reset() error {
	for _, pattern := range []string{"records_w*_b*.csv", "notfound_w*_b*.csv", "w*_b*.ckpt", "w*_b*.done"} {
		matches, err := filepath.Glob(filepath.Join(m.Dir, pattern))
		if err != nil {
			return eris.Wrap(err, "checkpoint: glob")
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				return eris.Wrapf(err, "checkpoint: remove %s", filepath.Base(path))
			}
		}
	}
	return nil
}

// Completed scans every .ckpt file and returns the union of completed
// company keys, reported when a run resumes. Per-batch skipping reads the
// batch's own .ckpt file through OpenBatch.
func (m *Manager) Completed() (map[string]bool, error) {
	matches, err := filepath.Glob(filepath.Join(m.Dir, "w*_b*.ckpt"))
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: glob ckpt files")
	}

	done := make(map[string]bool)
	for _, path := range matches {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "checkpoint: open %s", filepath.Base(path))
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			key := strings.TrimSpace(sc.Text())
			if key != "" {
				done[key] = true
			}
		}
		scanErr := sc.Err()
		f.Close()
		if scanErr != nil {
			return nil, eris.Wrapf(scanErr, "checkpoint: read %s", filepath.Base(path))
		}
	}
	return done, nil
}

func (m *Manager) recordsPath(worker, batch int) string {
	return filepath.Join(m.Dir, fmt.Sprintf("records_w%02d_b%03d.csv", worker, batch))
}

func (m *Manager) notFoundPath(worker, batch int) string {
	return filepath.Join(m.Dir, fmt.Sprintf("notfound_w%02d_b%03d.csv", worker, batch))
}

func (m *Manager) ckptPath(worker, batch int) string {
	return filepath.Join(m.Dir, fmt.Sprintf("w%02d_b%03d.ckpt", worker, batch))
}

func (m *Manager) donePath(worker, batch int) string {
	return filepath.Join(m.Dir, fmt.Sprintf("w%02d_b%03d.done", worker, batch))
}

// BatchDone reports whether the batch's done marker exists.
func (m *Manager) BatchDone(worker, batch int) bool {
	_, err := os.Stat(m.donePath(worker, batch))
	return err == nil
}

// OpenBatch prepares the append targets for one batch. If the batch was
// partially written by an interrupted run, both CSV files are compacted
// down to the rows of companies whose keys made it into the .ckpt file,
// so reprocessing the remainder never duplicates output.
func (m *Manager) OpenBatch(worker, batch int) (*BatchWriter, error) {
	completed, err := m.batchCompleted(worker, batch)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(completed))
	for key := range completed {
		name, _, _ := strings.Cut(key, "|")
		names[name] = true
	}

	if err := compactCSV(m.recordsPath(worker, batch), names); err != nil {
		return nil, err
	}
	if err := compactCSV(m.notFoundPath(worker, batch), names); err != nil {
		return nil, err
	}

	w := &BatchWriter{
		manager:   m,
		worker:    worker,
		batch:     batch,
		completed: completed,
	}
	if w.records, err = openAppend(m.recordsPath(worker, batch), model.RecordHeader); err != nil {
		return nil, err
	}
	if w.notFound, err = openAppend(m.notFoundPath(worker, batch), model.NotFoundHeader); err != nil {
		w.records.close()
		return nil, err
	}
	if w.ckpt, err = os.OpenFile(m.ckptPath(worker, batch), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
		w.records.close()
		w.notFound.close()
		return nil, eris.Wrap(err, "checkpoint: open ckpt file")
	}
	return w, nil
}

func (m *Manager) batchCompleted(worker, batch int) (map[string]bool, error) {
	done := make(map[string]bool)
	f, err := os.Open(m.ckptPath(worker, batch))
	if os.IsNotExist(err) {
		return done, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open ckpt file")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key := strings.TrimSpace(sc.Text())
		if key != "" {
			done[key] = true
		}
	}
	return done, eris.Wrap(sc.Err(), "checkpoint: read ckpt file")
}

// compactCSV rewrites a batch CSV keeping only the header and the rows
// whose company name belongs to a checkpointed company. No-op when the
// file does not exist.
func compactCSV(path string, keepNames map[string]bool) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "checkpoint: open batch csv")
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	f.Close()
	if err != nil {
		return eris.Wrap(err, "checkpoint: read batch csv")
	}
	if len(rows) == 0 {
		return nil
	}

	kept := rows[:1]
	dropped := 0
	for _, row := range rows[1:] {
		if len(row) > 0 && keepNames[row[0]] {
			kept = append(kept, row)
		} else {
			dropped++
		}
	}
	if dropped == 0 {
		return nil
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "checkpoint: create tmp csv")
	}
	w := csv.NewWriter(out)
	if err := w.WriteAll(kept); err != nil {
		out.Close()
		return eris.Wrap(err, "checkpoint: rewrite batch csv")
	}
	w.Flush()
	if err := out.Close(); err != nil {
		return eris.Wrap(err, "checkpoint: close tmp csv")
	}
	return eris.Wrap(os.Rename(tmp, path), "checkpoint: replace batch csv")
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func openAppend(path string, header []string) (*csvFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open batch csv")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, eris.Wrap(err, "checkpoint: stat batch csv")
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, eris.Wrap(err, "checkpoint: write csv header")
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, eris.Wrap(err, "checkpoint: flush csv header")
		}
	}
	return &csvFile{f: f, w: w}, nil
}

func (c *csvFile) writeRows(rows [][]string) error {
	for _, row := range rows {
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	return c.f.Sync()
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// BatchWriter appends one batch's outcomes. Append durably writes a
// company's rows and only then records its key, so a crash mid-company
// leaves at most uncredited rows that compaction discards on resume.
type BatchWriter struct {
	manager   *Manager
	worker    int
	batch     int
	records   *csvFile
	notFound  *csvFile
	ckpt      *os.File
	completed map[string]bool
}

// Skip reports whether the company already completed in an earlier run.
func (w *BatchWriter) Skip(c model.CompanyInput) bool {
	return w.completed[c.Key()]
}

// Append persists one company's outcome and marks the company complete.
func (w *BatchWriter) Append(outcome model.ExtractionOutcome) error {
	if outcome.Status == model.StatusOK {
		if err := w.records.writeRows(model.RecordRows(outcome)); err != nil {
			return eris.Wrap(err, "checkpoint: append records")
		}
	} else {
		if err := w.notFound.writeRows([][]string{model.NotFoundRow(outcome)}); err != nil {
			return eris.Wrap(err, "checkpoint: append not-found row")
		}
	}

	if _, err := fmt.Fprintln(w.ckpt, outcome.Resolution.Company.Key()); err != nil {
		return eris.Wrap(err, "checkpoint: append key")
	}
	if err := w.ckpt.Sync(); err != nil {
		return eris.Wrap(err, "checkpoint: sync ckpt")
	}
	w.completed[outcome.Resolution.Company.Key()] = true
	return nil
}

// Close flushes and closes the batch files. When complete is true a done
// marker is written so the batch is skipped wholesale on resume.
func (w *BatchWriter) Close(complete bool) error {
	var firstErr error
	if err := w.records.close(); err != nil {
		firstErr = eris.Wrap(err, "checkpoint: close records csv")
	}
	if err := w.notFound.close(); err != nil && firstErr == nil {
		firstErr = eris.Wrap(err, "checkpoint: close not-found csv")
	}
	if err := w.ckpt.Close(); err != nil && firstErr == nil {
		firstErr = eris.Wrap(err, "checkpoint: close ckpt")
	}
	if firstErr != nil || !complete {
		return firstErr
	}

	marker, err := os.Create(w.manager.donePath(w.worker, w.batch))
	if err != nil {
		return eris.Wrap(err, "checkpoint: write done marker")
	}
	return eris.Wrap(marker.Close(), "checkpoint: close done marker")
}
