package collector

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/nerrad567/iotdemo-core/internal/inference"
)

const (
	// DefaultExportEvery matches the 50-iteration snapshot of the original reader.
	DefaultExportEvery = 50

	exportDirPermissions  = 0750
	exportFilePermissions = 0640
)

var csvHeader = []string{"board", "model", "result", "iteration", "microseconds", "timestamp"}

// Exporter buffers results per board and snapshots them to CSV.
type Exporter struct {
	dir   string
	every int

	mu      sync.Mutex
	buffers map[string][]inference.Result
}

// NewExporter writes into dir every `every` iterations.
func NewExporter(dir string, every int) *Exporter {
	if every < 1 {
		every = DefaultExportEvery
	}
	return &Exporter{dir: dir, every: every, buffers: make(map[string][]inference.Result)}
}

// Add buffers r. If r.Iteration is a multiple of the export period the
// board's buffer is written to <board>_<model>.csv and cleared; the
// written path is returned. The buffer is kept if the write fails.
func (e *Exporter) Add(r inference.Result) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buffers[r.Board] = append(e.buffers[r.Board], r)
	if r.Iteration%e.every != 0 {
		return "", nil
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", safeName(r.Board), safeName(r.Model)))
	if err := writeCSV(path, e.buffers[r.Board]); err != nil {
		return "", err
	}
	delete(e.buffers, r.Board)
	return path, nil
}

// Buffered returns the number of results waiting for board.
func (e *Exporter) Buffered(board string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffers[board])
}

// writeCSV replaces path atomically through a temp file in the same directory.
func writeCSV(path string, rows []inference.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), exportDirPermissions); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	w := csv.NewWriter(tmp)
	_ = w.Write(csvHeader)
	for _, r := range rows {
		ts := ""
		if r.Timestamp > 0 {
			ts = strconv.FormatInt(r.Timestamp, 10)
		}
		_ = w.Write([]string{
			r.Board,
			r.Model,
			strconv.FormatFloat(r.Result, 'g', -1, 64),
			strconv.Itoa(r.Iteration),
			strconv.FormatInt(r.Microseconds, 10),
			ts,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), exportFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// safeName keeps file names inside the export directory.
func safeName(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 || string(out) == "." || string(out) == ".." {
		return "unknown"
	}
	return string(out)
}
