package writers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// RunMetricsWriter appends RunRecords to a JSON-lines file. Each record is
// written with a single write on an O_APPEND descriptor, so records from
// concurrent goroutines or processes never interleave within a line.
type RunMetricsWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewRunMetricsWriter creates a writer for path. Call Initialize before Write.
func NewRunMetricsWriter(path string) *RunMetricsWriter {
	return &RunMetricsWriter{path: path}
}

// Initialize opens the file for appending, creating it if needed.
func (w *RunMetricsWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open run metrics file: %w", err)
	}

	w.file = f

	return nil
}

// Write appends one record.
func (w *RunMetricsWriter) Write(record types.RunRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to marshal run record", err)
	}

	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("writer not initialized")
	}

	if _, err := w.file.Write(line); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to append run record", err)
	}

	return nil
}

// GetOutputPath returns the file path.
func (w *RunMetricsWriter) GetOutputPath() string {
	return w.path
}

// Close closes the file.
func (w *RunMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil

	return err
}

// ReadRunRecords loads every well-formed record of a JSON-lines file. Malformed
// lines are skipped and counted. A missing file yields no records.
// When a run id appears more than once the last record wins.
func ReadRunRecords(path string) ([]types.RunRecord, int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}

	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodeResultsCorrupt, "failed to open run metrics file", err)
	}
	defer f.Close()

	index := make(map[string]int)

	var (
		records []types.RunRecord
		skipped int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var record types.RunRecord
		if err := json.Unmarshal(raw, &record); err != nil || record.RunID == "" {
			skipped++

			continue
		}

		if i, ok := index[record.RunID]; ok {
			records[i] = record

			continue
		}

		index[record.RunID] = len(records)
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return records, skipped, errors.Wrap(errors.ErrCodeResultsCorrupt, "failed to read run metrics file", err)
	}

	return records, skipped, nil
}
