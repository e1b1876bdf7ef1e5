// Package csvlog persists accepted samples as an append-only CSV file.
// Every row is flushed and fsynced before Append returns, so a successful
// append survives an immediate crash.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// Header is the stable column schema of the log.
var Header = []string{"timestamp", "internal_resistance_ohm", "open_circuit_voltage_v"}

// timeLayout is RFC 3339 with a fixed-width fraction. Trimmed fractions
// would make "…00Z" sort after "…00.5Z" from the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	csv  *csv.Writer
}

// Open creates the log file (writing the header once) or opens an
// existing one for append without touching prior rows. A trailing
// partial line left by a crash mid-write is truncated away; it was never
// acknowledged as appended.
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &domain.WriteError{Path: path, Err: err}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &domain.WriteError{Path: path, Err: err}
	}

	w := &Writer{path: path, file: f, csv: csv.NewWriter(f)}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &domain.WriteError{Path: path, Err: err}
	}

	if stat.Size() == 0 {
		if err := w.writeRow(Header); err != nil {
			f.Close()
			return nil, err
		}
		return w, nil
	}

	if err := w.dropPartialTail(stat.Size()); err != nil {
		f.Close()
		return nil, &domain.WriteError{Path: path, Err: err}
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, &domain.WriteError{Path: path, Err: err}
	}
	if end == 0 {
		// The whole file was one partial header line.
		if err := w.writeRow(Header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append writes exactly one row for the sample and returns once the row
// is durable. Failures are *domain.WriteError and fatal to the run.
func (w *Writer) Append(s domain.Sample) error {
	row := []string{
		s.Timestamp.Format(timeLayout),
		strconv.FormatFloat(s.InternalResistance, 'g', -1, 64),
		strconv.FormatFloat(s.OpenCircuitVoltage, 'g', -1, 64),
	}
	return w.writeRow(row)
}

func (w *Writer) writeRow(row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return &domain.WriteError{Path: w.path, Err: fmt.Errorf("writer closed")}
	}
	if err := w.csv.Write(row); err != nil {
		return &domain.WriteError{Path: w.path, Err: err}
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return &domain.WriteError{Path: w.path, Err: err}
	}
	if err := w.file.Sync(); err != nil {
		return &domain.WriteError{Path: w.path, Err: err}
	}
	return nil
}

// Close flushes and closes the log. The final row is already durable
// because Append syncs per row.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := w.csv.Error()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	if err != nil {
		return &domain.WriteError{Path: w.path, Err: err}
	}
	return nil
}

// dropPartialTail truncates anything after the last newline.
func (w *Writer) dropPartialTail(size int64) error {
	const chunk = 4096

	end := size
	for end > 0 {
		start := end - chunk
		if start < 0 {
			start = 0
		}
		buf := make([]byte, end-start)
		if _, err := w.file.ReadAt(buf, start); err != nil {
			return err
		}
		for i := len(buf) - 1; i >= 0; i-- {
			if buf[i] == '\n' {
				return w.file.Truncate(start + int64(i) + 1)
			}
		}
		end = start
	}
	// No newline at all: the file holds a single partial row.
	return w.file.Truncate(0)
}

var _ ports.LogWriter = (*Writer)(nil)
