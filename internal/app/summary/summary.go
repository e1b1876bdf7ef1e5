// Package summary computes offline statistics over an existing log file:
// the count, average, extremes, and spread of IR and OCV across a run.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Stats aggregates one column of the log.
type Stats struct {
	Count int
	Avg   float64
	Min   float64
	Max   float64
}

// Range is the max-min spread, the bench's cell-matching figure.
func (s Stats) Range() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Max - s.Min
}

// Summary describes one log file.
type Summary struct {
	Rows int
	IR   Stats
	OCV  Stats
}

// FromFile summarizes a CSV log produced by the recorder.
func FromFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()
	return FromReader(f)
}

// FromReader summarizes log content. The first row is expected to be the
// header; rows with unparseable values are skipped rather than failing
// the whole pass, since a crash can leave a short final row.
func FromReader(r io.Reader) (Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		sum   Summary
		first = true
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Summary{}, fmt.Errorf("read log: %w", err)
		}
		if first {
			first = false
			continue
		}
		if len(rec) < 3 {
			continue
		}
		ir, err1 := strconv.ParseFloat(rec[1], 64)
		ocv, err2 := strconv.ParseFloat(rec[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		sum.Rows++
		sum.IR.add(ir)
		sum.OCV.add(ocv)
	}
	return sum, nil
}

func (s *Stats) add(v float64) {
	if s.Count == 0 {
		s.Min = math.Inf(1)
		s.Max = math.Inf(-1)
	}
	// Running mean keeps the pass single-shot over arbitrarily long logs.
	s.Count++
	s.Avg += (v - s.Avg) / float64(s.Count)
	s.Min = math.Min(s.Min, v)
	s.Max = math.Max(s.Max, v)
}
