package summary

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleLog = `timestamp,internal_resistance_ohm,open_circuit_voltage_v
2025-06-01T12:00:00Z,120.5,3.70
2025-06-01T12:00:01Z,119.8,3.71
2025-06-01T12:00:02Z,118.2,3.69
2025-06-01T12:00:03Z,121.1,3.72
`

func TestFromReader(t *testing.T) {
	sum, err := FromReader(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}

	if sum.Rows != 4 {
		t.Fatalf("rows = %d, want 4", sum.Rows)
	}
	if sum.IR.Min != 118.2 || sum.IR.Max != 121.1 {
		t.Errorf("IR min/max = %v/%v", sum.IR.Min, sum.IR.Max)
	}
	if wantAvg := (120.5 + 119.8 + 118.2 + 121.1) / 4; math.Abs(sum.IR.Avg-wantAvg) > 1e-9 {
		t.Errorf("IR avg = %v, want %v", sum.IR.Avg, wantAvg)
	}
	if math.Abs(sum.IR.Range()-2.9) > 1e-9 {
		t.Errorf("IR range = %v, want 2.9", sum.IR.Range())
	}
	if sum.OCV.Min != 3.69 || sum.OCV.Max != 3.72 {
		t.Errorf("OCV min/max = %v/%v", sum.OCV.Min, sum.OCV.Max)
	}
}

func TestFromReaderSkipsBadRows(t *testing.T) {
	log := `timestamp,internal_resistance_ohm,open_circuit_voltage_v
2025-06-01T12:00:00Z,120.5,3.70
2025-06-01T12:00:01Z,not-a-number,3.71
2025-06-01T12:00:02Z,118.2
2025-06-01T12:00:03Z,119.0,3.69
`
	sum, err := FromReader(strings.NewReader(log))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if sum.Rows != 2 {
		t.Errorf("rows = %d, want 2 (bad rows skipped)", sum.Rows)
	}
}

func TestFromReaderHeaderOnly(t *testing.T) {
	sum, err := FromReader(strings.NewReader("timestamp,internal_resistance_ohm,open_circuit_voltage_v\n"))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if sum.Rows != 0 {
		t.Errorf("rows = %d, want 0", sum.Rows)
	}
	if sum.IR.Range() != 0 {
		t.Errorf("empty range = %v, want 0", sum.IR.Range())
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	sum, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if sum.Rows != 4 {
		t.Errorf("rows = %d, want 4", sum.Rows)
	}

	if _, err := FromFile(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("FromFile succeeded for missing file, want error")
	}
}
