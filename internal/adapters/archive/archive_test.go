package archive

import (
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

func testSample() domain.Sample {
	return domain.Sample{
		Timestamp:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		InternalResistance: 120.5,
		OpenCircuitVoltage: 3.70,
	}
}

func TestInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	a := NewPostgresArchive(db, "ir_ocv_samples")
	defer a.Close()

	s := testSample()
	mock.ExpectExec("INSERT INTO ir_ocv_samples").
		WithArgs(s.Timestamp, s.InternalResistance, s.OpenCircuitVoltage).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := a.Insert(s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

type stubWriter struct {
	rows []domain.Sample
	err  error
}

func (w *stubWriter) Append(s domain.Sample) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, s)
	return nil
}

func (w *stubWriter) Close() error { return nil }

type countingObs struct {
	errorsLogged int
	counters     map[string]float64
}

func newCountingObs() *countingObs {
	return &countingObs{counters: map[string]float64{}}
}

func (o *countingObs) LogInfo(string, ...ports.Field)            {}
func (o *countingObs) LogError(string, error, ...ports.Field)    { o.errorsLogged++ }
func (o *countingObs) LogCritical(string, error, ...ports.Field) {}
func (o *countingObs) IncCounter(name string, v float64)         { o.counters[name] += v }
func (o *countingObs) ObserveLatency(string, float64)            {}
func (o *countingObs) SetGauge(string, float64)                  {}

func TestMirrorFailureIsNotFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectExec("INSERT INTO ir_ocv_samples").
		WillReturnError(errors.New("connection refused"))

	primary := &stubWriter{}
	obs := newCountingObs()
	w := NewMirroringWriter(primary, NewPostgresArchive(db, "ir_ocv_samples"), obs)
	defer w.Close()

	if err := w.Append(testSample()); err != nil {
		t.Fatalf("Append returned %v, mirror failure must not propagate", err)
	}
	if len(primary.rows) != 1 {
		t.Errorf("primary got %d rows, want 1", len(primary.rows))
	}
	if obs.errorsLogged != 1 {
		t.Errorf("errors logged = %d, want 1", obs.errorsLogged)
	}
	if obs.counters["irocv_archive_errors_total"] != 1 {
		t.Errorf("archive error counter = %v, want 1", obs.counters["irocv_archive_errors_total"])
	}
}

func TestPrimaryFailurePropagates(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	want := &domain.WriteError{Path: "test.csv", Err: errors.New("disk full")}
	primary := &stubWriter{err: want}
	w := NewMirroringWriter(primary, NewPostgresArchive(db, "ir_ocv_samples"), newCountingObs())
	defer w.Close()

	if err := w.Append(testSample()); !errors.Is(err, want) {
		t.Fatalf("Append = %v, want the primary write error", err)
	}
}
