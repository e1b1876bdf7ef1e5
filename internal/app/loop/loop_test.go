package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

var testBounds = domain.Bounds{IRMinOhm: 0, IRMaxOhm: 500, OCVMinV: 0, OCVMaxV: 5}

// scriptedSource replays a fixed sequence of readings/errors and cancels
// the run when the script is exhausted.
type scriptedSource struct {
	mu     sync.Mutex
	script []func() (domain.RawReading, error)
	cancel context.CancelFunc
}

func (s *scriptedSource) Read(ctx context.Context) (domain.RawReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		s.cancel()
		return domain.RawReading{}, ctx.Err()
	}
	step := s.script[0]
	s.script = s.script[1:]
	if len(s.script) == 0 {
		defer s.cancel()
	}
	return step()
}

func (s *scriptedSource) Close() error { return nil }

func reading(ir, ocv float64) func() (domain.RawReading, error) {
	return func() (domain.RawReading, error) {
		return domain.RawReading{IR: &ir, OCV: &ocv}, nil
	}
}

func transportFailure() (domain.RawReading, error) {
	return domain.RawReading{}, &domain.TransportError{Source: "test", Err: errors.New("link down")}
}

type recordingWriter struct {
	mu      sync.Mutex
	rows    []domain.Sample
	failOn  int // 1-based append index that fails, 0 = never
	appends int
}

func (w *recordingWriter) Append(s domain.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.appends++
	if w.failOn != 0 && w.appends == w.failOn {
		return &domain.WriteError{Path: "test.csv", Err: errors.New("disk full")}
	}
	w.rows = append(w.rows, s)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) samples() []domain.Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Sample(nil), w.rows...)
}

type recordingReporter struct {
	mu   sync.Mutex
	seen []domain.Sample
}

func (r *recordingReporter) Report(s domain.Sample) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *recordingReporter) Close() error { return nil }

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)           {}
func (nopObs) LogError(string, error, ...ports.Field)   {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)               {}
func (nopObs) ObserveLatency(string, float64)           {}
func (nopObs) SetGauge(string, float64)                 {}

func newTestLoop(src *scriptedSource, w *recordingWriter, rep *recordingReporter) *Loop {
	var reporters []ports.Reporter
	if rep != nil {
		reporters = append(reporters, rep)
	}
	return New(Settings{
		Interval:   time.Millisecond,
		RetryLimit: 3,
		Bounds:     testBounds,
	}, src, w, reporters, nopObs{})
}

func runScript(t *testing.T, script []func() (domain.RawReading, error), w *recordingWriter, rep *recordingReporter) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &scriptedSource{script: script, cancel: cancel}
	return newTestLoop(src, w, rep).Run(ctx)
}

func TestRunAppendsInOrder(t *testing.T) {
	w := &recordingWriter{}
	rep := &recordingReporter{}

	err := runScript(t, []func() (domain.RawReading, error){
		reading(120.5, 3.70),
		reading(119.8, 3.71),
		reading(118.2, 3.69),
	}, w, rep)
	if err != nil {
		t.Fatalf("Run returned %v, want nil on cancellation", err)
	}

	rows := w.samples()
	if len(rows) != 3 {
		t.Fatalf("appended %d rows, want 3", len(rows))
	}
	wantIR := []float64{120.5, 119.8, 118.2}
	for i, row := range rows {
		if row.InternalResistance != wantIR[i] {
			t.Errorf("row %d IR = %v, want %v", i, row.InternalResistance, wantIR[i])
		}
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp.Before(rows[i-1].Timestamp) {
			t.Errorf("timestamps out of order at row %d", i)
		}
	}
	if len(rep.seen) != 3 {
		t.Errorf("reporter saw %d samples, want 3", len(rep.seen))
	}
}

func TestRunSkipsInvalidReadings(t *testing.T) {
	w := &recordingWriter{}

	err := runScript(t, []func() (domain.RawReading, error){
		reading(120.5, 3.70),
		reading(9999, 3.71), // out of range, skipped
		func() (domain.RawReading, error) { return domain.RawReading{}, nil }, // malformed
		reading(118.2, 3.69),
	}, w, nil)
	if err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if got := len(w.samples()); got != 2 {
		t.Fatalf("appended %d rows, want 2", got)
	}
}

func TestRunCountsAcceptedAndRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &scriptedSource{script: []func() (domain.RawReading, error){
		reading(120.5, 3.70),
		reading(9999, 3.71),
		reading(118.2, 3.69),
	}, cancel: cancel}
	w := &recordingWriter{}
	l := newTestLoop(src, w, nil)

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	counts := l.Counts()
	if counts.Accepted != 2 || counts.Rejected != 1 {
		t.Errorf("counts = %+v, want 2 accepted / 1 rejected", counts)
	}
	if l.State() != Stopped {
		t.Errorf("state = %v, want stopped", l.State())
	}
}

func TestRunRetriesTransportFailures(t *testing.T) {
	w := &recordingWriter{}

	err := runScript(t, []func() (domain.RawReading, error){
		transportFailure,
		transportFailure,
		reading(120.5, 3.70),
	}, w, nil)
	if err != nil {
		t.Fatalf("Run returned %v, want recovery within retry bound", err)
	}

	if got := len(w.samples()); got != 1 {
		t.Errorf("appended %d rows, want 1", got)
	}
}

func TestRunStopsAfterRetryBoundExhausted(t *testing.T) {
	w := &recordingWriter{}

	err := runScript(t, []func() (domain.RawReading, error){
		transportFailure,
		transportFailure,
		transportFailure,
	}, w, nil)

	var aerr *domain.AcquisitionError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want *domain.AcquisitionError", err)
	}
	if aerr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", aerr.Attempts)
	}
	if got := len(w.samples()); got != 0 {
		t.Errorf("appended %d rows, want 0", got)
	}
}

func TestRunStopsOnWriteError(t *testing.T) {
	w := &recordingWriter{failOn: 2}
	rep := &recordingReporter{}

	err := runScript(t, []func() (domain.RawReading, error){
		reading(120.5, 3.70),
		reading(119.8, 3.71),
		reading(118.2, 3.69),
	}, w, rep)

	var werr *domain.WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("err = %v, want *domain.WriteError", err)
	}
	if got := len(w.samples()); got != 1 {
		t.Errorf("appended %d rows, want 1 before the failure", got)
	}
	// The failed row never reached the reporters.
	if len(rep.seen) != 1 {
		t.Errorf("reporter saw %d samples, want 1", len(rep.seen))
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type funcSource struct {
	read func(context.Context) (domain.RawReading, error)
}

func (s *funcSource) Read(ctx context.Context) (domain.RawReading, error) { return s.read(ctx) }
func (s *funcSource) Close() error                                        { return nil }

// An attempt that overruns the interval must be followed by the next
// attempt immediately, with the deadline re-based to the completion time
// rather than advancing tick by tick and replaying the missed ones.
func TestRunOverrunStartsNextAttemptImmediately(t *testing.T) {
	const interval = time.Hour
	const overrun = 90 * time.Minute

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	epoch := clock.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settled := make(chan struct{})
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	src := &funcSource{read: func(context.Context) (domain.RawReading, error) {
		mu.Lock()
		starts = append(starts, clock.Now())
		n := len(starts)
		mu.Unlock()
		switch {
		case n <= 3:
			// The attempt itself eats 1.5 intervals.
			clock.Advance(overrun)
		case n == 4:
			close(settled)
		}
		ir, ocv := 120.5, 3.7
		return domain.RawReading{IR: &ir, OCV: &ocv}, nil
	}}

	w := &recordingWriter{}
	l := New(Settings{Interval: interval, RetryLimit: 3, Bounds: testBounds}, src, w, nil, nopObs{})
	l.now = clock.Now

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("loop never reached the fourth attempt")
	}
	// A deadline left behind the clock would fire queued catch-up reads
	// here instead of waiting out the next interval.
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 4 {
		t.Fatalf("source read %d times, want exactly 4", len(starts))
	}
	for i, want := range []time.Duration{0, overrun, 2 * overrun, 3 * overrun} {
		if got := starts[i].Sub(epoch); got != want {
			t.Errorf("attempt %d started at +%v, want +%v", i, got, want)
		}
	}
	if got := len(w.samples()); got != 4 {
		t.Errorf("appended %d rows, want 4", got)
	}
}

func TestRunHonorsCancellationBeforeFirstRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{cancel: func() {}}
	w := &recordingWriter{}
	l := newTestLoop(src, w, nil)

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run returned %v, want nil", err)
	}
	if got := len(w.samples()); got != 0 {
		t.Errorf("appended %d rows after pre-cancelled start, want 0", got)
	}
	if l.State() != Stopped {
		t.Errorf("state = %v, want stopped", l.State())
	}
}
