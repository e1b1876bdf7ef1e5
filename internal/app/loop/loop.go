package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// State tracks where the loop is in its cycle.
type State int32

const (
	Idle State = iota
	Sampling
	Emitting
	Skipping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Emitting:
		return "emitting"
	case Skipping:
		return "skipping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Settings is the immutable per-run configuration the loop owns.
type Settings struct {
	Interval   time.Duration
	RetryLimit int
	Bounds     domain.Bounds
}

// Counts is a snapshot of the loop's counters.
type Counts struct {
	Accepted uint64
	Rejected uint64
	Retries  uint64
}

// Loop drives acquisition at a fixed cadence: one outstanding read at a
// time, validation applied to every reading, accepted samples fanned out
// to the log writer and the reporters in that order.
type Loop struct {
	settings  Settings
	source    ports.Source
	writer    ports.LogWriter
	reporters []ports.Reporter
	obs       ports.Observability

	now func() time.Time

	mu     sync.Mutex
	state  State
	counts Counts
}

func New(settings Settings, source ports.Source, writer ports.LogWriter, reporters []ports.Reporter, obs ports.Observability) *Loop {
	return &Loop{
		settings:  settings,
		source:    source,
		writer:    writer,
		reporters: reporters,
		obs:       obs,
		now:       time.Now,
	}
}

// State returns the loop's current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Counts returns a snapshot of the accepted/rejected/retry counters.
func (l *Loop) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts
}

// Run samples until ctx is cancelled or a fatal error occurs. The stop
// request is honored at the top of each iteration, never mid-acquisition,
// so a sample is either fully persisted or not acquired at all. A nil
// return means a clean stop.
func (l *Loop) Run(ctx context.Context) error {
	// The first reading is taken immediately; the deadline then advances
	// by whole intervals. An attempt that overruns its interval re-bases
	// the deadline to "now" instead of queueing missed ticks.
	next := l.now()

	for {
		select {
		case <-ctx.Done():
			l.setState(Stopped)
			return nil
		default:
		}

		if err := l.waitUntil(ctx, next); err != nil {
			l.setState(Stopped)
			return nil
		}

		l.setState(Sampling)
		raw, err := l.acquire(ctx)
		if err != nil {
			l.setState(Stopped)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			l.obs.LogCritical("acquisition_failed", err)
			return err
		}

		sample, verr := domain.Validate(raw, l.settings.Bounds, l.now())
		if verr != nil {
			l.setState(Skipping)
			l.incRejected()
			l.obs.IncCounter("irocv_samples_rejected_total", 1)
		} else {
			l.setState(Emitting)
			if err := l.writer.Append(sample); err != nil {
				l.setState(Stopped)
				l.obs.LogCritical("log_append_failed", err)
				return err
			}
			for _, r := range l.reporters {
				r.Report(sample)
			}
			l.incAccepted()
			l.obs.IncCounter("irocv_samples_accepted_total", 1)
			l.obs.SetGauge("irocv_last_ir_ohm", sample.InternalResistance)
			l.obs.SetGauge("irocv_last_ocv_v", sample.OpenCircuitVoltage)
		}

		next = next.Add(l.settings.Interval)
		if !l.now().Before(next) {
			next = l.now()
		}
	}
}

// waitUntil sleeps until the deadline, waking early on cancellation.
func (l *Loop) waitUntil(ctx context.Context, deadline time.Time) error {
	d := deadline.Sub(l.now())
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// acquire asks the source for one reading, retrying transport failures up
// to the configured bound with no extra delay between attempts.
func (l *Loop) acquire(ctx context.Context) (domain.RawReading, error) {
	var last error
	for attempt := 1; attempt <= l.settings.RetryLimit; attempt++ {
		start := l.now()
		raw, err := l.source.Read(ctx)
		l.obs.ObserveLatency("irocv_acquisition_seconds", l.now().Sub(start).Seconds())
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.RawReading{}, err
		}
		last = err
		l.obs.LogError("source_read_failed", err, ports.Field{Key: "attempt", Value: attempt})
		if attempt < l.settings.RetryLimit {
			l.incRetries()
			l.obs.IncCounter("irocv_read_retries_total", 1)
		}
	}
	return domain.RawReading{}, &domain.AcquisitionError{Attempts: l.settings.RetryLimit, Last: last}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) incAccepted() {
	l.mu.Lock()
	l.counts.Accepted++
	l.mu.Unlock()
}

func (l *Loop) incRejected() {
	l.mu.Lock()
	l.counts.Rejected++
	l.mu.Unlock()
}

func (l *Loop) incRetries() {
	l.mu.Lock()
	l.counts.Retries++
	l.mu.Unlock()
}
