// Package simsource simulates a battery under test for development and
// demos: a slowly sagging OCV with gaussian noise, plus optional injected
// faults to exercise the rejection path.
package simsource

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

type Config struct {
	OCVStartV  float64 `yaml:"ocv_start_v"`
	IRBaseOhm  float64 `yaml:"ir_base_ohm"`
	NoiseLevel float64 `yaml:"noise_level"`
	// FaultRate is the probability (0..1) that a reading comes back
	// malformed or wildly out of range.
	FaultRate float64 `yaml:"fault_rate"`
}

func (c *Config) ApplyDefaults() {
	if c.OCVStartV == 0 {
		c.OCVStartV = 3.7
	}
	if c.IRBaseOhm == 0 {
		c.IRBaseOhm = 0.12
	}
	if c.NoiseLevel == 0 {
		c.NoiseLevel = 0.002
	}
}

type Source struct {
	cfg   Config
	mu    sync.Mutex
	rng   *rand.Rand
	start time.Time
}

func New(cfg Config) *Source {
	cfg.ApplyDefaults()
	return &Source{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		start: time.Now(),
	}
}

func (s *Source) Read(ctx context.Context) (domain.RawReading, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawReading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.FaultRate > 0 && s.rng.Float64() < s.cfg.FaultRate {
		return s.fault(), nil
	}

	// OCV sags ~1 mV/min under observation; IR creeps up with it.
	elapsedMin := time.Since(s.start).Minutes()
	ocv := s.cfg.OCVStartV - 0.001*elapsedMin + s.rng.NormFloat64()*s.cfg.NoiseLevel
	ir := s.cfg.IRBaseOhm * (1 + 0.002*elapsedMin + s.rng.NormFloat64()*s.cfg.NoiseLevel)

	return domain.RawReading{IR: &ir, OCV: &ocv}, nil
}

func (s *Source) Close() error { return nil }

func (s *Source) fault() domain.RawReading {
	switch s.rng.Intn(3) {
	case 0:
		// Dropped field.
		ocv := s.cfg.OCVStartV
		return domain.RawReading{OCV: &ocv}
	case 1:
		// Spiked IR, the classic loose-probe artifact.
		ir := 9999.0
		ocv := s.cfg.OCVStartV
		return domain.RawReading{IR: &ir, OCV: &ocv}
	default:
		return domain.RawReading{}
	}
}

var _ ports.Source = (*Source)(nil)
