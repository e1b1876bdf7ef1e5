// Package ads1115 measures IR and OCV directly through an ADS1115 ADC.
// One channel senses the terminal voltage with the DC test load switched
// in, the other senses the open terminal. Internal resistance follows
// from the voltage sag over the configured load current.
package ads1115

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01

	// Full-scale range for PGA setting ±4.096V.
	pgaFullScale = 4.096
)

type Config struct {
	I2CBus       string  `yaml:"i2c_bus"`
	I2CAddress   int     `yaml:"i2c_address"`
	SampleRate   int     `yaml:"sample_rate"`
	OCVChannel   int     `yaml:"ocv_channel"`
	LoadChannel  int     `yaml:"load_channel"`
	LoadCurrentA float64 `yaml:"load_current_a"`
	Scale        float64 `yaml:"scale"`
}

func (c *Config) ApplyDefaults() {
	if c.I2CBus == "" {
		c.I2CBus = "1"
	}
	if c.I2CAddress == 0 {
		c.I2CAddress = 0x48
	}
	if c.SampleRate == 0 {
		c.SampleRate = 128
	}
	if c.OCVChannel == 0 && c.LoadChannel == 0 {
		c.LoadChannel = 1
	}
	if c.Scale == 0 {
		c.Scale = 1.0
	}
}

func (c *Config) Validate() error {
	if c.LoadCurrentA <= 0 {
		return errors.New("load_current_a must be > 0")
	}
	if c.OCVChannel == c.LoadChannel {
		return errors.New("ocv_channel and load_channel must differ")
	}
	return nil
}

type Source struct {
	cfg Config
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *i2c.Dev
}

func Open(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", cfg.I2CBus, err)
	}
	dev := &i2c.Dev{Addr: uint16(cfg.I2CAddress), Bus: bus}
	return &Source{cfg: cfg, bus: bus, dev: dev}, nil
}

// Read performs two single-shot conversions and derives IR from the sag
// between the open and loaded terminal voltages.
func (s *Source) Read(ctx context.Context) (domain.RawReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return domain.RawReading{}, &domain.TransportError{Source: "ads1115", Err: errors.New("bus closed")}
	}

	ocv, err := s.readChannel(ctx, s.cfg.OCVChannel)
	if err != nil {
		return domain.RawReading{}, err
	}
	loaded, err := s.readChannel(ctx, s.cfg.LoadChannel)
	if err != nil {
		return domain.RawReading{}, err
	}

	ir := (ocv - loaded) / s.cfg.LoadCurrentA
	return domain.RawReading{IR: &ir, OCV: &ocv}, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		return nil
	}
	err := s.bus.Close()
	s.bus = nil
	s.dev = nil
	return err
}

func (s *Source) readChannel(ctx context.Context, channel int) (float64, error) {
	msb, lsb, err := configForChannel(channel, s.cfg.SampleRate)
	if err != nil {
		return 0, &domain.TransportError{Source: "ads1115", Err: err}
	}
	if err := s.dev.Tx([]byte{pointerConfig, msb, lsb}, nil); err != nil {
		return 0, &domain.TransportError{Source: "ads1115", Err: fmt.Errorf("write config: %w", err)}
	}

	// Wait out the conversion at the configured data rate.
	wait := time.Duration(1000.0/float64(s.cfg.SampleRate)+2) * time.Millisecond
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.C:
	}

	readBuf := make([]byte, 2)
	if err := s.dev.Tx([]byte{pointerConv}, readBuf); err != nil {
		return 0, &domain.TransportError{Source: "ads1115", Err: fmt.Errorf("read conversion: %w", err)}
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	return float64(raw) * pgaFullScale / 32768.0 * s.cfg.Scale, nil
}

func configForChannel(channel, sampleRate int) (byte, byte, error) {
	var mux byte
	switch channel {
	case 0:
		mux = 0x4
	case 1:
		mux = 0x5
	case 2:
		mux = 0x6
	case 3:
		mux = 0x7
	default:
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}

	var dr byte
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}

	var config uint16 = 0x8000 // OS = 1: start single conversion
	config |= uint16(mux) << 12
	config |= 0x1 << 9 // PGA ±4.096V
	config |= 1 << 8   // single-shot mode
	config |= uint16(dr) << 5
	config |= 0x3 // comparator disabled
	return byte(config >> 8), byte(config & 0xFF), nil
}

var _ ports.Source = (*Source)(nil)
