// Package serialsrc reads measurements from a bench MCU over a serial
// link. The MCU prints one reading per line: internal resistance in ohms
// and open-circuit voltage in volts, separated by a comma or whitespace.
package serialsrc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

const (
	// DefaultBaudRate matches the common MCU bridge setting.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds one read attempt on the wire.
	DefaultReadTimeout = 2 * time.Second
)

// Config captures the serial link settings.
type Config struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	return nil
}

// Source pulls one line per Read call. It owns the port exclusively.
type Source struct {
	cfg  Config
	mu   sync.Mutex
	conn serial.Port
	rest []byte
}

// Open opens the port and drains whatever stale output is sitting in the
// input buffer so the first reading is fresh.
func Open(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := conn.SetReadTimeout(cfg.ReadTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := conn.ResetInputBuffer(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reset input buffer: %w", err)
	}

	return &Source{cfg: cfg, conn: conn}, nil
}

// Read assembles the next complete line from the port and parses it.
// Transport problems (timeout, closed port) come back as
// *domain.TransportError; unparseable content comes back as a RawReading
// with missing fields so the validator can count it as malformed.
func (s *Source) Read(ctx context.Context) (domain.RawReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return domain.RawReading{}, &domain.TransportError{Source: "serial", Err: errors.New("port closed")}
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.RawReading{}, err
		}

		if i := bytes.IndexByte(s.rest, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.rest[:i]))
			s.rest = s.rest[i+1:]
			if line == "" {
				continue
			}
			return ParseLine(line), nil
		}

		buf := make([]byte, 256)
		n, err := s.conn.Read(buf)
		if err != nil {
			return domain.RawReading{}, &domain.TransportError{Source: "serial", Err: err}
		}
		if n == 0 {
			// go.bug.st/serial signals a read timeout as (0, nil).
			return domain.RawReading{}, &domain.TransportError{
				Source: "serial",
				Err:    fmt.Errorf("read timeout after %s", s.cfg.ReadTimeout),
			}
		}
		s.rest = append(s.rest, buf[:n]...)
	}
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// ParseLine splits one MCU line into a raw reading. Fields that fail to
// parse stay nil; the validator decides what that means.
func ParseLine(line string) domain.RawReading {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})

	var raw domain.RawReading
	if len(fields) > 0 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			raw.IR = &v
		}
	}
	if len(fields) > 1 {
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			raw.OCV = &v
		}
	}
	return raw
}

var _ ports.Source = (*Source)(nil)
