package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// Console prints one line per accepted sample to an interactive display.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	label string
}

// NewConsole writes to out; label (pack name/code) prefixes each line
// when set.
func NewConsole(out io.Writer, label string) *Console {
	return &Console{out: out, label: label}
}

func (c *Console) Report(s domain.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.label != "" {
		fmt.Fprintf(c.out, "[%s] %s  IR=%.4f ohm  OCV=%.4f V\n",
			c.label, s.Timestamp.Format(time.RFC3339), s.InternalResistance, s.OpenCircuitVoltage)
		return
	}
	fmt.Fprintf(c.out, "%s  IR=%.4f ohm  OCV=%.4f V\n",
		s.Timestamp.Format(time.RFC3339), s.InternalResistance, s.OpenCircuitVoltage)
}

func (c *Console) Close() error { return nil }

var _ ports.Reporter = (*Console)(nil)
