package ports

import (
	"context"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
)

// Source abstracts the physical measurement link. Read takes one reading
// now, blocking until the device answers or ctx is cancelled. Failures
// are reported as *domain.TransportError.
type Source interface {
	Read(ctx context.Context) (domain.RawReading, error)
	Close() error
}
