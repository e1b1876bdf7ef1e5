package ports

import "github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"

// Reporter receives each accepted sample for live display. It must not
// block the sampling cadence; slow consumers drop or buffer internally.
type Reporter interface {
	Report(s domain.Sample)
	Close() error
}
