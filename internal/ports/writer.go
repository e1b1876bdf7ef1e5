package ports

import "github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"

// LogWriter persists accepted samples in arrival order. Append returns
// only after the row is durable; a failure is a *domain.WriteError and is
// fatal to the run.
type LogWriter interface {
	Append(s domain.Sample) error
	Close() error
}
