// Package irocvrecorder re-exports the public surface of the recorder so
// embedders need a single import.
package irocvrecorder

import (
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/app/config"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/app/loop"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/app/summary"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/pkg/irocv"
)

// Core domain types.
type (
	Sample          = domain.Sample
	RawReading      = domain.RawReading
	Bounds          = domain.Bounds
	ValidationError = domain.ValidationError
	WriteError      = domain.WriteError
)

// Ports for custom adapters.
type (
	Source        = ports.Source
	LogWriter     = ports.LogWriter
	Reporter      = ports.Reporter
	Observability = ports.Observability
)

// Runtime assembly.
type (
	Config  = config.Config
	Runtime = irocv.Runtime
	Option  = irocv.Option
	Counts  = loop.Counts
	Summary = summary.Summary
)

// Conf loads a config file and assembles a Runtime from it in one step.
func Conf(path string, opts ...Option) (*Runtime, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return irocv.NewRuntime(cfg, opts...)
}

var (
	LoadConfig = config.Load
	NewRuntime = irocv.NewRuntime

	WithSource        = irocv.WithSource
	WithLogWriter     = irocv.WithLogWriter
	WithReporter      = irocv.WithReporter
	WithObservability = irocv.WithObservability

	Validate    = domain.Validate
	SummaryFile = summary.FromFile
)
