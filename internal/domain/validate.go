package domain

import (
	"fmt"
	"math"
	"time"
)

// Validate checks a raw reading against the plausibility bounds and, on
// success, stamps it into a Sample. It is a pure function of its inputs
// apart from the timestamp, which the caller supplies so the loop owns
// the clock.
func Validate(raw RawReading, bounds Bounds, ts time.Time) (Sample, error) {
	ir, err := checkField("internal_resistance", raw.IR, bounds.IRMinOhm, bounds.IRMaxOhm)
	if err != nil {
		return Sample{}, err
	}
	ocv, err := checkField("open_circuit_voltage", raw.OCV, bounds.OCVMinV, bounds.OCVMaxV)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Timestamp:          ts,
		InternalResistance: ir,
		OpenCircuitVoltage: ocv,
	}, nil
}

func checkField(name string, v *float64, min, max float64) (float64, error) {
	if v == nil {
		return 0, &ValidationError{Reason: Malformed, Field: name, Detail: "value missing"}
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, &ValidationError{Reason: Malformed, Field: name, Detail: fmt.Sprintf("non-finite value %v", *v)}
	}
	if *v < min || *v > max {
		return 0, &ValidationError{
			Reason: OutOfRange,
			Field:  name,
			Detail: fmt.Sprintf("%g outside [%g, %g]", *v, min, max),
		}
	}
	return *v, nil
}
