package domain

import "time"

// Sample is a single accepted battery measurement.
type Sample struct {
	Timestamp          time.Time `json:"ts"`
	InternalResistance float64   `json:"internal_resistance_ohm"`
	OpenCircuitVoltage float64   `json:"open_circuit_voltage_v"`
}

// RawReading is one reading as produced by a reading source, before
// validation. A nil field means the source could not supply a numeric
// value for it (missing column, parse failure).
type RawReading struct {
	IR  *float64
	OCV *float64
}

// Bounds holds the plausibility limits used to reject clearly erroneous
// readings. Limits are inclusive.
type Bounds struct {
	IRMinOhm float64 `yaml:"ir_min_ohm"`
	IRMaxOhm float64 `yaml:"ir_max_ohm"`
	OCVMinV  float64 `yaml:"ocv_min_v"`
	OCVMaxV  float64 `yaml:"ocv_max_v"`
}

// Float returns a pointer to v, for building RawReading values.
func Float(v float64) *float64 { return &v }
