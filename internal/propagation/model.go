// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package propagation implements the log-distance path-loss model that maps
// a transmitter distance to an expected received signal strength.
package propagation

import (
	"math"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// ExpectedSignal returns the expected RSSI in dBm at distance metres:
//
//	-rho0 - 10 * alpha * log10(distance)
//
// distance must be > 0; callers apply the geometry epsilon floor first.
func ExpectedSignal(distance float64, p types.ModelParameters) float64 {
	return -p.Rho0 - 10*p.Alpha*math.Log10(distance)
}

// Model is the propagation model with its optional received-signal floor.
type Model struct {
	// Floor clips expected values from below. Zero disables clipping.
	Floor float64
}

// New returns the model configured by cfg.
func New(cfg types.ModelConfig) Model {
	return Model{Floor: cfg.SignalFloor}
}

// Expected returns the expected RSSI at distance and whether the floor was
// applied.
func (m Model) Expected(distance float64, p types.ModelParameters) (float64, bool) {
	s := ExpectedSignal(distance, p)
	if m.Floor != 0 && s < m.Floor {
		return m.Floor, true
	}
	return s, false
}

// Slope returns d(ExpectedSignal)/d(distance), which is -10*alpha/(distance*ln 10).
func Slope(distance float64, p types.ModelParameters) float64 {
	return -10 * p.Alpha / (distance * math.Ln10)
}
