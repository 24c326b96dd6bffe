// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package propagation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/beaconloc/pkg/types"
)

func TestExpectedSignal(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		params   types.ModelParameters
		want     float64
	}{
		{"reference distance", 1, types.ModelParameters{Rho0: 60, Alpha: 2}, -60},
		{"ten metres", 10, types.ModelParameters{Rho0: 60, Alpha: 2}, -80},
		{"hundred metres steep", 100, types.ModelParameters{Rho0: 45, Alpha: 3.5}, -115},
		{"closer than reference", 0.1, types.ModelParameters{Rho0: 50, Alpha: 2}, -30},
		{"diagonal of 5 m square", math.Sqrt(50), types.ModelParameters{Rho0: 60, Alpha: 2}, -60 - 10*math.Log10(50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExpectedSignal(tt.distance, tt.params), 1e-9)
		})
	}
}

func TestExpectedSignalMonotone(t *testing.T) {
	for _, alpha := range []float64{0.5, 1, 2, 4.5, 7} {
		p := types.ModelParameters{Rho0: 55, Alpha: alpha}
		prev := math.Inf(1)
		for d := 0.01; d < 200; d *= 1.3 {
			s := ExpectedSignal(d, p)
			assert.LessOrEqual(t, s, prev, "alpha=%g d=%g", alpha, d)
			prev = s
		}
	}
}

func TestModelFloor(t *testing.T) {
	p := types.ModelParameters{Rho0: 60, Alpha: 2}

	m := New(types.ModelConfig{SignalFloor: -100})
	got, clipped := m.Expected(1000, p)
	assert.Equal(t, -100.0, got)
	assert.True(t, clipped)

	got, clipped = m.Expected(10, p)
	assert.InDelta(t, -80, got, 1e-9)
	assert.False(t, clipped)

	unclipped := New(types.ModelConfig{})
	got, clipped = unclipped.Expected(1000, p)
	assert.InDelta(t, -120, got, 1e-9)
	assert.False(t, clipped)
}

func TestSlopeMatchesFiniteDifference(t *testing.T) {
	p := types.ModelParameters{Rho0: 62, Alpha: 2.7}
	for _, d := range []float64{0.5, 3, 12.5} {
		h := 1e-6
		fd := (ExpectedSignal(d+h, p) - ExpectedSignal(d-h, p)) / (2 * h)
		assert.InDelta(t, fd, Slope(d, p), 1e-5)
	}
}
