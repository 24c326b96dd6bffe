// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/internal/propagation"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// SynthOptions controls Synthesize.
type SynthOptions struct {
	Geometry types.GeometryConfig
	Model    types.ModelConfig

	// NoiseStdDev adds zero-mean Gaussian noise in dB to every reading.
	NoiseStdDev float64

	// Seed makes noisy datasets reproducible.
	Seed uint64

	// Device is recorded on every measurement.
	Device string
}

// Synthesize returns one measurement per truth point, with every anchor
// heard at the signal the propagation model predicts for params.
func Synthesize(anchors []types.Anchor, truth []types.Point, params types.ParameterSet, opts SynthOptions) ([]types.Measurement, error) {
	space, err := geometry.NewSpace(anchors, opts.Geometry)
	if err != nil {
		return nil, err
	}
	if !params.Finite() {
		return nil, fmt.Errorf("synthesize: parameters must be finite")
	}
	model := propagation.New(opts.Model)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	out := make([]types.Measurement, len(truth))
	for n, p := range truth {
		m := types.Measurement{
			ID:      fmt.Sprintf("p%04d", n+1),
			Label:   fmt.Sprintf("%g,%g", p.X, p.Y),
			Device:  opts.Device,
			Signals: make(map[string]float64, space.Len()),
			Truth:   &types.Point{X: p.X, Y: p.Y},
		}
		for i, a := range space.Anchors() {
			d, _ := space.Distance(geometry.ToOrb(p), i)
			s, _ := model.Expected(d, params.For(a.ID))
			if opts.NoiseStdDev > 0 {
				s += rng.NormFloat64() * opts.NoiseStdDev
			}
			m.Signals[a.ID] = s
		}
		out[n] = m
	}
	return out, nil
}

// Lattice returns the points of b spaced step apart, ordered by x, then y.
func Lattice(b types.Bounds, step float64) ([]types.Point, error) {
	pts, err := geometry.Grid(geometry.BoundOf(b), step)
	if err != nil {
		return nil, err
	}
	out := make([]types.Point, len(pts))
	for i, p := range pts {
		out[i] = geometry.FromOrb(p)
	}
	return out, nil
}
