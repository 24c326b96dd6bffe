// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package solver estimates a device position from a partial RSSI vector by
// inverting the propagation model over a survey area. Three strategies are
// provided: grid search under the L2 residual norm, grid search under the
// L∞ norm with top-k averaging, and a bounded continuous refinement warm
// started from the L2 grid estimate.
package solver

import (
	"fmt"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// Solver estimates a position for one measurement. Implementations hold no
// mutable state and are safe for concurrent use with a shared Layout.
type Solver interface {
	Algorithm() types.Algorithm
	Solve(l *Layout, m types.Measurement, ps types.ParameterSet) (types.PositionEstimate, error)
}

// New returns the solver for alg configured by cfg.
func New(alg types.Algorithm, cfg types.SolverConfig) (Solver, error) {
	switch alg {
	case types.AlgGridNearest:
		return GridNearest{}, nil
	case types.AlgGridChebyshev:
		k := cfg.K
		if k < 1 {
			return nil, fmt.Errorf("chebyshev k must be >= 1, got %d", k)
		}
		return GridChebyshev{K: k}, nil
	case types.AlgRefinedOptimizer:
		if cfg.Tolerance <= 0 || cfg.MaxIterations < 1 {
			return nil, fmt.Errorf("refined optimizer needs tolerance > 0 and max_iterations >= 1")
		}
		return RefinedOptimizer{Tolerance: cfg.Tolerance, MaxIterations: cfg.MaxIterations}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", alg)
	}
}

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(name string) (types.Algorithm, error) {
	for _, a := range types.Algorithms {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q: use grid-nearest, grid-chebyshev, or refined-optimizer", name)
}
