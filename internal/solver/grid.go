// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solver

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// GridNearest returns the grid candidate whose expected signal vector is
// closest to the measurement in the L2 norm. Ties go to the first candidate
// in grid order.
type GridNearest struct{}

func (GridNearest) Algorithm() types.Algorithm { return types.AlgGridNearest }

func (g GridNearest) Solve(l *Layout, m types.Measurement, ps types.ParameterSet) (types.PositionEstimate, error) {
	obs, err := l.observe(m, ps)
	if err != nil {
		return types.PositionEstimate{}, err
	}
	best, norm := l.nearest(obs)
	return l.estimate(types.AlgGridNearest, obs, ps, l.grid[best], norm,
		types.Provenance{Candidates: len(l.grid)}), nil
}

func (l *Layout) nearest(obs observation) (int, float64) {
	r := make([]float64, len(obs.idx))
	best, bestNorm := 0, math.Inf(1)
	for c := range l.grid {
		l.gridResiduals(obs, c, r)
		if n := floats.Norm(r, 2); n < bestNorm {
			best, bestNorm = c, n
		}
	}
	return best, bestNorm
}

// GridChebyshev ranks grid candidates by the L∞ (largest absolute)
// residual and returns the mean coordinate of the K best. K = 1 is plain
// best-candidate selection.
type GridChebyshev struct {
	K int
}

func (GridChebyshev) Algorithm() types.Algorithm { return types.AlgGridChebyshev }

func (g GridChebyshev) Solve(l *Layout, m types.Measurement, ps types.ParameterSet) (types.PositionEstimate, error) {
	obs, err := l.observe(m, ps)
	if err != nil {
		return types.PositionEstimate{}, err
	}

	k := g.K
	if k < 1 {
		k = 1
	}
	if k > len(l.grid) {
		k = len(l.grid)
	}

	top := make([]ranked, 0, k+1)
	r := make([]float64, len(obs.idx))
	for c := range l.grid {
		l.gridResiduals(obs, c, r)
		top = insertRanked(top, ranked{c: c, norm: floats.Norm(r, math.Inf(1))}, k)
	}

	var x, y float64
	for _, t := range top {
		x += l.grid[t.c].X()
		y += l.grid[t.c].Y()
	}
	n := float64(len(top))
	p := orb.Point{x / n, y / n}

	return l.estimate(types.AlgGridChebyshev, obs, ps, p, top[0].norm,
		types.Provenance{Candidates: len(l.grid)}), nil
}

type ranked struct {
	c    int
	norm float64
}

// insertRanked keeps the k lowest norms in ascending order. A candidate
// that ties an existing entry is placed after it, so earlier grid points
// win ties.
func insertRanked(top []ranked, r ranked, k int) []ranked {
	if len(top) == k && r.norm >= top[k-1].norm {
		return top
	}
	pos := len(top)
	for pos > 0 && top[pos-1].norm > r.norm {
		pos--
	}
	top = append(top, ranked{})
	copy(top[pos+1:], top[pos:])
	top[pos] = r
	if len(top) > k {
		top = top[:k]
	}
	return top
}
