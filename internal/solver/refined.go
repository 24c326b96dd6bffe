// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solver

import (
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// boxPenalty weights the squared distance outside the survey bounds.
const boxPenalty = 1e4

// RefinedOptimizer minimizes the sum of squared residuals over continuous
// (x, y) inside the survey bounds, starting from the GridNearest estimate.
//
// The box is enforced by evaluating the objective at the projection of each
// iterate onto the bounds and adding a quadratic penalty on the projection
// distance, which leaves the objective unchanged inside the box. The
// returned point is always the feasible point with the lowest objective
// evaluated, the warm start included, so refinement never ends worse than
// its starting estimate.
type RefinedOptimizer struct {
	Tolerance     float64
	MaxIterations int
}

func (RefinedOptimizer) Algorithm() types.Algorithm { return types.AlgRefinedOptimizer }

func (o RefinedOptimizer) Solve(l *Layout, m types.Measurement, ps types.ParameterSet) (types.PositionEstimate, error) {
	obs, err := l.observe(m, ps)
	if err != nil {
		return types.PositionEstimate{}, err
	}

	start, _ := l.nearest(obs)
	r := make([]float64, len(obs.idx))
	g := make([]float64, 2)

	best := l.grid[start]
	l.pointResiduals(obs, best, r, nil)
	bestF := floats.Dot(r, r)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			p := orb.Point{x[0], x[1]}
			q := geometry.Clamp(p, l.bound)
			l.pointResiduals(obs, q, r, nil)
			f := floats.Dot(r, r)
			if f < bestF {
				best, bestF = q, f
			}
			dx, dy := p[0]-q[0], p[1]-q[1]
			return f + boxPenalty*(dx*dx+dy*dy)
		},
		Grad: func(grad, x []float64) {
			p := orb.Point{x[0], x[1]}
			q := geometry.Clamp(p, l.bound)
			l.pointResiduals(obs, q, r, g)
			for i := range grad {
				if p[i] != q[i] {
					g[i] = 0
				}
				grad[i] = g[i] + 2*boxPenalty*(p[i]-q[i])
			}
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: o.Tolerance,
		MajorIterations:   o.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.Tolerance,
			Iterations: 5,
		},
	}

	prov := types.Provenance{Candidates: len(l.grid)}
	result, err := optimize.Minimize(problem, []float64{best[0], best[1]}, settings, &optimize.BFGS{})
	if result != nil {
		prov.Iterations = result.Stats.MajorIterations
		prov.Status = result.Status.String()
	}
	if err != nil {
		prov.Status = err.Error()
	}
	// Only the iteration cap is a fallback. A line search that stalls below
	// the cap has stopped at the minimum to float64 resolution.
	prov.Fallback = result == nil ||
		result.Status == optimize.IterationLimit ||
		prov.Iterations >= o.MaxIterations
	if prov.Fallback {
		l.log.WithFields(logrus.Fields{
			"algorithm":   types.AlgRefinedOptimizer,
			"measurement": obs.id,
			"status":      prov.Status,
		}).Debug("optimizer did not converge; returning best iterate")
	}

	return l.estimate(types.AlgRefinedOptimizer, obs, ps, best, bestF, prov), nil
}
