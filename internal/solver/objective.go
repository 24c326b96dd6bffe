// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solver

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/internal/propagation"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// observation is the usable part of a measurement: heard anchors with a
// finite reading, in anchor-layout order, with the parameters that apply to
// each. Unheard anchors are excluded, never imputed.
type observation struct {
	id     string
	idx    []int
	values []float64
	params []types.ModelParameters
}

func (l *Layout) observe(m types.Measurement, ps types.ParameterSet) (observation, error) {
	if !ps.Finite() {
		return observation{}, invalidParams(m.ID)
	}

	idx := make([]int, 0, len(m.Signals))
	for id, v := range m.Signals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if i, ok := l.space.Index(id); ok {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return observation{}, insufficientf(m.ID, "%d usable anchor readings, need at least 2", len(idx))
	}
	sort.Ints(idx)

	anchors := l.space.Anchors()
	obs := observation{
		id:     m.ID,
		idx:    idx,
		values: make([]float64, len(idx)),
		params: make([]types.ModelParameters, len(idx)),
	}
	for j, i := range idx {
		id := anchors[i].ID
		obs.values[j] = m.Signals[id]
		obs.params[j] = ps.For(id)
	}
	return obs, nil
}

// gridResiduals writes expected-minus-observed residuals for candidate c into r.
func (l *Layout) gridResiduals(obs observation, c int, r []float64) {
	row := l.dist[c*l.space.Len():]
	for j, i := range obs.idx {
		s, _ := l.model.Expected(row[i], obs.params[j])
		r[j] = s - obs.values[j]
	}
}

// pointResiduals writes residuals at an arbitrary point into r and, when
// grad is non-nil, accumulates the gradient of the sum of squared residuals.
func (l *Layout) pointResiduals(obs observation, p orb.Point, r, grad []float64) {
	if grad != nil {
		grad[0], grad[1] = 0, 0
	}
	for j, i := range obs.idx {
		d, floored := l.space.Distance(p, i)
		s, clipped := l.model.Expected(d, obs.params[j])
		r[j] = s - obs.values[j]
		if grad == nil || floored || clipped {
			continue
		}
		dx, dy := l.space.Offset(p, i)
		k := 2 * r[j] * propagation.Slope(d, obs.params[j]) / d
		grad[0] += k * dx
		grad[1] += k * dy
	}
}

// degenerate reports whether p sits on a heard anchor.
func (l *Layout) degenerate(obs observation, p orb.Point) bool {
	for _, i := range obs.idx {
		if _, floored := l.space.Distance(p, i); floored {
			return true
		}
	}
	return false
}

func (l *Layout) estimate(alg types.Algorithm, obs observation, ps types.ParameterSet, p orb.Point, objective float64, prov types.Provenance) types.PositionEstimate {
	prov.Degenerate = l.degenerate(obs, p)
	if prov.Degenerate {
		l.log.WithFields(logrus.Fields{
			"algorithm":   alg,
			"measurement": obs.id,
		}).Debug("estimate coincides with an anchor; distance floor applied")
	}
	return types.PositionEstimate{
		MeasurementID: obs.id,
		Algorithm:     alg,
		Params:        ps,
		Position:      geometry.FromOrb(p),
		Objective:     objective,
		Provenance:    prov,
	}
}
