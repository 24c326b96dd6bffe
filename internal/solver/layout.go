// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solver

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/internal/propagation"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// LayoutOptions configures NewLayout.
type LayoutOptions struct {
	Geometry types.GeometryConfig
	Model    types.ModelConfig
	Solver   types.SolverConfig

	// Logger receives diagnostic events. Nil discards them.
	Logger *logrus.Logger
}

// Layout is the read-only problem setup shared by all solvers and all
// calibration workers: the anchor space, the survey bounds, the candidate
// grid, and the candidate-to-anchor distance table.
type Layout struct {
	space  *geometry.Space
	model  propagation.Model
	bound  orb.Bound
	grid   []orb.Point
	dist   []float64 // len(grid) * space.Len(), row per candidate
	faint  []bool    // dist entry was floored
	log    *logrus.Logger
	solver types.SolverConfig
}

// NewLayout builds the candidate grid over the configured bounds (or the
// anchor bounding box padded by the margin) and precomputes distances.
func NewLayout(anchors []types.Anchor, opts LayoutOptions) (*Layout, error) {
	space, err := geometry.NewSpace(anchors, opts.Geometry)
	if err != nil {
		return nil, err
	}

	bound := space.Bound(opts.Solver.Margin)
	if opts.Solver.Bounds != nil {
		bound = geometry.BoundOf(*opts.Solver.Bounds)
	}

	grid, err := geometry.Grid(bound, opts.Solver.Resolution)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	n := space.Len()
	l := &Layout{
		space:  space,
		model:  propagation.New(opts.Model),
		bound:  bound,
		grid:   grid,
		dist:   make([]float64, len(grid)*n),
		faint:  make([]bool, len(grid)*n),
		log:    log,
		solver: opts.Solver,
	}

	floored := 0
	for c, p := range grid {
		for i := 0; i < n; i++ {
			d, f := space.Distance(p, i)
			l.dist[c*n+i] = d
			l.faint[c*n+i] = f
			if f {
				floored++
			}
		}
	}
	if floored > 0 {
		log.WithField("pairs", floored).Debug("grid candidates coincide with anchors; distance floor applied")
	}

	return l, nil
}

// Space returns the anchor layout.
func (l *Layout) Space() *geometry.Space { return l.space }

// Bound returns the survey area.
func (l *Layout) Bound() orb.Bound { return l.bound }

// Candidates returns the number of grid candidates.
func (l *Layout) Candidates() int { return len(l.grid) }

// Logger returns the diagnostic logger.
func (l *Layout) Logger() *logrus.Logger { return l.log }

func (l *Layout) String() string {
	return fmt.Sprintf("%d anchors, %d candidates at %gm over [%g,%g]-[%g,%g]",
		l.space.Len(), len(l.grid), l.solver.Resolution,
		l.bound.Min.X(), l.bound.Min.Y(), l.bound.Max.X(), l.bound.Max.Y())
}
