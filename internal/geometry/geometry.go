// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geometry computes distances between candidate points and the
// anchor layout, and discretises the survey area into candidate grids.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// DefaultEpsilon is the distance floor used when none is configured.
const DefaultEpsilon = 1e-6

var (
	// ErrEmptyAnchors is returned when a layout has no anchors.
	ErrEmptyAnchors = errors.New("anchor set is empty")

	// ErrInvalidAnchor is returned for a non-finite, unnamed or duplicate anchor.
	ErrInvalidAnchor = errors.New("invalid anchor")
)

// ToOrb converts a Point to an orb.Point.
func ToOrb(p types.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

// FromOrb converts an orb.Point to a Point.
func FromOrb(p orb.Point) types.Point {
	return types.Point{X: p.X(), Y: p.Y()}
}

// Distance returns the Euclidean distance between two planar points.
func Distance(a, b types.Point) float64 {
	return planar.Distance(ToOrb(a), ToOrb(b))
}

// Space is an immutable anchor layout together with the distance
// conventions (height offset, epsilon floor) used by every solver.
// It is safe for concurrent reads.
type Space struct {
	anchors []types.Anchor
	points  []orb.Point
	index   map[string]int
	height2 float64
	eps     float64
}

// NewSpace validates anchors and returns the shared layout. The anchor order
// is preserved: DistancesTo results align positionally with it.
func NewSpace(anchors []types.Anchor, cfg types.GeometryConfig) (*Space, error) {
	if len(anchors) == 0 {
		return nil, ErrEmptyAnchors
	}
	eps := cfg.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	s := &Space{
		anchors: make([]types.Anchor, len(anchors)),
		points:  make([]orb.Point, len(anchors)),
		index:   make(map[string]int, len(anchors)),
		height2: cfg.HeightOffset * cfg.HeightOffset,
		eps:     eps,
	}
	copy(s.anchors, anchors)
	for i, a := range anchors {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: anchor %d has no id", ErrInvalidAnchor, i)
		}
		if !finite(a.X) || !finite(a.Y) {
			return nil, fmt.Errorf("%w: %s has non-finite coordinates", ErrInvalidAnchor, a.ID)
		}
		if _, dup := s.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidAnchor, a.ID)
		}
		s.index[a.ID] = i
		s.points[i] = orb.Point{a.X, a.Y}
	}
	return s, nil
}

// Anchors returns the anchors in layout order. The slice must not be modified.
func (s *Space) Anchors() []types.Anchor { return s.anchors }

// Len returns the number of anchors.
func (s *Space) Len() int { return len(s.anchors) }

// Index returns the layout position of the anchor with the given id.
func (s *Space) Index(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Epsilon returns the distance floor.
func (s *Space) Epsilon() float64 { return s.eps }

// Distance returns the distance from p to anchor i, floored at epsilon.
// floored reports whether the floor was applied.
func (s *Space) Distance(p orb.Point, i int) (d float64, floored bool) {
	d = math.Sqrt(planar.DistanceSquared(p, s.points[i]) + s.height2)
	if d < s.eps {
		return s.eps, true
	}
	return d, false
}

// DistancesTo writes the floored distance from p to every anchor into dst,
// in anchor order, and returns how many distances were floored. dst must
// have length Len().
func (s *Space) DistancesTo(p orb.Point, dst []float64) int {
	floored := 0
	for i := range s.points {
		d, f := s.Distance(p, i)
		dst[i] = d
		if f {
			floored++
		}
	}
	return floored
}

// Offset returns p minus anchor i, the direction used by distance gradients.
func (s *Space) Offset(p orb.Point, i int) (dx, dy float64) {
	return p[0] - s.points[i][0], p[1] - s.points[i][1]
}

// Bound returns the anchors' bounding box padded by margin.
func (s *Space) Bound(margin float64) orb.Bound {
	return orb.MultiPoint(s.points).Bound().Pad(margin)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
