// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// BoundOf converts configured bounds to an orb.Bound.
func BoundOf(b types.Bounds) orb.Bound {
	return orb.Bound{Min: ToOrb(b.Min), Max: ToOrb(b.Max)}
}

// FromBound converts an orb.Bound to configured bounds.
func FromBound(b orb.Bound) types.Bounds {
	return types.Bounds{Min: FromOrb(b.Min), Max: FromOrb(b.Max)}
}

// Grid returns the candidate points covering b at the given resolution,
// ordered by x, then y. Coordinates are computed as Min + i*resolution so
// that lattice points land on exact multiples of the resolution.
func Grid(b orb.Bound, resolution float64) ([]orb.Point, error) {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("grid resolution must be a positive number, got %g", resolution)
	}
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if !finite(v) {
			return nil, fmt.Errorf("grid bound must be finite, got %v", b)
		}
	}
	if b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() {
		return nil, fmt.Errorf("grid bound is inverted: min %v, max %v", b.Min, b.Max)
	}
	nx := steps(b.Max.X()-b.Min.X(), resolution)
	ny := steps(b.Max.Y()-b.Min.Y(), resolution)
	pts := make([]orb.Point, 0, nx*ny)
	for i := 0; i < nx; i++ {
		x := b.Min.X() + float64(i)*resolution
		for j := 0; j < ny; j++ {
			pts = append(pts, orb.Point{x, b.Min.Y() + float64(j)*resolution})
		}
	}
	return pts, nil
}

func steps(extent, resolution float64) int {
	return int(math.Floor(extent/resolution+1e-9)) + 1
}

// Clamp projects p onto b.
func Clamp(p orb.Point, b orb.Bound) orb.Point {
	return orb.Point{
		math.Min(math.Max(p[0], b.Min[0]), b.Max[0]),
		math.Min(math.Max(p[1], b.Min[1]), b.Max[1]),
	}
}
