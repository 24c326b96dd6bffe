// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/beaconloc/pkg/types"
)

func squareAnchors() []types.Anchor {
	return []types.Anchor{
		{ID: "A", X: 0, Y: 0},
		{ID: "B", X: 10, Y: 0},
		{ID: "C", X: 0, Y: 10},
		{ID: "D", X: 10, Y: 10},
	}
}

func TestNewSpace(t *testing.T) {
	tests := []struct {
		name    string
		anchors []types.Anchor
		wantErr error
	}{
		{"valid", squareAnchors(), nil},
		{"empty", nil, ErrEmptyAnchors},
		{"duplicate", []types.Anchor{{ID: "A"}, {ID: "A", X: 1}}, ErrInvalidAnchor},
		{"missing id", []types.Anchor{{X: 1}}, ErrInvalidAnchor},
		{"nan coordinate", []types.Anchor{{ID: "A", X: math.NaN()}}, ErrInvalidAnchor},
		{"inf coordinate", []types.Anchor{{ID: "A", Y: math.Inf(-1)}}, ErrInvalidAnchor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSpace(tt.anchors, types.GeometryConfig{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.anchors), s.Len())
			assert.Equal(t, DefaultEpsilon, s.Epsilon())
		})
	}
}

func TestDistancesToOrder(t *testing.T) {
	s, err := NewSpace(squareAnchors(), types.GeometryConfig{})
	require.NoError(t, err)

	dst := make([]float64, s.Len())
	floored := s.DistancesTo(orb.Point{10, 0}, dst)

	assert.Equal(t, 1, floored)
	assert.Equal(t, 10.0, dst[0])
	assert.Equal(t, DefaultEpsilon, dst[1])
	assert.InDelta(t, math.Sqrt(200), dst[2], 1e-12)
	assert.Equal(t, 10.0, dst[3])

	i, ok := s.Index("C")
	require.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = s.Index("Z")
	assert.False(t, ok)
}

func TestDistanceHeightOffset(t *testing.T) {
	s, err := NewSpace(squareAnchors(), types.GeometryConfig{HeightOffset: 2})
	require.NoError(t, err)

	d, floored := s.Distance(orb.Point{0, 0}, 0)
	assert.False(t, floored)
	assert.Equal(t, 2.0, d)

	d, _ = s.Distance(orb.Point{3, 0}, 0)
	assert.InDelta(t, math.Sqrt(13), d, 1e-12)
}

func TestDistanceSymmetric(t *testing.T) {
	a := types.Point{X: 1.5, Y: -2}
	b := types.Point{X: 4.5, Y: 2}
	assert.Equal(t, 5.0, Distance(a, b))
	assert.Equal(t, Distance(a, b), Distance(b, a))
	assert.Zero(t, Distance(a, a))
}

func TestGrid(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	pts, err := Grid(b, 0.5)
	require.NoError(t, err)
	assert.Len(t, pts, 21*21)
	assert.Equal(t, orb.Point{0, 0}, pts[0])
	assert.Equal(t, orb.Point{10, 10}, pts[len(pts)-1])
	assert.Contains(t, pts, orb.Point{5, 5})

	pts, err = Grid(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 0.7}}, 0.3)
	require.NoError(t, err)
	assert.Len(t, pts, 4*3)

	_, err = Grid(b, 0)
	assert.Error(t, err)
}

func TestGridRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name string
		b    orb.Bound
	}{
		{"inverted x", orb.Bound{Min: orb.Point{4, 0}, Max: orb.Point{2, 10}}},
		{"inverted y", orb.Bound{Min: orb.Point{0, 3}, Max: orb.Point{10, 1}}},
		{"both inverted", orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{1, 1}}},
		{"nan", orb.Bound{Min: orb.Point{math.NaN(), 0}, Max: orb.Point{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Grid(tt.b, 1)
			assert.Error(t, err)
		})
	}

	pts, err := Grid(orb.Bound{Min: orb.Point{2, 3}, Max: orb.Point{2, 3}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{2, 3}}, pts)
}

func TestFromBound(t *testing.T) {
	b := FromBound(orb.Bound{Min: orb.Point{-1, 2}, Max: orb.Point{3, 4}})
	assert.Equal(t, types.Bounds{Min: types.Point{X: -1, Y: 2}, Max: types.Point{X: 3, Y: 4}}, b)
	assert.Equal(t, orb.Bound{Min: orb.Point{-1, 2}, Max: orb.Point{3, 4}}, BoundOf(b))
}

func TestBoundAndClamp(t *testing.T) {
	s, err := NewSpace(squareAnchors(), types.GeometryConfig{})
	require.NoError(t, err)

	b := s.Bound(1)
	assert.Equal(t, orb.Point{-1, -1}, b.Min)
	assert.Equal(t, orb.Point{11, 11}, b.Max)

	assert.Equal(t, orb.Point{11, 3}, Clamp(orb.Point{20, 3}, b))
	assert.Equal(t, orb.Point{-1, -1}, Clamp(orb.Point{-5, -7}, b))
	assert.Equal(t, orb.Point{2, 2}, Clamp(orb.Point{2, 2}, b))
}
