// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solver

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// --- test helpers ---

func squareAnchors() []types.Anchor {
	return []types.Anchor{
		{ID: "A", X: 0, Y: 0},
		{ID: "B", X: 10, Y: 0},
		{ID: "C", X: 0, Y: 10},
		{ID: "D", X: 10, Y: 10},
	}
}

func defaultSolverConfig() types.SolverConfig {
	return types.DefaultPipelineConfig().Solver
}

func testLayout(t *testing.T, cfg types.SolverConfig, geo types.GeometryConfig) *Layout {
	t.Helper()
	l, err := NewLayout(squareAnchors(), LayoutOptions{Solver: cfg, Geometry: geo})
	require.NoError(t, err)
	return l
}

func synth(t *testing.T, p types.Point, ps types.ParameterSet, geo types.GeometryConfig) types.Measurement {
	t.Helper()
	ms, err := dataset.Synthesize(squareAnchors(), []types.Point{p}, ps, dataset.SynthOptions{Geometry: geo})
	require.NoError(t, err)
	return ms[0]
}

func allSolvers(t *testing.T, cfg types.SolverConfig) []Solver {
	t.Helper()
	var out []Solver
	for _, alg := range types.Algorithms {
		s, err := New(alg, cfg)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func posError(est types.PositionEstimate, truth types.Point) float64 {
	return geometry.Distance(est.Position, truth)
}

// --- construction ---

func TestNew(t *testing.T) {
	cfg := defaultSolverConfig()
	for _, alg := range types.Algorithms {
		s, err := New(alg, cfg)
		require.NoError(t, err)
		assert.Equal(t, alg, s.Algorithm())
	}

	_, err := New("simplex", cfg)
	assert.Error(t, err)

	bad := cfg
	bad.K = 0
	_, err = New(types.AlgGridChebyshev, bad)
	assert.Error(t, err)

	bad = cfg
	bad.MaxIterations = 0
	_, err = New(types.AlgRefinedOptimizer, bad)
	assert.Error(t, err)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("grid-chebyshev")
	require.NoError(t, err)
	assert.Equal(t, types.AlgGridChebyshev, a)

	_, err = ParseAlgorithm("kalman")
	assert.Error(t, err)
}

func TestNewLayout(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	assert.Equal(t, 21*21, l.Candidates())
	assert.Contains(t, l.String(), "4 anchors")

	cfg := defaultSolverConfig()
	cfg.Bounds = &types.Bounds{Min: types.Point{X: 2, Y: 2}, Max: types.Point{X: 4, Y: 4}}
	l = testLayout(t, cfg, types.GeometryConfig{})
	assert.Equal(t, 5*5, l.Candidates())

	_, err := NewLayout(nil, LayoutOptions{Solver: defaultSolverConfig()})
	assert.ErrorIs(t, err, geometry.ErrEmptyAnchors)

	cfg = defaultSolverConfig()
	cfg.Resolution = 0
	_, err = NewLayout(squareAnchors(), LayoutOptions{Solver: cfg})
	assert.Error(t, err)
}

// --- end-to-end recovery ---

func TestRecoverCentre(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	truth := types.Point{X: 5, Y: 5}
	m := synth(t, truth, ps, types.GeometryConfig{})

	for _, a := range squareAnchors() {
		assert.InDelta(t, -60-10*math.Log10(50), m.Signals[a.ID], 1e-9)
	}

	tests := []struct {
		alg     types.Algorithm
		maxErr  float64
		exactly bool
	}{
		{types.AlgGridNearest, 0, true},
		{types.AlgGridChebyshev, cfg.Resolution, false},
		{types.AlgRefinedOptimizer, 1e-3, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			s, err := New(tt.alg, cfg)
			require.NoError(t, err)
			est, err := s.Solve(l, m, ps)
			require.NoError(t, err)

			assert.Equal(t, tt.alg, est.Algorithm)
			assert.Equal(t, m.ID, est.MeasurementID)
			assert.Equal(t, ps, est.Params)
			if tt.exactly {
				assert.Equal(t, truth, est.Position)
			}
			assert.LessOrEqual(t, posError(est, truth), tt.maxErr)
		})
	}
}

func TestRecoverOffGridPoints(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	ro := RefinedOptimizer{Tolerance: cfg.Tolerance, MaxIterations: cfg.MaxIterations}

	for _, truth := range []types.Point{{X: 3.3, Y: 7.1}, {X: 2.2, Y: 2.7}, {X: 8.45, Y: 1.05}} {
		ps := types.GlobalParameters(58, 2.4)
		m := synth(t, truth, ps, types.GeometryConfig{})

		est, err := ro.Solve(l, m, ps)
		require.NoError(t, err)
		assert.Less(t, posError(est, truth), 1e-3, "truth %+v", truth)
		assert.Less(t, est.Provenance.Iterations, cfg.MaxIterations)
	}
}

// --- error taxonomy ---

func TestInsufficientSignal(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)

	tests := []struct {
		name    string
		signals map[string]float64
	}{
		{"no readings", map[string]float64{}},
		{"nil readings", nil},
		{"one reading", map[string]float64{"A": -70}},
		{"one known plus unknown anchor", map[string]float64{"A": -70, "Z": -60}},
		{"one finite plus NaN", map[string]float64{"A": -70, "B": math.NaN()}},
		{"one finite plus -Inf", map[string]float64{"A": -70, "B": math.Inf(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := types.Measurement{ID: "m", Signals: tt.signals}
			for _, s := range allSolvers(t, defaultSolverConfig()) {
				_, err := s.Solve(l, m, ps)
				require.ErrorIs(t, err, ErrInsufficientSignal, "solver %s", s.Algorithm())

				var se *SolveError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, "m", se.MeasurementID)
			}
		})
	}
}

func TestInvalidParameters(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	m := synth(t, types.Point{X: 4, Y: 6}, types.GlobalParameters(60, 2), types.GeometryConfig{})

	bad := []types.ParameterSet{
		types.GlobalParameters(math.NaN(), 2),
		types.GlobalParameters(60, math.Inf(1)),
		{Global: types.ModelParameters{Rho0: 60, Alpha: 2}, PerAnchor: map[string]types.ModelParameters{"B": {Rho0: math.NaN(), Alpha: 2}}},
	}
	for _, ps := range bad {
		for _, s := range allSolvers(t, defaultSolverConfig()) {
			_, err := s.Solve(l, m, ps)
			assert.ErrorIs(t, err, ErrInvalidParameters, "solver %s", s.Algorithm())
		}
	}

	// Out-of-sweep but finite parameters are accepted.
	for _, s := range allSolvers(t, defaultSolverConfig()) {
		_, err := s.Solve(l, m, types.GlobalParameters(20, 9))
		assert.NoError(t, err)
	}
}

func TestSolveErrorMessage(t *testing.T) {
	err := insufficientf("m7", "%d usable", 1)
	assert.Equal(t, "measurement m7: insufficient signal: 1 usable", err.Error())
	assert.Equal(t, "measurement m7: invalid parameters: rho0 and alpha must be finite", invalidParams("m7").Error())
}

// --- Chebyshev ---

func TestChebyshevKOneIsBestCandidate(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	ps := types.GlobalParameters(62, 2.2)
	m := synth(t, types.Point{X: 6.3, Y: 2.8}, types.GlobalParameters(60, 2), types.GeometryConfig{})

	obs, err := l.observe(m, ps)
	require.NoError(t, err)
	r := make([]float64, len(obs.idx))
	best, bestNorm := -1, math.Inf(1)
	for c := range l.grid {
		l.gridResiduals(obs, c, r)
		if n := floats.Norm(r, math.Inf(1)); n < bestNorm {
			best, bestNorm = c, n
		}
	}

	est, err := GridChebyshev{K: 1}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.Equal(t, geometry.FromOrb(l.grid[best]), est.Position)
	assert.Equal(t, bestNorm, est.Objective)
}

func TestChebyshevAveragesTopK(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	m := synth(t, types.Point{X: 5, Y: 5}, ps, types.GeometryConfig{})

	one, err := GridChebyshev{K: 1}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.Equal(t, types.Point{X: 5, Y: 5}, one.Position)

	// The four axial neighbours of the centre tie in the L∞ norm; averaging
	// with any of them pulls the estimate off the lattice but within one cell.
	three, err := GridChebyshev{K: 3}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.NotEqual(t, one.Position, three.Position)
	assert.LessOrEqual(t, geometry.Distance(three.Position, one.Position), 0.5)

	all, err := GridChebyshev{K: 10000}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.InDelta(t, 5, all.Position.X, 1e-9)
	assert.InDelta(t, 5, all.Position.Y, 1e-9)
}

func TestInsertRanked(t *testing.T) {
	var top []ranked
	for i, n := range []float64{5, 3, 9, 3, 1, 7} {
		top = insertRanked(top, ranked{c: i, norm: n}, 3)
	}
	assert.Equal(t, []ranked{{c: 4, norm: 1}, {c: 1, norm: 3}, {c: 3, norm: 3}}, top)
}

// --- refinement ---

func TestRefinedNotWorseThanWarmStart(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	nearest := GridNearest{}
	refined := RefinedOptimizer{Tolerance: cfg.Tolerance, MaxIterations: cfg.MaxIterations}

	params := []types.ParameterSet{
		types.GlobalParameters(40, 1),
		types.GlobalParameters(52, 1.8),
		types.GlobalParameters(60, 2),
		types.GlobalParameters(71, 3.6),
		types.GlobalParameters(80, 7),
	}
	points := []types.Point{{X: 1.1, Y: 8.7}, {X: 4.9, Y: 5.2}, {X: 9.4, Y: 0.3}, {X: 6.66, Y: 3.33}}

	for _, ps := range params {
		for _, p := range points {
			m := synth(t, p, ps, types.GeometryConfig{})
			g, err := nearest.Solve(l, m, ps)
			require.NoError(t, err)
			r, err := refined.Solve(l, m, ps)
			require.NoError(t, err)

			assert.LessOrEqual(t, posError(r, p), posError(g, p)+1e-6, "%v at %+v", ps.Global, p)
			assert.LessOrEqual(t, r.Objective, g.Objective*g.Objective+1e-9)
		}
	}
}

func TestRefinedStaysInBounds(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	m := synth(t, types.Point{X: 14, Y: 5}, ps, types.GeometryConfig{})

	est, err := RefinedOptimizer{Tolerance: cfg.Tolerance, MaxIterations: cfg.MaxIterations}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.LessOrEqual(t, est.Position.X, 10.0)
	assert.GreaterOrEqual(t, est.Position.X, 0.0)
	assert.InDelta(t, 10, est.Position.X, 0.1)
}

func TestRefinedFallbackReturnsBestIterate(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	m := synth(t, types.Point{X: 3.3, Y: 7.1}, ps, types.GeometryConfig{})

	g, err := GridNearest{}.Solve(l, m, ps)
	require.NoError(t, err)

	est, err := RefinedOptimizer{Tolerance: 1e-15, MaxIterations: 1}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.True(t, est.Provenance.Fallback)
	assert.NotEmpty(t, est.Provenance.Status)
	assert.LessOrEqual(t, est.Objective, g.Objective*g.Objective+1e-9)
}

func TestRefinedNoisyInputsConverge(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	ro := RefinedOptimizer{Tolerance: cfg.Tolerance, MaxIterations: cfg.MaxIterations}
	ps := types.GlobalParameters(60, 2)

	pts, err := dataset.Lattice(types.Bounds{Min: types.Point{X: 1, Y: 1}, Max: types.Point{X: 8, Y: 8}}, 1)
	require.NoError(t, err)
	ms, err := dataset.Synthesize(squareAnchors(), pts, ps, dataset.SynthOptions{NoiseStdDev: 3, Seed: 11})
	require.NoError(t, err)

	for _, m := range ms {
		est, err := ro.Solve(l, m, ps)
		require.NoError(t, err)
		assert.Less(t, est.Provenance.Iterations, cfg.MaxIterations, m.ID)
		assert.False(t, est.Provenance.Fallback, "%s: %s", m.ID, est.Provenance.Status)

		g, err := GridNearest{}.Solve(l, m, ps)
		require.NoError(t, err)
		assert.LessOrEqual(t, est.Objective, g.Objective*g.Objective+1e-9, m.ID)
	}
}

// --- geometry conventions ---

func TestDegenerateEstimateFlagged(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	m := synth(t, types.Point{X: 0, Y: 0}, ps, types.GeometryConfig{})

	est, err := GridNearest{}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.Equal(t, types.Point{X: 0, Y: 0}, est.Position)
	assert.True(t, est.Provenance.Degenerate)
	assert.False(t, math.IsNaN(est.Objective))
}

func TestHeightOffset(t *testing.T) {
	geo := types.GeometryConfig{HeightOffset: 2}
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, geo)
	ps := types.GlobalParameters(55, 2.5)
	truth := types.Point{X: 2.5, Y: 7.5}
	m := synth(t, truth, ps, geo)

	for _, s := range allSolvers(t, cfg) {
		est, err := s.Solve(l, m, ps)
		require.NoError(t, err)
		assert.LessOrEqual(t, posError(est, truth), cfg.Resolution, "solver %s", s.Algorithm())
		assert.False(t, est.Provenance.Degenerate)
	}
}

func TestPerAnchorParameters(t *testing.T) {
	l := testLayout(t, defaultSolverConfig(), types.GeometryConfig{})
	ps := types.ParameterSet{
		Global: types.ModelParameters{Rho0: 60, Alpha: 2},
		PerAnchor: map[string]types.ModelParameters{
			"A": {Rho0: 48, Alpha: 3},
			"D": {Rho0: 70, Alpha: 1.6},
		},
	}
	truth := types.Point{X: 7, Y: 3}
	m := synth(t, truth, ps, types.GeometryConfig{})

	est, err := GridNearest{}.Solve(l, m, ps)
	require.NoError(t, err)
	assert.Equal(t, truth, est.Position)

	// Solving with only the global pair misplaces the device.
	wrong, err := GridNearest{}.Solve(l, m, types.GlobalParameters(60, 2))
	require.NoError(t, err)
	assert.Greater(t, posError(wrong, truth), 0.0)
}

func TestPartialMeasurementIgnoresUnheard(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	truth := types.Point{X: 2, Y: 3}
	full := synth(t, truth, ps, types.GeometryConfig{})

	partial := types.Measurement{ID: "partial", Signals: map[string]float64{
		"A": full.Signals["A"],
		"B": full.Signals["B"],
		"C": full.Signals["C"],
	}}
	est, err := GridNearest{}.Solve(l, partial, ps)
	require.NoError(t, err)
	assert.Equal(t, truth, est.Position)
}

func TestConcurrentSolvesShareLayout(t *testing.T) {
	cfg := defaultSolverConfig()
	l := testLayout(t, cfg, types.GeometryConfig{})
	ps := types.GlobalParameters(60, 2)
	m := synth(t, types.Point{X: 3.3, Y: 7.1}, ps, types.GeometryConfig{})
	solvers := allSolvers(t, cfg)

	want := make([]types.PositionEstimate, len(solvers))
	for i, s := range solvers {
		est, err := s.Solve(l, m, ps)
		require.NoError(t, err)
		want[i] = est
	}

	var wg sync.WaitGroup
	got := make([][]types.PositionEstimate, 8)
	for w := range got {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for _, s := range solvers {
				est, _ := s.Solve(l, m, ps)
				got[w] = append(got[w], est)
			}
		}(w)
	}
	wg.Wait()
	for _, g := range got {
		assert.Equal(t, want, g)
	}
}
