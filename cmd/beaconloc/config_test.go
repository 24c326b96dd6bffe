// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/pkg/types"
)

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addDataFlags(cmd)
	addSolverFlags(cmd)
	addGridFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(testCommand(t))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPipelineConfig(), cfg)
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig(testCommand(t,
		"--resolution", "0.25", "--k", "5", "--height", "1.5",
		"--max-iterations", "50", "--tolerance", "1e-6",
		"--rho0-min", "55", "--rho0-max", "65", "--alpha-step", "0.5",
	))
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Solver.Resolution)
	assert.Equal(t, 5, cfg.Solver.K)
	assert.Equal(t, 50, cfg.Solver.MaxIterations)
	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, 1.5, cfg.Geometry.HeightOffset)
	assert.Equal(t, 55.0, cfg.Calibration.Grid.Rho0.Min)
	assert.Equal(t, 65.0, cfg.Calibration.Grid.Rho0.Max)
	assert.Equal(t, 0.5, cfg.Calibration.Grid.Alpha.Step)
	assert.Equal(t, types.DefaultPipelineConfig().Calibration.Workers, cfg.Calibration.Workers)
}

func TestLoadConfigRejectsOutOfBoundsGrid(t *testing.T) {
	_, err := loadConfig(testCommand(t, "--rho0-max", "95"))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoadData(t *testing.T) {
	_, err := loadData(testCommand(t))
	assert.ErrorContains(t, err, "provide --data")

	_, err = loadData(testCommand(t, "--data", "a.yaml", "--anchors", "b.csv"))
	assert.ErrorContains(t, err, "not both")

	path := filepath.Join(t.TempDir(), "ds.yaml")
	anchors := []types.Anchor{{ID: "A", X: 0, Y: 0}, {ID: "B", X: 4, Y: 0}}
	require.NoError(t, dataset.WriteFile(path, &types.Dataset{Anchors: anchors}))
	ds, err := loadData(testCommand(t, "--data", path))
	require.NoError(t, err)
	assert.Equal(t, anchors, ds.Anchors)
}

func TestInsetLattice(t *testing.T) {
	anchors := []types.Anchor{
		{ID: "A", X: 0, Y: 0},
		{ID: "B", X: 6, Y: 0},
		{ID: "C", X: 0, Y: 2},
	}

	pts, err := insetLattice(anchors, 0, 2)
	require.NoError(t, err)
	assert.Len(t, pts, 4*2)
	assert.Equal(t, types.Point{X: 0, Y: 0}, pts[0])
	assert.Equal(t, types.Point{X: 6, Y: 2}, pts[len(pts)-1])

	pts, err = insetLattice(anchors, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}, {X: 4, Y: 1}, {X: 5, Y: 1}}, pts)

	_, err = insetLattice(anchors, 1.5, 1)
	assert.ErrorContains(t, err, "inverted")

	_, err = insetLattice(nil, 1, 1)
	assert.Error(t, err)
}
