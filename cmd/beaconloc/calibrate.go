// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/beaconloc/internal/calibrate"
	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/internal/harness"
	"github.com/pdiddy/beaconloc/internal/solver"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Sweep the parameter grid for one solver",
	Long: `Calibrate evaluates every (rho0, alpha) pair of the configured grid with
one solver against surveyed positions, then prints the best pair and the
lowest-error cells of the surface. Nothing is stored.`,
	RunE: runCalibrate,
}

func init() {
	addDataFlags(calibrateCmd)
	addSolverFlags(calibrateCmd)
	addGridFlags(calibrateCmd)
	calibrateCmd.Flags().String("algorithm", "refined-optimizer", "solver to calibrate")
	calibrateCmd.Flags().Int("top", 10, "surface cells to print")
	calibrateCmd.Flags().Bool("json", false, "print the surface and best pair as JSON")

	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ds, err := loadData(cmd)
	if err != nil {
		return err
	}
	if err := dataset.Validate(ds, true); err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("algorithm")
	alg, err := solver.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	s, err := solver.New(alg, cfg.Solver)
	if err != nil {
		return err
	}
	layout, err := solver.NewLayout(ds.Anchors, solver.LayoutOptions{
		Geometry: cfg.Geometry,
		Model:    cfg.Model,
		Solver:   cfg.Solver,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	opts := calibrate.OptionsFrom(cfg.Calibration, log)
	opts.KeepRecords = false
	res, err := calibrate.Sweep(ctx, s, layout, ds.Measurements, cfg.Calibration.Grid, opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return harness.FormatJSON(struct {
			Best    any `json:"best"`
			Surface any `json:"surface"`
		}{res.Best, res.Surface}, os.Stdout)
	}

	fmt.Printf("%s: best %s, mean error %.3f m over %d samples\n",
		alg, res.Best.Params, res.Best.MeanError, res.Best.Samples)
	if res.Best.Unreliable {
		fmt.Println("warning: no reliable cell; best pair comes from an unreliable cell")
	}

	rows := harness.SurfaceRows(res.Surface)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Unreliable != rows[j].Unreliable {
			return !rows[i].Unreliable
		}
		return rows[i].MeanError < rows[j].MeanError
	})
	top, _ := cmd.Flags().GetInt("top")
	if top > len(rows) {
		top = len(rows)
	}

	fmt.Printf("\n%-6s  %-6s  %-10s  %-10s  %-10s  %-7s  %s\n",
		"Rho0", "Alpha", "Mean(m)", "Median(m)", "P90(m)", "Samples", "Excluded")
	for _, r := range rows[:top] {
		mark := ""
		if r.Unreliable {
			mark = " *"
		}
		fmt.Printf("%-6.1f  %-6.2f  %-10.3f  %-10.3f  %-10.3f  %-7d  %d%s\n",
			r.Rho0, r.Alpha, r.MeanError, r.MedianError, r.P90Error, r.Samples, r.Excluded, mark)
	}
	return nil
}
