// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/internal/harness"
	"github.com/pdiddy/beaconloc/internal/solver"
	"github.com/pdiddy/beaconloc/pkg/types"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Estimate device positions with fixed path-loss parameters",
	Long: `Locate runs one solver over every measurement of a dataset using the
given rho0 and alpha. Surveyed positions are not required. Measurements
that hear fewer than two anchors are listed as skipped.`,
	RunE: runLocate,
}

func init() {
	addDataFlags(locateCmd)
	addSolverFlags(locateCmd)
	locateCmd.Flags().String("algorithm", "refined-optimizer", "solver to run")
	locateCmd.Flags().Float64("rho0", 60, "signal at one metre, as a positive dB value")
	locateCmd.Flags().Float64("alpha", 2, "path-loss exponent")
	locateCmd.Flags().Bool("json", false, "print estimates as JSON")

	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ds, err := loadData(cmd)
	if err != nil {
		return err
	}
	if err := dataset.Validate(ds, false); err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("algorithm")
	alg, err := solver.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	rho0, _ := cmd.Flags().GetFloat64("rho0")
	alpha, _ := cmd.Flags().GetFloat64("alpha")

	out, err := harness.Locate(ds.Anchors, ds.Measurements, alg, types.GlobalParameters(rho0, alpha), cfg, log)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return harness.FormatJSON(out, os.Stdout)
	}

	harness.FormatEstimates(out.Estimates, os.Stdout)
	if len(out.Failed) > 0 {
		ids := make([]string, 0, len(out.Failed))
		for id := range out.Failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Printf("\nskipped %d measurement(s):\n", len(ids))
		for _, id := range ids {
			fmt.Printf("  %s\n", out.Failed[id])
		}
	}
	return nil
}
