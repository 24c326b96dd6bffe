// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/beaconloc/internal/harness"
	"github.com/pdiddy/beaconloc/internal/results"
	"github.com/pdiddy/beaconloc/internal/solver"
	"github.com/pdiddy/beaconloc/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Sweep the parameter grid for every solver and store the results",
	Long: `Evaluate runs the calibration sweep once per solver over a dataset with
surveyed positions. It prints the best parameters per solver and appends
the error, surface and best-parameter tables to the results database.
Earlier runs are never modified.`,
	RunE: runEvaluate,
}

func init() {
	addDataFlags(evaluateCmd)
	addSolverFlags(evaluateCmd)
	addGridFlags(evaluateCmd)
	evaluateCmd.Flags().StringSlice("algorithm", nil, "solvers to evaluate (default: all)")
	evaluateCmd.Flags().String("results-dir", "", "directory holding results.db")
	evaluateCmd.Flags().Bool("no-save", false, "do not store the run")
	evaluateCmd.Flags().Bool("json", false, "print the report as JSON")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ds, err := loadData(cmd)
	if err != nil {
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("algorithm")
	algs, err := parseAlgorithms(names)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	progress := os.Stdout
	if jsonOutput {
		progress = os.Stderr
	}

	report, err := harness.Evaluate(ctx, ds, cfg, algs, log, progress)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := harness.FormatJSON(report, os.Stdout); err != nil {
			return err
		}
	} else {
		fmt.Println()
		harness.FormatTable(report, os.Stdout)
	}

	if noSave, _ := cmd.Flags().GetBool("no-save"); noSave {
		return nil
	}
	store, err := results.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.SaveRun(ctx, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored run %d in %s\n", runID, store.Dir())
	return nil
}

func parseAlgorithms(names []string) ([]types.Algorithm, error) {
	var algs []types.Algorithm
	for _, n := range names {
		alg, err := solver.ParseAlgorithm(n)
		if err != nil {
			return nil, err
		}
		algs = append(algs, alg)
	}
	return algs, nil
}
