// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/beaconloc/internal/harness"
	"github.com/pdiddy/beaconloc/internal/results"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect and export stored evaluation runs",
	Long: `Results reads the append-only results database written by evaluate.
Use subcommands to list runs, show the best parameters of a run, or
export a run for statistical reporting.`,
}

// --- runs subcommand ---

var resultsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	RunE:  runResultsRuns,
}

func runResultsRuns(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return harness.FormatJSON(runs, os.Stdout)
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-5s  %-20s  %-7s  %-12s  %s\n",
		"Run", "Created", "Anchors", "Measurements", "Records")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 64))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-5d  %-20s  %-7d  %-12d  %d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Anchors, r.Measurements, r.Records)
	}
	return nil
}

// --- show subcommand ---

var resultsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the best parameters of a run (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResultsShow,
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	runID, err := runArg(ctx, store, args)
	if err != nil {
		return err
	}
	e, err := store.Load(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return harness.FormatJSON(e.Best, os.Stdout)
	}
	fmt.Printf("run %d\n\n", runID)
	harness.FormatTable(&harness.Report{
		Records:  e.Records,
		Surfaces: e.Surface,
		Best:     e.Best,
	}, os.Stdout)
	return nil
}

// --- export subcommand ---

var resultsExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Export a run to YAML or JSON (default: latest)",
	Long: `Export writes the configuration, best parameters, parameter surface
and per-measurement error records of one run to run-<id>.yaml or
run-<id>.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResultsExport,
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out")

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	runID, err := runArg(ctx, store, args)
	if err != nil {
		return err
	}

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(ctx, runID, outDir)
	case "json":
		path, err = store.ExportJSON(ctx, runID, outDir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*results.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return results.NewStore(cfg.Store)
}

func runArg(ctx context.Context, store *results.Store, args []string) (int64, error) {
	if len(args) == 0 {
		return store.LatestRun(ctx)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run id %q", args[0])
	}
	return id, nil
}

func init() {
	resultsCmd.PersistentFlags().String("results-dir", "", "directory holding results.db")

	resultsRunsCmd.Flags().Bool("json", false, "output runs as JSON")
	resultsShowCmd.Flags().Bool("json", false, "output best parameters as JSON")
	resultsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	resultsExportCmd.Flags().String("out", "", "export directory (default: the results directory)")

	resultsCmd.AddCommand(resultsRunsCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsExportCmd)

	rootCmd.AddCommand(resultsCmd)
}
