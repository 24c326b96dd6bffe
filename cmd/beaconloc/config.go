// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// loadConfig starts from the defaults, overlays the config file, then
// overlays any pipeline flags the command defines and the user set.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	flags := cmd.Flags()
	setFloat := func(name string, dst *float64) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}
	setInt := func(name string, dst *int) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	setFloat("resolution", &cfg.Solver.Resolution)
	setFloat("margin", &cfg.Solver.Margin)
	setInt("k", &cfg.Solver.K)
	setInt("max-iterations", &cfg.Solver.MaxIterations)
	setFloat("tolerance", &cfg.Solver.Tolerance)
	setFloat("height", &cfg.Geometry.HeightOffset)
	setFloat("signal-floor", &cfg.Model.SignalFloor)
	setInt("workers", &cfg.Calibration.Workers)
	setFloat("unreliable-threshold", &cfg.Calibration.UnreliableThreshold)
	setFloat("rho0-min", &cfg.Calibration.Grid.Rho0.Min)
	setFloat("rho0-max", &cfg.Calibration.Grid.Rho0.Max)
	setFloat("rho0-step", &cfg.Calibration.Grid.Rho0.Step)
	setFloat("alpha-min", &cfg.Calibration.Grid.Alpha.Min)
	setFloat("alpha-max", &cfg.Calibration.Grid.Alpha.Max)
	setFloat("alpha-step", &cfg.Calibration.Grid.Alpha.Step)

	if flags.Lookup("results-dir") != nil && flags.Changed("results-dir") {
		cfg.Store.ResultsDir, _ = flags.GetString("results-dir")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadData reads a dataset from --data (YAML or JSON) or from the
// --anchors and --measurements CSV pair.
func loadData(cmd *cobra.Command) (*types.Dataset, error) {
	dataPath, _ := cmd.Flags().GetString("data")
	anchorsPath, _ := cmd.Flags().GetString("anchors")
	measPath, _ := cmd.Flags().GetString("measurements")

	switch {
	case dataPath != "" && (anchorsPath != "" || measPath != ""):
		return nil, fmt.Errorf("use either --data or --anchors/--measurements, not both")
	case dataPath != "":
		return dataset.LoadFile(dataPath)
	case anchorsPath != "" && measPath != "":
		return dataset.LoadCSV(anchorsPath, measPath, log)
	default:
		return nil, fmt.Errorf("provide --data or both --anchors and --measurements")
	}
}

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "dataset file (YAML or JSON)")
	cmd.Flags().String("anchors", "", "anchor CSV (AP,x,y)")
	cmd.Flags().String("measurements", "", "measurement CSV (LABEL,DEVICE,X,Y,WAP...)")
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("resolution", 0, "candidate grid spacing in metres")
	cmd.Flags().Float64("margin", 0, "padding around the anchor bounding box in metres")
	cmd.Flags().Int("k", 0, "candidates averaged by grid-chebyshev")
	cmd.Flags().Int("max-iterations", 0, "iteration cap for refined-optimizer")
	cmd.Flags().Float64("tolerance", 0, "convergence tolerance for refined-optimizer")
	cmd.Flags().Float64("height", 0, "vertical offset between anchors and devices in metres")
	cmd.Flags().Float64("signal-floor", 0, "lowest expected signal in dBm (0 disables)")
}

func addGridFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 0, "parallel calibration workers")
	cmd.Flags().Float64("unreliable-threshold", 0, "exclusion rate above which a cell is unreliable")
	cmd.Flags().Float64("rho0-min", 0, "lowest rho0 in the sweep")
	cmd.Flags().Float64("rho0-max", 0, "highest rho0 in the sweep")
	cmd.Flags().Float64("rho0-step", 0, "rho0 step")
	cmd.Flags().Float64("alpha-min", 0, "lowest alpha in the sweep")
	cmd.Flags().Float64("alpha-max", 0, "highest alpha in the sweep")
	cmd.Flags().Float64("alpha-step", 0, "alpha step")
}
