// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
	"runtime"
)

// Bounds is an axis-aligned survey rectangle.
type Bounds struct {
	Min Point `json:"min" yaml:"min"`
	Max Point `json:"max" yaml:"max"`
}

// GeometryConfig holds distance conventions shared by all solvers.
type GeometryConfig struct {
	// HeightOffset is the vertical separation between anchors and the
	// receiver, added in quadrature to the planar distance (default 0).
	HeightOffset float64 `json:"height_offset" yaml:"height_offset"`

	// Epsilon is the floor applied to distances before taking their
	// logarithm (default 1e-6 m).
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
}

// ModelConfig holds options of the propagation model.
type ModelConfig struct {
	// SignalFloor clips expected RSSI from below (e.g. -100 dBm).
	// Zero disables clipping (default).
	SignalFloor float64 `json:"signal_floor" yaml:"signal_floor"`
}

// SolverConfig holds settings for the position solvers.
type SolverConfig struct {
	// Resolution is the grid spacing in metres for the grid solvers and the
	// refined optimizer's warm start (default 0.5).
	Resolution float64 `json:"resolution" yaml:"resolution"`

	// Margin pads the anchor bounding box when Bounds is not set (default 0).
	Margin float64 `json:"margin" yaml:"margin"`

	// Bounds fixes the survey area. When nil the padded anchor bounding box is used.
	Bounds *Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`

	// K is the number of best Chebyshev candidates averaged (default 3).
	K int `json:"k" yaml:"k"`

	// Tolerance is the refined optimizer's convergence threshold on objective
	// change and gradient norm (default 1e-9).
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// MaxIterations caps refined optimizer iterations (default 200).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// CalibrationConfig holds settings for the parameter sweep.
type CalibrationConfig struct {
	Grid ParamGrid `json:"grid" yaml:"grid"`

	// Workers is the worker pool size (default runtime.NumCPU()).
	Workers int `json:"workers" yaml:"workers"`

	// BlockSize is the number of parameter combinations per unit of work (default 1).
	BlockSize int `json:"block_size" yaml:"block_size"`

	// UnreliableThreshold is the exclusion rate above which a combination is
	// flagged unreliable (default 0.2).
	UnreliableThreshold float64 `json:"unreliable_threshold" yaml:"unreliable_threshold"`

	// KeepRecords retains per-measurement ErrorRecords for every combination.
	KeepRecords bool `json:"keep_records" yaml:"keep_records"`
}

// StoreConfig holds settings for the results store.
type StoreConfig struct {
	// ResultsDir contains the results database and exports (default "results").
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// PipelineConfig groups all configuration sections.
type PipelineConfig struct {
	Geometry    GeometryConfig    `json:"geometry" yaml:"geometry"`
	Model       ModelConfig       `json:"model" yaml:"model"`
	Solver      SolverConfig      `json:"solver" yaml:"solver"`
	Calibration CalibrationConfig `json:"calibration" yaml:"calibration"`
	Store       StoreConfig       `json:"store" yaml:"store"`
	LogLevel    string            `json:"log_level" yaml:"log_level"`
}

// DefaultPipelineConfig returns the documented defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Geometry: GeometryConfig{Epsilon: 1e-6},
		Solver: SolverConfig{
			Resolution:    0.5,
			K:             3,
			Tolerance:     1e-9,
			MaxIterations: 200,
		},
		Calibration: CalibrationConfig{
			Grid: ParamGrid{
				Rho0:  Range{Min: MinRho0, Max: MaxRho0, Step: 1},
				Alpha: Range{Min: MinAlpha, Max: MaxAlpha, Step: 0.1},
			},
			Workers:             runtime.NumCPU(),
			BlockSize:           1,
			UnreliableThreshold: 0.2,
			KeepRecords:         true,
		},
		Store:    StoreConfig{ResultsDir: "results"},
		LogLevel: "info",
	}
}

// Validate checks every section for values the engine cannot run with.
func (c PipelineConfig) Validate() error {
	if c.Geometry.HeightOffset < 0 || !finite(c.Geometry.HeightOffset) {
		return fmt.Errorf("geometry.height_offset must be finite and >= 0")
	}
	if c.Geometry.Epsilon <= 0 {
		return fmt.Errorf("geometry.epsilon must be > 0")
	}
	if !finite(c.Model.SignalFloor) {
		return fmt.Errorf("model.signal_floor must be finite")
	}
	if c.Solver.Resolution <= 0 || !finite(c.Solver.Resolution) {
		return fmt.Errorf("solver.resolution must be > 0")
	}
	if c.Solver.Margin < 0 {
		return fmt.Errorf("solver.margin must be >= 0")
	}
	if b := c.Solver.Bounds; b != nil && (b.Max.X < b.Min.X || b.Max.Y < b.Min.Y) {
		return fmt.Errorf("solver.bounds max must not be below min")
	}
	if c.Solver.K < 1 {
		return fmt.Errorf("solver.k must be >= 1")
	}
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("solver.tolerance must be > 0")
	}
	if c.Solver.MaxIterations < 1 {
		return fmt.Errorf("solver.max_iterations must be >= 1")
	}
	if err := c.Calibration.Grid.Validate(); err != nil {
		return fmt.Errorf("calibration.grid: %w", err)
	}
	if c.Calibration.Workers < 1 {
		return fmt.Errorf("calibration.workers must be >= 1")
	}
	if c.Calibration.BlockSize < 1 {
		return fmt.Errorf("calibration.block_size must be >= 1")
	}
	if t := c.Calibration.UnreliableThreshold; t < 0 || t > 1 {
		return fmt.Errorf("calibration.unreliable_threshold must be in [0, 1]")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
