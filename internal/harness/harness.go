// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harness runs the parameter calibration once per solver and
// assembles the error, surface and best-parameter tables consumed by
// downstream statistical reporting.
package harness

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/beaconloc/internal/calibrate"
	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/internal/solver"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// SurfaceRow is one row of the ParameterSurface table.
type SurfaceRow struct {
	Algorithm   types.Algorithm `json:"algorithm" yaml:"algorithm"`
	Rho0        float64         `json:"rho0" yaml:"rho0"`
	Alpha       float64         `json:"alpha" yaml:"alpha"`
	MeanError   float64         `json:"mean_error" yaml:"mean_error"`
	MedianError float64         `json:"median_error" yaml:"median_error"`
	P90Error    float64         `json:"p90_error" yaml:"p90_error"`
	Samples     int             `json:"samples" yaml:"samples"`
	Excluded    int             `json:"excluded" yaml:"excluded"`
	Fallbacks   int             `json:"fallbacks" yaml:"fallbacks"`
	Degenerate  int             `json:"degenerate" yaml:"degenerate"`
	Unreliable  bool            `json:"unreliable" yaml:"unreliable"`
}

// Report is the exchange format handed to the reporting layer.
type Report struct {
	CreatedAt    time.Time              `json:"created_at" yaml:"created_at"`
	Config       types.PipelineConfig   `json:"config" yaml:"config"`
	Anchors      int                    `json:"anchors" yaml:"anchors"`
	Measurements int                    `json:"measurements" yaml:"measurements"`
	Records      []types.ErrorRecord    `json:"records" yaml:"records"`
	Surfaces     []SurfaceRow           `json:"surfaces" yaml:"surfaces"`
	Best         []types.BestParameters `json:"best" yaml:"best"`
}

// Evaluate validates the dataset, builds the shared layout, and sweeps the
// calibration grid once for each algorithm in algs (all three when empty).
// Progress lines are written to w.
func Evaluate(ctx context.Context, ds *types.Dataset, cfg types.PipelineConfig, algs []types.Algorithm, log *logrus.Logger, w io.Writer) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := dataset.Validate(ds, true); err != nil {
		return nil, err
	}
	if len(algs) == 0 {
		algs = types.Algorithms
	}

	layout, err := solver.NewLayout(ds.Anchors, solver.LayoutOptions{
		Geometry: cfg.Geometry,
		Model:    cfg.Model,
		Solver:   cfg.Solver,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("building layout: %w", err)
	}

	combos := len(cfg.Calibration.Grid.Combinations())
	fmt.Fprintf(w, "layout: %s\n", layout)
	fmt.Fprintf(w, "sweeping %d combinations over %d measurements with %d workers\n",
		combos, len(ds.Measurements), cfg.Calibration.Workers)

	report := &Report{
		CreatedAt:    time.Now().UTC(),
		Config:       cfg,
		Anchors:      len(ds.Anchors),
		Measurements: len(ds.Measurements),
	}
	opts := calibrate.OptionsFrom(cfg.Calibration, log)

	for _, alg := range algs {
		s, err := solver.New(alg, cfg.Solver)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		res, err := calibrate.Sweep(ctx, s, layout, ds.Measurements, cfg.Calibration.Grid, opts)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "%-18s best %s mean error %.3f m (%s)\n",
			alg, res.Best.Params, res.Best.MeanError, time.Since(start).Round(time.Millisecond))

		report.Records = append(report.Records, res.Records...)
		report.Surfaces = append(report.Surfaces, SurfaceRows(res.Surface)...)
		report.Best = append(report.Best, res.Best)
	}

	return report, nil
}

// SurfaceRows flattens a ParameterSurface into table rows.
func SurfaceRows(s types.ParameterSurface) []SurfaceRow {
	rows := make([]SurfaceRow, len(s.Cells))
	for i, c := range s.Cells {
		rows[i] = SurfaceRow{
			Algorithm:   s.Algorithm,
			Rho0:        c.Params.Rho0,
			Alpha:       c.Params.Alpha,
			MeanError:   c.MeanError,
			MedianError: c.MedianError,
			P90Error:    c.P90Error,
			Samples:     c.Samples,
			Excluded:    c.Excluded,
			Fallbacks:   c.Fallbacks,
			Degenerate:  c.Degenerate,
			Unreliable:  c.Unreliable,
		}
	}
	return rows
}

// PointErrors returns per-measurement errors for one algorithm and
// parameter pair, in record order. This is the paired sample the
// reporting layer compares across algorithms.
func (r *Report) PointErrors(alg types.Algorithm, p types.ModelParameters) map[string]float64 {
	out := make(map[string]float64)
	for _, rec := range r.Records {
		if rec.Algorithm == alg && rec.Params == p {
			out[rec.MeasurementID] = rec.Error
		}
	}
	return out
}

// BestFor returns the selected parameters for alg.
func (r *Report) BestFor(alg types.Algorithm) (types.BestParameters, bool) {
	for _, b := range r.Best {
		if b.Algorithm == alg {
			return b, true
		}
	}
	return types.BestParameters{}, false
}
