// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package calibrate sweeps the propagation model's parameter grid, runs a
// solver over a ground-truth dataset for every combination on a fixed-size
// worker pool, and selects the combination with the lowest mean
// positioning error.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/internal/solver"
	"github.com/pdiddy/beaconloc/pkg/types"
)

var (
	// ErrInvalidGrid is returned when the sweep grid is malformed or out of bounds.
	ErrInvalidGrid = errors.New("invalid parameter grid")

	// ErrEmptyDataset is returned when there are no measurements to evaluate.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrNoGroundTruth is returned when a measurement lacks a ground truth.
	ErrNoGroundTruth = errors.New("measurement has no ground truth")
)

// Options configures a sweep.
type Options struct {
	// Workers bounds the pool size. Zero means runtime.NumCPU().
	Workers int

	// BlockSize is the number of combinations per unit of work. Zero means 1.
	BlockSize int

	// UnreliableThreshold is the exclusion rate above which a cell is
	// flagged unreliable.
	UnreliableThreshold float64

	// KeepRecords retains the per-measurement ErrorRecords of every cell.
	KeepRecords bool

	// Logger receives diagnostic events. Nil discards them.
	Logger *logrus.Logger
}

// OptionsFrom maps the calibration config section to Options.
func OptionsFrom(cfg types.CalibrationConfig, log *logrus.Logger) Options {
	return Options{
		Workers:             cfg.Workers,
		BlockSize:           cfg.BlockSize,
		UnreliableThreshold: cfg.UnreliableThreshold,
		KeepRecords:         cfg.KeepRecords,
		Logger:              log,
	}
}

// Result is the outcome of a completed sweep.
type Result struct {
	Surface types.ParameterSurface
	Best    types.BestParameters

	// Records holds ErrorRecords in cell order, then dataset order.
	// Empty unless Options.KeepRecords is set.
	Records []types.ErrorRecord
}

// cellResult is what one unit returns for one combination.
type cellResult struct {
	cell    types.SurfaceCell
	records []types.ErrorRecord
}

// Sweep evaluates s over data for every combination of grid, in parallel,
// and blocks until the whole grid is covered. Per-measurement solver
// failures are excluded from that cell's mean and counted. Configuration
// errors (bad grid, empty or unlabelled dataset, non-finite parameters)
// abort the sweep. If ctx is cancelled no further units are dispatched,
// in-flight units finish, and the partial surface is discarded.
func Sweep(ctx context.Context, s solver.Solver, layout *solver.Layout, data []types.Measurement, grid types.ParamGrid, opts Options) (*Result, error) {
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}
	for _, m := range data {
		if m.Truth == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoGroundTruth, m.ID)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	block := opts.BlockSize
	if block <= 0 {
		block = 1
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	combos := grid.Combinations()
	results := make([]cellResult, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

dispatch:
	for start := 0; start < len(combos); start += block {
		select {
		case <-gctx.Done():
			break dispatch
		default:
		}

		end := min(start+block, len(combos))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				res, err := evaluate(s, layout, data, combos[i], opts)
				if err != nil {
					return err
				}
				results[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweeping %s: %w", s.Algorithm(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweeping %s: %w", s.Algorithm(), err)
	}

	out := &Result{
		Surface: types.ParameterSurface{
			Algorithm: s.Algorithm(),
			Grid:      grid,
			Cells:     make([]types.SurfaceCell, len(combos)),
		},
	}
	unreliable := 0
	for i, r := range results {
		out.Surface.Cells[i] = r.cell
		out.Records = append(out.Records, r.records...)
		if r.cell.Unreliable {
			unreliable++
		}
	}
	if unreliable > 0 {
		log.WithFields(logrus.Fields{
			"algorithm": s.Algorithm(),
			"cells":     unreliable,
		}).Warn("parameter combinations flagged unreliable")
	}

	out.Best, _ = SelectBest(out.Surface)
	return out, nil
}

// evaluate runs the solver over every measurement for one combination.
// It shares nothing mutable with other units.
func evaluate(s solver.Solver, layout *solver.Layout, data []types.Measurement, p types.ModelParameters, opts Options) (cellResult, error) {
	ps := types.ParameterSet{Global: p}
	errs := make([]float64, 0, len(data))
	cell := types.SurfaceCell{Params: p}
	var records []types.ErrorRecord
	if opts.KeepRecords {
		records = make([]types.ErrorRecord, 0, len(data))
	}

	for _, m := range data {
		est, err := s.Solve(layout, m, ps)
		if err != nil {
			if errors.Is(err, solver.ErrInsufficientSignal) {
				cell.Excluded++
				continue
			}
			return cellResult{}, err
		}
		if est.Provenance.Fallback {
			cell.Fallbacks++
		}
		if est.Provenance.Degenerate {
			cell.Degenerate++
		}
		e := geometry.Distance(est.Position, *m.Truth)
		errs = append(errs, e)
		if opts.KeepRecords {
			records = append(records, types.ErrorRecord{
				MeasurementID: m.ID,
				Algorithm:     s.Algorithm(),
				Params:        p,
				Estimate:      est.Position,
				Truth:         *m.Truth,
				Error:         e,
			})
		}
	}

	cell.Samples = len(errs)
	if cell.Samples > 0 {
		cell.MeanError = stat.Mean(errs, nil)
		sorted := append([]float64(nil), errs...)
		sort.Float64s(sorted)
		cell.MedianError = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		cell.P90Error = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	}
	cell.Unreliable = cell.Samples == 0 || cell.ExclusionRate() > opts.UnreliableThreshold
	return cellResult{cell: cell, records: records}, nil
}

// SelectBest returns the cell with the lowest mean error. Reliable cells
// are preferred; unreliable cells with samples are considered only when no
// reliable cell exists. Ties go to the lowest rho0, then the lowest alpha,
// which is the surface's cell order. When no cell has samples the first
// cell is returned with Samples 0 and Unreliable set. ok is false only for
// a surface without cells.
func SelectBest(surface types.ParameterSurface) (types.BestParameters, bool) {
	if len(surface.Cells) == 0 {
		return types.BestParameters{}, false
	}

	pick := func(allowUnreliable bool) (types.SurfaceCell, bool) {
		var best types.SurfaceCell
		found := false
		for _, c := range surface.Cells {
			if c.Samples == 0 || (c.Unreliable && !allowUnreliable) {
				continue
			}
			if !found || c.MeanError < best.MeanError {
				best, found = c, true
			}
		}
		return best, found
	}

	c, ok := pick(false)
	if !ok {
		c, ok = pick(true)
	}
	if !ok {
		c = surface.Cells[0]
		c.Unreliable = true
	}
	return types.BestParameters{
		Algorithm:  surface.Algorithm,
		Params:     c.Params,
		MeanError:  c.MeanError,
		Samples:    c.Samples,
		Unreliable: c.Unreliable,
	}, true
}
