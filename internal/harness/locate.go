// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/beaconloc/internal/solver"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// LocateOutput holds the estimates of a Locate run and the measurements
// that could not be estimated.
type LocateOutput struct {
	Estimates []types.PositionEstimate `json:"estimates" yaml:"estimates"`
	Failed    map[string]string        `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Locate estimates a position for every measurement with fixed parameters.
// Ground truth is not required. Measurements with too few readings are
// reported in Failed; non-finite parameters abort.
func Locate(anchors []types.Anchor, ms []types.Measurement, alg types.Algorithm, ps types.ParameterSet, cfg types.PipelineConfig, log *logrus.Logger) (*LocateOutput, error) {
	layout, err := solver.NewLayout(anchors, solver.LayoutOptions{
		Geometry: cfg.Geometry,
		Model:    cfg.Model,
		Solver:   cfg.Solver,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("building layout: %w", err)
	}
	s, err := solver.New(alg, cfg.Solver)
	if err != nil {
		return nil, err
	}

	out := &LocateOutput{Failed: make(map[string]string)}
	for _, m := range ms {
		est, err := s.Solve(layout, m, ps)
		if errors.Is(err, solver.ErrInsufficientSignal) {
			out.Failed[m.ID] = err.Error()
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Estimates = append(out.Estimates, est)
	}
	return out, nil
}
