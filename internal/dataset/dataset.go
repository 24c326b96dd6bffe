// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset loads and validates the anchor and measurement tables
// consumed by the solvers and the calibrator, and synthesizes noiseless or
// noisy measurement sets from known model parameters.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// ErrInvalidDataset is wrapped by every validation failure.
var ErrInvalidDataset = errors.New("invalid dataset")

// LoadFile reads a dataset from a YAML or JSON file.
func LoadFile(path string) (*types.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	var ds types.Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", filepath.Base(path), err)
	}
	return &ds, nil
}

// WriteFile saves a dataset as YAML.
func WriteFile(path string, ds *types.Dataset) error {
	data, err := yaml.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshaling dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dataset directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the dataset invariants: a non-empty anchor set with
// unique ids and finite coordinates, unique measurement ids, at least one
// finite reading from a known anchor per measurement and, when
// requireTruth is set, a finite ground truth on every measurement.
func Validate(ds *types.Dataset, requireTruth bool) error {
	if ds == nil || len(ds.Anchors) == 0 {
		return fmt.Errorf("%w: no anchors", ErrInvalidDataset)
	}
	known := make(map[string]bool, len(ds.Anchors))
	for _, a := range ds.Anchors {
		if a.ID == "" {
			return fmt.Errorf("%w: anchor without id", ErrInvalidDataset)
		}
		if known[a.ID] {
			return fmt.Errorf("%w: duplicate anchor %s", ErrInvalidDataset, a.ID)
		}
		if !finite(a.X) || !finite(a.Y) {
			return fmt.Errorf("%w: anchor %s has non-finite coordinates", ErrInvalidDataset, a.ID)
		}
		known[a.ID] = true
	}

	seen := make(map[string]bool, len(ds.Measurements))
	var problems []string
	for i, m := range ds.Measurements {
		if m.ID == "" {
			problems = append(problems, fmt.Sprintf("measurement %d has no id", i))
			continue
		}
		if seen[m.ID] {
			problems = append(problems, fmt.Sprintf("duplicate measurement %s", m.ID))
		}
		seen[m.ID] = true

		usable := 0
		for id, v := range m.Signals {
			if known[id] && finite(v) {
				usable++
			}
		}
		if usable == 0 {
			problems = append(problems, fmt.Sprintf("measurement %s has no finite reading from a known anchor", m.ID))
		}
		if requireTruth {
			if m.Truth == nil {
				problems = append(problems, fmt.Sprintf("measurement %s has no ground truth", m.ID))
			} else if !finite(m.Truth.X) || !finite(m.Truth.Y) {
				problems = append(problems, fmt.Sprintf("measurement %s has non-finite ground truth", m.ID))
			}
		}
	}
	if len(problems) > 0 {
		const show = 5
		msg := strings.Join(problems[:min(show, len(problems))], "; ")
		if len(problems) > show {
			msg += fmt.Sprintf("; and %d more", len(problems)-show)
		}
		return fmt.Errorf("%w: %s", ErrInvalidDataset, msg)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
