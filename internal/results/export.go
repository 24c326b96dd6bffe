// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/beaconloc/internal/harness"
	"github.com/pdiddy/beaconloc/pkg/types"
)

// Export is the on-disk form of one run.
type Export struct {
	RunID   int64                  `json:"run_id" yaml:"run_id"`
	Config  types.PipelineConfig   `json:"config" yaml:"config"`
	Best    []types.BestParameters `json:"best" yaml:"best"`
	Surface []harness.SurfaceRow   `json:"surface" yaml:"surface"`
	Records []types.ErrorRecord    `json:"records" yaml:"records"`
}

// ExportYAML writes run-<id>.yaml into dir and returns its path. When dir
// is empty the results directory is used.
func (s *Store) ExportYAML(ctx context.Context, runID int64, dir string) (string, error) {
	e, err := s.Load(ctx, runID)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.write(dir, fmt.Sprintf("run-%d.yaml", runID), data)
}

// ExportJSON writes run-<id>.json into dir and returns its path. When dir
// is empty the results directory is used.
func (s *Store) ExportJSON(ctx context.Context, runID int64, dir string) (string, error) {
	e, err := s.Load(ctx, runID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.write(dir, fmt.Sprintf("run-%d.json", runID), data)
}

// Load reads every table of a run.
func (s *Store) Load(ctx context.Context, runID int64) (*Export, error) {
	cfg, err := s.Config(ctx, runID)
	if err != nil {
		return nil, err
	}
	best, err := s.Best(ctx, runID)
	if err != nil {
		return nil, err
	}
	surface, err := s.Surface(ctx, runID, "")
	if err != nil {
		return nil, err
	}
	records, err := s.ErrorRecords(ctx, runID, "")
	if err != nil {
		return nil, err
	}
	return &Export{RunID: runID, Config: cfg, Best: best, Surface: surface, Records: records}, nil
}

func (s *Store) write(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = s.dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
