// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Algorithm identifies a position solver.
type Algorithm string

const (
	AlgGridNearest      Algorithm = "grid-nearest"
	AlgGridChebyshev    Algorithm = "grid-chebyshev"
	AlgRefinedOptimizer Algorithm = "refined-optimizer"
)

// Algorithms lists the solvers in evaluation order.
var Algorithms = []Algorithm{AlgGridNearest, AlgGridChebyshev, AlgRefinedOptimizer}

// Provenance records how an estimate was produced.
type Provenance struct {
	// Candidates is the number of grid candidates scored.
	Candidates int `json:"candidates" yaml:"candidates"`

	// Iterations is the number of optimizer iterations (refined optimizer only).
	Iterations int `json:"iterations,omitempty" yaml:"iterations,omitempty"`

	// Status is the optimizer termination status (refined optimizer only).
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// Fallback is set when the optimizer stopped without converging and the
	// best iterate seen so far was returned.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	// Degenerate is set when the estimate coincides with a heard anchor and
	// the distance floor was applied.
	Degenerate bool `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
}

// PositionEstimate is a solver output. It is never modified after creation.
type PositionEstimate struct {
	MeasurementID string       `json:"measurement_id" yaml:"measurement_id"`
	Algorithm     Algorithm    `json:"algorithm" yaml:"algorithm"`
	Params        ParameterSet `json:"params" yaml:"params"`
	Position      Point        `json:"position" yaml:"position"`

	// Objective is the solver's mismatch value at Position: the L2 or L∞
	// residual norm for grid solvers, the sum of squared residuals for the
	// refined optimizer.
	Objective  float64    `json:"objective" yaml:"objective"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// ErrorRecord is one evaluated (measurement, algorithm, parameters) triple.
// A new parameter combination yields new records; records are never
// re-estimated in place.
type ErrorRecord struct {
	MeasurementID string          `json:"measurement_id" yaml:"measurement_id"`
	Algorithm     Algorithm       `json:"algorithm" yaml:"algorithm"`
	Params        ModelParameters `json:"params" yaml:"params"`
	Estimate      Point           `json:"estimate" yaml:"estimate"`
	Truth         Point           `json:"truth" yaml:"truth"`
	Error         float64         `json:"error" yaml:"error"`
}

// SurfaceCell is the evaluation summary for one parameter combination.
type SurfaceCell struct {
	Params ModelParameters `json:"params" yaml:"params"`

	// MeanError is the mean Euclidean positioning error over the
	// measurements that were solved. Zero when Samples is zero.
	MeanError   float64 `json:"mean_error" yaml:"mean_error"`
	MedianError float64 `json:"median_error" yaml:"median_error"`
	P90Error    float64 `json:"p90_error" yaml:"p90_error"`

	// Samples is the number of measurements that contributed to MeanError.
	Samples int `json:"samples" yaml:"samples"`

	// Excluded counts measurements the solver could not estimate.
	Excluded int `json:"excluded" yaml:"excluded"`

	// Fallbacks counts estimates returned without optimizer convergence.
	Fallbacks int `json:"fallbacks" yaml:"fallbacks"`

	// Degenerate counts estimates where the distance floor was applied.
	Degenerate int `json:"degenerate" yaml:"degenerate"`

	// Unreliable is set when the exclusion rate exceeds the configured threshold.
	Unreliable bool `json:"unreliable" yaml:"unreliable"`
}

// ExclusionRate returns Excluded as a fraction of all measurements.
func (c SurfaceCell) ExclusionRate() float64 {
	total := c.Samples + c.Excluded
	if total == 0 {
		return 0
	}
	return float64(c.Excluded) / float64(total)
}

// ParameterSurface is the mean-error response over a parameter grid for
// one algorithm. Cells are ordered by rho0, then alpha.
type ParameterSurface struct {
	Algorithm Algorithm     `json:"algorithm" yaml:"algorithm"`
	Grid      ParamGrid     `json:"grid" yaml:"grid"`
	Cells     []SurfaceCell `json:"cells" yaml:"cells"`
}

// BestParameters is the selected combination for one algorithm.
type BestParameters struct {
	Algorithm  Algorithm       `json:"algorithm" yaml:"algorithm"`
	Params     ModelParameters `json:"params" yaml:"params"`
	MeanError  float64         `json:"mean_error" yaml:"mean_error"`
	Samples    int             `json:"samples" yaml:"samples"`
	Unreliable bool            `json:"unreliable" yaml:"unreliable"`
}
