// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
)

// Configuration bounds for the calibration sweep. Solvers accept any
// finite parameters; only the sweep grid is held to these bounds.
const (
	MinRho0  = 40.0
	MaxRho0  = 80.0
	MinAlpha = 1.0
	MaxAlpha = 7.0
)

// ModelParameters is one log-distance path-loss parameter pair.
type ModelParameters struct {
	// Rho0 is the path loss at the 1 m reference distance, in dB.
	Rho0 float64 `json:"rho0" yaml:"rho0"`

	// Alpha is the dimensionless path-loss exponent.
	Alpha float64 `json:"alpha" yaml:"alpha"`
}

// Finite reports whether both parameters are finite numbers.
func (p ModelParameters) Finite() bool {
	return !math.IsNaN(p.Rho0) && !math.IsInf(p.Rho0, 0) &&
		!math.IsNaN(p.Alpha) && !math.IsInf(p.Alpha, 0)
}

func (p ModelParameters) String() string {
	return fmt.Sprintf("rho0=%g alpha=%g", p.Rho0, p.Alpha)
}

// ParameterSet is the parameter assignment a solver uses: one global pair,
// optionally overridden per anchor.
type ParameterSet struct {
	Global    ModelParameters            `json:"global" yaml:"global"`
	PerAnchor map[string]ModelParameters `json:"per_anchor,omitempty" yaml:"per_anchor,omitempty"`
}

// GlobalParameters returns a ParameterSet with a single global pair.
func GlobalParameters(rho0, alpha float64) ParameterSet {
	return ParameterSet{Global: ModelParameters{Rho0: rho0, Alpha: alpha}}
}

// For returns the parameters that apply to the given anchor.
func (s ParameterSet) For(anchorID string) ModelParameters {
	if p, ok := s.PerAnchor[anchorID]; ok {
		return p
	}
	return s.Global
}

// Finite reports whether the global pair and every override are finite.
func (s ParameterSet) Finite() bool {
	if !s.Global.Finite() {
		return false
	}
	for _, p := range s.PerAnchor {
		if !p.Finite() {
			return false
		}
	}
	return true
}

// Range is an inclusive arithmetic sequence Min, Min+Step, ..., <= Max.
type Range struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
}

// Values expands the range. Values are rounded to 1e-9 so that steps such
// as 0.1 produce the same numbers as their decimal literals.
func (r Range) Values() []float64 {
	if r.Step <= 0 || r.Max < r.Min {
		return nil
	}
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.Round((r.Min+float64(i)*r.Step)*1e9) / 1e9
	}
	return vals
}

// ParamGrid is the Cartesian product swept by the calibrator.
type ParamGrid struct {
	Rho0  Range `json:"rho0" yaml:"rho0"`
	Alpha Range `json:"alpha" yaml:"alpha"`
}

// Validate checks that both ranges are well formed and inside the
// configured bounds.
func (g ParamGrid) Validate() error {
	if err := checkRange("rho0", g.Rho0, MinRho0, MaxRho0); err != nil {
		return err
	}
	return checkRange("alpha", g.Alpha, MinAlpha, MaxAlpha)
}

func checkRange(name string, r Range, lo, hi float64) error {
	for _, v := range []float64{r.Min, r.Max, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s range has non-finite value", name)
		}
	}
	if r.Step <= 0 {
		return fmt.Errorf("%s step must be > 0, got %g", name, r.Step)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s range is empty: min %g > max %g", name, r.Min, r.Max)
	}
	if r.Min < lo || r.Max > hi {
		return fmt.Errorf("%s range [%g, %g] outside bounds [%g, %g]", name, r.Min, r.Max, lo, hi)
	}
	return nil
}

// Combinations returns every (rho0, alpha) pair ordered by rho0, then alpha.
func (g ParamGrid) Combinations() []ModelParameters {
	rhos := g.Rho0.Values()
	alphas := g.Alpha.Values()
	out := make([]ModelParameters, 0, len(rhos)*len(alphas))
	for _, r := range rhos {
		for _, a := range alphas {
			out = append(out, ModelParameters{Rho0: r, Alpha: a})
		}
	}
	return out
}
