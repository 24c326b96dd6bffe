// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientSignal means a measurement reports fewer than two usable
	// anchor readings. It is contained to that measurement.
	ErrInsufficientSignal = errors.New("insufficient signal")

	// ErrInvalidParameters means the model parameters are not finite. It is
	// a configuration error and is never retried.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// SolveError wraps a solver failure for a single measurement.
type SolveError struct {
	Kind          error
	MeasurementID string
	Msg           string
}

func (e *SolveError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("measurement %s: %s", e.MeasurementID, e.Kind.Error())
	}
	return fmt.Sprintf("measurement %s: %s: %s", e.MeasurementID, e.Kind.Error(), e.Msg)
}

func (e *SolveError) Unwrap() error { return e.Kind }

func insufficientf(id, format string, args ...any) error {
	return &SolveError{Kind: ErrInsufficientSignal, MeasurementID: id, Msg: fmt.Sprintf(format, args...)}
}

func invalidParams(id string) error {
	return &SolveError{Kind: ErrInvalidParameters, MeasurementID: id, Msg: "rho0 and alpha must be finite"}
}
