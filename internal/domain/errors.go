package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by the pipeline. Callers match them with errors.Is.
var (
	// ErrNoData is returned when a provider has nothing for the requested symbols and range
	ErrNoData = errors.New("no price data")
	// ErrInvalidInput covers malformed price tables and out-of-range parameters
	ErrInvalidInput = errors.New("invalid input")
	// ErrShapeMismatch is returned when vector, matrix or batch dimensions disagree
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDegenerateVariance is returned when a portfolio has zero volatility
	ErrDegenerateVariance = errors.New("degenerate variance")
	// ErrOptimizationFailed is returned when the solver does not converge
	ErrOptimizationFailed = errors.New("optimization failed")
)

// ShapeMismatchError describes which dimension disagreed
type ShapeMismatchError struct {
	What     string
	Expected int
	Got      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has %d entries, expected %d", e.What, e.Got, e.Expected)
}

// Is reports a match against ErrShapeMismatch
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// NewShapeMismatch builds a ShapeMismatchError
func NewShapeMismatch(what string, expected, got int) error {
	return &ShapeMismatchError{What: what, Expected: expected, Got: got}
}

// OptimizationFailedError carries the solver's terminal status and message
type OptimizationFailedError struct {
	Method  string
	Status  string
	Message string
}

func (e *OptimizationFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("optimization failed: %s ended with status %s", e.Method, e.Status)
	}
	return fmt.Sprintf("optimization failed: %s ended with status %s: %s", e.Method, e.Status, e.Message)
}

// Is reports a match against ErrOptimizationFailed
func (e *OptimizationFailedError) Is(target error) bool {
	return target == ErrOptimizationFailed
}
