package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Loading errors
	ErrLoad          = errors.New("dataset load failed")
	ErrMissingColumn = errors.New("required column missing")
	ErrEmptyDataset  = errors.New("dataset has no data rows")

	// Modeling errors
	ErrNotConverged     = errors.New("optimizer did not converge")
	ErrNotNested        = errors.New("models are not strictly nested")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrUnknownVariable  = errors.New("variable not present in dataset")
)

// Error constructors with context

func NewLoadError(path string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrLoad, path, cause)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, column)
}

func NewConvergenceError(model string, cause error) error {
	return fmt.Errorf("%w: model %s: %v", ErrNotConverged, model, cause)
}

func NewNestingError(null, full string) error {
	return fmt.Errorf("%w: %s is not a strict subset of %s", ErrNotNested, null, full)
}

// Error checking helpers

func IsLoadError(err error) bool {
	return errors.Is(err, ErrLoad) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrEmptyDataset)
}

func IsConvergenceError(err error) bool {
	return errors.Is(err, ErrNotConverged)
}

func IsNestingError(err error) bool {
	return errors.Is(err, ErrNotNested)
}
