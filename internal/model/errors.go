package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline, registry, and streaming surfaces.
// Callers match them with errors.Is.
var (
	// ErrNotFitted is returned by transform operations before a successful fit.
	ErrNotFitted = errors.New("feature pipeline is not fitted")

	// ErrModelNotFound is returned for a registry lookup with an unknown name.
	ErrModelNotFound = errors.New("model not found")

	// ErrModelNotTrained is returned when a known model (or "ensemble") is
	// requested before any training has completed.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrInvalidThreshold is returned when an alert threshold outside [0,1]
	// is submitted. The prior threshold stays in effect.
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")
)

// DataError reports a dataset that cannot be fitted: a missing target
// column, too few rows, or a class distribution that cannot be split.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid training data: %s", e.Reason)
}

// NewDataError builds a DataError with a formatted reason.
func NewDataError(format string, args ...any) *DataError {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}

// IsDataError reports whether err is (or wraps) a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
