package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientSnapshots is returned when fewer than two snapshots exist.
	ErrInsufficientSnapshots = errors.New("insufficient snapshots")
	// ErrInsufficientData is returned when calibration lacks causal samples.
	ErrInsufficientData = errors.New("insufficient calibration data")
	// ErrLockHeld is returned when another run holds the run lock.
	ErrLockHeld = errors.New("run lock held by another process")
	// ErrNotFound is returned by stores for a missing record.
	ErrNotFound = errors.New("not found")
)

// SchemaError reports input that violates the canonical snapshot schema.
type SchemaError struct {
	Source string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation in %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("schema violation in %s: field %q: %s", e.Source, e.Field, e.Reason)
}

// IsSchemaError reports whether err wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
