// Package domain holds the error taxonomy shared by the analytics packages.
//
// Every failure surfaces as one of the sentinel errors below, wrapped with
// context via fmt.Errorf("...: %w", ...). Callers match with errors.Is.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSingularMatrix is returned when an operand matrix cannot be inverted:
	// a cashflow matrix, a covariance matrix, or the 2x2 separation matrix
	// with zero determinant.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrShapeMismatch is returned when vector or matrix dimensions disagree.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrMissingData is returned when a symbol's price source is absent,
	// malformed, or lacks a required column.
	ErrMissingData = errors.New("missing data")

	// ErrDomain is returned for mathematically invalid operations such as a
	// negative variance or a discount rate at or below -1.
	ErrDomain = errors.New("domain error")

	// ErrUnnormalizedWeights is returned when a weight vector does not sum to 1.
	ErrUnnormalizedWeights = errors.New("weights do not sum to 1")
)

// ShapeError describes a dimension mismatch. It unwraps to ErrShapeMismatch.
type ShapeError struct {
	Op   string
	Want string
	Got  string
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: want %s, got %s", e.Op, ErrShapeMismatch, e.Want, e.Got)
}

func (e ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// Shape builds a ShapeError from integer dimensions.
func Shape(op string, want, got int) error {
	return ShapeError{Op: op, Want: fmt.Sprint(want), Got: fmt.Sprint(got)}
}
