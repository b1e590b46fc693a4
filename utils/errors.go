package utils

import "errors"

var (
	// ErrConfiguration marks a fatal setup error: wrong dimension count,
	// unsupported solver options, missing coefficients or hierarchy.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvariantViolation marks boundary coefficients or field state that
	// break a discretization invariant. It indicates a programming error.
	ErrInvariantViolation = errors.New("invariant violation")
)
