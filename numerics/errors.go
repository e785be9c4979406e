// Package numerics holds the numerical kernels shared by the model and the
// roll-back engines: bracketed root search, tridiagonal solves and cubic
// splines with exposed segment coefficients.
package numerics

import "errors"

var (
	// ErrRootNotFound is returned when a bracketed search cannot locate a root in its interval.
	ErrRootNotFound = errors.New("root not found")
	// ErrNumericalInstability is returned for non-finite coefficients or a vanishing pivot.
	ErrNumericalInstability = errors.New("numerical instability")
	// ErrDimensionMismatch is returned for inconsistent array lengths or a rank-deficient design.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidInput is returned for arguments outside their documented domain.
	ErrInvalidInput = errors.New("invalid input")
)
