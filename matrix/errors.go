// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// Every exported operation returns one of these sentinels (possibly wrapped
// with fmt.Errorf("ctx: %w", ErrX)); callers match them with errors.Is.

package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrBadShape is returned when block boundaries are empty, non-positive or not strictly increasing.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates a block (or scalar) index outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between operands,
	// e.g. a block of the wrong size, or a vector whose length differs from Cols().
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square (block) matrix was required.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrNotSPD signals a block that is not symmetric positive definite.
	ErrNotSPD = errors.New("matrix: block not positive definite")

	// ErrBadCCS signals a compressed-column structure violating its invariants.
	ErrBadCCS = errors.New("matrix: malformed CCS")
)

// matrixErrorf tags a sentinel with the operation and offending indices.
func matrixErrorf(op string, r, c int, err error) error {
	return fmt.Errorf("%s(%d,%d): %w", op, r, c, err)
}
