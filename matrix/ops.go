// SPDX-License-Identifier: MIT
// Package: matrix
//
// Block matrix–vector kernels. Each block product goes through gonum's
// VecDense over sub-slices of the caller's buffers, so no dense expansion happens.

package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// MultiplyVector computes dst = M·x.
//
// Errors: ErrDimensionMismatch when len(x) != Cols() or len(dst) != Rows().
// Complexity: O(NonZeros()).
func (m *BlockMatrix) MultiplyVector(dst, x []float64) error {
	if len(x) != m.Cols() || len(dst) != m.Rows() {
		return matrixErrorf("MultiplyVector", len(dst), len(x), ErrDimensionMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	var tmp mat.VecDense
	m.ForEach(func(r, c int, b *mat.Dense) {
		addBlockProduct(&tmp, dst, x, m.RowBaseOfBlock(r), m.ColBaseOfBlock(c), b, false)
	})

	return nil
}

// MultiplySymmetricUpper computes dst = A·x where A is symmetric and M stores
// its upper block triangle (diagonal blocks in full). Blocks below the
// diagonal are ignored.
//
// Errors: ErrNonSquare, ErrDimensionMismatch.
func (m *BlockMatrix) MultiplySymmetricUpper(dst, x []float64) error {
	if !m.SquareLayout() {
		return ErrNonSquare
	}
	if len(x) != m.Cols() || len(dst) != m.Rows() {
		return matrixErrorf("MultiplySymmetricUpper", len(dst), len(x), ErrDimensionMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	var tmp mat.VecDense
	m.ForEach(func(r, c int, b *mat.Dense) {
		if r > c {
			return
		}
		r0, c0 := m.RowBaseOfBlock(r), m.ColBaseOfBlock(c)
		addBlockProduct(&tmp, dst, x, r0, c0, b, false)
		if r != c {
			addBlockProduct(&tmp, dst, x, c0, r0, b, true)
		}
	})

	return nil
}

// MultiplyTransposeVector computes dst = Mᵀ·x.
func (m *BlockMatrix) MultiplyTransposeVector(dst, x []float64) error {
	if len(x) != m.Rows() || len(dst) != m.Cols() {
		return matrixErrorf("MultiplyTransposeVector", len(dst), len(x), ErrDimensionMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	var tmp mat.VecDense
	m.ForEach(func(r, c int, b *mat.Dense) {
		addBlockProduct(&tmp, dst, x, m.ColBaseOfBlock(c), m.RowBaseOfBlock(r), b, true)
	})

	return nil
}

// addBlockProduct adds op(b)·x[xBase:] into dst[dstBase:], where op is the
// identity or the transpose. tmp is reused scratch.
func addBlockProduct(tmp *mat.VecDense, dst, x []float64, dstBase, xBase int, b *mat.Dense, transpose bool) {
	var op mat.Matrix = b
	if transpose {
		op = b.T()
	}
	rows, cols := op.Dims()
	xv := mat.NewVecDense(cols, x[xBase:xBase+cols])
	tmp.Reset()
	tmp.MulVec(op, xv)
	for i := 0; i < rows; i++ {
		dst[dstBase+i] += tmp.AtVec(i)
	}
}
