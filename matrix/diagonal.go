// SPDX-License-Identifier: MIT
// Package: matrix
//
// BlockDiagonal holds only the diagonal blocks of a square block layout.
// The Schur complement keeps the landmark Hessian and its inverse here.

package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// BlockDiagonal is a block-diagonal matrix; every block is allocated up front.
type BlockDiagonal struct {
	bi     []int
	blocks []*mat.Dense
}

// NewBlockDiagonal allocates zero diagonal blocks for the cumulative boundaries bi.
func NewBlockDiagonal(blockIndices []int) (*BlockDiagonal, error) {
	if err := validateBoundaries(blockIndices); err != nil {
		return nil, err
	}
	d := &BlockDiagonal{
		bi:     append([]int(nil), blockIndices...),
		blocks: make([]*mat.Dense, len(blockIndices)),
	}
	for i := range d.blocks {
		n := d.SizeOfBlock(i)
		d.blocks[i] = mat.NewDense(n, n, nil)
	}

	return d, nil
}

// Blocks returns the number of diagonal blocks.
func (d *BlockDiagonal) Blocks() int { return len(d.blocks) }

// Rows returns the scalar dimension.
func (d *BlockDiagonal) Rows() int { return d.bi[len(d.bi)-1] }

// BaseOfBlock returns the first scalar index of block i.
func (d *BlockDiagonal) BaseOfBlock(i int) int { return baseOf(d.bi, i) }

// SizeOfBlock returns the dimension of block i.
func (d *BlockDiagonal) SizeOfBlock(i int) int { return d.bi[i] - baseOf(d.bi, i) }

// Block returns diagonal block i.
func (d *BlockDiagonal) Block(i int) (*mat.Dense, error) {
	if i < 0 || i >= len(d.blocks) {
		return nil, matrixErrorf("BlockDiagonal.Block", i, i, ErrOutOfRange)
	}

	return d.blocks[i], nil
}

// SetZero zeroes every block.
func (d *BlockDiagonal) SetZero() {
	for _, b := range d.blocks {
		b.Zero()
	}
}

// InvertSymmetricInto writes the inverse of every (symmetric positive definite)
// block into dst, which must share the layout. It stops at the first block whose
// Cholesky factorization fails and returns its index wrapped in ErrNotSPD.
func (d *BlockDiagonal) InvertSymmetricInto(dst *BlockDiagonal) error {
	if len(dst.blocks) != len(d.blocks) {
		return ErrDimensionMismatch
	}
	var ch mat.Cholesky
	for i, b := range d.blocks {
		n := d.SizeOfBlock(i)
		if dst.SizeOfBlock(i) != n {
			return matrixErrorf("BlockDiagonal.InvertSymmetricInto", i, i, ErrDimensionMismatch)
		}
		sym := mat.NewSymDense(n, nil)
		for r := 0; r < n; r++ {
			for c := r; c < n; c++ {
				sym.SetSym(r, c, b.At(r, c))
			}
		}
		if ok := ch.Factorize(sym); !ok {
			return matrixErrorf("BlockDiagonal.InvertSymmetricInto", i, i, ErrNotSPD)
		}
		var inv mat.SymDense
		if err := ch.InverseTo(&inv); err != nil {
			return matrixErrorf("BlockDiagonal.InvertSymmetricInto", i, i, ErrNotSPD)
		}
		dst.blocks[i].Copy(&inv)
	}

	return nil
}

// MultiplyVector computes dst = D·x.
func (d *BlockDiagonal) MultiplyVector(dst, x []float64) error {
	if len(x) != d.Rows() || len(dst) != d.Rows() {
		return matrixErrorf("BlockDiagonal.MultiplyVector", len(dst), len(x), ErrDimensionMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	var tmp mat.VecDense
	for i, b := range d.blocks {
		base := d.BaseOfBlock(i)
		addBlockProduct(&tmp, dst, x, base, base, b, false)
	}

	return nil
}
