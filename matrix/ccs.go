// SPDX-License-Identifier: MIT
// Package: matrix
//
// Compressed column storage (CCS) and the BlockMatrix → CCS conversion that
// feeds the sparse factorizations in package linsolve.

package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// Triangle selects which part of a block matrix ToCCS emits.
type Triangle int

const (
	// Full emits every stored scalar.
	Full Triangle = iota
	// Upper emits blocks with r ≤ c and, inside diagonal blocks, only entries i ≤ j.
	// The result is the upper triangle of a symmetric matrix in scalar terms.
	Upper
)

// CCS is an N×M matrix in compressed column form.
// Column j owns RowInd[ColPtr[j]:ColPtr[j+1]] and the matching Values.
type CCS struct {
	N, M   int
	ColPtr []int
	RowInd []int
	Values []float64
}

// NNZ returns the number of stored entries.
func (s *CCS) NNZ() int { return len(s.RowInd) }

// Validate checks the structural invariants: len(ColPtr) = M+1, ColPtr[0] = 0,
// non-decreasing column pointers, strictly ascending in-range rows per column.
func (s *CCS) Validate() error {
	if len(s.ColPtr) != s.M+1 || s.ColPtr[0] != 0 {
		return matrixErrorf("CCS.Validate", s.N, s.M, ErrBadCCS)
	}
	if s.ColPtr[s.M] != len(s.RowInd) || len(s.RowInd) != len(s.Values) {
		return matrixErrorf("CCS.Validate", s.ColPtr[s.M], len(s.RowInd), ErrBadCCS)
	}
	for j := 0; j < s.M; j++ {
		if s.ColPtr[j+1] < s.ColPtr[j] {
			return matrixErrorf("CCS.Validate", -1, j, ErrBadCCS)
		}
		prev := -1
		for p := s.ColPtr[j]; p < s.ColPtr[j+1]; p++ {
			i := s.RowInd[p]
			if i <= prev || i >= s.N {
				return matrixErrorf("CCS.Validate", i, j, ErrBadCCS)
			}
			prev = i
		}
	}

	return nil
}

// MulVec computes dst = S·x for the stored entries.
func (s *CCS) MulVec(dst, x []float64) error {
	if len(x) != s.M || len(dst) != s.N {
		return matrixErrorf("CCS.MulVec", len(dst), len(x), ErrDimensionMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < s.M; j++ {
		xj := x[j]
		for p := s.ColPtr[j]; p < s.ColPtr[j+1]; p++ {
			dst[s.RowInd[p]] += s.Values[p] * xj
		}
	}

	return nil
}

// Dense expands the stored entries.
func (s *CCS) Dense() *mat.Dense {
	out := mat.NewDense(s.N, s.M, nil)
	for j := 0; j < s.M; j++ {
		for p := s.ColPtr[j]; p < s.ColPtr[j+1]; p++ {
			out.Set(s.RowInd[p], j, s.Values[p])
		}
	}

	return out
}

// ToCCS converts the block matrix into a fresh CCS.
//
// Errors: ErrNonSquare when tri is Upper and the block layout is not square.
// Complexity: O(NonZeros()).
func (m *BlockMatrix) ToCCS(tri Triangle) (*CCS, error) {
	out := &CCS{}
	if _, err := m.FillCCS(out, tri); err != nil {
		return nil, err
	}

	return out, nil
}

// FillCCS writes the block matrix into dst. When dst already holds the same
// sparsity pattern only Values are rewritten and changed is false; otherwise the
// structure is rebuilt and changed is true.
func (m *BlockMatrix) FillCCS(dst *CCS, tri Triangle) (changed bool, err error) {
	if tri == Upper && !m.SquareLayout() {
		return false, ErrNonSquare
	}

	if dst.N == m.Rows() && dst.M == m.Cols() && len(dst.ColPtr) == dst.M+1 && m.refill(dst, tri) {
		return false, nil
	}
	m.rebuild(dst, tri)

	return true, nil
}

// emit walks the scalars selected by tri in column-major, row-ascending order.
func (m *BlockMatrix) emit(tri Triangle, colDone func(j int), fn func(i int, v float64) bool) bool {
	for c, col := range m.cols {
		col.mu.Lock()
		entries := append([]*blockEntry(nil), col.entries...)
		col.mu.Unlock()

		c0, w := m.ColBaseOfBlock(c), m.ColsOfBlock(c)
		for j := 0; j < w; j++ {
			for _, e := range entries {
				if tri == Upper && e.row > c {
					break
				}
				r0, h := m.RowBaseOfBlock(e.row), m.RowsOfBlock(e.row)
				if tri == Upper && e.row == c {
					h = j + 1
				}
				for i := 0; i < h; i++ {
					if !fn(r0+i, e.m.At(i, j)) {
						return false
					}
				}
			}
			colDone(c0 + j)
		}
	}

	return true
}

func (m *BlockMatrix) rebuild(dst *CCS, tri Triangle) {
	dst.N, dst.M = m.Rows(), m.Cols()
	dst.ColPtr = make([]int, dst.M+1)
	dst.RowInd = dst.RowInd[:0]
	dst.Values = dst.Values[:0]
	m.emit(tri,
		func(j int) { dst.ColPtr[j+1] = len(dst.RowInd) },
		func(i int, v float64) bool {
			dst.RowInd = append(dst.RowInd, i)
			dst.Values = append(dst.Values, v)
			return true
		})
}

// refill rewrites values in place; it reports false on the first pattern difference.
func (m *BlockMatrix) refill(dst *CCS, tri Triangle) bool {
	p := 0
	mismatch := false
	ok := m.emit(tri,
		func(j int) {
			if dst.ColPtr[j+1] != p {
				mismatch = true
			}
		},
		func(i int, v float64) bool {
			if mismatch || p >= len(dst.RowInd) || dst.RowInd[p] != i {
				return false
			}
			dst.Values[p] = v
			p++
			return true
		})

	return ok && !mismatch && p == len(dst.RowInd)
}
