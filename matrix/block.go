// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - BlockMatrix: sparse matrix of dense gonum blocks on a fixed block grid.
//   - Block layout is given by cumulative boundaries: rowBlockIndices[i] is the
//     first row AFTER block i, so block i spans [rbi[i-1], rbi[i]).
//
// Storage:
//   - One blockColumn per block column, holding entries sorted by block row
//     (binary-search lookup, insertion keeps the order).
//   - Allocation inside a column is guarded by the column mutex; `+=` into an
//     existing block is guarded by the entry mutex, so concurrent writers to
//     different blocks never contend.

package matrix

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// BlockMatrix is a block-sparse matrix whose non-null blocks are *mat.Dense.
type BlockMatrix struct {
	rbi  []int
	cbi  []int
	cols []*blockColumn
}

type blockColumn struct {
	mu      sync.Mutex
	entries []*blockEntry // sorted by row
}

type blockEntry struct {
	mu  sync.Mutex
	row int
	m   *mat.Dense
}

// NewBlockMatrix creates an empty block matrix on the given block grid.
//
// Errors:
//   - ErrBadShape: empty boundaries, first boundary ≤ 0, or not strictly increasing.
//
// Complexity: O(#row blocks + #col blocks).
func NewBlockMatrix(rowBlockIndices, colBlockIndices []int) (*BlockMatrix, error) {
	if err := validateBoundaries(rowBlockIndices); err != nil {
		return nil, err
	}
	if err := validateBoundaries(colBlockIndices); err != nil {
		return nil, err
	}

	m := &BlockMatrix{
		rbi:  append([]int(nil), rowBlockIndices...),
		cbi:  append([]int(nil), colBlockIndices...),
		cols: make([]*blockColumn, len(colBlockIndices)),
	}
	for i := range m.cols {
		m.cols[i] = &blockColumn{}
	}

	return m, nil
}

func validateBoundaries(b []int) error {
	if len(b) == 0 {
		return ErrBadShape
	}
	prev := 0
	for i, v := range b {
		if v <= prev {
			return matrixErrorf("validateBoundaries", i, v, ErrBadShape)
		}
		prev = v
	}

	return nil
}

// Rows returns the scalar row count.
func (m *BlockMatrix) Rows() int { return m.rbi[len(m.rbi)-1] }

// Cols returns the scalar column count.
func (m *BlockMatrix) Cols() int { return m.cbi[len(m.cbi)-1] }

// RowBlocks returns the number of block rows.
func (m *BlockMatrix) RowBlocks() int { return len(m.rbi) }

// ColBlocks returns the number of block columns.
func (m *BlockMatrix) ColBlocks() int { return len(m.cbi) }

// RowBlockIndices returns a copy of the cumulative row boundaries.
func (m *BlockMatrix) RowBlockIndices() []int { return append([]int(nil), m.rbi...) }

// ColBlockIndices returns a copy of the cumulative column boundaries.
func (m *BlockMatrix) ColBlockIndices() []int { return append([]int(nil), m.cbi...) }

// RowBaseOfBlock returns the first scalar row of block row r.
func (m *BlockMatrix) RowBaseOfBlock(r int) int { return baseOf(m.rbi, r) }

// RowsOfBlock returns the height of block row r.
func (m *BlockMatrix) RowsOfBlock(r int) int { return m.rbi[r] - baseOf(m.rbi, r) }

// ColBaseOfBlock returns the first scalar column of block column c.
func (m *BlockMatrix) ColBaseOfBlock(c int) int { return baseOf(m.cbi, c) }

// ColsOfBlock returns the width of block column c.
func (m *BlockMatrix) ColsOfBlock(c int) int { return m.cbi[c] - baseOf(m.cbi, c) }

// SquareLayout reports whether row and column boundaries coincide.
func (m *BlockMatrix) SquareLayout() bool {
	if len(m.rbi) != len(m.cbi) {
		return false
	}
	for i := range m.rbi {
		if m.rbi[i] != m.cbi[i] {
			return false
		}
	}

	return true
}

func baseOf(b []int, i int) int {
	if i == 0 {
		return 0
	}

	return b[i-1]
}

func (m *BlockMatrix) checkIndex(op string, r, c int) error {
	if r < 0 || r >= len(m.rbi) || c < 0 || c >= len(m.cbi) {
		return matrixErrorf(op, r, c, ErrOutOfRange)
	}

	return nil
}

// find returns the position of row r in col and whether it is present. Caller holds col.mu.
func (col *blockColumn) find(r int) (int, bool) {
	i := sort.Search(len(col.entries), func(k int) bool { return col.entries[k].row >= r })

	return i, i < len(col.entries) && col.entries[i].row == r
}

// entry returns the entry for (r, c), allocating a zero block when alloc is set.
func (m *BlockMatrix) entry(r, c int, alloc bool) *blockEntry {
	col := m.cols[c]
	col.mu.Lock()
	defer col.mu.Unlock()

	i, ok := col.find(r)
	if ok {
		return col.entries[i]
	}
	if !alloc {
		return nil
	}
	e := &blockEntry{row: r, m: mat.NewDense(m.RowsOfBlock(r), m.ColsOfBlock(c), nil)}
	col.entries = append(col.entries, nil)
	copy(col.entries[i+1:], col.entries[i:])
	col.entries[i] = e

	return e
}

// Block returns block (r, c). When the block does not exist it returns nil,
// or a freshly allocated zero block if alloc is true.
//
// Errors: ErrOutOfRange for indices outside the block grid.
// Complexity: O(log nnz(col)) lookup, O(nnz(col)) on insertion.
func (m *BlockMatrix) Block(r, c int, alloc bool) (*mat.Dense, error) {
	if err := m.checkIndex("Block", r, c); err != nil {
		return nil, err
	}
	e := m.entry(r, c, alloc)
	if e == nil {
		return nil, nil
	}

	return e.m, nil
}

// AddBlock accumulates src into block (r, c), allocating it on first use.
// Contributions sum; the operation is safe for concurrent callers.
//
// Errors: ErrOutOfRange, ErrDimensionMismatch when src does not match the block size.
func (m *BlockMatrix) AddBlock(r, c int, src mat.Matrix) error {
	if err := m.checkIndex("AddBlock", r, c); err != nil {
		return err
	}
	sr, sc := src.Dims()
	if sr != m.RowsOfBlock(r) || sc != m.ColsOfBlock(c) {
		return matrixErrorf("AddBlock", r, c, ErrDimensionMismatch)
	}

	e := m.entry(r, c, true)
	e.mu.Lock()
	e.m.Add(e.m, src)
	e.mu.Unlock()

	return nil
}

// HasBlock reports whether block (r, c) is allocated.
func (m *BlockMatrix) HasBlock(r, c int) bool {
	if m.checkIndex("HasBlock", r, c) != nil {
		return false
	}

	return m.entry(r, c, false) != nil
}

// SetZero zeroes every allocated block, keeping the structure.
func (m *BlockMatrix) SetZero() {
	for _, col := range m.cols {
		col.mu.Lock()
		for _, e := range col.entries {
			e.m.Zero()
		}
		col.mu.Unlock()
	}
}

// Clear drops every block.
func (m *BlockMatrix) Clear() {
	for _, col := range m.cols {
		col.mu.Lock()
		col.entries = nil
		col.mu.Unlock()
	}
}

// NonZeroBlocks returns the number of allocated blocks.
func (m *BlockMatrix) NonZeroBlocks() int {
	n := 0
	for _, col := range m.cols {
		col.mu.Lock()
		n += len(col.entries)
		col.mu.Unlock()
	}

	return n
}

// NonZeros returns the number of scalars held by allocated blocks.
func (m *BlockMatrix) NonZeros() int {
	n := 0
	for c, col := range m.cols {
		w := m.ColsOfBlock(c)
		col.mu.Lock()
		for _, e := range col.entries {
			n += m.RowsOfBlock(e.row) * w
		}
		col.mu.Unlock()
	}

	return n
}

// ForEach visits allocated blocks column-major, rows ascending within a column.
// fn may allocate blocks in other columns; blocks added to the column being
// visited are not seen.
func (m *BlockMatrix) ForEach(fn func(r, c int, b *mat.Dense)) {
	for c, col := range m.cols {
		col.mu.Lock()
		entries := append([]*blockEntry(nil), col.entries...)
		col.mu.Unlock()
		for _, e := range entries {
			fn(e.row, c, e.m)
		}
	}
}

// ColumnRows returns the allocated block rows of column c in ascending order.
func (m *BlockMatrix) ColumnRows(c int) []int {
	col := m.cols[c]
	col.mu.Lock()
	defer col.mu.Unlock()

	out := make([]int, len(col.entries))
	for i, e := range col.entries {
		out[i] = e.row
	}

	return out
}

// Clone returns a deep copy with the same structure and values.
func (m *BlockMatrix) Clone() *BlockMatrix {
	out, _ := NewBlockMatrix(m.rbi, m.cbi)
	m.ForEach(func(r, c int, b *mat.Dense) {
		dst := out.entry(r, c, true)
		dst.m.Copy(b)
	})

	return out
}

// Transpose returns a new matrix holding the transposed blocks.
func (m *BlockMatrix) Transpose() *BlockMatrix {
	out, _ := NewBlockMatrix(m.cbi, m.rbi)
	m.ForEach(func(r, c int, b *mat.Dense) {
		dst := out.entry(c, r, true)
		dst.m.Copy(b.T())
	})

	return out
}

// Dense expands the stored blocks into a dense matrix (unstored blocks are zero).
func (m *BlockMatrix) Dense() *mat.Dense {
	out := mat.NewDense(m.Rows(), m.Cols(), nil)
	m.ForEach(func(r, c int, b *mat.Dense) {
		r0, c0 := m.RowBaseOfBlock(r), m.ColBaseOfBlock(c)
		br, bc := b.Dims()
		out.Slice(r0, r0+br, c0, c0+bc).(*mat.Dense).Copy(b)
	})

	return out
}

// SymmetricDense expands an upper-block-triangle symmetric matrix into a full
// gonum SymDense. Diagonal blocks are read in full; blocks below the diagonal are ignored.
//
// Errors: ErrNonSquare when the layout is not square.
func (m *BlockMatrix) SymmetricDense() (*mat.SymDense, error) {
	if !m.SquareLayout() {
		return nil, ErrNonSquare
	}
	n := m.Rows()
	out := mat.NewSymDense(n, nil)
	m.ForEach(func(r, c int, b *mat.Dense) {
		if r > c {
			return
		}
		r0, c0 := m.RowBaseOfBlock(r), m.ColBaseOfBlock(c)
		br, bc := b.Dims()
		for i := 0; i < br; i++ {
			for j := 0; j < bc; j++ {
				if r == c && i > j {
					continue
				}
				out.SetSym(r0+i, c0+j, b.At(i, j))
			}
		}
	})

	return out, nil
}
