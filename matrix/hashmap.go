// SPDX-License-Identifier: MIT
// Package: matrix
//
// HashMap is an unordered (r, c) → block accumulator sharing a BlockMatrix
// layout. It collects a block pattern or private per-worker contributions and
// merges them into a BlockMatrix in a fixed order.

package matrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// HashMap is not safe for concurrent use; give each worker its own shard.
type HashMap struct {
	rbi, cbi []int
	blocks   map[[2]int]*mat.Dense
}

// NewHashMap creates an empty shard on the given block grid.
func NewHashMap(rowBlockIndices, colBlockIndices []int) (*HashMap, error) {
	if err := validateBoundaries(rowBlockIndices); err != nil {
		return nil, err
	}
	if err := validateBoundaries(colBlockIndices); err != nil {
		return nil, err
	}

	return &HashMap{
		rbi:    append([]int(nil), rowBlockIndices...),
		cbi:    append([]int(nil), colBlockIndices...),
		blocks: make(map[[2]int]*mat.Dense),
	}, nil
}

// Len returns the number of allocated blocks.
func (h *HashMap) Len() int { return len(h.blocks) }

// Block returns block (r, c), allocating a zero block when alloc is true.
func (h *HashMap) Block(r, c int, alloc bool) (*mat.Dense, error) {
	if r < 0 || r >= len(h.rbi) || c < 0 || c >= len(h.cbi) {
		return nil, matrixErrorf("HashMap.Block", r, c, ErrOutOfRange)
	}
	key := [2]int{r, c}
	b, ok := h.blocks[key]
	if !ok && alloc {
		b = mat.NewDense(h.rbi[r]-baseOf(h.rbi, r), h.cbi[c]-baseOf(h.cbi, c), nil)
		h.blocks[key] = b
	}

	return b, nil
}

// AddBlock accumulates src into block (r, c).
func (h *HashMap) AddBlock(r, c int, src mat.Matrix) error {
	b, err := h.Block(r, c, true)
	if err != nil {
		return err
	}
	br, bc := b.Dims()
	if sr, sc := src.Dims(); sr != br || sc != bc {
		return matrixErrorf("HashMap.AddBlock", r, c, ErrDimensionMismatch)
	}
	b.Add(b, src)

	return nil
}

// Keys returns the allocated coordinates sorted column-major.
func (h *HashMap) Keys() [][2]int {
	keys := make([][2]int, 0, len(h.blocks))
	for k := range h.blocks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][1] != keys[j][1] {
			return keys[i][1] < keys[j][1]
		}
		return keys[i][0] < keys[j][0]
	})

	return keys
}

// MergeInto adds every block into dst in Keys order, so the summation order is reproducible.
//
// Errors: ErrDimensionMismatch when dst has a different block grid.
func (h *HashMap) MergeInto(dst *BlockMatrix) error {
	if !sameBoundaries(h.rbi, dst.rbi) || !sameBoundaries(h.cbi, dst.cbi) {
		return ErrDimensionMismatch
	}
	for _, k := range h.Keys() {
		if err := dst.AddBlock(k[0], k[1], h.blocks[k]); err != nil {
			return err
		}
	}

	return nil
}

// Reset drops all blocks.
func (h *HashMap) Reset() {
	h.blocks = make(map[[2]int]*mat.Dense)
}

func sameBoundaries(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
