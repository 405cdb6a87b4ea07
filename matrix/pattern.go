// SPDX-License-Identifier: MIT
// Package: matrix
//
// Pattern is the block-level adjacency of a symmetric block matrix, the input
// for fill-reducing orderings.

package matrix

import "sort"

// Pattern stores, for each block i, the sorted blocks j ≠ i with a non-null block (i,j) or (j,i).
type Pattern struct {
	N      int
	ColPtr []int
	RowInd []int
}

// Neighbors returns the adjacent blocks of i.
func (p *Pattern) Neighbors(i int) []int {
	return p.RowInd[p.ColPtr[i]:p.ColPtr[i+1]]
}

// Pattern derives the symmetric block adjacency of a square layout; both
// triangles of M contribute, the diagonal is omitted.
//
// Errors: ErrNonSquare.
func (m *BlockMatrix) Pattern() (*Pattern, error) {
	if !m.SquareLayout() {
		return nil, ErrNonSquare
	}
	n := len(m.cbi)
	adj := make([]map[int]struct{}, n)
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	for c := 0; c < n; c++ {
		for _, r := range m.ColumnRows(c) {
			if r == c {
				continue
			}
			adj[r][c] = struct{}{}
			adj[c][r] = struct{}{}
		}
	}

	p := &Pattern{N: n, ColPtr: make([]int, n+1)}
	for i := 0; i < n; i++ {
		start := len(p.RowInd)
		for j := range adj[i] {
			p.RowInd = append(p.RowInd, j)
		}
		sort.Ints(p.RowInd[start:])
		p.ColPtr[i+1] = len(p.RowInd)
	}

	return p, nil
}
