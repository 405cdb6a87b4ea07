package linsolve

import (
	"github.com/katalvlaran/graphopt/matrix"
)

// Ordering selects the fill-reducing permutation of SparseCholesky.
type Ordering int

const (
	// OrderingNatural keeps the Hessian index order.
	OrderingNatural Ordering = iota
	// OrderingMinimumDegree runs greedy minimum degree on the block graph.
	OrderingMinimumDegree
)

// minimumDegree returns a block elimination order for the symmetric block
// pattern p. Each step eliminates the remaining block with the fewest
// neighbours (ties → lowest index) and turns its neighbourhood into a clique.
//
// Complexity: O(n · (n + Σ deg²)) with map-based adjacency; n is the block count.
func minimumDegree(p *matrix.Pattern) []int {
	n := p.N
	adj := make([]map[int]struct{}, n)
	for i := 0; i < n; i++ {
		nb := p.Neighbors(i)
		adj[i] = make(map[int]struct{}, len(nb))
		for _, j := range nb {
			adj[i][j] = struct{}{}
		}
	}

	done := make([]bool, n)
	order := make([]int, 0, n)
	for step := 0; step < n; step++ {
		best, bestDeg := -1, 0
		for i := 0; i < n; i++ {
			if done[i] {
				continue
			}
			if d := len(adj[i]); best < 0 || d < bestDeg {
				best, bestDeg = i, d
			}
		}

		done[best] = true
		order = append(order, best)
		nbrs := make([]int, 0, len(adj[best]))
		for j := range adj[best] {
			nbrs = append(nbrs, j)
		}
		for _, u := range nbrs {
			delete(adj[u], best)
			for _, v := range nbrs {
				if u != v {
					adj[u][v] = struct{}{}
				}
			}
		}
		adj[best] = nil
	}

	return order
}

// expandBlockOrder turns a block permutation into a scalar one: P[k] is the
// original scalar index placed at position k.
func expandBlockOrder(blockOrder, blockIndices []int) []int {
	n := blockIndices[len(blockIndices)-1]
	perm := make([]int, 0, n)
	for _, b := range blockOrder {
		lo := 0
		if b > 0 {
			lo = blockIndices[b-1]
		}
		for i := lo; i < blockIndices[b]; i++ {
			perm = append(perm, i)
		}
	}

	return perm
}
