// Package dijkstra_test validates the hypergraph search: input validation,
// hyperedge relaxation, tie-breaking, cost caps and the tree walk.
package dijkstra_test

import (
	"errors"
	"math"
	"testing"

	"github.com/katalvlaran/graphopt/core"
	"github.com/katalvlaran/graphopt/dijkstra"
	"github.com/stretchr/testify/require"
)

type vid int

func (v vid) ID() int { return int(v) }

// build creates a graph with vertices ids and edges listed as vertex tuples.
func build(t *testing.T, ids []int, edges ...[]int) (*core.Graph[vid, string], []core.EdgeHandle) {
	t.Helper()
	g := core.NewGraph[vid, string]()
	for _, id := range ids {
		_, err := g.AddVertex(vid(id))
		require.NoError(t, err)
	}
	hs := make([]core.EdgeHandle, 0, len(edges))
	for _, e := range edges {
		h, err := g.AddEdge("", e...)
		require.NoError(t, err)
		hs = append(hs, h)
	}

	return g, hs
}

// ------------------------------------------------------------------------
// 1. Validation
// ------------------------------------------------------------------------

func TestRun_Validation(t *testing.T) {
	_, err := dijkstra.Run(nil, dijkstra.Source(1))
	require.ErrorIs(t, err, dijkstra.ErrNilGraph)

	g, _ := build(t, []int{1})
	_, err = dijkstra.Run(g)
	require.ErrorIs(t, err, dijkstra.ErrEmptySource)

	_, err = dijkstra.Run(g, dijkstra.Source(2))
	require.ErrorIs(t, err, dijkstra.ErrVertexNotFound)

	_, err = dijkstra.Run(g, dijkstra.Source(1), dijkstra.WithMaxDistance(-1))
	require.ErrorIs(t, err, dijkstra.ErrBadMaxDistance)
}

func TestRun_NegativeCost(t *testing.T) {
	g, _ := build(t, []int{1, 2}, []int{1, 2})
	_, err := dijkstra.Run(g, dijkstra.Source(1), dijkstra.WithCost(func(core.EdgeHandle, int, int) float64 { return -1 }))
	require.True(t, errors.Is(err, dijkstra.ErrNegativeCost))
}

// ------------------------------------------------------------------------
// 2. Core behavior
// ------------------------------------------------------------------------

// TestRun_Chain checks the A-B-C chain: C costs 2 and is finalized after B.
func TestRun_Chain(t *testing.T) {
	g, hs := build(t, []int{1, 2, 3}, []int{1, 2}, []int{2, 3})
	tree, err := dijkstra.Run(g, dijkstra.Source(1))
	require.NoError(t, err)

	require.Equal(t, []int{1, 2, 3}, tree.Order())
	require.Equal(t, 2.0, tree.Distance(3))

	e, ok := tree.Entry(3)
	require.True(t, ok)
	require.True(t, e.HasParent)
	require.Equal(t, 2, e.Parent)
	require.Equal(t, hs[1], e.Edge)

	root, _ := tree.Entry(1)
	require.False(t, root.HasParent)
	require.Equal(t, []int{2}, root.Children)
}

// TestRun_Hyperedge relaxes all other endpoints of a ternary edge at once.
func TestRun_Hyperedge(t *testing.T) {
	g, _ := build(t, []int{1, 2, 3, 4}, []int{1, 2, 3}, []int{3, 4})
	tree, err := dijkstra.Run(g, dijkstra.Source(1))
	require.NoError(t, err)

	require.Equal(t, 1.0, tree.Distance(2))
	require.Equal(t, 1.0, tree.Distance(3))
	require.Equal(t, 2.0, tree.Distance(4))
	require.Equal(t, []int{1, 2, 3, 4}, tree.Order())
}

// TestRun_TieBreakDiscoveryOrder: two equal-cost paths; the first discovered predecessor wins.
func TestRun_TieBreakDiscoveryOrder(t *testing.T) {
	// 1 → {3, 2} (edge order decides discovery), both → 4
	g, _ := build(t, []int{1, 2, 3, 4}, []int{1, 3}, []int{1, 2}, []int{2, 4}, []int{3, 4})
	tree, err := dijkstra.Run(g, dijkstra.Source(1))
	require.NoError(t, err)

	require.Equal(t, []int{1, 3, 2, 4}, tree.Order())
	e, _ := tree.Entry(4)
	require.Equal(t, 3, e.Parent)
}

func TestRun_StrictImprovementOnly(t *testing.T) {
	// Direct 1-3 costs 5, detour via 2 costs 2+2.
	g, hs := build(t, []int{1, 2, 3}, []int{1, 3}, []int{1, 2}, []int{2, 3})
	cost := func(e core.EdgeHandle, _, _ int) float64 {
		if e == hs[0] {
			return 5
		}
		return 2
	}
	tree, err := dijkstra.Run(g, dijkstra.Source(1), dijkstra.WithCost(cost))
	require.NoError(t, err)
	e, _ := tree.Entry(3)
	require.Equal(t, 4.0, e.Distance)
	require.Equal(t, 2, e.Parent)
}

func TestRun_BlockedAndCapped(t *testing.T) {
	g, hs := build(t, []int{1, 2, 3, 4}, []int{1, 2}, []int{2, 3}, []int{3, 4})
	cost := func(e core.EdgeHandle, _, _ int) float64 {
		if e == hs[2] {
			return math.Inf(1)
		}
		return 1
	}
	tree, err := dijkstra.Run(g, dijkstra.Source(1), dijkstra.WithCost(cost))
	require.NoError(t, err)
	require.True(t, tree.Reached(3))
	require.False(t, tree.Reached(4))
	require.True(t, math.IsInf(tree.Distance(4), 1))

	tree, err = dijkstra.Run(g, dijkstra.Source(1), dijkstra.WithMaxDistance(1))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, tree.Order())

	tree, err = dijkstra.Run(g, dijkstra.Source(1), dijkstra.WithEdgeFilter(func(h core.EdgeHandle) bool { return h != hs[0] }))
	require.NoError(t, err)
	require.Equal(t, 1, tree.Len())
}

func TestRun_MultipleSources(t *testing.T) {
	g, _ := build(t, []int{1, 2, 3, 4, 5}, []int{1, 2}, []int{2, 3}, []int{3, 4}, []int{4, 5})
	tree, err := dijkstra.Run(g, dijkstra.Source(1, 5, 1))
	require.NoError(t, err)
	require.Equal(t, 1.0, tree.Distance(4))
	require.Equal(t, 2.0, tree.Distance(3))
	e, _ := tree.Entry(3)
	require.Equal(t, 2, e.Parent) // 2 discovered before 4
}

func TestTree_VisitParentsFirst(t *testing.T) {
	g, _ := build(t, []int{0, 1, 2, 3, 4}, []int{0, 1}, []int{0, 2}, []int{1, 3}, []int{2, 4})
	tree, err := dijkstra.Run(g, dijkstra.Source(0))
	require.NoError(t, err)

	seen := map[int]bool{}
	err = tree.Visit(func(e *dijkstra.Entry) error {
		if e.HasParent {
			require.True(t, seen[e.Parent], "parent %d of %d not visited yet", e.Parent, e.Vertex)
		}
		seen[e.Vertex] = true
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 5)

	stop := errors.New("stop")
	calls := 0
	err = tree.Visit(func(*dijkstra.Entry) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}
