package core_test

import (
	"testing"

	"github.com/katalvlaran/graphopt/core"
	"github.com/stretchr/testify/require"
)

type node int

func (n node) ID() int { return int(n) }

func newGraph(t *testing.T, ids ...int) *core.Graph[node, string] {
	t.Helper()
	g := core.NewGraph[node, string]()
	for _, id := range ids {
		_, err := g.AddVertex(node(id))
		require.NoError(t, err)
	}

	return g
}

func TestAddVertexDuplicate(t *testing.T) {
	g := newGraph(t, 1)
	_, err := g.AddVertex(node(1))
	require.ErrorIs(t, err, core.ErrDuplicateVertex)
	require.Equal(t, 1, g.VertexCount())
}

func TestAddEdgeValidation(t *testing.T) {
	g := newGraph(t, 1, 2)

	_, err := g.AddEdge("empty")
	require.ErrorIs(t, err, core.ErrEmptyEdge)

	_, err = g.AddEdge("missing", 1, 3)
	require.ErrorIs(t, err, core.ErrVertexNotFound)

	_, err = g.AddEdge("loop", 1, 1)
	require.ErrorIs(t, err, core.ErrLoopNotAllowed)
	require.Equal(t, 0, g.EdgeCount())

	lg := core.NewGraph[node, string](core.WithLoops())
	_, err = lg.AddVertex(node(7))
	require.NoError(t, err)
	h, err := lg.AddEdge("loop", 7, 7)
	require.NoError(t, err)
	inc, err := lg.IncidentEdges(7)
	require.NoError(t, err)
	require.Equal(t, []core.EdgeHandle{h}, inc)
	ids, err := lg.EdgeVertices(h)
	require.NoError(t, err)
	require.Equal(t, []int{7, 7}, ids)
}

func TestHyperedgeIncidenceOrder(t *testing.T) {
	g := newGraph(t, 1, 2, 3)
	e1, err := g.AddEdge("prior", 1)
	require.NoError(t, err)
	e2, err := g.AddEdge("odom", 1, 2)
	require.NoError(t, err)
	e3, err := g.AddEdge("sum", 3, 1, 2)
	require.NoError(t, err)

	inc, err := g.IncidentEdges(1)
	require.NoError(t, err)
	require.Equal(t, []core.EdgeHandle{e1, e2, e3}, inc)

	ids, err := g.EdgeVertices(e3)
	require.NoError(t, err)
	require.Equal(t, []int{3, 1, 2}, ids)

	id1, err := g.EdgeID(e1)
	require.NoError(t, err)
	id3, err := g.EdgeID(e3)
	require.NoError(t, err)
	require.Less(t, id1, id3)

	require.Equal(t, []core.EdgeHandle{e1, e2, e3}, g.Edges())
	require.Equal(t, 3, g.Stats().MaxArity)
}

func TestRemoveVertexDetachesEdges(t *testing.T) {
	g := newGraph(t, 1, 2, 3)
	_, err := g.AddEdge("a", 1, 2)
	require.NoError(t, err)
	keep, err := g.AddEdge("b", 2, 3)
	require.NoError(t, err)
	_, err = g.AddEdge("c", 3, 1)
	require.NoError(t, err)

	removed, err := g.RemoveVertex(1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, removed)
	require.False(t, g.HasVertex(1))
	require.Equal(t, []core.EdgeHandle{keep}, g.Edges())

	for _, id := range g.VertexIDs() {
		inc, err := g.IncidentEdges(id)
		require.NoError(t, err)
		require.Equal(t, []core.EdgeHandle{keep}, inc)
	}

	_, err = g.RemoveVertex(1)
	require.ErrorIs(t, err, core.ErrVertexNotFound)
}

func TestAddRemoveRestoresEdgeSet(t *testing.T) {
	g := newGraph(t, 1, 2)
	_, err := g.AddEdge("a", 1, 2)
	require.NoError(t, err)
	before := g.Edges()

	_, err = g.AddVertex(node(9))
	require.NoError(t, err)
	_, err = g.AddEdge("x", 9, 2)
	require.NoError(t, err)
	_, err = g.AddEdge("y", 9)
	require.NoError(t, err)
	_, err = g.RemoveVertex(9)
	require.NoError(t, err)

	require.Equal(t, before, g.Edges())
	require.Equal(t, []int{1, 2}, g.VertexIDs())
}

func TestStaleHandles(t *testing.T) {
	g := newGraph(t, 1)
	vh, ok := g.VertexHandleOf(1)
	require.True(t, ok)
	eh, err := g.AddEdge("u", 1)
	require.NoError(t, err)

	_, err = g.RemoveVertex(1)
	require.NoError(t, err)
	_, err = g.AddVertex(node(2)) // reuses the freed slot
	require.NoError(t, err)

	_, err = g.VertexAt(vh)
	require.ErrorIs(t, err, core.ErrStaleHandle)
	_, ok = g.Edge(eh)
	require.False(t, ok)
	require.ErrorIs(t, g.RemoveEdge(eh), core.ErrEdgeNotFound)

	vh2, ok := g.VertexHandleOf(2)
	require.True(t, ok)
	require.Equal(t, vh.Index, vh2.Index)
	require.NotEqual(t, vh.Gen, vh2.Gen)
	v, err := g.VertexAt(vh2)
	require.NoError(t, err)
	require.Equal(t, node(2), v)
}

func TestSortVerticesAndClear(t *testing.T) {
	g := newGraph(t, 5, 3, 9, 1)
	require.Equal(t, []int{5, 3, 9, 1}, g.VertexIDs())

	g.SortVertices(func(a, b node) bool { return a < b })
	require.Equal(t, []node{1, 3, 5, 9}, g.Vertices())

	_, err := g.AddVertex(node(2))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 5, 9, 2}, g.VertexIDs())

	eh, err := g.AddEdge("e", 1, 2)
	require.NoError(t, err)
	g.Clear()
	require.Zero(t, g.VertexCount())
	require.Zero(t, g.EdgeCount())
	_, ok := g.Edge(eh)
	require.False(t, ok)

	_, err = g.AddVertex(node(5))
	require.NoError(t, err)
	require.Equal(t, []int{5}, g.VertexIDs())
}
