package optimizer_test

import (
	"testing"

	"github.com/katalvlaran/graphopt/optimizer"
	"github.com/katalvlaran/graphopt/types"
	"github.com/stretchr/testify/require"
)

// line builds scalar vertices with the given IDs, all at start, joined in
// order by deltas of 1.
func line(t *testing.T, start float64, ids ...int) *optimizer.Graph {
	t.Helper()
	g := optimizer.NewGraph()
	for _, id := range ids {
		require.NoError(t, g.AddVertex(types.NewVertexVec(id, start)))
	}
	for i := 0; i+1 < len(ids); i++ {
		_, err := g.AddEdge(types.NewEdgeVecDelta(1), ids[i], ids[i+1])
		require.NoError(t, err)
	}

	return g
}

func value(t *testing.T, g *optimizer.Graph, id int) float64 {
	t.Helper()
	v, ok := g.Vertex(id)
	require.True(t, ok)

	return v.(*types.VertexVec).Estimate()[0]
}

func TestPropagateChain(t *testing.T) {
	g := line(t, 0, 0, 1, 2)
	p := optimizer.NewEstimatePropagator(g)

	rep, err := p.Propagate([]int{0}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, rep.Initialized)
	require.Equal(t, map[int]float64{0: 0, 1: 1, 2: 2}, rep.Cost)
	require.Empty(t, rep.Unreached)
	require.Equal(t, 1.0, value(t, g, 1))
	require.Equal(t, 2.0, value(t, g, 2))

	// backwards from the far end
	g = line(t, 0, 0, 1, 2)
	g.Vertices()[2].(*types.VertexVec).SetEstimate([]float64{10})
	rep, err = optimizer.NewEstimatePropagator(g).Propagate([]int{2}, optimizer.EdgeCost, nil)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, rep.Initialized)
	require.Equal(t, 9.0, value(t, g, 1))
	require.Equal(t, 8.0, value(t, g, 0))
}

func TestPropagateOdometryOnly(t *testing.T) {
	g := line(t, 0, 0, 1, 5)
	rep, err := optimizer.NewEstimatePropagator(g).Propagate([]int{0}, optimizer.OdometryCost, nil)
	require.NoError(t, err)
	require.Equal(t, []int{1}, rep.Initialized)
	require.Equal(t, []int{5}, rep.Unreached)
	require.Zero(t, value(t, g, 5))

	rep, err = optimizer.NewEstimatePropagator(g).Propagate([]int{0}, optimizer.EdgeCost, nil)
	require.NoError(t, err)
	require.Empty(t, rep.Unreached)
	require.Equal(t, 2.0, value(t, g, 5))
}

func TestPropagateMaxDistance(t *testing.T) {
	g := line(t, 0, 0, 1, 2, 3)
	p := optimizer.NewEstimatePropagator(g)
	p.SetMaxDistance(1.5)
	rep, err := p.Propagate([]int{0}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []int{1}, rep.Initialized)
	require.Equal(t, []int{2, 3}, rep.Unreached)
}

func TestPropagateHyperedge(t *testing.T) {
	g := optimizer.NewGraph()
	require.NoError(t, g.AddVertex(types.NewVertexVec(0, 1)))
	require.NoError(t, g.AddVertex(types.NewVertexVec(1, 4)))
	require.NoError(t, g.AddVertex(types.NewVertexVec(2, 0)))
	_, err := g.AddEdge(types.NewEdgeVecSum(3), 0, 1, 2)
	require.NoError(t, err)

	// one known vertex is not enough
	rep, err := optimizer.NewEstimatePropagator(g).Propagate([]int{0}, nil, nil)
	require.NoError(t, err)
	require.Empty(t, rep.Initialized)
	require.Equal(t, []int{1, 2}, rep.Unreached)

	rep, err = optimizer.NewEstimatePropagator(g).Propagate([]int{0, 1}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []int{2}, rep.Initialized)
	require.Equal(t, 2.0, value(t, g, 2))
}

func TestPropagateCustomAction(t *testing.T) {
	g := line(t, 0, 0, 1, 2)
	var seen [][2]int
	record := func(_ optimizer.Edge, vs []optimizer.Vertex, from []int, to int) {
		seen = append(seen, [2]int{vs[from[0]].ID(), vs[to].ID()})
	}
	_, err := optimizer.NewEstimatePropagator(g).Propagate([]int{1}, nil, record)
	require.NoError(t, err)
	require.Equal(t, [][2]int{{1, 0}, {1, 2}}, seen)
	require.Zero(t, value(t, g, 0))
}

func TestPropagateErrors(t *testing.T) {
	g := line(t, 0, 0, 1)
	_, err := optimizer.NewEstimatePropagator(g).Propagate(nil, nil, nil)
	require.Error(t, err)
	_, err = optimizer.NewEstimatePropagator(g).Propagate([]int{7}, nil, nil)
	require.Error(t, err)
}

func TestComputeInitialGuessChain(t *testing.T) {
	o := chain(t, 4)
	for i := 0; i < 4; i++ {
		v, _ := o.Vertex(i)
		v.(*types.VertexVec).SetEstimate([]float64{7})
	}
	require.NoError(t, o.AddVertex(types.NewVertexVec(9, 5)))

	_, err := o.ComputeInitialGuess(nil)
	require.ErrorIs(t, err, optimizer.ErrNotInitialized)

	require.NoError(t, o.InitializeOptimization(0))
	rep, err := o.ComputeInitialGuess(nil)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, rep.Initialized)
	for i := 0; i < 4; i++ {
		require.Equal(t, float64(i), scalar(t, o, i))
	}
	require.Equal(t, 5.0, scalar(t, o, 9))

	res, err := o.Optimize(5)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Zero(t, res.InitialChi2)
}

func TestComputeInitialGuessFromFixedVertex(t *testing.T) {
	o := optimizer.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, o.AddVertex(types.NewVertexVec(i, 0)))
	}
	_, err := o.AddEdge(types.NewEdgeVecDelta(2), 0, 1)
	require.NoError(t, err)
	_, err = o.AddEdge(types.NewEdgeVecDelta(2), 1, 2)
	require.NoError(t, err)
	require.NoError(t, o.SetFixed(2, true))
	v, _ := o.Vertex(2)
	v.(*types.VertexVec).SetEstimate([]float64{10})

	require.NoError(t, o.InitializeOptimization(0))
	rep, err := o.ComputeInitialGuess(nil)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, rep.Initialized)
	require.Equal(t, 8.0, scalar(t, o, 1))
	require.Equal(t, 6.0, scalar(t, o, 0))
}

func TestComputeInitialGuessPlanar(t *testing.T) {
	o := planar(t, true)
	require.NoError(t, o.InitializeOptimization(0))
	rep, err := o.ComputeInitialGuess(nil)
	require.NoError(t, err)
	require.Len(t, rep.Initialized, 5)
	require.Equal(t, 2.0, rep.Cost[2])

	requireSquareSolved(t, o, 1e-9)
	require.NoError(t, o.ComputeActiveErrors())
	require.Less(t, o.ActiveChi2(), 1e-18)
}
