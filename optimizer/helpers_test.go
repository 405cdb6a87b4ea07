package optimizer_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/graphopt/optimizer"
	"github.com/katalvlaran/graphopt/types"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// atanEdge pulls a scalar VertexVec to zero through e = atan(x). Its
// Gauss–Newton step overshoots far from zero, and it has no analytic Jacobian.
type atanEdge struct{ optimizer.BaseEdge }

func newAtanEdge() *atanEdge { return &atanEdge{optimizer.NewBaseEdge(1)} }

func (*atanEdge) Arity() int { return 1 }

func (*atanEdge) ComputeError(vs []optimizer.Vertex, err []float64) {
	var x [1]float64
	vs[0].EstimateData(x[:])
	err[0] = math.Atan(x[0])
}

// nanEdge has a finite zero error and a NaN Jacobian.
type nanEdge struct{ optimizer.BaseEdge }

func newNaNEdge() *nanEdge { return &nanEdge{optimizer.NewBaseEdge(1)} }

func (*nanEdge) Arity() int                                     { return 1 }
func (*nanEdge) ComputeError(_ []optimizer.Vertex, e []float64) { e[0] = 0 }

func (*nanEdge) LinearizeOplus(_ []optimizer.Vertex, jac []*mat.Dense) {
	jac[0].Set(0, 0, math.NaN())
}

func scalar(t *testing.T, o *optimizer.SparseOptimizer, id int) float64 {
	t.Helper()
	v, ok := o.Vertex(id)
	require.True(t, ok)
	var x [1]float64
	v.EstimateData(x[:])

	return x[0]
}

// chain builds n scalar vertices at 0 with a prior x0 = 0 and deltas
// x(i+1) − x(i) = 1, so the optimum is x(i) = i.
func chain(t *testing.T, n int, opts ...optimizer.Option) *optimizer.SparseOptimizer {
	t.Helper()
	o := optimizer.New(opts...)
	for i := 0; i < n; i++ {
		require.NoError(t, o.AddVertex(types.NewVertexVec(i, 0)))
	}
	_, err := o.AddEdge(types.NewEdgeVecPrior(0), 0)
	require.NoError(t, err)
	for i := 0; i+1 < n; i++ {
		_, err = o.AddEdge(types.NewEdgeVecDelta(1), i, i+1)
		require.NoError(t, err)
	}

	return o
}

var (
	squarePoses = []types.SE2{
		{X: 0, Y: 0, Theta: 0},
		{X: 1, Y: 0, Theta: math.Pi / 2},
		{X: 1, Y: 1, Theta: math.Pi},
		{X: 0, Y: 1, Theta: -math.Pi / 2},
	}
	squareLandmarks = [][2]float64{{0.5, 0.5}, {2, 0.5}}
)

// planar builds a noise-free square loop of four poses (IDs 0..3) with a
// prior on pose 0, odometry around the loop, and two landmarks (IDs 10, 11)
// seen from every pose. Initial estimates are perturbed; the optimum is the
// ground truth with zero chi².
func planar(t *testing.T, marginalize bool, opts ...optimizer.Option) *optimizer.SparseOptimizer {
	t.Helper()
	o := optimizer.New(opts...)
	for i, p := range squarePoses {
		noisy := types.SE2{X: p.X + 0.1*float64(i%2), Y: p.Y - 0.05*float64(i), Theta: types.NormalizeAngle(p.Theta + 0.05)}
		require.NoError(t, o.AddVertex(types.NewVertexSE2(i, noisy)))
	}
	for k, l := range squareLandmarks {
		id := 10 + k
		require.NoError(t, o.AddVertex(types.NewVertexPointXY(id, l[0]+0.2, l[1]-0.1)))
		require.NoError(t, o.SetMarginalized(id, marginalize))
	}

	_, err := o.AddEdge(types.NewEdgeSE2Prior(squarePoses[0]), 0)
	require.NoError(t, err)
	for i := range squarePoses {
		j := (i + 1) % len(squarePoses)
		z := squarePoses[i].Inverse().Compose(squarePoses[j])
		_, err = o.AddEdge(types.NewEdgeSE2(z), i, j)
		require.NoError(t, err)
	}
	for i, p := range squarePoses {
		for k, l := range squareLandmarks {
			z := p.Inverse().Apply(l)
			_, err = o.AddEdge(types.NewEdgeSE2PointXY(z[0], z[1]), i, 10+k)
			require.NoError(t, err)
		}
	}

	return o
}

func requireSquareSolved(t *testing.T, o *optimizer.SparseOptimizer, tol float64) {
	t.Helper()
	for i, want := range squarePoses {
		v, _ := o.Vertex(i)
		got := v.(*types.VertexSE2).Estimate()
		require.InDelta(t, want.X, got.X, tol, "pose %d x", i)
		require.InDelta(t, want.Y, got.Y, tol, "pose %d y", i)
		require.InDelta(t, 0, types.NormalizeAngle(want.Theta-got.Theta), tol, "pose %d theta", i)
	}
	for k, want := range squareLandmarks {
		v, _ := o.Vertex(10 + k)
		got := v.(*types.VertexPointXY).Estimate()
		require.InDeltaSlice(t, want[:], got[:], tol, "landmark %d", 10+k)
	}
}

func estimates(o *optimizer.SparseOptimizer) [][]float64 {
	var out [][]float64
	for _, v := range o.Vertices() {
		buf := make([]float64, v.EstimateDimension())
		v.EstimateData(buf)
		out = append(out, buf)
	}

	return out
}
