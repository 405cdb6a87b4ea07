package optimizer_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/katalvlaran/graphopt/linsolve"
	"github.com/katalvlaran/graphopt/optimizer"
	"github.com/katalvlaran/graphopt/types"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// priorDelta is x0 ~ 0 and x1 − x0 ~ 1 with unit information, so
// H = [[2, −1], [−1, 1]] and Σ = [[1, 1], [1, 2]].
func priorDelta(t *testing.T, marginalize bool, opts ...optimizer.Option) *optimizer.SparseOptimizer {
	t.Helper()
	o := chain(t, 2, opts...)
	require.NoError(t, o.SetMarginalized(1, marginalize))
	require.NoError(t, o.InitializeOptimization(0))

	return o
}

func covariance(t *testing.T, blocks map[[2]int]*mat.Dense) map[[2]int]float64 {
	t.Helper()
	out := make(map[[2]int]float64, len(blocks))
	for k, b := range blocks {
		r, c := b.Dims()
		require.Equal(t, 1, r)
		require.Equal(t, 1, c)
		out[k] = b.At(0, 0)
	}

	return out
}

func TestComputeMarginals(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-12)
	for name, ls := range map[string]linsolve.Solver{
		"dense":    linsolve.NewDense(),
		"cholesky": linsolve.NewSparseCholesky(),
		"ldlt":     linsolve.NewSparseCholesky(linsolve.WithMode(linsolve.ModeLDLT)),
	} {
		t.Run(name, func(t *testing.T) {
			o := priorDelta(t, false, optimizer.WithLinearSolver(ls))
			got, err := o.ComputeMarginals([][2]int{{0, 0}, {1, 1}, {0, 1}, {1, 0}})
			require.NoError(t, err)
			want := map[[2]int]float64{{0, 0}: 1, {1, 1}: 2, {0, 1}: 1, {1, 0}: 1}
			require.Empty(t, cmp.Diff(want, covariance(t, got), approx))
		})
	}
}

func TestComputeMarginalsSchur(t *testing.T) {
	o := priorDelta(t, true)
	got, err := o.ComputeMarginals([][2]int{{0, 0}, {1, 1}})
	require.NoError(t, err)
	want := map[[2]int]float64{{0, 0}: 1, {1, 1}: 2}
	require.Empty(t, cmp.Diff(want, covariance(t, got), cmpopts.EquateApprox(0, 1e-12)))

	_, err = o.ComputeMarginals([][2]int{{0, 1}})
	require.ErrorIs(t, err, linsolve.ErrMarginalNotAvailable)
}

func TestComputeMarginalsPlanarAgree(t *testing.T) {
	pairs := [][2]int{{0, 0}, {2, 2}, {10, 10}, {11, 11}, {1, 2}}
	var results []map[[2]int]*mat.Dense
	for _, marginalize := range []bool{false, true} {
		o := planar(t, marginalize, optimizer.WithLinearSolver(linsolve.NewDense()))
		require.NoError(t, o.InitializeOptimization(0))
		_, err := o.Optimize(30)
		require.NoError(t, err)
		m, err := o.ComputeMarginals(pairs)
		require.NoError(t, err)
		results = append(results, m)
	}
	for _, p := range pairs {
		require.True(t, mat.EqualApprox(results[0][p], results[1][p], 1e-5), "pair %v", p)
	}
	r, c := results[0][[2]int{10, 10}].Dims()
	require.Equal(t, [2]int{2, 2}, [2]int{r, c})
}

func TestComputeMarginalsErrors(t *testing.T) {
	o := chain(t, 3)
	_, err := o.ComputeMarginals([][2]int{{0, 0}})
	require.ErrorIs(t, err, optimizer.ErrNotInitialized)

	require.NoError(t, o.SetFixed(0, true))
	require.NoError(t, o.InitializeOptimization(0))
	_, err = o.ComputeMarginals([][2]int{{0, 0}})
	require.ErrorIs(t, err, linsolve.ErrMarginalNotAvailable)
	_, err = o.ComputeMarginals([][2]int{{1, 42}})
	require.ErrorIs(t, err, linsolve.ErrMarginalNotAvailable)

	p := chain(t, 3, optimizer.WithLinearSolver(linsolve.NewPCG()))
	require.NoError(t, p.InitializeOptimization(0))
	_, err = p.ComputeMarginals([][2]int{{0, 0}})
	require.ErrorIs(t, err, optimizer.ErrNoMarginals)
}

func TestComputeMarginalsSE2Prior(t *testing.T) {
	o := optimizer.New()
	require.NoError(t, o.AddVertex(types.NewVertexSE2(0, types.SE2{})))
	prior := types.NewEdgeSE2Prior(types.SE2{})
	info := mat.NewSymDense(3, []float64{4, 0, 0, 0, 4, 0, 0, 0, 100})
	prior.SetInformation(info)
	_, err := o.AddEdge(prior, 0)
	require.NoError(t, err)
	require.NoError(t, o.InitializeOptimization(0))

	m, err := o.ComputeMarginals([][2]int{{0, 0}})
	require.NoError(t, err)
	want := mat.NewDense(3, 3, []float64{0.25, 0, 0, 0, 0.25, 0, 0, 0, 0.01})
	require.True(t, mat.EqualApprox(want, m[[2]int{0, 0}], 1e-6))
}
