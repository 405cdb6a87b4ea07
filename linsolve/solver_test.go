package linsolve_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/katalvlaran/graphopt/linsolve"
	"github.com/katalvlaran/graphopt/matrix"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// loopSystem builds a diagonally dominant SPD matrix on n 2×2 blocks: a chain
// (i, i+1) closed by a loop block (0, n-1), stored as the upper block triangle.
func loopSystem(t *testing.T, n int) *matrix.BlockMatrix {
	t.Helper()
	bi := make([]int, n)
	for i := range bi {
		bi[i] = 2 * (i + 1)
	}
	a, err := matrix.NewBlockMatrix(bi, bi)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		fi := float64(i)
		require.NoError(t, a.AddBlock(i, i, mat.NewDense(2, 2, []float64{4 + fi, 1, 1, 3 + fi})))
		if i+1 < n {
			require.NoError(t, a.AddBlock(i, i+1, mat.NewDense(2, 2, []float64{0.5, -0.2, 0.1, 0.3})))
		}
	}
	require.NoError(t, a.AddBlock(0, n-1, mat.NewDense(2, 2, []float64{0.2, 0, 0, 0.2})))

	return a
}

func scalarSystem(t *testing.T, vals [][]float64) *matrix.BlockMatrix {
	t.Helper()
	n := len(vals)
	bi := make([]int, n)
	for i := range bi {
		bi[i] = i + 1
	}
	a, err := matrix.NewBlockMatrix(bi, bi)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if vals[i][j] != 0 || i == j {
				require.NoError(t, a.AddBlock(i, j, mat.NewDense(1, 1, []float64{vals[i][j]})))
			}
		}
	}

	return a
}

func rhs(n int) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i%3) - 0.5*float64(i)
	}

	return b
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestSolversAgree(t *testing.T) {
	a := loopSystem(t, 6)
	b := rhs(a.Rows())

	ref := make([]float64, len(b))
	require.NoError(t, linsolve.NewDense().Solve(a, ref, b))

	// residual of the reference
	ax := make([]float64, len(b))
	require.NoError(t, a.MultiplySymmetricUpper(ax, ref))
	require.Empty(t, cmp.Diff(b, ax, approx))

	solvers := []linsolve.Solver{
		linsolve.NewSparseCholesky(),
		linsolve.NewSparseCholesky(linsolve.WithOrdering(linsolve.OrderingNatural)),
		linsolve.NewSparseCholesky(linsolve.WithMode(linsolve.ModeLDLT)),
		linsolve.NewPCG(linsolve.WithTolerance(1e-12), linsolve.WithMaxIterations(200)),
	}
	for _, s := range solvers {
		require.NoError(t, s.Init())
		x := make([]float64, len(b))
		require.NoError(t, s.Solve(a, x, b), s.Name())
		require.Empty(t, cmp.Diff(ref, x, cmpopts.EquateApprox(0, 1e-8)), s.Name())
	}
}

func TestSparseCholeskyCachedAnalysis(t *testing.T) {
	a := loopSystem(t, 4)
	s := linsolve.NewSparseCholesky()
	d := linsolve.NewDense()
	b := rhs(a.Rows())
	x, ref := make([]float64, len(b)), make([]float64, len(b))

	require.NoError(t, s.Solve(a, x, b))
	f1, ok := s.Factor()
	require.True(t, ok)
	p1 := append([]int(nil), f1.P...)

	// same pattern, new values
	require.NoError(t, a.AddBlock(2, 2, mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
	require.NoError(t, s.Solve(a, x, b))
	require.NoError(t, d.Solve(a, ref, b))
	require.Empty(t, cmp.Diff(ref, x, approx))
	f2, _ := s.Factor()
	require.Equal(t, p1, f2.P)

	// new block: pattern changes, analysis redone
	require.NoError(t, a.AddBlock(1, 3, mat.NewDense(2, 2, []float64{0.1, 0, 0, 0.1})))
	require.NoError(t, s.Solve(a, x, b))
	require.NoError(t, d.Solve(a, ref, b))
	require.Empty(t, cmp.Diff(ref, x, approx))
}

func TestMinimumDegreeAvoidsFill(t *testing.T) {
	// star: block 0 coupled to every other block
	vals := [][]float64{
		{10, 1, 1, 1, 1},
		{0, 5, 0, 0, 0},
		{0, 0, 5, 0, 0},
		{0, 0, 0, 5, 0},
		{0, 0, 0, 0, 5},
	}
	a := scalarSystem(t, vals)
	b := rhs(5)
	x := make([]float64, 5)

	md := linsolve.NewSparseCholesky()
	require.NoError(t, md.Solve(a, x, b))
	f, _ := md.Factor()
	require.Equal(t, []int{1, 2, 3, 0, 4}, f.P)
	require.Equal(t, 4, f.L.NNZ())

	nat := linsolve.NewSparseCholesky(linsolve.WithOrdering(linsolve.OrderingNatural))
	y := make([]float64, 5)
	require.NoError(t, nat.Solve(a, y, b))
	f, _ = nat.Factor()
	require.Equal(t, 10, f.L.NNZ())
	require.Empty(t, cmp.Diff(x, y, approx))
}

func TestPivotPolicies(t *testing.T) {
	indef := scalarSystem(t, [][]float64{{1, 2}, {0, 1}})
	x := make([]float64, 2)
	b := []float64{3, 3}

	err := linsolve.NewSparseCholesky().Solve(indef, x, b)
	require.ErrorIs(t, err, linsolve.ErrNotPositiveDefinite)
	require.ErrorIs(t, linsolve.NewDense().Solve(indef, x, b), linsolve.ErrNotPositiveDefinite)

	ldlt := linsolve.NewSparseCholesky(linsolve.WithMode(linsolve.ModeLDLT), linsolve.WithOrdering(linsolve.OrderingNatural))
	require.NoError(t, ldlt.Solve(indef, x, b))
	require.InDeltaSlice(t, []float64{1, 1}, x, 1e-12)

	singular := scalarSystem(t, [][]float64{{1, 1}, {0, 1}})
	err = ldlt.Solve(singular, x, b)
	require.ErrorIs(t, err, linsolve.ErrSingular)
	_, ok := ldlt.Factor()
	require.False(t, ok)

	require.ErrorIs(t, ldlt.Solve(singular, x[:1], b), linsolve.ErrDimension)
}

func TestPCGNotConverged(t *testing.T) {
	a := loopSystem(t, 6)
	b := rhs(a.Rows())
	x := make([]float64, len(b))
	p := linsolve.NewPCG(linsolve.WithMaxIterations(1), linsolve.WithTolerance(1e-14))
	require.ErrorIs(t, p.Solve(a, x, b), linsolve.ErrNotConverged)
	require.Equal(t, 1, p.Iterations())
}
