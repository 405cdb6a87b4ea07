// Package linsolve solves the symmetric block systems A·x = b assembled by the
// optimizer and recovers selected blocks of A⁻¹ (marginal covariances).
//
// A is always passed as a *matrix.BlockMatrix holding the upper block triangle
// of a symmetric matrix, diagonal blocks in full.
//
// Backends:
//
//   - Dense:          gonum mat.Cholesky on the expanded matrix.
//   - SparseCholesky: up-looking LDLᵀ over compressed columns with a cached
//     symbolic analysis (ordering, elimination tree, column counts).
//   - PCG:            block-Jacobi preconditioned conjugate gradient.
//
// Numerical failures are reported with ErrNotPositiveDefinite or ErrSingular;
// the optimizer turns them into rejected steps.
package linsolve

import (
	"errors"

	"github.com/katalvlaran/graphopt/matrix"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotPositiveDefinite indicates a failed Cholesky (non-positive pivot).
	ErrNotPositiveDefinite = errors.New("linsolve: matrix not positive definite")

	// ErrSingular indicates a zero pivot in LDLᵀ mode.
	ErrSingular = errors.New("linsolve: matrix singular")

	// ErrNotConverged indicates that an iterative solver hit its iteration cap.
	ErrNotConverged = errors.New("linsolve: iterative solver did not converge")

	// ErrDimension indicates that x or b do not match the matrix.
	ErrDimension = errors.New("linsolve: vector length does not match matrix")

	// ErrMarginalNotAvailable indicates a requested covariance entry outside
	// the fill pattern of the factor.
	ErrMarginalNotAvailable = errors.New("linsolve: marginal not available")

	// ErrNoFactor indicates that marginals were requested before a successful factorization.
	ErrNoFactor = errors.New("linsolve: no factorization available")
)

// Solver solves symmetric block systems.
type Solver interface {
	// Init drops any cached analysis; the next Solve treats the pattern as new.
	Init() error
	// Solve writes the solution of A·x = b into x.
	Solve(a *matrix.BlockMatrix, x, b []float64) error
	Name() string
}

// Marginaler recovers blocks of A⁻¹. pairs are (row block, col block)
// coordinates; the result is keyed by the same pairs.
type Marginaler interface {
	Marginals(a *matrix.BlockMatrix, pairs [][2]int) (map[[2]int]*mat.Dense, error)
}

func checkDims(a *matrix.BlockMatrix, x, b []float64) error {
	if !a.SquareLayout() {
		return matrix.ErrNonSquare
	}
	if len(x) != a.Rows() || len(b) != a.Rows() {
		return ErrDimension
	}

	return nil
}
