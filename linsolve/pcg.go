package linsolve

import (
	"fmt"
	"math"

	"github.com/katalvlaran/graphopt/matrix"
	"gonum.org/v1/gonum/floats"
)

// PCGOption configures PCG.
type PCGOption func(*PCG)

// WithTolerance sets the relative residual target ‖r‖ ≤ tol·‖b‖ (default 1e-9).
func WithTolerance(tol float64) PCGOption {
	return func(p *PCG) {
		if tol > 0 {
			p.tol = tol
		}
	}
}

// WithMaxIterations caps the iterations; 0 means the system dimension.
func WithMaxIterations(n int) PCGOption {
	return func(p *PCG) {
		if n >= 0 {
			p.maxIter = n
		}
	}
}

// PCG is a conjugate gradient solver preconditioned by the inverse diagonal
// blocks of A (block Jacobi). The preconditioner is rebuilt on every Solve.
type PCG struct {
	tol     float64
	maxIter int

	lastIter int
	r, z, p  []float64
	ap       []float64
}

// NewPCG returns a PCG solver.
func NewPCG(opts ...PCGOption) *PCG {
	p := &PCG{tol: 1e-9}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name implements Solver.
func (*PCG) Name() string { return "pcg" }

// Init implements Solver.
func (*PCG) Init() error { return nil }

// Iterations returns the iteration count of the last Solve.
func (p *PCG) Iterations() int { return p.lastIter }

// Solve implements Solver. x is overwritten; the iteration starts from zero.
func (p *PCG) Solve(a *matrix.BlockMatrix, x, b []float64) error {
	if err := checkDims(a, x, b); err != nil {
		return err
	}
	n := len(b)

	diag, err := matrix.NewBlockDiagonal(a.RowBlockIndices())
	if err != nil {
		return err
	}
	for i := 0; i < a.RowBlocks(); i++ {
		blk, _ := a.Block(i, i, false)
		if blk == nil {
			return fmt.Errorf("%w: empty diagonal block %d", ErrNotPositiveDefinite, i)
		}
		d, _ := diag.Block(i)
		d.Copy(blk)
	}
	prec, _ := matrix.NewBlockDiagonal(a.RowBlockIndices())
	if err := diag.InvertSymmetricInto(prec); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	p.r = resize(p.r, n)
	p.z = resize(p.z, n)
	p.p = resize(p.p, n)
	p.ap = resize(p.ap, n)
	for i := range x {
		x[i] = 0
	}
	copy(p.r, b)

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		p.lastIter = 0
		return nil
	}
	maxIter := p.maxIter
	if maxIter == 0 {
		maxIter = n
	}

	var rho, rhoPrev float64
	for it := 0; it < maxIter; it++ {
		_ = prec.MultiplyVector(p.z, p.r) // z = M⁻¹ r
		rho = floats.Dot(p.r, p.z)
		if it == 0 {
			copy(p.p, p.z)
		} else {
			beta := rho / rhoPrev
			floats.AddScaledTo(p.p, p.z, beta, p.p) // p = z + β p
		}
		if err := a.MultiplySymmetricUpper(p.ap, p.p); err != nil {
			return err
		}
		pap := floats.Dot(p.p, p.ap)
		if pap <= 0 || math.IsNaN(pap) {
			p.lastIter = it + 1
			return fmt.Errorf("%w: pᵀAp = %g", ErrNotPositiveDefinite, pap)
		}
		alpha := rho / pap
		floats.AddScaled(x, alpha, p.p)
		floats.AddScaled(p.r, -alpha, p.ap)
		rhoPrev = rho

		if floats.Norm(p.r, 2) <= p.tol*bnorm {
			p.lastIter = it + 1
			return nil
		}
	}
	p.lastIter = maxIter

	return ErrNotConverged
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}

	return s[:n]
}
