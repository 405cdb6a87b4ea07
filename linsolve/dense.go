package linsolve

import (
	"fmt"

	"github.com/katalvlaran/graphopt/matrix"
	"gonum.org/v1/gonum/mat"
)

// Dense expands A into a gonum SymDense and factors it with mat.Cholesky.
// It suits small problems and serves as the reference for the sparse backends.
type Dense struct {
	chol mat.Cholesky
	ok   bool
}

// NewDense returns a dense Cholesky solver.
func NewDense() *Dense { return &Dense{} }

// Name implements Solver.
func (*Dense) Name() string { return "dense" }

// Init implements Solver. The dense backend caches nothing across patterns.
func (d *Dense) Init() error {
	d.ok = false
	return nil
}

func (d *Dense) factorize(a *matrix.BlockMatrix) error {
	sym, err := a.SymmetricDense()
	if err != nil {
		return err
	}
	d.ok = d.chol.Factorize(sym)
	if !d.ok {
		return ErrNotPositiveDefinite
	}
	return nil
}

// Solve implements Solver.
func (d *Dense) Solve(a *matrix.BlockMatrix, x, b []float64) error {
	if err := checkDims(a, x, b); err != nil {
		return err
	}
	if err := d.factorize(a); err != nil {
		return err
	}
	xv := mat.NewVecDense(len(x), x)
	if err := d.chol.SolveVecTo(xv, mat.NewVecDense(len(b), b)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	return nil
}

// Marginals implements Marginaler by inverting the whole matrix.
func (d *Dense) Marginals(a *matrix.BlockMatrix, pairs [][2]int) (map[[2]int]*mat.Dense, error) {
	if err := d.factorize(a); err != nil {
		return nil, err
	}
	var inv mat.SymDense
	if err := d.chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	full := mat.DenseCopyOf(&inv)
	out := make(map[[2]int]*mat.Dense, len(pairs))
	for _, p := range pairs {
		r, c := p[0], p[1]
		if r < 0 || r >= a.RowBlocks() || c < 0 || c >= a.ColBlocks() {
			return nil, fmt.Errorf("marginal (%d,%d): %w", r, c, matrix.ErrOutOfRange)
		}
		r0, c0 := a.RowBaseOfBlock(r), a.ColBaseOfBlock(c)
		out[p] = mat.DenseCopyOf(full.Slice(r0, r0+a.RowsOfBlock(r), c0, c0+a.ColsOfBlock(c)))
	}

	return out, nil
}
