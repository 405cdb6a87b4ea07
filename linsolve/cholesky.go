package linsolve

import (
	"fmt"
	"math"

	"github.com/katalvlaran/graphopt/matrix"
	"gonum.org/v1/gonum/mat"
)

// Mode selects the pivot policy of SparseCholesky.
type Mode int

const (
	// ModeLLT requires every pivot to be positive (A must be SPD).
	ModeLLT Mode = iota
	// ModeLDLT accepts negative pivots and rejects only exact zeros.
	ModeLDLT
)

// CholeskyOption configures SparseCholesky.
type CholeskyOption func(*SparseCholesky)

// WithMode selects LLᵀ (default) or LDLᵀ pivoting.
func WithMode(m Mode) CholeskyOption {
	return func(s *SparseCholesky) { s.mode = m }
}

// WithOrdering selects the fill-reducing ordering (default OrderingMinimumDegree).
func WithOrdering(o Ordering) CholeskyOption {
	return func(s *SparseCholesky) { s.ordering = o }
}

// Factor is A = P·L·D·Lᵀ·Pᵀ with L unit lower triangular in compressed columns
// (diagonal omitted) and D diagonal. P[k] is the original index at position k;
// Pinv is its inverse.
type Factor struct {
	N    int
	P    []int
	Pinv []int
	L    matrix.CCS
	D    []float64
}

// SparseCholesky is an up-looking LDLᵀ factorization over compressed columns.
//
// Implementation:
//   - Stage 1: A (upper block triangle) is written into an upper CCS; FillCCS
//     reports whether its pattern changed since the previous call.
//   - Stage 2 (symbolic, cached): full symmetric pattern, ordering, elimination
//     tree and column counts of L.
//   - Stage 3 (numeric, every call): up-looking row-by-row LDLᵀ.
//   - Stage 4: permute, forward solve, diagonal solve, backward solve, permute back.
type SparseCholesky struct {
	mode     Mode
	ordering Ordering

	upper matrix.CCS
	valid bool // symbolic analysis matches upper's pattern

	// symbolic
	full    matrix.CCS // both triangles
	fullSrc []int      // full.Values[p] = upper.Values[fullSrc[p]]
	parent  []int
	lnz     []int
	flag    []int
	pattern []int
	y       []float64

	factor   Factor
	factored bool
	work     []float64
}

// NewSparseCholesky returns a sparse solver; defaults are ModeLLT and OrderingMinimumDegree.
func NewSparseCholesky(opts ...CholeskyOption) *SparseCholesky {
	s := &SparseCholesky{mode: ModeLLT, ordering: OrderingMinimumDegree}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name implements Solver.
func (s *SparseCholesky) Name() string {
	if s.mode == ModeLDLT {
		return "ldlt"
	}

	return "cholesky"
}

// Init implements Solver: the next call redoes the symbolic analysis.
func (s *SparseCholesky) Init() error {
	s.valid = false
	s.factored = false

	return nil
}

// Factor returns the last successful factorization.
func (s *SparseCholesky) Factor() (*Factor, bool) {
	if !s.factored {
		return nil, false
	}

	return &s.factor, true
}

// Factorize computes the numeric factorization of a, reusing the symbolic
// analysis when the sparsity pattern is unchanged.
func (s *SparseCholesky) Factorize(a *matrix.BlockMatrix) error {
	s.factored = false
	changed, err := a.FillCCS(&s.upper, matrix.Upper)
	if err != nil {
		return err
	}
	if changed || !s.valid {
		if err := s.analyze(a); err != nil {
			return err
		}
	}
	for p, q := range s.fullSrc {
		s.full.Values[p] = s.upper.Values[q]
	}
	if err := s.numeric(); err != nil {
		return err
	}
	s.factored = true

	return nil
}

// Solve implements Solver.
func (s *SparseCholesky) Solve(a *matrix.BlockMatrix, x, b []float64) error {
	if err := checkDims(a, x, b); err != nil {
		return err
	}
	if err := s.Factorize(a); err != nil {
		return err
	}
	s.factor.solve(x, b, s.work)

	return nil
}

// Marginals implements Marginaler through MarginalCovariance on a fresh factorization.
func (s *SparseCholesky) Marginals(a *matrix.BlockMatrix, pairs [][2]int) (map[[2]int]*mat.Dense, error) {
	if err := s.Factorize(a); err != nil {
		return nil, err
	}
	mc := NewMarginalCovariance(&s.factor)

	return mc.Blocks(a.RowBlockIndices(), pairs)
}

// analyze builds the full symmetric pattern, the ordering and the elimination tree.
func (s *SparseCholesky) analyze(a *matrix.BlockMatrix) error {
	s.buildFull()
	n := s.full.N

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if s.ordering == OrderingMinimumDegree {
		pat, err := a.Pattern()
		if err != nil {
			return err
		}
		perm = expandBlockOrder(minimumDegree(pat), a.RowBlockIndices())
	}
	pinv := make([]int, n)
	for k, i := range perm {
		pinv[i] = k
	}

	s.parent = make([]int, n)
	s.lnz = make([]int, n)
	s.flag = make([]int, n)
	s.pattern = make([]int, n)
	s.y = make([]float64, n)
	s.work = make([]float64, n)
	lp := make([]int, n+1)

	ap, ai := s.full.ColPtr, s.full.RowInd
	for k := 0; k < n; k++ {
		s.parent[k] = -1
		s.flag[k] = k
		s.lnz[k] = 0
		kk := perm[k]
		for p := ap[kk]; p < ap[kk+1]; p++ {
			i := pinv[ai[p]]
			if i >= k {
				continue
			}
			// walk up the elimination tree from i to the root of k's subtree
			for ; s.flag[i] != k; i = s.parent[i] {
				if s.parent[i] == -1 {
					s.parent[i] = k
				}
				s.lnz[i]++
				s.flag[i] = k
			}
		}
	}
	for k := 0; k < n; k++ {
		lp[k+1] = lp[k] + s.lnz[k]
	}

	s.factor = Factor{
		N:    n,
		P:    perm,
		Pinv: pinv,
		L: matrix.CCS{
			N: n, M: n,
			ColPtr: lp,
			RowInd: make([]int, lp[n]),
			Values: make([]float64, lp[n]),
		},
		D: make([]float64, n),
	}
	s.valid = true

	return nil
}

// buildFull mirrors the upper CCS into a full symmetric CCS with sorted rows
// and records where every value comes from.
func (s *SparseCholesky) buildFull() {
	u := &s.upper
	n := u.N
	count := make([]int, n)
	for j := 0; j < n; j++ {
		for p := u.ColPtr[j]; p < u.ColPtr[j+1]; p++ {
			count[j]++
			if i := u.RowInd[p]; i != j {
				count[i]++
			}
		}
	}

	colPtr := make([]int, n+1)
	for j := 0; j < n; j++ {
		colPtr[j+1] = colPtr[j] + count[j]
	}
	next := make([]int, n)
	copy(next, colPtr[:n])
	nnz := colPtr[n]
	rowInd := make([]int, nnz)
	src := make([]int, nnz)

	// rows ≤ j of column j come straight from the upper triangle
	for j := 0; j < n; j++ {
		for p := u.ColPtr[j]; p < u.ColPtr[j+1]; p++ {
			rowInd[next[j]] = u.RowInd[p]
			src[next[j]] = p
			next[j]++
		}
	}
	// rows > i of column i are the transposed upper entries, ascending in j
	for j := 0; j < n; j++ {
		for p := u.ColPtr[j]; p < u.ColPtr[j+1]; p++ {
			i := u.RowInd[p]
			if i == j {
				continue
			}
			rowInd[next[i]] = j
			src[next[i]] = p
			next[i]++
		}
	}

	s.full = matrix.CCS{N: n, M: n, ColPtr: colPtr, RowInd: rowInd, Values: make([]float64, nnz)}
	s.fullSrc = src
}

// numeric computes L and D row by row (up-looking). Row k of L is the
// solution of a sparse triangular system whose pattern is the reach of
// column k in the elimination tree.
func (s *SparseCholesky) numeric() error {
	f := &s.factor
	n := f.N
	ap, ai, ax := s.full.ColPtr, s.full.RowInd, s.full.Values
	lp, li, lx := f.L.ColPtr, f.L.RowInd, f.L.Values
	y, flag, pattern, lnz := s.y, s.flag, s.pattern, s.lnz

	for k := 0; k < n; k++ {
		y[k] = 0
		top := n
		flag[k] = k
		lnz[k] = 0
		kk := f.P[k]
		for p := ap[kk]; p < ap[kk+1]; p++ {
			i := f.Pinv[ai[p]]
			if i > k {
				continue
			}
			y[i] += ax[p]
			l := 0
			for ; flag[i] != k; i = s.parent[i] {
				pattern[l] = i
				l++
				flag[i] = k
			}
			for l > 0 {
				top--
				l--
				pattern[top] = pattern[l]
			}
		}

		f.D[k] = y[k]
		y[k] = 0
		for ; top < n; top++ {
			i := pattern[top]
			yi := y[i]
			y[i] = 0
			p2 := lp[i] + lnz[i]
			for p := lp[i]; p < p2; p++ {
				y[li[p]] -= lx[p] * yi
			}
			lki := yi / f.D[i]
			f.D[k] -= lki * yi
			li[p2] = k
			lx[p2] = lki
			lnz[i]++
		}

		d := f.D[k]
		switch {
		case math.IsNaN(d) || math.IsInf(d, 0):
			return fmt.Errorf("%w: pivot %d is %g", ErrNotPositiveDefinite, k, d)
		case s.mode == ModeLLT && d <= 0:
			return fmt.Errorf("%w: pivot %d is %g", ErrNotPositiveDefinite, k, d)
		case d == 0:
			return fmt.Errorf("%w: pivot %d", ErrSingular, k)
		}
	}

	return nil
}

// solve computes x = A⁻¹b using the factor; work has length N.
func (f *Factor) solve(x, b, work []float64) {
	n := f.N
	lp, li, lx := f.L.ColPtr, f.L.RowInd, f.L.Values
	for k := 0; k < n; k++ {
		work[k] = b[f.P[k]]
	}
	for j := 0; j < n; j++ {
		wj := work[j]
		for p := lp[j]; p < lp[j+1]; p++ {
			work[li[p]] -= lx[p] * wj
		}
	}
	for j := 0; j < n; j++ {
		work[j] /= f.D[j]
	}
	for j := n - 1; j >= 0; j-- {
		for p := lp[j]; p < lp[j+1]; p++ {
			work[j] -= lx[p] * work[li[p]]
		}
	}
	for k := 0; k < n; k++ {
		x[f.P[k]] = work[k]
	}
}
