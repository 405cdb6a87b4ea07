package linsolve

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// MarginalCovariance recovers entries of A⁻¹ from a factorization
// A = P·L·D·Lᵀ·Pᵀ. With Z = (L·D·Lᵀ)⁻¹ in permuted indices,
//
//	Z[i][j] = δᵢⱼ/Dᵢ − Σ_{k>i, L[k][i]≠0} L[k][i]·Z[k][j]     (i ≤ j)
//
// Entries are memoized by (min, max) index, so recovering a set of blocks
// that lie inside the fill pattern of L touches only that pattern.
type MarginalCovariance struct {
	f    *Factor
	memo map[[2]int]float64
}

// NewMarginalCovariance wraps a factor. The factor must not change while in use.
func NewMarginalCovariance(f *Factor) *MarginalCovariance {
	return &MarginalCovariance{f: f, memo: make(map[[2]int]float64)}
}

// inPattern reports whether permuted entry (r, c), r < c, is structurally non-zero in L.
func (m *MarginalCovariance) inPattern(r, c int) bool {
	rows := m.f.L.RowInd[m.f.L.ColPtr[r]:m.f.L.ColPtr[r+1]]
	i := sort.SearchInts(rows, c)

	return i < len(rows) && rows[i] == c
}

// Entry returns (A⁻¹)[r][c] for original indices r, c.
//
// Errors: ErrMarginalNotAvailable when the pair lies outside the fill pattern of L.
func (m *MarginalCovariance) Entry(r, c int) (float64, error) {
	n := m.f.N
	if r < 0 || r >= n || c < 0 || c >= n {
		return 0, fmt.Errorf("%w: (%d,%d) out of range", ErrMarginalNotAvailable, r, c)
	}
	pr, pc := m.f.Pinv[r], m.f.Pinv[c]
	if pr > pc {
		pr, pc = pc, pr
	}
	if pr != pc && !m.inPattern(pr, pc) {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrMarginalNotAvailable, r, c)
	}

	return m.entry(pr, pc), nil
}

// entry evaluates the recursion for permuted indices r ≤ c.
func (m *MarginalCovariance) entry(r, c int) float64 {
	key := [2]int{r, c}
	if v, ok := m.memo[key]; ok {
		return v
	}

	l := &m.f.L
	sum := 0.0
	for p := l.ColPtr[r]; p < l.ColPtr[r+1]; p++ {
		k := l.RowInd[p]
		var z float64
		if k < c {
			z = m.entry(k, c)
		} else {
			z = m.entry(c, k)
		}
		sum += l.Values[p] * z
	}
	v := -sum
	if r == c {
		v += 1 / m.f.D[r]
	}
	m.memo[key] = v

	return v
}

// Blocks recovers the requested (row block, col block) pairs of A⁻¹ on the
// block layout given by cumulative boundaries blockIndices.
func (m *MarginalCovariance) Blocks(blockIndices []int, pairs [][2]int) (map[[2]int]*mat.Dense, error) {
	base := func(b int) int {
		if b == 0 {
			return 0
		}
		return blockIndices[b-1]
	}

	out := make(map[[2]int]*mat.Dense, len(pairs))
	for _, pr := range pairs {
		rb, cb := pr[0], pr[1]
		if rb < 0 || rb >= len(blockIndices) || cb < 0 || cb >= len(blockIndices) {
			return nil, fmt.Errorf("%w: block (%d,%d) out of range", ErrMarginalNotAvailable, rb, cb)
		}
		r0, c0 := base(rb), base(cb)
		h, w := blockIndices[rb]-r0, blockIndices[cb]-c0
		blk := mat.NewDense(h, w, nil)
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				v, err := m.Entry(r0+i, c0+j)
				if err != nil {
					return nil, fmt.Errorf("block (%d,%d): %w", rb, cb, err)
				}
				blk.Set(i, j, v)
			}
		}
		out[pr] = blk
	}

	return out, nil
}
