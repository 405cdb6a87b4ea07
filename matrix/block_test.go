// SPDX-License-Identifier: MIT
package matrix_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/katalvlaran/graphopt/matrix"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// symmetric3 builds blocks [2,1] on a 3x3 symmetric matrix:
//
//	| 4 1 | 2 |
//	| 1 5 | 3 |
//	| 2 3 | 6 |
func symmetric3(t *testing.T) *matrix.BlockMatrix {
	t.Helper()
	m, err := matrix.NewBlockMatrix([]int{2, 3}, []int{2, 3})
	require.NoError(t, err)
	require.NoError(t, m.AddBlock(0, 0, mat.NewDense(2, 2, []float64{4, 1, 1, 5})))
	require.NoError(t, m.AddBlock(0, 1, mat.NewDense(2, 1, []float64{2, 3})))
	require.NoError(t, m.AddBlock(1, 1, mat.NewDense(1, 1, []float64{6})))

	return m
}

func TestNewBlockMatrixShape(t *testing.T) {
	_, err := matrix.NewBlockMatrix(nil, []int{1})
	require.ErrorIs(t, err, matrix.ErrBadShape)
	_, err = matrix.NewBlockMatrix([]int{2, 2}, []int{1})
	require.ErrorIs(t, err, matrix.ErrBadShape)
	_, err = matrix.NewBlockMatrix([]int{0, 2}, []int{1})
	require.ErrorIs(t, err, matrix.ErrBadShape)

	m, err := matrix.NewBlockMatrix([]int{3, 5, 6}, []int{2, 6})
	require.NoError(t, err)
	require.Equal(t, 6, m.Rows())
	require.Equal(t, 6, m.Cols())
	require.Equal(t, 3, m.RowBaseOfBlock(1))
	require.Equal(t, 2, m.RowsOfBlock(1))
	require.Equal(t, 4, m.ColsOfBlock(1))
	require.False(t, m.SquareLayout())
}

func TestBlockAllocateAndAccumulate(t *testing.T) {
	m, err := matrix.NewBlockMatrix([]int{2, 3}, []int{2, 3})
	require.NoError(t, err)

	b, err := m.Block(1, 0, false)
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = m.Block(1, 0, true)
	require.NoError(t, err)
	r, c := b.Dims()
	require.Equal(t, 1, r)
	require.Equal(t, 2, c)
	require.Equal(t, 0.0, mat.Sum(b))

	require.NoError(t, m.AddBlock(1, 0, mat.NewDense(1, 2, []float64{1, 2})))
	require.NoError(t, m.AddBlock(1, 0, mat.NewDense(1, 2, []float64{10, 20})))
	require.Equal(t, []float64{11, 22}, b.RawRowView(0))

	err = m.AddBlock(1, 0, mat.NewDense(2, 2, nil))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = m.Block(2, 0, true)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	require.Equal(t, 1, m.NonZeroBlocks())
	require.Equal(t, 2, m.NonZeros())
	m.SetZero()
	require.Equal(t, 1, m.NonZeroBlocks())
	require.Equal(t, 0.0, mat.Sum(b))
	m.Clear()
	require.Zero(t, m.NonZeroBlocks())
}

func TestConcurrentAddBlockSums(t *testing.T) {
	m, err := matrix.NewBlockMatrix([]int{1, 2, 3}, []int{1, 2, 3})
	require.NoError(t, err)
	one := mat.NewDense(1, 1, []float64{1})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = m.AddBlock(i%3, (i/3)%3, one)
			}
		}()
	}
	wg.Wait()

	total := 0.0
	m.ForEach(func(_, _ int, b *mat.Dense) { total += b.At(0, 0) })
	require.Equal(t, 800.0, total)
}

// TestAddBlockOrderIndependent sums distinct contributions in several orders.
func TestAddBlockOrderIndependent(t *testing.T) {
	type contribution struct {
		r, c int
		b    *mat.Dense
	}
	bi := []int{2, 3, 5}
	rng := rand.New(rand.NewSource(7))
	var cs []contribution
	for k := 0; k < 40; k++ {
		r, c := rng.Intn(3), rng.Intn(3)
		rows, cols := bi[r]-base(bi, r), bi[c]-base(bi, c)
		data := make([]float64, rows*cols)
		for i := range data {
			data[i] = rng.NormFloat64() * float64(k+1)
		}
		cs = append(cs, contribution{r: r, c: c, b: mat.NewDense(rows, cols, data)})
	}

	sum := func(order []contribution) *mat.Dense {
		m, err := matrix.NewBlockMatrix(bi, bi)
		require.NoError(t, err)
		for _, x := range order {
			require.NoError(t, m.AddBlock(x.r, x.c, x.b))
		}
		return m.Dense()
	}
	ref := sum(cs)

	approx := cmpopts.EquateApprox(0, 1e-12)
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]contribution(nil), cs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := sum(shuffled)
		require.Empty(t, cmp.Diff(ref.RawMatrix().Data, got.RawMatrix().Data, approx), "trial %d", trial)
	}

	// reversed into a shard, then merged
	h, err := matrix.NewHashMap(bi, bi)
	require.NoError(t, err)
	for i := len(cs) - 1; i >= 0; i-- {
		require.NoError(t, h.AddBlock(cs[i].r, cs[i].c, cs[i].b))
	}
	m, err := matrix.NewBlockMatrix(bi, bi)
	require.NoError(t, err)
	require.NoError(t, h.MergeInto(m))
	require.Empty(t, cmp.Diff(ref.RawMatrix().Data, m.Dense().RawMatrix().Data, approx))
}

func base(bi []int, i int) int {
	if i == 0 {
		return 0
	}

	return bi[i-1]
}

func TestForEachOrderAndColumnRows(t *testing.T) {
	m, err := matrix.NewBlockMatrix([]int{1, 2, 3}, []int{1, 2, 3})
	require.NoError(t, err)
	for _, rc := range [][2]int{{2, 1}, {0, 2}, {1, 1}, {0, 1}, {2, 0}} {
		_, err := m.Block(rc[0], rc[1], true)
		require.NoError(t, err)
	}

	var got [][2]int
	m.ForEach(func(r, c int, _ *mat.Dense) { got = append(got, [2]int{r, c}) })
	require.Equal(t, [][2]int{{2, 0}, {0, 1}, {1, 1}, {2, 1}, {0, 2}}, got)
	require.Equal(t, []int{0, 1, 2}, m.ColumnRows(1))
}

func TestMultiplyKernels(t *testing.T) {
	m := symmetric3(t)
	x := []float64{1, 2, 3}
	want := []float64{4 + 2 + 6, 1 + 10 + 9, 2 + 6 + 18}

	got := make([]float64, 3)
	require.NoError(t, m.MultiplySymmetricUpper(got, x))
	require.Equal(t, want, got)

	sym, err := m.SymmetricDense()
	require.NoError(t, err)
	var ref mat.VecDense
	ref.MulVec(sym, mat.NewVecDense(3, x))
	require.Equal(t, want, ref.RawVector().Data)

	// Plain product only sees the stored upper blocks.
	require.NoError(t, m.MultiplyVector(got, x))
	require.Equal(t, []float64{4 + 2 + 6, 1 + 10 + 9, 18}, got)

	require.NoError(t, m.MultiplyTransposeVector(got, x))
	require.Equal(t, []float64{4 + 2, 1 + 10, 2 + 6 + 18}, got)

	require.ErrorIs(t, m.MultiplyVector(got[:2], x), matrix.ErrDimensionMismatch)
}

func TestCloneTransposeDense(t *testing.T) {
	m := symmetric3(t)
	c := m.Clone()
	require.True(t, mat.Equal(m.Dense(), c.Dense()))
	require.NoError(t, c.AddBlock(0, 0, mat.NewDense(2, 2, []float64{1, 1, 1, 1})))
	require.False(t, mat.Equal(m.Dense(), c.Dense()))

	tr := m.Transpose()
	require.True(t, mat.Equal(tr.Dense(), mat.DenseCopyOf(m.Dense().T())))
	b, err := tr.Block(1, 0, false)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3}, b.RawRowView(0))
}

func TestBlockDiagonalInverse(t *testing.T) {
	d, err := matrix.NewBlockDiagonal([]int{2, 3})
	require.NoError(t, err)
	b0, _ := d.Block(0)
	b0.Copy(mat.NewDense(2, 2, []float64{2, 1, 1, 2}))
	b1, _ := d.Block(1)
	b1.Set(0, 0, 4)

	inv, err := matrix.NewBlockDiagonal([]int{2, 3})
	require.NoError(t, err)
	require.NoError(t, d.InvertSymmetricInto(inv))

	i0, _ := inv.Block(0)
	want := mat.NewDense(2, 2, []float64{2.0 / 3, -1.0 / 3, -1.0 / 3, 2.0 / 3})
	require.True(t, mat.EqualApprox(i0, want, 1e-12))
	i1, _ := inv.Block(1)
	require.InDelta(t, 0.25, i1.At(0, 0), 1e-15)

	out := make([]float64, 3)
	require.NoError(t, inv.MultiplyVector(out, []float64{1, 1, 4}))
	require.Empty(t, cmp.Diff([]float64{1.0 / 3, 1.0 / 3, 1}, out, cmpopts.EquateApprox(0, 1e-12)))

	b1.Set(0, 0, -1)
	require.ErrorIs(t, d.InvertSymmetricInto(inv), matrix.ErrNotSPD)
}

func TestHashMapMergeAndPattern(t *testing.T) {
	bi := []int{1, 3, 4}
	m, err := matrix.NewBlockMatrix(bi, bi)
	require.NoError(t, err)
	h, err := matrix.NewHashMap(bi, bi)
	require.NoError(t, err)

	require.NoError(t, h.AddBlock(0, 2, mat.NewDense(1, 1, []float64{1})))
	require.NoError(t, h.AddBlock(1, 1, mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
	require.NoError(t, h.AddBlock(0, 2, mat.NewDense(1, 1, []float64{2})))
	require.Equal(t, [][2]int{{1, 1}, {0, 2}}, h.Keys())
	require.NoError(t, h.MergeInto(m))
	require.NoError(t, h.MergeInto(m))

	b, _ := m.Block(0, 2, false)
	require.Equal(t, 6.0, b.At(0, 0))

	other, _ := matrix.NewBlockMatrix([]int{4}, []int{4})
	require.ErrorIs(t, h.MergeInto(other), matrix.ErrDimensionMismatch)

	p, err := m.Pattern()
	require.NoError(t, err)
	require.Equal(t, []int{2}, p.Neighbors(0))
	require.Empty(t, p.Neighbors(1))
	require.Equal(t, []int{0}, p.Neighbors(2))
}
