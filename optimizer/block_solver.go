// File: block_solver.go
// Role: Normal-equation assembly and (Schur) solution on the block layout.
//
// Layout:
//   - Free vertices get a block index: poses (not marginalized) 0..P-1, then
//     landmarks (marginalized, Schur enabled) 0..L-1. The scalar vectors b and
//     x hold all pose entries first, then all landmark entries.
//   - Hpp is stored as its upper block triangle, Hll as a block diagonal,
//     Hpl as a P×L block matrix.
//
// Determinism:
//   - Phase 1 writes every edge's blocks into buffers the edge owns. Phase 2
//     fills each destination block from a contribution list fixed at
//     structure time, in edge order, so the result does not depend on the
//     executor or the number of workers.
package optimizer

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/katalvlaran/graphopt/linsolve"
	"github.com/katalvlaran/graphopt/matrix"
	"github.com/katalvlaran/graphopt/parallel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// activeVertex is a vertex of the active set.
type activeVertex struct {
	rec      *vertexRecord
	fixed    bool // pinned, or outside the initialized subset
	block    int  // -1 when the vertex gets no Hessian block
	landmark bool
	base     int // offset into b and x
}

func (av *activeVertex) free() bool { return av.block >= 0 }

// part is one edge contribution to a destination block: rec.h[a][b-a],
// transposed when the destination stores the mirrored pair.
type part struct {
	rec       *edgeRecord
	a, b      int
	transpose bool
}

type hessianSlot struct {
	dst   *mat.Dense
	parts []part
}

type gradientPart struct {
	rec *edgeRecord
	a   int
}

type gradientSlot struct {
	base, dim int
	parts     []gradientPart
}

// schurTerm subtracts hplInv[l][i]·Hpl(q, l)ᵀ, where q is landPoses[l][j].
type schurTerm struct{ l, i, j int }

type schurSlot struct {
	dst   *mat.Dense
	hpp   *mat.Dense // nil when Hpp has no block here
	terms []schurTerm
}

type poseTerm struct{ l, i int }

// BlockSolver assembles H·Δx = b from the active edges and solves it with a
// linsolve.Solver, optionally eliminating landmarks through the Schur complement.
type BlockSolver struct {
	exec   parallel.Executor
	linear linsolve.Solver
	schur  bool

	vertices  []*activeVertex
	edges     []*edgeRecord
	poses     []*activeVertex
	landmarks []*activeVertex
	poseDim   int
	landDim   int

	hpp    *matrix.BlockMatrix
	hll    *matrix.BlockDiagonal
	hllInv *matrix.BlockDiagonal
	hpl    *matrix.BlockMatrix
	hschur *matrix.BlockMatrix

	b, x   []float64
	bschur []float64
	diag   []float64

	hSlots []hessianSlot
	gSlots []gradientSlot

	landPoses  [][]int
	hplBlocks  [][]*mat.Dense
	hplInv     [][]*mat.Dense
	schurSlots []schurSlot
	poseTerms  [][]poseTerm

	workspaces []*JacobianWorkspace
	anomalies  int64

	timeLinearize time.Duration
	timeQuadratic time.Duration
	timeSchur     time.Duration
	timeLinear    time.Duration
}

// NewBlockSolver returns a solver over the given linear solver. A nil
// executor means parallel.Sequential.
func NewBlockSolver(linear linsolve.Solver, exec parallel.Executor, schur bool) *BlockSolver {
	if exec == nil {
		exec = parallel.Sequential{}
	}

	return &BlockSolver{exec: exec, linear: linear, schur: schur}
}

// LinearSolver returns the wrapped linear solver.
func (s *BlockSolver) LinearSolver() linsolve.Solver { return s.linear }

// Schur reports whether landmarks are eliminated through the Schur complement.
func (s *BlockSolver) Schur() bool { return s.schur }

// PoseDimension is the scalar size of the pose part of the system.
func (s *BlockSolver) PoseDimension() int { return s.poseDim }

// LandmarkDimension is the scalar size of the landmark part of the system.
func (s *BlockSolver) LandmarkDimension() int { return s.landDim }

// B returns the gradient vector of the last BuildSystem (poses, then landmarks).
func (s *BlockSolver) B() []float64 { return s.b }

// X returns the increment of the last Solve.
func (s *BlockSolver) X() []float64 { return s.x }

// Anomalies returns how many edges were skipped for non-finite Jacobians in
// the last BuildSystem.
func (s *BlockSolver) Anomalies() int { return int(atomic.LoadInt64(&s.anomalies)) }

// BuildStructure assigns block indices and allocates the Hessian pattern.
//
// Implementation:
//   - Stage 1: Index free vertices, poses first, then landmarks.
//   - Stage 2: Allocate per-edge contribution buffers and route every
//     (vertex, vertex) pair to its destination block.
//   - Stage 3: Allocate Hpp, Hll, Hpl and the gradient slots.
//   - Stage 4: With landmarks, derive the Schur pattern and its term lists.
//   - Stage 5: Size one Jacobian workspace per worker; reset the linear solver.
//
// Errors:
//   - ErrLandmarkCoupling: an edge joins two marginalized vertices.
func (s *BlockSolver) BuildStructure(vertices []*activeVertex, edges []*edgeRecord) error {
	s.vertices, s.edges = vertices, edges
	s.poses, s.landmarks = s.poses[:0], s.landmarks[:0]
	s.poseDim, s.landDim = 0, 0
	byID := make(map[int]*activeVertex, len(vertices))

	for _, av := range vertices {
		byID[av.rec.v.ID()] = av
		av.block, av.landmark = -1, false
		if av.fixed || av.rec.v.Dimension() == 0 {
			continue
		}
		if s.schur && av.rec.marginalized {
			av.landmark = true
			av.block = len(s.landmarks)
			av.base = s.landDim
			s.landmarks = append(s.landmarks, av)
			s.landDim += av.rec.v.Dimension()
			continue
		}
		av.block = len(s.poses)
		av.base = s.poseDim
		s.poses = append(s.poses, av)
		s.poseDim += av.rec.v.Dimension()
	}
	for _, av := range s.landmarks {
		av.base += s.poseDim
	}

	type key struct{ kind, r, c int }
	const (
		kindPP = iota
		kindLL
		kindPL
	)
	slots := make(map[key]int)
	var keys []key
	var parts [][]part
	route := func(k key, p part) {
		i, ok := slots[k]
		if !ok {
			i = len(keys)
			slots[k] = i
			keys = append(keys, k)
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], p)
	}
	grad := make([][]gradientPart, len(s.poses)+len(s.landmarks))
	gradIndex := func(av *activeVertex) int {
		if av.landmark {
			return len(s.poses) + av.block
		}
		return av.block
	}

	for _, rec := range edges {
		rec.free = rec.free[:0]
		for i, id := range rec.ids {
			if byID[id].free() {
				rec.free = append(rec.free, i)
			}
		}
		nf := len(rec.free)
		rec.h = make([][]*mat.Dense, nf)
		rec.b = make([][]float64, nf)
		for a := 0; a < nf; a++ {
			va := byID[rec.ids[rec.free[a]]]
			da := va.rec.v.Dimension()
			rec.b[a] = make([]float64, da)
			grad[gradIndex(va)] = append(grad[gradIndex(va)], gradientPart{rec: rec, a: a})
			rec.h[a] = make([]*mat.Dense, nf-a)
			for b := a; b < nf; b++ {
				vb := byID[rec.ids[rec.free[b]]]
				rec.h[a][b-a] = mat.NewDense(da, vb.rec.v.Dimension(), nil)
				switch {
				case !va.landmark && !vb.landmark:
					if va.block <= vb.block {
						route(key{kindPP, va.block, vb.block}, part{rec, a, b, false})
					} else {
						route(key{kindPP, vb.block, va.block}, part{rec, a, b, true})
					}
				case va.landmark && vb.landmark:
					if a != b {
						return fmt.Errorf("%w: vertices %d and %d", ErrLandmarkCoupling, va.rec.v.ID(), vb.rec.v.ID())
					}
					route(key{kindLL, va.block, va.block}, part{rec, a, b, false})
				case !va.landmark:
					route(key{kindPL, va.block, vb.block}, part{rec, a, b, false})
				default:
					route(key{kindPL, vb.block, va.block}, part{rec, a, b, true})
				}
			}
		}
	}

	poseBI := boundaries(s.poses)
	landBI := boundaries(s.landmarks)
	var err error
	s.hpp, s.hll, s.hllInv, s.hpl, s.hschur = nil, nil, nil, nil, nil
	if len(poseBI) > 0 {
		if s.hpp, err = matrix.NewBlockMatrix(poseBI, poseBI); err != nil {
			return err
		}
	}
	if len(landBI) > 0 {
		if s.hll, err = matrix.NewBlockDiagonal(landBI); err != nil {
			return err
		}
		if s.hllInv, err = matrix.NewBlockDiagonal(landBI); err != nil {
			return err
		}
		if len(poseBI) > 0 {
			if s.hpl, err = matrix.NewBlockMatrix(poseBI, landBI); err != nil {
				return err
			}
		}
	}

	s.hSlots = make([]hessianSlot, len(keys))
	for i, k := range keys {
		var dst *mat.Dense
		switch k.kind {
		case kindPP:
			dst, err = s.hpp.Block(k.r, k.c, true)
		case kindLL:
			dst, err = s.hll.Block(k.r)
		default:
			dst, err = s.hpl.Block(k.r, k.c, true)
		}
		if err != nil {
			return err
		}
		s.hSlots[i] = hessianSlot{dst: dst, parts: parts[i]}
	}
	s.gSlots = make([]gradientSlot, len(grad))
	for i, av := range append(append([]*activeVertex(nil), s.poses...), s.landmarks...) {
		s.gSlots[i] = gradientSlot{base: av.base, dim: av.rec.v.Dimension(), parts: grad[i]}
	}

	n := s.poseDim + s.landDim
	s.b = make([]float64, n)
	s.x = make([]float64, n)
	s.diag = make([]float64, n)

	if err = s.buildSchurStructure(); err != nil {
		return err
	}

	s.workspaces = make([]*JacobianWorkspace, s.exec.Workers())
	for w := range s.workspaces {
		ws := &JacobianWorkspace{}
		for _, rec := range edges {
			dims := make([]int, len(rec.vs))
			for i, v := range rec.vs {
				dims[i] = v.Dimension()
			}
			ws.UpdateSize(rec.edge.Dimension(), dims)
		}
		ws.Allocate()
		s.workspaces[w] = ws
	}

	return s.linear.Init()
}

func boundaries(vs []*activeVertex) []int {
	if len(vs) == 0 {
		return nil
	}
	out := make([]int, len(vs))
	acc := 0
	for i, av := range vs {
		acc += av.rec.v.Dimension()
		out[i] = acc
	}

	return out
}

// buildSchurStructure derives the pattern of Hpp − Hpl·Hll⁻¹·Hplᵀ.
//
// Implementation:
//   - Stage 1: collect the fill pattern (upper Hpp blocks plus every pose pair
//     sharing a landmark) in a HashMap shard.
//   - Stage 2: merge the shard into the reduced matrix and number the slots
//     in the shard's column-major key order.
//   - Stage 3: attach the per-landmark terms to their slots.
func (s *BlockSolver) buildSchurStructure() error {
	s.landPoses, s.hplBlocks, s.hplInv, s.schurSlots, s.poseTerms = nil, nil, nil, nil, nil
	if s.hll == nil || s.hpp == nil {
		return nil
	}

	bi := s.hpp.RowBlockIndices()
	fill, err := matrix.NewHashMap(bi, bi)
	if err != nil {
		return err
	}
	s.hpp.ForEach(func(r, c int, _ *mat.Dense) {
		if r <= c {
			_, _ = fill.Block(r, c, true)
		}
	})
	L := len(s.landmarks)
	s.landPoses = make([][]int, L)
	for l := 0; l < L; l++ {
		rows := s.hpl.ColumnRows(l)
		s.landPoses[l] = rows
		for i, p := range rows {
			for _, q := range rows[i:] {
				if _, err = fill.Block(p, q, true); err != nil {
					return err
				}
			}
		}
	}

	hs, err := matrix.NewBlockMatrix(bi, bi)
	if err != nil {
		return err
	}
	if err = fill.MergeInto(hs); err != nil {
		return err
	}
	keys := fill.Keys()
	index := make(map[[2]int]int, len(keys))
	slots := make([]schurSlot, len(keys))
	for i, k := range keys {
		index[k] = i
		slots[i].dst, _ = hs.Block(k[0], k[1], false)
		slots[i].hpp, _ = s.hpp.Block(k[0], k[1], false)
	}

	s.hplBlocks = make([][]*mat.Dense, L)
	s.hplInv = make([][]*mat.Dense, L)
	s.poseTerms = make([][]poseTerm, len(s.poses))
	for l, rows := range s.landPoses {
		s.hplBlocks[l] = make([]*mat.Dense, len(rows))
		s.hplInv[l] = make([]*mat.Dense, len(rows))
		for i, p := range rows {
			s.hplBlocks[l][i], _ = s.hpl.Block(p, l, false)
			s.hplInv[l][i] = mat.NewDense(s.hpl.RowsOfBlock(p), s.hpl.ColsOfBlock(l), nil)
			s.poseTerms[p] = append(s.poseTerms[p], poseTerm{l: l, i: i})
			for j := i; j < len(rows); j++ {
				k := index[[2]int{p, rows[j]}]
				slots[k].terms = append(slots[k].terms, schurTerm{l: l, i: i, j: j})
			}
		}
	}
	s.hschur = hs
	s.schurSlots = slots
	s.bschur = make([]float64, s.poseDim)

	return nil
}

// BuildSystem linearizes every active edge at the current estimate and
// assembles H and b.
//
// Implementation:
//   - Stage 1 (parallel over edges): error, chi², kernel weights, Jacobians,
//     then the edge-owned blocks JᵢᵀWJⱼ and −JᵢᵀW′e with W = ρ′Ω.
//   - Stage 2 (parallel over destination blocks): sum contributions in edge order.
func (s *BlockSolver) BuildSystem() error {
	atomic.StoreInt64(&s.anomalies, 0)
	start := time.Now()
	err := s.exec.For(len(s.edges), func(w, i int) error {
		s.linearizeEdge(s.workspaces[w], s.edges[i])
		return nil
	})
	s.timeLinearize = time.Since(start)
	if err != nil {
		return err
	}

	start = time.Now()
	err = s.exec.For(len(s.hSlots)+len(s.gSlots), func(_, i int) error {
		if i < len(s.hSlots) {
			sumHessianSlot(&s.hSlots[i])
		} else {
			sumGradientSlot(&s.gSlots[i-len(s.hSlots)], s.b)
		}
		return nil
	})
	s.timeQuadratic = time.Since(start)

	return err
}

func sumHessianSlot(sl *hessianSlot) {
	sl.dst.Zero()
	for _, p := range sl.parts {
		if p.rec.skipped {
			continue
		}
		src := p.rec.h[p.a][p.b-p.a]
		if p.transpose {
			sl.dst.Add(sl.dst, src.T())
		} else {
			sl.dst.Add(sl.dst, src)
		}
	}
}

func sumGradientSlot(sl *gradientSlot, b []float64) {
	dst := b[sl.base : sl.base+sl.dim]
	for i := range dst {
		dst[i] = 0
	}
	for _, p := range sl.parts {
		if p.rec.skipped {
			continue
		}
		floats.Add(dst, p.rec.b[p.a])
	}
}

// linearizeEdge runs on one worker and writes only into rec.
func (s *BlockSolver) linearizeEdge(ws *JacobianWorkspace, rec *edgeRecord) {
	computeEdgeError(rec)
	rec.skipped = false
	if len(rec.free) == 0 {
		return
	}

	jac := ws.jacobians(rec)
	if lin, ok := rec.edge.(Linearizer); ok {
		lin.LinearizeOplus(rec.vs, jac)
	} else {
		numericJacobian(rec.edge, rec.vs, rec.free, jac)
	}

	w := rec.rho[1]
	ok := !math.IsNaN(w) && !math.IsInf(w, 0) && !math.IsNaN(rec.chi2) && !math.IsInf(rec.chi2, 0)
	for _, i := range rec.free {
		ok = ok && finite(jac[i])
	}
	if !ok {
		rec.skipped = true
		atomic.AddInt64(&s.anomalies, 1)
		return
	}

	dim := rec.edge.Dimension()
	var weighted mat.Dense
	weighted.Scale(w, rec.edge.Information())

	we := mat.NewVecDense(dim, nil)
	we.MulVec(&weighted, mat.NewVecDense(dim, rec.err))
	var wj mat.Dense
	for b, j := range rec.free {
		wj.Reset()
		wj.Mul(&weighted, jac[j])
		for a := 0; a <= b; a++ {
			rec.h[a][b-a].Mul(jac[rec.free[a]].T(), &wj)
		}
	}
	for a, i := range rec.free {
		bv := mat.NewVecDense(len(rec.b[a]), rec.b[a])
		bv.MulVec(jac[i].T(), we)
		bv.ScaleVec(-1, bv)
	}
}

// computeEdgeError refreshes err, chi² and the kernel weights of rec.
func computeEdgeError(rec *edgeRecord) {
	rec.edge.ComputeError(rec.vs, rec.err)
	dim := rec.edge.Dimension()
	e := mat.NewVecDense(dim, rec.err)
	rec.chi2 = mat.Inner(e, rec.edge.Information(), e)
	if k := rec.edge.RobustKernel(); k != nil {
		rec.rho = k.Robustify(rec.chi2)
	} else {
		rec.rho = [3]float64{rec.chi2, 1, 0}
	}
}

// SetLambda adds λ to the diagonal of Hpp and Hll. With backup the current
// diagonal is saved for RestoreDiagonal.
func (s *BlockSolver) SetLambda(lambda float64, backup bool) {
	s.eachDiagonal(func(blk *mat.Dense, base int) {
		n, _ := blk.Dims()
		for i := 0; i < n; i++ {
			v := blk.At(i, i)
			if backup {
				s.diag[base+i] = v
			}
			blk.Set(i, i, v+lambda)
		}
	})
}

// RestoreDiagonal undoes SetLambda(_, true).
func (s *BlockSolver) RestoreDiagonal() {
	s.eachDiagonal(func(blk *mat.Dense, base int) {
		n, _ := blk.Dims()
		for i := 0; i < n; i++ {
			blk.Set(i, i, s.diag[base+i])
		}
	})
}

// MaxDiagonal returns the largest diagonal entry of H.
func (s *BlockSolver) MaxDiagonal() float64 {
	max := 0.0
	s.eachDiagonal(func(blk *mat.Dense, _ int) {
		n, _ := blk.Dims()
		for i := 0; i < n; i++ {
			if v := math.Abs(blk.At(i, i)); v > max {
				max = v
			}
		}
	})

	return max
}

func (s *BlockSolver) eachDiagonal(fn func(blk *mat.Dense, base int)) {
	for _, av := range s.poses {
		blk, _ := s.hpp.Block(av.block, av.block, true)
		fn(blk, av.base)
	}
	for _, av := range s.landmarks {
		blk, _ := s.hll.Block(av.block)
		fn(blk, av.base)
	}
}

// Solve computes x from the assembled system.
//
// Errors: numerical failures of the linear solver or of a landmark block
// inverse (linsolve.ErrNotPositiveDefinite, linsolve.ErrSingular, ...).
func (s *BlockSolver) Solve() error {
	s.timeSchur, s.timeLinear = 0, 0
	for i := range s.x {
		s.x[i] = 0
	}
	if s.hll == nil {
		return s.solvePoses(s.hpp, s.b[:s.poseDim])
	}

	start := time.Now()
	if err := s.hll.InvertSymmetricInto(s.hllInv); err != nil {
		return fmt.Errorf("%w: landmark block: %v", linsolve.ErrNotPositiveDefinite, err)
	}
	if s.hpp == nil {
		s.timeSchur = time.Since(start)
		return s.hllInv.MultiplyVector(s.x, s.b)
	}
	if err := s.schurComplement(); err != nil {
		return err
	}
	s.timeSchur = time.Since(start)

	if err := s.solvePoses(s.hschur, s.bschur); err != nil {
		return err
	}

	start = time.Now()
	err := s.exec.For(len(s.landmarks), func(_, l int) error {
		av := s.landmarks[l]
		d := av.rec.v.Dimension()
		r := append([]float64(nil), s.b[av.base:av.base+d]...)
		rv := mat.NewVecDense(d, r)
		var t mat.VecDense
		for i, p := range s.landPoses[l] {
			pv := s.poses[p]
			xp := mat.NewVecDense(pv.rec.v.Dimension(), s.x[pv.base:pv.base+pv.rec.v.Dimension()])
			t.Reset()
			t.MulVec(s.hplBlocks[l][i].T(), xp)
			rv.SubVec(rv, &t)
		}
		inv, _ := s.hllInv.Block(l)
		mat.NewVecDense(d, s.x[av.base:av.base+d]).MulVec(inv, rv)
		return nil
	})
	s.timeSchur += time.Since(start)

	return err
}

func (s *BlockSolver) solvePoses(a *matrix.BlockMatrix, b []float64) error {
	if a == nil {
		return nil
	}
	start := time.Now()
	err := s.linear.Solve(a, s.x[:s.poseDim], b)
	s.timeLinear = time.Since(start)

	return err
}

// schurComplement fills hschur and bschur from the current H, b and Hll⁻¹.
func (s *BlockSolver) schurComplement() error {
	err := s.exec.For(len(s.landmarks), func(_, l int) error {
		inv, _ := s.hllInv.Block(l)
		for i, blk := range s.hplBlocks[l] {
			s.hplInv[l][i].Mul(blk, inv)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.exec.For(len(s.schurSlots), func(_, k int) error {
		sl := &s.schurSlots[k]
		if sl.hpp != nil {
			sl.dst.Copy(sl.hpp)
		} else {
			sl.dst.Zero()
		}
		var t mat.Dense
		for _, tm := range sl.terms {
			t.Reset()
			t.Mul(s.hplInv[tm.l][tm.i], s.hplBlocks[tm.l][tm.j].T())
			sl.dst.Sub(sl.dst, &t)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.exec.For(len(s.poses), func(_, p int) error {
		av := s.poses[p]
		d := av.rec.v.Dimension()
		dst := s.bschur[av.base : av.base+d]
		copy(dst, s.b[av.base:av.base+d])
		var t mat.VecDense
		for _, tm := range s.poseTerms[p] {
			lv := s.landmarks[tm.l]
			dl := lv.rec.v.Dimension()
			t.Reset()
			t.MulVec(s.hplInv[tm.l][tm.i], mat.NewVecDense(dl, s.b[lv.base:lv.base+dl]))
			for r := 0; r < d; r++ {
				dst[r] -= t.AtVec(r)
			}
		}
		return nil
	})
}

// MultiplyHessian computes dst = H·src on the full (unreduced) system.
func (s *BlockSolver) MultiplyHessian(dst, src []float64) error {
	n := s.poseDim + s.landDim
	if len(dst) != n || len(src) != n {
		return fmt.Errorf("%w: hessian product %d/%d, want %d", matrix.ErrDimensionMismatch, len(dst), len(src), n)
	}
	P := s.poseDim
	if s.hpp != nil {
		if err := s.hpp.MultiplySymmetricUpper(dst[:P], src[:P]); err != nil {
			return err
		}
	}
	if s.hll == nil {
		return nil
	}
	if err := s.hll.MultiplyVector(dst[P:], src[P:]); err != nil {
		return err
	}
	if s.hpl == nil {
		return nil
	}
	tp := make([]float64, P)
	if err := s.hpl.MultiplyVector(tp, src[P:]); err != nil {
		return err
	}
	floats.Add(dst[:P], tp)
	tl := make([]float64, s.landDim)
	if err := s.hpl.MultiplyTransposeVector(tl, src[:P]); err != nil {
		return err
	}
	floats.Add(dst[P:], tl)

	return nil
}

// Marginals returns covariance blocks for pairs of free vertices, in the
// current linearization without damping. Pose pairs come from the linear
// solver; a landmark is available only on the diagonal, as
//
//	Σ_ll = D + D·(Σ_{p,q} H_plᵀ Σ_pq H_ql)·D,  D = H_ll⁻¹.
//
// Errors:
//   - ErrNoMarginals: the linear solver is not a linsolve.Marginaler.
//   - linsolve.ErrMarginalNotAvailable: landmark off-diagonal or pose–landmark
//     pairs, and pose pairs outside the factor's fill pattern.
func (s *BlockSolver) Marginals(pairs [][2]*activeVertex) ([]*mat.Dense, error) {
	m, ok := s.linear.(linsolve.Marginaler)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMarginals, s.linear.Name())
	}

	system := s.hpp
	if s.hll != nil && s.hpp != nil {
		if err := s.hll.InvertSymmetricInto(s.hllInv); err != nil {
			return nil, fmt.Errorf("%w: landmark block: %v", linsolve.ErrNotPositiveDefinite, err)
		}
		if err := s.schurComplement(); err != nil {
			return nil, err
		}
		system = s.hschur
	}

	var posePairs [][2]int
	seen := make(map[[2]int]bool)
	want := func(p, q int) {
		k := [2]int{p, q}
		if !seen[k] {
			seen[k] = true
			posePairs = append(posePairs, k)
		}
	}
	for _, pr := range pairs {
		a, b := pr[0], pr[1]
		switch {
		case !a.landmark && !b.landmark:
			want(a.block, b.block)
		case a == b:
			if s.landPoses == nil {
				continue
			}
			for i, p := range s.landPoses[a.block] {
				for _, q := range s.landPoses[a.block][i:] {
					want(p, q)
				}
			}
		default:
			return nil, fmt.Errorf("%w: vertices %d and %d", linsolve.ErrMarginalNotAvailable, a.rec.v.ID(), b.rec.v.ID())
		}
	}

	var cov map[[2]int]*mat.Dense
	if len(posePairs) > 0 {
		var err error
		if cov, err = m.Marginals(system, posePairs); err != nil {
			return nil, err
		}
	}
	if s.hll != nil && s.hpp == nil {
		if err := s.hll.InvertSymmetricInto(s.hllInv); err != nil {
			return nil, fmt.Errorf("%w: landmark block: %v", linsolve.ErrNotPositiveDefinite, err)
		}
	}

	out := make([]*mat.Dense, len(pairs))
	for k, pr := range pairs {
		a, b := pr[0], pr[1]
		if !a.landmark && !b.landmark {
			out[k] = mat.DenseCopyOf(cov[[2]int{a.block, b.block}])
			continue
		}
		out[k] = s.landmarkMarginal(a.block, cov)
	}

	return out, nil
}

func (s *BlockSolver) landmarkMarginal(l int, cov map[[2]int]*mat.Dense) *mat.Dense {
	d, _ := s.hllInv.Block(l)
	n, _ := d.Dims()
	inner := mat.NewDense(n, n, nil)
	var t, u mat.Dense
	var rows []int
	if s.landPoses != nil {
		rows = s.landPoses[l]
	}
	for i, p := range rows {
		for j, q := range rows {
			var spq mat.Matrix
			if p <= q {
				spq = cov[[2]int{p, q}]
			} else {
				spq = cov[[2]int{q, p}].T()
			}
			t.Reset()
			t.Mul(s.hplBlocks[l][i].T(), spq)
			u.Reset()
			u.Mul(&t, s.hplBlocks[l][j])
			inner.Add(inner, &u)
		}
	}
	out := mat.DenseCopyOf(d)
	t.Reset()
	t.Mul(d, inner)
	u.Reset()
	u.Mul(&t, d)
	out.Add(out, &u)

	return out
}
