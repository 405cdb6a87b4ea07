// File: sparse_optimizer.go
// Role: Active-set management and the iteration driver.
//
// Lifecycle:
//
//	New → AddVertex/AddEdge → InitializeOptimization(level) → Optimize(n) ...
//
// InitializeOptimization snapshots the active set (edges of one level and
// their vertices), assigns Hessian blocks and allocates the system. Any
// topology change afterwards makes Optimize return ErrNotInitialized until
// the next initialization.
package optimizer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/katalvlaran/graphopt/core"
	"github.com/katalvlaran/graphopt/linsolve"
	"github.com/katalvlaran/graphopt/parallel"
	"gonum.org/v1/gonum/mat"
)

// State is the phase of an Optimize call.
type State int

const (
	// StateInitializing covers the initial error evaluation.
	StateInitializing State = iota
	// StateIterating means iterations are running.
	StateIterating
	// StateConverged means the algorithm or a post-iteration action declared convergence.
	StateConverged
	// StateMaxIterations means the iteration limit was reached.
	StateMaxIterations
	// StateFailed means the algorithm could not find an acceptable step.
	StateFailed
	// StateStopped means a force stop, the time budget or a pre-iteration action ended the run.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateMaxIterations:
		return "max-iterations"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Result summarizes an Optimize call. Chi² values are robust.
type Result struct {
	Iterations  int
	Converged   bool
	State       State
	InitialChi2 float64
	FinalChi2   float64
}

// SparseOptimizer drives an Algorithm over the active part of its Graph.
type SparseOptimizer struct {
	*Graph

	algorithm  Algorithm
	linear     linsolve.Solver
	exec       parallel.Executor
	verbose    bool
	timeBudget time.Duration
	schur      bool
	pre, post  []Action

	solver      *BlockSolver
	vertices    []*activeVertex
	byID        map[int]*activeVertex
	edges       []*edgeRecord
	stamp       uint64
	initialized bool
	algoReady   bool

	forceStop   atomic.Bool
	initialChi2 float64
	stats       []IterationStats
	cur         *IterationStats
}

// New returns an optimizer over an empty graph. Defaults: Levenberg,
// sparse Cholesky, sequential execution, Schur enabled.
func New(opts ...Option) *SparseOptimizer {
	o := &SparseOptimizer{
		Graph: NewGraph(),
		exec:  parallel.Sequential{},
		schur: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.algorithm == nil {
		o.algorithm = NewLevenberg()
	}
	if o.linear == nil {
		o.linear = linsolve.NewSparseCholesky()
	}
	o.solver = NewBlockSolver(o.linear, o.exec, o.schur)

	return o
}

// Algorithm returns the configured algorithm.
func (o *SparseOptimizer) Algorithm() Algorithm { return o.algorithm }

// Solver returns the block solver.
func (o *SparseOptimizer) Solver() *BlockSolver { return o.solver }

// SetForceStop requests (or clears a request) that the running Optimize
// stop before its next iteration. Safe to call from another goroutine.
func (o *SparseOptimizer) SetForceStop(stop bool) { o.forceStop.Store(stop) }

// ForceStop reports the force-stop flag.
func (o *SparseOptimizer) ForceStop() bool { return o.forceStop.Load() }

// InitializeOptimization activates every edge of the given level and the
// vertices they touch.
func (o *SparseOptimizer) InitializeOptimization(level int) error {
	return o.initialize(nil, level)
}

// InitializeOptimizationSubset activates the edges of the given level that
// touch at least one listed vertex. Vertices reached through those edges but
// not listed are held fixed for this active set.
//
// Errors:
//   - core.ErrVertexNotFound: a listed ID is absent.
func (o *SparseOptimizer) InitializeOptimizationSubset(ids []int, level int) error {
	subset := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !o.HasVertex(id) {
			return fmt.Errorf("%w: %d", core.ErrVertexNotFound, id)
		}
		subset[id] = true
	}

	return o.initialize(subset, level)
}

// initialize builds the active set.
//
// Implementation:
//   - Stage 1: Select edges of the level (and touching the subset, if any), in insertion order.
//   - Stage 2: Select their vertices in vertex insertion order; apply fixed flags.
//   - Stage 3: Build the block structure.
func (o *SparseOptimizer) initialize(subset map[int]bool, level int) error {
	o.initialized = false
	o.algoReady = false
	stamp := o.Graph.stamp()

	touched := make(map[int]bool)
	o.edges = o.edges[:0]
	for _, h := range o.Edges() {
		rec, err := o.edgeRecord(h)
		if err != nil {
			return err
		}
		if rec.edge.Level() != level {
			continue
		}
		if subset != nil {
			in := false
			for _, id := range rec.ids {
				in = in || subset[id]
			}
			if !in {
				continue
			}
		}
		o.edges = append(o.edges, rec)
		for _, id := range rec.ids {
			touched[id] = true
		}
	}

	o.vertices = o.vertices[:0]
	o.byID = make(map[int]*activeVertex, len(touched))
	o.Graph.mu.RLock()
	for _, v := range o.Graph.Vertices() {
		id := v.ID()
		if !touched[id] {
			continue
		}
		rec := o.Graph.vrec[id]
		av := &activeVertex{rec: rec, fixed: rec.fixed || (subset != nil && !subset[id])}
		o.vertices = append(o.vertices, av)
		o.byID[id] = av
	}
	o.Graph.mu.RUnlock()

	if err := o.solver.BuildStructure(o.vertices, o.edges); err != nil {
		return err
	}
	o.stamp = stamp
	o.initialized = true

	return nil
}

func (o *SparseOptimizer) checkInitialized() error {
	if !o.initialized || o.Graph.stamp() != o.stamp {
		return ErrNotInitialized
	}

	return nil
}

// ActiveVertices returns the IDs of the active vertices in insertion order.
func (o *SparseOptimizer) ActiveVertices() []int {
	out := make([]int, len(o.vertices))
	for i, av := range o.vertices {
		out[i] = av.rec.v.ID()
	}

	return out
}

// ActiveEdges returns the handles of the active edges in insertion order.
func (o *SparseOptimizer) ActiveEdges() []core.EdgeHandle {
	out := make([]core.EdgeHandle, len(o.edges))
	for i, rec := range o.edges {
		out[i] = rec.handle
	}

	return out
}

// ComputeActiveErrors evaluates the error, chi² and kernel weights of every active edge.
func (o *SparseOptimizer) ComputeActiveErrors() error {
	start := time.Now()
	err := o.exec.For(len(o.edges), func(_, i int) error {
		computeEdgeError(o.edges[i])
		return nil
	})
	if o.cur != nil {
		o.cur.TimeResiduals += time.Since(start)
	}

	return err
}

// ActiveChi2 sums eᵀΩe over the active edges from the last error evaluation.
// A non-finite edge makes the sum non-finite.
func (o *SparseOptimizer) ActiveChi2() float64 {
	sum := 0.0
	for _, rec := range o.edges {
		sum += rec.chi2
	}

	return sum
}

// ActiveRobustChi2 sums ρ(eᵀΩe) over the active edges.
func (o *SparseOptimizer) ActiveRobustChi2() float64 {
	sum := 0.0
	for _, rec := range o.edges {
		sum += rec.rho[0]
	}

	return sum
}

// EdgeChi2 returns eᵀΩe of an edge from its last error evaluation.
func (o *SparseOptimizer) EdgeChi2(h core.EdgeHandle) (float64, error) {
	rec, err := o.edgeRecord(h)
	if err != nil {
		return 0, err
	}

	return rec.chi2, nil
}

// EdgeError returns a copy of an edge's last error vector.
func (o *SparseOptimizer) EdgeError(h core.EdgeHandle) ([]float64, error) {
	rec, err := o.edgeRecord(h)
	if err != nil {
		return nil, err
	}

	return append([]float64(nil), rec.err...), nil
}

// Statistics returns the per-iteration records of the last Optimize call.
func (o *SparseOptimizer) Statistics() []IterationStats {
	return append([]IterationStats(nil), o.stats...)
}

// Optimize runs at most maxIterations iterations of the algorithm.
//
// Implementation:
//   - Stage 1: Verify the active set; evaluate the initial robust chi².
//   - Stage 2: With no active edge, report convergence without iterating.
//   - Stage 3: Per iteration: stop checks, pre actions, Algorithm.Solve,
//     error refresh, statistics, verbose line, post actions.
//
// Errors:
//   - ErrNotInitialized: no active set, or the topology changed since.
//   - Errors returned by the algorithm (not numerical failures, which end in StateFailed).
func (o *SparseOptimizer) Optimize(maxIterations int) (Result, error) {
	res := Result{State: StateInitializing}
	if err := o.checkInitialized(); err != nil {
		return res, err
	}
	o.stats = o.stats[:0]
	o.cur = nil
	if err := o.ComputeActiveErrors(); err != nil {
		return res, err
	}
	res.InitialChi2 = o.ActiveRobustChi2()
	res.FinalChi2 = res.InitialChi2
	o.initialChi2 = res.InitialChi2
	if len(o.edges) == 0 {
		res.State, res.Converged = StateConverged, true
		return res, nil
	}
	if !o.algoReady {
		if err := o.algorithm.Init(o); err != nil {
			return res, err
		}
		o.algoReady = true
	}

	res.State = StateIterating
	start := time.Now()
	for it := 0; res.State == StateIterating; it++ {
		if it >= maxIterations {
			res.State = StateMaxIterations
			break
		}
		if o.ForceStop() || (o.timeBudget > 0 && time.Since(start) >= o.timeBudget) {
			res.State = StateStopped
			break
		}
		if runActions(o.pre, o, it) {
			res.State = StateStopped
			break
		}

		st := &IterationStats{Iteration: it}
		o.cur = st
		iterStart := time.Now()
		status, err := o.algorithm.Solve(it)
		if err != nil {
			o.cur = nil
			res.State = StateFailed
			return res, err
		}
		res.Iterations++
		if err = o.ComputeActiveErrors(); err != nil {
			o.cur = nil
			return res, err
		}
		st.TimeIteration = time.Since(iterStart)
		st.Chi2 = o.ActiveRobustChi2()
		st.HessianPoseDimension = o.solver.PoseDimension()
		st.HessianLandmarkDimension = o.solver.LandmarkDimension()
		st.NumVertices = len(o.vertices)
		st.NumEdges = len(o.edges)
		st.NumericAnomalies = o.solver.Anomalies()
		o.algorithm.Describe(st)
		o.stats = append(o.stats, *st)
		o.cur = nil

		if o.verbose {
			o.logIteration(st, time.Since(start))
		}
		if runActions(o.post, o, it) {
			res.State = StateConverged
			break
		}
		switch status {
		case StatusConverged:
			res.State = StateConverged
		case StatusFail:
			res.State = StateFailed
		}
	}
	res.FinalChi2 = o.ActiveRobustChi2()
	res.Converged = res.State == StateConverged

	return res, nil
}

func runActions(actions []Action, o *SparseOptimizer, it int) bool {
	stop := false
	for _, a := range actions {
		stop = a(o, it) || stop
	}

	return stop
}

func (o *SparseOptimizer) logIteration(st *IterationStats, cum time.Duration) {
	line := fmt.Sprintf("iteration= %d\t chi2= %f\t time= %f\t cumTime= %f\t edges= %d",
		st.Iteration, st.Chi2, st.TimeIteration.Seconds(), cum.Seconds(), st.NumEdges)
	if o.solver.Schur() {
		line += fmt.Sprintf("\t schur= %d", boolInt(o.solver.LandmarkDimension() > 0))
	}
	switch {
	case st.LevenbergIterations > 0:
		line += fmt.Sprintf("\t lambda= %f\t levenbergIter= %d", st.Lambda, st.LevenbergIterations)
	case st.StepType != "":
		line += fmt.Sprintf("\t delta= %f\t step= %s", st.TrustRadius, st.StepType)
	}
	Logf("%s", line)
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// buildSystem linearizes the active edges, recording timings.
func (o *SparseOptimizer) buildSystem() error {
	err := o.solver.BuildSystem()
	if o.cur != nil {
		o.cur.TimeLinearize += o.solver.timeLinearize
		o.cur.TimeQuadraticForm += o.solver.timeQuadratic
	}

	return err
}

// solveSystem solves the assembled system, recording timings.
func (o *SparseOptimizer) solveSystem() error {
	err := o.solver.Solve()
	if o.cur != nil {
		o.cur.TimeSchur += o.solver.timeSchur
		o.cur.TimeLinearSolver += o.solver.timeLinear
	}

	return err
}

// update applies x to the free active vertices through Oplus.
func (o *SparseOptimizer) update(x []float64) error {
	start := time.Now()
	err := o.exec.For(len(o.vertices), func(_, i int) error {
		av := o.vertices[i]
		if !av.free() {
			return nil
		}
		d := av.rec.v.Dimension()
		av.rec.v.Oplus(x[av.base : av.base+d])
		return nil
	})
	if o.cur != nil {
		o.cur.TimeUpdate += time.Since(start)
	}

	return err
}

// push, pop and discardTop act on the backup stacks of the free active vertices.
func (o *SparseOptimizer) push() {
	for _, av := range o.vertices {
		if av.free() {
			_ = av.rec.push()
		}
	}
}

func (o *SparseOptimizer) pop() {
	for _, av := range o.vertices {
		if av.free() {
			_ = av.rec.pop()
		}
	}
}

func (o *SparseOptimizer) discardTop() {
	for _, av := range o.vertices {
		if av.free() {
			_ = av.rec.discardTop()
		}
	}
}

// ComputeMarginals linearizes at the current estimate and returns the
// covariance blocks for the requested vertex-ID pairs, keyed as given.
//
// Errors:
//   - ErrNotInitialized.
//   - linsolve.ErrMarginalNotAvailable: a vertex is inactive or fixed, or the
//     pair is not recoverable (see BlockSolver.Marginals).
//   - ErrNoMarginals: the linear solver cannot recover covariances.
func (o *SparseOptimizer) ComputeMarginals(pairs [][2]int) (map[[2]int]*mat.Dense, error) {
	if err := o.checkInitialized(); err != nil {
		return nil, err
	}
	req := make([][2]*activeVertex, len(pairs))
	for i, pr := range pairs {
		for k, id := range pr {
			av, ok := o.byID[id]
			if !ok || !av.free() {
				return nil, fmt.Errorf("%w: vertex %d is not a free active vertex", linsolve.ErrMarginalNotAvailable, id)
			}
			req[i][k] = av
		}
	}
	if err := o.buildSystem(); err != nil {
		return nil, err
	}
	blocks, err := o.solver.Marginals(req)
	if err != nil {
		return nil, err
	}
	out := make(map[[2]int]*mat.Dense, len(pairs))
	for i, pr := range pairs {
		out[pr] = blocks[i]
	}

	return out, nil
}
