// File: graph.go
// Role: Optimizable graph: the core hypergraph plus optimization records.
//
// Records:
//   - vertexRecord: fixed / marginalized flags, estimate backup stack.
//   - edgeRecord:   resolved vertex list, error buffer, chi², and the
//     Hessian contribution buffers written during linearization.
//
// Flags take effect at the next InitializeOptimization; topology changes
// (add/remove of vertices or edges) mark any active set built before them stale.
//
// Concurrency:
//   - Add/Remove and flag methods are safe for concurrent use; backups are not.
//   - Mutators hold mu across the hypergraph call and the record update.
//     Lock order: mu, then the core graph lock.
//   - Mutating the graph while Optimize runs is not supported.
package optimizer

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/graphopt/core"
	"github.com/katalvlaran/graphopt/robust"
	"gonum.org/v1/gonum/mat"
)

type vertexRecord struct {
	v            Vertex
	fixed        bool
	marginalized bool
	stack        [][]float64
}

type edgeRecord struct {
	handle core.EdgeHandle
	edge   Edge
	ids    []int
	vs     []Vertex

	err  []float64
	chi2 float64 // eᵀΩe, NaN propagates
	rho  robust.Rho

	// linearization, owned by the block solver
	free    []int          // positions of vertices with a Hessian block
	h       [][]*mat.Dense // h[a][b-a] = J_free[a]ᵀ W J_free[b], a ≤ b
	b       [][]float64    // b[a] = −J_free[a]ᵀ ρ′Ω e
	skipped bool           // non-finite Jacobian in the last linearization
}

// Graph is a hypergraph of Vertex and Edge with optimization bookkeeping.
type Graph struct {
	g *core.Graph[Vertex, Edge]

	mu      sync.RWMutex
	vrec    map[int]*vertexRecord
	erec    map[core.EdgeHandle]*edgeRecord
	version uint64
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		g:    core.NewGraph[Vertex, Edge](),
		vrec: make(map[int]*vertexRecord),
		erec: make(map[core.EdgeHandle]*edgeRecord),
	}
}

// AddVertex inserts v.
//
// Errors:
//   - ErrBadDimension: negative Dimension or EstimateDimension.
//   - core.ErrDuplicateVertex: the ID is taken.
func (g *Graph) AddVertex(v Vertex) error {
	if v.Dimension() < 0 || v.EstimateDimension() < 0 {
		return fmt.Errorf("%w: vertex %d", ErrBadDimension, v.ID())
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.g.AddVertex(v); err != nil {
		return err
	}
	g.vrec[v.ID()] = &vertexRecord{v: v}
	g.version++

	return nil
}

// AddEdge attaches e to the vertices ids, in order.
//
// Implementation:
//   - Stage 1: Validate arity and the information matrix size.
//   - Stage 2: Insert into the hypergraph (vertex existence, loops).
//   - Stage 3: Resolve the vertex list once and allocate the error buffer.
//
// Errors:
//   - ErrArityMismatch, ErrInformationSize.
//   - core.ErrEmptyEdge, core.ErrVertexNotFound, core.ErrLoopNotAllowed.
func (g *Graph) AddEdge(e Edge, ids ...int) (core.EdgeHandle, error) {
	if a := e.Arity(); a >= 0 && a != len(ids) {
		return core.EdgeHandle{}, fmt.Errorf("%w: want %d vertices, got %d", ErrArityMismatch, a, len(ids))
	}
	dim := e.Dimension()
	if info := e.Information(); info == nil || info.SymmetricDim() != dim {
		return core.EdgeHandle{}, fmt.Errorf("%w: error dimension %d", ErrInformationSize, dim)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	h, err := g.g.AddEdge(e, ids...)
	if err != nil {
		return core.EdgeHandle{}, err
	}

	rec := &edgeRecord{
		handle: h,
		edge:   e,
		ids:    append([]int(nil), ids...),
		vs:     make([]Vertex, len(ids)),
		err:    make([]float64, dim),
	}
	for i, id := range ids {
		rec.vs[i], _ = g.g.Vertex(id)
	}

	g.erec[h] = rec
	g.version++

	return h, nil
}

// RemoveEdge detaches the edge behind h.
func (g *Graph) RemoveEdge(h core.EdgeHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.g.RemoveEdge(h); err != nil {
		return err
	}
	delete(g.erec, h)
	g.version++

	return nil
}

// RemoveVertex deletes the vertex and every edge incident to it.
// A concurrent AddEdge on id either lands first and is removed, or fails
// with core.ErrVertexNotFound.
func (g *Graph) RemoveVertex(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	incident, err := g.g.IncidentEdges(id)
	if err != nil {
		return err
	}
	if _, err = g.g.RemoveVertex(id); err != nil {
		return err
	}
	for _, h := range incident {
		delete(g.erec, h)
	}
	delete(g.vrec, id)
	g.version++

	return nil
}

// Vertex returns the vertex with the given ID.
func (g *Graph) Vertex(id int) (Vertex, bool) { return g.g.Vertex(id) }

// Vertices returns all vertices in insertion order.
func (g *Graph) Vertices() []Vertex { return g.g.Vertices() }

// Edge returns the edge behind h.
func (g *Graph) Edge(h core.EdgeHandle) (Edge, bool) { return g.g.Edge(h) }

// Edges returns all edge handles in insertion order.
func (g *Graph) Edges() []core.EdgeHandle { return g.g.Edges() }

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return g.g.VertexCount() }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.g.EdgeCount() }

// HasVertex reports whether id is present.
func (g *Graph) HasVertex(id int) bool { return g.g.HasVertex(id) }

// IncidentEdges returns the edges touching id in insertion order.
func (g *Graph) IncidentEdges(id int) ([]core.EdgeHandle, error) { return g.g.IncidentEdges(id) }

// EdgeVertices returns the ordered vertex IDs of an edge.
func (g *Graph) EdgeVertices(h core.EdgeHandle) ([]int, error) { return g.g.EdgeVertices(h) }

func (g *Graph) vertexRecord(id int) (*vertexRecord, error) {
	g.mu.RLock()
	rec, ok := g.vrec[id]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrVertexNotFound, id)
	}

	return rec, nil
}

func (g *Graph) edgeRecord(h core.EdgeHandle) (*edgeRecord, error) {
	g.mu.RLock()
	rec, ok := g.erec[h]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", core.ErrEdgeNotFound, h)
	}

	return rec, nil
}

// SetFixed pins or releases a vertex.
func (g *Graph) SetFixed(id int, fixed bool) error {
	rec, err := g.vertexRecord(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	rec.fixed = fixed
	g.mu.Unlock()

	return nil
}

// Fixed reports whether the vertex is pinned. Unknown IDs report false.
func (g *Graph) Fixed(id int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.vrec[id]

	return ok && rec.fixed
}

// SetMarginalized marks a vertex for elimination through the Schur complement.
func (g *Graph) SetMarginalized(id int, marginalized bool) error {
	rec, err := g.vertexRecord(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	rec.marginalized = marginalized
	g.mu.Unlock()

	return nil
}

// Marginalized reports the marginalization flag. Unknown IDs report false.
func (g *Graph) Marginalized(id int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.vrec[id]

	return ok && rec.marginalized
}

// Push saves the current estimate of each listed vertex on its backup stack.
func (g *Graph) Push(ids ...int) error {
	return g.eachRecord(ids, (*vertexRecord).push)
}

// Pop restores the most recent backup of each listed vertex and drops it.
//
// Errors:
//   - ErrEmptyStack: a vertex has no backup; vertices listed before it are already restored.
func (g *Graph) Pop(ids ...int) error {
	return g.eachRecord(ids, (*vertexRecord).pop)
}

// DiscardTop drops the most recent backup of each listed vertex without restoring it.
func (g *Graph) DiscardTop(ids ...int) error {
	return g.eachRecord(ids, (*vertexRecord).discardTop)
}

// PushAll backs up every vertex.
func (g *Graph) PushAll() { _ = g.eachRecord(g.g.VertexIDs(), (*vertexRecord).push) }

// PopAll restores every vertex.
func (g *Graph) PopAll() error { return g.eachRecord(g.g.VertexIDs(), (*vertexRecord).pop) }

// DiscardTopAll drops the top backup of every vertex.
func (g *Graph) DiscardTopAll() error {
	return g.eachRecord(g.g.VertexIDs(), (*vertexRecord).discardTop)
}

// eachRecord applies fn to the records of ids in order.
func (g *Graph) eachRecord(ids []int, fn func(*vertexRecord) error) error {
	for _, id := range ids {
		rec, err := g.vertexRecord(id)
		if err != nil {
			return err
		}
		if err = fn(rec); err != nil {
			return fmt.Errorf("vertex %d: %w", id, err)
		}
	}

	return nil
}

func (r *vertexRecord) push() error {
	buf := make([]float64, r.v.EstimateDimension())
	r.v.EstimateData(buf)
	r.stack = append(r.stack, buf)

	return nil
}

func (r *vertexRecord) pop() error {
	n := len(r.stack)
	if n == 0 {
		return ErrEmptyStack
	}
	r.v.SetEstimateData(r.stack[n-1])
	r.stack = r.stack[:n-1]

	return nil
}

func (r *vertexRecord) discardTop() error {
	n := len(r.stack)
	if n == 0 {
		return ErrEmptyStack
	}
	r.stack = r.stack[:n-1]

	return nil
}

// stamp returns the topology version.
func (g *Graph) stamp() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.version
}
