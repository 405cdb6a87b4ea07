// File: propagator.go
// Role: Initial-estimate propagation along a cheapest spanning tree.
//
// Implementation:
//   - Stage 1: dijkstra.Run from the seeds. Traversing edge e into vertex to
//     costs PropagatorCost(e, from, to), where from lists the positions of
//     e's vertices already finalized by the search.
//   - Stage 2: Walk the tree in pop order and let the action initialize each
//     non-seed vertex from its predecessor edge. Every parent is handled
//     before its children.
package optimizer

import (
	"math"

	"github.com/katalvlaran/graphopt/core"
	"github.com/katalvlaran/graphopt/dijkstra"
)

// PropagatorCost prices initializing position to of an edge from the
// positions in from. +Inf or a negative value forbids the traversal.
type PropagatorCost func(e Edge, vs []Vertex, from []int, to int) float64

// PropagateAction initializes position to of an edge from the positions in from.
type PropagateAction func(e Edge, vs []Vertex, from []int, to int)

// UniformCost charges 1 for every edge able to perform the initialization.
func UniformCost(e Edge, vs []Vertex, from []int, to int) float64 {
	if c := EdgeCost(e, vs, from, to); math.IsInf(c, 1) {
		return c
	}

	return 1
}

// EdgeCost charges the edge's own InitialEstimatePossible value.
func EdgeCost(e Edge, vs []Vertex, from []int, to int) float64 {
	init, ok := e.(EstimateInitializer)
	if !ok {
		return math.Inf(1)
	}
	c := init.InitialEstimatePossible(vs, from, to)
	if c < 0 || math.IsNaN(c) {
		return math.Inf(1)
	}

	return c
}

// OdometryCost is EdgeCost restricted to binary edges between consecutive IDs.
func OdometryCost(e Edge, vs []Vertex, from []int, to int) float64 {
	if len(vs) != 2 || len(from) != 1 {
		return math.Inf(1)
	}
	if d := vs[from[0]].ID() - vs[to].ID(); d != 1 && d != -1 {
		return math.Inf(1)
	}

	return EdgeCost(e, vs, from, to)
}

// InitialEstimateAction calls the edge's InitialEstimate when it has one.
func InitialEstimateAction(e Edge, vs []Vertex, from []int, to int) {
	if init, ok := e.(EstimateInitializer); ok {
		init.InitialEstimate(vs, from, to)
	}
}

// PropagationReport describes one propagation.
type PropagationReport struct {
	// Initialized lists the non-seed vertices handed to the action, in order.
	Initialized []int
	// Cost is the tree distance of every reached vertex, seeds included.
	Cost map[int]float64
	// Unreached lists vertices with a traversable edge that the search never
	// reached, in insertion order.
	Unreached []int
}

// EstimatePropagator initializes vertex estimates from seeds through the edges.
type EstimatePropagator struct {
	g           *Graph
	filter      func(core.EdgeHandle) bool
	maxDistance float64
}

// NewEstimatePropagator returns a propagator over every edge of g.
func NewEstimatePropagator(g *Graph) *EstimatePropagator {
	return &EstimatePropagator{g: g, maxDistance: math.Inf(1)}
}

// SetEdgeFilter restricts propagation to edges accepted by keep; nil removes the filter.
func (p *EstimatePropagator) SetEdgeFilter(keep func(core.EdgeHandle) bool) { p.filter = keep }

// SetMaxDistance leaves vertices farther than d uninitialized.
func (p *EstimatePropagator) SetMaxDistance(d float64) { p.maxDistance = d }

// Propagate runs the search from seeds and applies action along the tree.
// Nil cost means UniformCost, nil action InitialEstimateAction.
//
// Errors: those of dijkstra.Run (empty or unknown seeds, negative costs).
func (p *EstimatePropagator) Propagate(seeds []int, cost PropagatorCost, action PropagateAction) (*PropagationReport, error) {
	if cost == nil {
		cost = UniformCost
	}
	if action == nil {
		action = InitialEstimateAction
	}

	done := make(map[int]bool, len(seeds))
	positions := func(rec *edgeRecord, set map[int]bool) []int {
		var out []int
		for i, id := range rec.ids {
			if set[id] && firstPosition(rec.ids, id) == i {
				out = append(out, i)
			}
		}
		return out
	}
	price := func(h core.EdgeHandle, from, to int) float64 {
		rec, err := p.g.edgeRecord(h)
		if err != nil {
			return math.Inf(1)
		}
		// relaxation happens from finalized vertices only
		done[from] = true
		c := cost(rec.edge, rec.vs, positions(rec, done), firstPosition(rec.ids, to))
		if c < 0 || math.IsNaN(c) {
			return math.Inf(1)
		}
		return c
	}

	opts := []dijkstra.Option{
		dijkstra.Source(seeds...),
		dijkstra.WithCost(price),
		dijkstra.WithMaxDistance(p.maxDistance),
	}
	if p.filter != nil {
		opts = append(opts, dijkstra.WithEdgeFilter(p.filter))
	}
	tree, err := dijkstra.Run(p.g, opts...)
	if err != nil {
		return nil, err
	}

	report := &PropagationReport{Cost: make(map[int]float64, tree.Len())}
	initialized := make(map[int]bool, tree.Len())
	err = tree.Visit(func(en *dijkstra.Entry) error {
		report.Cost[en.Vertex] = en.Distance
		if en.HasParent {
			rec, err := p.g.edgeRecord(en.Edge)
			if err != nil {
				return err
			}
			action(rec.edge, rec.vs, positions(rec, initialized), firstPosition(rec.ids, en.Vertex))
			report.Initialized = append(report.Initialized, en.Vertex)
		}
		initialized[en.Vertex] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidate := make(map[int]bool)
	for _, h := range p.g.Edges() {
		if p.filter != nil && !p.filter(h) {
			continue
		}
		ids, _ := p.g.EdgeVertices(h)
		for _, id := range ids {
			candidate[id] = true
		}
	}
	for _, v := range p.g.Vertices() {
		if id := v.ID(); candidate[id] && !tree.Reached(id) {
			report.Unreached = append(report.Unreached, id)
		}
	}

	return report, nil
}

func firstPosition(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}

	return -1
}
