// Package dijkstra defines core types and configuration options for the
// generalized Dijkstra search over hypergraphs.
//
// Options:
//
//	– Source(ids...):       seed vertices, all at distance 0 (at least one, each present).
//	– WithCost(fn):         per-traversal cost; default UniformCost (1 per edge).
//	– WithMaxDistance(d):   vertices farther than d are left unreached (d ≥ 0).
//	– WithEdgeFilter(fn):   edges for which fn returns false are never traversed.
//
// Errors (sentinel):
//
//	– ErrNilGraph        if the provided topology is nil.
//	– ErrEmptySource     if no seed vertex was given.
//	– ErrVertexNotFound  if a seed vertex does not exist.
//	– ErrNegativeCost    if the cost function returns a negative value or NaN.
//	– ErrBadMaxDistance  if MaxDistance is negative or NaN.
package dijkstra

import (
	"errors"
	"math"

	"github.com/katalvlaran/graphopt/core"
)

// Sentinel errors returned by Run.
var (
	// ErrNilGraph indicates that a nil Topology was passed to Run.
	ErrNilGraph = errors.New("dijkstra: graph is nil")

	// ErrEmptySource indicates that no seed vertex was configured.
	ErrEmptySource = errors.New("dijkstra: no source vertex")

	// ErrVertexNotFound indicates that a seed vertex does not exist in the graph.
	ErrVertexNotFound = errors.New("dijkstra: source vertex not found in graph")

	// ErrNegativeCost indicates that the cost function produced a negative or NaN cost.
	ErrNegativeCost = errors.New("dijkstra: negative edge cost encountered")

	// ErrBadMaxDistance indicates that MaxDistance was set to a negative value or NaN.
	ErrBadMaxDistance = errors.New("dijkstra: MaxDistance must be non-negative")
)

// Topology is the read-only view of a hypergraph that the search needs.
// *core.Graph[V, E] satisfies it for any V and E.
type Topology interface {
	HasVertex(id int) bool
	IncidentEdges(id int) ([]core.EdgeHandle, error)
	EdgeVertices(h core.EdgeHandle) ([]int, error)
}

// CostFunc returns the cost of reaching vertex to from vertex from through edge e.
// math.Inf(1) marks the traversal as impossible; negative values are rejected.
type CostFunc func(e core.EdgeHandle, from, to int) float64

// UniformCost charges 1 per traversed edge.
func UniformCost(core.EdgeHandle, int, int) float64 { return 1 }

// Options configures Run.
type Options struct {
	Sources     []int
	Cost        CostFunc
	MaxDistance float64
	EdgeFilter  func(core.EdgeHandle) bool
}

// Option represents a functional option for configuring Run.
type Option func(*Options)

// Source appends seed vertices. Duplicates are ignored.
func Source(ids ...int) Option {
	return func(o *Options) {
		o.Sources = append(o.Sources, ids...)
	}
}

// WithCost replaces UniformCost.
func WithCost(fn CostFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Cost = fn
		}
	}
}

// WithMaxDistance caps the explored distance. Vertices whose best distance
// exceeds max are reported unreached. Negative values make Run fail with ErrBadMaxDistance.
func WithMaxDistance(max float64) Option {
	return func(o *Options) {
		o.MaxDistance = max
	}
}

// WithEdgeFilter restricts the traversal to edges accepted by keep.
func WithEdgeFilter(keep func(core.EdgeHandle) bool) Option {
	return func(o *Options) {
		o.EdgeFilter = keep
	}
}

// DefaultOptions returns Options with UniformCost, no distance cap and no edge filter.
func DefaultOptions() Options {
	return Options{
		Cost:        UniformCost,
		MaxDistance: math.Inf(1),
	}
}

// Entry describes one reached vertex of the shortest-path tree.
type Entry struct {
	Vertex    int
	Parent    int             // valid only when HasParent
	Edge      core.EdgeHandle // edge used to reach Vertex from Parent; valid only when HasParent
	HasParent bool            // false for seeds
	Distance  float64
	Order     int   // pop position, 0-based
	Children  []int // in pop order
}

// TreeAction is invoked for each tree entry by Tree.Visit. A non-nil error stops the walk.
type TreeAction func(e *Entry) error
