package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/katalvlaran/graphopt/optimizer"
)

// ErrUnknownTag indicates a registry lookup for an unregistered tag.
var ErrUnknownTag = errors.New("types: unknown tag")

// VertexFactory builds a vertex with the given ID at its default estimate.
type VertexFactory func(id int) optimizer.Vertex

// EdgeFactory builds an edge with a default measurement and identity information.
type EdgeFactory func() optimizer.Edge

// Registry maps tags to vertex and edge factories.
type Registry struct {
	mu       sync.RWMutex
	vertices map[string]VertexFactory
	edges    map[string]EdgeFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{vertices: make(map[string]VertexFactory), edges: make(map[string]EdgeFactory)}
}

// DefaultRegistry returns a registry holding the planar types of this package:
// VERTEX_SE2, VERTEX_XY, EDGE_SE2, EDGE_SE2_PRIOR and EDGE_SE2_XY.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterVertex("VERTEX_SE2", func(id int) optimizer.Vertex { return NewVertexSE2(id, SE2{}) })
	r.RegisterVertex("VERTEX_XY", func(id int) optimizer.Vertex { return NewVertexPointXY(id, 0, 0) })
	r.RegisterEdge("EDGE_SE2", func() optimizer.Edge { return NewEdgeSE2(SE2{}) })
	r.RegisterEdge("EDGE_SE2_PRIOR", func() optimizer.Edge { return NewEdgeSE2Prior(SE2{}) })
	r.RegisterEdge("EDGE_SE2_XY", func() optimizer.Edge { return NewEdgeSE2PointXY(0, 0) })

	return r
}

// RegisterVertex adds or replaces a vertex factory.
func (r *Registry) RegisterVertex(tag string, f VertexFactory) {
	r.mu.Lock()
	r.vertices[tag] = f
	r.mu.Unlock()
}

// RegisterEdge adds or replaces an edge factory.
func (r *Registry) RegisterEdge(tag string, f EdgeFactory) {
	r.mu.Lock()
	r.edges[tag] = f
	r.mu.Unlock()
}

// NewVertex builds the vertex registered under tag.
func (r *Registry) NewVertex(tag string, id int) (optimizer.Vertex, error) {
	r.mu.RLock()
	f, ok := r.vertices[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vertex %q", ErrUnknownTag, tag)
	}

	return f(id), nil
}

// NewEdge builds the edge registered under tag.
func (r *Registry) NewEdge(tag string) (optimizer.Edge, error) {
	r.mu.RLock()
	f, ok := r.edges[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: edge %q", ErrUnknownTag, tag)
	}

	return f(), nil
}

// Tags lists every registered tag in ascending order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.vertices)+len(r.edges))
	for t := range r.vertices {
		out = append(out, t)
	}
	for t := range r.edges {
		out = append(out, t)
	}
	sort.Strings(out)

	return out
}
