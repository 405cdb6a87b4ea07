// Package core defines the hypergraph container shared by the optimizer:
// a generic Graph of vertices and hyperedges (edges connecting 1..N vertices),
// sentinel errors, slot handles and the NewGraph constructor.
//
// Errors:
//
//	ErrDuplicateVertex - a vertex with the same ID already exists.
//	ErrVertexNotFound  - requested vertex does not exist.
//	ErrEdgeNotFound    - requested edge does not exist (or its handle is stale).
//	ErrEmptyEdge       - an edge must reference at least one vertex.
//	ErrLoopNotAllowed  - a vertex appears twice in one edge while loops are disabled.
//	ErrStaleHandle     - a handle refers to a slot that has since been recycled.
package core

import (
	"errors"
	"sync"
)

// Sentinel errors for hypergraph operations.
var (
	// ErrDuplicateVertex indicates that AddVertex was called with an ID already present.
	ErrDuplicateVertex = errors.New("core: duplicate vertex id")

	// ErrVertexNotFound indicates an operation referenced a non-existent vertex.
	ErrVertexNotFound = errors.New("core: vertex not found")

	// ErrEdgeNotFound indicates an operation referenced a non-existent edge.
	ErrEdgeNotFound = errors.New("core: edge not found")

	// ErrEmptyEdge indicates an edge without any vertex.
	ErrEmptyEdge = errors.New("core: edge has no vertices")

	// ErrLoopNotAllowed indicates a repeated vertex inside one edge when loops are disabled.
	ErrLoopNotAllowed = errors.New("core: repeated vertex in edge not allowed")

	// ErrStaleHandle indicates a handle whose slot generation no longer matches.
	ErrStaleHandle = errors.New("core: stale handle")
)

// Vertex is the minimal capability a payload needs to live in a Graph.
// The ID must be unique within the graph and stable for the payload's lifetime.
type Vertex interface {
	ID() int
}

// VertexHandle addresses a vertex slot. Gen guards against slot reuse:
// once the vertex is removed the handle never resolves again.
type VertexHandle struct {
	Index uint32
	Gen   uint32
}

// EdgeHandle addresses an edge slot, with the same generation semantics as VertexHandle.
type EdgeHandle struct {
	Index uint32
	Gen   uint32
}

// nilLink terminates the intrusive insertion-order lists.
const nilLink int32 = -1

// vertexSlot is one arena cell for a vertex.
type vertexSlot[V Vertex] struct {
	v     V
	gen   uint32
	alive bool
	prev  int32
	next  int32
	edges []EdgeHandle // incident edges, insertion order
}

// edgeSlot is one arena cell for an edge.
type edgeSlot[E any] struct {
	e     E
	id    int64
	gen   uint32
	alive bool
	prev  int32
	next  int32
	verts []VertexHandle // ordered endpoints
}

// GraphOption configures a Graph before first use.
type GraphOption func(o *graphOptions)

type graphOptions struct {
	allowLoops bool
	vertexCap  int
	edgeCap    int
}

// WithLoops permits an edge to list the same vertex more than once.
func WithLoops() GraphOption {
	return func(o *graphOptions) { o.allowLoops = true }
}

// WithCapacity pre-sizes the vertex and edge arenas.
func WithCapacity(vertices, edges int) GraphOption {
	return func(o *graphOptions) {
		if vertices > 0 {
			o.vertexCap = vertices
		}
		if edges > 0 {
			o.edgeCap = edges
		}
	}
}

// Graph is a hypergraph owning its vertices and edges.
//
// Vertices and edges live in slot arenas; removed slots are recycled through a
// free list and their generation is bumped, so stale handles are detected in O(1).
// Iteration follows insertion order (an intrusive doubly linked list over slots)
// unless SortVertices re-links it explicitly.
//
// mu guards every field; readers take RLock, mutators take Lock.
type Graph[V Vertex, E any] struct {
	mu sync.RWMutex

	allowLoops bool

	vslots []vertexSlot[V]
	vfree  []uint32
	vhead  int32
	vtail  int32
	byID   map[int]uint32
	nvert  int

	eslots []edgeSlot[E]
	efree  []uint32
	ehead  int32
	etail  int32
	nedge  int

	nextEdgeID int64
}

// NewGraph creates an empty Graph. By default an edge may not repeat a vertex.
// Complexity: O(1) plus the optional capacity hint.
func NewGraph[V Vertex, E any](opts ...GraphOption) *Graph[V, E] {
	var o graphOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &Graph[V, E]{
		allowLoops: o.allowLoops,
		vslots:     make([]vertexSlot[V], 0, o.vertexCap),
		eslots:     make([]edgeSlot[E], 0, o.edgeCap),
		byID:       make(map[int]uint32, o.vertexCap),
		vhead:      nilLink,
		vtail:      nilLink,
		ehead:      nilLink,
		etail:      nilLink,
	}
}

// Stats is a read-only snapshot of catalog sizes.
type Stats struct {
	VertexCount   int
	EdgeCount     int
	MaxArity      int
	FreeVertexIDs int // recycled vertex slots waiting for reuse
	FreeEdgeIDs   int // recycled edge slots waiting for reuse
	LoopsAllowed  bool
}
