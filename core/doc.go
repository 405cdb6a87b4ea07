// Package core provides a thread-safe, generic in-memory hypergraph.
//
// A Graph[V, E] owns vertices of type V (anything with an integer ID) and
// hyperedges of payload type E, each edge connecting an ordered list of
// 1..N vertices (unary priors, binary odometry, ternary constraints, ...).
// The container has no optimization semantics; package optimizer layers
// those on top.
//
// Storage:
//
//   - Vertices and edges live in slot arenas. Removed slots go to a free list
//     and their generation counter is bumped, so a VertexHandle or EdgeHandle
//     taken before removal never resolves to whatever reuses the slot.
//   - Edges hold vertex handles, never payload pointers; vertices hold the
//     handles of their incident edges (back-references only).
//   - Each edge receives a monotonically increasing int64 ID.
//
// Options (GraphOption):
//
//	WithLoops()              allow a vertex to appear twice in one edge
//	WithCapacity(v, e)       pre-size the arenas
//
// Core Methods:
//
//	AddVertex(v) (VertexHandle, error)      // O(1) amortized
//	RemoveVertex(id) ([]E, error)           // incident edges are removed first
//	AddEdge(e, ids...) (EdgeHandle, error)  // O(k²), k = arity
//	RemoveEdge(h) error
//	IncidentEdges(id) ([]EdgeHandle, error) // edge insertion order
//	Vertices(), VertexIDs(), Edges()        // insertion order
//	SortVertices(less)                      // explicit re-sort
//
// Concurrency:
//
// A single sync.RWMutex guards the catalogs. Queries take the read lock,
// mutators the write lock; payloads themselves are not protected.
//
// Errors:
//
//	ErrDuplicateVertex, ErrVertexNotFound, ErrEdgeNotFound,
//	ErrEmptyEdge, ErrLoopNotAllowed, ErrStaleHandle.
package core
