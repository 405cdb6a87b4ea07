// File: methods_vertices.go
// Role: Vertex lifecycle & queries.
//
// Determinism:
//   - Vertices() and VertexIDs() follow insertion order unless SortVertices re-linked it.
//
// Concurrency:
//   - Every method takes g.mu (RLock for queries, Lock for mutation).
package core

import (
	"fmt"
	"sort"
)

// AddVertex registers v and returns its slot handle.
//
// Implementation:
//   - Stage 1: Reject an ID already present (ErrDuplicateVertex).
//   - Stage 2: Take a slot from the free list or grow the arena.
//   - Stage 3: Link the slot at the tail of the insertion-order list.
//
// Errors:
//   - ErrDuplicateVertex: a vertex with v.ID() exists.
//
// Complexity:
//   - Time O(1) amortized, Space O(1) amortized.
func (g *Graph[V, E]) AddVertex(v V) (VertexHandle, error) {
	id := v.ID()

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.byID[id]; exists {
		return VertexHandle{}, fmt.Errorf("%w: %d", ErrDuplicateVertex, id)
	}

	idx := g.allocVertexSlot()
	s := &g.vslots[idx]
	s.v = v
	s.alive = true
	s.edges = s.edges[:0]
	g.linkVertexTail(idx)
	g.byID[id] = idx
	g.nvert++

	return VertexHandle{Index: idx, Gen: s.gen}, nil
}

// HasVertex reports whether a vertex with the given ID exists.
func (g *Graph[V, E]) HasVertex(id int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.byID[id]

	return ok
}

// Vertex returns the payload registered under id.
func (g *Graph[V, E]) Vertex(id int) (V, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.byID[id]
	if !ok {
		var zero V
		return zero, false
	}

	return g.vslots[idx].v, true
}

// VertexHandleOf returns the live handle of the vertex with the given ID.
func (g *Graph[V, E]) VertexHandleOf(id int) (VertexHandle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.byID[id]
	if !ok {
		return VertexHandle{}, false
	}

	return VertexHandle{Index: idx, Gen: g.vslots[idx].gen}, true
}

// VertexAt resolves a handle. A handle whose vertex was removed (even if the
// slot was later reused) yields ErrStaleHandle.
func (g *Graph[V, E]) VertexAt(h VertexHandle) (V, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.liveVertex(h) {
		var zero V
		return zero, ErrStaleHandle
	}

	return g.vslots[h.Index].v, nil
}

// RemoveVertex deletes the vertex and every incident edge.
//
// Implementation:
//   - Stage 1: Resolve id (ErrVertexNotFound).
//   - Stage 2: Detach and free each incident edge, in incidence order, collecting payloads.
//   - Stage 3: Free the vertex slot and bump its generation.
//
// Returns:
//   - []E: payloads of the removed edges, in the order they were detached.
//
// Complexity:
//   - Time O(Σ arity(e) · deg) over incident edges, Space O(deg(v)).
func (g *Graph[V, E]) RemoveVertex(id int) ([]E, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrVertexNotFound, id)
	}

	// Copy: detachEdge rewrites the incidence slice we iterate over.
	incident := append([]EdgeHandle(nil), g.vslots[idx].edges...)
	removed := make([]E, 0, len(incident))
	for _, eh := range incident {
		removed = append(removed, g.eslots[eh.Index].e)
		g.detachEdge(eh.Index)
	}

	delete(g.byID, id)
	g.freeVertexSlot(idx)
	g.nvert--

	return removed, nil
}

// SortVertices re-links the vertex iteration order by less. The sort is stable
// and persists until the next SortVertices call; new vertices are appended at the end.
func (g *Graph[V, E]) SortVertices(less func(a, b V) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order := make([]uint32, 0, g.nvert)
	for i := g.vhead; i != nilLink; i = g.vslots[i].next {
		order = append(order, uint32(i))
	}
	sort.SliceStable(order, func(a, b int) bool {
		return less(g.vslots[order[a]].v, g.vslots[order[b]].v)
	})

	g.vhead, g.vtail = nilLink, nilLink
	for _, idx := range order {
		g.linkVertexTail(idx)
	}
}

// --- slot helpers (caller holds g.mu) ---

func (g *Graph[V, E]) liveVertex(h VertexHandle) bool {
	if int(h.Index) >= len(g.vslots) {
		return false
	}
	s := &g.vslots[h.Index]

	return s.alive && s.gen == h.Gen
}

func (g *Graph[V, E]) allocVertexSlot() uint32 {
	if n := len(g.vfree); n > 0 {
		idx := g.vfree[n-1]
		g.vfree = g.vfree[:n-1]
		return idx
	}
	g.vslots = append(g.vslots, vertexSlot[V]{prev: nilLink, next: nilLink})

	return uint32(len(g.vslots) - 1)
}

func (g *Graph[V, E]) freeVertexSlot(idx uint32) {
	g.unlinkVertex(idx)
	s := &g.vslots[idx]
	var zero V
	s.v = zero
	s.alive = false
	s.gen++
	s.edges = s.edges[:0]
	g.vfree = append(g.vfree, idx)
}

func (g *Graph[V, E]) linkVertexTail(idx uint32) {
	s := &g.vslots[idx]
	s.prev, s.next = g.vtail, nilLink
	if g.vtail != nilLink {
		g.vslots[g.vtail].next = int32(idx)
	} else {
		g.vhead = int32(idx)
	}
	g.vtail = int32(idx)
}

func (g *Graph[V, E]) unlinkVertex(idx uint32) {
	s := &g.vslots[idx]
	if s.prev != nilLink {
		g.vslots[s.prev].next = s.next
	} else {
		g.vhead = s.next
	}
	if s.next != nilLink {
		g.vslots[s.next].prev = s.prev
	} else {
		g.vtail = s.prev
	}
	s.prev, s.next = nilLink, nilLink
}
