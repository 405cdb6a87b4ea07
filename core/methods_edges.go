// File: methods_edges.go
// Role: Hyperedge lifecycle & incidence queries.
//
// Determinism:
//   - Edges() and IncidentEdges() follow edge insertion order.
//   - Edge IDs increase monotonically for the lifetime of the Graph (Clear does not reset them).
package core

import "fmt"

// AddEdge connects the ordered vertex list ids with payload e.
//
// Implementation:
//   - Stage 1: Validate arity ≥ 1 (ErrEmptyEdge) and resolve every endpoint (ErrVertexNotFound).
//   - Stage 2: Reject a repeated vertex unless WithLoops was given (ErrLoopNotAllowed).
//   - Stage 3: Allocate the edge slot, assign the next edge ID and append the handle
//     to the incidence list of each distinct endpoint.
//
// Complexity:
//   - Time O(k²) for k = len(ids) (duplicate scan; k is small), Space O(k).
func (g *Graph[V, E]) AddEdge(e E, ids ...int) (EdgeHandle, error) {
	if len(ids) == 0 {
		return EdgeHandle{}, ErrEmptyEdge
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	verts := make([]VertexHandle, len(ids))
	for i, id := range ids {
		idx, ok := g.byID[id]
		if !ok {
			return EdgeHandle{}, fmt.Errorf("%w: %d", ErrVertexNotFound, id)
		}
		for j := 0; j < i; j++ {
			if ids[j] == id && !g.allowLoops {
				return EdgeHandle{}, fmt.Errorf("%w: %d", ErrLoopNotAllowed, id)
			}
		}
		verts[i] = VertexHandle{Index: idx, Gen: g.vslots[idx].gen}
	}

	idx := g.allocEdgeSlot()
	s := &g.eslots[idx]
	s.e = e
	s.alive = true
	s.verts = verts
	g.nextEdgeID++
	s.id = g.nextEdgeID
	g.linkEdgeTail(idx)
	g.nedge++

	h := EdgeHandle{Index: idx, Gen: s.gen}
	for i, vh := range verts {
		if firstOccurrence(verts, i) {
			vs := &g.vslots[vh.Index]
			vs.edges = append(vs.edges, h)
		}
	}

	return h, nil
}

// RemoveEdge detaches the edge from its endpoints and frees it.
func (g *Graph[V, E]) RemoveEdge(h EdgeHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.liveEdge(h) {
		return ErrEdgeNotFound
	}
	g.detachEdge(h.Index)

	return nil
}

// Edge returns the payload behind h.
func (g *Graph[V, E]) Edge(h EdgeHandle) (E, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.liveEdge(h) {
		var zero E
		return zero, false
	}

	return g.eslots[h.Index].e, true
}

// EdgeID returns the monotonically assigned identifier of the edge.
func (g *Graph[V, E]) EdgeID(h EdgeHandle) (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.liveEdge(h) {
		return 0, ErrEdgeNotFound
	}

	return g.eslots[h.Index].id, nil
}

// EdgeVertices returns the ordered vertex IDs of the edge.
func (g *Graph[V, E]) EdgeVertices(h EdgeHandle) ([]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.liveEdge(h) {
		return nil, ErrEdgeNotFound
	}
	verts := g.eslots[h.Index].verts
	out := make([]int, len(verts))
	for i, vh := range verts {
		out[i] = g.vslots[vh.Index].v.ID()
	}

	return out, nil
}

// IncidentEdges lists the edges touching vertex id, in edge insertion order.
// An edge that lists the vertex twice (WithLoops) appears once.
func (g *Graph[V, E]) IncidentEdges(id int) ([]EdgeHandle, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrVertexNotFound, id)
	}

	return append([]EdgeHandle(nil), g.vslots[idx].edges...), nil
}

// --- slot helpers (caller holds g.mu) ---

func (g *Graph[V, E]) liveEdge(h EdgeHandle) bool {
	if int(h.Index) >= len(g.eslots) {
		return false
	}
	s := &g.eslots[h.Index]

	return s.alive && s.gen == h.Gen
}

// detachEdge removes the edge from every endpoint's incidence list and frees its slot.
func (g *Graph[V, E]) detachEdge(idx uint32) {
	s := &g.eslots[idx]
	h := EdgeHandle{Index: idx, Gen: s.gen}
	for i, vh := range s.verts {
		if !firstOccurrence(s.verts, i) {
			continue
		}
		vs := &g.vslots[vh.Index]
		for k, eh := range vs.edges {
			if eh == h {
				vs.edges = append(vs.edges[:k], vs.edges[k+1:]...)
				break
			}
		}
	}

	g.unlinkEdge(idx)
	var zero E
	s.e = zero
	s.verts = nil
	s.alive = false
	s.gen++
	g.efree = append(g.efree, idx)
	g.nedge--
}

func (g *Graph[V, E]) allocEdgeSlot() uint32 {
	if n := len(g.efree); n > 0 {
		idx := g.efree[n-1]
		g.efree = g.efree[:n-1]
		return idx
	}
	g.eslots = append(g.eslots, edgeSlot[E]{prev: nilLink, next: nilLink})

	return uint32(len(g.eslots) - 1)
}

func (g *Graph[V, E]) linkEdgeTail(idx uint32) {
	s := &g.eslots[idx]
	s.prev, s.next = g.etail, nilLink
	if g.etail != nilLink {
		g.eslots[g.etail].next = int32(idx)
	} else {
		g.ehead = int32(idx)
	}
	g.etail = int32(idx)
}

func (g *Graph[V, E]) unlinkEdge(idx uint32) {
	s := &g.eslots[idx]
	if s.prev != nilLink {
		g.eslots[s.prev].next = s.next
	} else {
		g.ehead = s.next
	}
	if s.next != nilLink {
		g.eslots[s.next].prev = s.prev
	} else {
		g.etail = s.prev
	}
	s.prev, s.next = nilLink, nilLink
}

// firstOccurrence reports whether verts[i] does not appear in verts[:i].
func firstOccurrence(verts []VertexHandle, i int) bool {
	for j := 0; j < i; j++ {
		if verts[j] == verts[i] {
			return false
		}
	}

	return true
}
