// File: api.go
// Role: Catalog-wide enumeration, counters and reset.
package core

// Vertices returns the vertex payloads in iteration order.
func (g *Graph[V, E]) Vertices() []V {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]V, 0, g.nvert)
	for i := g.vhead; i != nilLink; i = g.vslots[i].next {
		out = append(out, g.vslots[i].v)
	}

	return out
}

// VertexIDs returns the vertex IDs in iteration order.
func (g *Graph[V, E]) VertexIDs() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]int, 0, g.nvert)
	for i := g.vhead; i != nilLink; i = g.vslots[i].next {
		out = append(out, g.vslots[i].v.ID())
	}

	return out
}

// Edges returns live edge handles in insertion order.
func (g *Graph[V, E]) Edges() []EdgeHandle {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]EdgeHandle, 0, g.nedge)
	for i := g.ehead; i != nilLink; i = g.eslots[i].next {
		out = append(out, EdgeHandle{Index: uint32(i), Gen: g.eslots[i].gen})
	}

	return out
}

// VertexCount returns the number of live vertices.
func (g *Graph[V, E]) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.nvert
}

// EdgeCount returns the number of live edges.
func (g *Graph[V, E]) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.nedge
}

// Clear removes every vertex and edge. Outstanding handles become stale;
// edge IDs keep increasing from where they were.
//
// Complexity: O(slots).
func (g *Graph[V, E]) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	var zv V
	var ze E
	g.vfree = g.vfree[:0]
	for i := len(g.vslots) - 1; i >= 0; i-- {
		s := &g.vslots[i]
		if s.alive {
			s.gen++
		}
		s.v, s.alive, s.edges = zv, false, nil
		s.prev, s.next = nilLink, nilLink
		g.vfree = append(g.vfree, uint32(i))
	}
	g.efree = g.efree[:0]
	for i := len(g.eslots) - 1; i >= 0; i-- {
		s := &g.eslots[i]
		if s.alive {
			s.gen++
		}
		s.e, s.alive, s.verts = ze, false, nil
		s.prev, s.next = nilLink, nilLink
		g.efree = append(g.efree, uint32(i))
	}

	g.byID = make(map[int]uint32)
	g.vhead, g.vtail, g.ehead, g.etail = nilLink, nilLink, nilLink, nilLink
	g.nvert, g.nedge = 0, 0
}

// Stats returns a snapshot of the catalog sizes.
func (g *Graph[V, E]) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := Stats{
		VertexCount:   g.nvert,
		EdgeCount:     g.nedge,
		FreeVertexIDs: len(g.vfree),
		FreeEdgeIDs:   len(g.efree),
		LoopsAllowed:  g.allowLoops,
	}
	for i := g.ehead; i != nilLink; i = g.eslots[i].next {
		if k := len(g.eslots[i].verts); k > st.MaxArity {
			st.MaxArity = k
		}
	}

	return st
}
