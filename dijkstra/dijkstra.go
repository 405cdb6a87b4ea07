// Package dijkstra implements a generalized Dijkstra search on hypergraphs.
//
// Traversing a hyperedge from vertex u relaxes every other vertex of that edge.
// The frontier is a min-heap keyed by (distance, sequence) where sequence is a
// push counter, so equal-distance vertices are finalized in discovery order.
//
// Complexity:
//
//   - Time:  O((V + Σ arity²) log V)
//   - Space: O(V + pushes) under lazy decrease-key.
package dijkstra

import (
	"container/heap"
	"fmt"
	"math"
)

// Tree is the shortest-path forest produced by Run.
type Tree struct {
	entries map[int]*Entry
	order   []int
}

// Run computes the shortest-path tree from the configured sources.
//
// Preconditions and validation (in order):
//  1. g must be non-nil (ErrNilGraph).
//  2. At least one source (ErrEmptySource), each present (ErrVertexNotFound).
//  3. MaxDistance ≥ 0 (ErrBadMaxDistance).
//
// Relaxation replaces a vertex's predecessor only on a strictly lower cost,
// so among equal-cost paths the first discovered wins.
//
// Complexity:
//
//   - Time:  O((V + Σ arity²) log V)
//   - Space: O(V + E)
func Run(g Topology, opts ...Option) (*Tree, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	if g == nil {
		return nil, ErrNilGraph
	}
	if len(cfg.Sources) == 0 {
		return nil, ErrEmptySource
	}
	for _, s := range cfg.Sources {
		if !g.HasVertex(s) {
			return nil, fmt.Errorf("%w: %d", ErrVertexNotFound, s)
		}
	}
	if cfg.MaxDistance < 0 || math.IsNaN(cfg.MaxDistance) {
		return nil, ErrBadMaxDistance
	}

	r := &runner{
		g:       g,
		options: cfg,
		best:    make(map[int]*Entry),
		done:    make(map[int]bool),
		tree:    &Tree{entries: make(map[int]*Entry)},
	}
	r.init()
	if err := r.process(); err != nil {
		return nil, err
	}

	return r.tree, nil
}

// runner holds the mutable state for a single search.
type runner struct {
	g       Topology
	options Options
	best    map[int]*Entry // tentative entries, finalized when popped
	done    map[int]bool
	pq      nodePQ
	seq     uint64
	tree    *Tree
}

// init seeds every source at distance 0, in the order given.
func (r *runner) init() {
	heap.Init(&r.pq)
	for _, s := range r.options.Sources {
		if _, dup := r.best[s]; dup {
			continue
		}
		r.best[s] = &Entry{Vertex: s}
		r.push(s, 0)
	}
}

func (r *runner) push(id int, dist float64) {
	heap.Push(&r.pq, &nodeItem{id: id, dist: dist, seq: r.seq})
	r.seq++
}

// process pops the closest vertex, finalizes it and relaxes its incident edges.
func (r *runner) process() error {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*nodeItem)
		u := item.id
		if r.done[u] || item.dist != r.best[u].Distance {
			continue // stale entry
		}
		if item.dist > r.options.MaxDistance {
			break
		}
		r.done[u] = true

		e := r.best[u]
		e.Order = len(r.tree.order)
		r.tree.order = append(r.tree.order, u)
		r.tree.entries[u] = e
		if e.HasParent {
			p := r.tree.entries[e.Parent]
			p.Children = append(p.Children, u)
		}

		if err := r.relax(u, item.dist); err != nil {
			return err
		}
	}

	return nil
}

// relax walks every incident hyperedge of u and offers each other endpoint a new distance.
func (r *runner) relax(u int, du float64) error {
	edges, err := r.g.IncidentEdges(u)
	if err != nil {
		return fmt.Errorf("dijkstra: incident edges of %d: %w", u, err)
	}

	for _, eh := range edges {
		if r.options.EdgeFilter != nil && !r.options.EdgeFilter(eh) {
			continue
		}
		ids, err := r.g.EdgeVertices(eh)
		if err != nil {
			return fmt.Errorf("dijkstra: vertices of edge: %w", err)
		}
		for _, v := range ids {
			if v == u || r.done[v] {
				continue
			}
			w := r.options.Cost(eh, u, v)
			if math.IsInf(w, 1) {
				continue
			}
			if w < 0 || math.IsNaN(w) {
				return fmt.Errorf("%w: edge %d→%d cost=%g", ErrNegativeCost, u, v, w)
			}
			nd := du + w
			if nd > r.options.MaxDistance {
				continue
			}
			cur, seen := r.best[v]
			if seen && nd >= cur.Distance {
				continue
			}
			if !seen {
				cur = &Entry{Vertex: v}
				r.best[v] = cur
			}
			cur.Distance = nd
			cur.Parent = u
			cur.Edge = eh
			cur.HasParent = true
			r.push(v, nd)
		}
	}

	return nil
}

// Order returns the reached vertices in the order they were finalized.
func (t *Tree) Order() []int {
	return append([]int(nil), t.order...)
}

// Reached reports whether id was finalized by the search.
func (t *Tree) Reached(id int) bool {
	_, ok := t.entries[id]
	return ok
}

// Distance returns the shortest distance to id, or +Inf when unreached.
func (t *Tree) Distance(id int) float64 {
	if e, ok := t.entries[id]; ok {
		return e.Distance
	}

	return math.Inf(1)
}

// Entry returns the tree entry of id.
func (t *Tree) Entry(id int) (*Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// Len returns the number of reached vertices.
func (t *Tree) Len() int { return len(t.order) }

// Visit calls action for every reached vertex in pop order. A parent is always
// popped before its children, so action sees each predecessor already handled.
func (t *Tree) Visit(action TreeAction) error {
	for _, id := range t.order {
		if err := action(t.entries[id]); err != nil {
			return err
		}
	}

	return nil
}

// nodeItem is a heap entry. seq breaks distance ties in push order.
type nodeItem struct {
	id   int
	dist float64
	seq  uint64
}

// nodePQ is a min-heap of *nodeItem ordered by (dist, seq).
type nodePQ []*nodeItem

func (pq nodePQ) Len() int { return len(pq) }

func (pq nodePQ) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}

	return pq[i].seq < pq[j].seq
}

func (pq nodePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(*nodeItem)) }

func (pq *nodePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]

	return item
}
