// Package dijkstra provides a generalized Dijkstra search over hypergraphs,
// the traversal behind estimate propagation in package optimizer.
//
// Overview:
//
//   - Run grows a shortest-path forest from one or more seed vertices, all at
//     distance 0. A hyperedge reached at vertex u offers each of its other
//     vertices the distance d(u) + cost(e, u, v).
//   - The cost function is supplied by the caller; +Inf blocks a traversal.
//   - Predecessors change only on a strictly lower cost, and the frontier breaks
//     distance ties by discovery order, so results are deterministic for a
//     deterministic incidence order.
//
// Result:
//
//   - Tree.Order() lists reached vertices in finalization order.
//   - Tree.Entry(id) exposes the parent, the edge used, the distance and the children.
//   - Tree.Visit(action) walks the tree parents-first; the propagator uses it to
//     compute each vertex's estimate from its already-initialized predecessor.
//
// Error handling (sentinel errors):
//
//   - ErrNilGraph, ErrEmptySource, ErrVertexNotFound: invalid inputs.
//   - ErrNegativeCost: the cost function returned a negative or NaN value.
//   - ErrBadMaxDistance: WithMaxDistance received a negative or NaN cap.
//
// Example:
//
//	tree, err := dijkstra.Run(g, dijkstra.Source(0), dijkstra.WithCost(myCost))
//	if err != nil {
//	    return err
//	}
//	_ = tree.Visit(func(e *dijkstra.Entry) error {
//	    if e.HasParent {
//	        initFrom(e.Parent, e.Edge, e.Vertex)
//	    }
//	    return nil
//	})
package dijkstra
