package optimizer

// RecordCounts exposes the bookkeeping sizes so tests can check them against
// the hypergraph after concurrent mutation.
func RecordCounts(g *Graph) (vertices, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.vrec), len(g.erec)
}
