// Package core_test verifies thread-safety of core.Graph under concurrent operations.
package core_test

import (
	"sync"
	"testing"

	"github.com/katalvlaran/graphopt/core"
	"github.com/stretchr/testify/require"
)

// TestConcurrentAddEdge adds edges from many goroutines and checks the incidence list of the hub.
func TestConcurrentAddEdge(t *testing.T) {
	g := core.NewGraph[node, int]()
	const num = 200
	_, err := g.AddVertex(node(-1))
	require.NoError(t, err)
	for i := 0; i < num; i++ {
		_, err := g.AddVertex(node(i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(num)
	for i := 0; i < num; i++ {
		go func(id int) {
			defer wg.Done()
			_, err := g.AddEdge(id, -1, id)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	inc, err := g.IncidentEdges(-1)
	require.NoError(t, err)
	require.Len(t, inc, num)
}

// TestConcurrentReadersAndRemovals mixes queries and vertex removal; it passes if nothing races or panics.
func TestConcurrentReadersAndRemovals(t *testing.T) {
	g := core.NewGraph[node, int]()
	for i := 0; i < 100; i++ {
		_, _ = g.AddVertex(node(i))
		if i > 0 {
			_, _ = g.AddEdge(i, i-1, i)
		}
	}

	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 50; i++ {
		go func(id int) {
			defer wg.Done()
			_, _ = g.RemoveVertex(id * 2)
		}(i)
		go func() {
			defer wg.Done()
			for _, h := range g.Edges() {
				_, _ = g.EdgeVertices(h)
			}
			_ = g.Stats()
		}()
	}
	wg.Wait()

	require.Equal(t, 50, g.VertexCount())
	require.Zero(t, g.EdgeCount())
}
