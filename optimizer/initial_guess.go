package optimizer

import "github.com/katalvlaran/graphopt/core"

// ComputeInitialGuess propagates estimates through the active edges.
//
// Implementation:
//   - Stage 1: Seeds are the fixed active vertices, plus every vertex a unary
//     active edge can initialize on its own (the edge initializes it first).
//     Without any seed the first active vertex is used.
//   - Stage 2: Back up inactive vertices, propagate over active edges with
//     cost (nil means UniformCost), then restore the inactive vertices.
//
// Errors: ErrNotInitialized, and propagation errors.
func (o *SparseOptimizer) ComputeInitialGuess(cost PropagatorCost) (*PropagationReport, error) {
	if err := o.checkInitialized(); err != nil {
		return nil, err
	}
	if len(o.vertices) == 0 {
		return &PropagationReport{Cost: map[int]float64{}}, nil
	}

	var seeds []int
	seeded := make(map[int]bool)
	for _, av := range o.vertices {
		if av.fixed {
			id := av.rec.v.ID()
			seeds = append(seeds, id)
			seeded[id] = true
		}
	}
	for _, rec := range o.edges {
		if len(rec.vs) != 1 || seeded[rec.ids[0]] {
			continue
		}
		init, ok := rec.edge.(EstimateInitializer)
		if !ok || init.InitialEstimatePossible(rec.vs, nil, 0) < 0 {
			continue
		}
		init.InitialEstimate(rec.vs, nil, 0)
		seeds = append(seeds, rec.ids[0])
		seeded[rec.ids[0]] = true
	}
	if len(seeds) == 0 {
		seeds = []int{o.vertices[0].rec.v.ID()}
	}

	var inactive []int
	for _, v := range o.Graph.Vertices() {
		if _, ok := o.byID[v.ID()]; !ok {
			inactive = append(inactive, v.ID())
		}
	}
	if err := o.Push(inactive...); err != nil {
		return nil, err
	}

	active := make(map[core.EdgeHandle]bool, len(o.edges))
	for _, rec := range o.edges {
		active[rec.handle] = true
	}
	p := NewEstimatePropagator(o.Graph)
	p.SetEdgeFilter(func(h core.EdgeHandle) bool { return active[h] })
	report, err := p.Propagate(seeds, cost, nil)

	if perr := o.Pop(inactive...); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}

	return report, nil
}
