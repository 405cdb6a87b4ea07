// Package graphopt is a graph-based nonlinear least-squares optimizer in the
// spirit of g2o: vertices carry estimates on manifolds, hyperedges carry
// measurements with information matrices, and the optimizer minimizes the
// sum of robustified squared Mahalanobis errors.
//
// What is inside?
//
//	core/      generic hypergraph: vertices by ID, hyperedges by generation-checked handle
//	dijkstra/  multi-source Dijkstra over hyperedges with a parents-first tree visitor
//	matrix/    sparse block matrix, block diagonal, compressed columns, block pattern
//	linsolve/  dense Cholesky, sparse LLᵀ/LDLᵀ with minimum-degree ordering,
//	           block-Jacobi PCG, marginal covariance recovery
//	robust/    Huber, PseudoHuber, Cauchy, Tukey, Saturated, DCS kernels and a registry
//	parallel/  sequential and errgroup-backed parallel-for executors
//	optimizer/ optimizable graph, block solver with Schur complement,
//	           Gauss–Newton, Levenberg–Marquardt, Powell's dogleg,
//	           estimate propagation, JSON tuning files
//	types/     vector and planar SLAM vertices and edges, tag registry
//
// Lifecycle:
//
//	o := optimizer.New(optimizer.WithAlgorithm(optimizer.NewLevenberg()))
//	o.AddVertex(...); o.AddEdge(edge, ids...)
//	o.InitializeOptimization(0)
//	o.ComputeInitialGuess(nil)
//	res, err := o.Optimize(20)
//
// A complete planar SLAM run lives in examples/posegraph2d.
//
//	go get github.com/katalvlaran/graphopt
package graphopt
