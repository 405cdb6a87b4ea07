// Package optimizer minimizes the sum of robustified, information-weighted
// squared errors of a hypergraph of vertices (variables on manifolds) and
// edges (measurements).
//
//	F(x) = Σ_e ρ_e( e_e(x)ᵀ Ω_e e_e(x) )
//
// Each iteration linearizes the active edges, assembles the block-sparse
// normal equations H·Δx = b with H = Σ JᵀWJ and b = −Σ JᵀWe (W = ρ′Ω), solves
// them, optionally eliminating marginalized vertices through the Schur
// complement, and applies Δx with each vertex's Oplus.
//
// Components:
//
//	Graph               vertices, edges, fixed/marginalized flags, estimate backups
//	JacobianWorkspace   per-worker Jacobian buffers; numeric Jacobians by central differences
//	BlockSolver         two-phase deterministic assembly, Schur elimination, damping, marginals
//	Algorithm           GaussNewton, Levenberg, Dogleg (AlgorithmRegistry by name)
//	SparseOptimizer     active set, iteration loop, actions, statistics, initial guess
//	EstimatePropagator  Dijkstra-ordered initial estimates
//	Config              JSON tuning file → Options
//
// Options:
//
//	WithAlgorithm(a)       default Levenberg
//	WithLinearSolver(s)    default linsolve.NewSparseCholesky()
//	WithExecutor(e)        default parallel.Sequential{}
//	WithSchur(bool)        default true
//	WithVerbose(bool)      one Logf line per iteration
//	WithTimeBudget(d)      stop before an iteration starting after d
//	WithPreIteration(a), WithPostIteration(a)
//
// Errors:
//
// Structural problems are reported when they are introduced (AddEdge,
// InitializeOptimization). Numerical problems inside an iteration (a
// Hessian that is not positive definite, a non-finite Jacobian) become
// rejected steps or skipped edges; an algorithm that cannot make progress
// ends Optimize in StateFailed without an error.
package optimizer
