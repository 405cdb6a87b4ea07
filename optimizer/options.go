// File: options.go
// Role: Functional options for New.
package optimizer

import (
	"time"

	"github.com/katalvlaran/graphopt/linsolve"
	"github.com/katalvlaran/graphopt/parallel"
)

// Option configures a SparseOptimizer.
type Option func(*SparseOptimizer)

// WithAlgorithm selects the nonlinear algorithm (default Levenberg).
func WithAlgorithm(a Algorithm) Option {
	return func(o *SparseOptimizer) {
		if a != nil {
			o.algorithm = a
		}
	}
}

// WithLinearSolver selects the linear solver (default sparse Cholesky with
// minimum-degree ordering).
func WithLinearSolver(s linsolve.Solver) Option {
	return func(o *SparseOptimizer) {
		if s != nil {
			o.linear = s
		}
	}
}

// WithExecutor runs linearization and assembly on e (default parallel.Sequential).
func WithExecutor(e parallel.Executor) Option {
	return func(o *SparseOptimizer) {
		if e != nil {
			o.exec = e
		}
	}
}

// WithVerbose logs one line per iteration through Logf.
func WithVerbose(v bool) Option {
	return func(o *SparseOptimizer) { o.verbose = v }
}

// WithTimeBudget stops Optimize before an iteration that would start after d
// has elapsed. Zero disables the budget.
func WithTimeBudget(d time.Duration) Option {
	return func(o *SparseOptimizer) {
		if d >= 0 {
			o.timeBudget = d
		}
	}
}

// WithSchur enables (default) or disables elimination of marginalized vertices
// through the Schur complement. Disabled, marginalized vertices are solved as poses.
func WithSchur(enabled bool) Option {
	return func(o *SparseOptimizer) { o.schur = enabled }
}

// WithPreIteration registers an action run before every iteration.
func WithPreIteration(a Action) Option {
	return func(o *SparseOptimizer) {
		if a != nil {
			o.pre = append(o.pre, a)
		}
	}
}

// WithPostIteration registers an action run after every iteration.
func WithPostIteration(a Action) Option {
	return func(o *SparseOptimizer) {
		if a != nil {
			o.post = append(o.post, a)
		}
	}
}
