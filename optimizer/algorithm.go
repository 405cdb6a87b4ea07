// File: algorithm.go
// Role: Optimization algorithm contract, per-iteration statistics and the name registry.
package optimizer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Status is the outcome of one Algorithm.Solve call.
type Status int

const (
	// StatusOK means the iteration ran; optimization may continue.
	StatusOK Status = iota
	// StatusConverged means the algorithm's own stopping test fired.
	StatusConverged
	// StatusFail means no acceptable step could be found.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusConverged:
		return "converged"
	case StatusFail:
		return "fail"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// Algorithm performs one nonlinear iteration on a SparseOptimizer: it
// linearizes, solves and accepts or rejects a step. Numerical failures are
// reported as StatusFail or handled internally; a returned error aborts
// Optimize.
type Algorithm interface {
	Name() string
	// Init is called once per active set, before the first Solve.
	Init(o *SparseOptimizer) error
	Solve(iteration int) (Status, error)
	// Describe adds algorithm-specific fields to the statistics of the last iteration.
	Describe(st *IterationStats)
}

// IterationStats records one Optimize iteration.
type IterationStats struct {
	Iteration int
	Chi2      float64 // robust chi² after the iteration

	Lambda              float64 // Levenberg–Marquardt damping
	LevenbergIterations int
	TrustRadius         float64 // dogleg Δ
	StepType            string  // dogleg: "gn", "sd" or "dl"

	TimeResiduals     time.Duration
	TimeLinearize     time.Duration
	TimeQuadraticForm time.Duration
	TimeSchur         time.Duration
	TimeLinearSolver  time.Duration
	TimeUpdate        time.Duration
	TimeIteration     time.Duration

	HessianPoseDimension     int
	HessianLandmarkDimension int
	NumVertices              int
	NumEdges                 int
	NumericAnomalies         int
}

// AlgorithmFactory builds a fresh algorithm instance.
type AlgorithmFactory func() Algorithm

// AlgorithmRegistry maps lower-case names to factories.
type AlgorithmRegistry struct {
	mu        sync.RWMutex
	factories map[string]AlgorithmFactory
}

// NewAlgorithmRegistry returns an empty registry.
func NewAlgorithmRegistry() *AlgorithmRegistry {
	return &AlgorithmRegistry{factories: make(map[string]AlgorithmFactory)}
}

// DefaultAlgorithms returns a registry holding "gn", "lm" and "dogleg" with default settings.
func DefaultAlgorithms() *AlgorithmRegistry {
	r := NewAlgorithmRegistry()
	r.Register("gn", func() Algorithm { return NewGaussNewton() })
	r.Register("lm", func() Algorithm { return NewLevenberg() })
	r.Register("dogleg", func() Algorithm { return NewDogleg() })

	return r
}

// Register adds or replaces a factory.
func (r *AlgorithmRegistry) Register(name string, f AlgorithmFactory) {
	r.mu.Lock()
	r.factories[strings.ToLower(name)] = f
	r.mu.Unlock()
}

// New builds the algorithm registered under name.
func (r *AlgorithmRegistry) New(name string) (Algorithm, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}

	return f(), nil
}

// Names lists the registered names in ascending order.
func (r *AlgorithmRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}

// finiteVec reports whether every entry of v is finite.
func finiteVec(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}

// normInf is ‖v‖∞, zero for an empty vector.
func normInf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}

	return floats.Norm(v, math.Inf(1))
}
