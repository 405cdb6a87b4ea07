// File: element.go
// Role: Capability interfaces implemented by application vertex and edge types.
//
// The optimizer never inspects concrete types. A vertex is a manifold element
// with a tangent update (Oplus) and a flat estimate encoding used for backups;
// an edge computes an error from its ordered vertices. Analytic Jacobians and
// initial-estimate propagation are optional capabilities discovered by type
// assertion.
package optimizer

import (
	"github.com/katalvlaran/graphopt/robust"
	"gonum.org/v1/gonum/mat"
)

// Vertex is an optimizable variable.
type Vertex interface {
	// ID is the unique identifier inside a Graph.
	ID() int
	// Dimension is the size of the tangent update accepted by Oplus.
	Dimension() int
	// EstimateDimension is the length of the flat estimate encoding.
	EstimateDimension() int
	// EstimateData writes the current estimate into dst[:EstimateDimension()].
	EstimateData(dst []float64)
	// SetEstimateData replaces the estimate with src[:EstimateDimension()].
	SetEstimateData(src []float64)
	// Oplus applies the tangent increment delta[:Dimension()].
	Oplus(delta []float64)
	// Clone returns an independent copy with the same estimate.
	Clone() Vertex
}

// Edge is a measurement constraint over an ordered list of vertices.
type Edge interface {
	// Dimension is the error dimension; it must not change after AddEdge.
	Dimension() int
	// Arity is the expected vertex count, or -1 for any.
	Arity() int
	// ComputeError writes the error for vertices vs into err[:Dimension()].
	// It must not modify the vertices.
	ComputeError(vs []Vertex, err []float64)
	// Information is the Dimension×Dimension weight Ω.
	Information() *mat.SymDense
	// RobustKernel may be nil for a plain quadratic cost.
	RobustKernel() robust.Kernel
	// Level selects the optimization pass the edge takes part in.
	Level() int
}

// Linearizer is implemented by edges with analytic Jacobians. jac[i] is
// Dimension()×vs[i].Dimension(); entries for fixed vertices may be ignored.
type Linearizer interface {
	LinearizeOplus(vs []Vertex, jac []*mat.Dense)
}

// EstimateInitializer is implemented by edges that can initialize vertex to
// (a position in vs) from the already-initialized positions in from. A
// negative cost means the initialization is impossible.
type EstimateInitializer interface {
	InitialEstimatePossible(vs []Vertex, from []int, to int) float64
	InitialEstimate(vs []Vertex, from []int, to int)
}

// BaseEdge carries the bookkeeping common to most edges. Embed it and
// implement Arity and ComputeError.
type BaseEdge struct {
	dim    int
	info   *mat.SymDense
	kernel robust.Kernel
	level  int
}

// NewBaseEdge returns a BaseEdge of error dimension dim with identity information.
func NewBaseEdge(dim int) BaseEdge {
	info := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		info.SetSym(i, i, 1)
	}

	return BaseEdge{dim: dim, info: info}
}

// Dimension implements Edge.
func (e *BaseEdge) Dimension() int { return e.dim }

// Information implements Edge.
func (e *BaseEdge) Information() *mat.SymDense { return e.info }

// SetInformation replaces Ω. The size is validated when the edge is added.
func (e *BaseEdge) SetInformation(info *mat.SymDense) { e.info = info }

// RobustKernel implements Edge.
func (e *BaseEdge) RobustKernel() robust.Kernel { return e.kernel }

// SetRobustKernel installs k; nil removes the kernel.
func (e *BaseEdge) SetRobustKernel(k robust.Kernel) { e.kernel = k }

// Level implements Edge.
func (e *BaseEdge) Level() int { return e.level }

// SetLevel moves the edge to another optimization pass. It takes effect at
// the next InitializeOptimization.
func (e *BaseEdge) SetLevel(l int) { e.level = l }
