package types

import (
	"fmt"

	"github.com/katalvlaran/graphopt/optimizer"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// VertexVec is a Euclidean vertex; Oplus is plain addition.
type VertexVec struct {
	id int
	x  []float64
}

// NewVertexVec returns a vertex whose dimension is len(x).
func NewVertexVec(id int, x ...float64) *VertexVec {
	return &VertexVec{id: id, x: append([]float64(nil), x...)}
}

func (v *VertexVec) ID() int                       { return v.id }
func (v *VertexVec) Dimension() int                { return len(v.x) }
func (v *VertexVec) EstimateDimension() int        { return len(v.x) }
func (v *VertexVec) EstimateData(dst []float64)    { copy(dst, v.x) }
func (v *VertexVec) SetEstimateData(src []float64) { copy(v.x, src) }
func (v *VertexVec) Oplus(delta []float64)         { floats.Add(v.x, delta[:len(v.x)]) }

// Clone implements optimizer.Vertex.
func (v *VertexVec) Clone() optimizer.Vertex { return NewVertexVec(v.id, v.x...) }

// Estimate returns a copy of the current value.
func (v *VertexVec) Estimate() []float64 { return append([]float64(nil), v.x...) }

// SetEstimate replaces the value; x must have the vertex dimension.
func (v *VertexVec) SetEstimate(x []float64) { copy(v.x, x) }

func (v *VertexVec) String() string { return fmt.Sprintf("VertexVec(%d, %v)", v.id, v.x) }

func vec(v optimizer.Vertex) []float64 { return v.(*VertexVec).x }

func identityInto(m *mat.Dense, sign float64) {
	r, c := m.Dims()
	for i := 0; i < r && i < c; i++ {
		m.Set(i, i, sign)
	}
}

// EdgeVecPrior pins a VertexVec to a measurement: e = x − z.
type EdgeVecPrior struct {
	optimizer.BaseEdge
	z []float64
}

// NewEdgeVecPrior returns a prior with identity information.
func NewEdgeVecPrior(z ...float64) *EdgeVecPrior {
	return &EdgeVecPrior{BaseEdge: optimizer.NewBaseEdge(len(z)), z: append([]float64(nil), z...)}
}

// Arity implements optimizer.Edge.
func (*EdgeVecPrior) Arity() int { return 1 }

// ComputeError implements optimizer.Edge.
func (e *EdgeVecPrior) ComputeError(vs []optimizer.Vertex, err []float64) {
	floats.SubTo(err[:len(e.z)], vec(vs[0]), e.z)
}

// LinearizeOplus implements optimizer.Linearizer.
func (e *EdgeVecPrior) LinearizeOplus(_ []optimizer.Vertex, jac []*mat.Dense) {
	identityInto(jac[0], 1)
}

// InitialEstimatePossible implements optimizer.EstimateInitializer.
func (e *EdgeVecPrior) InitialEstimatePossible([]optimizer.Vertex, []int, int) float64 {
	return 0
}

// InitialEstimate sets the vertex to the measurement.
func (e *EdgeVecPrior) InitialEstimate(vs []optimizer.Vertex, _ []int, _ int) {
	copy(vec(vs[0]), e.z)
}

// EdgeVecDelta measures the difference of two VertexVec: e = (x₁ − x₀) − z.
type EdgeVecDelta struct {
	optimizer.BaseEdge
	z []float64
}

// NewEdgeVecDelta returns a difference edge with identity information.
func NewEdgeVecDelta(z ...float64) *EdgeVecDelta {
	return &EdgeVecDelta{BaseEdge: optimizer.NewBaseEdge(len(z)), z: append([]float64(nil), z...)}
}

// Arity implements optimizer.Edge.
func (*EdgeVecDelta) Arity() int { return 2 }

// ComputeError implements optimizer.Edge.
func (e *EdgeVecDelta) ComputeError(vs []optimizer.Vertex, err []float64) {
	a, b := vec(vs[0]), vec(vs[1])
	for i, z := range e.z {
		err[i] = b[i] - a[i] - z
	}
}

// LinearizeOplus implements optimizer.Linearizer.
func (e *EdgeVecDelta) LinearizeOplus(_ []optimizer.Vertex, jac []*mat.Dense) {
	identityInto(jac[0], -1)
	identityInto(jac[1], 1)
}

// InitialEstimatePossible allows either direction at cost 1.
func (e *EdgeVecDelta) InitialEstimatePossible(_ []optimizer.Vertex, from []int, _ int) float64 {
	if len(from) == 0 {
		return -1
	}

	return 1
}

// InitialEstimate implements optimizer.EstimateInitializer.
func (e *EdgeVecDelta) InitialEstimate(vs []optimizer.Vertex, _ []int, to int) {
	a, b := vec(vs[0]), vec(vs[1])
	if to == 1 {
		floats.AddTo(b, a, e.z)
		return
	}
	floats.SubTo(a, b, e.z)
}

// EdgeVecSum constrains three VertexVec: e = x₀ + x₁ − x₂ − z. It has no
// analytic Jacobian.
type EdgeVecSum struct {
	optimizer.BaseEdge
	z []float64
}

// NewEdgeVecSum returns a sum edge with identity information.
func NewEdgeVecSum(z ...float64) *EdgeVecSum {
	return &EdgeVecSum{BaseEdge: optimizer.NewBaseEdge(len(z)), z: append([]float64(nil), z...)}
}

// Arity implements optimizer.Edge.
func (*EdgeVecSum) Arity() int { return 3 }

// ComputeError implements optimizer.Edge.
func (e *EdgeVecSum) ComputeError(vs []optimizer.Vertex, err []float64) {
	a, b, c := vec(vs[0]), vec(vs[1]), vec(vs[2])
	for i, z := range e.z {
		err[i] = a[i] + b[i] - c[i] - z
	}
}

// InitialEstimatePossible needs the two other vertices.
func (e *EdgeVecSum) InitialEstimatePossible(_ []optimizer.Vertex, from []int, to int) float64 {
	known := 0
	for _, f := range from {
		if f != to {
			known++
		}
	}
	if known < 2 {
		return -1
	}

	return 1
}

// InitialEstimate solves the constraint for position to.
func (e *EdgeVecSum) InitialEstimate(vs []optimizer.Vertex, _ []int, to int) {
	a, b, c := vec(vs[0]), vec(vs[1]), vec(vs[2])
	for i, z := range e.z {
		switch to {
		case 0:
			a[i] = c[i] + z - b[i]
		case 1:
			b[i] = c[i] + z - a[i]
		default:
			c[i] = a[i] + b[i] - z
		}
	}
}
