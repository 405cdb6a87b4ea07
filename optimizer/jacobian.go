// File: jacobian.go
// Role: Per-worker Jacobian buffers and central-difference linearization.
package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// numericStep is the central-difference step applied through Oplus.
const numericStep = 1e-9

// JacobianWorkspace holds one buffer per vertex position, each large enough
// for the biggest errDim×vertexDim block seen so far. Sizes only grow.
type JacobianWorkspace struct {
	maxSize  int
	maxArity int
	bufs     [][]float64
	views    []*mat.Dense
}

// UpdateSize grows the requirements to fit an edge with the given error
// dimension and vertex dimensions.
func (w *JacobianWorkspace) UpdateSize(errDim int, vertexDims []int) {
	if len(vertexDims) > w.maxArity {
		w.maxArity = len(vertexDims)
	}
	for _, d := range vertexDims {
		if s := errDim * d; s > w.maxSize {
			w.maxSize = s
		}
	}
}

// Allocate (re)creates the buffers for the current requirements.
func (w *JacobianWorkspace) Allocate() {
	if len(w.bufs) == w.maxArity && (len(w.bufs) == 0 || len(w.bufs[0]) == w.maxSize) {
		return
	}
	w.bufs = make([][]float64, w.maxArity)
	for i := range w.bufs {
		w.bufs[i] = make([]float64, w.maxSize)
	}
	w.views = make([]*mat.Dense, w.maxArity)
}

// Jacobian returns a zeroed rows×cols view over buffer i.
func (w *JacobianWorkspace) Jacobian(i, rows, cols int) *mat.Dense {
	if rows == 0 || cols == 0 {
		return nil
	}
	buf := w.bufs[i][:rows*cols]
	for k := range buf {
		buf[k] = 0
	}

	return mat.NewDense(rows, cols, buf)
}

// jacobians fills one view per vertex position of rec.
func (w *JacobianWorkspace) jacobians(rec *edgeRecord) []*mat.Dense {
	rows := rec.edge.Dimension()
	views := w.views[:len(rec.vs)]
	for i, v := range rec.vs {
		views[i] = w.Jacobian(i, rows, v.Dimension())
	}

	return views
}

// numericJacobian fills jac[i] for each position listed in free by central
// differences of ComputeError. Perturbations are applied to clones, so the
// shared vertices are only read.
func numericJacobian(e Edge, vs []Vertex, free []int, jac []*mat.Dense) {
	dim := e.Dimension()
	plus := make([]float64, dim)
	minus := make([]float64, dim)
	local := append([]Vertex(nil), vs...)

	for _, i := range free {
		orig := vs[i]
		clone := orig.Clone()
		est := make([]float64, orig.EstimateDimension())
		orig.EstimateData(est)
		delta := make([]float64, orig.Dimension())
		local[i] = clone

		for d := range delta {
			delta[d] = numericStep
			clone.Oplus(delta)
			e.ComputeError(local, plus)
			clone.SetEstimateData(est)

			delta[d] = -numericStep
			clone.Oplus(delta)
			e.ComputeError(local, minus)
			clone.SetEstimateData(est)
			delta[d] = 0

			for r := 0; r < dim; r++ {
				jac[i].Set(r, d, (plus[r]-minus[r])/(2*numericStep))
			}
		}
		local[i] = orig
	}
}

// finite reports whether every entry of m is finite.
func finite(m *mat.Dense) bool {
	if m == nil {
		return true
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i)[:c] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}
