package types

import (
	"math"

	"github.com/katalvlaran/graphopt/optimizer"
	"gonum.org/v1/gonum/mat"
)

// VertexSE2 is a planar pose. Oplus adds to the translation and to the
// normalized angle.
type VertexSE2 struct {
	id  int
	est SE2
}

// NewVertexSE2 returns a pose vertex.
func NewVertexSE2(id int, est SE2) *VertexSE2 { return &VertexSE2{id: id, est: est} }

func (v *VertexSE2) ID() int                { return v.id }
func (v *VertexSE2) Dimension() int         { return 3 }
func (v *VertexSE2) EstimateDimension() int { return 3 }

// EstimateData implements optimizer.Vertex.
func (v *VertexSE2) EstimateData(dst []float64) {
	dst[0], dst[1], dst[2] = v.est.X, v.est.Y, v.est.Theta
}

// SetEstimateData implements optimizer.Vertex.
func (v *VertexSE2) SetEstimateData(src []float64) {
	v.est = SE2{X: src[0], Y: src[1], Theta: src[2]}
}

// Oplus implements optimizer.Vertex.
func (v *VertexSE2) Oplus(d []float64) {
	v.est.X += d[0]
	v.est.Y += d[1]
	v.est.Theta = NormalizeAngle(v.est.Theta + d[2])
}

// Clone implements optimizer.Vertex.
func (v *VertexSE2) Clone() optimizer.Vertex { return &VertexSE2{id: v.id, est: v.est} }

// Estimate returns the pose.
func (v *VertexSE2) Estimate() SE2 { return v.est }

// SetEstimate replaces the pose.
func (v *VertexSE2) SetEstimate(est SE2) { v.est = est }

// VertexPointXY is a planar landmark.
type VertexPointXY struct {
	id int
	p  [2]float64
}

// NewVertexPointXY returns a landmark vertex.
func NewVertexPointXY(id int, x, y float64) *VertexPointXY {
	return &VertexPointXY{id: id, p: [2]float64{x, y}}
}

func (v *VertexPointXY) ID() int                       { return v.id }
func (v *VertexPointXY) Dimension() int                { return 2 }
func (v *VertexPointXY) EstimateDimension() int        { return 2 }
func (v *VertexPointXY) EstimateData(dst []float64)    { dst[0], dst[1] = v.p[0], v.p[1] }
func (v *VertexPointXY) SetEstimateData(src []float64) { v.p = [2]float64{src[0], src[1]} }

// Oplus implements optimizer.Vertex.
func (v *VertexPointXY) Oplus(d []float64) {
	v.p[0] += d[0]
	v.p[1] += d[1]
}

// Clone implements optimizer.Vertex.
func (v *VertexPointXY) Clone() optimizer.Vertex { return &VertexPointXY{id: v.id, p: v.p} }

// Estimate returns the point.
func (v *VertexPointXY) Estimate() [2]float64 { return v.p }

// SetEstimate replaces the point.
func (v *VertexPointXY) SetEstimate(p [2]float64) { v.p = p }

func pose(v optimizer.Vertex) *VertexSE2      { return v.(*VertexSE2) }
func point(v optimizer.Vertex) *VertexPointXY { return v.(*VertexPointXY) }

// EdgeSE2 is relative pose odometry between two VertexSE2:
//
//	e = vec( z⁻¹ ∘ (x₀⁻¹ ∘ x₁) )
type EdgeSE2 struct {
	optimizer.BaseEdge
	z, zInv SE2
}

// NewEdgeSE2 returns an odometry edge with identity information.
func NewEdgeSE2(z SE2) *EdgeSE2 {
	e := &EdgeSE2{BaseEdge: optimizer.NewBaseEdge(3)}
	e.SetMeasurement(z)

	return e
}

// Measurement returns z.
func (e *EdgeSE2) Measurement() SE2 { return e.z }

// SetMeasurement replaces z.
func (e *EdgeSE2) SetMeasurement(z SE2) { e.z, e.zInv = z, z.Inverse() }

// Arity implements optimizer.Edge.
func (*EdgeSE2) Arity() int { return 2 }

// ComputeError implements optimizer.Edge.
func (e *EdgeSE2) ComputeError(vs []optimizer.Vertex, err []float64) {
	d := e.zInv.Compose(pose(vs[0]).est.Inverse().Compose(pose(vs[1]).est))
	err[0], err[1], err[2] = d.X, d.Y, d.Theta
}

// LinearizeOplus implements optimizer.Linearizer.
func (e *EdgeSE2) LinearizeOplus(vs []optimizer.Vertex, jac []*mat.Dense) {
	xi, xj := pose(vs[0]).est, pose(vs[1]).est
	si, ci := math.Sincos(xi.Theta)
	dx, dy := xj.X-xi.X, xj.Y-xi.Y

	ji := mat.NewDense(3, 3, []float64{
		-ci, -si, -si*dx + ci*dy,
		si, -ci, -ci*dx - si*dy,
		0, 0, -1,
	})
	jj := mat.NewDense(3, 3, []float64{
		ci, si, 0,
		-si, ci, 0,
		0, 0, 1,
	})
	sz, cz := math.Sincos(e.zInv.Theta)
	rot := mat.NewDense(3, 3, []float64{
		cz, -sz, 0,
		sz, cz, 0,
		0, 0, 1,
	})
	jac[0].Mul(rot, ji)
	jac[1].Mul(rot, jj)
}

// InitialEstimatePossible allows either direction at cost 1.
func (e *EdgeSE2) InitialEstimatePossible(_ []optimizer.Vertex, from []int, to int) float64 {
	for _, f := range from {
		if f != to {
			return 1
		}
	}

	return -1
}

// InitialEstimate chains the measurement from the known pose.
func (e *EdgeSE2) InitialEstimate(vs []optimizer.Vertex, _ []int, to int) {
	a, b := pose(vs[0]), pose(vs[1])
	if to == 1 {
		b.est = a.est.Compose(e.z)
		return
	}
	a.est = b.est.Compose(e.zInv)
}

// EdgeSE2Prior anchors a VertexSE2: e = vec(z⁻¹ ∘ x). Its Jacobian is numeric.
type EdgeSE2Prior struct {
	optimizer.BaseEdge
	z, zInv SE2
}

// NewEdgeSE2Prior returns a pose prior with identity information.
func NewEdgeSE2Prior(z SE2) *EdgeSE2Prior {
	e := &EdgeSE2Prior{BaseEdge: optimizer.NewBaseEdge(3)}
	e.SetMeasurement(z)

	return e
}

// SetMeasurement replaces z.
func (e *EdgeSE2Prior) SetMeasurement(z SE2) { e.z, e.zInv = z, z.Inverse() }

// Arity implements optimizer.Edge.
func (*EdgeSE2Prior) Arity() int { return 1 }

// ComputeError implements optimizer.Edge.
func (e *EdgeSE2Prior) ComputeError(vs []optimizer.Vertex, err []float64) {
	d := e.zInv.Compose(pose(vs[0]).est)
	err[0], err[1], err[2] = d.X, d.Y, d.Theta
}

// InitialEstimatePossible implements optimizer.EstimateInitializer.
func (e *EdgeSE2Prior) InitialEstimatePossible([]optimizer.Vertex, []int, int) float64 { return 0 }

// InitialEstimate sets the pose to the measurement.
func (e *EdgeSE2Prior) InitialEstimate(vs []optimizer.Vertex, _ []int, _ int) { pose(vs[0]).est = e.z }

// EdgeSE2PointXY observes a landmark in the frame of a pose: e = x₀⁻¹·p₁ − z.
type EdgeSE2PointXY struct {
	optimizer.BaseEdge
	z [2]float64
}

// NewEdgeSE2PointXY returns an observation edge with identity information.
func NewEdgeSE2PointXY(zx, zy float64) *EdgeSE2PointXY {
	return &EdgeSE2PointXY{BaseEdge: optimizer.NewBaseEdge(2), z: [2]float64{zx, zy}}
}

// SetMeasurement replaces z.
func (e *EdgeSE2PointXY) SetMeasurement(zx, zy float64) { e.z = [2]float64{zx, zy} }

// Arity implements optimizer.Edge.
func (*EdgeSE2PointXY) Arity() int { return 2 }

// ComputeError implements optimizer.Edge.
func (e *EdgeSE2PointXY) ComputeError(vs []optimizer.Vertex, err []float64) {
	local := pose(vs[0]).est.Inverse().Apply(point(vs[1]).p)
	err[0], err[1] = local[0]-e.z[0], local[1]-e.z[1]
}

// LinearizeOplus implements optimizer.Linearizer.
func (e *EdgeSE2PointXY) LinearizeOplus(vs []optimizer.Vertex, jac []*mat.Dense) {
	x := pose(vs[0]).est
	p := point(vs[1]).p
	s, c := math.Sincos(x.Theta)
	dx, dy := p[0]-x.X, p[1]-x.Y

	ji, jj := jac[0], jac[1]
	ji.Set(0, 0, -c)
	ji.Set(0, 1, -s)
	ji.Set(0, 2, -s*dx+c*dy)
	ji.Set(1, 0, s)
	ji.Set(1, 1, -c)
	ji.Set(1, 2, -c*dx-s*dy)
	jj.Set(0, 0, c)
	jj.Set(0, 1, s)
	jj.Set(1, 0, -s)
	jj.Set(1, 1, c)
}

// InitialEstimatePossible allows pose → point only.
func (e *EdgeSE2PointXY) InitialEstimatePossible(_ []optimizer.Vertex, from []int, to int) float64 {
	if to != 1 {
		return -1
	}
	for _, f := range from {
		if f == 0 {
			return 1
		}
	}

	return -1
}

// InitialEstimate places the point through the pose.
func (e *EdgeSE2PointXY) InitialEstimate(vs []optimizer.Vertex, _ []int, _ int) {
	point(vs[1]).p = pose(vs[0]).est.Apply(e.z)
}
