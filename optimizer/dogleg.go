package optimizer

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DoglegOptions tunes Dogleg. Zero fields take the defaults.
type DoglegOptions struct {
	// InitialRadius is Δ on iteration 0 (default 1e4).
	InitialRadius float64
	// MaxTrialsAfterFailure bounds the trust-region retries per iteration (default 10).
	MaxTrialsAfterFailure int
	// GradientTolerance stops when ‖b‖∞ falls below it (default 1e-10).
	GradientTolerance float64
	// StepTolerance stops when an accepted ‖h‖∞ falls to it or below (default 1e-12).
	StepTolerance float64
}

func (opts *DoglegOptions) normalize() {
	if opts.InitialRadius <= 0 {
		opts.InitialRadius = 1e4
	}
	if opts.MaxTrialsAfterFailure <= 0 {
		opts.MaxTrialsAfterFailure = 10
	}
	if opts.GradientTolerance <= 0 {
		opts.GradientTolerance = 1e-10
	}
	if opts.StepTolerance <= 0 {
		opts.StepTolerance = 1e-12
	}
}

// Damping ladder for a Gauss–Newton solve that fails on a non-PD Hessian.
const (
	doglegMinDamping = 1e-12
	doglegMaxDamping = 1e3
	minLinearGain    = 1e-12
)

// Dogleg is Powell's dogleg trust-region method.
//
// Implementation (per iteration):
//   - Stage 1: Linearize. Steepest-descent step h_sd = α·b, α = ‖b‖²/bᵀHb.
//   - Stage 2: Gauss–Newton step h_gn = H⁻¹b; when H is not positive definite
//     retry with H + λI for λ = 1e-12, 1e-11, ... up to 1e3.
//   - Stage 3: Blend inside the radius Δ, apply, and compare the actual chi²
//     decrease with the linear gain 2bᵀh − hᵀHh. ρ > 0.75 grows Δ to
//     max(Δ, 3‖h‖), ρ < 0.25 halves it; ρ ≤ 0 restores the backup and retries.
type Dogleg struct {
	opts DoglegOptions
	o    *SparseOptimizer

	delta    float64
	stepType string

	hsd, hgn, hdl, tmp []float64
}

// NewDogleg returns Dogleg with default settings.
func NewDogleg() *Dogleg { return NewDoglegWith(DoglegOptions{}) }

// NewDoglegWith returns Dogleg with the given settings.
func NewDoglegWith(opts DoglegOptions) *Dogleg {
	opts.normalize()

	return &Dogleg{opts: opts}
}

// Name implements Algorithm.
func (*Dogleg) Name() string { return "dogleg" }

// Radius returns the current trust radius Δ.
func (d *Dogleg) Radius() float64 { return d.delta }

// Init implements Algorithm.
func (d *Dogleg) Init(o *SparseOptimizer) error {
	d.o = o
	d.delta = d.opts.InitialRadius
	d.stepType = ""

	return nil
}

// Solve implements Algorithm.
func (d *Dogleg) Solve(iteration int) (Status, error) {
	o := d.o
	currentChi := o.ActiveRobustChi2()
	if err := o.buildSystem(); err != nil {
		return StatusFail, err
	}
	if iteration == 0 {
		d.delta = d.opts.InitialRadius
	}
	b := o.solver.B()
	if normInf(b) < d.opts.GradientTolerance {
		return StatusConverged, nil
	}
	n := len(b)
	d.hsd = resize(d.hsd, n)
	d.hgn = resize(d.hgn, n)
	d.hdl = resize(d.hdl, n)
	d.tmp = resize(d.tmp, n)

	// steepest descent
	if err := o.solver.MultiplyHessian(d.tmp, b); err != nil {
		return StatusFail, err
	}
	alpha := 0.0
	if bHb := floats.Dot(b, d.tmp); bHb > 0 {
		alpha = floats.Dot(b, b) / bHb
	}
	floats.ScaleTo(d.hsd, alpha, b)

	// Gauss–Newton, damped only when needed
	lambda := 0.0
	for {
		if lambda > 0 {
			o.solver.SetLambda(lambda, true)
		}
		err := o.solveSystem()
		if lambda > 0 {
			o.solver.RestoreDiagonal()
		}
		if err == nil && finiteVec(o.solver.X()) {
			break
		}
		if lambda == 0 {
			lambda = doglegMinDamping
		} else {
			lambda *= 10
		}
		if lambda > doglegMaxDamping {
			return StatusFail, nil
		}
	}
	copy(d.hgn, o.solver.X())

	for trial := 0; trial < d.opts.MaxTrialsAfterFailure && !o.ForceStop(); trial++ {
		d.blend()
		if err := o.solver.MultiplyHessian(d.tmp, d.hdl); err != nil {
			return StatusFail, err
		}
		linearGain := math.Max(2*floats.Dot(b, d.hdl)-floats.Dot(d.hdl, d.tmp), minLinearGain)

		o.push()
		if err := o.update(d.hdl); err != nil {
			return StatusFail, err
		}
		if err := o.ComputeActiveErrors(); err != nil {
			return StatusFail, err
		}
		newChi := o.ActiveRobustChi2()
		rho := (currentChi - newChi) / linearGain

		hNorm := floats.Norm(d.hdl, 2)
		switch {
		case rho > 0.75:
			d.delta = math.Max(d.delta, 3*hNorm)
		case rho < 0.25:
			d.delta *= 0.5
		}

		if rho > 0 && !math.IsNaN(newChi) && !math.IsInf(newChi, 0) {
			o.discardTop()
			if normInf(d.hdl) <= d.opts.StepTolerance {
				return StatusConverged, nil
			}
			return StatusOK, nil
		}
		o.pop()
	}
	if o.ForceStop() {
		return StatusOK, nil
	}

	return StatusFail, nil
}

// blend picks the dogleg step inside Δ from hgn and hsd.
func (d *Dogleg) blend() {
	gnNorm := floats.Norm(d.hgn, 2)
	sdNorm := floats.Norm(d.hsd, 2)
	switch {
	case gnNorm <= d.delta:
		copy(d.hdl, d.hgn)
		d.stepType = "gn"
	case sdNorm >= d.delta:
		floats.ScaleTo(d.hdl, d.delta/sdNorm, d.hsd)
		d.stepType = "sd"
	default:
		// h = hsd + β(hgn − hsd) with ‖h‖ = Δ
		floats.SubTo(d.tmp, d.hgn, d.hsd)
		c := floats.Dot(d.hsd, d.tmp)
		bma := floats.Dot(d.tmp, d.tmp)
		rest := d.delta*d.delta - sdNorm*sdNorm
		disc := math.Sqrt(c*c + bma*rest)
		var beta float64
		if c <= 0 {
			beta = (-c + disc) / bma
		} else {
			beta = rest / (c + disc)
		}
		floats.AddScaledTo(d.hdl, d.hsd, beta, d.tmp)
		d.stepType = "dl"
	}
}

// Describe implements Algorithm.
func (d *Dogleg) Describe(st *IterationStats) {
	st.TrustRadius = d.delta
	st.StepType = d.stepType
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}

	return s[:n]
}
