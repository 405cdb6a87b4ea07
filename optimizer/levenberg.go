package optimizer

import "math"

// LevenbergOptions tunes Levenberg. Zero fields take the defaults.
type LevenbergOptions struct {
	// Tau scales the largest Hessian diagonal entry into the initial λ (default 1e-5).
	Tau float64
	// UserLambdaInit, when positive, replaces the τ-based initial λ.
	UserLambdaInit float64
	// MaxTrialsAfterFailure bounds the damped solves per iteration (default 10).
	MaxTrialsAfterFailure int
	// MaxLambda fails the iteration once λ exceeds it (default 1e16).
	MaxLambda float64
	// GradientTolerance stops when ‖b‖∞ falls below it (default 1e-10).
	GradientTolerance float64
	// StepTolerance stops when an accepted ‖Δx‖∞ falls to it or below (default 1e-12).
	StepTolerance float64
}

func (opts *LevenbergOptions) normalize() {
	if opts.Tau <= 0 {
		opts.Tau = 1e-5
	}
	if opts.MaxTrialsAfterFailure <= 0 {
		opts.MaxTrialsAfterFailure = 10
	}
	if opts.MaxLambda <= 0 {
		opts.MaxLambda = 1e16
	}
	if opts.GradientTolerance <= 0 {
		opts.GradientTolerance = 1e-10
	}
	if opts.StepTolerance <= 0 {
		opts.StepTolerance = 1e-12
	}
}

// Levenberg is Levenberg–Marquardt with Nielsen's damping update.
//
// Implementation (per iteration):
//   - Stage 1: Linearize once; on iteration 0 set λ = τ·max diag(H) (or the user value), ν = 2.
//   - Stage 2: Back up the free vertices, solve (H + λI)Δx = b, apply Δx and
//     evaluate ρ = (χ²_old − χ²_new) / (Δxᵀ(λΔx + b) + 1e-3).
//   - Stage 3: ρ > 0 accepts: λ *= max(1/3, min(2/3, 1 − (2ρ − 1)³)), ν = 2.
//     Otherwise the backup is restored bit for bit, λ *= ν, ν *= 2 and Stage 2
//     repeats, at most MaxTrialsAfterFailure times.
type Levenberg struct {
	opts LevenbergOptions
	o    *SparseOptimizer

	lambda float64
	ni     float64
	trials int
}

// NewLevenberg returns Levenberg–Marquardt with default settings.
func NewLevenberg() *Levenberg { return NewLevenbergWith(LevenbergOptions{}) }

// NewLevenbergWith returns Levenberg–Marquardt with the given settings.
func NewLevenbergWith(opts LevenbergOptions) *Levenberg {
	opts.normalize()

	return &Levenberg{opts: opts}
}

// Name implements Algorithm.
func (*Levenberg) Name() string { return "lm" }

// Lambda returns the current damping.
func (l *Levenberg) Lambda() float64 { return l.lambda }

// Init implements Algorithm.
func (l *Levenberg) Init(o *SparseOptimizer) error {
	l.o = o
	l.lambda, l.ni, l.trials = 0, 2, 0

	return nil
}

// Solve implements Algorithm.
func (l *Levenberg) Solve(iteration int) (Status, error) {
	o := l.o
	currentChi := o.ActiveRobustChi2()
	if err := o.buildSystem(); err != nil {
		return StatusFail, err
	}
	if iteration == 0 {
		l.lambda = l.initialLambda()
		l.ni = 2
	}
	b := o.solver.B()
	if normInf(b) < l.opts.GradientTolerance {
		l.trials = 0
		return StatusConverged, nil
	}

	l.trials = 0
	for l.trials < l.opts.MaxTrialsAfterFailure && !o.ForceStop() {
		l.trials++
		o.push()
		o.solver.SetLambda(l.lambda, true)
		solveErr := o.solveSystem()
		o.solver.RestoreDiagonal()

		x := o.solver.X()
		if solveErr == nil && finiteVec(x) {
			if err := o.update(x); err != nil {
				return StatusFail, err
			}
			if err := o.ComputeActiveErrors(); err != nil {
				return StatusFail, err
			}
			tempChi := o.ActiveRobustChi2()
			rho := (currentChi - tempChi) / l.scale(x, b)
			if rho > 0 && !math.IsInf(tempChi, 0) && !math.IsNaN(tempChi) {
				alpha := math.Min(1-math.Pow(2*rho-1, 3), 2.0/3)
				l.lambda *= math.Max(1.0/3, alpha)
				l.ni = 2
				o.discardTop()
				if normInf(x) <= l.opts.StepTolerance {
					return StatusConverged, nil
				}
				return StatusOK, nil
			}
		}

		o.pop()
		l.lambda *= l.ni
		l.ni *= 2
		if l.lambda > l.opts.MaxLambda || math.IsInf(l.lambda, 0) {
			return StatusFail, nil
		}
	}
	if o.ForceStop() {
		return StatusOK, nil
	}

	return StatusFail, nil
}

func (l *Levenberg) initialLambda() float64 {
	if l.opts.UserLambdaInit > 0 {
		return l.opts.UserLambdaInit
	}
	if d := l.o.solver.MaxDiagonal(); d > 0 {
		return l.opts.Tau * d
	}

	return l.opts.Tau
}

// scale is the gain predicted by the damped model, Δxᵀ(λΔx + b), plus 1e-3.
func (l *Levenberg) scale(x, b []float64) float64 {
	s := 0.0
	for i := range x {
		s += x[i] * (l.lambda*x[i] + b[i])
	}

	return s + 1e-3
}

// Describe implements Algorithm.
func (l *Levenberg) Describe(st *IterationStats) {
	st.Lambda = l.lambda
	st.LevenbergIterations = l.trials
}
