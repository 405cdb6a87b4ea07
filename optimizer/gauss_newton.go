package optimizer

// GaussNewtonOptions tunes GaussNewton. Zero fields take the defaults.
type GaussNewtonOptions struct {
	// GradientTolerance stops when ‖b‖∞ falls below it (default 1e-10).
	GradientTolerance float64
	// StepTolerance stops when ‖Δx‖∞ falls to it or below (default 1e-12).
	StepTolerance float64
	// MaxConsecutiveFailures bounds failed linear solves in a row (default 3).
	MaxConsecutiveFailures int
}

func (opts *GaussNewtonOptions) normalize() {
	if opts.GradientTolerance <= 0 {
		opts.GradientTolerance = 1e-10
	}
	if opts.StepTolerance <= 0 {
		opts.StepTolerance = 1e-12
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 3
	}
}

// GaussNewton takes the full step H⁻¹b on every iteration.
type GaussNewton struct {
	opts     GaussNewtonOptions
	o        *SparseOptimizer
	failures int
}

// NewGaussNewton returns Gauss–Newton with default settings.
func NewGaussNewton() *GaussNewton { return NewGaussNewtonWith(GaussNewtonOptions{}) }

// NewGaussNewtonWith returns Gauss–Newton with the given settings.
func NewGaussNewtonWith(opts GaussNewtonOptions) *GaussNewton {
	opts.normalize()

	return &GaussNewton{opts: opts}
}

// Name implements Algorithm.
func (*GaussNewton) Name() string { return "gn" }

// Init implements Algorithm.
func (g *GaussNewton) Init(o *SparseOptimizer) error {
	g.o = o
	g.failures = 0

	return nil
}

// Solve implements Algorithm. A failed or non-finite solve leaves the state
// untouched and counts as a failure. Iteration 0 clears the failure count.
func (g *GaussNewton) Solve(iteration int) (Status, error) {
	o := g.o
	if iteration == 0 {
		g.failures = 0
	}
	if err := o.buildSystem(); err != nil {
		return StatusFail, err
	}
	if normInf(o.solver.B()) < g.opts.GradientTolerance {
		return StatusConverged, nil
	}

	if err := o.solveSystem(); err != nil || !finiteVec(o.solver.X()) {
		g.failures++
		if g.failures >= g.opts.MaxConsecutiveFailures {
			return StatusFail, nil
		}
		return StatusOK, nil
	}
	g.failures = 0
	if err := o.update(o.solver.X()); err != nil {
		return StatusFail, err
	}
	if normInf(o.solver.X()) <= g.opts.StepTolerance {
		return StatusConverged, nil
	}

	return StatusOK, nil
}

// Describe implements Algorithm.
func (*GaussNewton) Describe(*IterationStats) {}
