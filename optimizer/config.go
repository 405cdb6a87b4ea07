// File: config.go
// Role: JSON tuning file mapped onto Options.
//
// Every field is optional; omitted fields keep the library defaults, so a
// partial file is valid. Names are resolved through DefaultAlgorithms and
// robust.DefaultRegistry.
package optimizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/katalvlaran/graphopt/linsolve"
	"github.com/katalvlaran/graphopt/parallel"
	"github.com/katalvlaran/graphopt/robust"
)

// maxConfigSize bounds the tuning file.
const maxConfigSize = 1 * 1024 * 1024

// Config is the tuning file schema.
type Config struct {
	// Engine
	Algorithm    *string `json:"algorithm,omitempty"`     // gn | lm | dogleg
	LinearSolver *string `json:"linear_solver,omitempty"` // dense | cholesky | ldlt | pcg
	Ordering     *string `json:"ordering,omitempty"`      // natural | amd
	Schur        *bool   `json:"schur,omitempty"`
	Workers      *int    `json:"workers,omitempty"` // 0: GOMAXPROCS, 1: sequential
	Verbose      *bool   `json:"verbose,omitempty"`
	TimeBudget   *string `json:"time_budget,omitempty"` // duration string like "2s"

	// Iteration control
	MaxIterations      *int     `json:"max_iterations,omitempty"`
	SmallGainThreshold *float64 `json:"small_gain_threshold,omitempty"`

	// Algorithm parameters
	Tau                    *float64 `json:"tau,omitempty"`
	LambdaInit             *float64 `json:"lambda_init,omitempty"`
	MaxLambda              *float64 `json:"max_lambda,omitempty"`
	MaxTrialsAfterFailure  *int     `json:"max_trials_after_failure,omitempty"`
	InitialRadius          *float64 `json:"initial_radius,omitempty"`
	GradientTolerance      *float64 `json:"gradient_tolerance,omitempty"`
	StepTolerance          *float64 `json:"step_tolerance,omitempty"`
	MaxConsecutiveFailures *int     `json:"max_consecutive_failures,omitempty"`

	// PCG parameters
	PCGTolerance     *float64 `json:"pcg_tolerance,omitempty"`
	PCGMaxIterations *int     `json:"pcg_max_iterations,omitempty"`

	// Robust kernel applied by ApplyKernel
	Kernel      *string  `json:"kernel,omitempty"`
	KernelDelta *float64 `json:"kernel_delta,omitempty"`
}

// LoadConfig reads and validates a tuning file. The path must have a .json
// extension and the file must not exceed 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q", ErrBadConfig, ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrBadConfig, info.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates a tuning document.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config JSON: %v", ErrBadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks names, ranges and durations of the set fields.
func (c *Config) Validate() error {
	if c.Algorithm != nil {
		if _, err := DefaultAlgorithms().New(*c.Algorithm); err != nil {
			return fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
	}
	if c.LinearSolver != nil {
		switch strings.ToLower(*c.LinearSolver) {
		case "dense", "cholesky", "ldlt", "pcg":
		default:
			return fmt.Errorf("%w: %w: %q", ErrBadConfig, ErrUnknownSolver, *c.LinearSolver)
		}
	}
	if c.Ordering != nil {
		switch strings.ToLower(*c.Ordering) {
		case "natural", "amd":
		default:
			return fmt.Errorf("%w: unknown ordering %q", ErrBadConfig, *c.Ordering)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrBadConfig, *c.Workers)
	}
	if c.TimeBudget != nil && *c.TimeBudget != "" {
		d, err := time.ParseDuration(*c.TimeBudget)
		if err != nil {
			return fmt.Errorf("%w: invalid time_budget %q: %v", ErrBadConfig, *c.TimeBudget, err)
		}
		if d < 0 {
			return fmt.Errorf("%w: time_budget must be non-negative", ErrBadConfig)
		}
	}
	if c.MaxIterations != nil && *c.MaxIterations < 0 {
		return fmt.Errorf("%w: max_iterations must be non-negative, got %d", ErrBadConfig, *c.MaxIterations)
	}
	for name, v := range map[string]*float64{
		"tau":                  c.Tau,
		"lambda_init":          c.LambdaInit,
		"max_lambda":           c.MaxLambda,
		"initial_radius":       c.InitialRadius,
		"gradient_tolerance":   c.GradientTolerance,
		"step_tolerance":       c.StepTolerance,
		"pcg_tolerance":        c.PCGTolerance,
		"small_gain_threshold": c.SmallGainThreshold,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrBadConfig, name, *v)
		}
	}
	if c.Kernel != nil && *c.Kernel != "" {
		if _, err := c.RobustKernel(); err != nil {
			return fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
	}

	return nil
}

// GetMaxIterations returns max_iterations or the default 20.
func (c *Config) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 20
	}

	return *c.MaxIterations
}

// GetTimeBudget returns time_budget, zero when unset or invalid.
func (c *Config) GetTimeBudget() time.Duration {
	if c.TimeBudget == nil || *c.TimeBudget == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.TimeBudget)
	if err != nil {
		return 0
	}

	return d
}

// RobustKernel builds the configured kernel; nil when none is set.
// kernel_delta defaults to 1.
func (c *Config) RobustKernel() (robust.Kernel, error) {
	if c.Kernel == nil || *c.Kernel == "" {
		return nil, nil
	}
	delta := 1.0
	if c.KernelDelta != nil {
		delta = *c.KernelDelta
	}

	return robust.DefaultRegistry().New(*c.Kernel, delta)
}

// NewAlgorithm builds the configured algorithm with the configured parameters
// (default "lm").
func (c *Config) NewAlgorithm() (Algorithm, error) {
	name := "lm"
	if c.Algorithm != nil {
		name = strings.ToLower(*c.Algorithm)
	}
	f := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	n := func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	}

	switch name {
	case "gn":
		return NewGaussNewtonWith(GaussNewtonOptions{
			GradientTolerance:      f(c.GradientTolerance),
			StepTolerance:          f(c.StepTolerance),
			MaxConsecutiveFailures: n(c.MaxConsecutiveFailures),
		}), nil
	case "lm":
		return NewLevenbergWith(LevenbergOptions{
			Tau:                   f(c.Tau),
			UserLambdaInit:        f(c.LambdaInit),
			MaxTrialsAfterFailure: n(c.MaxTrialsAfterFailure),
			MaxLambda:             f(c.MaxLambda),
			GradientTolerance:     f(c.GradientTolerance),
			StepTolerance:         f(c.StepTolerance),
		}), nil
	case "dogleg":
		return NewDoglegWith(DoglegOptions{
			InitialRadius:         f(c.InitialRadius),
			MaxTrialsAfterFailure: n(c.MaxTrialsAfterFailure),
			GradientTolerance:     f(c.GradientTolerance),
			StepTolerance:         f(c.StepTolerance),
		}), nil
	}

	return DefaultAlgorithms().New(name)
}

// NewLinearSolver builds the configured linear solver (default "cholesky").
func (c *Config) NewLinearSolver() (linsolve.Solver, error) {
	name := "cholesky"
	if c.LinearSolver != nil {
		name = strings.ToLower(*c.LinearSolver)
	}
	ordering := linsolve.OrderingMinimumDegree
	if c.Ordering != nil && strings.ToLower(*c.Ordering) == "natural" {
		ordering = linsolve.OrderingNatural
	}

	switch name {
	case "dense":
		return linsolve.NewDense(), nil
	case "cholesky":
		return linsolve.NewSparseCholesky(linsolve.WithOrdering(ordering)), nil
	case "ldlt":
		return linsolve.NewSparseCholesky(linsolve.WithOrdering(ordering), linsolve.WithMode(linsolve.ModeLDLT)), nil
	case "pcg":
		var opts []linsolve.PCGOption
		if c.PCGTolerance != nil {
			opts = append(opts, linsolve.WithTolerance(*c.PCGTolerance))
		}
		if c.PCGMaxIterations != nil {
			opts = append(opts, linsolve.WithMaxIterations(*c.PCGMaxIterations))
		}
		return linsolve.NewPCG(opts...), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, name)
}

// Options converts the configuration into optimizer options.
func (c *Config) Options() ([]Option, error) {
	alg, err := c.NewAlgorithm()
	if err != nil {
		return nil, err
	}
	ls, err := c.NewLinearSolver()
	if err != nil {
		return nil, err
	}
	opts := []Option{WithAlgorithm(alg), WithLinearSolver(ls), WithTimeBudget(c.GetTimeBudget())}

	if c.Workers != nil && *c.Workers != 1 {
		pool, err := parallel.NewPool(*c.Workers)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
		opts = append(opts, WithExecutor(pool))
	}
	if c.Schur != nil {
		opts = append(opts, WithSchur(*c.Schur))
	}
	if c.Verbose != nil {
		opts = append(opts, WithVerbose(*c.Verbose))
	}
	if c.SmallGainThreshold != nil && *c.SmallGainThreshold > 0 {
		opts = append(opts, WithPostIteration(TerminateOnSmallGain(*c.SmallGainThreshold)))
	}

	return opts, nil
}

// ApplyKernel installs the configured kernel on every edge exposing
// SetRobustKernel (edges embedding BaseEdge do). It returns how many edges changed.
func (c *Config) ApplyKernel(g *Graph) (int, error) {
	k, err := c.RobustKernel()
	if err != nil || k == nil {
		return 0, err
	}
	type kernelSetter interface{ SetRobustKernel(robust.Kernel) }
	n := 0
	for _, h := range g.Edges() {
		e, _ := g.Edge(h)
		if s, ok := e.(kernelSetter); ok {
			s.SetRobustKernel(k)
			n++
		}
	}

	return n, nil
}
