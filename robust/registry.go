package robust

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Factory builds a kernel of width delta.
type Factory func(delta float64) Kernel

// Registry maps case-insensitive kernel names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every kernel of this package.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("huber", func(d float64) Kernel { return Huber{D: d} })
	r.Register("pseudohuber", func(d float64) Kernel { return PseudoHuber{D: d} })
	r.Register("cauchy", func(d float64) Kernel { return Cauchy{D: d} })
	r.Register("tukey", func(d float64) Kernel { return Tukey{D: d} })
	r.Register("saturated", func(d float64) Kernel { return Saturated{D: d} })
	r.Register("dcs", func(d float64) Kernel { return DCS{D: d} })

	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// New builds the kernel registered under name.
//
// Errors: ErrBadDelta, ErrUnknownKernel.
func (r *Registry) New(name string, delta float64) (Kernel, error) {
	if delta <= 0 || math.IsInf(delta, 0) || math.IsNaN(delta) {
		return nil, fmt.Errorf("%w: %g", ErrBadDelta, delta)
	}
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}

	return f(delta), nil
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}
