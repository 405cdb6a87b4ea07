// Package robust provides robust loss functions applied to the squared,
// information-weighted error e² = eᵀΩe of a constraint.
//
// Every kernel maps e² to Rho{ρ(e²), ρ′(e²), ρ″(e²)}. The optimizer uses ρ
// for the robust chi², scales the gradient by ρ′ and reweights the Hessian
// block with ρ′Ω. Kernels are immutable values, safe to share across
// goroutines and edges.
package robust

import (
	"errors"
	"math"
)

var (
	// ErrUnknownKernel indicates a registry lookup for an unregistered name.
	ErrUnknownKernel = errors.New("robust: unknown kernel")

	// ErrBadDelta indicates a non-positive or non-finite kernel width.
	ErrBadDelta = errors.New("robust: delta must be positive and finite")
)

// Rho holds ρ(e²), its first and its second derivative with respect to e².
type Rho [3]float64

// Kernel is a robust loss.
type Kernel interface {
	// Robustify returns ρ and its derivatives at e².
	Robustify(e2 float64) Rho
	// Delta returns the kernel width δ.
	Delta() float64
	Name() string
}

// Huber is quadratic up to |e| = δ and linear beyond.
type Huber struct{ D float64 }

// Delta implements Kernel.
func (k Huber) Delta() float64 { return k.D }

// Name implements Kernel.
func (Huber) Name() string { return "Huber" }

// Robustify implements Kernel.
func (k Huber) Robustify(e2 float64) Rho {
	dsqr := k.D * k.D
	if e2 <= dsqr {
		return Rho{e2, 1, 0}
	}
	sqrte := math.Sqrt(e2)
	r1 := k.D / sqrte

	return Rho{2*sqrte*k.D - dsqr, r1, -0.5 * r1 / e2}
}

// PseudoHuber is a smooth approximation of Huber.
type PseudoHuber struct{ D float64 }

// Delta implements Kernel.
func (k PseudoHuber) Delta() float64 { return k.D }

// Name implements Kernel.
func (PseudoHuber) Name() string { return "PseudoHuber" }

// Robustify implements Kernel.
func (k PseudoHuber) Robustify(e2 float64) Rho {
	dsqr := k.D * k.D
	aux1 := e2/dsqr + 1
	aux2 := math.Sqrt(aux1)
	r1 := 1 / aux2

	return Rho{2 * dsqr * (aux2 - 1), r1, -0.5 * r1 / (dsqr * aux1)}
}

// Cauchy grows logarithmically.
type Cauchy struct{ D float64 }

// Delta implements Kernel.
func (k Cauchy) Delta() float64 { return k.D }

// Name implements Kernel.
func (Cauchy) Name() string { return "Cauchy" }

// Robustify implements Kernel.
func (k Cauchy) Robustify(e2 float64) Rho {
	dsqr := k.D * k.D
	aux := e2/dsqr + 1
	r1 := 1 / aux

	return Rho{dsqr * math.Log(aux), r1, -r1 * r1 / dsqr}
}

// Tukey saturates at δ²/3 for |e| > δ.
type Tukey struct{ D float64 }

// Delta implements Kernel.
func (k Tukey) Delta() float64 { return k.D }

// Name implements Kernel.
func (Tukey) Name() string { return "Tukey" }

// Robustify implements Kernel.
func (k Tukey) Robustify(e2 float64) Rho {
	dsqr := k.D * k.D
	if math.Sqrt(e2) <= k.D {
		aux := e2 / dsqr
		one := 1 - aux
		return Rho{dsqr * (1 - one*one*one) / 3, one * one, -2 * one / dsqr}
	}

	return Rho{dsqr / 3, 0, 0}
}

// Saturated is quadratic up to δ² and constant beyond.
type Saturated struct{ D float64 }

// Delta implements Kernel.
func (k Saturated) Delta() float64 { return k.D }

// Name implements Kernel.
func (Saturated) Name() string { return "Saturated" }

// Robustify implements Kernel.
func (k Saturated) Robustify(e2 float64) Rho {
	dsqr := k.D * k.D
	if e2 <= dsqr {
		return Rho{e2, 1, 0}
	}

	return Rho{dsqr, 0, 0}
}

// DCS is dynamic covariance scaling: the error is scaled by min(1, 2δ/(δ+e²)).
type DCS struct{ D float64 }

// Delta implements Kernel.
func (k DCS) Delta() float64 { return k.D }

// Name implements Kernel.
func (DCS) Name() string { return "DCS" }

// Robustify implements Kernel.
func (k DCS) Robustify(e2 float64) Rho {
	scale := 2 * k.D / (k.D + e2)
	if scale >= 1 {
		return Rho{e2, 1, 0}
	}

	return Rho{scale * scale * e2, scale * scale, 0}
}

// ScaleDelta evaluates Kernel on e²/δ² and rescales the result by δ², turning
// a unit-width kernel into one of width δ.
type ScaleDelta struct {
	Kernel Kernel
	D      float64
}

// Delta implements Kernel.
func (k ScaleDelta) Delta() float64 { return k.D }

// Name implements Kernel.
func (k ScaleDelta) Name() string { return "ScaleDelta(" + k.Kernel.Name() + ")" }

// Robustify implements Kernel.
func (k ScaleDelta) Robustify(e2 float64) Rho {
	dsqr := k.D * k.D
	r := k.Kernel.Robustify(e2 / dsqr)

	return Rho{r[0] * dsqr, r[1], r[2] / dsqr}
}

// Weight returns the Hessian weight ρ′ for e², or 1 when k is nil.
func Weight(k Kernel, e2 float64) float64 {
	if k == nil {
		return 1
	}

	return k.Robustify(e2)[1]
}

// Cost returns ρ(e²), or e² when k is nil.
func Cost(k Kernel, e2 float64) float64 {
	if k == nil {
		return e2
	}

	return k.Robustify(e2)[0]
}
