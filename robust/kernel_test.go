package robust_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/graphopt/robust"
	"github.com/stretchr/testify/require"
)

func allKernels(delta float64) []robust.Kernel {
	return []robust.Kernel{
		robust.Huber{D: delta},
		robust.PseudoHuber{D: delta},
		robust.Cauchy{D: delta},
		robust.Tukey{D: delta},
		robust.Saturated{D: delta},
		robust.DCS{D: delta},
		robust.ScaleDelta{Kernel: robust.Huber{D: 1}, D: delta},
	}
}

// TestKernelsMonotoneNonNegative checks ρ ≥ 0, ρ′ ≥ 0 and, except for DCS
// (whose scaled cost decays for large errors), ρ non-decreasing on a grid.
func TestKernelsMonotoneNonNegative(t *testing.T) {
	for _, k := range allKernels(1.5) {
		prev := -1.0
		for e2 := 0.0; e2 <= 50; e2 += 0.05 {
			r := k.Robustify(e2)
			require.GreaterOrEqual(t, r[0], 0.0, "%s ρ(%g)", k.Name(), e2)
			require.GreaterOrEqual(t, r[1], 0.0, "%s ρ′(%g)", k.Name(), e2)
			if k.Name() == "DCS" {
				continue
			}
			require.GreaterOrEqual(t, r[0], prev-1e-12, "%s not monotone at %g", k.Name(), e2)
			prev = r[0]
		}
	}
}

// TestKernelsDerivative compares ρ′ with a central difference away from kinks.
func TestKernelsDerivative(t *testing.T) {
	const h = 1e-6
	for _, k := range allKernels(2) {
		for _, e2 := range []float64{0.3, 1.7, 9, 25} {
			if k.Name() == "DCS" {
				continue // ρ′ here is the scaling weight, not the derivative
			}
			num := (k.Robustify(e2+h)[0] - k.Robustify(e2-h)[0]) / (2 * h)
			require.InDelta(t, num, k.Robustify(e2)[1], 1e-5, "%s at %g", k.Name(), e2)
		}
	}
}

func TestHuberValues(t *testing.T) {
	k := robust.Huber{D: 1}
	require.Equal(t, robust.Rho{0.25, 1, 0}, k.Robustify(0.25))

	require.Equal(t, robust.Rho{0.5, 1, 0}, k.Robustify(0.5))

	r := k.Robustify(4) // |e| = 2
	require.Less(t, r[0], 4.0)
	require.InDelta(t, 3.0, r[0], 1e-15)
	require.InDelta(t, 0.5, r[1], 1e-15)
	require.InDelta(t, -0.0625, r[2], 1e-15)
}

func TestSaturatingKernels(t *testing.T) {
	tk := robust.Tukey{D: 1}
	require.Equal(t, robust.Rho{1.0 / 3, 0, 0}, tk.Robustify(4))
	require.InDelta(t, 1.0/3, tk.Robustify(1)[0], 1e-15)

	s := robust.Saturated{D: 2}
	require.Equal(t, robust.Rho{4, 0, 0}, s.Robustify(10))

	d := robust.DCS{D: 1}
	require.Equal(t, robust.Rho{0.5, 1, 0}, d.Robustify(0.5))
	r := d.Robustify(3) // scale = 0.5
	require.InDelta(t, 0.75, r[0], 1e-15)
	require.InDelta(t, 0.25, r[1], 1e-15)
}

func TestScaleDeltaMatchesHuber(t *testing.T) {
	a := robust.ScaleDelta{Kernel: robust.Huber{D: 1}, D: 3}
	b := robust.Huber{D: 3}
	for _, e2 := range []float64{0.5, 9, 40} {
		ra, rb := a.Robustify(e2), b.Robustify(e2)
		for i := range ra {
			require.InDelta(t, rb[i], ra[i], 1e-12)
		}
	}
}

func TestWeightAndCostNilKernel(t *testing.T) {
	require.Equal(t, 1.0, robust.Weight(nil, 7))
	require.Equal(t, 7.0, robust.Cost(nil, 7))
	require.InDelta(t, 0.5, robust.Weight(robust.Huber{D: 1}, 4), 1e-15)
}

func TestRegistry(t *testing.T) {
	r := robust.DefaultRegistry()
	k, err := r.New("Huber", 2)
	require.NoError(t, err)
	require.Equal(t, robust.Huber{D: 2}, k)

	_, err = r.New("nope", 1)
	require.ErrorIs(t, err, robust.ErrUnknownKernel)
	_, err = r.New("cauchy", 0)
	require.ErrorIs(t, err, robust.ErrBadDelta)
	_, err = r.New("cauchy", math.Inf(1))
	require.ErrorIs(t, err, robust.ErrBadDelta)

	require.Equal(t, []string{"cauchy", "dcs", "huber", "pseudohuber", "saturated", "tukey"}, r.Names())
}
