package types

import "math"

// SE2 is a planar rigid transform: rotation by Theta, then translation (X, Y).
type SE2 struct {
	X, Y, Theta float64
}

// NormalizeAngle maps a to (−π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}

	return a - math.Pi
}

// Compose returns a ∘ b.
func (a SE2) Compose(b SE2) SE2 {
	s, c := math.Sincos(a.Theta)

	return SE2{
		X:     a.X + c*b.X - s*b.Y,
		Y:     a.Y + s*b.X + c*b.Y,
		Theta: NormalizeAngle(a.Theta + b.Theta),
	}
}

// Inverse returns a⁻¹.
func (a SE2) Inverse() SE2 {
	s, c := math.Sincos(a.Theta)

	return SE2{
		X:     -c*a.X - s*a.Y,
		Y:     s*a.X - c*a.Y,
		Theta: NormalizeAngle(-a.Theta),
	}
}

// Apply transforms the point p.
func (a SE2) Apply(p [2]float64) [2]float64 {
	s, c := math.Sincos(a.Theta)

	return [2]float64{a.X + c*p[0] - s*p[1], a.Y + s*p[0] + c*p[1]}
}

// Vector returns (X, Y, Theta).
func (a SE2) Vector() [3]float64 { return [3]float64{a.X, a.Y, a.Theta} }
