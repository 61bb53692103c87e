package grid

import "math"

// AffineMatrix is a 2D frame transform:
//
//	x' = A*x + B*y + Tx
//	y' = C*x + D*y + Ty
//
// Robot, world and map frames differ by translation only today, but sensor
// mounts and beams go through the full form so a heading can be added later.
type AffineMatrix struct {
	A, B, Tx float64
	C, D, Ty float64
}

// Identity leaves points unchanged.
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, D: 1}
}

// Translation shifts points by (tx, ty).
func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, D: 1, Tx: tx, Ty: ty}
}

// Apply maps a position through m.
func (m AffineMatrix) Apply(p Point) Point {
	v := m.ApplyVector(p)
	return Point{X: v.X + m.Tx, Y: v.Y + m.Ty}
}

// ApplyVector maps a direction through the linear part of m only.
func (m AffineMatrix) ApplyVector(v Point) Point {
	return Point{X: m.A*v.X + m.B*v.Y, Y: m.C*v.X + m.D*v.Y}
}

// Then returns the transform that applies m first and next second.
func (m AffineMatrix) Then(next AffineMatrix) AffineMatrix {
	origin := next.Apply(Point{X: m.Tx, Y: m.Ty})
	return AffineMatrix{
		A: next.A*m.A + next.B*m.C, B: next.A*m.B + next.B*m.D, Tx: origin.X,
		C: next.C*m.A + next.D*m.C, D: next.C*m.B + next.D*m.D, Ty: origin.Y,
	}
}

// Inverse returns the transform undoing m. ok is false when m is singular.
func (m AffineMatrix) Inverse() (inv AffineMatrix, ok bool) {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-10 {
		return AffineMatrix{}, false
	}
	inv = AffineMatrix{A: m.D / det, B: -m.B / det, C: -m.C / det, D: m.A / det}
	t := inv.ApplyVector(Point{X: m.Tx, Y: m.Ty})
	inv.Tx, inv.Ty = -t.X, -t.Y
	return inv, true
}
