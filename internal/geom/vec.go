package geom

import "math"

// Vec2 is a 2D vector in world units. All simulation math goes through these
// helpers so every peer performs the same operations in the same order.
//
// Results are wrapped in explicit float64 conversions: the Go compiler may fuse
// x*y+z into a single FMA instruction on some architectures, and an explicit
// conversion forces rounding at that point on every platform.
type Vec2 struct {
	X, Y float64
}

// Zero is the zero vector.
var Zero = Vec2{}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: float64(v.X + o.X), Y: float64(v.Y + o.Y)} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: float64(v.X - o.X), Y: float64(v.Y - o.Y)} }
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: float64(v.X * s), Y: float64(v.Y * s)}
}
func (v Vec2) Neg() Vec2 { return Vec2{X: -v.X, Y: -v.Y} }

func (v Vec2) Dot(o Vec2) float64 {
	return float64(float64(v.X*o.X) + float64(v.Y*o.Y))
}

func (v Vec2) LengthSquared() float64 { return v.Dot(v) }

func (v Vec2) Length() float64 { return math.Sqrt(v.LengthSquared()) }

func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Finite reports whether neither component is NaN or infinite.
func (v Vec2) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// NormalizeOrZero returns the unit vector in the direction of v, or exactly
// (0,0) when v has zero length or is not finite. It never returns NaN.
func (v Vec2) NormalizeOrZero() Vec2 {
	if !v.Finite() {
		return Zero
	}
	l := v.Length()
	if l == 0 || math.IsInf(l, 0) || math.IsNaN(l) {
		return Zero
	}
	n := Vec2{X: float64(v.X / l), Y: float64(v.Y / l)}
	if !n.Finite() {
		return Zero
	}
	return n
}

// Clamp returns x limited to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Less orders vectors by X, then Y. Used to sort static geometry.
func Less(a, b Vec2) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}
