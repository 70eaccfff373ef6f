package physics

import (
	"math"

	"github.com/mageling/arena/internal/geom"
)

// CorrectionEpsilon is the smallest correction length recorded as an axis.
const CorrectionEpsilon = 1e-7

// Resolve returns the minimum translation that moves movable out of static,
// or the zero vector when they do not overlap. Box/box uses the two
// separating axes of the boxes; pairs involving a circle use the axis through
// the closest point, which is the only candidate axis a circle adds.
//
// Degenerate contacts (concentric circles, a circle center inside a box)
// resolve along a fixed axis rather than producing NaN.
func Resolve(static, movable Shape) geom.Vec2 {
	switch {
	case static.Kind == KindAABB && movable.Kind == KindAABB:
		return boxBox(static, movable)
	case static.Kind == KindCircle && movable.Kind == KindCircle:
		return circleCircle(static, movable)
	case static.Kind == KindAABB && movable.Kind == KindCircle:
		return boxCircle(static, movable)
	default:
		// Pushing a box out of a circle is the reverse of pushing the circle
		// out of the box.
		return boxCircle(movable, static).Neg()
	}
}

// Overlaps reports whether the two shapes penetrate. Touching edges do not
// count.
func Overlaps(a, b Shape) bool {
	return !Resolve(a, b).IsZero()
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func boxBox(s, m Shape) geom.Vec2 {
	dx := float64(m.Center.X - s.Center.X)
	px := float64(float64(s.HalfW+m.HalfW) - math.Abs(dx))
	if px <= 0 {
		return geom.Zero
	}
	dy := float64(m.Center.Y - s.Center.Y)
	py := float64(float64(s.HalfH+m.HalfH) - math.Abs(dy))
	if py <= 0 {
		return geom.Zero
	}
	if px < py {
		return geom.Vec2{X: sign(dx) * px}
	}
	return geom.Vec2{Y: sign(dy) * py}
}

func circleCircle(s, m Shape) geom.Vec2 {
	d := m.Center.Sub(s.Center)
	r := float64(s.Radius + m.Radius)
	dist2 := d.LengthSquared()
	if dist2 >= float64(r*r) {
		return geom.Zero
	}
	dist := math.Sqrt(dist2)
	if dist == 0 {
		return geom.Vec2{X: r}
	}
	return d.Scale(float64(1 / dist)).Scale(float64(r - dist))
}

func boxCircle(box, c Shape) geom.Vec2 {
	lo, hi := box.Min(), box.Max()
	closest := geom.Vec2{
		X: geom.Clamp(c.Center.X, lo.X, hi.X),
		Y: geom.Clamp(c.Center.Y, lo.Y, hi.Y),
	}
	d := c.Center.Sub(closest)
	dist2 := d.LengthSquared()
	if dist2 > 0 {
		if dist2 >= float64(c.Radius*c.Radius) {
			return geom.Zero
		}
		dist := math.Sqrt(dist2)
		return d.Scale(float64(1 / dist)).Scale(float64(c.Radius - dist))
	}

	// Center inside the box: leave through the nearest face.
	left := float64(c.Center.X - lo.X)
	right := float64(hi.X - c.Center.X)
	down := float64(c.Center.Y - lo.Y)
	up := float64(hi.Y - c.Center.Y)
	best, out := left, geom.Vec2{X: -float64(left + c.Radius)}
	if right < best {
		best, out = right, geom.Vec2{X: float64(right + c.Radius)}
	}
	if down < best {
		best, out = down, geom.Vec2{Y: -float64(down + c.Radius)}
	}
	if up < best {
		out = geom.Vec2{Y: float64(up + c.Radius)}
	}
	return out
}
