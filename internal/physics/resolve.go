package physics

import "github.com/mageling/arena/internal/geom"

// ClearCorrections drops last frame's correction axes, keeping capacity.
func ClearCorrections(b *Body) {
	b.Axes = b.Axes[:0]
}

// Sync copies the transform position into the shape. Shapes never read the
// transform on their own.
func Sync(b *Body, pos geom.Vec2) {
	b.Shape.Center = pos
}

// ResolveWalls pushes a movable body out of each wall in order, applying each
// correction to both pos and the shape before testing the next wall. Walls
// are resolved one after another, not simultaneously, so deep overlaps with
// several walls can settle in a different place than an exact solve would.
func ResolveWalls(pos *geom.Vec2, b *Body, walls []Shape) {
	for _, w := range walls {
		c := Resolve(w, b.Shape)
		if c.IsZero() {
			continue
		}
		next := b.Shape.Center.Add(c)
		b.Shape.Center = next
		*pos = next
		if l := c.Length(); l > CorrectionEpsilon {
			b.Axes = append(b.Axes, geom.Vec2{X: float64(c.X / l), Y: float64(c.Y / l)})
		}
	}
}
