package physics

import (
	"fmt"

	"github.com/mageling/arena/internal/geom"
)

// Kind selects which convex primitive a Shape is.
type Kind uint8

const (
	KindAABB Kind = iota
	KindCircle
)

func (k Kind) String() string {
	switch k {
	case KindAABB:
		return "aabb"
	case KindCircle:
		return "circle"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Shape is an axis-aligned box or a circle, positioned by its center. It is a
// plain value so snapshots copy it without aliasing.
type Shape struct {
	Kind   Kind
	Center geom.Vec2
	// HalfW and HalfH are used by KindAABB.
	HalfW, HalfH float64
	// Radius is used by KindCircle.
	Radius float64
}

// NewAABB builds a box of the given full width and height centered at c.
func NewAABB(c geom.Vec2, width, height float64) Shape {
	return Shape{Kind: KindAABB, Center: c, HalfW: width / 2, HalfH: height / 2}
}

func NewCircle(c geom.Vec2, radius float64) Shape {
	return Shape{Kind: KindCircle, Center: c, Radius: radius}
}

// Min and Max are the box corners. Only meaningful for KindAABB.
func (s Shape) Min() geom.Vec2 { return geom.Vec2{X: float64(s.Center.X - s.HalfW), Y: float64(s.Center.Y - s.HalfH)} }
func (s Shape) Max() geom.Vec2 { return geom.Vec2{X: float64(s.Center.X + s.HalfW), Y: float64(s.Center.Y + s.HalfH)} }

// At returns a copy of s moved to center c.
func (s Shape) At(c geom.Vec2) Shape {
	s.Center = c
	return s
}

// Body is the collision component: one convex shape plus the axes along which
// the actor was pushed this frame. Axes are cleared at the start of every
// frame and filled only by wall resolution.
type Body struct {
	Shape Shape
	Axes  []geom.Vec2
}

func (b *Body) DeepCopy() *Body {
	out := &Body{Shape: b.Shape}
	if len(b.Axes) > 0 {
		out.Axes = make([]geom.Vec2, len(b.Axes))
		copy(out.Axes, b.Axes)
	}
	return out
}
