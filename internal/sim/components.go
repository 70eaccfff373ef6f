package sim

import (
	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
)

// Actor identifies a player-controlled entity.
type Actor struct {
	Handle input.Handle
	Team   combat.TeamID
}

type Transform struct {
	Position geom.Vec2
}

// Motion carries the velocity set by the intent stage.
type Motion struct {
	Velocity geom.Vec2
}

// Health is carried in state and checksummed but not consumed by hits.
type Health struct {
	Max, Current int
}

// AnimationTag is the animation presentation should play for an actor.
type AnimationTag uint8

const (
	AnimIdle AnimationTag = iota
	AnimRun
	AnimDash
	AnimCast
)

func (a AnimationTag) String() string {
	switch a {
	case AnimIdle:
		return "idle"
	case AnimRun:
		return "run"
	case AnimDash:
		return "dash"
	case AnimCast:
		return "cast"
	default:
		return "unknown"
	}
}
