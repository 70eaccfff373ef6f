package combat

import (
	"fmt"

	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/movement"
)

// Phase is a projectile's lifetime phase.
type Phase uint8

const (
	// PhaseIndicator is the aim preview shown while the caster is in Precast.
	// Projectiles never carry it; presentation uses it for the cursor marker.
	PhaseIndicator Phase = iota
	PhaseCastDelay
	PhaseCast
	PhasePostCast
)

func (p Phase) String() string {
	switch p {
	case PhaseIndicator:
		return "Indicator"
	case PhaseCastDelay:
		return "CastDelay"
	case PhaseCast:
		return "Cast"
	case PhasePostCast:
		return "PostCast"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Lifetime drives a projectile from spawn to despawn. Elapsed never
// decreases. The animation counter restarts at every phase change.
type Lifetime struct {
	Phase        Phase
	Elapsed      float64
	MaxCastDelay float64

	AnimFrame  int
	AnimTicks  int
	FrameTicks int

	MaxIndicatorFrame int
	MaxExplosionFrame int
	MaxPostCastFrame  int
}

func NewLifetime(a Ability) Lifetime {
	ticks := a.FrameTicks
	if ticks < 1 {
		ticks = 1
	}
	return Lifetime{
		Phase:             PhaseCastDelay,
		MaxCastDelay:      a.CastDelay,
		FrameTicks:        ticks,
		MaxIndicatorFrame: a.MaxIndicatorFrame,
		MaxExplosionFrame: a.MaxExplosionFrame,
		MaxPostCastFrame:  a.MaxPostCastFrame,
	}
}

// Live reports whether the projectile can deal damage.
func (l Lifetime) Live() bool { return l.Phase == PhaseCast }

// LifetimeStep is what happened to a projectile during one lifetime advance.
type LifetimeStep uint8

const (
	LifetimeNone LifetimeStep = iota
	LifetimeDetonated
	LifetimeExpired
)

// Advance moves the lifetime forward by one simulation frame.
func (l *Lifetime) Advance(dt float64) LifetimeStep {
	l.Elapsed = float64(l.Elapsed + dt)
	switch l.Phase {
	case PhaseCastDelay:
		if movement.Reached(l.Elapsed, l.MaxCastDelay) {
			l.enter(PhaseCast)
			return LifetimeDetonated
		}
		if l.tick() && l.MaxIndicatorFrame > 0 && l.AnimFrame >= l.MaxIndicatorFrame {
			// The delay indicator loops until the cast lands.
			l.AnimFrame = 0
		}
	case PhaseCast:
		l.tick()
		if l.AnimFrame >= l.MaxExplosionFrame {
			if l.MaxPostCastFrame > 0 {
				l.enter(PhasePostCast)
				return LifetimeNone
			}
			return LifetimeExpired
		}
	case PhasePostCast:
		l.tick()
		if l.AnimFrame >= l.MaxPostCastFrame {
			return LifetimeExpired
		}
	default:
		return LifetimeExpired
	}
	return LifetimeNone
}

// tick advances the animation by one simulation frame and reports whether the
// animation frame changed.
func (l *Lifetime) tick() bool {
	l.AnimTicks++
	if l.AnimTicks < l.FrameTicks {
		return false
	}
	l.AnimTicks = 0
	l.AnimFrame++
	return true
}

func (l *Lifetime) enter(p Phase) {
	l.Phase = p
	l.AnimFrame = 0
	l.AnimTicks = 0
}

// Spell is the projectile component. Its collision shape lives in a
// physics.Body on the same entity.
type Spell struct {
	// ID is the world's spawn counter at creation, identical on every peer.
	ID       uint32
	Caster   input.Handle
	Ability  AbilityID
	Damage   int
	Spawn    geom.Vec2
	Lifetime Lifetime
	// HitMask has bit h set once the spell has hit the actor with handle h.
	HitMask uint64
}

// NewSpell builds the projectile for a released cast.
func NewSpell(id uint32, caster input.Handle, a Ability, at geom.Vec2) Spell {
	return Spell{
		ID:       id,
		Caster:   caster,
		Ability:  a.ID,
		Damage:   a.Damage,
		Spawn:    at,
		Lifetime: NewLifetime(a),
	}
}

// CanHit reports whether the spell damages the given actor this frame.
// Each actor is hit at most once per spell.
func (s *Spell) CanHit(victim input.Handle) bool {
	if !s.Lifetime.Live() || victim == s.Caster || victim < 0 || victim >= 64 {
		return false
	}
	return s.HitMask&(1<<uint(victim)) == 0
}

func (s *Spell) MarkHit(victim input.Handle) {
	if victim >= 0 && victim < 64 {
		s.HitMask |= 1 << uint(victim)
	}
}
