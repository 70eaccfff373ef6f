package movement

import "github.com/mageling/arena/internal/geom"

// Stats are an actor's movement tuning values.
type Stats struct {
	Speed              float64
	DashPower          float64
	DashDuration       float64
	DashCooldownLength float64
}

// Component is an actor's movement state plus dash bookkeeping.
type Component struct {
	State        State
	CanDash      bool
	DashCooldown float64
}

func NewComponent() Component {
	return Component{State: Idle{}, CanDash: true}
}

func (c *Component) Dashing() bool {
	_, ok := c.State.(Dashing)
	return ok
}

// ApplyIntent runs the intent step for one frame and returns the new movement
// velocity (normalize-or-zero of the requested direction).
func (c *Component) ApplyIntent(requested geom.Vec2, dash bool) geom.Vec2 {
	dir := requested.NormalizeOrZero()
	switch {
	case dash && c.CanDash:
		c.State = Dashing{Elapsed: 0, Direction: dir}
		c.CanDash = false
	case c.Dashing():
		// Locked until the dash expires.
	case !dir.IsZero():
		c.State = Walking{}
	default:
		c.State = Idle{}
	}
	return dir
}

// Integrate returns the position after one step. Idle still applies the
// residual velocity, so an actor keeps drifting until intent zeroes it.
func Integrate(pos geom.Vec2, c Component, velocity geom.Vec2, stats Stats, dt float64) geom.Vec2 {
	if d, ok := c.State.(Dashing); ok {
		speed := float64(stats.Speed * stats.DashPower)
		return pos.Add(d.Direction.Scale(float64(speed * dt)))
	}
	return pos.Add(velocity.Scale(float64(stats.Speed * dt)))
}

// TickDash advances the dash timer or, when not dashing, the dash cooldown.
func (c *Component) TickDash(stats Stats, dt float64) {
	if d, ok := c.State.(Dashing); ok {
		d.Elapsed = float64(d.Elapsed + dt)
		if Reached(d.Elapsed, stats.DashDuration) {
			c.State = Idle{}
		} else {
			c.State = d
		}
		return
	}
	if c.CanDash {
		return
	}
	c.DashCooldown = float64(c.DashCooldown + dt)
	if Reached(c.DashCooldown, stats.DashCooldownLength) {
		c.CanDash = true
		c.DashCooldown = 0
	}
}
