package combat

import (
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/movement"
)

// Ability is one catalog entry. Durations are in seconds, animation
// thresholds in animation frames, and FrameTicks in simulation frames per
// animation frame.
type Ability struct {
	ID     AbilityID
	Name   string
	Damage int
	Radius float64
	// MaxRange limits how far from the caster the spell may land. Zero means
	// unlimited.
	MaxRange  float64
	CastDelay float64
	Cooldown  float64

	FrameTicks        int
	MaxIndicatorFrame int
	MaxExplosionFrame int
	MaxPostCastFrame  int
}

// Catalog resolves ability ids.
type Catalog interface {
	Ability(id AbilityID) (Ability, bool)
}

// Caster is the per-actor combat component.
type Caster struct {
	State     CastState
	Loadout   [input.Slots]AbilityID
	Cooldowns [input.Slots]float64
}

func NewCaster(loadout [input.Slots]AbilityID) Caster {
	return Caster{State: None{}, Loadout: loadout}
}

// Slot returns the loadout slot holding id, or -1.
func (c *Caster) Slot(id AbilityID) int {
	if id == 0 {
		return -1
	}
	for i, a := range c.Loadout {
		if a == id {
			return i
		}
	}
	return -1
}

// Ready reports whether the slot is off cooldown.
func (c *Caster) Ready(slot int) bool {
	return slot >= 0 && c.Cooldowns[slot] <= 0
}

// TickCooldowns counts every slot's cooldown down by dt, stopping at zero.
func (c *Caster) TickCooldowns(dt float64) {
	for i := range c.Cooldowns {
		switch {
		case c.Cooldowns[i] <= 0:
		case movement.Reached(dt, c.Cooldowns[i]):
			c.Cooldowns[i] = 0
		default:
			c.Cooldowns[i] = float64(c.Cooldowns[i] - dt)
		}
	}
}

// Target clamps the requested landing point to the ability's range.
func (a Ability) Target(caster, cursor geom.Vec2) geom.Vec2 {
	if a.MaxRange <= 0 {
		return cursor
	}
	d := cursor.Sub(caster)
	if d.LengthSquared() <= float64(a.MaxRange*a.MaxRange) {
		return cursor
	}
	return caster.Add(d.NormalizeOrZero().Scale(a.MaxRange))
}

// Apply runs one frame's cast command against the caster. Selecting an
// ability outside the loadout is ignored. A cast trigger while the pending
// ability is cooling down leaves the caster in Precast. On release the slot's
// cooldown starts and the ability is returned.
func (c *Caster) Apply(cmd Command, catalog Catalog) (Ability, bool) {
	if c.State == nil {
		c.State = None{}
	}
	if cmd.Select && c.Slot(cmd.Ability) < 0 {
		cmd.Select = false
	}
	next, id, released := Step(c.State, cmd)
	if !released {
		c.State = next
		return Ability{}, false
	}
	slot := c.Slot(id)
	a, ok := catalog.Ability(id)
	if !ok || !c.Ready(slot) {
		return Ability{}, false
	}
	c.State = next
	c.Cooldowns[slot] = a.Cooldown
	return a, true
}
