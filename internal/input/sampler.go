package input

import "github.com/mageling/arena/internal/geom"

// Slots is the number of ability slots bound to Key1..Key4.
const Slots = 4

var slotKeys = [Slots]Key{Key1, Key2, Key3, Key4}

// ActorView is the part of the local actor's authoritative state the sampler
// reads. It is built fresh every frame from the current world.
type ActorView struct {
	Dashing bool
	CanDash bool
	// Precast is true while a cast is pending; PrecastAbility names it.
	Precast        bool
	PrecastAbility uint32
	Loadout        [Slots]uint32
}

// Sample encodes raw device state into a Packet. It is a pure function of its
// arguments: no globals are read or written.
func Sample(dev DeviceState, actor ActorView) Packet {
	var p Packet
	var dir geom.Vec2

	if !actor.Dashing {
		if dev.Held.AnyOf(KeyUp, KeyW) {
			dir.Y += 1
		}
		if dev.Held.AnyOf(KeyDown, KeyS) {
			dir.Y -= 1
		}
		if dev.Held.AnyOf(KeyRight, KeyD) {
			dir.X += 1
		}
		if dev.Held.AnyOf(KeyLeft, KeyA) {
			dir.X -= 1
		}
		if dev.JustPressed.Has(KeySpace) && actor.CanDash {
			p.Actions |= Dash
		}
	}

	if dev.Held.Has(KeyF) {
		p.Actions |= Autoattack
	}
	if dev.Held.Has(KeyShift) {
		p.Actions |= Shield
	}

	for i, k := range slotKeys {
		if dev.Held.Has(k) && actor.Loadout[i] != 0 {
			p.Actions |= SelectAbility
			p.Ability = actor.Loadout[i]
			break
		}
	}

	if actor.Precast && !p.Has(SelectAbility) {
		if dev.Mouse.Has(MouseLeft) {
			p.Actions |= CastSpell
			p.Ability = actor.PrecastAbility
		} else if dev.Mouse.Has(MouseRight) {
			p.Actions |= CancelCast
		}
	}

	p.Move = ToVec32(dir)
	p.Cursor = ToVec32(dev.Cursor)
	return p.Canonical()
}
