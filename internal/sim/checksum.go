package sim

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/core/ecs"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/movement"
)

// Checksum hashes every rolled-back field in a fixed order. Two worlds with
// the same checksum simulate the same future.
func (w *World) Checksum() [32]byte {
	var h hasher
	h.i64(int64(w.Frame))
	h.u32(w.SpellSerial)
	h.u32(w.ecs.Pool().Allocated())
	h.u8(uint8(w.Round.Phase))
	h.i64(int64(w.Round.Number))
	h.i64(int64(w.Round.FramesLeft))
	for i := range w.Round.Scores {
		h.i64(int64(w.Round.Scores[i]))
		h.i64(int64(w.Round.Wins[i]))
	}

	w.Actors.EachSorted(func(id ecs.EntityID, a *Actor) {
		h.u64(uint64(id))
		h.i64(int64(a.Handle))
		h.u8(uint8(a.Team))
		if tr, ok := w.Transforms.Get(id); ok {
			h.vec(tr.Position)
		}
		if m, ok := w.Motions.Get(id); ok {
			h.vec(m.Velocity)
		}
		if mc, ok := w.Movers.Get(id); ok {
			h.movement(mc)
		}
		if hp, ok := w.Healths.Get(id); ok {
			h.i64(int64(hp.Current))
		}
		if b, ok := w.Bodies.Get(id); ok {
			h.vec(b.Shape.Center)
			h.u32(uint32(len(b.Axes)))
			for _, ax := range b.Axes {
				h.vec(ax)
			}
		}
		if c, ok := w.Casters.Get(id); ok {
			h.caster(c)
		}
	})

	w.Spells.EachSorted(func(id ecs.EntityID, s *combat.Spell) {
		h.u64(uint64(id))
		h.u32(s.ID)
		h.i64(int64(s.Caster))
		h.u32(uint32(s.Ability))
		h.vec(s.Spawn)
		l := s.Lifetime
		h.u8(uint8(l.Phase))
		h.f64(l.Elapsed)
		h.i64(int64(l.AnimFrame))
		h.i64(int64(l.AnimTicks))
		h.u64(s.HitMask)
	})
	return blake2b.Sum256(h.buf)
}

type hasher struct {
	buf []byte
}

func (h *hasher) u8(v uint8)   { h.buf = append(h.buf, v) }
func (h *hasher) u32(v uint32) { h.buf = binary.LittleEndian.AppendUint32(h.buf, v) }
func (h *hasher) u64(v uint64) { h.buf = binary.LittleEndian.AppendUint64(h.buf, v) }
func (h *hasher) i64(v int64)  { h.u64(uint64(v)) }
func (h *hasher) f64(v float64) {
	h.u64(math.Float64bits(v))
}

func (h *hasher) vec(v geom.Vec2) {
	h.f64(v.X)
	h.f64(v.Y)
}

func (h *hasher) movement(mc *movement.Component) {
	switch s := mc.State.(type) {
	case movement.Dashing:
		h.u8(uint8(movement.TagDashing))
		h.f64(s.Elapsed)
		h.vec(s.Direction)
	case nil:
		h.u8(0xff)
	default:
		h.u8(uint8(s.Tag()))
	}
	if mc.CanDash {
		h.u8(1)
	} else {
		h.u8(0)
	}
	h.f64(mc.DashCooldown)
}

func (h *hasher) caster(c *combat.Caster) {
	switch s := c.State.(type) {
	case combat.Precast:
		h.u8(uint8(combat.TagPrecast))
		h.u32(uint32(s.Ability))
	default:
		h.u8(uint8(combat.TagNone))
	}
	for i := range c.Cooldowns {
		h.u32(uint32(c.Loadout[i]))
		h.f64(c.Cooldowns[i])
	}
}
