package system

import (
	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/core/ecs"
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/sim"
)

// SpellLifetimeSystem advances projectile phases and queues expired ones
// for destruction.
type SpellLifetimeSystem struct{}

func NewSpellLifetimeSystem() *SpellLifetimeSystem { return &SpellLifetimeSystem{} }

func (s *SpellLifetimeSystem) Stage() coresys.Stage { return coresys.StageSpellLifetime }

func (s *SpellLifetimeSystem) Update(f *sim.Frame) {
	w := f.World
	w.Spells.EachSorted(func(id ecs.EntityID, spell *combat.Spell) {
		if w.ECS().PendingDestruction(id) {
			return
		}
		switch spell.Lifetime.Advance(f.DT) {
		case combat.LifetimeDetonated:
			w.Emit(sim.Event{Kind: sim.SpellDetonated, Handle: spell.Caster, Spell: spell.ID, Ability: spell.Ability, Position: spell.Spawn})
		case combat.LifetimeExpired:
			w.ECS().MarkForDestruction(id)
			w.Emit(sim.Event{Kind: sim.SpellDespawned, Handle: spell.Caster, Spell: spell.ID, Ability: spell.Ability, Position: spell.Spawn})
		}
	})
}
