package system

import (
	"github.com/mageling/arena/internal/combat"
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/sim"
)

// AbilityCastSystem runs the cast pipeline for every actor in handle order
// and spawns a projectile for each released cast.
type AbilityCastSystem struct{}

func NewAbilityCastSystem() *AbilityCastSystem { return &AbilityCastSystem{} }

func (s *AbilityCastSystem) Stage() coresys.Stage { return coresys.StageAbilityCast }

func (s *AbilityCastSystem) Update(f *sim.Frame) {
	w := f.World
	catalog := w.Static().Catalog
	live := w.Round.Live()
	for _, id := range w.ActorsByHandle() {
		a, _ := w.Actors.Get(id)
		c, ok := w.Casters.Get(id)
		if !ok {
			continue
		}
		c.TickCooldowns(f.DT)
		if !live {
			continue
		}
		p := f.Input(a.Handle)
		ability, released := c.Apply(combat.CommandFrom(p), catalog)
		if !released {
			continue
		}
		origin := p.CursorPosition()
		if tr, ok := w.Transforms.Get(id); ok {
			origin = ability.Target(tr.Position, p.CursorPosition())
		}
		_, spell := w.SpawnSpell(a.Handle, ability, origin)
		w.Emit(sim.Event{
			Kind:     sim.SpellSpawned,
			Handle:   a.Handle,
			Spell:    spell.ID,
			Ability:  ability.ID,
			Position: origin,
			Team:     a.Team,
		})
	}
}
