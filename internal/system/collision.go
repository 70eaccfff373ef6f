package system

import (
	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/core/ecs"
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/physics"
	"github.com/mageling/arena/internal/sim"
)

// CorrectionClearSystem empties every body's correction axes so they only
// ever describe the current frame.
type CorrectionClearSystem struct{}

func NewCorrectionClearSystem() *CorrectionClearSystem { return &CorrectionClearSystem{} }

func (s *CorrectionClearSystem) Stage() coresys.Stage { return coresys.StageCorrectionClear }

func (s *CorrectionClearSystem) Update(f *sim.Frame) {
	f.World.Bodies.EachSorted(func(_ ecs.EntityID, b *physics.Body) {
		physics.ClearCorrections(b)
	})
}

// ShapeSyncSystem copies transforms into collision shapes.
type ShapeSyncSystem struct{}

func NewShapeSyncSystem() *ShapeSyncSystem { return &ShapeSyncSystem{} }

func (s *ShapeSyncSystem) Stage() coresys.Stage { return coresys.StageShapeSync }

func (s *ShapeSyncSystem) Update(f *sim.Frame) {
	ecs.Each2(f.World.Transforms, f.World.Bodies, func(_ ecs.EntityID, tr *sim.Transform, b *physics.Body) {
		physics.Sync(b, tr.Position)
	})
}

// WallCollisionSystem pushes actors out of walls, one wall at a time in
// level order. Each correction moves both transform and shape before the
// next wall is tested.
type WallCollisionSystem struct{}

func NewWallCollisionSystem() *WallCollisionSystem { return &WallCollisionSystem{} }

func (s *WallCollisionSystem) Stage() coresys.Stage { return coresys.StageWallCollision }

func (s *WallCollisionSystem) Update(f *sim.Frame) {
	w := f.World
	walls := w.Static().Walls
	for _, id := range w.ActorsByHandle() {
		tr, ok := w.Transforms.Get(id)
		if !ok {
			continue
		}
		if b, ok := w.Bodies.Get(id); ok {
			physics.ResolveWalls(&tr.Position, b, walls)
		}
	}
}

// SpellCollisionSystem resolves live projectiles against actors. A hit
// actor respawns at its own team's spawn point and the caster's team scores.
// Health is left untouched.
type SpellCollisionSystem struct{}

func NewSpellCollisionSystem() *SpellCollisionSystem { return &SpellCollisionSystem{} }

func (s *SpellCollisionSystem) Stage() coresys.Stage { return coresys.StageSpellCollision }

func (s *SpellCollisionSystem) Update(f *sim.Frame) {
	w := f.World
	actors := w.ActorsByHandle()
	w.Spells.EachSorted(func(sid ecs.EntityID, spell *combat.Spell) {
		if !spell.Lifetime.Live() {
			return
		}
		sb, ok := w.Bodies.Get(sid)
		if !ok {
			return
		}
		for _, aid := range actors {
			a, _ := w.Actors.Get(aid)
			if !spell.CanHit(a.Handle) {
				continue
			}
			ab, ok := w.Bodies.Get(aid)
			if !ok || !physics.Overlaps(sb.Shape, ab.Shape) {
				continue
			}
			spell.MarkHit(a.Handle)
			s.hit(w, spell, aid, a)
		}
	})
}

func (s *SpellCollisionSystem) hit(w *sim.World, spell *combat.Spell, victimID ecs.EntityID, victim *sim.Actor) {
	if sp, ok := w.Static().SpawnFor(victim.Team); ok {
		w.Teleport(victimID, sp.Position)
	}
	ev := sim.Event{
		Kind:    sim.ActorHit,
		Handle:  spell.Caster,
		Other:   victim.Handle,
		Spell:   spell.ID,
		Ability: spell.Ability,
	}
	if tr, ok := w.Transforms.Get(victimID); ok {
		ev.Position = tr.Position
	}
	if cid, ok := w.ActorFor(spell.Caster); ok {
		caster, _ := w.Actors.Get(cid)
		ev.Team = caster.Team
		if w.Round.Live() {
			w.Round.Scores[caster.Team]++
		}
	}
	ev.Scores = w.Round.Scores
	w.Emit(ev)
}
