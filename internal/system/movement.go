package system

import (
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/movement"
	"github.com/mageling/arena/internal/sim"
)

// MovementIntentSystem turns each actor's input into a movement state and
// velocity. Actors are visited in handle order. Outside a live round every
// actor receives empty intent.
type MovementIntentSystem struct{}

func NewMovementIntentSystem() *MovementIntentSystem { return &MovementIntentSystem{} }

func (s *MovementIntentSystem) Stage() coresys.Stage { return coresys.StageMovementIntent }

func (s *MovementIntentSystem) Update(f *sim.Frame) {
	w := f.World
	live := w.Round.Live()
	for _, id := range w.ActorsByHandle() {
		a, _ := w.Actors.Get(id)
		mc, ok := w.Movers.Get(id)
		if !ok {
			continue
		}
		motion, ok := w.Motions.Get(id)
		if !ok {
			continue
		}
		var p input.Packet
		if live {
			p = f.Input(a.Handle)
		}
		motion.Velocity = mc.ApplyIntent(p.MoveDirection(), p.Has(input.Dash))
	}
}

// VelocitySystem integrates positions from velocity or the locked dash
// direction.
type VelocitySystem struct{}

func NewVelocitySystem() *VelocitySystem { return &VelocitySystem{} }

func (s *VelocitySystem) Stage() coresys.Stage { return coresys.StageVelocity }

func (s *VelocitySystem) Update(f *sim.Frame) {
	w := f.World
	for _, id := range w.ActorsByHandle() {
		tr, ok := w.Transforms.Get(id)
		if !ok {
			continue
		}
		mc, _ := w.Movers.Get(id)
		motion, _ := w.Motions.Get(id)
		stats, _ := w.Stats.Get(id)
		if mc == nil || motion == nil || stats == nil {
			continue
		}
		next := movement.Integrate(tr.Position, *mc, motion.Velocity, *stats, f.DT)
		if next.Finite() {
			tr.Position = next
		} else {
			motion.Velocity = geom.Zero
		}
	}
}

// DashTimerSystem expires dashes and recharges the dash cooldown.
type DashTimerSystem struct{}

func NewDashTimerSystem() *DashTimerSystem { return &DashTimerSystem{} }

func (s *DashTimerSystem) Stage() coresys.Stage { return coresys.StageDashTimer }

func (s *DashTimerSystem) Update(f *sim.Frame) {
	w := f.World
	for _, id := range w.ActorsByHandle() {
		mc, ok := w.Movers.Get(id)
		if !ok {
			continue
		}
		if stats, ok := w.Stats.Get(id); ok {
			mc.TickDash(*stats, f.DT)
		}
	}
}
