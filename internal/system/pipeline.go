package system

import (
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/rollback"
	"github.com/mageling/arena/internal/sim"
)

// Pipeline is the fixed per-frame update: movement, collision, combat, then
// round bookkeeping and cleanup.
type Pipeline struct {
	runner *coresys.Runner[*sim.Frame]
}

func NewPipeline() *Pipeline {
	r := coresys.NewRunner[*sim.Frame]()
	r.Register(NewMovementIntentSystem())
	r.Register(NewAbilityCastSystem())
	r.Register(NewVelocitySystem())
	r.Register(NewDashTimerSystem())
	r.Register(NewCorrectionClearSystem())
	r.Register(NewShapeSyncSystem())
	r.Register(NewWallCollisionSystem())
	r.Register(NewSpellCollisionSystem())
	r.Register(NewSpellLifetimeSystem())
	r.Register(NewRoundSystem())
	r.Register(NewCleanupSystem())
	return &Pipeline{runner: r}
}

// Stages lists the registered stages in execution order.
func (p *Pipeline) Stages() []coresys.Stage { return p.runner.Stages() }

// Step advances the world by one frame.
func (p *Pipeline) Step(w *sim.World, frame int, dt float64, inputs []input.Packet) {
	w.BeginFrame(frame)
	p.runner.Tick(&sim.Frame{Number: frame, DT: dt, Inputs: inputs, World: w})
}

// Simulation adapts the pipeline to the rollback engine's callbacks.
type Simulation struct {
	World    *sim.World
	pipeline *Pipeline
	dt       float64
}

func NewSimulation(w *sim.World, fps int) *Simulation {
	return &Simulation{World: w, pipeline: NewPipeline(), dt: 1 / float64(fps)}
}

func (s *Simulation) DT() float64 { return s.dt }

func (s *Simulation) AdvanceFrame(frame int, inputs []input.Packet) {
	s.pipeline.Step(s.World, frame, s.dt, inputs)
}

// SaveState snapshots the world as it stands at the start of frame.
func (s *Simulation) SaveState(frame int) rollback.Snapshot[*sim.World] {
	return rollback.Snapshot[*sim.World]{Frame: frame, State: s.World.Clone(), Checksum: s.World.Checksum()}
}

// LoadState restores a copy, leaving the stored snapshot untouched for
// later rollbacks.
func (s *Simulation) LoadState(snap rollback.Snapshot[*sim.World]) {
	s.World = snap.State.Clone()
}
