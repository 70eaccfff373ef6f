package system

import "sort"

// Runner executes systems in stage order each frame. Systems sharing a stage
// run in registration order.
type Runner[C any] struct {
	systems []System[C]
	sorted  bool
}

func NewRunner[C any]() *Runner[C] {
	return &Runner[C]{
		systems: make([]System[C], 0, 16),
	}
}

func (r *Runner[C]) Register(s System[C]) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every registered system once, strictly sequentially.
func (r *Runner[C]) Tick(ctx C) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(ctx)
	}
}

// TickStage runs only the systems registered for the given stage.
func (r *Runner[C]) TickStage(stage Stage, ctx C) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Stage() == stage {
			s.Update(ctx)
		}
	}
}

// Stages returns the stage of every registered system in execution order.
func (r *Runner[C]) Stages() []Stage {
	r.ensureSorted()
	out := make([]Stage, len(r.systems))
	for i, s := range r.systems {
		out[i] = s.Stage()
	}
	return out
}

func (r *Runner[C]) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Stage() < r.systems[j].Stage()
		})
		r.sorted = true
	}
}
