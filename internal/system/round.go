package system

import (
	coresys "github.com/mageling/arena/internal/core/system"
	"github.com/mageling/arena/internal/sim"
)

// RoundSystem runs the round clock inside the rolled-back state so every
// peer starts and ends rounds on the same frame.
type RoundSystem struct{}

func NewRoundSystem() *RoundSystem { return &RoundSystem{} }

func (s *RoundSystem) Stage() coresys.Stage { return coresys.StageRound }

func (s *RoundSystem) Update(f *sim.Frame) {
	w := f.World
	r := &w.Round
	rules := w.Static().Rules
	switch r.Phase {
	case sim.RoundWarmup:
		if r.FramesLeft > 0 {
			r.FramesLeft--
		}
		if r.FramesLeft > 0 {
			return
		}
		r.Phase = sim.RoundLive
		r.FramesLeft = rules.RoundFrames
		r.Scores = [sim.MaxTeams]int{}
		w.Emit(sim.Event{Kind: sim.RoundStarted, Round: r.Number})
	case sim.RoundLive:
		if rules.RoundFrames > 0 {
			r.FramesLeft--
		}
		if !s.roundOver(w, rules) {
			return
		}
		s.endRound(w, rules)
	}
}

func (s *RoundSystem) roundOver(w *sim.World, rules sim.Rules) bool {
	if rules.RoundFrames > 0 && w.Round.FramesLeft <= 0 {
		return true
	}
	if rules.ScoreLimit <= 0 {
		return false
	}
	for _, t := range w.Static().Teams {
		if w.Round.Scores[t] >= rules.ScoreLimit {
			return true
		}
	}
	return false
}

func (s *RoundSystem) endRound(w *sim.World, rules sim.Rules) {
	r := &w.Round
	teams := w.Static().Teams
	winner, ok := sim.Leader(r.Scores, teams)
	if ok {
		r.Wins[winner]++
	}
	w.Emit(sim.Event{Kind: sim.RoundEnded, Round: r.Number, Team: winner, Draw: !ok, Scores: r.Scores})
	r.Number++

	if rules.Rounds > 0 && r.Number >= rules.Rounds {
		r.Phase = sim.RoundMatchOver
		r.FramesLeft = 0
		champ, ok := sim.Leader(r.Wins, teams)
		w.Emit(sim.Event{Kind: sim.MatchEnded, Round: r.Number, Team: champ, Draw: !ok, Scores: r.Wins})
		return
	}
	r.Phase = sim.RoundWarmup
	r.FramesLeft = rules.BetweenRoundFrames
	w.ResetForRound()
}
