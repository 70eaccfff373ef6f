package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/mageling/arena/internal/core/event"
	"github.com/mageling/arena/internal/persist"
	"github.com/mageling/arena/internal/replay"
	"github.com/mageling/arena/internal/sim"
)

// publishConfirmed walks every frame that became confirmed since the last
// call. Each one is recorded and its events go on the bus exactly once;
// frames still resting on predictions are never published.
func (s *Session) publishConfirmed() {
	upto := s.p2p.ConfirmedFrame()
	if last := s.p2p.CurrentFrame() - 1; last < upto {
		upto = last
	}
	for f := s.published + 1; f <= upto && s.state.Simulating(); f++ {
		inputs, ok := s.p2p.ConfirmedInputs(f)
		if !ok {
			return
		}
		if err := s.record.Append(inputs); err != nil {
			s.log.Error("record confirmed input", zap.Error(err))
			return
		}
		s.published = f
		for _, ev := range s.game.World.EventsFor(f) {
			event.Emit(s.bus, ev)
			s.observe(ev)
		}
	}
}

// observe mirrors the simulated round clock into the lifecycle.
func (s *Session) observe(ev sim.Event) {
	switch ev.Kind {
	case sim.RoundStarted:
		s.setState(StateInRound)
	case sim.RoundEnded:
		s.rounds = append(s.rounds, persist.RoundRecord{
			Number:   ev.Round,
			Winner:   int(ev.Team),
			Draw:     ev.Draw,
			Scores:   s.teamScores(ev.Scores),
			EndFrame: ev.Frame,
		})
		s.log.Info("round over",
			zap.Int("round", ev.Round),
			zap.Int("frame", ev.Frame),
			zap.Bool("draw", ev.Draw),
			zap.Uint8("winner", uint8(ev.Team)),
			zap.Ints("scores", s.teamScores(ev.Scores)))
		s.setState(StateBetweenRound)
	case sim.MatchEnded:
		s.finish(ev)
		s.setState(StatePostMatch)
	}
}

func (s *Session) teamScores(all [sim.MaxTeams]int) []int {
	teams := s.static.Teams
	n := int(teams[len(teams)-1]) + 1
	return append([]int(nil), all[:n]...)
}

// finish builds the match record. The final checksum comes from replaying
// the confirmed log, so it describes exactly the last confirmed frame even
// when the live world has already predicted past it.
func (s *Session) finish(ev sim.Event) {
	rec := &persist.MatchRecord{
		Room:      s.room,
		Level:     s.levelName,
		Players:   s.record.Players,
		FPS:       s.cfg.Session.FPS,
		Frames:    s.record.Len(),
		Champion:  int(ev.Team),
		Draw:      ev.Draw,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
		Rounds:    s.rounds,
	}
	if w, err := replay.RunStatic(s.static, s.cfg.Session.FPS, s.record); err != nil {
		s.log.Error("replay confirmed log", zap.Error(err))
	} else {
		rec.FinalChecksum = w.Checksum()
	}
	s.result = rec
	s.log.Info("match over",
		zap.Int("frames", rec.Frames),
		zap.Bool("draw", rec.Draw),
		zap.Int("champion", rec.Champion),
		zap.Binary("checksum", rec.FinalChecksum[:8]))
	if s.sink != nil {
		s.sink.Submit(persist.Job{Match: rec, Inputs: s.record})
	}
}
