package session

import (
	"math"

	"go.uber.org/zap"

	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/scripting"
	"github.com/mageling/arena/internal/sim"
)

// Views returns the presentation records of the current world.
func (s *Session) Views() ([]sim.ActorView, []sim.SpellView) {
	w := s.World()
	if w == nil {
		return nil, nil
	}
	return w.Views(), w.SpellViews()
}

// Observation is a bot's view of the current world.
func (s *Session) Observation(h input.Handle, frame int) scripting.Observation {
	return ObserveWorld(s.World(), h, frame)
}

// ObserveWorld describes w from h's point of view: its own actor and the
// nearest actor of another team. A nil world yields an empty observation.
func ObserveWorld(w *sim.World, h input.Handle, frame int) scripting.Observation {
	obs := scripting.Observation{Frame: frame, Handle: int(h)}
	if w == nil {
		return obs
	}
	views := w.Views()
	var self *sim.ActorView
	for i := range views {
		if views[i].Handle == h {
			self = &views[i]
			break
		}
	}
	if self == nil {
		return obs
	}
	obs.Team = int(self.Team)
	obs.Self = self.Position

	best := math.Inf(1)
	for _, v := range views {
		if v.Team == self.Team {
			continue
		}
		if d := v.Position.Sub(self.Position).LengthSquared(); d < best {
			best = d
			obs.Enemy = v.Position
			obs.HasEnemy = true
		}
	}

	iv := w.InputView(h)
	obs.CanDash = iv.CanDash
	obs.Dashing = iv.Dashing
	obs.Precast = iv.Precast
	if id, ok := w.ActorFor(h); ok {
		if c, ok := w.Casters.Get(id); ok {
			for i := range obs.Ready {
				obs.Ready[i] = c.Loadout[i] != 0 && c.Ready(i)
			}
		}
	}
	return obs
}

// BotDevices returns a DeviceFactory that drives every local handle with
// the engine's bot script.
func BotDevices(engine *scripting.Engine) DeviceFactory {
	return func(s *Session, h input.Handle) input.Device {
		observe := func(frame int) scripting.Observation { return s.Observation(h, frame) }
		return scripting.NewBotDevice(engine, observe, s.log.With(zap.Int("handle", int(h))))
	}
}
