package config

import (
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/movement"
	"github.com/mageling/arena/internal/sim"
)

func (m MovementConfig) Stats() movement.Stats {
	return movement.Stats{
		Speed:              m.Speed,
		DashPower:          m.DashPower,
		DashDuration:       m.DashDuration,
		DashCooldownLength: m.DashCooldown,
	}
}

func (r RoundConfig) Rules() sim.Rules {
	return sim.Rules{
		BetweenRoundFrames: r.BetweenRoundFrames,
		RoundFrames:        r.RoundFrames,
		ScoreLimit:         r.ScoreLimit,
		Rounds:             r.Rounds,
	}
}

// Setup combines the tuning sections with the loaded ability table.
func (c *Config) Setup(abilities *data.AbilityTable) sim.Setup {
	return sim.Setup{
		Catalog:   abilities,
		Loadout:   abilities.Loadout(),
		Stats:     c.Movement.Stats(),
		ActorSize: c.Movement.ActorSize,
		MaxHealth: c.Movement.MaxHealth,
		Rules:     c.Round.Rules(),
	}
}
