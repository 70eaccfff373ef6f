package sim

import (
	"fmt"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/movement"
	"github.com/mageling/arena/internal/physics"
)

// MaxTeams bounds the team ids a level may use.
const MaxTeams = 8

// Rules configures round flow. Durations are in frames.
type Rules struct {
	BetweenRoundFrames int
	RoundFrames        int
	ScoreLimit         int
	Rounds             int
}

// Static is level and tuning data shared by every snapshot. It is never
// mutated after construction, so snapshots reference it instead of copying.
type Static struct {
	Walls     []physics.Shape
	Spawns    []data.SpawnPoint
	Teams     []combat.TeamID
	Catalog   combat.Catalog
	Loadout   [input.Slots]combat.AbilityID
	Stats     movement.Stats
	ActorSize float64
	MaxHealth int
	Rules     Rules
}

// Setup is what NewStatic needs besides the level.
type Setup struct {
	Catalog   combat.Catalog
	Loadout   [input.Slots]combat.AbilityID
	Stats     movement.Stats
	ActorSize float64
	MaxHealth int
	Rules     Rules
}

func NewStatic(level *data.Level, s Setup) (*Static, error) {
	if level == nil || len(level.Spawns) == 0 {
		return nil, fmt.Errorf("static: level has no spawn points")
	}
	if s.Catalog == nil {
		return nil, fmt.Errorf("static: no ability catalog")
	}
	if s.ActorSize <= 0 {
		return nil, fmt.Errorf("static: actor size %v", s.ActorSize)
	}
	teams := level.Teams()
	for _, t := range teams {
		if int(t) >= MaxTeams {
			return nil, fmt.Errorf("static: team %d exceeds %d teams", t, MaxTeams)
		}
	}
	walls := make([]physics.Shape, len(level.Walls))
	for i, w := range level.Walls {
		walls[i] = w.Shape
	}
	return &Static{
		Walls:     walls,
		Spawns:    append([]data.SpawnPoint(nil), level.Spawns...),
		Teams:     teams,
		Catalog:   s.Catalog,
		Loadout:   s.Loadout,
		Stats:     s.Stats,
		ActorSize: s.ActorSize,
		MaxHealth: s.MaxHealth,
		Rules:     s.Rules,
	}, nil
}

// TeamFor assigns teams round-robin by handle.
func (s *Static) TeamFor(h input.Handle) combat.TeamID {
	return s.Teams[int(h)%len(s.Teams)]
}

// SpawnFor returns the first spawn point of the team in level order.
func (s *Static) SpawnFor(team combat.TeamID) (data.SpawnPoint, bool) {
	for _, sp := range s.Spawns {
		if sp.Team == team {
			return sp, true
		}
	}
	return data.SpawnPoint{}, false
}
