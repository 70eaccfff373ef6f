package sim

import (
	"fmt"

	"github.com/mageling/arena/internal/combat"
)

// RoundPhase is the deterministic round clock the session mirrors.
type RoundPhase uint8

const (
	RoundWarmup RoundPhase = iota
	RoundLive
	RoundMatchOver
)

func (p RoundPhase) String() string {
	switch p {
	case RoundWarmup:
		return "warmup"
	case RoundLive:
		return "live"
	case RoundMatchOver:
		return "match over"
	default:
		return fmt.Sprintf("RoundPhase(%d)", uint8(p))
	}
}

// Round tracks the current round. Number counts completed rounds.
type Round struct {
	Phase      RoundPhase
	Number     int
	FramesLeft int
	Scores     [MaxTeams]int
	Wins       [MaxTeams]int
}

func NewRound(r Rules) Round {
	return Round{Phase: RoundWarmup, FramesLeft: r.BetweenRoundFrames}
}

func (r *Round) Live() bool { return r.Phase == RoundLive }

// Leader returns the team with the strictly highest score among teams.
func Leader(scores [MaxTeams]int, teams []combat.TeamID) (combat.TeamID, bool) {
	var best combat.TeamID
	top, tied := -1, false
	for _, t := range teams {
		switch s := scores[t]; {
		case s > top:
			best, top, tied = t, s, false
		case s == top:
			tied = true
		}
	}
	return best, top >= 0 && !tied
}
