package sim

import (
	"fmt"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
)

// EventKind classifies simulation events.
type EventKind uint8

const (
	SpellSpawned EventKind = iota + 1
	SpellDetonated
	SpellDespawned
	ActorHit
	RoundStarted
	RoundEnded
	MatchEnded
)

func (k EventKind) String() string {
	switch k {
	case SpellSpawned:
		return "SpellSpawned"
	case SpellDetonated:
		return "SpellDetonated"
	case SpellDespawned:
		return "SpellDespawned"
	case ActorHit:
		return "ActorHit"
	case RoundStarted:
		return "RoundStarted"
	case RoundEnded:
		return "RoundEnded"
	case MatchEnded:
		return "MatchEnded"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is something presentation or the session may react to. Events are
// recorded per frame inside the world and rolled back with it; only events of
// confirmed frames leave the simulation.
type Event struct {
	Kind     EventKind
	Frame    int
	Handle   input.Handle // caster or hit actor
	Other    input.Handle // victim for ActorHit
	Spell    uint32
	Ability  combat.AbilityID
	Position geom.Vec2
	Team     combat.TeamID // scoring team for ActorHit, winner for RoundEnded
	Draw     bool
	Round    int
	Scores   [MaxTeams]int
}

// EventWindow is how many frames of events a world remembers.
const EventWindow = 64

type eventLog struct {
	frames [EventWindow]int
	events [EventWindow][]Event
}

func (l *eventLog) add(ev Event) {
	slot := ev.Frame % EventWindow
	if slot < 0 {
		slot += EventWindow
	}
	if l.frames[slot] != ev.Frame {
		l.frames[slot] = ev.Frame
		l.events[slot] = l.events[slot][:0]
	}
	l.events[slot] = append(l.events[slot], ev)
}

// reset drops the frame's events so a resimulated frame starts clean.
func (l *eventLog) reset(frame int) {
	slot := frame % EventWindow
	if slot < 0 {
		slot += EventWindow
	}
	l.frames[slot] = frame
	l.events[slot] = l.events[slot][:0]
}

func (l *eventLog) at(frame int) []Event {
	slot := frame % EventWindow
	if slot < 0 {
		slot += EventWindow
	}
	if l.frames[slot] != frame {
		return nil
	}
	return l.events[slot]
}

func (l *eventLog) clone() eventLog {
	var out eventLog
	out.frames = l.frames
	for i, evs := range l.events {
		if len(evs) > 0 {
			out.events[i] = append([]Event(nil), evs...)
		}
	}
	return out
}
