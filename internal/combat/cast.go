package combat

import (
	"fmt"

	"github.com/mageling/arena/internal/input"
)

// AbilityID identifies an entry in the ability catalog. Zero means none.
type AbilityID uint32

// TeamID tags actors and spawn points.
type TeamID uint8

// CastTag names the cast state for presentation and checksums. TagCast is
// never stored: it marks the frame a pending cast was released.
type CastTag uint8

const (
	TagNone CastTag = iota
	TagPrecast
	TagCast
)

func (t CastTag) String() string {
	switch t {
	case TagNone:
		return "None"
	case TagPrecast:
		return "Precast"
	case TagCast:
		return "Cast"
	default:
		return fmt.Sprintf("CastTag(%d)", uint8(t))
	}
}

// CastState is the cast pipeline sum type: None or Precast(ability).
type CastState interface {
	Tag() CastTag
	isCastState()
}

type None struct{}

// Precast holds the ability selected and waiting for a cast trigger.
type Precast struct {
	Ability AbilityID
}

func (None) Tag() CastTag    { return TagNone }
func (Precast) Tag() CastTag { return TagPrecast }

func (None) isCastState()    {}
func (Precast) isCastState() {}

// Command is the cast-relevant part of one frame's input.
type Command struct {
	Select  bool
	Cast    bool
	Cancel  bool
	Ability AbilityID
}

// CommandFrom extracts the cast command from an input packet.
func CommandFrom(p input.Packet) Command {
	return Command{
		Select:  p.Has(input.SelectAbility),
		Cast:    p.Has(input.CastSpell),
		Cancel:  p.Has(input.CancelCast),
		Ability: AbilityID(p.Ability),
	}
}

// Step advances the cast pipeline by one command. When a pending cast is
// released it returns the ability and released=true; the state is then
// already back to None. Cast is only reachable from Precast.
func Step(state CastState, cmd Command) (next CastState, released AbilityID, ok bool) {
	pending, isPrecast := state.(Precast)
	switch {
	case isPrecast && cmd.Cancel:
		return None{}, 0, false
	case isPrecast && cmd.Cast:
		return None{}, pending.Ability, true
	case cmd.Select && cmd.Ability != 0:
		return Precast{Ability: cmd.Ability}, 0, false
	}
	if state == nil {
		return None{}, 0, false
	}
	return state, 0, false
}
