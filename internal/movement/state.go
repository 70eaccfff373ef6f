package movement

import (
	"fmt"

	"github.com/mageling/arena/internal/geom"
)

// Tag names the active movement state for presentation and checksums.
type Tag uint8

const (
	TagIdle Tag = iota
	TagWalking
	TagDashing
)

func (t Tag) String() string {
	switch t {
	case TagIdle:
		return "Idle"
	case TagWalking:
		return "Walking"
	case TagDashing:
		return "Dashing"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// State is the movement state sum type: exactly one of Idle, Walking, Dashing.
type State interface {
	Tag() Tag
	isState()
}

type Idle struct{}

type Walking struct{}

// Dashing owns its elapsed time and the direction locked at dash start.
type Dashing struct {
	Elapsed   float64
	Direction geom.Vec2
}

func (Idle) Tag() Tag    { return TagIdle }
func (Walking) Tag() Tag { return TagWalking }
func (Dashing) Tag() Tag { return TagDashing }

func (Idle) isState()    {}
func (Walking) isState() {}
func (Dashing) isState() {}

// TimeEpsilon absorbs rounding when an accumulated sum of fixed steps is
// compared against a duration that is a whole number of steps.
const TimeEpsilon = 1e-9

// Reached reports elapsed >= limit within TimeEpsilon.
func Reached(elapsed, limit float64) bool {
	return float64(elapsed+TimeEpsilon) >= limit
}
