// Package rollback runs deterministic lockstep with prediction and
// resimulation. The game supplies save, load and advance callbacks; the
// session decides which frames to load and re-run as remote inputs arrive.
package rollback

import "github.com/mageling/arena/internal/input"

// Snapshot is the game state at the start of Frame.
type Snapshot[S any] struct {
	Frame    int
	State    S
	Checksum [32]byte
}

// Game is implemented by the simulation. AdvanceFrame must be a pure
// function of the loaded state and the inputs, and may be called many times
// for the same frame.
type Game[S any] interface {
	SaveState(frame int) Snapshot[S]
	LoadState(s Snapshot[S])
	AdvanceFrame(frame int, inputs []input.Packet)
}

// snapshotRing keeps the most recent snapshots indexed by frame.
type snapshotRing[S any] struct {
	slots []Snapshot[S]
	valid []bool
}

func newSnapshotRing[S any](size int) *snapshotRing[S] {
	return &snapshotRing[S]{slots: make([]Snapshot[S], size), valid: make([]bool, size)}
}

func (r *snapshotRing[S]) put(s Snapshot[S]) {
	i := s.Frame % len(r.slots)
	r.slots[i] = s
	r.valid[i] = true
}

func (r *snapshotRing[S]) get(frame int) (Snapshot[S], bool) {
	if frame < 0 {
		return Snapshot[S]{}, false
	}
	i := frame % len(r.slots)
	if !r.valid[i] || r.slots[i].Frame != frame {
		return Snapshot[S]{}, false
	}
	return r.slots[i], true
}
