package rollback

import (
	"fmt"

	"github.com/mageling/arena/internal/input"
)

// SyncTestSession checks determinism without a network: every frame it loads
// the state from checkDistance frames back, resimulates, and compares each
// resimulated checksum with the one recorded the first time.
type SyncTestSession[S any] struct {
	numPlayers    int
	checkDistance int
	inputDelay    int

	queues []*InputQueue
	states *snapshotRing[S]
	sums   map[int][32]byte

	current int
}

func newSyncTestSession[S any](b *Builder[S], checkDistance int) *SyncTestSession[S] {
	s := &SyncTestSession[S]{
		numPlayers:    b.numPlayers,
		checkDistance: checkDistance,
		inputDelay:    b.inputDelay,
		queues:        make([]*InputQueue, b.numPlayers),
		states:        newSnapshotRing[S](checkDistance + 2),
		sums:          make(map[int][32]byte),
	}
	for h := range s.queues {
		s.queues[h] = NewInputQueue(b.inputDelay)
	}
	return s
}

func (s *SyncTestSession[S]) CurrentFrame() int { return s.current }

// AddLocalInput records input for any handle. A second call for the same
// frame is ignored.
func (s *SyncTestSession[S]) AddLocalInput(h input.Handle, p input.Packet) error {
	if int(h) < 0 || int(h) >= s.numPlayers {
		return &TransportError{Reason: fmt.Sprintf("handle %d out of range", h)}
	}
	_, err := s.queues[h].Add(s.current+s.inputDelay, p.Canonical())
	return err
}

func (s *SyncTestSession[S]) AdvanceFrame(g Game[S]) error {
	for h, q := range s.queues {
		if q.LastConfirmed() < s.current+s.inputDelay {
			return fmt.Errorf("frame %d handle %d: %w", s.current, h, ErrMissingLocalInput)
		}
	}

	if s.checkDistance > 0 && s.current > s.checkDistance {
		start := s.current - s.checkDistance
		snap, ok := s.states.get(start)
		if !ok {
			return fmt.Errorf("sync test: snapshot for frame %d missing", start)
		}
		g.LoadState(snap)
		for f := start; f < s.current; f++ {
			if f > start {
				re := g.SaveState(f)
				if want, ok := s.sums[f]; ok && want != re.Checksum {
					return fmt.Errorf("sync test frame %d: %w", f, ErrMismatchedChecksum)
				}
				s.states.put(re)
			}
			g.AdvanceFrame(f, s.inputs(f))
		}
	}

	snap := g.SaveState(s.current)
	s.sums[s.current] = snap.Checksum
	s.states.put(snap)
	delete(s.sums, s.current-s.checkDistance-2)
	g.AdvanceFrame(s.current, s.inputs(s.current))
	s.current++
	return nil
}

func (s *SyncTestSession[S]) inputs(frame int) []input.Packet {
	out := make([]input.Packet, s.numPlayers)
	for h, q := range s.queues {
		out[h], _ = q.Input(frame)
	}
	return out
}
