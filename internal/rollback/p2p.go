package rollback

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/transport"
)

// EventKind classifies session notifications.
type EventKind uint8

const (
	EventDesync EventKind = iota + 1
	EventDisconnected
	EventStalled
)

// Event is a session notification drained with Events.
type Event struct {
	Kind        EventKind
	Frame       int
	Peer        transport.PeerID
	Handle      input.Handle
	Local       [32]byte
	Remote      [32]byte
	FramesAhead int
}

// checksumHistory is how many checksum intervals are kept for comparison.
const checksumHistory = 32

// P2PSession exchanges inputs with remote peers, predicts missing inputs and
// resimulates from the first mispredicted frame when real inputs arrive.
type P2PSession[S any] struct {
	numPlayers     int
	maxPrediction  int
	inputDelay     int
	frameDuration  time.Duration
	desyncInterval int

	t           transport.Transport
	players     []Player
	remotePeers []transport.PeerID
	queues      []*InputQueue
	states      *snapshotRing[S]

	current      int
	nextChecksum int
	localSums    map[int][32]byte
	remoteSums   map[int]map[transport.PeerID][32]byte
	compared     int

	events  []Event
	lost    bool
	stalled bool
	log     *zap.Logger
}

func newP2PSession[S any](b *Builder[S], t transport.Transport) *P2PSession[S] {
	s := &P2PSession[S]{
		numPlayers:     b.numPlayers,
		maxPrediction:  b.maxPrediction,
		inputDelay:     b.inputDelay,
		frameDuration:  b.frameDuration(),
		desyncInterval: b.desyncInterval,
		t:              t,
		players:        make([]Player, b.numPlayers),
		queues:         make([]*InputQueue, b.numPlayers),
		states:         newSnapshotRing[S](b.maxPrediction + 2),
		nextChecksum:   b.desyncInterval,
		localSums:      make(map[int][32]byte),
		remoteSums:     make(map[int]map[transport.PeerID][32]byte),
		log:            b.log,
	}
	seen := make(map[transport.PeerID]bool)
	for h, p := range b.players {
		s.players[h] = p
		if p.Kind == Remote && !seen[p.Peer] {
			seen[p.Peer] = true
			s.remotePeers = append(s.remotePeers, p.Peer)
		}
	}
	sortPeerIDs(s.remotePeers)
	for h := range s.queues {
		s.queues[h] = NewInputQueue(b.inputDelay)
	}
	return s
}

func sortPeerIDs(ids []transport.PeerID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// CurrentFrame is the next frame AdvanceFrame will simulate.
func (s *P2PSession[S]) CurrentFrame() int { return s.current }

// ConfirmedFrame is the last frame for which every handle's input is real.
func (s *P2PSession[S]) ConfirmedFrame() int {
	confirmed := s.queues[0].LastConfirmed()
	for _, q := range s.queues[1:] {
		if l := q.LastConfirmed(); l < confirmed {
			confirmed = l
		}
	}
	return confirmed
}

// FramesAhead is how many simulated frames still rest on predictions.
func (s *P2PSession[S]) FramesAhead() int {
	ahead := s.current - 1 - s.ConfirmedFrame()
	if ahead < 0 {
		return 0
	}
	return ahead
}

func (s *P2PSession[S]) FrameDuration() time.Duration { return s.frameDuration }

func (s *P2PSession[S]) NumPlayers() int { return s.numPlayers }

// LocalHandles lists the handles fed by AddLocalInput, ascending.
func (s *P2PSession[S]) LocalHandles() []input.Handle {
	var out []input.Handle
	for h, p := range s.players {
		if p.Kind == Local {
			out = append(out, input.Handle(h))
		}
	}
	return out
}

// Events drains pending notifications.
func (s *P2PSession[S]) Events() []Event {
	out := s.events
	s.events = nil
	return out
}

// Poll drains the transport: inputs go to their queues, checksums are
// compared, lost peers end the session.
func (s *P2PSession[S]) Poll() error {
	for _, id := range s.t.Disconnected() {
		for h, p := range s.players {
			if p.Kind == Remote && p.Peer == id {
				s.lost = true
				s.events = append(s.events, Event{Kind: EventDisconnected, Frame: s.current, Peer: id, Handle: input.Handle(h)})
				s.log.Warn("peer disconnected", zap.Stringer("peer", id), zap.Int("handle", h))
			}
		}
	}
	if late := s.t.AcceptNewConnections(); len(late) > 0 {
		s.log.Debug("ignoring peers joining a running session", zap.Int("count", len(late)))
	}
	for _, env := range s.t.Receive() {
		switch env.Msg.Kind {
		case transport.KindInput:
			if err := s.addRemoteInput(env); err != nil {
				return err
			}
		case transport.KindChecksum:
			s.addRemoteChecksum(env.From, int(env.Msg.Frame), env.Msg.Sum)
		}
	}
	if s.lost {
		return ErrPeerDisconnected
	}
	return nil
}

func (s *P2PSession[S]) addRemoteInput(env transport.Envelope) error {
	h := int(env.Msg.Handle)
	if h >= s.numPlayers || s.players[h].Kind != Remote || s.players[h].Peer != env.From {
		s.log.Warn("input for a handle the sender does not own",
			zap.Stringer("peer", env.From), zap.Int("handle", h))
		return nil
	}
	if _, err := s.queues[h].Add(int(env.Msg.Frame), env.Msg.Packet.Canonical()); err != nil {
		return &TransportError{Reason: fmt.Sprintf("handle %d", h), Err: err}
	}
	return nil
}

// AddLocalInput records a local handle's input for the current frame plus the
// input delay and sends it to every remote peer. A second call for the same
// frame is ignored.
func (s *P2PSession[S]) AddLocalInput(h input.Handle, p input.Packet) error {
	if s.lost {
		return ErrPeerDisconnected
	}
	if int(h) < 0 || int(h) >= s.numPlayers || s.players[h].Kind != Local {
		return &TransportError{Reason: fmt.Sprintf("handle %d is not local", h)}
	}
	if s.current-s.ConfirmedFrame() > s.maxPrediction {
		if !s.stalled {
			s.stalled = true
			s.events = append(s.events, Event{Kind: EventStalled, Frame: s.current, FramesAhead: s.FramesAhead()})
		}
		return ErrPredictionThreshold
	}
	s.stalled = false

	frame := s.current + s.inputDelay
	p = p.Canonical()
	added, err := s.queues[h].Add(frame, p)
	if err != nil || !added {
		return err
	}
	msg := transport.InputMessage(frame, h, p)
	for _, peer := range s.remotePeers {
		if err := s.t.Send(peer, msg); err != nil {
			return &TransportError{Reason: fmt.Sprintf("send input to %s", peer), Err: err}
		}
	}
	return nil
}

// AdvanceFrame resimulates from the first mispredicted frame if needed, then
// simulates the current frame.
func (s *P2PSession[S]) AdvanceFrame(g Game[S]) error {
	if s.lost {
		return ErrPeerDisconnected
	}
	for h, p := range s.players {
		if p.Kind == Local && s.queues[h].LastConfirmed() < s.current+s.inputDelay {
			return fmt.Errorf("frame %d handle %d: %w", s.current, h, ErrMissingLocalInput)
		}
	}

	if first := s.firstIncorrect(); first >= 0 && first < s.current {
		if err := s.resimulate(g, first); err != nil {
			return err
		}
	}
	s.resetPredictions()

	s.states.put(g.SaveState(s.current))
	g.AdvanceFrame(s.current, s.inputs(s.current))
	s.current++

	s.exchangeChecksums()
	return nil
}

func (s *P2PSession[S]) resimulate(g Game[S], first int) error {
	snap, ok := s.states.get(first)
	if !ok {
		return fmt.Errorf("rollback to frame %d: snapshot missing", first)
	}
	g.LoadState(snap)
	s.resetPredictions()
	for f := first; f < s.current; f++ {
		if f > first {
			s.states.put(g.SaveState(f))
		}
		g.AdvanceFrame(f, s.inputs(f))
	}
	return nil
}

func (s *P2PSession[S]) firstIncorrect() int {
	first := -1
	for _, q := range s.queues {
		if f := q.FirstIncorrect(); f >= 0 && (first < 0 || f < first) {
			first = f
		}
	}
	return first
}

func (s *P2PSession[S]) resetPredictions() {
	for _, q := range s.queues {
		q.ResetPrediction()
	}
}

func (s *P2PSession[S]) inputs(frame int) []input.Packet {
	out := make([]input.Packet, s.numPlayers)
	for h, q := range s.queues {
		out[h], _ = q.Input(frame)
	}
	return out
}

// ConfirmedInputs returns every handle's real input for a confirmed frame
// still held by the queues.
func (s *P2PSession[S]) ConfirmedInputs(frame int) ([]input.Packet, bool) {
	if frame < 0 || frame > s.ConfirmedFrame() {
		return nil, false
	}
	out := make([]input.Packet, s.numPlayers)
	for h, q := range s.queues {
		p, ok := q.Confirmed(frame)
		if !ok {
			return nil, false
		}
		out[h] = p
	}
	return out, true
}

// ChecksumsCompared is how many remote checksums were checked against a local
// one so far, matching or not.
func (s *P2PSession[S]) ChecksumsCompared() int { return s.compared }

// exchangeChecksums sends the hash of every interval frame whose inputs are
// all confirmed and compares it with what remote peers reported.
func (s *P2PSession[S]) exchangeChecksums() {
	if s.desyncInterval <= 0 {
		return
	}
	// The snapshot of current is only taken on the next advance.
	limit := s.ConfirmedFrame() + 1
	if limit > s.current-1 {
		limit = s.current - 1
	}
	for ; s.nextChecksum <= limit; s.nextChecksum += s.desyncInterval {
		f := s.nextChecksum
		snap, ok := s.states.get(f)
		if !ok {
			s.log.Debug("checksum frame left the snapshot ring", zap.Int("frame", f))
			continue
		}
		s.localSums[f] = snap.Checksum
		msg := transport.ChecksumMessage(f, snap.Checksum)
		for _, peer := range s.remotePeers {
			if err := s.t.Send(peer, msg); err != nil {
				s.log.Debug("send checksum", zap.Stringer("peer", peer), zap.Error(err))
			}
		}
		for peer, sum := range s.remoteSums[f] {
			s.compare(f, peer, sum)
		}
		delete(s.remoteSums, f)
	}
	horizon := s.nextChecksum - checksumHistory*s.desyncInterval
	for f := range s.localSums {
		if f < horizon {
			delete(s.localSums, f)
		}
	}
	for f := range s.remoteSums {
		if f < horizon {
			delete(s.remoteSums, f)
		}
	}
}

func (s *P2PSession[S]) addRemoteChecksum(peer transport.PeerID, frame int, sum [32]byte) {
	if _, ok := s.localSums[frame]; ok {
		s.compare(frame, peer, sum)
		return
	}
	if s.remoteSums[frame] == nil {
		s.remoteSums[frame] = make(map[transport.PeerID][32]byte)
	}
	s.remoteSums[frame][peer] = sum
}

func (s *P2PSession[S]) compare(frame int, peer transport.PeerID, remote [32]byte) {
	local := s.localSums[frame]
	s.compared++
	if local == remote {
		return
	}
	s.events = append(s.events, Event{Kind: EventDesync, Frame: frame, Peer: peer, Local: local, Remote: remote})
	s.log.Error("desync detected",
		zap.Int("frame", frame),
		zap.Stringer("peer", peer),
		zap.String("local", fmt.Sprintf("%x", local[:8])),
		zap.String("remote", fmt.Sprintf("%x", remote[:8])),
	)
}
