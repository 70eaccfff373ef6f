package rollback

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/transport"
)

const (
	DefaultMaxPrediction = 8
	DefaultInputDelay    = 1
	DefaultFPS           = 60
)

// PlayerKind says where a handle's input comes from.
type PlayerKind uint8

const (
	Local PlayerKind = iota
	Remote
)

// Player binds a handle to the local device or to a remote peer.
type Player struct {
	Kind PlayerKind
	Peer transport.PeerID
}

func LocalPlayer() Player                     { return Player{Kind: Local} }
func RemotePlayer(p transport.PeerID) Player { return Player{Kind: Remote, Peer: p} }

// Builder configures a session. Setters record the first invalid value and
// Start* reports it.
type Builder[S any] struct {
	numPlayers     int
	maxPrediction  int
	inputDelay     int
	fps            int
	desyncInterval int
	players        map[input.Handle]Player
	log            *zap.Logger
	err            error
}

func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		numPlayers:    2,
		maxPrediction: DefaultMaxPrediction,
		inputDelay:    DefaultInputDelay,
		fps:           DefaultFPS,
		players:       make(map[input.Handle]Player),
		log:           zap.NewNop(),
	}
}

func (b *Builder[S]) fail(err error) *Builder[S] {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder[S]) WithNumPlayers(n int) *Builder[S] {
	if n < 1 || n > 64 {
		return b.fail(&ConfigurationError{Field: "num_players", Reason: fmt.Sprintf("%d not in 1..64", n)})
	}
	b.numPlayers = n
	return b
}

func (b *Builder[S]) WithMaxPrediction(frames int) *Builder[S] {
	if frames < 1 || frames > QueueLength/4 {
		return b.fail(&ConfigurationError{Field: "max_prediction", Reason: fmt.Sprintf("%d not in 1..%d", frames, QueueLength/4)})
	}
	b.maxPrediction = frames
	return b
}

func (b *Builder[S]) WithInputDelay(frames int) *Builder[S] {
	if frames < 0 || frames > QueueLength/4 {
		return b.fail(&ConfigurationError{Field: "input_delay", Reason: fmt.Sprintf("%d not in 0..%d", frames, QueueLength/4)})
	}
	b.inputDelay = frames
	return b
}

func (b *Builder[S]) WithFPS(fps int) *Builder[S] {
	if fps <= 0 {
		return b.fail(&ConfigurationError{Field: "fps", Reason: "must be positive"})
	}
	b.fps = fps
	return b
}

// WithDesyncInterval enables checksum exchange every n confirmed frames.
// Zero disables it.
func (b *Builder[S]) WithDesyncInterval(n int) *Builder[S] {
	if n < 0 {
		return b.fail(&ConfigurationError{Field: "desync_interval", Reason: "must not be negative"})
	}
	b.desyncInterval = n
	return b
}

func (b *Builder[S]) WithLogger(log *zap.Logger) *Builder[S] {
	if log != nil {
		b.log = log
	}
	return b
}

func (b *Builder[S]) AddPlayer(p Player, h input.Handle) *Builder[S] {
	if _, dup := b.players[h]; dup {
		return b.fail(&TransportError{Reason: fmt.Sprintf("handle %d added twice", h)})
	}
	b.players[h] = p
	return b
}

func (b *Builder[S]) validatePlayers() error {
	for h := range b.players {
		if int(h) < 0 || int(h) >= b.numPlayers {
			return &TransportError{Reason: fmt.Sprintf("handle %d out of range for %d players", h, b.numPlayers)}
		}
	}
	if len(b.players) != b.numPlayers {
		return &TransportError{Reason: fmt.Sprintf("%d players added, want %d", len(b.players), b.numPlayers)}
	}
	return nil
}

func (b *Builder[S]) frameDuration() time.Duration {
	return time.Second / time.Duration(b.fps)
}

// StartP2P validates the player table against the transport and starts a
// peer-to-peer session.
func (b *Builder[S]) StartP2P(t transport.Transport) (*P2PSession[S], error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.validatePlayers(); err != nil {
		return nil, err
	}
	connected := make(map[transport.PeerID]bool)
	for _, p := range t.Peers() {
		connected[p] = true
	}
	locals := 0
	for h, p := range b.players {
		switch p.Kind {
		case Local:
			locals++
		case Remote:
			if p.Peer == t.LocalID() {
				return nil, &TransportError{Reason: fmt.Sprintf("handle %d: remote player is the local peer", h)}
			}
			if !connected[p.Peer] {
				return nil, &TransportError{Reason: fmt.Sprintf("handle %d: %s not connected", h, p.Peer), Err: transport.ErrUnknownPeer}
			}
		}
	}
	if locals == 0 {
		return nil, &TransportError{Reason: "no local player"}
	}
	return newP2PSession[S](b, t), nil
}

// StartSyncTest starts a session that rolls back checkDistance frames every
// frame and verifies the resimulated checksums. Every handle is local.
func (b *Builder[S]) StartSyncTest(checkDistance int) (*SyncTestSession[S], error) {
	if b.err != nil {
		return nil, b.err
	}
	if checkDistance < 0 || checkDistance >= b.maxPrediction {
		return nil, &ConfigurationError{Field: "check_distance", Reason: fmt.Sprintf("%d not in 0..%d", checkDistance, b.maxPrediction-1)}
	}
	return newSyncTestSession[S](b, checkDistance), nil
}
