// Package session drives one peer through a match: it loads assets, waits
// for the other peers, runs the rollback session and reports confirmed
// results.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mageling/arena/internal/config"
	"github.com/mageling/arena/internal/core/event"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/persist"
	"github.com/mageling/arena/internal/replay"
	"github.com/mageling/arena/internal/rollback"
	"github.com/mageling/arena/internal/sim"
	"github.com/mageling/arena/internal/system"
	"github.com/mageling/arena/internal/transport"
)

// DeviceFactory supplies the input device for a local handle once handles
// are assigned.
type DeviceFactory func(s *Session, h input.Handle) input.Device

// MatchSink receives finished matches. *persist.Writer implements it.
type MatchSink interface {
	Submit(job persist.Job) bool
}

type Options struct {
	Config    *config.Config
	Transport transport.Transport
	Bus       *event.Bus    // nil creates a private bus
	Devices   DeviceFactory // nil leaves every local handle idle
	Sink      MatchSink     // nil skips match history
	Static    *sim.Static   // nil loads level and abilities from Config.Data
	LevelName string
	Room      string
	Log       *zap.Logger
}

// Session is the lifecycle state machine. It is not safe for concurrent
// use; one goroutine calls Tick or Run.
type Session struct {
	cfg        *config.Config
	t          transport.Transport
	bus        *event.Bus
	devicesFor DeviceFactory
	sink       MatchSink
	log        *zap.Logger

	state     State
	static    *sim.Static
	levelName string
	room      string

	peers   []transport.PeerID // indexed by handle
	p2p     *rollback.P2PSession[*sim.World]
	game    *system.Simulation
	devices map[input.Handle]input.Device

	refused   string // peer set whose last start attempt failed
	published int
	record    *replay.Log
	rounds    []persist.RoundRecord
	startedAt time.Time
	result    *persist.MatchRecord
}

func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("session: no config")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("session: no transport")
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Session{
		cfg:        opts.Config,
		t:          opts.Transport,
		bus:        opts.Bus,
		devicesFor: opts.Devices,
		sink:       opts.Sink,
		log:        opts.Log.With(zap.Stringer("local", opts.Transport.LocalID())),
		static:     opts.Static,
		levelName:  opts.LevelName,
		room:       opts.Room,
		published:  -1,
	}, nil
}

func (s *Session) State() State                 { return s.state }
func (s *Session) Done() bool                   { return s.state == StatePostMatch }
func (s *Session) Bus() *event.Bus              { return s.bus }
func (s *Session) Static() *sim.Static          { return s.static }
func (s *Session) Record() *replay.Log          { return s.record }
func (s *Session) Result() *persist.MatchRecord { return s.result }

// Peers returns the peer behind each handle of the running match.
func (s *Session) Peers() []transport.PeerID { return s.peers }

// World is the current, possibly predicted, world. Nil outside a match.
func (s *Session) World() *sim.World {
	if s.game == nil {
		return nil
	}
	return s.game.World
}

// LocalHandles lists the handles this peer feeds.
func (s *Session) LocalHandles() []input.Handle {
	if s.p2p == nil {
		return nil
	}
	return s.p2p.LocalHandles()
}

// ChecksumsCompared reports how many remote checksums the running match has
// checked against local ones.
func (s *Session) ChecksumsCompared() int {
	if s.p2p == nil {
		return 0
	}
	return s.p2p.ChecksumsCompared()
}

func (s *Session) FrameDuration() time.Duration {
	return time.Second / time.Duration(s.cfg.Session.FPS)
}

// Run ticks once per frame until the match is over or ctx is cancelled. It
// lingers for a second in PostMatch so late peers can confirm the final
// frames.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.FrameDuration())
	defer ticker.Stop()
	linger := s.cfg.Session.FPS
	for {
		if err := s.Tick(); err != nil {
			return err
		}
		if s.state == StatePostMatch {
			if linger == 0 {
				s.flush()
				return nil
			}
			linger--
		}
		select {
		case <-ctx.Done():
			s.flush()
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one loop iteration: deliver last iteration's events, then
// advance the lifecycle.
func (s *Session) Tick() error {
	s.flush()
	switch s.state {
	case StateAssetLoading:
		return s.loadAssets()
	case StateWaitingForPlayers:
		return s.waitForPlayers()
	case StateBetweenRound, StateInRound:
		s.step()
	}
	return nil
}

func (s *Session) flush() {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

func (s *Session) setState(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	event.Emit(s.bus, event.LifecycleChanged{From: from.String(), To: to.String()})
	s.log.Info("lifecycle", zap.Stringer("from", from), zap.Stringer("to", to))
}

func (s *Session) loadAssets() error {
	if s.static == nil {
		level, err := data.LoadLevel(s.cfg.Data.Level)
		if err != nil {
			return fmt.Errorf("load level: %w", err)
		}
		abilities, err := data.LoadAbilityTable(s.cfg.Data.Abilities)
		if err != nil {
			return fmt.Errorf("load abilities: %w", err)
		}
		static, err := sim.NewStatic(level, s.cfg.Setup(abilities))
		if err != nil {
			return err
		}
		s.static = static
		if s.levelName == "" {
			s.levelName = level.Name
		}
		s.log.Info("assets loaded",
			zap.String("level", level.Name),
			zap.Int("walls", len(level.Walls)),
			zap.Int("spawns", len(level.Spawns)),
			zap.Int("abilities", abilities.Count()))
	}
	s.setState(StateWaitingForPlayers)
	return nil
}

func (s *Session) waitForPlayers() error {
	// Joins and leaves only matter through the peer count here.
	s.t.AcceptNewConnections()
	s.t.Disconnected()

	n := s.cfg.Session.Players
	peers := s.t.Peers()
	if len(peers) < n {
		return nil
	}
	return s.start(peers[:n])
}

// start assigns handles in peer id order, so every peer derives the same
// table, and starts the rollback session.
func (s *Session) start(peers []transport.PeerID) error {
	sc := s.cfg.Session
	b := rollback.NewBuilder[*sim.World]().
		WithNumPlayers(len(peers)).
		WithMaxPrediction(sc.MaxPrediction).
		WithInputDelay(sc.InputDelay).
		WithFPS(sc.FPS).
		WithDesyncInterval(sc.DesyncInterval).
		WithLogger(s.log)
	for h, p := range peers {
		if p == s.t.LocalID() {
			b.AddPlayer(rollback.LocalPlayer(), input.Handle(h))
		} else {
			b.AddPlayer(rollback.RemotePlayer(p), input.Handle(h))
		}
	}
	p2p, err := b.StartP2P(s.t)
	var cfgErr *rollback.ConfigurationError
	if errors.As(err, &cfgErr) {
		return fmt.Errorf("start session: %w", err)
	}
	if err != nil {
		// Only this attempt fails; a later peer set may include us.
		if key := fmt.Sprint(peers); key != s.refused {
			s.refused = key
			s.log.Warn("match not started", zap.Stringers("peers", peers), zap.Error(err))
		}
		return nil
	}
	s.refused = ""
	world, err := sim.NewMatchWorld(s.static, len(peers))
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.peers = append([]transport.PeerID(nil), peers...)
	s.p2p = p2p
	s.game = system.NewSimulation(world, sc.FPS)
	s.devices = make(map[input.Handle]input.Device)
	for _, h := range p2p.LocalHandles() {
		dev := input.Idle
		if s.devicesFor != nil {
			dev = s.devicesFor(s, h)
		}
		s.devices[h] = dev
	}
	s.published = -1
	s.record = replay.NewLog(len(peers))
	s.rounds = nil
	s.result = nil
	s.startedAt = time.Now()

	handles := make([]zap.Field, 0, len(peers))
	for h, p := range peers {
		handles = append(handles, zap.Stringer(fmt.Sprintf("handle_%d", h), p))
	}
	s.log.Info("match starting", handles...)
	s.setState(StateBetweenRound)
	return nil
}

// step samples local input, advances the rollback session by one frame and
// publishes newly confirmed frames.
func (s *Session) step() {
	if err := s.p2p.Poll(); err != nil {
		s.drainEvents()
		s.teardown(err)
		return
	}
	s.drainEvents()

	frame := s.p2p.CurrentFrame()
	for _, h := range s.p2p.LocalHandles() {
		p := input.Sample(s.devices[h].Poll(frame), s.game.World.InputView(h))
		if err := s.p2p.AddLocalInput(h, p); err != nil {
			if errors.Is(err, rollback.ErrPredictionThreshold) {
				// Too far ahead of the slowest peer; try again next tick.
				s.drainEvents()
				return
			}
			s.teardown(err)
			return
		}
	}
	if err := s.p2p.AdvanceFrame(s.game); err != nil {
		s.teardown(err)
		return
	}
	s.drainEvents()
	s.publishConfirmed()
}

func (s *Session) drainEvents() {
	for _, ev := range s.p2p.Events() {
		switch ev.Kind {
		case rollback.EventDesync:
			event.Emit(s.bus, event.DesyncDetected{Frame: ev.Frame, Peer: ev.Peer.String(), Local: ev.Local, Remote: ev.Remote})
		case rollback.EventDisconnected:
			event.Emit(s.bus, event.PeerDisconnected{Peer: ev.Peer.String(), Handle: int(ev.Handle)})
		case rollback.EventStalled:
			event.Emit(s.bus, event.PredictionStalled{Frame: ev.Frame, FramesAhead: ev.FramesAhead})
		}
	}
}

// teardown drops the match after a lost peer or a transport failure and
// goes back to waiting. Static data stays loaded.
func (s *Session) teardown(err error) {
	frame := -1
	if s.p2p != nil {
		frame = s.p2p.CurrentFrame()
	}
	s.log.Warn("match torn down", zap.Int("frame", frame), zap.Error(err))
	s.p2p = nil
	s.game = nil
	s.devices = nil
	s.peers = nil
	s.record = nil
	s.rounds = nil
	s.published = -1
	s.setState(StateWaitingForPlayers)
}
