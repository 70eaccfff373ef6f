package session

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/config"
	"github.com/mageling/arena/internal/core/event"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/movement"
	"github.com/mageling/arena/internal/persist"
	"github.com/mageling/arena/internal/rollback"
	"github.com/mageling/arena/internal/sim"
	"github.com/mageling/arena/internal/transport"
)

type catalog map[combat.AbilityID]combat.Ability

func (c catalog) Ability(id combat.AbilityID) (combat.Ability, bool) {
	a, ok := c[id]
	return a, ok
}

type sink struct{ jobs []persist.Job }

func (s *sink) Submit(job persist.Job) bool {
	s.jobs = append(s.jobs, job)
	return true
}

var shortRules = sim.Rules{BetweenRoundFrames: 5, RoundFrames: 40, Rounds: 2}

func testStatic(t *testing.T) *sim.Static {
	t.Helper()
	lvl := &data.Level{
		Name: "box",
		Spawns: []data.SpawnPoint{
			{Position: geom.V(32, 32), Team: 0},
			{Position: geom.V(200, 32), Team: 1},
		},
	}
	st, err := sim.NewStatic(lvl, sim.Setup{
		Catalog: catalog{1: {
			ID: 1, Name: "explosion", Radius: 12, CastDelay: 0.1,
			FrameTicks: 1, MaxExplosionFrame: 4,
		}},
		Loadout:   [input.Slots]combat.AbilityID{1},
		Stats:     movement.Stats{Speed: 120, DashPower: 3, DashDuration: 0.15, DashCooldownLength: 1},
		ActorSize: 12,
		MaxHealth: 100,
		Rules:     shortRules,
	})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	return st
}

// pacer walks right for 25 frames, then left for 25.
func pacer(*Session, input.Handle) input.Device {
	return input.DeviceFunc(func(frame int) input.DeviceState {
		if frame%50 < 25 {
			return input.DeviceState{Held: input.Keys(input.KeyD)}
		}
		return input.DeviceState{Held: input.Keys(input.KeyA)}
	})
}

type peer struct {
	s     *Session
	ep    *transport.Endpoint
	sink  *sink
	trail []string
}

func newPeer(t *testing.T, hub *transport.Hub, id transport.PeerID, static *sim.Static) *peer {
	t.Helper()
	cfg := config.Default()
	cfg.Session.DesyncInterval = 10
	p := &peer{ep: hub.Join(id), sink: &sink{}}
	s, err := New(Options{
		Config:    cfg,
		Transport: p.ep,
		Devices:   pacer,
		Sink:      p.sink,
		Static:    static,
		LevelName: "box",
		Room:      "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	event.Subscribe(s.Bus(), func(e event.LifecycleChanged) { p.trail = append(p.trail, e.To) })
	p.s = s
	return p
}

func tickUntil(t *testing.T, limit int, done func() bool, peers ...*peer) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if done() {
			return
		}
		for _, p := range peers {
			if err := p.s.Tick(); err != nil {
				t.Fatalf("Tick: %v", err)
			}
		}
	}
	t.Fatalf("condition not reached after %d ticks", limit)
}

func TestMatchRunsToCompletionOnBothPeers(t *testing.T) {
	static := testStatic(t)
	hub := transport.NewHub()
	a := newPeer(t, hub, 7, static)
	b := newPeer(t, hub, 3, static)

	starts := map[*peer]int{}
	var desyncs []event.DesyncDetected
	for _, p := range []*peer{a, b} {
		p := p
		event.Subscribe(p.s.Bus(), func(ev sim.Event) {
			if ev.Kind == sim.RoundStarted {
				starts[p]++
			}
		})
		event.Subscribe(p.s.Bus(), func(e event.DesyncDetected) { desyncs = append(desyncs, e) })
	}

	tickUntil(t, 2000, func() bool { return a.s.Done() && b.s.Done() }, a, b)
	// One more tick delivers the events raised by the final step.
	a.s.Tick()
	b.s.Tick()

	want := []string{"WaitingForPlayers", "BetweenRound", "InRound", "BetweenRound", "InRound", "BetweenRound", "PostMatch"}
	for _, p := range []*peer{a, b} {
		if !reflect.DeepEqual(p.trail, want) {
			t.Fatalf("peer %v lifecycle = %v", p.ep.LocalID(), p.trail)
		}
		if starts[p] != 2 {
			t.Fatalf("peer %v saw %d RoundStarted events", p.ep.LocalID(), starts[p])
		}
		if p.s.ChecksumsCompared() == 0 {
			t.Fatalf("peer %v compared no checksums", p.ep.LocalID())
		}
	}
	if len(desyncs) != 0 {
		t.Fatalf("desyncs = %+v", desyncs)
	}

	// Handles follow sorted peer ids on both sides.
	wantPeers := []transport.PeerID{3, 7}
	if !reflect.DeepEqual(a.s.Peers(), wantPeers) || !reflect.DeepEqual(b.s.Peers(), wantPeers) {
		t.Fatalf("peers = %v / %v", a.s.Peers(), b.s.Peers())
	}
	if got := a.s.LocalHandles(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("a handles = %v", got)
	}
	if got := b.s.LocalHandles(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("b handles = %v", got)
	}

	ra, rb := a.s.Result(), b.s.Result()
	if ra == nil || rb == nil {
		t.Fatal("missing match result")
	}
	if ra.FinalChecksum != rb.FinalChecksum || ra.FinalChecksum == ([32]byte{}) {
		t.Fatalf("final checksums differ: %x / %x", ra.FinalChecksum[:8], rb.FinalChecksum[:8])
	}
	if ra.Frames != rb.Frames || len(ra.Rounds) != 2 {
		t.Fatalf("result = %+v", ra)
	}
	if !reflect.DeepEqual(a.s.Record().Frames, b.s.Record().Frames) {
		t.Fatal("confirmed input logs differ")
	}
	if ra.Level != "box" || ra.Room != "test" || ra.Players != 2 {
		t.Fatalf("result = %+v", ra)
	}

	if len(a.sink.jobs) != 1 || len(a.sink.jobs[0].Match.Rounds) != 2 {
		t.Fatalf("sink jobs = %+v", a.sink.jobs)
	}
	if a.sink.jobs[0].Inputs.Len() != ra.Frames {
		t.Fatalf("stored %d frames, result says %d", a.sink.jobs[0].Inputs.Len(), ra.Frames)
	}
}

func TestDisconnectReturnsToWaiting(t *testing.T) {
	static := testStatic(t)
	hub := transport.NewHub()
	a := newPeer(t, hub, 1, static)
	b := newPeer(t, hub, 2, static)

	var lost []event.PeerDisconnected
	event.Subscribe(a.s.Bus(), func(e event.PeerDisconnected) { lost = append(lost, e) })

	tickUntil(t, 200, func() bool { return a.s.State() == StateInRound }, a, b)
	b.ep.Close()

	a.s.Tick()
	if a.s.State() != StateWaitingForPlayers {
		t.Fatalf("state = %v", a.s.State())
	}
	if a.s.World() != nil || a.s.LocalHandles() != nil {
		t.Fatal("match state survived teardown")
	}
	a.s.Tick()
	if len(lost) != 1 || lost[0].Peer != "peer-2" || lost[0].Handle != 1 {
		t.Fatalf("disconnects = %+v", lost)
	}
	if a.s.State() != StateWaitingForPlayers {
		t.Fatalf("started alone: %v", a.s.State())
	}

	// A fresh peer lets the survivor start over from frame 0.
	c := newPeer(t, hub, 2, static)
	tickUntil(t, 200, func() bool {
		return a.s.State() == StateInRound && c.s.State() == StateInRound
	}, a, c)
	if a.s.Record().Len() == 0 || a.s.Record().Len() > 20 {
		t.Fatalf("restarted record has %d frames", a.s.Record().Len())
	}
}

func TestPeerLeftOutOfMatchKeepsWaiting(t *testing.T) {
	static := testStatic(t)
	hub := transport.NewHub()
	a := newPeer(t, hub, 1, static)
	b := newPeer(t, hub, 2, static)
	c := newPeer(t, hub, 3, static)

	// Handles go to the two lowest ids, so c has no local player.
	for i := 0; i < 5; i++ {
		for _, p := range []*peer{a, b, c} {
			if err := p.s.Tick(); err != nil {
				t.Fatalf("peer %v Tick: %v", p.ep.LocalID(), err)
			}
		}
	}
	if c.s.State() != StateWaitingForPlayers || c.s.World() != nil {
		t.Fatalf("excluded peer state = %v", c.s.State())
	}
	if a.s.State() == StateWaitingForPlayers || b.s.State() == StateWaitingForPlayers {
		t.Fatalf("states = %v / %v", a.s.State(), b.s.State())
	}

	// Once a slot frees up, the waiting peer gets in.
	a.ep.Close()
	tickUntil(t, 200, func() bool {
		return b.s.State() == StateInRound && c.s.State() == StateInRound
	}, b, c)
	if got := c.s.Peers(); !reflect.DeepEqual(got, []transport.PeerID{2, 3}) {
		t.Fatalf("peers = %v", got)
	}
}

func TestBadSessionConfigEndsRun(t *testing.T) {
	cfg := config.Default()
	cfg.Session.MaxPrediction = 0
	hub := transport.NewHub()
	hub.Join(2)
	s, err := New(Options{Config: cfg, Transport: hub.Join(1), Static: testStatic(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Tick()
	var cfgErr *rollback.ConfigurationError
	if err := s.Tick(); !errors.As(err, &cfgErr) || cfgErr.Field != "max_prediction" {
		t.Fatalf("Tick = %v", err)
	}
}

func TestAssetLoadingFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Level = filepath.Join("..", "..", "data", "level.yaml")
	cfg.Data.Abilities = filepath.Join("..", "..", "data", "abilities.yaml")
	hub := transport.NewHub()
	s, err := New(Options{Config: cfg, Transport: hub.Join(1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.State() != StateAssetLoading {
		t.Fatalf("initial state = %v", s.State())
	}
	if err := s.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.State() != StateWaitingForPlayers || s.Static() == nil || s.levelName != "pit" {
		t.Fatalf("state = %v static = %v level = %q", s.State(), s.Static() != nil, s.levelName)
	}
}

func TestBadAssetPathFails(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Level = filepath.Join(t.TempDir(), "missing.yaml")
	s, err := New(Options{Config: cfg, Transport: transport.NewHub().Join(1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Tick(); err == nil {
		t.Fatal("missing level accepted")
	}
}

func TestObservationSeesNearestEnemy(t *testing.T) {
	static := testStatic(t)
	hub := transport.NewHub()
	a := newPeer(t, hub, 1, static)
	b := newPeer(t, hub, 2, static)
	tickUntil(t, 10, func() bool { return a.s.World() != nil && b.s.World() != nil }, a, b)

	obs := a.s.Observation(0, 5)
	if !obs.HasEnemy || obs.Team != 0 || obs.Frame != 5 {
		t.Fatalf("observation = %+v", obs)
	}
	if obs.Self != geom.V(32, 32) || obs.Enemy != geom.V(200, 32) {
		t.Fatalf("positions = %v / %v", obs.Self, obs.Enemy)
	}
	if !obs.Ready[0] || obs.Ready[1] {
		t.Fatalf("ready = %v", obs.Ready)
	}
	actors, spells := a.s.Views()
	if len(actors) != 2 || len(spells) != 0 {
		t.Fatalf("views = %d actors, %d spells", len(actors), len(spells))
	}
}
