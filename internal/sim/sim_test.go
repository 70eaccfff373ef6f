package sim

import (
	"testing"

	"github.com/mageling/arena/internal/combat"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/movement"
)

type catalog map[combat.AbilityID]combat.Ability

func (c catalog) Ability(id combat.AbilityID) (combat.Ability, bool) {
	a, ok := c[id]
	return a, ok
}

func testStatic(t *testing.T) *Static {
	t.Helper()
	lvl := &data.Level{
		Spawns: []data.SpawnPoint{
			{Position: geom.V(10, 10), Team: 0},
			{Position: geom.V(90, 10), Team: 1},
		},
	}
	st, err := NewStatic(lvl, Setup{
		Catalog:   catalog{1: {ID: 1, Radius: 5, MaxExplosionFrame: 2}},
		Loadout:   [4]combat.AbilityID{1},
		Stats:     movement.Stats{Speed: 100, DashPower: 3, DashDuration: 0.15, DashCooldownLength: 1},
		ActorSize: 10,
		MaxHealth: 100,
		Rules:     Rules{BetweenRoundFrames: 3, RoundFrames: 100, ScoreLimit: 2, Rounds: 2},
	})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	return st
}

func TestMatchWorldSpawnsByTeam(t *testing.T) {
	w, err := NewMatchWorld(testStatic(t), 3)
	if err != nil {
		t.Fatalf("NewMatchWorld: %v", err)
	}
	views := w.Views()
	if len(views) != 3 {
		t.Fatalf("views = %d", len(views))
	}
	want := []struct {
		team combat.TeamID
		pos  geom.Vec2
	}{{0, geom.V(10, 10)}, {1, geom.V(90, 10)}, {0, geom.V(10, 10)}}
	for i, v := range views {
		if int(v.Handle) != i || v.Team != want[i].team || v.Position != want[i].pos {
			t.Fatalf("view %d = %+v", i, v)
		}
		if v.MovementTag != movement.TagIdle || v.CastTag != combat.TagNone || v.AnimationTag != AnimIdle {
			t.Fatalf("view %d tags = %+v", i, v)
		}
	}
	if w.Round.Phase != RoundWarmup || w.Round.FramesLeft != 3 {
		t.Fatalf("round = %+v", w.Round)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	w, _ := NewMatchWorld(testStatic(t), 2)
	w.SpawnSpell(0, combat.Ability{ID: 1, Radius: 5, MaxExplosionFrame: 2}, geom.V(50, 50))
	before := w.Checksum()

	c := w.Clone()
	if c.Checksum() != before {
		t.Fatal("clone checksum differs")
	}

	id, _ := c.ActorFor(1)
	c.Teleport(id, geom.V(1, 2))
	b, _ := c.Bodies.Get(id)
	b.Axes = append(b.Axes, geom.V(1, 0))
	c.SpellSerial++
	c.ECS().CreateEntity()

	if w.Checksum() != before {
		t.Fatal("mutating the clone changed the original")
	}
	if c.Checksum() == before {
		t.Fatal("mutated clone has the original checksum")
	}
	orig, _ := w.ActorFor(1)
	if tr, _ := w.Transforms.Get(orig); tr.Position != geom.V(90, 10) {
		t.Fatalf("original moved to %v", tr.Position)
	}
}

func TestChecksumCoversPoolAndCounters(t *testing.T) {
	a, _ := NewMatchWorld(testStatic(t), 2)
	b := a.Clone()
	id := b.ECS().CreateEntity()
	b.ECS().MarkForDestruction(id)
	b.ECS().FlushDestroyQueue()
	if a.Checksum() == b.Checksum() {
		t.Fatal("entity allocation not part of checksum")
	}
}

func TestEventWindow(t *testing.T) {
	w, _ := NewMatchWorld(testStatic(t), 2)
	w.BeginFrame(5)
	w.Emit(Event{Kind: ActorHit, Handle: 0, Other: 1})
	w.Emit(Event{Kind: RoundStarted})
	if evs := w.EventsFor(5); len(evs) != 2 || evs[0].Frame != 5 || evs[0].Kind != ActorHit {
		t.Fatalf("events = %+v", evs)
	}

	snap := w.Clone()
	w.BeginFrame(5)
	if len(w.EventsFor(5)) != 0 {
		t.Fatal("resimulated frame kept stale events")
	}
	if len(snap.EventsFor(5)) != 2 {
		t.Fatal("snapshot lost events")
	}

	w.BeginFrame(5 + EventWindow)
	if w.EventsFor(5) != nil {
		t.Fatal("events outside window still returned")
	}
}

func TestLeader(t *testing.T) {
	teams := []combat.TeamID{0, 1}
	if team, ok := Leader([MaxTeams]int{1, 3}, teams); !ok || team != 1 {
		t.Fatalf("leader = %d,%v", team, ok)
	}
	if _, ok := Leader([MaxTeams]int{2, 2}, teams); ok {
		t.Fatal("tie has a leader")
	}
}

func TestInputView(t *testing.T) {
	w, _ := NewMatchWorld(testStatic(t), 2)
	id, _ := w.ActorFor(1)
	c, _ := w.Casters.Get(id)
	c.State = combat.Precast{Ability: 1}
	mc, _ := w.Movers.Get(id)
	mc.CanDash = false

	v := w.InputView(1)
	if !v.Precast || v.PrecastAbility != 1 || v.CanDash || v.Loadout[0] != 1 {
		t.Fatalf("view = %+v", v)
	}
	if got := w.Views()[1].AnimationTag; got != AnimCast {
		t.Fatalf("animation = %v", got)
	}
}

func TestResetForRound(t *testing.T) {
	w, _ := NewMatchWorld(testStatic(t), 2)
	w.SpawnSpell(0, combat.Ability{ID: 1, Radius: 5, MaxExplosionFrame: 2}, geom.V(50, 50))
	id, _ := w.ActorFor(0)
	w.Teleport(id, geom.V(40, 40))
	w.ResetForRound()
	if w.Spells.Len() != 0 {
		t.Fatal("spells survived reset")
	}
	if tr, _ := w.Transforms.Get(id); tr.Position != geom.V(10, 10) {
		t.Fatalf("actor at %v after reset", tr.Position)
	}
	if len(w.SpellViews()) != 0 {
		t.Fatal("spell views after reset")
	}
}
