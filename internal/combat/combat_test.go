package combat

import (
	"testing"

	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
)

type catalog map[AbilityID]Ability

func (c catalog) Ability(id AbilityID) (Ability, bool) {
	a, ok := c[id]
	return a, ok
}

func fireball() Ability {
	return Ability{
		ID:                1,
		Name:              "fireball",
		Damage:            10,
		Radius:            12,
		CastDelay:         0.5,
		Cooldown:          1,
		FrameTicks:        2,
		MaxIndicatorFrame: 4,
		MaxExplosionFrame: 3,
	}
}

func TestStepTransitions(t *testing.T) {
	tests := []struct {
		name     string
		state    CastState
		cmd      Command
		want     CastState
		released AbilityID
	}{
		{"select from none", None{}, Command{Select: true, Ability: 2}, Precast{Ability: 2}, 0},
		{"select zero ignored", None{}, Command{Select: true}, None{}, 0},
		{"cast from none ignored", None{}, Command{Cast: true}, None{}, 0},
		{"cancel from none", None{}, Command{Cancel: true}, None{}, 0},
		{"cast from precast", Precast{Ability: 3}, Command{Cast: true}, None{}, 3},
		{"cancel wins over cast", Precast{Ability: 3}, Command{Cast: true, Cancel: true}, None{}, 0},
		{"reselect replaces pending", Precast{Ability: 3}, Command{Select: true, Ability: 4}, Precast{Ability: 4}, 0},
		{"nil state", nil, Command{}, None{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, id, ok := Step(tt.state, tt.cmd)
			if next != tt.want {
				t.Fatalf("next = %#v, want %#v", next, tt.want)
			}
			if ok != (tt.released != 0) || id != tt.released {
				t.Fatalf("released = %d,%v want %d", id, ok, tt.released)
			}
		})
	}
}

func TestCommandFromPacket(t *testing.T) {
	p := input.Packet{Actions: input.CastSpell | input.CancelCast, Ability: 7}
	cmd := CommandFrom(p)
	if !cmd.Cast || !cmd.Cancel || cmd.Select || cmd.Ability != 7 {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestCasterCooldownKeepsPrecast(t *testing.T) {
	cat := catalog{1: fireball()}
	c := NewCaster([input.Slots]AbilityID{1})

	if _, ok := c.Apply(Command{Select: true, Ability: 1}, cat); ok {
		t.Fatal("select released a cast")
	}
	a, ok := c.Apply(Command{Cast: true}, cat)
	if !ok || a.ID != 1 {
		t.Fatalf("cast = %v,%v", a.ID, ok)
	}
	if c.State.Tag() != TagNone || c.Cooldowns[0] != 1 {
		t.Fatalf("after cast: state %v cooldown %v", c.State.Tag(), c.Cooldowns[0])
	}

	c.Apply(Command{Select: true, Ability: 1}, cat)
	if _, ok := c.Apply(Command{Cast: true}, cat); ok {
		t.Fatal("cast during cooldown")
	}
	if c.State != (Precast{Ability: 1}) {
		t.Fatalf("state = %#v, want pending cast kept", c.State)
	}

	for i := 0; i < 60; i++ {
		c.TickCooldowns(1.0 / 60)
	}
	if !c.Ready(0) {
		t.Fatalf("cooldown left %v", c.Cooldowns[0])
	}
	if _, ok := c.Apply(Command{Cast: true}, cat); !ok {
		t.Fatal("cast after cooldown failed")
	}
}

func TestCasterIgnoresAbilityOutsideLoadout(t *testing.T) {
	c := NewCaster([input.Slots]AbilityID{1})
	c.Apply(Command{Select: true, Ability: 9}, catalog{})
	if c.State.Tag() != TagNone {
		t.Fatalf("state = %v", c.State.Tag())
	}
}

func TestLifetimePhases(t *testing.T) {
	const dt = 1.0 / 60
	l := NewLifetime(fireball())
	if l.Phase != PhaseCastDelay || l.Live() {
		t.Fatalf("initial phase %v", l.Phase)
	}

	frames := 0
	var step LifetimeStep
	for step != LifetimeDetonated {
		prev := l.Elapsed
		step = l.Advance(dt)
		frames++
		if l.Elapsed < prev {
			t.Fatal("elapsed decreased")
		}
		if frames > 100 {
			t.Fatal("never detonated")
		}
		if l.Phase == PhaseCastDelay && l.AnimFrame >= l.MaxIndicatorFrame {
			t.Fatalf("indicator frame %d not looped", l.AnimFrame)
		}
	}
	if frames != 30 {
		t.Fatalf("detonated after %d frames, want 30", frames)
	}
	if !l.Live() || l.AnimFrame != 0 {
		t.Fatalf("after detonation: phase %v anim %d", l.Phase, l.AnimFrame)
	}

	// 3 animation frames at 2 ticks each.
	live := 0
	for {
		step = l.Advance(dt)
		live++
		if step == LifetimeExpired {
			break
		}
		if live > 20 {
			t.Fatal("never expired")
		}
	}
	if live != 6 {
		t.Fatalf("expired after %d frames in Cast, want 6", live)
	}
}

func TestLifetimePostCast(t *testing.T) {
	a := fireball()
	a.CastDelay = 0
	a.FrameTicks = 1
	a.MaxPostCastFrame = 2
	l := NewLifetime(a)

	if l.Advance(0.1) != LifetimeDetonated {
		t.Fatal("zero delay did not detonate on first advance")
	}
	for i := 0; i < 3; i++ {
		l.Advance(0.1)
	}
	if l.Phase != PhasePostCast || l.Live() {
		t.Fatalf("phase = %v", l.Phase)
	}
	l.Advance(0.1)
	if l.Advance(0.1) != LifetimeExpired {
		t.Fatal("post cast did not expire")
	}
}

func TestSpellExcludesCaster(t *testing.T) {
	s := NewSpell(1, 0, fireball(), geom.V(1, 1))
	if s.CanHit(1) {
		t.Fatal("cast-delay spell hit")
	}
	s.Lifetime.enter(PhaseCast)
	if s.CanHit(0) {
		t.Fatal("spell hit its caster")
	}
	if !s.CanHit(1) {
		t.Fatal("live spell missed victim")
	}
	s.MarkHit(1)
	if s.CanHit(1) {
		t.Fatal("spell hit the same actor twice")
	}
}

func TestTargetClampsRange(t *testing.T) {
	a := Ability{MaxRange: 10}
	got := a.Target(geom.V(0, 0), geom.V(30, 0))
	if got != geom.V(10, 0) {
		t.Fatalf("target = %v", got)
	}
	if got := a.Target(geom.V(0, 0), geom.V(3, 4)); got != geom.V(3, 4) {
		t.Fatalf("in-range target moved to %v", got)
	}
}
