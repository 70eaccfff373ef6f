package scripting

import (
	"path/filepath"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
)

func loadChaser(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(filepath.Join("..", "..", "scripts", "bot"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	if !e.HasBot() {
		t.Fatal("bot_poll not defined")
	}
	return e
}

func TestChaserWalksAndSelects(t *testing.T) {
	e := loadChaser(t)
	obs := Observation{
		Self:     geom.V(0, 0),
		Enemy:    geom.V(100, -20),
		HasEnemy: true,
		Ready:    [input.Slots]bool{true},
	}
	cmds, err := e.RunBot(obs)
	if err != nil {
		t.Fatalf("RunBot: %v", err)
	}
	st := DeviceStateFor(cmds)
	if !st.Held.Has(input.KeyD) || !st.Held.Has(input.KeyS) || st.Held.Has(input.KeyW) {
		t.Fatalf("held = %b", st.Held)
	}
	if !st.Held.Has(input.Key1) || st.Mouse != 0 {
		t.Fatalf("state = %+v", st)
	}
}

func TestChaserCastsWhilePrecast(t *testing.T) {
	e := loadChaser(t)
	obs := Observation{
		Self:     geom.V(0, 0),
		Enemy:    geom.V(30, 40),
		HasEnemy: true,
		Precast:  true,
	}
	dev := NewBotDevice(e, func(int) Observation { return obs }, zap.NewNop())
	st := dev.Poll(7)
	if !st.Mouse.Has(input.MouseLeft) || st.Cursor != geom.V(30, 40) {
		t.Fatalf("state = %+v", st)
	}

	// The sampler turns that into a cast of the pending ability.
	p := input.Sample(st, input.ActorView{Precast: true, PrecastAbility: 2})
	if !p.Has(input.CastSpell) || p.Ability != 2 {
		t.Fatalf("packet = %+v", p)
	}
}

func TestChaserIdleWithoutEnemy(t *testing.T) {
	e := loadChaser(t)
	cmds, err := e.RunBot(Observation{})
	if err != nil {
		t.Fatalf("RunBot: %v", err)
	}
	if st := DeviceStateFor(cmds); st != (input.DeviceState{}) {
		t.Fatalf("state = %+v", st)
	}
}

func TestBrokenScriptGoesIdle(t *testing.T) {
	e, err := NewEngineFromSource("broken", `
calls = 0
function bot_poll(ctx)
  calls = calls + 1
  error("boom")
end
`, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromSource: %v", err)
	}
	defer e.Close()

	dev := NewBotDevice(e, func(int) Observation { return Observation{} }, zap.NewNop())
	for f := 0; f < 3; f++ {
		if st := dev.Poll(f); st != (input.DeviceState{}) {
			t.Fatalf("frame %d state = %+v", f, st)
		}
	}
	if n := lNumGlobal(e, "calls"); n != 1 {
		t.Fatalf("bot_poll called %v times", n)
	}
}

func TestDistanceHelper(t *testing.T) {
	e, err := NewEngineFromSource("dist", `d = distance(0, 0, 3, 4)`, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromSource: %v", err)
	}
	defer e.Close()
	if got := lNumGlobal(e, "d"); got != 5 {
		t.Fatalf("distance = %v", got)
	}
}

func TestMissingBotPoll(t *testing.T) {
	e, err := NewEngineFromSource("empty", `x = 1`, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromSource: %v", err)
	}
	defer e.Close()
	if e.HasBot() {
		t.Fatal("HasBot on empty script")
	}
	if _, err := e.RunBot(Observation{}); err == nil {
		t.Fatal("RunBot without bot_poll succeeded")
	}
}

func TestSyntaxErrorFailsLoad(t *testing.T) {
	if _, err := NewEngineFromSource("bad", `function (`, zap.NewNop()); err == nil {
		t.Fatal("syntax error accepted")
	}
}

func lNumGlobal(e *Engine, name string) float64 {
	return float64(lua.LVAsNumber(e.vm.GetGlobal(name)))
}
