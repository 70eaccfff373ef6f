package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
)

// Engine wraps a single gopher-lua VM running bot scripts.
// Single-goroutine access only (the session loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in the directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.loadDir(scriptsDir); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load bot scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromSource creates an engine from a single script held in memory.
func NewEngineFromSource(name, src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e := &Engine{vm: vm, log: log}
	vm.SetGlobal("log_debug", vm.NewFunction(e.luaLogDebug))
	vm.SetGlobal("distance", vm.NewFunction(luaDistance))
	return e
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no bots configured
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) luaLogDebug(L *lua.LState) int {
	e.log.Debug("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// distance(ax, ay, bx, by)
func luaDistance(L *lua.LState) int {
	a := geom.V(float64(L.CheckNumber(1)), float64(L.CheckNumber(2)))
	b := geom.V(float64(L.CheckNumber(3)), float64(L.CheckNumber(4)))
	L.Push(lua.LNumber(b.Sub(a).Length()))
	return 1
}

// Observation is what a bot sees of the match when it is polled.
type Observation struct {
	Frame    int
	Handle   int
	Team     int
	Self     geom.Vec2
	Enemy    geom.Vec2
	HasEnemy bool
	CanDash  bool
	Dashing  bool
	Precast  bool
	Ready    [input.Slots]bool // per loadout slot
}

// BotCommand is a single action returned by bot_poll.
type BotCommand struct {
	Type string // "move", "dash", "select", "cast", "cancel", "idle"
	X, Y float64
	Slot int // 1-based loadout slot for "select"
}

// HasBot reports whether a bot_poll function is loaded.
func (e *Engine) HasBot() bool {
	return e.vm.GetGlobal("bot_poll") != lua.LNil
}

// RunBot calls Lua bot_poll(ctx) and returns its commands.
func (e *Engine) RunBot(obs Observation) ([]BotCommand, error) {
	fn := e.vm.GetGlobal("bot_poll")
	if fn == lua.LNil {
		return nil, fmt.Errorf("lua function bot_poll not found")
	}

	t := e.vm.NewTable()
	t.RawSetString("frame", lua.LNumber(obs.Frame))
	t.RawSetString("handle", lua.LNumber(obs.Handle))
	t.RawSetString("team", lua.LNumber(obs.Team))
	t.RawSetString("x", lua.LNumber(obs.Self.X))
	t.RawSetString("y", lua.LNumber(obs.Self.Y))
	t.RawSetString("has_enemy", lua.LBool(obs.HasEnemy))
	if obs.HasEnemy {
		t.RawSetString("enemy_x", lua.LNumber(obs.Enemy.X))
		t.RawSetString("enemy_y", lua.LNumber(obs.Enemy.Y))
		t.RawSetString("enemy_dist", lua.LNumber(obs.Enemy.Sub(obs.Self).Length()))
	}
	t.RawSetString("can_dash", lua.LBool(obs.CanDash))
	t.RawSetString("dashing", lua.LBool(obs.Dashing))
	t.RawSetString("precast", lua.LBool(obs.Precast))
	ready := e.vm.NewTable()
	for i, r := range obs.Ready {
		ready.RawSetInt(i+1, lua.LBool(r))
	}
	t.RawSetString("ready", ready)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return nil, fmt.Errorf("lua bot_poll: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil, nil
	}

	var cmds []BotCommand
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, BotCommand{
				Type: lStr(row, "type"),
				X:    lNum(row, "x"),
				Y:    lNum(row, "y"),
				Slot: lInt(row, "slot"),
			})
		}
	})
	return cmds, nil
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
