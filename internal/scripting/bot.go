package scripting

import (
	"go.uber.org/zap"

	"github.com/mageling/arena/internal/geom"
	"github.com/mageling/arena/internal/input"
)

// Observer reports the bot's view of the match for a frame. It reads the
// locally predicted world, which is fine: bot input is sampled once and
// then shared like any other local input.
type Observer func(frame int) Observation

// BotDevice is an input.Device driven by a Lua bot_poll function. Script
// errors are logged once and turn the bot idle.
type BotDevice struct {
	engine  *Engine
	observe Observer
	log     *zap.Logger
	broken  bool
}

func NewBotDevice(engine *Engine, observe Observer, log *zap.Logger) *BotDevice {
	return &BotDevice{engine: engine, observe: observe, log: log}
}

func (b *BotDevice) Poll(frame int) input.DeviceState {
	if b.broken {
		return input.DeviceState{}
	}
	cmds, err := b.engine.RunBot(b.observe(frame))
	if err != nil {
		b.broken = true
		b.log.Warn("bot script failed, bot goes idle", zap.Int("frame", frame), zap.Error(err))
		return input.DeviceState{}
	}
	return DeviceStateFor(cmds)
}

// DeviceStateFor translates bot commands into the keys and buttons a player
// would press for them.
func DeviceStateFor(cmds []BotCommand) input.DeviceState {
	var st input.DeviceState
	for _, c := range cmds {
		switch c.Type {
		case "move":
			if c.X > 0 {
				st.Held |= input.Keys(input.KeyD)
			} else if c.X < 0 {
				st.Held |= input.Keys(input.KeyA)
			}
			if c.Y > 0 {
				st.Held |= input.Keys(input.KeyW)
			} else if c.Y < 0 {
				st.Held |= input.Keys(input.KeyS)
			}
		case "dash":
			st.JustPressed |= input.Keys(input.KeySpace)
		case "select":
			if c.Slot >= 1 && c.Slot <= input.Slots {
				st.Held |= input.Keys(input.Key1 + input.Key(c.Slot-1))
			}
		case "cast":
			st.Mouse |= input.Buttons(input.MouseLeft)
			st.Cursor = geom.V(c.X, c.Y)
		case "cancel":
			st.Mouse |= input.Buttons(input.MouseRight)
		}
	}
	return st
}
