// Package replay re-executes recorded matches. A match is fully described by
// its static data and the confirmed inputs of every frame, so running the
// log through the pipeline again reproduces the final state bit for bit.
package replay

import (
	"fmt"

	"github.com/mageling/arena/internal/config"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/sim"
	"github.com/mageling/arena/internal/system"
)

// Log is the confirmed input of every frame of a match, frame 0 first.
type Log struct {
	Players int
	Frames  [][]input.Packet
}

func NewLog(players int) *Log {
	return &Log{Players: players}
}

// Append records the confirmed inputs of the next frame.
func (l *Log) Append(inputs []input.Packet) error {
	if len(inputs) != l.Players {
		return fmt.Errorf("replay log: frame %d has %d inputs, want %d", len(l.Frames), len(inputs), l.Players)
	}
	l.Frames = append(l.Frames, append([]input.Packet(nil), inputs...))
	return nil
}

func (l *Log) Len() int { return len(l.Frames) }

// EncodeFrame packs one frame's inputs in handle order.
func EncodeFrame(inputs []input.Packet) []byte {
	b := make([]byte, 0, len(inputs)*input.PacketSize)
	for _, p := range inputs {
		b = p.AppendBinary(b)
	}
	return b
}

func DecodeFrame(b []byte, players int) ([]input.Packet, error) {
	if len(b) != players*input.PacketSize {
		return nil, fmt.Errorf("replay frame: %d bytes for %d players", len(b), players)
	}
	out := make([]input.Packet, players)
	for h := range out {
		if err := out[h].UnmarshalBinary(b[h*input.PacketSize : (h+1)*input.PacketSize]); err != nil {
			return nil, fmt.Errorf("replay frame handle %d: %w", h, err)
		}
	}
	return out, nil
}

// Run re-executes the log from a fresh match world and returns the checksum
// of the final state.
func Run(level *data.Level, abilities *data.AbilityTable, cfg *config.Config, log *Log) ([32]byte, error) {
	static, err := sim.NewStatic(level, cfg.Setup(abilities))
	if err != nil {
		return [32]byte{}, fmt.Errorf("replay: %w", err)
	}
	w, err := RunStatic(static, cfg.Session.FPS, log)
	if err != nil {
		return [32]byte{}, err
	}
	return w.Checksum(), nil
}

// RunStatic is Run for already built static data. It returns the final world.
func RunStatic(static *sim.Static, fps int, log *Log) (*sim.World, error) {
	if fps < 1 {
		return nil, fmt.Errorf("replay: fps %d", fps)
	}
	w, err := sim.NewMatchWorld(static, log.Players)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	g := system.NewSimulation(w, fps)
	for f, inputs := range log.Frames {
		if len(inputs) != log.Players {
			return nil, fmt.Errorf("replay: frame %d has %d inputs, want %d", f, len(inputs), log.Players)
		}
		g.AdvanceFrame(f, inputs)
	}
	return g.World, nil
}
