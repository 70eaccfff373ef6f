package replay

import (
	"path/filepath"
	"testing"

	"github.com/mageling/arena/internal/config"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/input"
)

func loadData(t *testing.T) (*data.Level, *data.AbilityTable, *config.Config) {
	t.Helper()
	dir := filepath.Join("..", "..", "data")
	level, err := data.LoadLevel(filepath.Join(dir, "level.yaml"))
	if err != nil {
		t.Fatalf("LoadLevel: %v", err)
	}
	abilities, err := data.LoadAbilityTable(filepath.Join(dir, "abilities.yaml"))
	if err != nil {
		t.Fatalf("LoadAbilityTable: %v", err)
	}
	cfg := config.Default()
	cfg.Round.BetweenRoundFrames = 10
	return level, abilities, cfg
}

func scriptedLog(t *testing.T, frames int) *Log {
	t.Helper()
	l := NewLog(2)
	for f := 0; f < frames; f++ {
		inputs := make([]input.Packet, 2)
		for h := range inputs {
			p := input.Packet{Move: input.Vec32{X: float32(1 - 2*h), Y: float32((f / 30) % 2)}}
			switch (f + 13*h) % 40 {
			case 5:
				p.Actions = input.SelectAbility
				p.Ability = 1
			case 6:
				p.Actions = input.CastSpell
				p.Ability = 1
				p.Cursor = input.Vec32{X: 160, Y: 88}
			case 20:
				p.Actions = input.Dash
			}
			inputs[h] = p
		}
		if err := l.Append(inputs); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return l
}

func TestRunIsRepeatable(t *testing.T) {
	level, abilities, cfg := loadData(t)
	log := scriptedLog(t, 400)

	first, err := Run(level, abilities, cfg, log)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(level, abilities, cfg, log)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first != second {
		t.Fatal("replay is not repeatable")
	}

	shorter := &Log{Players: 2, Frames: log.Frames[:399]}
	third, err := Run(level, abilities, cfg, shorter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if third == first {
		t.Fatal("checksum ignores the last frame")
	}
}

func TestFrameEncoding(t *testing.T) {
	in := []input.Packet{
		{Move: input.Vec32{X: -1}, Actions: input.Dash},
		{Actions: input.CastSpell, Ability: 3, Cursor: input.Vec32{X: 12.5, Y: -4}},
	}
	b := EncodeFrame(in)
	if len(b) != 2*input.PacketSize {
		t.Fatalf("len = %d", len(b))
	}
	out, err := DecodeFrame(b, 2)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("decoded %+v", out)
	}
	if _, err := DecodeFrame(b[:30], 2); err == nil {
		t.Fatal("short frame accepted")
	}
}

func TestLogRejectsWrongWidth(t *testing.T) {
	l := NewLog(3)
	if err := l.Append(make([]input.Packet, 2)); err == nil {
		t.Fatal("short frame appended")
	}
	if l.Len() != 0 {
		t.Fatalf("len = %d", l.Len())
	}
}
