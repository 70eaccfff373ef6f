package input

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mageling/arena/internal/geom"
)

// Handle identifies an actor and doubles as its index into the per-peer input
// tables. Handles are dense, start at 0, and are totally ordered.
type Handle int

// Action bits carried in Packet.Actions.
const (
	Autoattack    uint32 = 1 << 0 // basic attack toward the cursor
	Dash          uint32 = 1 << 1 // dash in the move direction
	Shield        uint32 = 1 << 2 // shield toward the cursor
	CastSpell     uint32 = 1 << 3 // release the pending cast at the cursor
	SelectAbility uint32 = 1 << 4 // enter precast with Packet.Ability
	CancelCast    uint32 = 1 << 5 // drop the pending cast

	knownActions = Autoattack | Dash | Shield | CastSpell | SelectAbility | CancelCast
)

// PacketSize is the encoded size of a Packet in bytes.
const PacketSize = 24

// Vec32 is the wire representation of a vector. Peers exchange float32 so
// every receiver sees exactly the same values the sender simulated with.
type Vec32 struct {
	X, Y float32
}

func (v Vec32) Vec2() geom.Vec2 { return geom.Vec2{X: float64(v.X), Y: float64(v.Y)} }

func ToVec32(v geom.Vec2) Vec32 { return Vec32{X: float32(v.X), Y: float32(v.Y)} }

// Packet is one actor's intent for one frame. It holds no pointers or slices
// so it can live by value in ring buffers indexed by frame and handle.
type Packet struct {
	// Move is the unnormalized sum of the pressed directions.
	Move Vec32
	// Actions is a bitset of the action constants above.
	Actions uint32
	// Ability is the ability id for SelectAbility or CastSpell. Zero otherwise.
	Ability uint32
	// Cursor is the world-space cursor position.
	Cursor Vec32
}

func (p Packet) Has(bit uint32) bool { return p.Actions&bit != 0 }

// MoveDirection returns the requested direction, not normalized.
func (p Packet) MoveDirection() geom.Vec2 { return p.Move.Vec2() }

func (p Packet) CursorPosition() geom.Vec2 { return p.Cursor.Vec2() }

// Canonical clears fields that carry no meaning for the current action bits,
// so two packets with the same intent compare equal.
func (p Packet) Canonical() Packet {
	p.Actions &= knownActions
	if !p.Has(CastSpell) && !p.Has(SelectAbility) {
		p.Ability = 0
	}
	return p
}

// AppendBinary appends the 24-byte little-endian encoding of p to b.
// Layout: [move.x f32][move.y f32][actions u32][ability u32][cursor.x f32][cursor.y f32].
func (p Packet) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(p.Move.X))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(p.Move.Y))
	b = binary.LittleEndian.AppendUint32(b, p.Actions)
	b = binary.LittleEndian.AppendUint32(b, p.Ability)
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(p.Cursor.X))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(p.Cursor.Y))
	return b
}

func (p Packet) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, PacketSize)), nil
}

func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) != PacketSize {
		return fmt.Errorf("input packet: %d bytes, want %d", len(data), PacketSize)
	}
	le := binary.LittleEndian
	p.Move.X = math.Float32frombits(le.Uint32(data[0:]))
	p.Move.Y = math.Float32frombits(le.Uint32(data[4:]))
	p.Actions = le.Uint32(data[8:])
	p.Ability = le.Uint32(data[12:])
	p.Cursor.X = math.Float32frombits(le.Uint32(data[16:]))
	p.Cursor.Y = math.Float32frombits(le.Uint32(data[20:]))
	if !finite32(p.Move.X) || !finite32(p.Move.Y) || !finite32(p.Cursor.X) || !finite32(p.Cursor.Y) {
		return fmt.Errorf("input packet: non-finite vector component")
	}
	return nil
}

func finite32(f float32) bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
