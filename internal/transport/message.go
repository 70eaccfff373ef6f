package transport

import (
	"fmt"

	"github.com/mageling/arena/internal/input"
)

// Kind is the opcode of a peer-to-peer message.
type Kind byte

const (
	KindInput    Kind = 0x01
	KindChecksum Kind = 0x02
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindChecksum:
		return "checksum"
	default:
		return fmt.Sprintf("Kind(0x%02X)", byte(k))
	}
}

// Message is what rollback sessions exchange. Input carries one frame of one
// handle's input, Checksum one confirmed frame's state hash.
type Message struct {
	Kind   Kind
	Frame  int32
	Handle uint8
	Packet input.Packet
	Sum    [32]byte
}

func InputMessage(frame int, h input.Handle, p input.Packet) Message {
	return Message{Kind: KindInput, Frame: int32(frame), Handle: uint8(h), Packet: p}
}

func ChecksumMessage(frame int, sum [32]byte) Message {
	return Message{Kind: KindChecksum, Frame: int32(frame), Sum: sum}
}

// Encode lays the message out as [opcode][frame i32] followed by
// [handle u8][24-byte packet] for inputs or [32-byte sum] for checksums.
func (m Message) Encode() []byte {
	w := NewWriterWithOpcode(byte(m.Kind))
	w.WriteD(m.Frame)
	switch m.Kind {
	case KindInput:
		w.WriteC(m.Handle)
		w.WriteBytes(m.Packet.AppendBinary(make([]byte, 0, input.PacketSize)))
	case KindChecksum:
		w.WriteBytes(m.Sum[:])
	}
	return w.Bytes()
}

func DecodeMessage(b []byte) (Message, error) {
	r := NewReader(b)
	m := Message{Kind: Kind(r.Opcode())}
	m.Frame = r.ReadD()
	switch m.Kind {
	case KindInput:
		m.Handle = r.ReadC()
		raw := r.ReadBytes(input.PacketSize)
		if r.Err() != nil {
			return Message{}, fmt.Errorf("decode input: %w", r.Err())
		}
		if err := m.Packet.UnmarshalBinary(raw); err != nil {
			return Message{}, fmt.Errorf("decode input: %w", err)
		}
	case KindChecksum:
		copy(m.Sum[:], r.ReadBytes(len(m.Sum)))
	default:
		return Message{}, fmt.Errorf("decode message: unknown opcode 0x%02X", byte(m.Kind))
	}
	if r.Err() != nil {
		return Message{}, fmt.Errorf("decode %s: %w", m.Kind, r.Err())
	}
	if r.Remaining() != 0 {
		return Message{}, fmt.Errorf("decode %s: %d trailing bytes", m.Kind, r.Remaining())
	}
	if m.Frame < 0 {
		return Message{}, fmt.Errorf("decode %s: negative frame %d", m.Kind, m.Frame)
	}
	return m, nil
}
