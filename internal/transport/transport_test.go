package transport

import (
	"errors"
	"testing"

	"github.com/mageling/arena/internal/input"
)

func TestReaderWriterFields(t *testing.T) {
	w := NewWriterWithOpcode(0x7f)
	w.WriteC(3)
	w.WriteH(0xBEEF)
	w.WriteD(-2)
	w.WriteDU(0xDEADBEEF)
	w.WriteS("héllo")

	r := NewReader(w.Bytes())
	if r.Opcode() != 0x7f || r.ReadC() != 3 || r.ReadH() != 0xBEEF || r.ReadD() != -2 || r.ReadDU() != 0xDEADBEEF {
		t.Fatal("field mismatch")
	}
	if s := r.ReadS(); s != "héllo" {
		t.Fatalf("ReadS = %q", s)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Fatalf("err %v remaining %d", r.Err(), r.Remaining())
	}
	if r.ReadDU() != 0 || !errors.Is(r.Err(), ErrShortFrame) {
		t.Fatal("read past end did not fail")
	}
}

func TestMessageEncoding(t *testing.T) {
	p := input.Packet{Move: input.Vec32{X: 1, Y: -1}, Actions: input.CastSpell, Ability: 2, Cursor: input.Vec32{X: 5.5, Y: 6}}
	m := InputMessage(42, 3, p)
	raw := m.Encode()
	if len(raw) != 1+4+1+input.PacketSize {
		t.Fatalf("input frame is %d bytes", len(raw))
	}
	got, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}

	sum := [32]byte{1, 2, 3}
	c := ChecksumMessage(7, sum)
	got, err = DecodeMessage(c.Encode())
	if err != nil || got.Kind != KindChecksum || got.Frame != 7 || got.Sum != sum {
		t.Fatalf("checksum = %+v, %v", got, err)
	}
}

func TestDecodeMessageRejects(t *testing.T) {
	good := InputMessage(1, 0, input.Packet{}).Encode()
	tests := map[string][]byte{
		"empty":    nil,
		"unknown":  {0x55, 0, 0, 0, 0},
		"short":    good[:len(good)-1],
		"trailing": append(append([]byte(nil), good...), 0),
		"negative": InputMessage(-1, 0, input.Packet{}).Encode(),
	}
	for name, raw := range tests {
		if _, err := DecodeMessage(raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRelayFrames(t *testing.T) {
	self, peers, err := DecodeWelcome(EncodeWelcome(4, []PeerID{1, 2}))
	if err != nil || self != 4 || len(peers) != 2 || peers[1] != 2 {
		t.Fatalf("welcome = %v %v %v", self, peers, err)
	}
	to, payload, err := DecodeData(EncodeData(9, []byte{1, 2}))
	if err != nil || to != 9 || len(payload) != 2 {
		t.Fatalf("data = %v %v %v", to, payload, err)
	}
	if _, _, err := DecodeData([]byte{OpData, 1}); err == nil {
		t.Fatal("short data frame accepted")
	}
}

func TestLoopbackDeliveryPauseAndLeave(t *testing.T) {
	hub := NewHub()
	a := hub.Join(1)
	b := hub.Join(2)

	if got := a.AcceptNewConnections(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("a accepted %v", got)
	}
	if got := b.AcceptNewConnections(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("b accepted %v", got)
	}
	if peers := b.Peers(); len(peers) != 2 || peers[0] != 1 || peers[1] != 2 {
		t.Fatalf("peers = %v", peers)
	}

	b.Pause()
	for f := 0; f < 3; f++ {
		if err := a.Send(2, InputMessage(f, 0, input.Packet{})); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if got := b.Receive(); len(got) != 0 {
		t.Fatalf("paused endpoint received %d", len(got))
	}
	b.Resume()
	got := b.Receive()
	if len(got) != 3 {
		t.Fatalf("received %d after resume", len(got))
	}
	for i, env := range got {
		if env.From != 1 || int(env.Msg.Frame) != i {
			t.Fatalf("envelope %d = %+v", i, env)
		}
	}

	if err := a.Send(3, Message{}); !errors.Is(err, ErrUnknownPeer) {
		t.Fatalf("send to unknown: %v", err)
	}
	a.Close()
	if got := b.Disconnected(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("disconnected = %v", got)
	}
	if err := a.Send(2, Message{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close: %v", err)
	}
	if peers := b.Peers(); len(peers) != 1 {
		t.Fatalf("peers after leave = %v", peers)
	}
}
