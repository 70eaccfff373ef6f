package transport

import "fmt"

// Relay frame opcodes. Peer messages travel inside OpData frames.
const (
	OpWelcome    byte = 0x10 // relay → client: [self u32][n u8][peer u32]*n
	OpPeerJoined byte = 0x11 // relay → client: [peer u32]
	OpPeerLeft   byte = 0x12 // relay → client: [peer u32]
	OpData       byte = 0x13 // client → relay: [to u32][msg]; relay → client: [from u32][msg]
)

func EncodeWelcome(self PeerID, peers []PeerID) []byte {
	w := NewWriterWithOpcode(OpWelcome)
	w.WriteDU(uint32(self))
	w.WriteC(byte(len(peers)))
	for _, p := range peers {
		w.WriteDU(uint32(p))
	}
	return w.Bytes()
}

func DecodeWelcome(b []byte) (PeerID, []PeerID, error) {
	r := NewReader(b)
	if r.Opcode() != OpWelcome {
		return 0, nil, fmt.Errorf("decode welcome: opcode 0x%02X", r.Opcode())
	}
	self := PeerID(r.ReadDU())
	n := int(r.ReadC())
	peers := make([]PeerID, 0, n)
	for i := 0; i < n; i++ {
		peers = append(peers, PeerID(r.ReadDU()))
	}
	if r.Err() != nil {
		return 0, nil, fmt.Errorf("decode welcome: %w", r.Err())
	}
	return self, peers, nil
}

// EncodePeer builds a PeerJoined or PeerLeft frame.
func EncodePeer(op byte, id PeerID) []byte {
	w := NewWriterWithOpcode(op)
	w.WriteDU(uint32(id))
	return w.Bytes()
}

// EncodeData wraps an encoded message for the given peer.
func EncodeData(peer PeerID, msg []byte) []byte {
	w := NewWriterWithOpcode(OpData)
	w.WriteDU(uint32(peer))
	w.WriteBytes(msg)
	return w.Bytes()
}

// DecodeData splits a data frame into its peer id and payload.
func DecodeData(b []byte) (PeerID, []byte, error) {
	r := NewReader(b)
	if r.Opcode() != OpData {
		return 0, nil, fmt.Errorf("decode data: opcode 0x%02X", r.Opcode())
	}
	peer := PeerID(r.ReadDU())
	if r.Err() != nil {
		return 0, nil, fmt.Errorf("decode data: %w", r.Err())
	}
	return peer, r.Rest(), nil
}
