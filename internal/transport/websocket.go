package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	maxFrameSize = 1 << 16
)

// WebSocket is a relay client. Network I/O runs in dedicated goroutines that
// only append to queues; the simulation goroutine drains them.
type WebSocket struct {
	conn  *websocket.Conn
	local PeerID

	mu           sync.Mutex
	peers        map[PeerID]struct{}
	accepted     []PeerID
	disconnected []PeerID
	inbox        []Envelope

	outQueue  chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

// DialWebSocket connects to a relay room URL and waits for the welcome
// frame that assigns the local id.
func DialWebSocket(ctx context.Context, url string, outSize int, log *zap.Logger) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	conn.SetReadLimit(maxFrameSize)

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	self, existing, err := DecodeWelcome(raw)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if outSize <= 0 {
		outSize = 256
	}

	ws := &WebSocket{
		conn:     conn,
		local:    self,
		peers:    map[PeerID]struct{}{self: {}},
		outQueue: make(chan []byte, outSize),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Stringer("local", self)),
	}
	for _, p := range existing {
		ws.peers[p] = struct{}{}
		ws.accepted = append(ws.accepted, p)
	}
	sortPeers(ws.accepted)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go ws.readLoop()
	go ws.writeLoop()
	ws.log.Info("joined relay room", zap.Int("peers", len(existing)))
	return ws, nil
}

func (ws *WebSocket) LocalID() PeerID { return ws.local }

func (ws *WebSocket) AcceptNewConnections() []PeerID {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := ws.accepted
	ws.accepted = nil
	return out
}

func (ws *WebSocket) Peers() []PeerID {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make([]PeerID, 0, len(ws.peers))
	for id := range ws.peers {
		out = append(out, id)
	}
	return sortPeers(out)
}

// Send queues a message for the writer goroutine. A full queue means the
// link cannot keep up, so the connection is dropped.
func (ws *WebSocket) Send(to PeerID, m Message) error {
	if ws.closed.Load() {
		return ErrClosed
	}
	ws.mu.Lock()
	_, ok := ws.peers[to]
	ws.mu.Unlock()
	if !ok || to == ws.local {
		return ErrUnknownPeer
	}
	select {
	case ws.outQueue <- EncodeData(to, m.Encode()):
		return nil
	default:
		ws.log.Warn("output queue full, closing relay connection")
		ws.Close()
		return ErrClosed
	}
}

func (ws *WebSocket) Receive() []Envelope {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := ws.inbox
	ws.inbox = nil
	return out
}

func (ws *WebSocket) Disconnected() []PeerID {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := ws.disconnected
	ws.disconnected = nil
	return out
}

// Close shuts the connection down. Every remote peer is reported
// disconnected.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		ws.closed.Store(true)
		close(ws.closeCh)
		_ = ws.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = ws.conn.Close()

		ws.mu.Lock()
		for id := range ws.peers {
			if id != ws.local {
				ws.disconnected = append(ws.disconnected, id)
			}
		}
		sortPeers(ws.disconnected)
		ws.peers = map[PeerID]struct{}{ws.local: {}}
		ws.mu.Unlock()
	})
	return err
}

func (ws *WebSocket) readLoop() {
	defer ws.Close()

	for {
		_, raw, err := ws.conn.ReadMessage()
		if err != nil {
			if !ws.closed.Load() {
				ws.log.Debug("relay read error", zap.Error(err))
			}
			return
		}
		if len(raw) == 0 {
			continue
		}
		switch raw[0] {
		case OpPeerJoined, OpPeerLeft:
			r := NewReader(raw)
			id := PeerID(r.ReadDU())
			if r.Err() != nil {
				ws.log.Warn("bad peer frame", zap.Error(r.Err()))
				continue
			}
			ws.mu.Lock()
			if raw[0] == OpPeerJoined {
				ws.peers[id] = struct{}{}
				ws.accepted = append(ws.accepted, id)
			} else if _, ok := ws.peers[id]; ok {
				delete(ws.peers, id)
				ws.disconnected = append(ws.disconnected, id)
			}
			ws.mu.Unlock()
		case OpData:
			from, payload, err := DecodeData(raw)
			if err != nil {
				ws.log.Warn("bad data frame", zap.Error(err))
				continue
			}
			m, err := DecodeMessage(payload)
			if err != nil {
				ws.log.Warn("bad peer message", zap.Stringer("from", from), zap.Error(err))
				continue
			}
			ws.mu.Lock()
			ws.inbox = append(ws.inbox, Envelope{From: from, Msg: m})
			ws.mu.Unlock()
		default:
			ws.log.Debug("unknown relay frame", zap.String("op", fmt.Sprintf("0x%02X", raw[0])))
		}
	}
}

func (ws *WebSocket) writeLoop() {
	defer ws.Close()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-ws.outQueue:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				if !ws.closed.Load() {
					ws.log.Debug("relay write error", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ws.closeCh:
			return
		}
	}
}
