// Package relay groups peers into rooms and forwards their frames. It never
// looks inside peer messages; simulation and rollback stay on the peers.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mageling/arena/internal/transport"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	maxFrameSize = 1 << 16

	defaultRoomSize = 2
)

// Server accepts WebSocket peers at /{room}?next=N. Peers asking for the
// same room and size share a room until it holds N peers.
type Server struct {
	upgrader websocket.Upgrader
	maxRoom  int
	outSize  int
	log      *zap.Logger

	mu      sync.Mutex
	open    map[string]*room // rooms still waiting for peers, by key and size
	roomSeq uint64
}

func NewServer(maxRoomSize, outSize int, log *zap.Logger) *Server {
	if outSize <= 0 {
		outSize = 256
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Peers are game clients, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		maxRoom: maxRoomSize,
		outSize: outSize,
		log:     log,
		open:    make(map[string]*room),
	}
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: writeWait}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("relay listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay serve: %w", err)
	}
	return nil
}

// OpenRooms is the number of rooms still waiting for peers.
func (s *Server) OpenRooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := CanonicalRoom(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	size := defaultRoomSize
	if v := r.URL.Query().Get("next"); v != "" {
		size, err = strconv.Atoi(v)
		if err != nil || size < 1 || size > s.maxRoom {
			http.Error(w, fmt.Sprintf("next must be between 1 and %d", s.maxRoom), http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	c := s.join(key, size, conn, r.RemoteAddr)
	go c.writeLoop()
	c.readLoop(s)
}

func (s *Server) join(key string, size int, conn *websocket.Conn, addr string) *client {
	s.mu.Lock()
	defer s.mu.Unlock()

	openKey := key + "?next=" + strconv.Itoa(size)
	rm := s.open[openKey]
	if rm == nil {
		s.roomSeq++
		rm = newRoom(openKey, s.roomSeq, size)
		s.open[openKey] = rm
	}
	id := rm.nextID
	rm.nextID++

	c := newClient(id, rm, conn, s.outSize, s.log.With(
		zap.String("room", rm.key),
		zap.Uint64("room_seq", rm.seq),
		zap.Stringer("peer", id)))
	existing := rm.ids()
	rm.clients[id] = c
	c.enqueue(transport.EncodeWelcome(id, existing))
	joined := transport.EncodePeer(transport.OpPeerJoined, id)
	for _, other := range existing {
		rm.clients[other].enqueue(joined)
	}
	if len(rm.clients) >= rm.size {
		rm.sealed = true
		delete(s.open, openKey)
	}
	c.log.Info("peer joined", zap.String("addr", addr), zap.Int("peers", len(rm.clients)), zap.Bool("full", rm.sealed))
	return c
}

func (s *Server) leave(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm := c.room
	if _, ok := rm.clients[c.id]; !ok {
		return
	}
	delete(rm.clients, c.id)
	left := transport.EncodePeer(transport.OpPeerLeft, c.id)
	for _, id := range rm.ids() {
		rm.clients[id].enqueue(left)
	}
	if len(rm.clients) == 0 && s.open[rm.key] == rm {
		delete(s.open, rm.key)
	}
	c.log.Info("peer left", zap.Int("peers", len(rm.clients)))
}

// forward relays a data frame to the addressed peer in the sender's room.
func (s *Server) forward(from *client, raw []byte) {
	to, payload, err := transport.DecodeData(raw)
	if err != nil {
		from.log.Debug("bad data frame", zap.Error(err))
		return
	}
	s.mu.Lock()
	dst := from.room.clients[to]
	s.mu.Unlock()
	if dst == nil || to == from.id {
		return
	}
	dst.enqueue(transport.EncodeData(from.id, payload))
}

type client struct {
	id   transport.PeerID
	room *room
	conn *websocket.Conn

	send      chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	log *zap.Logger
}

func newClient(id transport.PeerID, rm *room, conn *websocket.Conn, outSize int, log *zap.Logger) *client {
	return &client{
		id:      id,
		room:    rm,
		conn:    conn,
		send:    make(chan []byte, outSize),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

// enqueue never blocks. A peer that cannot keep up is disconnected.
func (c *client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	case <-c.closeCh:
	default:
		c.log.Warn("output queue full, closing peer")
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	})
}

func (c *client) readLoop(s *Server) {
	defer func() {
		s.leave(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		typ, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage || len(raw) == 0 || raw[0] != transport.OpData {
			continue
		}
		s.forward(c, raw)
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
