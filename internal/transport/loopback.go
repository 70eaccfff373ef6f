package transport

import "sync"

// Hub connects in-process endpoints. Delivery is reliable and ordered per
// sender; a paused endpoint holds its inbound messages until resumed.
type Hub struct {
	mu        sync.Mutex
	endpoints map[PeerID]*Endpoint
}

func NewHub() *Hub {
	return &Hub{endpoints: make(map[PeerID]*Endpoint)}
}

// Endpoint is one peer's view of a Hub. It implements Transport.
type Endpoint struct {
	hub   *Hub
	id    PeerID
	peers map[PeerID]struct{}

	accepted     []PeerID
	disconnected []PeerID
	inbox        []Envelope
	held         []Envelope
	paused       bool
	closed       bool
}

// Join adds an endpoint. Existing endpoints see it through
// AcceptNewConnections, and it sees every existing endpoint the same way.
func (h *Hub) Join(id PeerID) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := &Endpoint{hub: h, id: id, peers: map[PeerID]struct{}{id: {}}}
	for other, oe := range h.endpoints {
		oe.peers[id] = struct{}{}
		oe.accepted = append(oe.accepted, id)
		e.peers[other] = struct{}{}
		e.accepted = append(e.accepted, other)
	}
	sortPeers(e.accepted)
	h.endpoints[id] = e
	return e
}

func (e *Endpoint) LocalID() PeerID { return e.id }

func (e *Endpoint) AcceptNewConnections() []PeerID {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	out := e.accepted
	e.accepted = nil
	return out
}

func (e *Endpoint) Peers() []PeerID {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	out := make([]PeerID, 0, len(e.peers))
	for id := range e.peers {
		out = append(out, id)
	}
	return sortPeers(out)
}

func (e *Endpoint) Send(to PeerID, m Message) error {
	h := e.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	target, ok := h.endpoints[to]
	if !ok || to == e.id {
		return ErrUnknownPeer
	}
	env := Envelope{From: e.id, Msg: m}
	if target.paused {
		target.held = append(target.held, env)
	} else {
		target.inbox = append(target.inbox, env)
	}
	return nil
}

func (e *Endpoint) Receive() []Envelope {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	out := e.inbox
	e.inbox = nil
	return out
}

func (e *Endpoint) Disconnected() []PeerID {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	out := e.disconnected
	e.disconnected = nil
	return out
}

// Pause holds messages addressed to this endpoint, simulating a stalled
// link.
func (e *Endpoint) Pause() {
	e.hub.mu.Lock()
	e.paused = true
	e.hub.mu.Unlock()
}

// Resume delivers everything held since Pause, in order.
func (e *Endpoint) Resume() {
	e.hub.mu.Lock()
	e.paused = false
	e.inbox = append(e.inbox, e.held...)
	e.held = nil
	e.hub.mu.Unlock()
}

// Close leaves the hub. Every other endpoint reports this one disconnected.
func (e *Endpoint) Close() error {
	h := e.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	delete(h.endpoints, e.id)
	for _, oe := range h.endpoints {
		delete(oe.peers, e.id)
		oe.disconnected = append(oe.disconnected, e.id)
	}
	return nil
}
