// Package transport moves rollback messages between peers. Implementations
// do their I/O on their own goroutines and only append to queues that the
// simulation goroutine drains.
package transport

import (
	"errors"
	"fmt"
	"sort"
)

// PeerID names a connected peer. Every peer sees the same ids.
type PeerID uint32

func (p PeerID) String() string { return fmt.Sprintf("peer-%d", uint32(p)) }

// Envelope is a received message and its sender.
type Envelope struct {
	From PeerID
	Msg  Message
}

var (
	ErrUnknownPeer = errors.New("unknown peer")
	ErrClosed      = errors.New("transport closed")
)

// Transport is a reliable, ordered message channel to every other peer.
type Transport interface {
	LocalID() PeerID
	// AcceptNewConnections drains peers that connected since the last call.
	AcceptNewConnections() []PeerID
	// Peers lists every connected peer, local included, sorted by id.
	Peers() []PeerID
	Send(to PeerID, m Message) error
	// Receive drains every message received since the last call, in arrival
	// order.
	Receive() []Envelope
	// Disconnected drains peers lost since the last call.
	Disconnected() []PeerID
	Close() error
}

func sortPeers(ids []PeerID) []PeerID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
