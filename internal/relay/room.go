package relay

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/mageling/arena/internal/transport"
)

const maxRoomName = 64

var fold = cases.Fold()

// CanonicalRoom normalises a room name so visually equal names from
// different keyboards and locales meet in the same room.
func CanonicalRoom(name string) (string, error) {
	name = strings.TrimSpace(norm.NFKC.String(name))
	name = fold.String(name)
	if name == "" {
		return "", fmt.Errorf("room name is empty")
	}
	if len([]rune(name)) > maxRoomName {
		return "", fmt.Errorf("room name longer than %d characters", maxRoomName)
	}
	for _, r := range name {
		if r == '/' || unicode.IsControl(r) {
			return "", fmt.Errorf("room name contains %q", r)
		}
	}
	return name, nil
}

// room is one group of up to size peers. Once full it is sealed: later
// joiners with the same key start a new room.
type room struct {
	key     string
	seq     uint64
	size    int
	nextID  transport.PeerID
	clients map[transport.PeerID]*client
	sealed  bool
}

func newRoom(key string, seq uint64, size int) *room {
	return &room{key: key, seq: seq, size: size, nextID: 1, clients: make(map[transport.PeerID]*client)}
}

func (r *room) ids() []transport.PeerID {
	out := make([]transport.PeerID, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
