package ecs

import "sort"

// Registry knows every component store of a world, so destroying an entity
// drops all of its components at once.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(store Removable) { r.stores = append(r.stores, store) }

// Stores is the number of registered stores.
func (r *Registry) Stores() int { return len(r.stores) }

// Purge removes ids from every store. The ids are sorted and deduplicated in
// place first; the result is the order the caller frees them in, which keeps
// the pool's free list identical on every peer.
func (r *Registry) Purge(ids []EntityID) []EntityID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for _, id := range ids {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	for _, s := range r.stores {
		for _, id := range out {
			s.Remove(id)
		}
	}
	return out
}
