package ecs

import "sort"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// DeepCopier is implemented by components that own slices or other
// references. Clone uses it instead of a plain value copy.
type DeepCopier[T any] interface {
	DeepCopy() *T
}

// PtrComponentStore is a generic typed map store for ECS components.
// Map iteration order is random, so every traversal that mutates simulation
// state goes through SortedIDs/EachSorted.
type PtrComponentStore[T any] struct {
	data map[EntityID]*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		data: make(map[EntityID]*T, 16),
	}
}

func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// SortedIDs materializes the store's keys in ascending id order.
func (s *PtrComponentStore[T]) SortedIDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EachSorted visits every component in ascending id order.
func (s *PtrComponentStore[T]) EachSorted(fn func(EntityID, *T)) {
	for _, id := range s.SortedIDs() {
		fn(id, s.data[id])
	}
}

// Clone returns an independent copy of the store. Components implementing
// DeepCopier are deep-copied, everything else is copied by value.
func (s *PtrComponentStore[T]) Clone() *PtrComponentStore[T] {
	out := &PtrComponentStore[T]{data: make(map[EntityID]*T, len(s.data))}
	for id, c := range s.data {
		if d, ok := any(c).(DeepCopier[T]); ok {
			out.data[id] = d.DeepCopy()
			continue
		}
		v := *c
		out.data[id] = &v
	}
	return out
}
