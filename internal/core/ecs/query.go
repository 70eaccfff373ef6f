package ecs

// Each2 iterates, in ascending id order, over entities that have both
// component A and B.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	for _, id := range sa.SortedIDs() {
		if b, ok := sb.data[id]; ok {
			fn(id, sa.data[id], b)
		}
	}
}

// Each3 iterates, in ascending id order, over entities that have components
// A, B, and C.
func Each3[A, B, C any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], sc *PtrComponentStore[C], fn func(EntityID, *A, *B, *C)) {
	for _, id := range sa.SortedIDs() {
		b, ok := sb.data[id]
		if !ok {
			continue
		}
		if c, ok := sc.data[id]; ok {
			fn(id, sa.data[id], b, c)
		}
	}
}
