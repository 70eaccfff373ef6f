package ecs

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

// EntityPool hands out generational ids, reusing freed indices last-in
// first-out. The pool is part of the rolled-back state: two peers that
// create and destroy the same entities in the same order get the same ids.
type EntityPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 64),
		freeList:    make([]uint32, 0, 16),
	}
}

func (p *EntityPool) Create() EntityID {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Clone returns an independent copy of the pool. Entity allocation is part of
// the rolled-back state, so snapshots carry the pool with them.
func (p *EntityPool) Clone() *EntityPool {
	out := &EntityPool{
		generations: make([]uint32, len(p.generations), cap(p.generations)),
		freeList:    make([]uint32, len(p.freeList), cap(p.freeList)),
		nextIndex:   p.nextIndex,
	}
	copy(out.generations, p.generations)
	copy(out.freeList, p.freeList)
	return out
}

// Allocated returns the number of indices ever handed out.
func (p *EntityPool) Allocated() uint32 { return p.nextIndex }

// Destroy frees id and reports whether it was alive. Stale ids are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	return true
}
