package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during loop iteration N
// are delivered in iteration N+1, in the order they were emitted, regardless
// of type. The session calls SwapBuffers and DispatchAll at the top of every
// iteration. Only confirmed-frame events are emitted here; nothing on the
// bus is ever rolled back.
type Bus struct {
	front []queued
	back  []queued

	mu       sync.Mutex // guards handlers only
	handlers map[reflect.Type][]reflect.Value
}

type queued struct {
	t  reflect.Type
	ev any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]reflect.Value)}
}

func typeKey[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, queued{t: typeKey[T](), ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeKey[T]()
	b.handlers[t] = append(b.handlers[t], reflect.ValueOf(fn))
}

// SwapBuffers makes everything emitted since the last swap deliverable and
// starts an empty back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// Pending returns how many events of type T wait in the back buffer.
func Pending[T any](b *Bus) int {
	t := typeKey[T]()
	n := 0
	for _, q := range b.back {
		if q.t == t {
			n++
		}
	}
	return n
}

// DispatchAll delivers the front buffer once. Events emitted by handlers go
// to the back buffer and wait for the next swap.
func (b *Bus) DispatchAll() {
	front := b.front
	b.front = b.front[:0]
	for _, q := range front {
		b.mu.Lock()
		handlers := b.handlers[q.t]
		b.mu.Unlock()
		if len(handlers) == 0 {
			continue
		}
		arg := []reflect.Value{reflect.ValueOf(q.ev)}
		for _, h := range handlers {
			h.Call(arg)
		}
	}
}
