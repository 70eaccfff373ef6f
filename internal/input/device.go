package input

import "github.com/mageling/arena/internal/geom"

// Key is a keyboard key the sampler cares about.
type Key uint8

const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeyUp
	KeyLeft
	KeyDown
	KeyRight
	KeySpace
	KeyShift
	KeyF
	Key1
	Key2
	Key3
	Key4
)

// KeySet is a bitset of keys.
type KeySet uint32

func Keys(keys ...Key) KeySet {
	var s KeySet
	for _, k := range keys {
		s |= 1 << k
	}
	return s
}

func (s KeySet) Has(k Key) bool { return s&(1<<k) != 0 }

// AnyOf reports whether any of the given keys is in the set.
func (s KeySet) AnyOf(keys ...Key) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// MouseButton is a mouse button the sampler cares about.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
)

type MouseSet uint8

func Buttons(buttons ...MouseButton) MouseSet {
	var s MouseSet
	for _, b := range buttons {
		s |= 1 << b
	}
	return s
}

func (s MouseSet) Has(b MouseButton) bool { return s&(1<<b) != 0 }

// DeviceState is a raw snapshot of the local input devices for one frame.
type DeviceState struct {
	Held        KeySet
	JustPressed KeySet
	Mouse       MouseSet
	Cursor      geom.Vec2
}

// Device produces raw device state for the local player. Implementations
// live outside the simulation: a window layer, a script, a test fixture.
type Device interface {
	Poll(frame int) DeviceState
}

// DeviceFunc adapts a function to Device.
type DeviceFunc func(frame int) DeviceState

func (f DeviceFunc) Poll(frame int) DeviceState { return f(frame) }

// Idle is a Device that never presses anything.
var Idle Device = DeviceFunc(func(int) DeviceState { return DeviceState{} })
