package event

// Lifecycle-level notifications. Simulation events (hits, spawns, round
// results) are defined next to the world that produces them.

type LifecycleChanged struct {
	From string
	To   string
}

type PeerDisconnected struct {
	Peer   string
	Handle int
}

type DesyncDetected struct {
	Frame  int
	Peer   string
	Local  [32]byte
	Remote [32]byte
}

type PredictionStalled struct {
	Frame       int
	FramesAhead int
}
