package rollback

import (
	"errors"
	"fmt"
)

var (
	// ErrPredictionThreshold means the session is max_prediction frames ahead
	// of the last confirmed frame. Recoverable: skip this tick and poll again.
	ErrPredictionThreshold = errors.New("prediction threshold reached")
	// ErrMismatchedChecksum is returned by a sync test when resimulation
	// produced a different state.
	ErrMismatchedChecksum = errors.New("mismatched checksum")
	// ErrPeerDisconnected is returned once a remote peer has been lost.
	ErrPeerDisconnected = errors.New("peer disconnected")
	// ErrMissingLocalInput means AdvanceFrame was called before every local
	// handle added its input for the frame.
	ErrMissingLocalInput = errors.New("missing local input")
)

// ConfigurationError reports invalid session parameters.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rollback config: %s: %s", e.Field, e.Reason)
}

// TransportError reports player or peer setup that does not match the
// transport.
type TransportError struct {
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rollback transport: %s: %v", e.Reason, e.Err)
	}
	return "rollback transport: " + e.Reason
}

func (e *TransportError) Unwrap() error { return e.Err }
