package rollback

import (
	"fmt"

	"github.com/mageling/arena/internal/input"
)

// QueueLength is how many frames of input each handle keeps.
const QueueLength = 128

type queued struct {
	frame  int
	packet input.Packet
}

// InputQueue holds one handle's inputs. Real inputs arrive contiguously;
// frames past the last real input are predicted by repeating it. Every
// prediction handed out is remembered so a later real input that differs can
// be reported as the first incorrect frame.
type InputQueue struct {
	inputs      [QueueLength]queued
	predictions [QueueLength]queued
	predicted   [QueueLength]bool

	last           int // last frame with a real input
	firstIncorrect int // -1 when every prediction held
}

// NewInputQueue seeds the first delay frames with blank, confirmed input.
func NewInputQueue(delay int) *InputQueue {
	q := &InputQueue{last: -1, firstIncorrect: -1}
	for f := 0; f < delay; f++ {
		q.inputs[f%QueueLength] = queued{frame: f}
		q.last = f
	}
	return q
}

// LastConfirmed returns the last frame with a real input.
func (q *InputQueue) LastConfirmed() int { return q.last }

// Add stores the real input for frame. Frames at or before the last real
// input are duplicates and ignored; a gap is an error.
func (q *InputQueue) Add(frame int, p input.Packet) (bool, error) {
	switch {
	case frame <= q.last:
		return false, nil
	case frame != q.last+1:
		return false, fmt.Errorf("input for frame %d after %d", frame, q.last)
	}
	i := frame % QueueLength
	q.inputs[i] = queued{frame: frame, packet: p}
	q.last = frame
	if q.predicted[i] && q.predictions[i].frame == frame {
		if q.predictions[i].packet != p && (q.firstIncorrect < 0 || frame < q.firstIncorrect) {
			q.firstIncorrect = frame
		}
		q.predicted[i] = false
	}
	return true, nil
}

// Input returns the input for frame and whether it is real.
func (q *InputQueue) Input(frame int) (input.Packet, bool) {
	if frame <= q.last {
		e := q.inputs[frame%QueueLength]
		if e.frame == frame {
			return e.packet, true
		}
		// Older than the queue remembers; only reachable on misuse.
		return input.Packet{}, true
	}
	var guess input.Packet
	if q.last >= 0 {
		guess = q.inputs[q.last%QueueLength].packet
	}
	i := frame % QueueLength
	q.predictions[i] = queued{frame: frame, packet: guess}
	q.predicted[i] = true
	return guess, false
}

// Confirmed returns the real input for frame if the queue still holds it.
func (q *InputQueue) Confirmed(frame int) (input.Packet, bool) {
	if frame < 0 || frame > q.last {
		return input.Packet{}, false
	}
	e := q.inputs[frame%QueueLength]
	return e.packet, e.frame == frame
}

// FirstIncorrect returns the earliest mispredicted frame, or -1.
func (q *InputQueue) FirstIncorrect() int { return q.firstIncorrect }

func (q *InputQueue) ResetPrediction() { q.firstIncorrect = -1 }
