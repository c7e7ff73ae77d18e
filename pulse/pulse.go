// Package pulse holds the edge-interval type shared between the capture
// and decode stages and a small single-producer/single-consumer queue
// for moving them between the two.
package pulse

// Pulse is the duration between two consecutive edge transitions on the
// data line, in microseconds. Values at or below 20µs are glitches and
// are never enqueued by the capture side.
type Pulse uint32

// MinValid is the shortest interval the capture side will enqueue;
// anything at or below this is treated as contact-bounce noise.
const MinValid Pulse = 20

// queueCapacity is generous rather than tight: the decode side drains at
// roughly 1kHz worst case (one sleep per empty poll) while pulses arrive
// at up to a few kHz, so a few hundred slots absorb scheduling jitter
// without ever blocking the capture goroutine.
const queueCapacity = 256

// Queue is a FIFO of Pulse values with a single producer (the capture
// goroutine) and a single consumer (the decode goroutine). Push never
// blocks the caller for long: the channel is sized generously and a full
// queue indicates the consumer has stalled, in which case the oldest
// pending pulse is dropped to make room rather than stalling capture.
type Queue struct {
	ch chan Pulse
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{ch: make(chan Pulse, queueCapacity)}
}

// Push enqueues d. If the queue is full, the oldest entry is discarded
// first so the producer never blocks on a stalled consumer.
func (q *Queue) Push(d Pulse) {
	for {
		select {
		case q.ch <- d:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// TryPop removes and returns the oldest Pulse, if any. ok is false if the
// queue was empty.
func (q *Queue) TryPop() (d Pulse, ok bool) {
	select {
	case d = <-q.ch:
		return d, true
	default:
		return 0, false
	}
}

// Len reports the number of pulses currently queued. It is intended for
// diagnostics/tests, not for control flow.
func (q *Queue) Len() int {
	return len(q.ch)
}
