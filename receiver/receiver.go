// Package receiver owns a GPIO edge source and a radio frontend and
// turns edge transitions into a queue of pulse durations, the way
// tve-devices' sx1231.Radio owns an interrupt pin and a worker
// goroutine feeding an rx channel.
package receiver

import (
	"fmt"
	"sync"
	"time"

	"github.com/tve/hideki/gpioedge"
	"github.com/tve/hideki/pulse"
	"github.com/tve/hideki/radio"
	"github.com/tve/hideki/thread"
)

// State mirrors radio.State: a Receiver is either usable or
// permanently failed.
type State = radio.State

const (
	StateError       = radio.StateError
	StateInitialized = radio.StateInitialized
)

// capturePriority is the realtime scheduling priority requested for the
// capture goroutine: high enough that ordinary goroutines scheduled
// onto the same OS thread pool can't delay an edge timestamp, without
// reaching for the top of the realtime range this process has no
// competing need for.
const capturePriority = 10

// edgeSource is the subset of *gpioedge.Source the capture loop needs;
// narrowed for testability the same way radio.conn narrows spi.Conn.
type edgeSource interface {
	WaitEvent(timeout time.Duration) gpioedge.EventResult
	Close() error
}

// Receiver owns one GPIO data line and its radio frontend, and runs the
// capture goroutine that turns edge transitions into queued pulse
// durations.
type Receiver struct {
	edges edgeSource
	radio radio.Frontend
	queue *pulse.Queue
	log   LogPrintf

	mu      sync.Mutex
	timeout time.Duration
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// LogPrintf matches radio.LogPrintf's shape: every component in this
// tree takes a logging closure instead of an external logger.
type LogPrintf func(format string, v ...interface{})

func noopLog(string, ...interface{}) {}

// New creates a Receiver over an already-opened edge source and radio
// frontend. Neither is started until Start is called.
func New(edges *gpioedge.Source, front radio.Frontend, timeout time.Duration, log LogPrintf) *Receiver {
	if log == nil {
		log = noopLog
	}
	return &Receiver{
		edges:   edges,
		radio:   front,
		queue:   pulse.NewQueue(),
		log:     log,
		timeout: timeout,
	}
}

// Start spawns the capture goroutine and blocks until it signals
// readiness. It is a no-op if already running. The capture goroutine has
// no initialization step that can fail (a refused realtime priority is
// only logged), so Start always returns true; device open failures are
// reported earlier, by gpioedge.Open and radio.Open.
func (r *Receiver) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return true
	}

	ready := make(chan struct{})
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.capture(ready, r.stop, r.done)
	<-ready
	r.running = true
	return true
}

// Stop signals the capture goroutine to exit and waits for it to do so.
// It is a no-op if not running.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	stop, done := r.stop, r.done
	r.running = false
	r.mu.Unlock()

	close(stop)
	<-done
}

// SetTimeout changes the maximum blocking interval of a single edge
// wait. Only permitted while stopped; negative means indefinite.
func (r *Receiver) SetTimeout(timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("receiver: cannot change timeout while running")
	}
	r.timeout = timeout
	return nil
}

// NextPulse performs a non-blocking dequeue from the pulse queue.
func (r *Receiver) NextPulse() (pulse.Pulse, bool) {
	return r.queue.TryPop()
}

// RSSI delegates to the radio frontend.
func (r *Receiver) RSSI() float64 {
	return r.radio.RSSI()
}

// State reports the underlying radio frontend's state.
func (r *Receiver) State() State {
	return r.radio.State()
}

// Close stops the capture goroutine if running and releases the GPIO
// edge source. Safe to call from a deferred cleanup.
func (r *Receiver) Close() error {
	r.Stop()
	return r.edges.Close()
}

func (r *Receiver) capture(ready chan<- struct{}, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	r.mu.Lock()
	timeout := r.timeout
	r.mu.Unlock()

	if err := thread.Realtime(capturePriority); err != nil {
		r.log("receiver: cannot make capture goroutine realtime: %s", err)
	}

	close(ready)

	t0 := time.Now()
	for {
		select {
		case <-stop:
			return
		default:
		}

		if r.edges.WaitEvent(timeout) != gpioedge.Event {
			continue
		}
		t1 := time.Now()
		d := t1.Sub(t0)
		t0 = t1

		us := pulse.Pulse(d.Microseconds())
		if us > pulse.MinValid {
			r.queue.Push(us)
		}
	}
}
