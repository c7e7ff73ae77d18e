package receiver

import (
	"sync"
	"testing"
	"time"

	"github.com/tve/hideki/gpioedge"
	"github.com/tve/hideki/pulse"
	"github.com/tve/hideki/radio"
)

// fakeEdges delivers a scripted burst of edge events, spaced by the
// requested sleep durations, then blocks until stopped so WaitEvent
// keeps getting called (and observes the test's cleanup).
type fakeEdges struct {
	mu        sync.Mutex
	sleeps    []time.Duration
	i         int
	closeCall int
}

func (f *fakeEdges) WaitEvent(timeout time.Duration) gpioedge.EventResult {
	f.mu.Lock()
	if f.i >= len(f.sleeps) {
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return gpioedge.Timeout
	}
	d := f.sleeps[f.i]
	f.i++
	f.mu.Unlock()
	time.Sleep(d)
	return gpioedge.Event
}

func (f *fakeEdges) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCall++
	return nil
}

type fakeFrontend struct{ rssi float64 }

func (f fakeFrontend) RSSI() float64      { return f.rssi }
func (f fakeFrontend) State() radio.State { return radio.StateInitialized }

func Test_StartStopIdempotent(t *testing.T) {
	fe := &fakeEdges{}
	r := &Receiver{edges: fe, radio: fakeFrontend{}, queue: pulse.NewQueue(), log: noopLog, timeout: time.Millisecond}
	if !r.Start() {
		t.Fatalf("expected Start to succeed")
	}
	if !r.Start() {
		t.Fatalf("second Start should also report live")
	}
	r.Stop()
	r.Stop() // idempotent, must not hang or panic
}

func Test_CaptureFiltersGlitchesAndEnqueuesPulses(t *testing.T) {
	fe := &fakeEdges{sleeps: []time.Duration{
		5 * time.Microsecond,   // glitch, <=20us, dropped
		200 * time.Microsecond, // real pulse
		800 * time.Microsecond, // real pulse
	}}
	r := &Receiver{edges: fe, radio: fakeFrontend{}, queue: pulse.NewQueue(), log: noopLog, timeout: time.Millisecond}
	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	var got []int
	for len(got) < 2 && time.Now().Before(deadline) {
		if p, ok := r.NextPulse(); ok {
			got = append(got, int(p))
		} else {
			time.Sleep(time.Millisecond)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pulses, got %v", got)
	}
}

func Test_SetTimeoutRejectedWhileRunning(t *testing.T) {
	fe := &fakeEdges{}
	r := &Receiver{edges: fe, radio: fakeFrontend{}, queue: pulse.NewQueue(), log: noopLog, timeout: time.Millisecond}
	r.Start()
	defer r.Stop()
	if err := r.SetTimeout(time.Second); err == nil {
		t.Fatalf("expected error setting timeout while running")
	}
}

func Test_RSSIDelegatesToFrontend(t *testing.T) {
	fe := &fakeEdges{}
	r := &Receiver{edges: fe, radio: fakeFrontend{rssi: -42}, queue: pulse.NewQueue(), log: noopLog}
	if got := r.RSSI(); got != -42 {
		t.Fatalf("got %v want -42", got)
	}
}
