package gpioedge

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

type fakePin struct {
	edges     []bool // sequence of WaitForEdge return values
	level     gpio.Level
	haltCalls int
	inCalls   int
}

func (f *fakePin) In(pull gpio.Pull, edge gpio.Edge) error {
	f.inCalls++
	return nil
}

func (f *fakePin) Read() gpio.Level { return f.level }

func (f *fakePin) WaitForEdge(timeout time.Duration) bool {
	if len(f.edges) == 0 {
		return false
	}
	e := f.edges[0]
	f.edges = f.edges[1:]
	return e
}

func (f *fakePin) Halt() error {
	f.haltCalls++
	return nil
}

func Test_WaitEventTranslatesEdgeAndTimeout(t *testing.T) {
	fp := &fakePin{edges: []bool{true, false}}
	s := &Source{pin: fp, num: 7}

	if got := s.WaitEvent(time.Second); got != Event {
		t.Fatalf("got %v expected Event", got)
	}
	if got := s.WaitEvent(time.Second); got != Timeout {
		t.Fatalf("got %v expected Timeout", got)
	}
}

func Test_ReadEventReturnsPinLevel(t *testing.T) {
	fp := &fakePin{level: gpio.High}
	s := &Source{pin: fp}
	if got := s.ReadEvent(); got != gpio.High {
		t.Fatalf("got %v expected High", got)
	}
}

func Test_CloseIsIdempotent(t *testing.T) {
	fp := &fakePin{}
	s := &Source{pin: fp}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if fp.haltCalls != 1 {
		t.Fatalf("expected exactly 1 Halt call, got %d", fp.haltCalls)
	}
}

func Test_OpenRejectsOutOfRangePin(t *testing.T) {
	if _, err := Open(0, time.Second); err == nil {
		t.Fatalf("expected error for pin 0")
	}
	if _, err := Open(41, time.Second); err == nil {
		t.Fatalf("expected error for pin 41")
	}
}
