// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Package gpioedge subscribes to both-edge transitions on a GPIO line and
// exposes them as a blocking wait/read pair, the way tve-devices' radio
// drivers treat their DIO interrupt pins.
package gpioedge

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// MinPin and MaxPin bound the accepted chip-local line offsets.
const (
	MinPin = 1
	MaxPin = 40
)

var hostInit sync.Once
var hostInitErr error

func initHost() error {
	hostInit.Do(func() {
		_, hostInitErr = host.Init()
	})
	return hostInitErr
}

// pin is the subset of gpio.PinIO this package needs. Accepting the
// narrow interface instead of gpio.PinIO itself keeps the dependency
// surface small and lets tests supply a fake without satisfying periph's
// much larger PinIO contract.
type pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
	Halt() error
}

// Source produces a stream of edge-transition events on one GPIO line.
// The zero value is not usable; construct with Open.
type Source struct {
	pin  pin
	num  int
	once sync.Once
}

// Open configures pin for both-edge interrupts and returns a Source. The
// pin number is a chip-local line offset in [MinPin, MaxPin]. Open does
// not use timeout; each WaitEvent call takes its own timeout.
func Open(pinNum int, timeout time.Duration) (*Source, error) {
	if pinNum < MinPin || pinNum > MaxPin {
		return nil, fmt.Errorf("gpioedge: pin %d out of range [%d,%d]", pinNum, MinPin, MaxPin)
	}
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("gpioedge: host init: %w", err)
	}

	p := resolvePin(pinNum)
	if p == nil {
		return nil, fmt.Errorf("gpioedge: pin %d not found", pinNum)
	}
	if err := p.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("gpioedge: configure pin %d: %w", pinNum, err)
	}
	return &Source{pin: p, num: pinNum}, nil
}

// resolvePin looks a chip-local line offset up in the gpioreg registry,
// trying both the bare number and the common "GPIO<n>" naming scheme
// used by periph's Linux host drivers.
func resolvePin(pinNum int) gpio.PinIO {
	if p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pinNum)); p != nil {
		return p
	}
	if p := gpioreg.ByName(fmt.Sprintf("%d", pinNum)); p != nil {
		return p
	}
	return nil
}

// EventResult is the outcome of a WaitEvent call.
type EventResult int

const (
	// Event means an edge transition occurred before the timeout.
	Event EventResult = iota
	// Timeout means no edge arrived before the deadline; not an error.
	Timeout
)

// WaitEvent blocks until an edge transition or the timeout elapses.
// timeout<0 means wait indefinitely, matching periph's own
// WaitForEdge contract.
func (s *Source) WaitEvent(timeout time.Duration) EventResult {
	if s.pin.WaitForEdge(timeout) {
		return Event
	}
	return Timeout
}

// ReadEvent returns the pin's current level, read after the most recent
// edge rather than latched at it. The
// direction of the transition is intentionally not exposed: only the
// interval between consecutive edges matters to callers of this package.
func (s *Source) ReadEvent() gpio.Level {
	return s.pin.Read()
}

// Close releases the pin. It is safe to call multiple times.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pin.Halt()
	})
	return err
}

// Number returns the chip-local line offset this Source was opened on.
func (s *Source) Number() int { return s.num }
