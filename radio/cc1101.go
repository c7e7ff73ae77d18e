// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package radio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/tve/hideki/spimux"
)

// LogPrintf is a logging hook, following the same shape every device
// driver in this tree uses instead of pulling in a logging package: a
// plain func field that defaults to a no-op.
type LogPrintf func(format string, v ...interface{})

func noopLog(string, ...interface{}) {}

// conn is the subset of spi.Conn this driver needs. Every register
// transfer is a single full-duplex exchange, so Tx is all that's
// required; tests can supply a fake without implementing the rest of
// periph's spi.Conn surface.
type conn interface {
	Tx(w, r []byte) error
}

// Opts configures a CC1101 frontend.
type Opts struct {
	// Interrupt selects which GDO pin carries the data output: 0 (the
	// default) uses GDO0, 2 swaps IOCFG0/IOCFG2 so GDO2 carries it.
	Interrupt int
	Logger    LogPrintf
}

// CC1101 drives a Texas Instruments CC1101 sub-GHz transceiver over SPI
// and keeps it parked in receive mode, providing RSSI on demand.
type CC1101 struct {
	mu     sync.Mutex
	spi    spi.PortCloser
	conn   conn
	closed bool
	log    LogPrintf

	// settleDelay is the crystal-stabilization sleep after reset;
	// overridable so tests don't pay the real 1.1s.
	settleDelay time.Duration
}

const defaultSettleDelay = 1100 * time.Millisecond

var _ Frontend = (*CC1101)(nil)

// Open opens the given SPI bus name (empty string selects the first
// available bus, matching spireg's own convention), resets the chip,
// writes its register configuration, and switches it into receive mode.
// Any SPI failure along the way aborts initialization and returns an
// error; the caller must treat the Receiver as ERROR in that case.
func Open(busName string, opts Opts) (*CC1101, error) {
	log := opts.Logger
	if log == nil {
		log = noopLog
	}

	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("cc1101: open SPI bus: %w", err)
	}
	c, err := port.Connect(500*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("cc1101: configure SPI: %w", err)
	}

	r := &CC1101{spi: port, conn: c, log: log, settleDelay: defaultSettleDelay}
	if err := r.init(opts.Interrupt); err != nil {
		port.Close()
		return nil, err
	}
	return r, nil
}

// OpenShared initializes two CC1101s that share a single SPI bus behind
// a spimux-style CS demultiplexer, e.g. two receivers on different
// channels with only one chip-select line wired. The underlying port is
// closed when either returned CC1101 is closed.
func OpenShared(busName string, selPin gpio.PinIO, optsA, optsB Opts) (a, b *CC1101, err error) {
	port, err := spireg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("cc1101: open SPI bus: %w", err)
	}

	connA, connB := spimux.New(port, selPin)

	a, err = newShared(port, connA, optsA)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	b, err = newShared(port, connB, optsB)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

func newShared(port spi.PortCloser, mux *spimux.Conn, opts Opts) (*CC1101, error) {
	log := opts.Logger
	if log == nil {
		log = noopLog
	}
	c, err := mux.Connect(500*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("cc1101: configure shared SPI: %w", err)
	}
	r := &CC1101{spi: port, conn: c, log: log, settleDelay: defaultSettleDelay}
	if err := r.init(opts.Interrupt); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CC1101) init(interrupt int) error {
	// Reset strobe.
	if err := r.strobe(regSRES); err != nil {
		return fmt.Errorf("cc1101: reset: %w", err)
	}
	// Crystal stabilization.
	time.Sleep(r.settleDelay)

	block := configBlock
	if interrupt == 2 {
		block[0] = 0x0D // IOCFG2
		block[2] = 0x2E // IOCFG0
	}
	if err := r.writeBurstAt(regIOCFG2, block[:]); err != nil {
		return fmt.Errorf("cc1101: write config: %w", err)
	}
	if err := r.writeBurstAt(regPATABLE, patable[:]); err != nil {
		return fmt.Errorf("cc1101: write PATABLE: %w", err)
	}
	if err := r.strobe(regSRX); err != nil {
		return fmt.Errorf("cc1101: RX strobe: %w", err)
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for {
		code, err := r.readBurst(regMARCSTATE, 1)
		if err != nil {
			return fmt.Errorf("cc1101: read state: %w", err)
		}
		if code[0]&0x1F == marcStateRX {
			r.log("cc1101: in RX state")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("cc1101: timed out entering RX state, last code %#02x", code[0]&0x1F)
		}
		time.Sleep(time.Millisecond)
	}
}

// RSSI reads the instantaneous received-signal-strength indicator in
// dBm. A transfer failure is not fatal to the frontend: it is logged
// and a sentinel (the largest finite float64) is returned so the
// decoder's running RSSI average is not silently corrupted by a
// plausible-looking wrong value.
func (r *CC1101) RSSI() float64 {
	v, err := r.readBurst(regSRX, 1)
	if err != nil {
		r.log("cc1101: RSSI read failed: %s", err)
		return sentinelRSSI
	}
	return 0.5*float64(int8(v[0])) - 74.0
}

// sentinelRSSI is returned by RSSI on a transient SPI failure, per the
// TransferError contract: runtime reads degrade rather than abort.
const sentinelRSSI = math.MaxFloat64

// StateCode returns the low 5 bits of the MARCSTATE register, 0x0D
// meaning the chip is in RX state.
func (r *CC1101) StateCode() (byte, error) {
	v, err := r.readBurst(regMARCSTATE, 1)
	if err != nil {
		return 0, err
	}
	return v[0] & 0x1F, nil
}

// State reports INITIALIZED so long as the SPI handle is open, ERROR
// after Close.
func (r *CC1101) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StateError
	}
	return StateInitialized
}

// Close releases the underlying SPI port. Safe to call once; a second
// call returns the port's own idempotency behavior.
func (r *CC1101) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.spi.Close()
}

func (r *CC1101) strobe(reg byte) error {
	w := []byte{reg | writeSingle}
	return r.conn.Tx(w, make([]byte, len(w)))
}

func (r *CC1101) writeBurstAt(reg byte, data []byte) error {
	w := make([]byte, len(data)+1)
	w[0] = reg | writeBurst
	copy(w[1:], data)
	return r.conn.Tx(w, make([]byte, len(w)))
}

func (r *CC1101) readBurst(reg byte, n int) ([]byte, error) {
	w := make([]byte, n+1)
	w[0] = reg | readBurst
	out := make([]byte, len(w))
	if err := r.conn.Tx(w, out); err != nil {
		return nil, err
	}
	return out[1:], nil
}
