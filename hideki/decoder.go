// Package hideki decodes the Cresta/Hideki biphase-mark OOK protocol:
// it consumes a stream of pulse durations and an RSSI reading, and
// reconstructs checksum-verified sensor frames, the way tve-devices'
// sx1231 and sx1276 packages turn raw radio bytes into JeeLabs packets.
package hideki

import (
	"sync"
	"time"

	"github.com/tve/hideki/pulse"
)

// frameCapacity is the maximum byte length of a decoded frame: a fixed
// preamble byte, at most 12 payload bytes, and two checksum bytes. The
// 5-bit length field can encode up to 31; step resets on any length
// that would not fit.
const frameCapacity = 15

// FrameBuffer holds one frame's worth of reversed, checksum-verified
// bytes: position 0 is the preamble, position 2 encodes the payload
// length, and positions length+1 and length+2 (once byte index reaches
// them) are CRC1 and CRC2.
type FrameBuffer [frameCapacity]byte

// payloadLength reads the length field out of frame[2], as the
// original firmware does, independent of how many bytes have actually
// been committed yet.
func (b FrameBuffer) payloadLength() int {
	return int((b[2] >> 1) & 0x1F)
}

// Frame is a fully checksummed, decoded sensor packet together with the
// RSSI averaged over the duration of its reception.
type Frame struct {
	Buffer FrameBuffer
	RSSI   float64
}

// Length is the number of meaningful bytes in Buffer: the preamble and
// the payload, but neither CRC byte (matching the reference decoder's
// getDecodedData, which returns payload length + 1).
func (f Frame) Length() int {
	return f.Buffer.payloadLength() + 1
}

// LogPrintf matches the logging shape used throughout this tree.
type LogPrintf func(format string, v ...interface{})

func noopLog(string, ...interface{}) {}

// PulseSource is the subset of *receiver.Receiver the decoder needs: a
// non-blocking pulse dequeue and the current RSSI reading. Narrowed for
// the same reason radio.conn and receiver.edgeSource are: it lets tests
// supply a scripted fake with no hardware behind it.
type PulseSource interface {
	NextPulse() (pulse.Pulse, bool)
	RSSI() float64
}

// Decoder runs the bit-assembly and checksum state machine over a
// PulseSource's output and exposes the most recently validated frame.
// It owns no hardware; Start/Stop only control its own goroutine, not
// the PulseSource's lifecycle (the caller starts the Receiver
// separately, mirroring the reference Decoder/Receiver ownership).
type Decoder struct {
	source PulseSource
	log    LogPrintf

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	publishMu sync.RWMutex
	published Frame
	valid     bool

	// working holds the in-progress bit-assembly state, touched only by
	// the decode goroutine; no lock needed.
	working state
}

type state struct {
	buffer  FrameBuffer
	byteIdx int
	count   int
	value   uint16
	halfBit int
	rssi    rssiAccumulator
}

type rssiAccumulator struct {
	sum   float64
	count uint32
}

func (a rssiAccumulator) average() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// New creates a Decoder reading pulses from source. It is not started
// until Start is called.
func New(source PulseSource, log LogPrintf) *Decoder {
	if log == nil {
		log = noopLog
	}
	return &Decoder{source: source, log: log}
}

// Start spawns the decode goroutine and blocks until it signals
// readiness. No-op if already running.
func (d *Decoder) Start() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.running {
		return true
	}

	ready := make(chan struct{})
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.working = state{}
	go d.run(ready, d.stop, d.done)
	<-ready
	d.running = true
	return true
}

// Stop signals the decode goroutine to exit and waits for it. No-op if
// not running.
func (d *Decoder) Stop() {
	d.runMu.Lock()
	if !d.running {
		d.runMu.Unlock()
		return
	}
	stop, done := d.stop, d.done
	d.running = false
	d.runMu.Unlock()

	close(stop)
	<-done
}

// Fetch copies out the most recently published frame, if any, and
// clears the valid flag. It returns the frame, its Length (matching the
// reference decoder's "payload length + 1"), and whether a frame was
// actually available.
func (d *Decoder) Fetch() (Frame, int, bool) {
	d.publishMu.Lock()
	defer d.publishMu.Unlock()
	if !d.valid {
		return Frame{}, 0, false
	}
	f := d.published
	d.valid = false
	d.published = Frame{}
	return f, f.Length(), true
}

func (d *Decoder) run(ready chan<- struct{}, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	close(ready)

	for {
		select {
		case <-stop:
			return
		default:
		}

		p, ok := d.source.NextPulse()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		d.step(p)
	}
}

// step advances the bit-assembly state machine by one pulse, following
// the reference decoder's per-pulse structure: classify, accumulate
// bits, and on a full 9-bit commit, validate and possibly publish.
func (d *Decoder) step(p pulse.Pulse) {
	s := &d.working
	reset := true

	switch classify(p) {
	case kindLong:
		s.value = (s.value | 1) << 1
		s.count++
		s.halfBit = 0
		reset = false
	case kindShort:
		if s.halfBit == 1 {
			s.value = s.value << 1
			s.count++
		}
		s.halfBit ^= 1
		reset = false
	}

	length := frameCapacity + 1
	if s.byteIdx > 2 && !reset {
		length = s.buffer.payloadLength()
		// A committed frame needs preamble + length payload bytes + CRC1
		// + CRC2, i.e. length+3 bytes; anything that wouldn't fit
		// resets here, before byteIdx ever reaches the CRC bytes below.
		if length > frameCapacity-3 {
			reset = true
		}
	}

	// The final byte carries no parity bit on the wire; synthesize one
	// so the same 9-bit commit path below applies uniformly.
	if s.byteIdx == length+2 && s.count == 8 && !reset {
		s.count++
		parityBit := uint16(popcount16(s.value) % 2)
		s.value = (s.value << 1) | parityBit
	}

	if s.count == 9 && !reset {
		s.value >>= 1
		if oddParityOK(s.value) {
			b := reverseByte(byte((s.value >> 1) & 0xFF))
			s.buffer[s.byteIdx] = b

			if s.byteIdx == 0 && b != 0x9F {
				reset = true
			} else {
				s.byteIdx++
				s.rssi.sum += d.source.RSSI()
				s.rssi.count++
			}

			if s.byteIdx > 2 && !reset {
				length = s.buffer.payloadLength()
				if length > frameCapacity-3 {
					reset = true
				}
			}

			if s.byteIdx > length+1 && !reset {
				if crc1(s.buffer[:], length) != s.buffer[length+1] {
					reset = true
				}
			}

			if s.byteIdx > length+2 && !reset {
				if crc2(s.buffer[:], length) == s.buffer[length+2] {
					d.publish(s.buffer, s.rssi)
				} else {
					d.log("hideki: CRC2 mismatch, discarding frame")
				}
				reset = true
			}
		} else {
			reset = true
		}
		s.count = 0
		s.value = 0
		s.halfBit = 0
	}

	if reset {
		s.buffer = FrameBuffer{}
		s.byteIdx = 0
		s.count = 0
		s.value = 0
		s.halfBit = 0
		s.rssi = rssiAccumulator{}
	}
}

func (d *Decoder) publish(buf FrameBuffer, rssi rssiAccumulator) {
	d.publishMu.Lock()
	defer d.publishMu.Unlock()
	d.published = Frame{Buffer: buf, RSSI: rssi.average()}
	d.valid = true
}
