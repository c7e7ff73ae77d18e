package hideki

import "github.com/tve/hideki/pulse"

// pulseKind is the biphase-mark symbol a raw pulse duration decodes to.
type pulseKind int

const (
	kindInvalid pulseKind = iota
	kindShort             // half of a bit-pair encoding a 0
	kindLong              // a single pulse encoding a 1
)

// Timing boundaries in microseconds, measured from the reference decoder:
// a short pulse is one half-bit, a long pulse is one full bit, and
// anything past twice that is noise.
const (
	lowTime  = 183
	midTime  = 726
	highTime = 1464
)

// classify buckets a pulse duration into a short half-bit, a long
// full-bit, or invalid. Durations already below pulse.MinValid have been
// filtered out as glitches before reaching the decoder.
func classify(p pulse.Pulse) pulseKind {
	switch {
	case p < lowTime:
		return kindInvalid
	case p < midTime:
		return kindShort
	case p < highTime:
		return kindLong
	default:
		return kindInvalid
	}
}
