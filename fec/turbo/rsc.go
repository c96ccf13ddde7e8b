// Package turbo implements the 3GPP parallel-concatenated convolutional
// (turbo) code: two 8-state recursive systematic
// convolutional (RSC) encoders separated by an interleaver, and an
// iterative max-log-MAP decoder with CRC-based early termination.
package turbo

// Memory-3 RSC constituent code, generator polynomials (1, g1/g0) with
// g0 = 1011 (feedback, octal 13) and g1 = 1101 (feedforward, octal 15),
// the 3GPP-style turbo constituent encoder.
const (
	Memory    = 3
	NumStates = 1 << Memory
	g0        = 0b1011
	g1        = 0b1101
)

// rscStep advances the encoder by one systematic bit, returning the
// systematic output (the input bit itself), the parity bit, and the
// next state.
func rscStep(state uint32, bit uint32) (sysOut, parityOut uint32, nextState uint32) {
	// Feedback bit per g0 (exclude the direct input tap, matching a
	// recursive encoder's XOR-feedback structure).
	fb := bit ^ parityFromTaps(state, g0>>1)
	reg := (state << 1) | fb
	sysOut = bit
	parityOut = parityFromTaps(reg, g1)
	nextState = reg & (NumStates - 1)
	return
}

func parityFromTaps(reg uint32, taps uint32) uint32 {
	v := reg & taps
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}

// RSCEncode runs one RSC encoder over input (0/1 per byte) from the
// zero state, returning the systematic and parity bit streams plus the
// final state (used to compute the trellis-termination tail bits).
func RSCEncode(input []byte) (sys, parity []byte, finalState uint32) {
	sys = make([]byte, len(input))
	parity = make([]byte, len(input))
	var state uint32
	for i, b := range input {
		s, p, ns := rscStep(state, uint32(b&1))
		sys[i] = byte(s)
		parity[i] = byte(p)
		state = ns
	}
	return sys, parity, state
}

// TerminationTail returns the Memory tail bits that drive the encoder
// in state back to the all-zero state, along with the resulting
// systematic/parity bits for those tail positions (3GPP trellis
// termination, transmitted after the payload).
func TerminationTail(state uint32) (tailBits []byte, sys []byte, parity []byte) {
	tailBits = make([]byte, Memory)
	sys = make([]byte, Memory)
	parity = make([]byte, Memory)
	for i := 0; i < Memory; i++ {
		fb := parityFromTaps(state, g0>>1)
		tailBits[i] = byte(fb) // drive feedback to zero
		s, p, ns := rscStep(state, fb)
		sys[i] = byte(s)
		parity[i] = byte(p)
		state = ns
	}
	return
}
