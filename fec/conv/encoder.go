// Package conv implements the rate-1/3, K=7 tail-biting convolutional
// code: encoder, and a Viterbi decoder parameterized over the
// soft-input numeric type.
package conv

import "math/bits"

// Polynomials of the rate-1/3 K=7 code (octal 0o133, 0o171, 0o165).
const (
	K        = 7
	NumTaps  = K
	NumStates = 1 << (K - 1)
	Poly0    = 0o133
	Poly1    = 0o171
	Poly2    = 0o165
)

var polys = [3]uint32{Poly0, Poly1, Poly2}

// Encode runs bits (0/1 values, one per byte) through the rate-1/3
// encoder. If tailBiting is true, the shift register is preloaded with
// the last K-1 input bits so the encoder starts in the state it will
// end in; otherwise it starts from the zero state and 6 zero tail bits
// should already be appended by the caller.
func Encode(input []byte, tailBiting bool) []byte {
	var reg uint32
	if tailBiting && len(input) >= K-1 {
		for _, b := range input[len(input)-(K-1):] {
			reg = (reg << 1) | uint32(b&1)
		}
	}

	out := make([]byte, 0, len(input)*3)
	for _, b := range input {
		reg = ((reg << 1) | uint32(b&1)) & (1<<K - 1)
		for _, p := range polys {
			out = append(out, byte(bits.OnesCount32(reg&p)&1))
		}
	}
	return out
}
