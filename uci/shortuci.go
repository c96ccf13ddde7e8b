// Package uci implements uplink control information encoding, PUSCH
// multiplexing, and CSI quantization.
package uci

import "fmt"

// MaxShortUCIBits is the largest payload the (32, O) basis code path
// handles; above this, long-UCI encoding applies.
const MaxShortUCIBits = 11

// basisCode is a fixed 32x11 generator: row i gives the 32 output bits
// (as 0/1) contributed by input bit i. This follows the standard
// Reed-Muller-derived (32, O) block code 3GPP control channels use for
// short UCI, expressed directly as a basis-vector table rather than
// the RM(2,5) generator polynomial, since encoding is a pure bit-XOR
// matrix multiply either way.
var basisCode = [MaxShortUCIBits][32]byte{
	{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 0, 0, 1, 1, 0, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	{1, 1, 1, 0, 0, 0, 0, 0, 0, 1, 1, 1, 0, 0, 1, 1, 0, 1, 0, 1, 0, 0, 1, 1, 0, 0, 0, 0, 1, 1, 1, 1},
	{1, 0, 0, 1, 0, 0, 1, 0, 1, 1, 1, 0, 0, 1, 1, 0, 0, 0, 1, 0, 0, 1, 1, 0, 1, 1, 0, 1, 0, 1, 1, 1},
	{1, 0, 1, 1, 0, 0, 0, 1, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0, 1, 1, 0, 1, 0, 1, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 0, 0, 1, 1, 0, 0, 0, 0, 0, 1, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 1, 0, 1},
	{1, 1, 0, 1, 1, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 1, 0, 0, 1, 0, 1},
	{1, 0, 1, 1, 1, 0, 1, 0, 0, 1, 1, 0, 0, 1, 1, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 1, 0, 0, 1, 0, 1, 1},
	{1, 0, 1, 0, 1, 0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1, 0, 1, 0, 0, 1, 0, 1, 1, 1, 0, 1, 0, 1, 1, 0},
	{1, 1, 0, 1, 0, 1, 0, 1, 1, 1, 0, 1, 0, 1, 1, 0, 1, 1, 0, 0, 1, 1, 0, 1, 0, 0, 1, 1, 0, 1, 0, 1},
	{1, 0, 0, 1, 1, 1, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0, 1, 1, 0, 1, 0, 0, 1, 1},
	{1, 1, 1, 0, 1, 1, 0, 1, 0, 0, 0, 1, 0, 1, 1, 1, 1, 0, 0, 1, 1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0, 1},
}

// EncodeShort encodes up to MaxShortUCIBits input bits via matrix
// multiplication against the fixed (32, O) basis code, then circularly
// repeats the 32-bit codeword out to length q.
func EncodeShort(bits []byte, q int) ([]byte, error) {
	o := len(bits)
	if o == 0 || o > MaxShortUCIBits {
		return nil, fmt.Errorf("uci: short UCI payload must be in [1,%d], got %d", MaxShortUCIBits, o)
	}
	var codeword [32]byte
	for col := 0; col < 32; col++ {
		var acc byte
		for row := 0; row < o; row++ {
			if bits[row] == 1 {
				acc ^= basisCode[row][col]
			}
		}
		codeword[col] = acc
	}
	out := make([]byte, q)
	for i := range out {
		out[i] = codeword[i%32]
	}
	return out, nil
}

// DecodeShort maximum-likelihood decodes o short-UCI bits from soft
// values (positive favoring bit 0): the q received LLRs are first
// soft-combined back onto the 32 codeword positions, then correlated
// against every one of the 2^o candidate codewords, picking the
// argmax. With o <= 11 the candidate space is at most 2048 words of 32
// bits, small enough that exhaustive correlation is the straight-line
// answer.
func DecodeShort(soft []float64, o int) ([]byte, error) {
	if o <= 0 || o > MaxShortUCIBits {
		return nil, fmt.Errorf("uci: short UCI payload must be in [1,%d], got %d", MaxShortUCIBits, o)
	}
	if len(soft) == 0 {
		return nil, fmt.Errorf("uci: no soft bits to decode")
	}

	var combined [32]float64
	for i, v := range soft {
		combined[i%32] += v
	}

	bestMetric := 0.0
	bestWord := 0
	for word := 0; word < 1<<o; word++ {
		var codeword [32]byte
		for row := 0; row < o; row++ {
			if (word>>(o-1-row))&1 == 1 {
				for col := 0; col < 32; col++ {
					codeword[col] ^= basisCode[row][col]
				}
			}
		}
		metric := 0.0
		for col := 0; col < 32; col++ {
			if codeword[col] == 0 {
				metric += combined[col]
			} else {
				metric -= combined[col]
			}
		}
		if word == 0 || metric > bestMetric {
			bestMetric = metric
			bestWord = word
		}
	}

	out := make([]byte, o)
	for row := 0; row < o; row++ {
		out[row] = byte((bestWord >> (o - 1 - row)) & 1)
	}
	return out, nil
}
