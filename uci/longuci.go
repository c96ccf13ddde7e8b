package uci

import (
	"fmt"

	"github.com/ransys/phycore/fec/conv"
	"github.com/ransys/phycore/fec/crc"
)

// EncodeLong encodes payloads above MaxShortUCIBits: CRC-8 attach,
// tail-biting convolutional encode at rate 1/3, then repetition
// rate-match to q bits.
func EncodeLong(bits []byte, q int) ([]byte, error) {
	if len(bits) <= MaxShortUCIBits {
		return nil, fmt.Errorf("uci: long UCI requires more than %d bits, got %d", MaxShortUCIBits, len(bits))
	}
	c, err := crc.New(crc.CRC8)
	if err != nil {
		return nil, err
	}
	attached := c.Attach(bits)
	coded := conv.Encode(attached, true)
	out := make([]byte, q)
	for i := range out {
		out[i] = coded[i%len(coded)]
	}
	return out, nil
}

// DecodeLong dematches q soft bits back to the coded rate (via
// soft-combining wrap positions), tail-biting Viterbi decodes, and
// checks the CRC-8, returning the payload and whether it verified.
func DecodeLong(soft []float64, payloadBits int) ([]byte, bool, error) {
	c, err := crc.New(crc.CRC8)
	if err != nil {
		return nil, false, err
	}
	codedLen := (payloadBits + c.Width()) * 3
	combined := make([]float64, codedLen)
	for i, v := range soft {
		combined[i%codedLen] += v
	}
	soft16 := make([]int16, codedLen)
	for i, v := range combined {
		soft16[i] = clampInt16(v)
	}
	decoded := conv.Decode(soft16, true)
	payload, ok := c.Check(decoded)
	return payload, ok, nil
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
