package phych

import (
	"fmt"

	"github.com/ransys/phycore/fec/conv"
	"github.com/ransys/phycore/fec/crc"
)

// PBCHPayloadBits is the MIB payload size (including the 10 spare/
// SFN-extension bits this core carries alongside the usual fields).
const PBCHPayloadBits = 24

// EncodePBCH attaches a CRC16 (masked by the configured antenna-port
// count, the "cell's port-mask pattern" trial hypotheses decode
// against), tail-biting convolutional encodes at rate 1/3,
// rate-matches to reLen bits, then scrambles the whole 40 ms TTI with
// a cell-seeded sequence. The scrambling spans the full reLen, so each
// quarter of the TTI carries distinct bits — that is what lets the
// decoder tell the four SFN-offset hypotheses apart.
func EncodePBCH(mib []byte, cellID int, portMask uint16, reLen int) ([]byte, error) {
	if len(mib) != PBCHPayloadBits {
		return nil, fmt.Errorf("phych: MIB must be %d bits, got %d", PBCHPayloadBits, len(mib))
	}
	c, err := crc.New(crc.CRC16)
	if err != nil {
		return nil, err
	}
	attached := c.Attach(mib)
	masked := maskCRC(attached, len(mib), portMask)

	coded := conv.Encode(masked, true)
	return Scramble(rateMatchRepeat(coded, reLen), uint32(cellID)), nil
}

// maskCRC XORs the CRC field (the bits after payloadLen) with the
// antenna-port mask, letting a single CRC check discriminate which
// port count a received MIB was encoded with.
func maskCRC(bits []byte, payloadLen int, mask uint16) []byte {
	out := append([]byte(nil), bits...)
	for i := payloadLen; i < len(out); i++ {
		bitIdx := len(out) - 1 - i
		if bitIdx >= 16 {
			continue
		}
		if (mask>>uint(bitIdx))&1 == 1 {
			out[i] ^= 1
		}
	}
	return out
}

func rateMatchRepeat(bits []byte, e int) []byte {
	if len(bits) == 0 {
		return make([]byte, e)
	}
	out := make([]byte, e)
	for i := range out {
		out[i] = bits[i%len(bits)]
	}
	return out
}

// DecodePBCHResult is the outcome of a 4-hypothesis PBCH decode.
// SFNOffset is the number of quarter-TTI frames by which reception
// lagged the 40 ms TTI start, i.e. the low bits the MIB's SFN field
// does not carry.
type DecodePBCHResult struct {
	MIB       []byte
	SFNOffset int
	CRCOK     bool
}

// DecodePBCH tries SFN-offset hypotheses 0..3: for each, it rotates the
// LLR buffer back by the hypothesis's share of the 40 ms TTI,
// descrambles, soft-combines the repetitions, decodes, and checks the
// CRC against every candidate port mask, returning the first
// hypothesis/mask combination that verifies.
func DecodePBCH(llr []float64, cellID int, portMasks []uint16) (DecodePBCHResult, error) {
	c, err := crc.New(crc.CRC16)
	if err != nil {
		return DecodePBCHResult{}, err
	}
	quarter := len(llr) / 4
	if quarter == 0 {
		return DecodePBCHResult{}, fmt.Errorf("phych: PBCH LLR buffer too short")
	}
	codedLen := 3 * (PBCHPayloadBits + 16)

	for hyp := 0; hyp < 4; hyp++ {
		rotated := rotateLLR(llr, -hyp*quarter)
		descrambled := DescrambleLLR(rotated, uint32(cellID))
		softCombined := dematchRepeat(descrambled, codedLen)
		soft16 := make([]int16, len(softCombined))
		for i, v := range softCombined {
			soft16[i] = clampInt16(v)
		}
		decoded := conv.Decode(soft16, true)
		for _, mask := range portMasks {
			unmasked := maskCRC(decoded, PBCHPayloadBits, mask)
			payload, ok := c.Check(unmasked)
			if ok {
				return DecodePBCHResult{MIB: payload, SFNOffset: hyp, CRCOK: true}, nil
			}
		}
	}
	return DecodePBCHResult{CRCOK: false}, nil
}

func rotateLLR(llr []float64, shift int) []float64 {
	n := len(llr)
	if n == 0 {
		return llr
	}
	shift = ((shift % n) + n) % n
	out := make([]float64, n)
	copy(out, llr[shift:])
	copy(out[n-shift:], llr[:shift])
	return out
}

func dematchRepeat(llr []float64, n int) []float64 {
	out := make([]float64, n)
	for i, v := range llr {
		out[i%n] += v
	}
	return out
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
