package phych

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ransys/phycore/channel"
	"github.com/ransys/phycore/fec/ldpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulate_QPSKUnitEnergy(t *testing.T) {
	syms, err := Modulate([]byte{0, 0, 0, 1, 1, 0, 1, 1}, ModQPSK)
	require.NoError(t, err)
	require.Len(t, syms, 4)
	for _, s := range syms {
		mag2 := real(s)*real(s) + imag(s)*imag(s)
		assert.InDelta(t, 1.0, mag2, 1e-9)
	}
}

func TestModulateDemap_QPSKNoiselessRoundTrip(t *testing.T) {
	bits := []byte{0, 1, 1, 0, 0, 0, 1, 1}
	syms, err := Modulate(bits, ModQPSK)
	require.NoError(t, err)
	llr, err := DemapLLR(syms, ModQPSK, 0.1)
	require.NoError(t, err)
	require.Len(t, llr, len(bits))
	for i, b := range bits {
		if b == 0 {
			assert.Greater(t, llr[i], 0.0)
		} else {
			assert.Less(t, llr[i], 0.0)
		}
	}
}

func TestModulateDemap_16QAMNoiselessRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bits := make([]byte, 4*20)
	for i := range bits {
		bits[i] = byte(rng.Intn(2))
	}
	syms, err := Modulate(bits, Mod16QAM)
	require.NoError(t, err)
	llr, err := DemapLLR(syms, Mod16QAM, 0.01)
	require.NoError(t, err)
	for i, b := range bits {
		if b == 0 {
			assert.Greater(t, llr[i], 0.0, "bit %d", i)
		} else {
			assert.Less(t, llr[i], 0.0, "bit %d", i)
		}
	}
}

func TestSegmentConcatenate_RoundTripUnderMaxCB(t *testing.T) {
	bits := make([]byte, 100)
	for i := range bits {
		bits[i] = byte(i % 2)
	}
	blocks, numCB, filler, err := Segment(bits, 6144, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, numCB)
	assert.Equal(t, 0, filler)
	assert.Equal(t, bits, Concatenate(blocks, 0, filler))
}

func TestSegmentConcatenate_SplitsAboveMaxCB(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	bits := make([]byte, 20000)
	for i := range bits {
		bits[i] = byte(rng.Intn(2))
	}
	blocks, numCB, filler, err := Segment(bits, 6144, nil)
	require.NoError(t, err)
	assert.Greater(t, numCB, 1)

	maxLen, minLen := 0, 1<<30
	for _, b := range blocks {
		if len(b) > maxLen {
			maxLen = len(b)
		}
		if len(b) < minLen {
			minLen = len(b)
		}
	}
	assert.LessOrEqual(t, maxLen-minLen, 0) // all blocks padded to one common size

	assert.Equal(t, bits, Concatenate(blocks, 0, filler))
}

func TestScrambleDescramble_RoundTrip(t *testing.T) {
	bits := []byte{1, 0, 1, 1, 0, 0, 1, 0}
	scrambled := Scramble(bits, 0xABCD)
	descrambled := Scramble(scrambled, 0xABCD)
	assert.Equal(t, bits, descrambled)
}

func TestEncodeDecodeTransportBlock_LDPCNoiseless(t *testing.T) {
	cfg := TBConfig{
		Code:  CodeLDPC,
		Mod:   ModQPSK,
		CInit: 42,
		E:     0,
	}
	ldpcCfg, err := ldpc.NewConfig(ldpc.BG1, 384)
	require.NoError(t, err)
	cfg.LDPC = ldpcCfg

	// Payload sized so CRC24A attach leaves exactly one code block at
	// the LDPC info size (no segmentation, so no per-CB CRC).
	payloadLen := ldpcCfg.InfoBits() - 24
	if payloadLen < 8 {
		t.Skip("lifting size too small for this payload arrangement")
	}
	rng := rand.New(rand.NewSource(5))
	payload := make([]byte, payloadLen)
	for i := range payload {
		payload[i] = byte(rng.Intn(2))
	}

	cfg.E = ldpcCfg.CodeBits()
	enc, err := EncodeTransportBlock(payload, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, enc.NumCB)

	harq := NewHARQContext(enc.NumCB, enc.BufferLen)
	dec, err := DecodeTransportBlock(enc.Symbols, 0.001, enc.NumCB, harq, cfg, nil)
	require.NoError(t, err)
	assert.True(t, dec.CRCOK)
	assert.Equal(t, payload, dec.Payload)
}

func TestSelectPUCCHFormatLTE(t *testing.T) {
	assert.Equal(t, PUCCHFormat1a, SelectPUCCHFormatLTE(1, false, false))
	assert.Equal(t, PUCCHFormat1b, SelectPUCCHFormatLTE(2, false, false))
	assert.Equal(t, PUCCHFormat2, SelectPUCCHFormatLTE(0, true, false))
	assert.Equal(t, PUCCHFormat2a, SelectPUCCHFormatLTE(1, true, false))
	assert.Equal(t, PUCCHFormat2b, SelectPUCCHFormatLTE(2, true, false))
	assert.Equal(t, PUCCHFormat1, SelectPUCCHFormatLTE(0, false, true))
}

func TestResourceIndex_SRTakesPriority(t *testing.T) {
	assert.Equal(t, 7, ResourceIndex(3, 2, 7, true))
	assert.Equal(t, 5, ResourceIndex(3, 2, 7, false))
}

// A 2-bit ACK on format 1b, resource index 7, over AWGN at 15 dB:
// the receiver must recover the bits in at least 99% of 1000 trials.
func TestPUCCHFormat1b_TwoBitACKOverAWGN(t *testing.T) {
	ack := []byte{1, 0}
	require.Equal(t, PUCCHFormat1b, SelectPUCCHFormatLTE(len(ack), false, false))
	require.Equal(t, 7, ResourceIndex(5, 2, 0, false))

	symbols, err := EncodePUCCHControl(ack, 32, ModQPSK)
	require.NoError(t, err)

	awgn := channel.NewAWGN(15)
	awgn.SetN0(-15)
	noiseVar := math.Pow(10, -15.0/10)

	const trials = 1000
	correct := 0
	for i := 0; i < trials; i++ {
		received := awgn.RunComplex(symbols)
		decoded, decErr := DecodePUCCHControl(received, ModQPSK, noiseVar, len(ack))
		require.NoError(t, decErr)
		if decoded[0] == ack[0] && decoded[1] == ack[1] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, trials*99/100, "recovered %d/%d", correct, trials)
}

func pbchLLR(encoded []byte) []float64 {
	llr := make([]float64, len(encoded))
	for i, b := range encoded {
		if b == 0 {
			llr[i] = 10
		} else {
			llr[i] = -10
		}
	}
	return llr
}

func TestEncodePBCH_DecodeRoundTrip(t *testing.T) {
	mib := make([]byte, PBCHPayloadBits)
	rng := rand.New(rand.NewSource(11))
	for i := range mib {
		mib[i] = byte(rng.Intn(2))
	}
	portMask := uint16(0x0F0F)
	encoded, err := EncodePBCH(mib, 123, portMask, 1920)
	require.NoError(t, err)

	result, err := DecodePBCH(pbchLLR(encoded), 123, []uint16{portMask})
	require.NoError(t, err)
	assert.True(t, result.CRCOK)
	assert.Equal(t, 0, result.SFNOffset)
	assert.Equal(t, mib, result.MIB)
}

// Reception that begins mid-TTI must still decode, and the winning
// hypothesis must report how many quarter-frames were missed.
func TestDecodePBCH_NonzeroSFNOffsetHypotheses(t *testing.T) {
	mib := make([]byte, PBCHPayloadBits)
	rng := rand.New(rand.NewSource(13))
	for i := range mib {
		mib[i] = byte(rng.Intn(2))
	}
	portMask := uint16(0x0003)
	encoded, err := EncodePBCH(mib, 123, portMask, 1920)
	require.NoError(t, err)
	llr := pbchLLR(encoded)
	quarter := len(llr) / 4

	for offset := 1; offset < 4; offset++ {
		// A receiver that tuned in `offset` quarters late sees the TTI
		// cyclically advanced by that many quarters.
		received := rotateLLR(llr, offset*quarter)
		result, decErr := DecodePBCH(received, 123, []uint16{portMask})
		require.NoError(t, decErr)
		require.True(t, result.CRCOK, "offset %d did not decode", offset)
		assert.Equal(t, offset, result.SFNOffset)
		assert.Equal(t, mib, result.MIB)
	}
}

// packSFN writes a 10-bit system frame number into the leading MIB
// payload bits, MSB first.
func packSFN(sfn int) []byte {
	mib := make([]byte, PBCHPayloadBits)
	for i := 0; i < 10; i++ {
		mib[i] = byte((sfn >> (9 - i)) & 1)
	}
	return mib
}

func unpackSFN(mib []byte) int {
	sfn := 0
	for i := 0; i < 10; i++ {
		sfn = sfn<<1 | int(mib[i])
	}
	return sfn
}

// MIB decode across the SFN rollover: consecutive 40 ms windows
// carrying SFN 1023 then SFN 0 must both decode, with no false lock on
// the wrong window.
func TestDecodePBCH_SFNRollover(t *testing.T) {
	portMask := uint16(0x0003)
	for _, sfn := range []int{1023, 0} {
		encoded, err := EncodePBCH(packSFN(sfn), 123, portMask, 1920)
		require.NoError(t, err)

		result, err := DecodePBCH(pbchLLR(encoded), 123, []uint16{portMask})
		require.NoError(t, err)
		require.True(t, result.CRCOK)
		assert.Equal(t, sfn, unpackSFN(result.MIB))
	}

	// A window encoded for a different cell's scrambling must not
	// produce a false lock.
	encoded, err := EncodePBCH(packSFN(1023), 123, portMask, 1920)
	require.NoError(t, err)
	result, err := DecodePBCH(pbchLLR(encoded), 124, []uint16{portMask})
	require.NoError(t, err)
	assert.False(t, result.CRCOK)
}
