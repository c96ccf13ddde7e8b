package turbo

import (
	"math/rand"
	"testing"

	"github.com/ransys/phycore/fec/crc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bitsToLLR(bits []byte, scale float64) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		if b == 0 {
			out[i] = scale
		} else {
			out[i] = -scale
		}
	}
	return out
}

func TestTurbo_EncodeDecodeNoiseless(t *testing.T) {
	c, err := crc.New(crc.CRC24B)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(rng.Intn(2))
	}
	withCRC := c.Attach(payload)

	sys, p1, p2, il := Encode(withCRC)

	result := Decode(bitsToLLR(sys, 10), bitsToLLR(p1, 10), bitsToLLR(p2, 10), il, c)

	assert.True(t, result.CRCOK)
	assert.LessOrEqual(t, result.Iterations, MaxIterations)
	assert.Equal(t, withCRC, result.Bits)
}

func TestInterleaver_DeinterleaveInvertsPermute(t *testing.T) {
	il := NewInterleaver(64)
	bits := make([]byte, 64)
	for i := range bits {
		bits[i] = byte(i % 2)
	}
	permuted := il.Permute(bits)
	back := il.Deinterleave(permuted)
	assert.Equal(t, bits, back)
}
