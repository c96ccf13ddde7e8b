package bitvec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.Map(rapid.SliceOfN(rapid.IntRange(0, 1), 1, 64),
			func(vs []int) []byte {
				out := make([]byte, len(vs))
				for i, v := range vs {
					out[i] = byte(v)
				}
				return out
			}).Draw(t, "bits")

		packed := PackMSBFirst(bits)
		back, err := UnpackMSBFirst(packed, len(bits))
		require.NoError(t, err)
		assert.Equal(t, bits, back)
	})
}

func TestPackUintRoundTrip(t *testing.T) {
	bits := PackUint(0b1011, 4)
	assert.Equal(t, []byte{1, 0, 1, 1}, bits)
	assert.Equal(t, uint64(0b1011), UnpackUint(bits))
}

func TestUnpackMSBFirst_OutOfRange(t *testing.T) {
	_, err := UnpackMSBFirst([]byte{0xFF}, 9)
	require.Error(t, err)
}
