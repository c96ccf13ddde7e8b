package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// CRC(CRC.attach(x)) == 0 for every
// non-empty bit string.
func TestCRC_AttachThenCheckIsClean(t *testing.T) {
	kinds := []Kind{CRC24A, CRC24B, CRC24C, CRC16, CRC11, CRC8, CRC6}

	for _, kind := range kinds {
		kind := kind
		c, err := New(kind)
		require.NoError(t, err)

		rapid.Check(t, func(t *rapid.T) {
			msg := rapid.Map(rapid.SliceOfN(rapid.IntRange(0, 1), 1, 256),
				func(vs []int) []byte {
					out := make([]byte, len(vs))
					for i, v := range vs {
						out[i] = byte(v)
					}
					return out
				}).Draw(t, "msg")

			attached := c.Attach(msg)
			_, ok := c.Check(attached)
			assert.True(t, ok)
		})
	}
}

func TestCRC_BitFlipIsDetected(t *testing.T) {
	c, err := New(CRC8)
	require.NoError(t, err)

	msg := []byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 0}
	attached := c.Attach(msg)
	attached[3] ^= 1

	_, ok := c.Check(attached)
	assert.False(t, ok)
}

func TestUnknownKind(t *testing.T) {
	_, err := New(Kind(99))
	require.Error(t, err)
}
