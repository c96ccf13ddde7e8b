package bitvec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBoundedBitset_SetResetTest(t *testing.T) {
	bs := NewBoundedBitset(16, false)
	require.NoError(t, bs.Set(3))
	v, err := bs.Test(3)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, bs.Reset(3))
	v, err = bs.Test(3)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestBoundedBitset_OutOfRangeIsDomainError(t *testing.T) {
	bs := NewBoundedBitset(8, false)
	_, err := bs.Test(8)
	require.Error(t, err)
	var domainErr *DomainError
	assert.ErrorAs(t, err, &domainErr)
}

func TestBoundedBitset_Reversed(t *testing.T) {
	fwd := NewBoundedBitset(8, false)
	rev := NewBoundedBitset(8, true)
	require.NoError(t, fwd.Set(0))
	require.NoError(t, rev.Set(0))

	fv, _ := fwd.Test(0)
	rv := rev.words[0]&(1<<7) != 0 // reversed: logical 0 lands on physical bit 7
	assert.True(t, fv)
	assert.True(t, rv)
}

// count() equals the number of set bits found
// by scanning test(i), and find_lowest finds the smallest matching index.
func TestBoundedBitset_CountMatchesScan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 300).Draw(t, "n")
		bs := NewBoundedBitset(300, false)
		require.NoError(t, bs.Resize(n))

		positions := rapid.SliceOfDistinct(rapid.IntRange(0, n-1), func(i int) int { return i }).Draw(t, "positions")
		for _, p := range positions {
			require.NoError(t, bs.Set(p))
		}

		want := 0
		for i := 0; i < n; i++ {
			v, _ := bs.Test(i)
			if v {
				want++
			}
		}
		assert.Equal(t, want, bs.Count())

		lo, err := bs.FindLowest(0, n, true)
		require.NoError(t, err)
		if len(positions) == 0 {
			assert.Equal(t, -1, lo)
		} else {
			expected := -1
			for i := 0; i < n; i++ {
				v, _ := bs.Test(i)
				if v {
					expected = i
					break
				}
			}
			assert.Equal(t, expected, lo)
		}
	})
}

func TestBoundedBitset_ToHex(t *testing.T) {
	bs := NewBoundedBitset(8, false)
	require.NoError(t, bs.Set(4)) // bit 4 sits in the high nibble (bits 4-7)
	assert.Equal(t, "10", bs.ToHex())
}
