package polar

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_NoiselessRoundTrip(t *testing.T) {
	n := 64
	k := 32
	frozen := FrozenSet(n, k)
	frozenSet := make(map[int]bool)
	for _, f := range frozen {
		frozenSet[f] = true
	}

	rng := rand.New(rand.NewSource(5))
	u := make([]byte, n)
	for i := 0; i < n; i++ {
		if !frozenSet[i] {
			u[i] = byte(rng.Intn(2))
		}
	}

	x, err := Encode(u)
	require.NoError(t, err)

	llr := make([]float64, n)
	for i, b := range x {
		if b == 0 {
			llr[i] = 10
		} else {
			llr[i] = -10
		}
	}

	decoded := Decode(llr, frozen)
	assert.Equal(t, u, decoded)
}

func TestFrozenSet_InfoSet_Partition(t *testing.T) {
	n, k := 128, 64
	frozen := FrozenSet(n, k)
	info := InfoSet(n, k)
	assert.Len(t, frozen, n-k)
	assert.Len(t, info, k)

	seen := make(map[int]bool)
	for _, f := range frozen {
		seen[f] = true
	}
	for _, i := range info {
		assert.False(t, seen[i])
	}
}

// dematch(match(c)) == c bit-exactly on an
// identity channel.
func TestRateMatch_RoundTripIdentity(t *testing.T) {
	n, k, e := 512, 164, 864 // e > n -> repetition
	require.Equal(t, SchemeRepeat, SelectScheme(n, k, e))

	rng := rand.New(rand.NewSource(9))
	c := make([]byte, n)
	for i := range c {
		c[i] = byte(rng.Intn(2))
	}

	interleaved := SubBlockInterleave(c)
	matched := Match(interleaved, k, e)
	require.Len(t, matched, e)

	llr := make([]float64, e)
	for i, b := range matched {
		if b == 0 {
			llr[i] = 5
		} else {
			llr[i] = -5
		}
	}
	dematched := Dematch(llr, n, SchemeRepeat, 0)
	deinterleaved := make([]float64, n)
	// Invert the sub-block interleaver on the LLR domain the same way
	// SubBlockDeinterleave does on bits.
	blockSize := n / 32
	for j := 0; j < 32; j++ {
		destBlock := subBlockInterleaverPattern[j]
		copy(deinterleaved[destBlock*blockSize:(destBlock+1)*blockSize], dematched[j*blockSize:(j+1)*blockSize])
	}

	for i, v := range deinterleaved {
		want := 1.0
		if c[i] == 1 {
			want = -1.0
		}
		if v*want <= 0 {
			t.Fatalf("position %d: sign mismatch, llr=%v want sign of %v", i, v, want)
		}
	}
}

func TestSelectScheme_PunctureVsShorten(t *testing.T) {
	assert.Equal(t, SchemePuncture, SelectScheme(256, 50, 200)) // 16*50=800 <= 7*200=1400
	assert.Equal(t, SchemeShorten, SelectScheme(256, 200, 220)) // 16*200=3200 > 7*220=1540
}

// Match must follow the K-dependent scheme selection: a low-rate
// codeword is punctured from the head, a high-rate one shortened from
// the tail.
func TestMatch_PunctureAndShortenLayouts(t *testing.T) {
	n, e := 64, 48
	c := make([]byte, n)
	for i := range c {
		c[i] = byte(i % 2)
	}

	require.Equal(t, SchemePuncture, SelectScheme(n, 10, e)) // 16*10=160 <= 7*48=336
	punctured := Match(c, 10, e)
	require.Len(t, punctured, e)
	assert.Equal(t, c[n-e:], punctured, "puncture drops the first N-E bits")

	require.Equal(t, SchemeShorten, SelectScheme(n, 40, e)) // 16*40=640 > 336
	shortened := Match(c, 40, e)
	require.Len(t, shortened, e)
	assert.Equal(t, c[:e], shortened, "shorten omits the last N-E bits")

	// The receive side restores shortened positions as known zeros.
	llr := make([]float64, e)
	for i := range llr {
		llr[i] = 1
	}
	dematched := Dematch(llr, n, SchemeShorten, 100)
	for i := 0; i < e; i++ {
		assert.InDelta(t, 1.0, dematched[i], 0)
	}
	for i := e; i < n; i++ {
		assert.InDelta(t, 100.0, dematched[i], 0)
	}
}
