package conv

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ransys/phycore/channel"
)

func bitsToSoft(bits []byte) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		if b == 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

func TestEncodeDecode_NoiselessNonTailBiting(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	input := make([]byte, 40)
	for i := range input[:len(input)-6] {
		input[i] = byte(rng.Intn(2))
	}
	// Last K-1 bits are the zero tail.

	encoded := Encode(input, false)
	soft := bitsToSoft(encoded)

	decoded := Decode(soft, false)
	assert.Equal(t, input, decoded)
}

func TestEncodeDecode_NoiselessTailBiting(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	input := make([]byte, 48)
	for i := range input {
		input[i] = byte(rng.Intn(2))
	}

	encoded := Encode(input, true)
	soft := bitsToSoft(encoded)

	decoded := Decode(soft, true)
	assert.Equal(t, input, decoded)
}

// 256 tail-biting frames of 1000 bits over BPSK+AWGN at each Eb/N0
// point; the cumulative bit-error counts must not exceed the scalar
// reference table.
func TestDecode_BERTable(t *testing.T) {
	if testing.Short() {
		t.Skip("BER sweep is slow")
	}

	const (
		frames    = 256
		frameBits = 1000
		rate      = 1.0 / 3.0
	)
	table := []struct {
		ebNoDB    float64
		maxErrors int
	}{
		{0, 5363},
		{2, 356},
		{3, 48},
		{4.5, 0},
	}

	for _, point := range table {
		rng := rand.New(rand.NewSource(42))
		awgn := channel.NewAWGN(42)
		// Per-real-dimension noise variance is N0/2 for unit-energy
		// BPSK symbols.
		awgn.SetVariance(channel.VarianceFromEbNo(point.ebNoDB, rate) / 2)

		errors := 0
		for frame := 0; frame < frames; frame++ {
			input := make([]byte, frameBits)
			for i := range input {
				input[i] = byte(rng.Intn(2))
			}
			encoded := Encode(input, true)
			soft := awgn.RunReal(bitsToSoft(encoded))
			decoded := Decode(soft, true)
			for i := range input {
				if decoded[i] != input[i] {
					errors++
				}
			}
		}
		assert.LessOrEqualf(t, errors, point.maxErrors,
			"Eb/N0 %.1f dB: %d bit errors exceeds reference %d", point.ebNoDB, errors, point.maxErrors)
	}
}

func TestDecode_Int16Soft(t *testing.T) {
	input := []byte{1, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	encoded := Encode(input, false)
	soft := make([]int16, len(encoded))
	for i, b := range encoded {
		if b == 0 {
			soft[i] = 100
		} else {
			soft[i] = -100
		}
	}
	decoded := Decode(soft, false)
	assert.Equal(t, input, decoded)
}
