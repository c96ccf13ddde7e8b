package uci

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeShort_RepeatsToLength(t *testing.T) {
	bits := []byte{1, 0, 1}
	out, err := EncodeShort(bits, 48)
	require.NoError(t, err)
	require.Len(t, out, 48)
	assert.Equal(t, out[:16], out[32:48])
}

func TestEncodeShort_RejectsOversizedPayload(t *testing.T) {
	bits := make([]byte, 12)
	_, err := EncodeShort(bits, 48)
	assert.Error(t, err)
}

func TestEncodeDecodeShort_NoiselessRoundTrip(t *testing.T) {
	for o := 1; o <= MaxShortUCIBits; o++ {
		bits := make([]byte, o)
		for i := range bits {
			bits[i] = byte((i + o) % 2)
		}
		encoded, err := EncodeShort(bits, 64)
		require.NoError(t, err)

		soft := make([]float64, len(encoded))
		for i, b := range encoded {
			if b == 0 {
				soft[i] = 4
			} else {
				soft[i] = -4
			}
		}
		decoded, err := DecodeShort(soft, o)
		require.NoError(t, err)
		assert.Equal(t, bits, decoded, "o=%d", o)
	}
}

func TestDecodeShort_SurvivesFlippedBits(t *testing.T) {
	bits := []byte{1, 0, 1, 1}
	encoded, err := EncodeShort(bits, 32)
	require.NoError(t, err)

	soft := make([]float64, len(encoded))
	for i, b := range encoded {
		if b == 0 {
			soft[i] = 2
		} else {
			soft[i] = -2
		}
	}
	// The (32, O) code has large minimum distance; a handful of hard
	// flips must not move the ML decision.
	for _, idx := range []int{3, 11, 19, 27} {
		soft[idx] = -soft[idx]
	}
	decoded, err := DecodeShort(soft, len(bits))
	require.NoError(t, err)
	assert.Equal(t, bits, decoded)
}

func TestDecodeShort_RejectsBadShapes(t *testing.T) {
	_, err := DecodeShort(nil, 2)
	assert.Error(t, err)
	_, err = DecodeShort(make([]float64, 32), 12)
	assert.Error(t, err)
}

func TestEncodeDecodeLong_NoiselessRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(rng.Intn(2))
	}
	encoded, err := EncodeLong(payload, 300)
	require.NoError(t, err)

	soft := make([]float64, len(encoded))
	for i, b := range encoded {
		if b == 0 {
			soft[i] = 5
		} else {
			soft[i] = -5
		}
	}
	decoded, ok, err := DecodeLong(soft, len(payload))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, decoded)
}

func TestQPrimeUCI_CapsAtPUSCHRECount(t *testing.T) {
	q := QPrimeUCI(2, 1200, 12, 20.0, 1000, 50)
	assert.Equal(t, 50, q)
}

func TestQPrimeUCI_Uncapped(t *testing.T) {
	q := QPrimeUCI(2, 100, 12, 1.0, 10000, 1000)
	assert.Greater(t, q, 0)
	assert.Less(t, q, 1000)
}

func TestMultiplex_PlacesACKAtFixedColumnsAndPreservesAllBits(t *testing.T) {
	ack := []byte{1, 1}
	ri := []byte{0}
	cqi := []byte{1, 0, 1, 0}
	data := []byte{0, 0, 1, 1, 0, 1, 0, 0, 1, 1}

	out := Multiplex(ack, ri, cqi, data)
	total := len(ack) + len(ri) + len(cqi) + len(data)
	assert.Len(t, out, total)

	var ones int
	for _, b := range out {
		if b == 1 {
			ones++
		}
	}
	var wantOnes int
	for _, group := range [][]byte{ack, ri, cqi, data} {
		for _, b := range group {
			if b == 1 {
				wantOnes++
			}
		}
	}
	assert.Equal(t, wantOnes, ones)
}

func TestQuantizeCQI_Monotone(t *testing.T) {
	low := QuantizeCQI(-10, CQITable64QAM)
	mid := QuantizeCQI(5, CQITable64QAM)
	high := QuantizeCQI(25, CQITable64QAM)
	assert.LessOrEqual(t, low, mid)
	assert.LessOrEqual(t, mid, high)
}

func TestCSIAverager_ExponentialAverage(t *testing.T) {
	a := NewCSIAverager()
	v1 := a.Update(0, 10.0)
	assert.Equal(t, 10.0, v1)
	v2 := a.Update(0, 20.0)
	assert.InDelta(t, 15.0, v2, 1e-9)
	v3 := a.Update(0, 20.0)
	assert.InDelta(t, 17.5, v3, 1e-9)
}

func TestBuildReport_NoneContentIsPassThrough(t *testing.T) {
	r := BuildReport(TriggerPeriodic, ContentNone, 20, CQITable64QAM, 2, 3)
	assert.Equal(t, 0, r.CQI)
	assert.Equal(t, 0, r.RI)
}

func TestBuildReport_WidebandFillsFields(t *testing.T) {
	r := BuildReport(TriggerAperiodic, ContentWidebandCRIRIPMICQI, 20, CQITable64QAM, 2, 3)
	assert.Equal(t, 2, r.RI)
	assert.Equal(t, 3, r.PMI)
	assert.Greater(t, r.CQI, 0)
}
