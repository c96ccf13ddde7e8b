package sync

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ransys/phycore/channel"
	"github.com/ransys/phycore/transform"
)

// buildCleanTrace synthesizes a one-subframe-plus-FFT window containing
// the full synchronization field (SSS symbol, CP gap, PSS) for the
// given cell at a known offset, noiseless.
func buildCleanTrace(t *testing.T, nID1, nID2, fftSize, offset, total int) []complex128 {
	t.Helper()
	field, err := GenerateSyncField(nID1, nID2, 0, fftSize, transform.CPNormal)
	require.NoError(t, err)
	out := make([]complex128, total)
	require.LessOrEqual(t, offset+len(field), total)
	copy(out[offset:], field)
	return out
}

func TestGeneratePSS_UnitMagnitude(t *testing.T) {
	for nID2 := 0; nID2 < 3; nID2++ {
		seq, err := GeneratePSS(nID2, 63)
		require.NoError(t, err)
		require.Len(t, seq, 63)
		for _, z := range seq {
			assert.InDelta(t, 1.0, cmplx.Abs(z), 1e-9)
		}
	}
}

func TestGeneratePSS_RejectsInvalidNID2(t *testing.T) {
	_, err := GeneratePSS(3, 63)
	assert.Error(t, err)
}

func TestCrossCorrelate_FindsKnownOffset(t *testing.T) {
	pss, _ := GeneratePSS(1, 63)
	samples := make([]complex128, 500)
	offset := 200
	copy(samples[offset:], pss)

	result := CrossCorrelate(samples, pss)
	assert.Equal(t, offset+62, result.PeakIndex)
	assert.Greater(t, result.PSR, 1.0)
}

func TestSSS_EncodeDecodeRoundTrip(t *testing.T) {
	for nID1 := 0; nID1 < 168; nID1 += 37 {
		for _, sf := range []int{0, 5} {
			seq := generateSSS(nID1, 2, sf)
			gotID1, gotSF, err := DecodeSSS(seq, 2)
			require.NoError(t, err)
			assert.Equal(t, nID1, gotID1)
			assert.Equal(t, sf, gotSF)
		}
	}
}

// Feeding the same I/Q trace twice must yield an identical cell ID
// and subframe index.
func TestEngine_DeterministicAcrossRepeatedFeeds(t *testing.T) {
	trace := buildCleanTrace(t, 41, 0, 128, 64, 1200)

	run := func() *Engine {
		cfg := DefaultConfig(128)
		cfg.AGCFrames = 1
		e := NewEngine(cfg)
		for i := 0; i < cfg.AGCFrames; i++ {
			_, err := e.ProcessSubframe(trace)
			require.NoError(t, err)
		}
		_, err := e.ProcessSubframe(trace)
		require.NoError(t, err)
		return e
	}

	a := run()
	b := run()
	require.Equal(t, StateTRACK, a.State(), "clean trace must lock at the default PSR threshold")
	require.Equal(t, StateTRACK, b.State())
	assert.Equal(t, a.Lock().PhysCellID, b.Lock().PhysCellID)
	assert.Equal(t, a.Lock().SubframeIdx, b.Lock().SubframeIdx)
	assert.Equal(t, 123, a.Lock().PhysCellID)
}

// Cell search on a clean signal: PCI 123 (N_id_1=41, N_id_2=0), normal
// CP, 20 dB SNR. FIND must exit within 10 subframes and TRACK must
// report the right identity.
func TestEngine_CellSearchCleanSignal(t *testing.T) {
	trace := buildCleanTrace(t, 41, 0, 128, 100, 1200)
	awgn := channel.NewAWGN(1)
	awgn.SetN0(-20)

	cfg := DefaultConfig(128)
	cfg.AGCFrames = 1
	e := NewEngine(cfg)

	locked := false
	for sf := 0; sf < 10 && !locked; sf++ {
		var err error
		locked, err = e.ProcessSubframe(awgn.RunComplex(trace))
		require.NoError(t, err)
	}
	require.True(t, locked, "FIND did not exit within 10 subframes")
	require.Equal(t, StateTRACK, e.State())

	lock := e.Lock()
	assert.Equal(t, 123, lock.PhysCellID)
	assert.Equal(t, 41, lock.NID1)
	assert.Equal(t, 0, lock.NID2)
	assert.Equal(t, transform.CPNormal, lock.CP)
	assert.Equal(t, 0, lock.SubframeIdx)
}

func TestGenerateSyncField_ExtractsOwnSSS(t *testing.T) {
	for _, nID1 := range []int{0, 41, 167} {
		field, err := GenerateSyncField(nID1, 2, 5, 128, transform.CPNormal)
		require.NoError(t, err)

		cpLen := cpLengthForKind(transform.CPNormal, 128)
		peak := 128 + cpLen + 62 // last PSS sample within the field
		sss, ok := extractSSS(field, peak, 128, cpLen)
		require.True(t, ok)

		gotID1, gotSF, err := DecodeSSS(sss, 2)
		require.NoError(t, err)
		assert.Equal(t, nID1, gotID1)
		assert.Equal(t, 5, gotSF)
	}
}

func TestEngine_StartsInAGCAndAdvances(t *testing.T) {
	cfg := DefaultConfig(128)
	cfg.AGCFrames = 2
	e := NewEngine(cfg)
	assert.Equal(t, StateAGC, e.State())

	_, _ = e.ProcessSubframe(make([]complex128, 10))
	assert.Equal(t, StateAGC, e.State())
	_, _ = e.ProcessSubframe(make([]complex128, 10))
	assert.Equal(t, StateFIND, e.State())
}

func TestEngine_ResetReturnsToAGCAndKeepsConfig(t *testing.T) {
	cfg := DefaultConfig(128)
	cfg.PSRThreshold = 5.0
	e := NewEngine(cfg)
	e.state = StateTRACK
	e.lock = CellLock{NID1: 41, NID2: 0}

	e.Reset()
	assert.Equal(t, StateAGC, e.State())
	assert.Equal(t, CellLock{}, e.Lock())
	assert.Equal(t, 5.0, e.cfg.PSRThreshold)
}

func TestEngine_FindGivesUpAfterMaxFrames(t *testing.T) {
	cfg := DefaultConfig(128)
	cfg.AGCFrames = 1
	cfg.MaxFindFrames = 3
	cfg.PSRThreshold = 1e9 // nothing will ever pass
	e := NewEngine(cfg)

	silence := make([]complex128, 600)
	_, _ = e.ProcessSubframe(silence) // AGC -> FIND
	require.Equal(t, StateFIND, e.State())

	for i := 0; i < cfg.MaxFindFrames; i++ {
		_, err := e.ProcessSubframe(silence)
		require.NoError(t, err)
	}
	assert.Equal(t, StateAGC, e.State())
	assert.Equal(t, 1, e.SyncLostCount())
}

func TestEngine_TrackFallbackCountsSyncLost(t *testing.T) {
	cfg := DefaultConfig(128)
	cfg.TrackMaxLost = 2
	cfg.PSRThreshold = 1e9
	e := NewEngine(cfg)
	e.state = StateTRACK
	e.lock = CellLock{NID2: 0}

	silence := make([]complex128, 600)
	for i := 0; i < cfg.TrackMaxLost; i++ {
		_, err := e.ProcessSubframe(silence)
		require.NoError(t, err)
	}
	assert.Equal(t, StateFIND, e.State())
	assert.Equal(t, 1, e.SyncLostCount())
}

func TestInferCPKind_NoPanicOnSilence(t *testing.T) {
	samples := make([]complex128, 512)
	kind := InferCPKind(samples, 128)
	assert.Equal(t, kind, kind) // both energies zero; just exercise the no-signal path
}

func TestNarrowWindow_ClampsToBounds(t *testing.T) {
	samples := make([]complex128, 10)
	w := narrowWindow(samples, 2, 100)
	assert.Equal(t, samples, w)
}

func TestSubcarrierShift_PreservesMagnitude(t *testing.T) {
	pss, _ := GeneratePSS(0, 63)
	shifted := subcarrierShift(pss, 1)
	for i := range shifted {
		assert.InDelta(t, cmplx.Abs(pss[i]), cmplx.Abs(shifted[i]), 1e-9)
	}
}

func TestFractionalCFOFromCP_ZeroForNoOffset(t *testing.T) {
	fftSize := 64
	cpLen := 16
	samples := make([]complex128, fftSize+cpLen)
	for i := range samples {
		samples[i] = complex(math.Cos(float64(i)), math.Sin(float64(i)))
	}
	copy(samples[:cpLen], samples[fftSize:fftSize+cpLen])
	cfo := FractionalCFOFromCP(samples, fftSize, cpLen)
	assert.InDelta(t, 0.0, cfo, 1e-6)
}
