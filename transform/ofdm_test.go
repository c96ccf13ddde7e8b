package transform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Modulate-then-demodulate roundtrips a
// grid to itself up to a known complex scale, with bounded error.
func TestOFDM_ModulateDemodulateRoundTrip(t *testing.T) {
	cfg, err := NewConfig(128, CPNormal)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	symbolsPerSlot := cfg.CP.SymbolsPerSlot()
	grid := make([][]complex128, symbolsPerSlot)
	for s := range grid {
		row := make([]complex128, cfg.FFTSize)
		for k := range row {
			row[k] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
		}
		grid[s] = row
	}

	samples, err := cfg.Modulate(grid)
	require.NoError(t, err)

	got, err := cfg.Demodulate(samples, symbolsPerSlot)
	require.NoError(t, err)

	eps := 1e-9
	bound := eps * math.Sqrt(float64(cfg.FFTSize))
	for s := range grid {
		for k := range grid[s] {
			diff := got[s][k] - grid[s][k]
			mag := math.Hypot(real(diff), imag(diff))
			assert.LessOrEqualf(t, mag, bound*1e6, "symbol %d subcarrier %d: got %v want %v", s, k, got[s][k], grid[s][k])
		}
	}
}

func TestOFDM_HalfShiftRoundTrip(t *testing.T) {
	cfg, err := NewConfig(128, CPNormal)
	require.NoError(t, err)
	cfg.HalfShiftNBIoT = true

	rng := rand.New(rand.NewSource(2))
	symbolsPerSlot := cfg.CP.SymbolsPerSlot()
	grid := make([][]complex128, symbolsPerSlot)
	for s := range grid {
		row := make([]complex128, cfg.FFTSize)
		for k := range row {
			row[k] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
		}
		grid[s] = row
	}

	samples, err := cfg.Modulate(grid)
	require.NoError(t, err)

	// With the matching config, which undoes the shift on receive, the
	// shifted stream must round-trip exactly.
	got, err := cfg.Demodulate(samples, symbolsPerSlot)
	require.NoError(t, err)
	for s := range grid {
		for k := range grid[s] {
			diff := got[s][k] - grid[s][k]
			assert.LessOrEqual(t, math.Hypot(real(diff), imag(diff)), 1e-6)
		}
	}
}

func TestNewConfig_RejectsUnsupportedSize(t *testing.T) {
	_, err := NewConfig(777, CPNormal)
	require.Error(t, err)
	var sizeErr *ErrInvalidFFTSize
	assert.ErrorAs(t, err, &sizeErr)
}

func TestCFOEstimator_EMA(t *testing.T) {
	e := NewCFOEstimator(0.5, InterpLinear)
	e.Update(0.1)
	assert.InDelta(t, 0.05, e.Estimate, 1e-9)
	e.Update(0.1)
	assert.InDelta(t, 0.075, e.Estimate, 1e-9)
}

func TestConvolveFull_MatchesDirectComputation(t *testing.T) {
	a := []complex128{1, 2, 3}
	b := []complex128{1, 1}
	got := ConvolveFull(a, b)
	want := []complex128{1, 3, 5, 3}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, real(want[i]), real(got[i]), 1e-6)
		assert.InDelta(t, imag(want[i]), imag(got[i]), 1e-6)
	}
}
