package transform

import (
	"fmt"
	"math"
)

// CPKind selects the cyclic-prefix convention.
type CPKind int

const (
	CPNormal CPKind = iota
	CPExtended
)

// SymbolsPerSlot returns the OFDM symbol count per subframe for the CP
// kind: 14 for normal, 12 for extended.
func (k CPKind) SymbolsPerSlot() int {
	if k == CPExtended {
		return 12
	}
	return 14
}

// Config fully describes one OFDM modulator/demodulator instance. It is
// immutable once built, so instances may be shared freely like the
// pilot and interleaver tables.
type Config struct {
	FFTSize      int
	CP           CPKind
	HalfShiftNBIoT bool // optional half-subcarrier shift for NB-IoT
	RxWindowOffset int  // receive-window offset, samples, in (-CP/2,+CP/2)
}

// NewConfig validates and constructs an OFDM configuration.
func NewConfig(fftSize int, cp CPKind) (*Config, error) {
	if !validFFTSize(fftSize) {
		return nil, &ErrInvalidFFTSize{Size: fftSize}
	}
	return &Config{FFTSize: fftSize, CP: cp}, nil
}

// cpLength returns the cyclic-prefix length, in samples, for OFDM
// symbol index within a slot (0-based). Normal CP has a longer first
// symbol per slot; extended CP is uniform across all symbols.
func (c *Config) cpLength(symbolIdx int) int {
	n := c.FFTSize
	if c.CP == CPExtended {
		return n / 4
	}
	// Normal CP: symbol 0 of a 0.5ms slot is slightly longer so that
	// 7 symbols + their prefixes sum to exactly 0.5ms of samples.
	if symbolIdx%7 == 0 {
		return (n * 160) / 2048
	}
	return (n * 144) / 2048
}

// Modulate converts one subframe's worth of frequency-domain resource
// grids (one []complex128 of length FFTSize per OFDM symbol, already
// RE-mapped) into a time-domain sample stream with cyclic prefixes
// inserted.
func (c *Config) Modulate(grid [][]complex128) ([]complex128, error) {
	symbolsPerSlot := c.CP.SymbolsPerSlot()
	if len(grid) == 0 || len(grid)%symbolsPerSlot != 0 {
		return nil, fmt.Errorf("transform: grid has %d symbols, not a multiple of %d", len(grid), symbolsPerSlot)
	}

	var out []complex128
	for s, freqSymbol := range grid {
		if len(freqSymbol) != c.FFTSize {
			return nil, fmt.Errorf("transform: symbol %d has %d subcarriers, want %d", s, len(freqSymbol), c.FFTSize)
		}
		timeSymbol := IDFT(freqSymbol)
		cpLen := c.cpLength(s % symbolsPerSlot)
		out = append(out, timeSymbol[c.FFTSize-cpLen:]...)
		out = append(out, timeSymbol...)
	}
	if c.HalfShiftNBIoT {
		applyHalfShift(out, c.FFTSize, +1)
	}
	return out, nil
}

// applyHalfShift rotates the sample stream by half a subcarrier
// spacing (the NB-IoT in-band/guard 7.5 kHz offset): each sample n is
// multiplied by exp(dir * j*pi*n/N) over a running sample counter.
func applyHalfShift(samples []complex128, fftSize int, dir float64) {
	step := dir * math.Pi / float64(fftSize)
	for n := range samples {
		angle := step * float64(n)
		samples[n] *= complex(math.Cos(angle), math.Sin(angle))
	}
}

// Demodulate inverts Modulate: given a time-domain subframe sample
// stream, strip each symbol's cyclic prefix (applying RxWindowOffset to
// mitigate synchronization error) and DFT back to the frequency domain.
func (c *Config) Demodulate(samples []complex128, numSymbols int) ([][]complex128, error) {
	symbolsPerSlot := c.CP.SymbolsPerSlot()
	if numSymbols%symbolsPerSlot != 0 {
		return nil, fmt.Errorf("transform: %d symbols is not a multiple of %d", numSymbols, symbolsPerSlot)
	}

	if c.HalfShiftNBIoT {
		shifted := append([]complex128(nil), samples...)
		applyHalfShift(shifted, c.FFTSize, -1)
		samples = shifted
	}

	grid := make([][]complex128, numSymbols)
	pos := 0
	for s := 0; s < numSymbols; s++ {
		cpLen := c.cpLength(s % symbolsPerSlot)
		symbolLen := cpLen + c.FFTSize
		if pos+symbolLen > len(samples) {
			return nil, fmt.Errorf("transform: sample stream too short for symbol %d", s)
		}
		// Window offset shifts the FFT capture window within the CP,
		// away from the cyclic-prefix boundary, to dodge ISI from
		// residual timing error.
		start := pos + cpLen + c.RxWindowOffset
		window := samples[start : start+c.FFTSize]
		grid[s] = DFT(window)
		pos += symbolLen
	}
	return grid, nil
}

// SamplesPerSubframe returns the number of time-domain samples that
// 2*SymbolsPerSlot() OFDM symbols occupy. SymbolsPerSlot() already
// counts a whole subframe, so the result spans two subframes (2 ms at
// normal numerology); one subframe is half of it.
func (c *Config) SamplesPerSubframe() int {
	symbolsPerSlot := c.CP.SymbolsPerSlot()
	total := 0
	for s := 0; s < symbolsPerSlot*2; s++ {
		total += c.cpLength(s%symbolsPerSlot) + c.FFTSize
	}
	return total
}
