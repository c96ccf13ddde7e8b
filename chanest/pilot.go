// Package chanest implements pilot generation and the reference-signal
// channel-estimation pipeline: per-pilot LS estimation,
// frequency-direction FIR smoothing, time-direction interpolation, noise
// variance, and the RSRP/RSSI/RSRQ/SNR measurements.
package chanest

import (
	"fmt"
	"math/cmplx"
)

// PilotKey indexes a precomputed pilot sequence by slot, symbol, and
// antenna port.
type PilotKey struct {
	Slot   int
	Symbol int
	Port   int
}

// PilotTable holds one cell configuration's precomputed pilot
// sequences. Sequences are generated once (NewPilotTable) and reused
// for every subframe of that cell configuration.
type PilotTable struct {
	cellID int
	table  map[PilotKey][]complex128
}

// NewPilotTable precomputes pilot sequences for every (slot, symbol,
// port) combination named in layout, deterministically keyed on
// cellID. Each sequence has length nSubcarriers.
func NewPilotTable(cellID int, layout []PilotKey, nSubcarriers int) (*PilotTable, error) {
	if nSubcarriers <= 0 {
		return nil, fmt.Errorf("chanest: nSubcarriers must be positive, got %d", nSubcarriers)
	}
	pt := &PilotTable{cellID: cellID, table: make(map[PilotKey][]complex128, len(layout))}
	for _, key := range layout {
		pt.table[key] = generateSequence(cellID, key, nSubcarriers)
	}
	return pt, nil
}

// Lookup returns the precomputed unit-magnitude pilot sequence for key,
// or false if key was not part of the table's layout.
func (pt *PilotTable) Lookup(key PilotKey) ([]complex128, bool) {
	seq, ok := pt.table[key]
	return seq, ok
}

// Grow adds pilot sequences for additional (slot, symbol, port) keys to
// an existing table, generated at the given subcarrier width. Per
// the rule that resizing the cell capacity may only grow buffers, Grow never
// removes or regenerates an existing key — it only adds missing ones,
// leaving already-computed sequences untouched.
func (pt *PilotTable) Grow(layout []PilotKey, nSubcarriers int) {
	for _, key := range layout {
		if _, exists := pt.table[key]; exists {
			continue
		}
		pt.table[key] = generateSequence(pt.cellID, key, nSubcarriers)
	}
}

// generateSequence produces a deterministic unit-magnitude pseudo-
// random sequence from a length-31 Gold-sequence-style LFSR pair
// seeded on cell identity, slot, symbol, and port, mapped to QPSK
// symbols two bits at a time (the standard "c(n)" pilot-scrambling
// construction used for both cell-specific reference signals and DMRS).
func generateSequence(cellID int, key PilotKey, n int) []complex128 {
	cInit := uint32(cellID)*2097152 + uint32(key.Slot)*131072 + uint32(key.Symbol)*2048 + uint32(key.Port)*8 + 1

	needBits := 2 * n
	x1 := goldLFSR(goldSeed1, needBits+1600)
	x2 := goldLFSR(cInit, needBits+1600)

	const sqrtHalf = 0.7071067811865476
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		b0 := x1[1600+2*i] ^ x2[1600+2*i]
		b1 := x1[1600+2*i+1] ^ x2[1600+2*i+1]
		re := sqrtHalf
		if b0 == 1 {
			re = -sqrtHalf
		}
		im := sqrtHalf
		if b1 == 1 {
			im = -sqrtHalf
		}
		out[i] = complex(re, im)
	}
	return out
}

const goldSeed1 = 0x55555555 // fixed seed for the first Gold-sequence m-sequence

// goldLFSR runs a 31-stage Fibonacci LFSR for length output bits, the
// construction behind the 3GPP pseudo-random sequence c(n).
func goldLFSR(seed uint32, length int) []byte {
	const stateBits = 31
	state := seed
	if state == 0 {
		state = 1
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = byte(state & 1)
		fb := ((state >> 0) ^ (state >> 3)) & 1
		state = (state >> 1) | (fb << (stateBits - 1))
	}
	return out
}

// LSEstimate computes the least-squares per-pilot channel estimate:
// received / known, implemented as a conjugate multiply since pilots
// have unit magnitude.
func LSEstimate(received, known []complex128) ([]complex128, error) {
	if len(received) != len(known) {
		return nil, fmt.Errorf("chanest: received/known length mismatch %d/%d", len(received), len(known))
	}
	out := make([]complex128, len(received))
	for i := range received {
		out[i] = received[i] * cmplx.Conj(known[i])
	}
	return out, nil
}

// Magnitude2 returns |z|^2, used throughout the power measurements.
func Magnitude2(z complex128) float64 {
	r, i := real(z), imag(z)
	return r*r + i*i
}

// MeanPower returns the average |z|^2 over samples.
func MeanPower(samples []complex128) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, z := range samples {
		sum += Magnitude2(z)
	}
	return sum / float64(len(samples))
}
