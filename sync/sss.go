package sync

import (
	"fmt"
	"math"

	"github.com/ransys/phycore/transform"
)

// sssM0M1 recovers the two (m0, m1) index-generating integers for a
// given nID1/nID2/subframe (0 or 5) combination, following the LTE
// SSS definition's pairing of a cell-group index to two interleaved
// m-sequence shifts.
func sssM0M1(nID1, nID2, subframeIdx int) (m0, m1 int) {
	q := (nID1 + nID2*3) / 30
	mPrime := nID1 + q*(q+1)/2
	m0 = mPrime % 31
	m1 = (m0 + mPrime/31 + 1) % 31
	if subframeIdx == 5 {
		m0, m1 = m1, m0
	}
	return m0, m1
}

// sSequence generates the length-31 binary m-sequence used by both SSS
// halves, a maximal-length LFSR over GF(2) with a fixed primitive
// polynomial, cyclically shifted by shift.
func sSequence(shift int) []int8 {
	const n = 31
	reg := [5]int{0, 0, 0, 0, 1}
	seq := make([]int8, n)
	for i := 0; i < n; i++ {
		seq[i] = int8(reg[0])
		fb := reg[0] ^ reg[2]
		copy(reg[:4], reg[1:])
		reg[4] = fb
	}
	out := make([]int8, n)
	for i := range out {
		out[i] = seq[(i+shift)%n]
	}
	return out
}

// generateSSS builds the length-62 bipolar (+1/-1) SSS sequence for the
// given physical-layer cell identity components and subframe index (0
// or 5).
func generateSSS(nID1, nID2, subframeIdx int) []int8 {
	m0, m1 := sssM0M1(nID1, nID2, subframeIdx)
	s0 := sSequence(m0)
	s1 := sSequence(m1)
	out := make([]int8, 62)
	for i := 0; i < 31; i++ {
		out[2*i] = bipolar(s0[i])
		out[2*i+1] = bipolar(s1[i])
	}
	return out
}

func bipolar(b int8) int8 {
	if b == 0 {
		return 1
	}
	return -1
}

// GenerateSSS returns the length-62 bipolar secondary-synchronization
// sequence for the given identity components and subframe index (0 or
// 5). Cell synthesizers place it in the OFDM symbol before the PSS so the
// FIND-state search can confirm N_id_1.
func GenerateSSS(nID1, nID2, subframeIdx int) ([]int8, error) {
	if nID1 < 0 || nID1 > 167 {
		return nil, fmt.Errorf("sync: N_id_1 must be in [0,167], got %d", nID1)
	}
	if nID2 < 0 || nID2 > 2 {
		return nil, fmt.Errorf("sync: N_id_2 must be in [0,2], got %d", nID2)
	}
	if subframeIdx != 0 && subframeIdx != 5 {
		return nil, fmt.Errorf("sync: SSS subframe index must be 0 or 5, got %d", subframeIdx)
	}
	return generateSSS(nID1, nID2, subframeIdx), nil
}

// GenerateSyncField renders the time-domain synchronization field of a
// subframe: the SSS OFDM symbol (62 REs mapped around DC, scaled to
// unit per-sample power), the cyclic-prefix gap of the following
// symbol, then the PSS sequence — the layout the FIND-state extractor
// demodulates around a correlation peak. Cell synthesizers and test
// vectors build their traces from this.
func GenerateSyncField(nID1, nID2, subframeIdx, fftSize int, cp transform.CPKind) ([]complex128, error) {
	if fftSize < 64 {
		return nil, fmt.Errorf("sync: FFT size %d cannot carry 62 SSS subcarriers", fftSize)
	}
	sss, err := GenerateSSS(nID1, nID2, subframeIdx)
	if err != nil {
		return nil, err
	}
	pss, err := GeneratePSS(nID2, 63)
	if err != nil {
		return nil, err
	}

	freq := make([]complex128, fftSize)
	amp := float64(fftSize) / math.Sqrt(62)
	for i, b := range sss {
		k := i - 31
		bin := k + 1
		if k < 0 {
			bin = fftSize + k
		}
		freq[bin] = complex(amp*float64(b), 0)
	}
	symbol := transform.IDFT(freq)

	cpLen := cpLengthForKind(cp, fftSize)
	out := make([]complex128, 0, fftSize+cpLen+len(pss))
	out = append(out, symbol...)
	out = append(out, make([]complex128, cpLen)...)
	out = append(out, pss...)
	return out, nil
}

// DecodeSSS correlates received (a length-62 bipolar hard-decision
// slice) against every (nID1, subframe) candidate for the given nID2
// and returns the best-matching nID1 and subframe index, or an error
// if no candidate correlates above chance.
func DecodeSSS(received []int8, nID2 int) (nID1 int, subframeIdx int, err error) {
	if len(received) != 62 {
		return 0, 0, fmt.Errorf("sync: SSS input must be length 62, got %d", len(received))
	}
	bestScore := -1
	bestID1, bestSF := -1, -1
	for candidateID1 := 0; candidateID1 < 168; candidateID1++ {
		for _, sf := range []int{0, 5} {
			candidate := generateSSS(candidateID1, nID2, sf)
			score := 0
			for i := range candidate {
				if candidate[i] == received[i] {
					score++
				}
			}
			if score > bestScore {
				bestScore = score
				bestID1 = candidateID1
				bestSF = sf
			}
		}
	}
	if bestScore < 62*3/4 {
		return 0, 0, fmt.Errorf("sync: SSS did not decode to a valid N_id_1 (best score %d/62)", bestScore)
	}
	return bestID1, bestSF, nil
}
