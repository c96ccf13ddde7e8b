// Package sync implements the three-state cell-synchronization engine
// for cell search: AGC/FIND/TRACK with PSS cross-correlation search,
// SSS decode, CP-kind inference, and TRACK-state EMA tracking of
// sample offset and fractional CFO.
package sync

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/ransys/phycore/transform"
)

// rootValue gives the Zadoff-Chu root index for each N_id_2, the same
// three roots {25, 29, 34} used by the LTE primary synchronization
// signal.
var rootValue = [3]float64{25, 29, 34}

// GeneratePSS returns the length-63 (DC-punctured to length) Zadoff-Chu
// primary synchronization sequence for nID2, the time-domain correlator
// template FIND-state search tests each candidate against.
func GeneratePSS(nID2 int, length int) ([]complex128, error) {
	if nID2 < 0 || nID2 > 2 {
		return nil, fmt.Errorf("sync: N_id_2 must be in [0,2], got %d", nID2)
	}
	if length <= 0 {
		return nil, fmt.Errorf("sync: PSS length must be positive, got %d", length)
	}
	root := rootValue[nID2]
	out := make([]complex128, length)
	for n := 0; n < length; n++ {
		var arg float64
		if n <= 30 {
			arg = -math.Pi * root * float64(n) * float64(n+1) / 63.0
		} else {
			arg = -math.Pi * root * float64(n+1) * float64(n+2) / 63.0
		}
		out[n] = cmplx.Exp(complex(0, arg))
	}
	return out, nil
}

// CorrelationResult is the outcome of cross-correlating a received
// window against a PSS template: the peak sample position, peak
// magnitude, and peak-to-side-lobe ratio.
type CorrelationResult struct {
	PeakIndex int
	PeakValue float64
	PSR       float64
}

// CrossCorrelate slides template across samples (full linear
// correlation via zero-padded DFT, reusing the same convolution
// primitive the OFDM symbol correlator needs) and reports the peak
// position/value/PSR.
func CrossCorrelate(samples, template []complex128) CorrelationResult {
	conjRev := make([]complex128, len(template))
	for i, t := range template {
		conjRev[len(template)-1-i] = cmplx.Conj(t)
	}
	full := transform.ConvolveFull(samples, conjRev)

	mags := make([]float64, len(full))
	var sumSq, peak float64
	peakIdx := 0
	for i, z := range full {
		m := cmplx.Abs(z)
		mags[i] = m
		sumSq += m * m
		if m > peak {
			peak = m
			peakIdx = i
		}
	}

	meanSq := 0.0
	if len(mags) > 0 {
		meanSq = sumSq / float64(len(mags))
	}
	sideLobe := math.Sqrt(meanSq)
	psr := 0.0 // an all-zero correlation has no peak
	if sideLobe > 0 {
		psr = peak / sideLobe
	}
	return CorrelationResult{PeakIndex: peakIdx, PeakValue: peak, PSR: psr}
}
