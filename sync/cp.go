package sync

import (
	"math"
	"math/cmplx"

	"github.com/ransys/phycore/transform"
)

// InferCPKind compares cyclic-prefix autocorrelation energy at the
// normal-CP and extended-CP symbol boundaries and returns whichever
// hypothesis produced the larger correlation, the FIND-state CP-length
// inference used at FIND-state lock.
func InferCPKind(samples []complex128, fftSize int) transform.CPKind {
	normalEnergy := cpAutocorrEnergy(samples, fftSize, fftSize*144/2048)
	extendedEnergy := cpAutocorrEnergy(samples, fftSize, fftSize/4)
	if extendedEnergy > normalEnergy {
		return transform.CPExtended
	}
	return transform.CPNormal
}

// cpAutocorrEnergy sums |sum_n x[n] * conj(x[n+fftSize])|^2 over a
// cpLen-sample window at the start of samples, the correlation a
// cyclic prefix of length cpLen produces against the tail of its own
// symbol.
func cpAutocorrEnergy(samples []complex128, fftSize, cpLen int) float64 {
	if cpLen <= 0 || len(samples) < fftSize+cpLen {
		return 0
	}
	var acc complex128
	for n := 0; n < cpLen; n++ {
		acc += samples[n] * cmplx.Conj(samples[n+fftSize])
	}
	m := cmplx.Abs(acc)
	return m * m
}

// FractionalCFOFromCP estimates the fractional carrier frequency offset
// from the phase of the cyclic-prefix autocorrelation: a CP of length
// cpLen correlated against its source symbol's tail carries phase
// -2*pi*f*fftSize (f in cycles per sample), which is inverted here to
// recover the normalized fractional CFO in cycles per sample.
func FractionalCFOFromCP(samples []complex128, fftSize, cpLen int) float64 {
	if cpLen <= 0 || len(samples) < fftSize+cpLen {
		return 0
	}
	var acc complex128
	for n := 0; n < cpLen; n++ {
		acc += samples[n] * cmplx.Conj(samples[n+fftSize])
	}
	phase := cmplx.Phase(acc)
	return -phase / (2 * math.Pi * float64(fftSize))
}
