// Package channel provides a deterministic AWGN test channel for
// driving the scenario-style SNR tests the rest of the stack relies
// on.
package channel

import (
	"math"
	"math/rand"
)

// AWGN is a complex additive-white-Gaussian-noise channel with a
// seeded generator, so impaired test vectors are reproducible.
type AWGN struct {
	rng    *rand.Rand
	stdDev float64
}

// NewAWGN constructs a channel seeded deterministically.
func NewAWGN(seed uint64) *AWGN {
	return &AWGN{rng: rand.New(rand.NewSource(int64(seed))), stdDev: 0}
}

// SetN0 sets the noise level in dBFS (decibels full scale, a 0 dBFS
// reference corresponding to unit signal power).
func (a *AWGN) SetN0(n0DBFS float64) {
	a.stdDev = math.Sqrt(math.Pow(10, n0DBFS/10))
}

// SetVariance sets the noise variance directly.
func (a *AWGN) SetVariance(variance float64) {
	a.stdDev = math.Sqrt(variance)
}

// RunComplex perturbs in with complex circularly-symmetric Gaussian
// noise of the configured standard deviation, split evenly between I
// and Q.
func (a *AWGN) RunComplex(in []complex128) []complex128 {
	out := make([]complex128, len(in))
	perRail := a.stdDev / math.Sqrt2
	for i, z := range in {
		out[i] = z + complex(a.rng.NormFloat64()*perRail, a.rng.NormFloat64()*perRail)
	}
	return out
}

// RunReal perturbs in with real Gaussian noise of the configured
// standard deviation.
func (a *AWGN) RunReal(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = v + a.rng.NormFloat64()*a.stdDev
	}
	return out
}

// VarianceFromEbNo computes the noise variance for a target Eb/N0 (dB)
// at the given code rate: for unit-energy symbols,
// N0 = 1 / (rate * 10^(EbNo/10)).
func VarianceFromEbNo(ebNoDB, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	ebNoLinear := math.Pow(10, ebNoDB/10)
	return 1.0 / (rate * ebNoLinear)
}
