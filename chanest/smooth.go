package chanest

import "fmt"

// MaxFIRTaps is the largest frequency-direction smoothing filter this
// package accepts.
const MaxFIRTaps = 9

// NewTriangularFIR returns a normalized triangular smoothing filter of
// the given odd length (coefficients sum to 1),
// the simplest FIR shape that weights the center pilot most heavily.
func NewTriangularFIR(taps int) ([]float64, error) {
	if taps <= 0 || taps > MaxFIRTaps || taps%2 == 0 {
		return nil, fmt.Errorf("chanest: FIR taps must be odd in [1,%d], got %d", MaxFIRTaps, taps)
	}
	half := taps / 2
	coef := make([]float64, taps)
	var sum float64
	for i := 0; i < taps; i++ {
		w := float64(half+1) - absInt(i-half)
		coef[i] = w
		sum += w
	}
	for i := range coef {
		coef[i] /= sum
	}
	return coef, nil
}

func absInt(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}

// SmoothFrequency convolves est with a symmetric FIR whose coefficients
// sum to 1, linearly extrapolating into taps that fall outside the
// estimated range.
func SmoothFrequency(est []complex128, coef []float64) ([]complex128, error) {
	n := len(est)
	if n == 0 {
		return nil, nil
	}
	taps := len(coef)
	if taps == 0 || taps%2 == 0 {
		return nil, fmt.Errorf("chanest: FIR must have an odd nonzero length, got %d", taps)
	}
	half := taps / 2

	extended := make([]complex128, n+2*half)
	copy(extended[half:half+n], est)
	for i := 0; i < half; i++ {
		extended[half-1-i] = extrapolate(est, -1-i)
		extended[half+n+i] = extrapolate(est, n+i)
	}

	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		var acc complex128
		for k := 0; k < taps; k++ {
			acc += complex(coef[k], 0) * extended[i+k]
		}
		out[i] = acc
	}
	return out, nil
}

// extrapolate linearly extends est to virtual index idx (idx < 0 or
// idx >= len(est)) using the two nearest real samples' slope.
func extrapolate(est []complex128, idx int) complex128 {
	n := len(est)
	if n == 1 {
		return est[0]
	}
	if idx < 0 {
		slope := est[1] - est[0]
		return est[0] + complex(float64(-idx), 0)*slope
	}
	slope := est[n-1] - est[n-2]
	return est[n-1] + complex(float64(idx-(n-1)), 0)*slope
}

// InterpolateTime fills a full slot's worth of per-symbol channel
// estimates by piecewise-linear vector interpolation between
// pilot-bearing symbols, linearly extrapolating boundary symbols before
// the first pilot symbol from the first two pilot symbols.
// pilotSymbols must be sorted ascending and non-empty; estimates[i] is
// the per-subcarrier estimate at pilotSymbols[i].
func InterpolateTime(numSymbols int, pilotSymbols []int, estimates [][]complex128) ([][]complex128, error) {
	if len(pilotSymbols) == 0 || len(pilotSymbols) != len(estimates) {
		return nil, fmt.Errorf("chanest: pilotSymbols/estimates length mismatch")
	}
	nSub := len(estimates[0])
	out := make([][]complex128, numSymbols)

	for sym := 0; sym < numSymbols; sym++ {
		out[sym] = make([]complex128, nSub)
		switch {
		case sym <= pilotSymbols[0]:
			if len(pilotSymbols) == 1 {
				copy(out[sym], estimates[0])
				continue
			}
			t := float64(sym-pilotSymbols[0]) / float64(pilotSymbols[1]-pilotSymbols[0])
			lerpInto(out[sym], estimates[0], estimates[1], t)
		case sym >= pilotSymbols[len(pilotSymbols)-1]:
			last := len(pilotSymbols) - 1
			if last == 0 {
				copy(out[sym], estimates[0])
				continue
			}
			t := float64(sym-pilotSymbols[last-1]) / float64(pilotSymbols[last]-pilotSymbols[last-1])
			lerpInto(out[sym], estimates[last-1], estimates[last], t)
		default:
			lo := 0
			for i := 0; i < len(pilotSymbols)-1; i++ {
				if pilotSymbols[i] <= sym && sym <= pilotSymbols[i+1] {
					lo = i
					break
				}
			}
			t := float64(sym-pilotSymbols[lo]) / float64(pilotSymbols[lo+1]-pilotSymbols[lo])
			lerpInto(out[sym], estimates[lo], estimates[lo+1], t)
		}
	}
	return out, nil
}

func lerpInto(dst, a, b []complex128, t float64) {
	for i := range dst {
		dst[i] = a[i] + complex(t, 0)*(b[i]-a[i])
	}
}
