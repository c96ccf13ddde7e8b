package phych

import (
	"fmt"
	"math"
	"math/cmplx"
)

// TxMode selects the precoder/predecoder pair. The three modes
// share the rest of the pipeline; only the mapping between layers and
// antenna ports differs.
type TxMode int

const (
	// TxSingle is the single-antenna pass-through.
	TxSingle TxMode = iota
	// TxDiversity is 2-port Alamouti space-frequency block coding.
	TxDiversity
	// TxSpatialMux is open-loop spatial multiplexing with identity
	// precoding, separated at the receiver by ZF or MMSE.
	TxSpatialMux
)

// Equalizer selects the per-RE predecoder on the receive side.
type Equalizer int

const (
	EqualizerZF Equalizer = iota
	EqualizerMMSE
)

// Precode maps one layer's modulation symbols onto antenna ports.
// TxSingle returns the input on a single port. TxDiversity emits the
// Alamouti pair pattern across two ports: for each symbol pair
// (s0, s1), port 0 carries (s0, s1) and port 1 carries
// (-conj(s1), conj(s0)), both scaled by 1/sqrt(2) to keep total
// transmit power constant. TxSpatialMux with nPorts layers deals
// symbols round-robin onto ports.
func Precode(symbols []complex128, mode TxMode, nPorts int) ([][]complex128, error) {
	switch mode {
	case TxSingle:
		return [][]complex128{symbols}, nil

	case TxDiversity:
		if nPorts != 2 {
			return nil, fmt.Errorf("phych: transmit diversity needs 2 ports, got %d", nPorts)
		}
		if len(symbols)%2 != 0 {
			return nil, fmt.Errorf("phych: diversity precoding needs an even symbol count, got %d", len(symbols))
		}
		scale := complex(1/math.Sqrt2, 0)
		p0 := make([]complex128, len(symbols))
		p1 := make([]complex128, len(symbols))
		for i := 0; i < len(symbols); i += 2 {
			s0, s1 := symbols[i], symbols[i+1]
			p0[i], p0[i+1] = scale*s0, scale*s1
			p1[i], p1[i+1] = -scale*cmplx.Conj(s1), scale*cmplx.Conj(s0)
		}
		return [][]complex128{p0, p1}, nil

	case TxSpatialMux:
		if nPorts < 2 {
			return nil, fmt.Errorf("phych: spatial multiplexing needs >= 2 ports, got %d", nPorts)
		}
		if len(symbols)%nPorts != 0 {
			return nil, fmt.Errorf("phych: %d symbols not divisible by %d layers", len(symbols), nPorts)
		}
		ports := make([][]complex128, nPorts)
		per := len(symbols) / nPorts
		for p := range ports {
			ports[p] = make([]complex128, per)
		}
		for i, s := range symbols {
			ports[i%nPorts][i/nPorts] = s
		}
		return ports, nil

	default:
		return nil, fmt.Errorf("phych: unknown tx mode %v", mode)
	}
}

// Predecode inverts Precode given the per-RE channel estimate for each
// (rx, port) pair and the noise variance. received holds one slice per
// receive antenna; chanEst[rx][port][i] is the coefficient seen by
// receive antenna rx from transmit port port at RE i. The ZF/MMSE
// choice only affects the denominator regularization.
func Predecode(received [][]complex128, chanEst [][][]complex128, mode TxMode, eq Equalizer, noiseVar float64) ([]complex128, error) {
	if len(received) == 0 {
		return nil, fmt.Errorf("phych: no receive antennas")
	}
	reg := 0.0
	if eq == EqualizerMMSE {
		reg = noiseVar
	}

	switch mode {
	case TxSingle:
		return predecodeSingle(received, chanEst, reg)
	case TxDiversity:
		return predecodeDiversity(received, chanEst, reg)
	case TxSpatialMux:
		return predecodeSpatialMux(received, chanEst, reg)
	default:
		return nil, fmt.Errorf("phych: unknown tx mode %v", mode)
	}
}

// predecodeSingle is per-RE maximum-ratio combining across receive
// antennas: sum(conj(h)*y) / (sum(|h|^2) + reg).
func predecodeSingle(received [][]complex128, chanEst [][][]complex128, reg float64) ([]complex128, error) {
	n := len(received[0])
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		var num complex128
		var den float64
		for rx := range received {
			h := chanEst[rx][0][i]
			num += cmplx.Conj(h) * received[rx][i]
			den += real(h)*real(h) + imag(h)*imag(h)
		}
		out[i] = safeDiv(num, den+reg)
	}
	return out, nil
}

// predecodeDiversity inverts the Alamouti pattern per RE pair. For
// each receive antenna with channel pair (h0, h1):
//
//	s0 = conj(h0)*y0 + h1*conj(y1)
//	s1 = conj(h0)*y1 - h1*conj(y0)
//
// summed across antennas and normalized by the total channel energy.
// The sqrt(2) undoes the transmit power scaling.
func predecodeDiversity(received [][]complex128, chanEst [][][]complex128, reg float64) ([]complex128, error) {
	n := len(received[0])
	if n%2 != 0 {
		return nil, fmt.Errorf("phych: diversity predecoding needs an even RE count, got %d", n)
	}
	out := make([]complex128, n)
	for i := 0; i < n; i += 2 {
		var s0, s1 complex128
		var energy float64
		for rx := range received {
			h0 := chanEst[rx][0][i]
			h1 := chanEst[rx][1][i]
			y0, y1 := received[rx][i], received[rx][i+1]
			s0 += cmplx.Conj(h0)*y0 + h1*cmplx.Conj(y1)
			s1 += cmplx.Conj(h0)*y1 - h1*cmplx.Conj(y0)
			energy += real(h0)*real(h0) + imag(h0)*imag(h0) + real(h1)*real(h1) + imag(h1)*imag(h1)
		}
		scale := complex(math.Sqrt2, 0)
		out[i] = scale * safeDiv(s0, energy+reg)
		out[i+1] = scale * safeDiv(s1, energy+reg)
	}
	return out, nil
}

// predecodeSpatialMux solves the 2x2 per-RE system H*x = y with a
// regularized matrix inverse, then re-interleaves the layers into the
// original symbol order. Only the 2-layer case is supported; 4-layer
// grids fall back to pairwise 2x2 solves on (port 2k, port 2k+1).
func predecodeSpatialMux(received [][]complex128, chanEst [][][]complex128, reg float64) ([]complex128, error) {
	if len(received) < 2 {
		return nil, fmt.Errorf("phych: spatial multiplexing needs >= 2 receive antennas, got %d", len(received))
	}
	nPorts := len(chanEst[0])
	if nPorts%2 != 0 {
		return nil, fmt.Errorf("phych: spatial multiplexing needs an even port count, got %d", nPorts)
	}
	n := len(received[0])
	out := make([]complex128, 0, n*nPorts)
	layers := make([][]complex128, nPorts)
	for l := range layers {
		layers[l] = make([]complex128, n)
	}

	for pair := 0; pair < nPorts; pair += 2 {
		for i := 0; i < n; i++ {
			// 2x2 MMSE: x = (H^H H + reg*I)^-1 H^H y, over the first two
			// receive antennas.
			h00 := chanEst[0][pair][i]
			h01 := chanEst[0][pair+1][i]
			h10 := chanEst[1][pair][i]
			h11 := chanEst[1][pair+1][i]
			y0, y1 := received[0][i], received[1][i]

			// H^H H + reg*I
			a := cmplx.Conj(h00)*h00 + cmplx.Conj(h10)*h10 + complex(reg, 0)
			b := cmplx.Conj(h00)*h01 + cmplx.Conj(h10)*h11
			c := cmplx.Conj(h01)*h00 + cmplx.Conj(h11)*h10
			d := cmplx.Conj(h01)*h01 + cmplx.Conj(h11)*h11 + complex(reg, 0)

			// H^H y
			g0 := cmplx.Conj(h00)*y0 + cmplx.Conj(h10)*y1
			g1 := cmplx.Conj(h01)*y0 + cmplx.Conj(h11)*y1

			det := a*d - b*c
			layers[pair][i] = safeDivC(d*g0-b*g1, det)
			layers[pair+1][i] = safeDivC(a*g1-c*g0, det)
		}
	}

	// Undo the round-robin layer mapping of Precode.
	for i := 0; i < n; i++ {
		for l := 0; l < nPorts; l++ {
			out = append(out, layers[l][i])
		}
	}
	return out, nil
}

func safeDiv(num complex128, den float64) complex128 {
	if den == 0 {
		return 0
	}
	return num / complex(den, 0)
}

func safeDivC(num, den complex128) complex128 {
	if den == 0 {
		return 0
	}
	return num / den
}
