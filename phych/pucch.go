package phych

import "github.com/ransys/phycore/uci"

// PUCCHFormatLTE enumerates the supported LTE PUCCH formats.
type PUCCHFormatLTE int

const (
	PUCCHFormat1 PUCCHFormatLTE = iota
	PUCCHFormat1a
	PUCCHFormat1b
	PUCCHFormat2
	PUCCHFormat2a
	PUCCHFormat2b
)

// PUCCHFormatNR enumerates the NR PUCCH formats.
type PUCCHFormatNR int

const (
	PUCCHFormatNR0 PUCCHFormatNR = iota
	PUCCHFormatNR1
	PUCCHFormatNR2
	PUCCHFormatNR3
	PUCCHFormatNR4
)

// SelectPUCCHFormatLTE picks the LTE format for a payload: 1-bit ACK
// -> 1a, 2-bit ACK -> 1b, CQI-only -> 2, CQI+1-bit ACK -> 2a, CQI+2-bit
// ACK -> 2b, scheduling-request-only -> 1.
func SelectPUCCHFormatLTE(ackBits int, hasCQI, isSR bool) PUCCHFormatLTE {
	switch {
	case hasCQI && ackBits == 1:
		return PUCCHFormat2a
	case hasCQI && ackBits >= 2:
		return PUCCHFormat2b
	case hasCQI:
		return PUCCHFormat2
	case ackBits == 1:
		return PUCCHFormat1a
	case ackBits >= 2:
		return PUCCHFormat1b
	case isSR:
		return PUCCHFormat1
	default:
		return PUCCHFormat1
	}
}

// ResourceIndex derives the PUCCH resource index from the CCE index
// that granted the downlink assignment (n_CCE) plus a configured
// offset, or from a higher-layer scheduling-request index when sr is
// true (the SR index takes priority).
func ResourceIndex(nCCE, offset, srIndex int, sr bool) int {
	if sr {
		return srIndex
	}
	return nCCE + offset
}

// EncodePUCCHControl encodes a short UCI payload (the 1/2-bit ACK of
// formats 1a/1b, or a CQI word for format 2) onto PUCCH symbols:
// (32, O) block code, circular repetition to qBits, constellation
// mapping. qBits must be a multiple of the constellation's bits per
// symbol.
func EncodePUCCHControl(bits []byte, qBits int, mod Modulation) ([]complex128, error) {
	coded, err := uci.EncodeShort(bits, qBits)
	if err != nil {
		return nil, err
	}
	return Modulate(coded, mod)
}

// DecodePUCCHControl inverts EncodePUCCHControl: demap the equalized
// symbols to LLRs at the given noise variance, then ML-decode the o
// payload bits against the short-UCI block code.
func DecodePUCCHControl(symbols []complex128, mod Modulation, noiseVar float64, o int) ([]byte, error) {
	llr, err := DemapLLR(symbols, mod, noiseVar)
	if err != nil {
		return nil, err
	}
	return uci.DecodeShort(llr, o)
}
