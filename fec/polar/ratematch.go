package polar

// subBlockInterleaverPattern is the fixed 32-entry NR sub-block
// interleaver pattern (3GPP TS 38.212 table 5.4.1.1-1), used to
// permute the N coded bits in 32 sub-blocks before rate matching.
var subBlockInterleaverPattern = [32]int{
	0, 1, 2, 4, 3, 5, 6, 7, 8, 16, 9, 17, 10, 18, 11, 19,
	12, 20, 13, 21, 14, 22, 15, 23, 24, 25, 26, 28, 27, 29, 30, 31,
}

// SubBlockInterleave permutes an N-bit codeword through the 32 sub-block
// pattern (N must be a multiple of 32 for N>=32, which holds for every
// ValidN size).
func SubBlockInterleave(x []byte) []byte {
	n := len(x)
	blockSize := n / 32
	out := make([]byte, n)
	for j := 0; j < 32; j++ {
		srcBlock := subBlockInterleaverPattern[j]
		copy(out[j*blockSize:(j+1)*blockSize], x[srcBlock*blockSize:(srcBlock+1)*blockSize])
	}
	return out
}

// SubBlockDeinterleave inverts SubBlockInterleave.
func SubBlockDeinterleave(y []byte) []byte {
	n := len(y)
	blockSize := n / 32
	out := make([]byte, n)
	for j := 0; j < 32; j++ {
		destBlock := subBlockInterleaverPattern[j]
		copy(out[destBlock*blockSize:(destBlock+1)*blockSize], y[j*blockSize:(j+1)*blockSize])
	}
	return out
}

// Scheme selects between puncturing, shortening, and repetition.
type Scheme int

const (
	SchemePuncture Scheme = iota
	SchemeShorten
	SchemeRepeat
)

// SelectScheme picks the rate-matching flavor: puncture when
// 16*K <= 7*E, otherwise shorten. Repetition is selected separately
// whenever E > N (more channel bits available than coded bits).
func SelectScheme(n, k, e int) Scheme {
	if e > n {
		return SchemeRepeat
	}
	if 16*k <= 7*e {
		return SchemePuncture
	}
	return SchemeShorten
}

// Match rate-matches an interleaved N-bit codeword to E bits per the
// scheme selected by SelectScheme for (N, K, E): puncturing drops the
// first N-E bits, shortening omits the last N-E bits on transmit (the
// receive side restores them as known zeros), and repetition wraps
// modulo N, duplicating bits to fill E.
func Match(interleaved []byte, k, e int) []byte {
	n := len(interleaved)
	switch SelectScheme(n, k, e) {
	case SchemeRepeat:
		out := make([]byte, e)
		for i := 0; i < e; i++ {
			out[i] = interleaved[i%n]
		}
		return out
	case SchemeShorten:
		return interleaved[:e]
	default: // puncture: drop the first N-E bits
		return interleaved[n-e:]
	}
}

// Dematch inverts Match, producing N soft LLR values (one per coded
// bit) from E received LLRs: punctured/shortened positions that were
// never transmitted are filled with a neutral (puncture) or
// confidently-zero (shorten, +inf-like large positive LLR convention:
// bit is known to be 0) value; repeated positions are soft-combined.
func Dematch(received []float64, n int, scheme Scheme, shortenZeroLLR float64) []float64 {
	out := make([]float64, n)
	e := len(received)
	switch scheme {
	case SchemeRepeat:
		for i, v := range received {
			out[i%n] += v
		}
	case SchemeShorten:
		for i := range out {
			out[i] = shortenZeroLLR
		}
		copy(out, received)
	default: // puncture
		start := n - e
		for i := range out[:start] {
			out[i] = 0 // unknown bit, neutral LLR
		}
		copy(out[start:], received)
	}
	return out
}
