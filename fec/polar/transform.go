// Package polar implements the NR control-channel polar code: the
// Arikan transform encoder, a reliability-based frozen-bit
// construction, the sub-block interleaver and puncture/shorten/repeat
// rate matching, and a successive-cancellation-list decoder.
package polar

import "fmt"

// ValidN reports whether n is a supported polar mother code size.
func ValidN(n int) bool {
	return n >= 32 && n <= 1024 && n&(n-1) == 0
}

// Encode applies the Arikan transform G_N = F^(kron n) to u (length N,
// 0/1 valued, frozen positions already set to 0) and returns the N-bit
// codeword.
func Encode(u []byte) ([]byte, error) {
	n := len(u)
	if !ValidN(n) {
		return nil, fmt.Errorf("polar: invalid N=%d", n)
	}
	x := make([]byte, n)
	copy(x, u)
	for step := 1; step < n; step *= 2 {
		for base := 0; base < n; base += step * 2 {
			for i := 0; i < step; i++ {
				a, b := x[base+i], x[base+i+step]
				x[base+i] = a ^ b
			}
		}
	}
	return x, nil
}
