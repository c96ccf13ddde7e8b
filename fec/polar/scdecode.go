package polar

import "math"

// fCombine is the standard min-sum approximation of the SC decoder's
// "f" check-node update: the LLR of v1[i] given both channel
// observations of a G2 butterfly.
func fCombine(a, b float64) float64 {
	sign := 1.0
	if (a < 0) != (b < 0) {
		sign = -1.0
	}
	abs := math.Abs(a)
	if math.Abs(b) < abs {
		abs = math.Abs(b)
	}
	return sign * abs
}

// gCombine is the SC decoder's "g" bit-node update: the LLR of v2[i]
// given both channel observations and the already-decided v1[i].
func gCombine(a, b float64, v1 byte) float64 {
	if v1 == 0 {
		return b + a
	}
	return b - a
}

// decideFunc resolves the hard decision for one synthetic bit-channel
// at the given global (natural, 0..N-1) index.
type decideFunc func(globalIdx int, llr float64) byte

// scRecurse implements the Arikan successive-cancellation recursion
// matching Encode's bottom-up butterfly: it returns both the
// decoded message bits u and their re-encoded codeword v = Encode(u),
// the latter needed by the parent call's g-update.
func scRecurse(llr []float64, globalOffset int, decide decideFunc) (u, v []byte) {
	n := len(llr)
	if n == 1 {
		bit := decide(globalOffset, llr[0])
		return []byte{bit}, []byte{bit}
	}

	half := n / 2
	a, b := llr[:half], llr[half:]

	fLLR := make([]float64, half)
	for i := range fLLR {
		fLLR[i] = fCombine(a[i], b[i])
	}
	leftU, leftV := scRecurse(fLLR, globalOffset, decide)

	gLLR := make([]float64, half)
	for i := range gLLR {
		gLLR[i] = gCombine(a[i], b[i], leftV[i])
	}
	rightU, rightV := scRecurse(gLLR, globalOffset+half, decide)

	u = append(append([]byte(nil), leftU...), rightU...)
	v = make([]byte, n)
	for i := 0; i < half; i++ {
		v[i] = leftV[i] ^ rightV[i]
		v[half+i] = rightV[i]
	}
	return u, v
}

// Decode runs a plain successive-cancellation decode: frozen is the set
// of globally-frozen indices (see FrozenSet). Returns the full N-length
// decoded bit vector (frozen positions included, always 0).
func Decode(llr []float64, frozen []int) []byte {
	frozenSet := make(map[int]bool, len(frozen))
	for _, f := range frozen {
		frozenSet[f] = true
	}
	decide := func(idx int, x float64) byte {
		if frozenSet[idx] {
			return 0
		}
		if x < 0 {
			return 1
		}
		return 0
	}
	u, _ := scRecurse(llr, 0, decide)
	return u
}
