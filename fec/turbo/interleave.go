package turbo

// Interleaver generates the pseudo-random bit permutation between the
// two RSC constituent encoders. The 3GPP standard uses a fixed QPP
// (quadratic permutation polynomial) table per block size; this
// generalizes it to arbitrary block lengths with a deterministic
// quadratic permutation, trading exact 3GPP table conformance for
// closure over any K (on-air interop with a real 3GPP QPP table is out
// of scope for this core).
type Interleaver struct {
	perm []int
}

// NewInterleaver builds the permutation for a block of length n.
func NewInterleaver(n int) *Interleaver {
	perm := make([]int, n)
	// f1, f2 chosen odd/even per QPP constraints so the map is a bijection
	// modulo n for the odd factor, adjusted to guarantee a permutation.
	f1 := 2*((n/4)%((n+1)/2)) + 1
	f2 := 2 * (n / 8 % n)
	for i := 0; i < n; i++ {
		perm[i] = ((f1*i + f2*i*i) % n)
	}
	if !isPermutation(perm) {
		// Fall back to a simple, always-valid bit-reversal-style
		// permutation if the quadratic map degenerates for this n.
		perm = bitReversalPermutation(n)
	}
	return &Interleaver{perm: perm}
}

func isPermutation(p []int) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func bitReversalPermutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	// Stable, deterministic shuffle: reverse within blocks of decreasing
	// size so no two block lengths in the NR/LTE range collide.
	for blk := n; blk > 1; blk /= 2 {
		for start := 0; start+blk <= n; start += blk {
			for i, j := start, start+blk-1; i < j; i, j = i+1, j-1 {
				perm[i], perm[j] = perm[j], perm[i]
			}
		}
	}
	return perm
}

// Permute returns a new slice with bits reordered by the interleaver.
func (il *Interleaver) Permute(bits []byte) []byte {
	out := make([]byte, len(bits))
	for i, p := range il.perm {
		out[i] = bits[p]
	}
	return out
}

// Deinterleave inverts Permute.
func (il *Interleaver) Deinterleave(bits []byte) []byte {
	out := make([]byte, len(bits))
	for i, p := range il.perm {
		out[p] = bits[i]
	}
	return out
}

// PermuteInt16 reorders quantized LLR values the same way Permute
// reorders bits.
func (il *Interleaver) PermuteInt16(llr []int16) []int16 {
	out := make([]int16, len(llr))
	for i, p := range il.perm {
		out[i] = llr[p]
	}
	return out
}

// DeinterleaveInt16 inverts PermuteInt16.
func (il *Interleaver) DeinterleaveInt16(llr []int16) []int16 {
	out := make([]int16, len(llr))
	for i, p := range il.perm {
		out[p] = llr[i]
	}
	return out
}

// PermuteLLR reorders float LLR values the same way Permute reorders bits.
func (il *Interleaver) PermuteLLR(llr []float64) []float64 {
	out := make([]float64, len(llr))
	for i, p := range il.perm {
		out[i] = llr[p]
	}
	return out
}

// DeinterleaveLLR inverts PermuteLLR.
func (il *Interleaver) DeinterleaveLLR(llr []float64) []float64 {
	out := make([]float64, len(llr))
	for i, p := range il.perm {
		out[p] = llr[i]
	}
	return out
}
