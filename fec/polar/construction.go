package polar

import "sort"

// bhattacharyya estimates the Bhattacharyya parameter for each of the N
// synthetic bit-channels of a BEC(erasure 0.5) using the standard
// recursive Arikan bound: Z(W-)=2Z(W)-Z(W)^2, Z(W+)=Z(W)^2. This gives
// a reliability ordering good enough to pick frozen-bit sets without
// needing a channel-specific density evolution simulation.
func bhattacharyya(n int) []float64 {
	z := make([]float64, n)
	z[0] = 0.5
	for m := 1; m < n; m *= 2 {
		for i := 0; i < m; i++ {
			zi := z[i]
			z[i] = 2*zi - zi*zi
			z[i+m] = zi * zi
		}
	}
	return z
}

// FrozenSet returns the N-K indices (sorted ascending) to freeze to
// zero for an (N,K) polar code: the least-reliable synthetic channels,
// i.e. those with the largest Bhattacharyya parameter.
func FrozenSet(n, k int) []int {
	z := bhattacharyya(n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Sort by descending unreliability (larger Z = less reliable);
	// the first N-K of those are frozen.
	sort.Slice(idx, func(a, b int) bool { return z[idx[a]] > z[idx[b]] })
	frozen := append([]int(nil), idx[:n-k]...)
	sort.Ints(frozen)
	return frozen
}

// InfoSet returns the complement of FrozenSet: the K most reliable
// positions, sorted ascending, which carry the information (plus any
// CRC) bits.
func InfoSet(n, k int) []int {
	frozen := make(map[int]bool)
	for _, f := range FrozenSet(n, k) {
		frozen[f] = true
	}
	info := make([]int, 0, k)
	for i := 0; i < n; i++ {
		if !frozen[i] {
			info = append(info, i)
		}
	}
	return info
}
