package turbo

import (
	"math"

	"github.com/ransys/phycore/bitvec"
	"github.com/ransys/phycore/fec/crc"
)

// metricFloor marks an unreachable trellis state. Saturating adds can
// only reach it by underflow, which prunes the path — the desired
// behavior for a metric that has fallen off the bottom of the range.
const metricFloor = math.MinInt16

type transition struct {
	nextState int
	xs, xp    int16 // BPSK-mapped systematic/parity symbols, +1 for bit 0
}

// trellis[state][u] gives the transition taken from state on input u.
var trellis [NumStates][2]transition

func init() {
	for s := 0; s < NumStates; s++ {
		for u := 0; u < 2; u++ {
			sOut, pOut, ns := rscStep(uint32(s), uint32(u))
			trellis[s][u] = transition{
				nextState: int(ns),
				xs:        bpsk(sOut),
				xp:        bpsk(pOut),
			}
		}
	}
}

func bpsk(bit uint32) int16 {
	if bit == 0 {
		return 1
	}
	return -1
}

func satAdd(a, b int16) int16 { return bitvec.SatAddInt16(a, b) }

func satSub(a, b int16) int16 {
	if b == math.MinInt16 {
		return satAdd(a, math.MaxInt16)
	}
	return satAdd(a, -b)
}

// halfWeighted returns sign*v/2 without overflow; the halving keeps
// the three branch-metric terms inside int16 before they are summed.
func halfWeighted(sign, v int16) int16 {
	h := v / 2
	if sign < 0 {
		return -h
	}
	return h
}

// renormalize re-centers one trellis step's metrics so the best state
// sits at zero, keeping the saturating arithmetic away from the rails.
func renormalize(m *[NumStates]int16) {
	best := int16(metricFloor)
	for _, v := range m {
		if v > best {
			best = v
		}
	}
	if best == metricFloor || best == 0 {
		return
	}
	for s := range m {
		if m[s] != metricFloor {
			m[s] = satSub(m[s], best)
		}
	}
}

// componentDecode runs one max-log-MAP BCJR pass over a single RSC
// constituent code in saturating int16 arithmetic, given quantized
// channel LLRs for the systematic and parity streams and an a-priori
// LLR per bit (the other decoder's extrinsic information from the
// previous iteration). It returns the extrinsic LLR to hand to the
// other component decoder.
func componentDecode(sysLLR, parityLLR, apriori []int16) []int16 {
	n := len(sysLLR)

	alpha := make([][NumStates]int16, n+1)
	beta := make([][NumStates]int16, n+1)
	for s := 1; s < NumStates; s++ {
		alpha[0][s] = metricFloor
	}
	// The encoder is not trellis-terminated, so every end state is
	// equally acceptable: beta[n] stays uniform (all zero).

	// Branch metric in the positive-means-bit-0 convention shared with
	// the channel LLRs: the BPSK symbol for each stream weights its LLR,
	// and the a-priori term weights the hypothesized input the same way.
	// Each term is halved individually so their saturating sum stays in
	// range.
	gamma := func(k, s, u int) int16 {
		tr := trellis[s][u]
		g := satAdd(halfWeighted(tr.xs, sysLLR[k]), halfWeighted(tr.xp, parityLLR[k]))
		return satAdd(g, halfWeighted(bpsk(uint32(u)), apriori[k]))
	}

	for k := 0; k < n; k++ {
		var next [NumStates]int16
		for s := range next {
			next[s] = metricFloor
		}
		for s := 0; s < NumStates; s++ {
			if alpha[k][s] == metricFloor {
				continue
			}
			for u := 0; u < 2; u++ {
				tr := trellis[s][u]
				cand := satAdd(alpha[k][s], gamma(k, s, u))
				if cand > next[tr.nextState] {
					next[tr.nextState] = cand
				}
			}
		}
		renormalize(&next)
		alpha[k+1] = next
	}

	for k := n - 1; k >= 0; k-- {
		var prev [NumStates]int16
		for s := range prev {
			prev[s] = metricFloor
		}
		for s := 0; s < NumStates; s++ {
			for u := 0; u < 2; u++ {
				tr := trellis[s][u]
				if beta[k+1][tr.nextState] == metricFloor {
					continue
				}
				cand := satAdd(beta[k+1][tr.nextState], gamma(k, s, u))
				if cand > prev[s] {
					prev[s] = cand
				}
			}
		}
		renormalize(&prev)
		beta[k] = prev
	}

	extrinsic := make([]int16, n)
	for k := 0; k < n; k++ {
		best1, best0 := int16(metricFloor), int16(metricFloor)
		for s := 0; s < NumStates; s++ {
			if alpha[k][s] == metricFloor {
				continue
			}
			for u := 0; u < 2; u++ {
				tr := trellis[s][u]
				if beta[k+1][tr.nextState] == metricFloor {
					continue
				}
				full := satAdd(satAdd(alpha[k][s], gamma(k, s, u)), beta[k+1][tr.nextState])
				if u == 1 {
					if full > best1 {
						best1 = full
					}
				} else if full > best0 {
					best0 = full
				}
			}
		}
		llr := satSub(best0, best1)
		// Extrinsic: subtract the channel systematic contribution and
		// the a-priori input so the other decoder gets only new
		// information (standard turbo exchange).
		extrinsic[k] = satSub(satSub(llr, sysLLR[k]), apriori[k])
	}
	return extrinsic
}

// MaxIterations bounds the turbo decoder's iteration count.
const MaxIterations = 8

// DecodeResult carries the decoder's hard decision and diagnostics.
type DecodeResult struct {
	Bits       []byte
	Iterations int
	CRCOK      bool
}

// Decode runs iterative max-log-MAP turbo decoding. sysLLR, parity1LLR,
// and parity2LLR are channel LLRs for the systematic bit stream and the
// two encoders' parity streams (parity2LLR is in natural, not
// interleaved, order — Decode interleaves internally). The float
// inputs are quantized once to saturating int16, and every inner loop
// runs in that representation. After each iteration the tentative hard
// decision is CRC-checked; the loop exits early on success. A fresh
// crc.CRC must be supplied matching the one used by Encode's caller to
// attach the transport/code-block CRC; pass nil to always run the full
// MaxIterations.
func Decode(sysLLR, parity1LLR, parity2LLR []float64, il *Interleaver, c *crc.CRC) DecodeResult {
	sys := bitvec.QuantizeVectorInt16(sysLLR, 1)
	parity1 := bitvec.QuantizeVectorInt16(parity1LLR, 1)
	parity2 := bitvec.QuantizeVectorInt16(parity2LLR, 1)
	n := len(sys)
	apriori1 := make([]int16, n)

	var iterations int
	for iter := 0; iter < MaxIterations; iter++ {
		iterations = iter + 1
		extrinsic1 := componentDecode(sys, parity1, apriori1)

		sysInterleaved := il.PermuteInt16(sys)
		apriori2 := il.PermuteInt16(extrinsic1)
		extrinsic2 := componentDecode(sysInterleaved, parity2, apriori2)

		apriori1 = il.DeinterleaveInt16(extrinsic2)

		if c != nil {
			hard := hardDecision(sys, apriori1, extrinsic1)
			if _, ok := c.Check(hard); ok {
				return DecodeResult{Bits: hard, Iterations: iterations, CRCOK: true}
			}
		}
		// Fixed normalization every iteration: re-center the a-priori
		// LLRs so repeated exchange doesn't let the metrics drift.
		normalize(apriori1)
	}

	hard := hardDecision(sys, apriori1, nil)
	ok := false
	if c != nil {
		_, ok = c.Check(hard)
	}
	return DecodeResult{Bits: hard, Iterations: iterations, CRCOK: ok}
}

func hardDecision(sysLLR, apriori1, extrinsic1 []int16) []byte {
	n := len(sysLLR)
	out := make([]byte, n)
	for k := 0; k < n; k++ {
		total := satAdd(sysLLR[k], apriori1[k])
		if extrinsic1 != nil {
			total = satAdd(total, extrinsic1[k])
		}
		if total < 0 {
			out[k] = 1
		}
	}
	return out
}

func normalize(llr []int16) {
	if len(llr) == 0 {
		return
	}
	var sum int64
	for _, v := range llr {
		sum += int64(v)
	}
	mean := int16(sum / int64(len(llr)))
	for i := range llr {
		llr[i] = satSub(llr[i], mean)
	}
}
