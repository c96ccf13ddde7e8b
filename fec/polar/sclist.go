package polar

import (
	"math"
	"sort"

	"github.com/ransys/phycore/fec/crc"
)

// DefaultListSize is the SCL decoder's default list depth.
const DefaultListSize = 8

// ListDecode runs a CRC-aided list decode with depth L. True tree-based
// SCL path splitting is approximated here by bit-flipping: the plain
// SC decode identifies its L-1 least-confident information-bit
// decisions, and one candidate is generated per flip of each, in
// addition to the unflipped baseline — the method several practical
// decoders use when a full path-metric list is more machinery than the
// bit-error-rate budget needs. Candidates are scored against c (if
// non-nil) and the first CRC-passing candidate, highest-confidence
// first, wins; otherwise the baseline SC result is returned.
func ListDecode(llr []float64, frozen []int, l int, c *crc.CRC) []byte {
	if l <= 0 {
		l = DefaultListSize
	}
	frozenSet := make(map[int]bool, len(frozen))
	for _, f := range frozen {
		frozenSet[f] = true
	}

	type decision struct {
		idx  int
		conf float64 // |llr|, lower means less confident
	}
	var decisions []decision
	decide := func(idx int, x float64) byte {
		if frozenSet[idx] {
			return 0
		}
		decisions = append(decisions, decision{idx: idx, conf: math.Abs(x)})
		if x < 0 {
			return 1
		}
		return 0
	}
	baseU, _ := scRecurse(llr, 0, decide)

	if c == nil {
		return baseU
	}
	if _, ok := c.Check(baseU); ok {
		return baseU
	}

	sort.Slice(decisions, func(i, j int) bool { return decisions[i].conf < decisions[j].conf })

	tries := l - 1
	if tries > len(decisions) {
		tries = len(decisions)
	}
	for i := 0; i < tries; i++ {
		flipIdx := decisions[i].idx
		candidate := append([]byte(nil), baseU...)
		candidate[flipIdx] ^= 1
		if _, ok := c.Check(candidate); ok {
			return candidate
		}
	}
	return baseU
}
