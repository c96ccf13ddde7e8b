package uci

import (
	"math"

	"github.com/ransys/phycore/transform"
)

// ackColumnsNormalCP and riColumns are the fixed channel-interleaver
// columns ACK and RI bits occupy on PUSCH, independent of M_sc.
var ackColumnsNormalCP = [4]int{2, 3, 8, 9}
var riColumns = [4]int{1, 4, 7, 10}

// BetaOffsets scales each UCI class's rate-matched length.
type BetaOffsets struct {
	ACK float64
	RI  float64
	CQI float64
}

// QPrimeUCI computes Q'_UCI = ceil(O * Msc * Nsymb * beta / kULSCH),
// capped at puschREs.
func QPrimeUCI(o int, msc, nsymb int, beta float64, kULSCH int, puschREs int) int {
	if kULSCH <= 0 {
		return 0
	}
	q := int(math.Ceil(float64(o) * float64(msc) * float64(nsymb) * beta / float64(kULSCH)))
	if q > puschREs {
		q = puschREs
	}
	if q < 0 {
		q = 0
	}
	return q
}

// MultiplexedPUSCH lays out UCI and data across PUSCH REs for one
// code block's channel-interleaver triangle.
type MultiplexedPUSCH struct {
	Bits []byte // length = triangle's row-then-column read order
}

// Multiplex places ack/ri bits at their fixed columns (ACK at
// ackColumnsNormalCP for normal CP, RI at riColumns) and fills the
// remaining triangle positions with cqi then data bits in write order,
// then applies the uplink triangular interleaver (reusing ratematch's
// construction) to produce the final PUSCH RE order.
func Multiplex(ack, ri, cqi, data []byte) []byte {
	total := len(ack) + len(ri) + len(cqi) + len(data)
	t := triangularSize(total)
	triangle := make([][]byte, t)
	for r := range triangle {
		triangle[r] = make([]byte, r+1)
	}
	occupied := make([][]bool, t)
	for r := range occupied {
		occupied[r] = make([]bool, r+1)
	}

	placeAtColumns(triangle, occupied, t, ackColumnsNormalCP[:], ack)
	placeAtColumns(triangle, occupied, t, riColumns[:], ri)

	remaining := append(append([]byte{}, cqi...), data...)
	idx := 0
	for c := 0; c < t && idx < len(remaining); c++ {
		for r := c; r < t && idx < len(remaining); r++ {
			if occupied[r][c] {
				continue
			}
			triangle[r][c] = remaining[idx]
			occupied[r][c] = true
			idx++
		}
	}

	out := make([]byte, 0, total)
	for r := 0; r < t; r++ {
		for c := 0; c <= r; c++ {
			if occupied[r][c] {
				out = append(out, triangle[r][c])
			}
		}
	}
	return out
}

func placeAtColumns(triangle [][]byte, occupied [][]bool, t int, columns []int, bits []byte) {
	idx := 0
	for _, col := range columns {
		if col >= t || idx >= len(bits) {
			continue
		}
		for row := col; row < t && idx < len(bits); row++ {
			triangle[row][col] = bits[idx]
			occupied[row][col] = true
			idx++
		}
	}
}

func triangularSize(e int) int {
	tt := 0
	for tt*(tt+1)/2 < e {
		tt++
	}
	return tt
}

// CPKind re-exports transform.CPKind so callers of this package don't
// need to import transform directly for the normal/extended distinction.
type CPKind = transform.CPKind
