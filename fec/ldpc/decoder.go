package ldpc

import (
	"math"

	"github.com/ransys/phycore/fec/crc"
)

// MaxIterations bounds the layered decoder.
const MaxIterations = 8

// offsetBeta is the offset subtracted from the min-sum magnitude, the
// standard correction that brings min-sum close to true sum-product
// belief propagation.
const offsetBeta = 0.5

// DecodeResult carries the decoder's hard decision and diagnostics.
type DecodeResult struct {
	Bits       []byte
	Iterations int
	CRCOK      bool
}

// Decode runs the layered offset-min-sum decoder over channel LLRs
// (length CodeBits()). check, if non-nil, CRC-checks the decoded
// information bits after every layer sweep and stops early on success.
func (c *Config) Decode(channelLLR []float64, check *crc.CRC) DecodeResult {
	h := c.liftedH()
	rowCols := nonzeroCols(h)
	k := c.InfoBits()

	llr := append([]float64(nil), channelLLR...)
	// Per-check-node-to-variable-node messages, indexed [row][position
	// within that row's nonzero column list].
	msgs := make([][]float64, len(rowCols))
	for r := range msgs {
		msgs[r] = make([]float64, len(rowCols[r]))
	}

	var iterations int
	for iter := 0; iter < MaxIterations; iter++ {
		iterations = iter + 1
		for r, cols := range rowCols {
			if len(cols) == 0 {
				continue
			}
			// Extrinsic (variable-to-check) values for this row.
			extr := make([]float64, len(cols))
			for i, cidx := range cols {
				extr[i] = llr[cidx] - msgs[r][i]
			}

			// Min-sum: for each output position, combine sign product
			// and the minimum magnitude over all OTHER positions in
			// the row, via first/second minimum tracking.
			minA, minB := math.Inf(1), math.Inf(1)
			minAIdx := -1
			signProd := 1.0
			for i, v := range extr {
				a := math.Abs(v)
				if v < 0 {
					signProd = -signProd
				}
				if a < minA {
					minB = minA
					minA = a
					minAIdx = i
				} else if a < minB {
					minB = a
				}
			}

			for i := range cols {
				mag := minA
				if i == minAIdx {
					mag = minB
				}
				mag -= offsetBeta
				if mag < 0 {
					mag = 0
				}
				sign := signProd
				if extr[i] < 0 {
					sign = -sign
				}
				newMsg := sign * mag
				llr[cols[i]] += newMsg - msgs[r][i]
				msgs[r][i] = newMsg
			}
		}

		if check != nil {
			hard := hardDecide(llr[:k])
			if _, ok := check.Check(hard); ok {
				return DecodeResult{Bits: hard, Iterations: iterations, CRCOK: true}
			}
		}
	}

	hard := hardDecide(llr[:k])
	ok := false
	if check != nil {
		_, ok = check.Check(hard)
	}
	return DecodeResult{Bits: hard, Iterations: iterations, CRCOK: ok}
}

func hardDecide(llr []float64) []byte {
	out := make([]byte, len(llr))
	for i, v := range llr {
		if v < 0 {
			out[i] = 1
		}
	}
	return out
}
