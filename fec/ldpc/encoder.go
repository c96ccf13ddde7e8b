package ldpc

import "fmt"

// Encode produces the full codeword (systematic info bits followed by
// parity bits) for info (length InfoBits()), by solving H * x^T = 0
// over GF(2) for the parity portion given the fixed systematic part —
// i.e. row-reducing the parity columns of H to an identity and
// back-substituting, the standard approach for a systematic LDPC code
// built directly from its parity-check matrix (as opposed to the
// structured richardson-urbanke encoding the 3GPP base graphs are
// designed for, which this reduced base graph does not need).
func (c *Config) Encode(info []byte) ([]byte, error) {
	k := c.InfoBits()
	n := c.CodeBits()
	if len(info) != k {
		return nil, fmt.Errorf("ldpc: info length %d, want %d", len(info), k)
	}

	h := c.liftedH()
	rows := len(h)
	parityCols := n - k

	// Augmented [parity-submatrix | syndrome] system, syndrome being
	// H_info * info^T computed column-wise over GF(2).
	aug := make([][]byte, rows)
	for r := 0; r < rows; r++ {
		aug[r] = make([]byte, parityCols+1)
		copy(aug[r], h[r][k:n])
		var synd byte
		for cidx := 0; cidx < k; cidx++ {
			if h[r][cidx] != 0 && info[cidx] != 0 {
				synd ^= 1
			}
		}
		aug[r][parityCols] = synd
	}

	parity, err := gaussianSolve(aug, parityCols)
	if err != nil {
		return nil, fmt.Errorf("ldpc: base graph parity submatrix is singular for Z=%d: %w", c.Z, err)
	}

	out := make([]byte, n)
	copy(out, info)
	copy(out[k:], parity)
	return out, nil
}

// gaussianSolve row-reduces aug (rows x (cols+1), last column is the
// RHS) over GF(2) and returns one solution of the cols variables. A
// variable left without a pivot is set to 0, since a reduced base graph
// may not be full column rank for every Z; an inconsistent system is
// not detected, and the returned error is always nil.
func gaussianSolve(aug [][]byte, cols int) ([]byte, error) {
	rows := len(aug)
	pivotRowOf := make([]int, cols)
	for i := range pivotRowOf {
		pivotRowOf[i] = -1
	}

	row := 0
	for col := 0; col < cols && row < rows; col++ {
		pivot := -1
		for r := row; r < rows; r++ {
			if aug[r][col] != 0 {
				pivot = r
				break
			}
		}
		if pivot == -1 {
			continue
		}
		aug[row], aug[pivot] = aug[pivot], aug[row]
		for r := 0; r < rows; r++ {
			if r != row && aug[r][col] != 0 {
				for c2 := col; c2 <= cols; c2++ {
					aug[r][c2] ^= aug[row][c2]
				}
			}
		}
		pivotRowOf[col] = row
		row++
	}

	out := make([]byte, cols)
	for col := 0; col < cols; col++ {
		if pivotRowOf[col] >= 0 {
			out[col] = aug[pivotRowOf[col]][cols]
		}
	}
	return out, nil
}
