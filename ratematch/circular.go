// Package ratematch implements per-codeblock circular-buffer rate
// matching, the uplink triangular channel interleaver, and per-HARQ-
// process soft buffers.
package ratematch

import "fmt"

// RV is a redundancy-version index, selecting the starting offset into
// the rate-matching circular buffer for a (re)transmission.
type RV int

const (
	RV0 RV = iota
	RV1
	RV2
	RV3
)

// rvOffsetEighths gives the fraction of the circular buffer (in
// eighths) at which each RV's read window starts, the standard NR
// spread of {0, 1/4, 1/2, 3/4} (LTE uses a slightly different spread
// per code rate; this core uses one fixed table for every MCS, which
// keeps the RV cycling deterministic and documented rather than
// re-deriving the per-rate table).
var rvOffsetEighths = [4]int{0, 2, 4, 6}

// CircularBuffer holds one codeblock's systematic and parity bits laid
// out for circular rate matching: systematic bits first, followed by
// each parity stream in order.
type CircularBuffer struct {
	bits []byte
}

// NewCircularBuffer concatenates systematic and parity bit streams into
// the circular buffer layout.
func NewCircularBuffer(systematic []byte, parity ...[]byte) *CircularBuffer {
	total := len(systematic)
	for _, p := range parity {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	buf = append(buf, systematic...)
	for _, p := range parity {
		buf = append(buf, p...)
	}
	return &CircularBuffer{bits: buf}
}

// Len returns the circular buffer's total bit capacity.
func (c *CircularBuffer) Len() int { return len(c.bits) }

// offset returns the starting read position in the buffer for rv.
func (c *CircularBuffer) offset(rv RV) int {
	n := len(c.bits)
	if n == 0 {
		return 0
	}
	return (n * rvOffsetEighths[rv%4]) / 8
}

// Select reads e bits from the circular buffer starting at rv's offset,
// wrapping around (repeating bits) if e exceeds the buffer length.
func (c *CircularBuffer) Select(e int, rv RV) ([]byte, error) {
	n := len(c.bits)
	if n == 0 {
		return nil, fmt.Errorf("ratematch: empty circular buffer")
	}
	if e < 0 {
		return nil, fmt.Errorf("ratematch: negative E %d", e)
	}
	out := make([]byte, e)
	start := c.offset(rv)
	for i := 0; i < e; i++ {
		out[i] = c.bits[(start+i)%n]
	}
	return out, nil
}

// Dematch soft-combines e received LLRs back into a buffer-sized slice,
// so repeated (wrapped) positions accumulate rather than overwrite,
// the inverse of Select.
func Dematch(received []float64, bufferLen int, rv RV) []float64 {
	out := make([]float64, bufferLen)
	if bufferLen == 0 {
		return out
	}
	start := (bufferLen * rvOffsetEighths[rv%4]) / 8
	for i, v := range received {
		pos := (start + i) % bufferLen
		out[pos] += v
	}
	return out
}
