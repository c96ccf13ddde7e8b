package ratematch

import "github.com/ransys/phycore/bitvec"

// SoftBuffer is one HARQ process's rate-matching soft memory for a
// single transport block. New-data
// transmissions zero it; retransmissions accumulate with a saturating
// add at the positions their RV's offset selects.
type SoftBuffer struct {
	llr []int16
}

// NewSoftBuffer allocates a soft buffer sized for the circular buffer
// length of the codeblock it serves.
func NewSoftBuffer(bufferLen int) *SoftBuffer {
	return &SoftBuffer{llr: make([]int16, bufferLen)}
}

// Len returns the buffer's capacity.
func (s *SoftBuffer) Len() int { return len(s.llr) }

// Reset zeroes the buffer, performed when the MAC declares a new
// transmission (RV=0 on a fresh transport block, not a retransmission).
func (s *SoftBuffer) Reset() {
	for i := range s.llr {
		s.llr[i] = 0
	}
}

// Combine accumulates e received LLRs (already scaled to int16) into
// the buffer at rv's circular-buffer offset, saturating-adding onto any
// existing soft values. Combining is commutative: the order of RV
// arrivals does not change the final combined LLRs as long as each
// RV's contribution lands exactly once.
func (s *SoftBuffer) Combine(received []int16, rv RV) {
	n := len(s.llr)
	if n == 0 {
		return
	}
	start := (n * rvOffsetEighths[rv%4]) / 8
	for i, v := range received {
		pos := (start + i) % n
		s.llr[pos] = bitvec.SatAddInt16(s.llr[pos], v)
	}
}

// Accumulate saturating-adds a full-buffer-aligned soft vector (the
// shape Dematch produces, RV offset already applied) onto the buffer.
func (s *SoftBuffer) Accumulate(full []int16) {
	n := len(s.llr)
	if len(full) < n {
		n = len(full)
	}
	for i := 0; i < n; i++ {
		s.llr[i] = bitvec.SatAddInt16(s.llr[i], full[i])
	}
}

// LLR returns the buffer's current combined soft values as float64,
// ready for a FEC decoder.
func (s *SoftBuffer) LLR() []float64 {
	out := make([]float64, len(s.llr))
	for i, v := range s.llr {
		out[i] = float64(v)
	}
	return out
}
