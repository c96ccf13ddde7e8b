package phy

import (
	"github.com/ransys/phycore/transform"
)

// CellIdentity is a locked physical cell's immutable identity. Once
// committed, these values never change for the lifetime of a
// connection; a change forces a full re-synchronization
// (reflected by callers constructing a fresh CellIdentity rather than
// mutating one in place).
type CellIdentity struct {
	NID1           int // [0,167]
	NID2           int // [0,2]
	BandwidthRB    int // [6,110]
	NumAntennaPorts int // 1, 2, or 4
	CP             transform.CPKind
	SubcarrierSpacingHz float64 // 0 for LTE (15 kHz implied)
	Numerology     int          // NR numerology index, 0 for LTE
}

// PhysCellID returns the combined physical cell ID 3*NID1 + NID2.
func (c CellIdentity) PhysCellID() int { return 3*c.NID1 + c.NID2 }

// Validate checks every identity field's range, returning an InvalidConfig
// error describing the first violation found.
func (c CellIdentity) Validate() error {
	switch {
	case c.NID1 < 0 || c.NID1 > 167:
		return Newf(InvalidConfig, "CellIdentity.Validate", "N_id_1 %d out of [0,167]", c.NID1)
	case c.NID2 < 0 || c.NID2 > 2:
		return Newf(InvalidConfig, "CellIdentity.Validate", "N_id_2 %d out of [0,2]", c.NID2)
	case c.BandwidthRB < 6 || c.BandwidthRB > 110:
		return Newf(InvalidConfig, "CellIdentity.Validate", "bandwidth %d RB out of [6,110]", c.BandwidthRB)
	case c.NumAntennaPorts != 1 && c.NumAntennaPorts != 2 && c.NumAntennaPorts != 4:
		return Newf(InvalidConfig, "CellIdentity.Validate", "antenna ports %d must be 1, 2, or 4", c.NumAntennaPorts)
	default:
		return nil
	}
}

// SubframeGrid is a two-dimensional array of demodulated resource
// elements, produced once per subframe by the OFDM demodulator and
// consumed read-only downstream.
type SubframeGrid struct {
	NumSymbols     int
	NumSubcarriers int
	REs            [][]complex128 // [symbol][subcarrier]
}

// NewSubframeGrid allocates a grid of the given shape, zeroed.
func NewSubframeGrid(numSymbols, numSubcarriers int) *SubframeGrid {
	g := &SubframeGrid{NumSymbols: numSymbols, NumSubcarriers: numSubcarriers, REs: make([][]complex128, numSymbols)}
	for i := range g.REs {
		g.REs[i] = make([]complex128, numSubcarriers)
	}
	return g
}

// ChannelEstimate mirrors a SubframeGrid's shape with one estimated
// channel coefficient per RE per antenna-port pair, plus the scalar
// RSRP/RSRQ/RSSI/noise power measurements. Valid for one subframe
// only, except through the configured smoothing filter's own state.
type ChannelEstimate struct {
	Coeffs      [][]complex128 // [symbol][subcarrier]
	RSRP        float64
	RSRQ        float64
	RSSI        float64
	NoiseVariance float64
}

// DCIGrant is a compact scheduling-decision descriptor, consumed
// exactly once per subframe by the physical-channel pipeline it
// targets.
type DCIGrant struct {
	ResourceAllocation []int // RB indices, or a RIV-decoded bitmap
	MCSIndex           int
	RedundancyVersion  int
	HARQProcessID      int
	NewDataIndicator   bool
	PowerControl       int
	RNTIType           string
}
