package phy

import syncengine "github.com/ransys/phycore/sync"

// SyncState is the per-receiver synchronization state: a read-only
// snapshot of the underlying engine's internals, suitable for metrics
// export or MAC-facing status queries without exposing the engine
// itself.
type SyncState struct {
	State          syncengine.State
	NID2Hypothesis int
	IntegerCFO     int
	FractionalCFO  float64
	LastPeakValue  int
	FrameCounter   int
	LostPeaks      int
	SubframeIdx    int
	MIBDecoded     bool
}

// SnapshotSyncState builds a SyncState from an engine's current lock
// and frame counter, as observed by the worker between subframes.
func SnapshotSyncState(e *syncengine.Engine, frameCounter int, mibDecoded bool) SyncState {
	lock := e.Lock()
	return SyncState{
		State:          e.State(),
		NID2Hypothesis: lock.NID2,
		IntegerCFO:     lock.IntegerCFO,
		FractionalCFO:  lock.FractionalCFO,
		LastPeakValue:  lock.SamplePeak,
		FrameCounter:   frameCounter,
		LostPeaks:      e.LostPeaks(),
		SubframeIdx:    lock.SubframeIdx,
		MIBDecoded:     mibDecoded,
	}
}
