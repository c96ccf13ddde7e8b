package phy

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncengine "github.com/ransys/phycore/sync"
	"github.com/ransys/phycore/transform"
)

func silentLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestCellIdentity_PhysCellID(t *testing.T) {
	c := CellIdentity{NID1: 10, NID2: 2}
	assert.Equal(t, 32, c.PhysCellID())
}

func TestCellIdentity_Validate(t *testing.T) {
	valid := CellIdentity{NID1: 5, NID2: 1, BandwidthRB: 50, NumAntennaPorts: 2}
	assert.NoError(t, valid.Validate())

	invalid := CellIdentity{NID1: 200, NID2: 1, BandwidthRB: 50, NumAntennaPorts: 2}
	err := invalid.Validate()
	require.Error(t, err)
	var phyErr *Error
	require.ErrorAs(t, err, &phyErr)
	assert.Equal(t, InvalidConfig, phyErr.Kind)
	assert.True(t, phyErr.Fatal())
}

func TestCellIdentity_Validate_BadAntennaPorts(t *testing.T) {
	c := CellIdentity{NID1: 1, NID2: 1, BandwidthRB: 25, NumAntennaPorts: 3}
	require.Error(t, c.Validate())
}

func TestNewSubframeGrid_Shape(t *testing.T) {
	g := NewSubframeGrid(14, 1200)
	assert.Equal(t, 14, len(g.REs))
	assert.Equal(t, 1200, len(g.REs[0]))
}

func TestError_WrapUnwrap(t *testing.T) {
	cause := assert.AnError
	err := Wrap(DecodeFailure, "DecodeTransportBlock", cause)
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.Fatal())
	assert.Contains(t, err.Error(), "DECODE_FAILURE")
}

func TestErrorKind_StringCovers(t *testing.T) {
	kinds := []ErrorKind{InvalidConfig, Domain, SyncLost, DecodeFailure, Timeout, MalformedPDU, ResourceExhausted}
	for _, k := range kinds {
		assert.NotEqual(t, "UNKNOWN", k.String())
	}
}

// lockableTrace synthesizes a clean trace carrying the full
// synchronization field (SSS symbol, CP gap, PSS), enough for the FIND
// state to commit a cell lock at the default PSR threshold.
func lockableTrace(t *testing.T, nID1, nID2, fftSize, offset, total int) []complex128 {
	t.Helper()
	field, err := syncengine.GenerateSyncField(nID1, nID2, 0, fftSize, transform.CPNormal)
	require.NoError(t, err)
	samples := make([]complex128, total)
	require.LessOrEqual(t, offset+len(field), total)
	copy(samples[offset:], field)
	return samples
}

func TestWorker_PushProcessReachesTrack(t *testing.T) {
	cfg := syncengine.DefaultConfig(128)
	cfg.AGCFrames = 1
	w := NewWorker(4, cfg, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PCI 123: N_id_1 = 41, N_id_2 = 0.
	samples := lockableTrace(t, 41, 0, 128, 10, 512)

	go w.Start(ctx, SchedulingPolicy{})

	for i := 0; i < 5; i++ {
		pctx, pcancel := context.WithTimeout(context.Background(), time.Second)
		err := w.PushRx(pctx, SampleBuffer{SubframeIdx: i, Samples: samples})
		pcancel()
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return w.Snapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)

	snap := w.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Epoch)
	assert.Equal(t, 123, snap.Cell.PhysCellID())
}

func TestWorker_PushRxTimeoutWhenQueueFull(t *testing.T) {
	w := NewWorker(1, syncengine.DefaultConfig(64), silentLogger())
	full := context.Background()
	require.NoError(t, w.PushRx(full, SampleBuffer{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := w.PushRx(ctx, SampleBuffer{})
	require.Error(t, err)
	var phyErr *Error
	require.ErrorAs(t, err, &phyErr)
	assert.Equal(t, Timeout, phyErr.Kind)
}

func TestWorker_NotifyRFTimeoutForcesResyncAfterThreshold(t *testing.T) {
	w := NewWorker(1, syncengine.DefaultConfig(64), silentLogger())
	w.sync.Reset() // no-op while already in AGC; exercises the reset path directly
	for i := 0; i < rfTimeoutThreshold-1; i++ {
		w.NotifyRFTimeout()
		assert.Equal(t, i+1, w.rfTimeouts)
	}
	w.NotifyRFTimeout()
	assert.Equal(t, 0, w.rfTimeouts)
}

func TestSnapshotSyncState_ReflectsEngine(t *testing.T) {
	e := syncengine.NewEngine(syncengine.DefaultConfig(64))
	s := SnapshotSyncState(e, 7, false)
	assert.Equal(t, syncengine.StateAGC, s.State)
	assert.Equal(t, 7, s.FrameCounter)
	assert.False(t, s.MIBDecoded)
}
