package phy

import (
	"context"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"

	"github.com/ransys/phycore/macif"
	"github.com/ransys/phycore/pcapsink"
	syncengine "github.com/ransys/phycore/sync"
)

// SampleBuffer is one subframe's worth of I/Q samples pulled from the
// RF queue.
type SampleBuffer struct {
	SubframeIdx int
	Samples     []complex128
}

// SchedulingPolicy configures the worker's real-time scheduling: one
// dedicated real-time thread per PHY worker per carrier, with CPU
// affinity decided by the deployment, not the worker.
type SchedulingPolicy struct {
	CPUAffinity []int // CPU indices; empty means no affinity pinning
	RealTime    bool  // apply SCHED_FIFO if true
	Priority    int   // SCHED_FIFO priority, ignored if !RealTime
}

// applyScheduling pins the calling OS thread's affinity and, if
// requested, switches it to SCHED_FIFO. Must be called from the
// worker's dedicated goroutine after runtime.LockOSThread.
func applyScheduling(policy SchedulingPolicy) error {
	if len(policy.CPUAffinity) > 0 {
		var set unix.CPUSet
		set.Zero()
		for _, cpu := range policy.CPUAffinity {
			set.Set(cpu)
		}
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return Newf(InvalidConfig, "applyScheduling", "sched_setaffinity: %v", err)
		}
	}
	if policy.RealTime {
		param := &unix.SchedParam{Priority: int32(policy.Priority)}
		if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, param); err != nil {
			return Newf(InvalidConfig, "applyScheduling", "sched_setscheduler: %v", err)
		}
	}
	return nil
}

// Worker is the per-carrier, per-subframe PHY processing loop: it
// pulls sample buffers from a bounded queue, runs the synchronization
// engine plus downstream pipelines, and pushes results back, all
// non-blocking except at the two named suspension points.
type Worker struct {
	rxQueue  chan SampleBuffer
	txQueue  chan SampleBuffer
	logger   *log.Logger
	sync     *syncengine.Engine
	lockSnap *CellLockSnapshot

	mac    macif.Scheduler
	sink   macif.PDUSink
	pcap   *pcapsink.Writer
	dlBase *DownlinkConfig
	dl     *DownlinkProcessor
	tti    macif.TTI

	rfTimeouts int
}

// CellLockSnapshot is the publication-safe cell identity snapshot:
// written once at TRACK entry, then immutable until reset. It is safe
// for other workers to read without synchronization since it is
// replaced, never mutated, on each TRACK entry.
type CellLockSnapshot struct {
	Cell  CellIdentity
	Epoch int
}

// NewWorker constructs a worker with bounded SPSC-style rx/tx queues
// (capacity depth) and a fresh synchronization engine.
func NewWorker(depth int, syncCfg syncengine.Config, logger *log.Logger) *Worker {
	return &Worker{
		rxQueue: make(chan SampleBuffer, depth),
		txQueue: make(chan SampleBuffer, depth),
		logger:  logger,
		sync:    syncengine.NewEngine(syncCfg),
	}
}

// AttachMAC connects the per-subframe scheduler interface and the
// decoded-transport-block sink. Must be called before Start.
func (w *Worker) AttachMAC(sched macif.Scheduler, sink macif.PDUSink) {
	w.mac = sched
	w.sink = sink
}

// AttachPCAP connects the optional capture sink for decoded PDUs.
func (w *Worker) AttachPCAP(pcap *pcapsink.Writer) { w.pcap = pcap }

// ConfigureDownlink supplies the downlink pipeline template. The cell
// identity fields are overwritten from the synchronization lock at
// TRACK entry; everything else (bandwidth, FFT size, smoothing, HARQ
// sizing) is taken as given. Must be called before Start for the
// worker to decode anything beyond synchronization.
func (w *Worker) ConfigureDownlink(base DownlinkConfig) {
	w.dlBase = &base
}

// PushRx is the RF driver's non-blocking-with-timeout enqueue of a
// freshly captured subframe, the first of the worker's two bounded
// suspension points.
func (w *Worker) PushRx(ctx context.Context, buf SampleBuffer) error {
	select {
	case w.rxQueue <- buf:
		return nil
	case <-ctx.Done():
		return Newf(Timeout, "PushRx", "RF queue full within deadline")
	}
}

// PopTx is the RF driver's bounded-wait dequeue of a finished TX
// buffer, the second suspension point.
func (w *Worker) PopTx(ctx context.Context) (SampleBuffer, error) {
	select {
	case buf := <-w.txQueue:
		return buf, nil
	case <-ctx.Done():
		return SampleBuffer{}, Newf(Timeout, "PopTx", "TX queue empty within deadline")
	}
}

// rfTimeoutThreshold is the consecutive-timeout count that triggers a
// re-synchronization.
const rfTimeoutThreshold = 10

// rfReadTimeoutWarnAt is the consecutive-timeout count that logs a
// warning without yet forcing resync.
const rfReadTimeoutWarnAt = 5

// Start locks the calling goroutine to its OS thread, applies policy,
// and runs the worker loop until ctx is cancelled. It is meant to be
// launched with `go w.Start(...)` so the worker owns a whole thread.
func (w *Worker) Start(ctx context.Context, policy SchedulingPolicy) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := applyScheduling(policy); err != nil {
		w.logger.Warn("scheduling policy not applied", "err", err)
	}
	return w.Run(ctx)
}

// NotifyRFTimeout is called by the RF driver whenever a read deadline
// elapses. Reaching the consecutive-timeout threshold forces the
// synchronization engine back to AGC/FIND.
func (w *Worker) NotifyRFTimeout() {
	if w.recordRFTimeout() {
		w.sync.Reset()
		w.logger.Warn("re-synchronizing after repeated RF timeouts")
	}
}

// Run is the worker's main loop: it observes ctx cancellation at each
// suspension point and at subframe boundaries, discarding any
// in-flight HARQ soft-buffer state on stop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if w.dl != nil {
				// Stop: in-flight HARQ soft buffers are discarded.
				w.dl.Reset()
			}
			return nil
		case buf, ok := <-w.rxQueue:
			if !ok {
				return nil
			}
			w.rfTimeouts = 0
			if err := w.processSubframe(buf); err != nil {
				w.logger.Warn("subframe processing error", "subframe", buf.SubframeIdx, "err", err)
			}
		}
	}
}

// processSubframe drives the synchronization state machine for one
// subframe, publishes a fresh snapshot on TRACK entry, and, once
// locked, runs the downlink pipeline against the MAC's schedule.
func (w *Worker) processSubframe(buf SampleBuffer) error {
	w.tti = w.tti.Add(1)

	locked, err := w.sync.ProcessSubframe(buf.Samples)
	if err != nil {
		return Wrap(Domain, "processSubframe", err)
	}

	if w.sync.State() != syncengine.StateTRACK {
		if w.dl != nil {
			// Sync lost: in-flight HARQ soft buffers are discarded.
			w.dl.Reset()
			w.dl = nil
		}
		return nil
	}

	if locked && w.dl == nil {
		w.publishLock()
		if w.dlBase != nil {
			if err := w.buildDownlink(); err != nil {
				w.logger.Error("downlink pipeline construction failed", "err", err)
				w.dlBase = nil // fatal config; don't retry every subframe
			}
		}
	}

	return w.runDownlink(buf)
}

// publishLock replaces the publication-safe cell snapshot from the
// engine's committed lock.
func (w *Worker) publishLock() {
	lock := w.sync.Lock()
	epoch := 0
	if w.lockSnap != nil {
		epoch = w.lockSnap.Epoch + 1
	}
	w.lockSnap = &CellLockSnapshot{
		Cell: CellIdentity{
			NID1: lock.NID1,
			NID2: lock.NID2,
			CP:   lock.CP,
		},
		Epoch: epoch,
	}
	w.logger.Info("cell locked", "cell_id", lock.PhysCellID, "cp", lock.CP, "subframe", lock.SubframeIdx)
}

// buildDownlink instantiates the downlink pipeline for the cell the
// engine just locked onto.
func (w *Worker) buildDownlink() error {
	lock := w.sync.Lock()
	cfg := *w.dlBase
	cfg.Cell.NID1 = lock.NID1
	cfg.Cell.NID2 = lock.NID2
	cfg.Cell.CP = lock.CP
	dl, err := NewDownlinkProcessor(cfg)
	if err != nil {
		return err
	}
	w.dl = dl
	return nil
}

// runDownlink pulls this TTI's schedule from the MAC, decodes each
// downlink grant, and pushes the resulting transport blocks to the
// RLC-facing sink and the capture file.
func (w *Worker) runDownlink(buf SampleBuffer) error {
	if w.dl == nil || w.mac == nil {
		return nil
	}

	grants := w.mac.GetDLSched(w.tti)
	ulGrants := w.mac.GetULSched(w.tti)
	w.mac.SetULGrantAvailable(w.tti, ulGrants)

	tbs, err := w.dl.ProcessSubframe(buf.Samples, w.tti, grants)
	if err != nil {
		return err
	}
	for _, tb := range tbs {
		if !tb.CRCOK {
			w.logger.Debug("transport block CRC failure", "tti", tb.TTI, "rnti", tb.RNTI)
		}
		if w.sink != nil {
			w.sink.PushDecodedTB(tb)
		}
		if w.pcap != nil && tb.CRCOK {
			if err := w.pcap.Write(pcapsink.Record{
				TTI:       uint32(tb.TTI),
				RNTI:      tb.RNTI,
				Direction: pcapsink.Downlink,
				Bytes:     tb.Payload,
			}); err != nil {
				w.logger.Warn("pcap write failed", "err", err)
			}
		}
	}
	return nil
}

// Snapshot returns the most recently published cell-lock snapshot, or
// nil if the engine has never reached TRACK.
func (w *Worker) Snapshot() *CellLockSnapshot { return w.lockSnap }

// recordRFTimeout increments the consecutive-timeout counter and
// reports whether a re-synchronization should now be triggered.
func (w *Worker) recordRFTimeout() (shouldResync bool) {
	w.rfTimeouts++
	if w.rfTimeouts == rfReadTimeoutWarnAt {
		w.logger.Warn("RF read timeout threshold reached", "count", w.rfTimeouts)
	}
	if w.rfTimeouts >= rfTimeoutThreshold {
		w.rfTimeouts = 0
		return true
	}
	return false
}

// Close releases the worker's queues; callers must stop feeding PushRx
// before calling this.
func (w *Worker) Close() {
	close(w.rxQueue)
}
