package sync

import (
	"fmt"
	"math/cmplx"

	"github.com/ransys/phycore/transform"
)

// State is one of the three cell-synchronization states.
type State int

const (
	StateAGC State = iota
	StateFIND
	StateTRACK
)

func (s State) String() string {
	switch s {
	case StateAGC:
		return "AGC"
	case StateFIND:
		return "FIND"
	case StateTRACK:
		return "TRACK"
	default:
		return "UNKNOWN"
	}
}

// Config parameterizes the engine's thresholds and timers.
type Config struct {
	FFTSize        int
	AGCFrames      int     // N AGC frames before FIND is attempted
	PSRThreshold   float64 // default 3.0
	MaxFindFrames  int     // FIND frames before giving up back to AGC; 0 = unlimited
	TrackMaxLost   int     // N consecutive lost peaks before falling back to FIND
	CFOAlpha       float64 // EMA smoothing factor for fractional CFO
	OffsetAlpha    float64 // EMA smoothing factor for sample offset (SFO)
	IntegerCFOScan bool    // run the 3-correlator integer-CFO search
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig(fftSize int) Config {
	return Config{
		FFTSize:       fftSize,
		AGCFrames:     4,
		PSRThreshold:  3.0,
		MaxFindFrames: 100,
		TrackMaxLost:  8,
		CFOAlpha:      0.1,
		OffsetAlpha:   0.1,
	}
}

// CellLock is the physical-layer identity and timing committed on the
// FIND->TRACK transition.
type CellLock struct {
	NID1          int
	NID2          int
	PhysCellID    int // 3*NID1 + NID2
	CP            transform.CPKind
	SubframeIdx   int // 0 or 5
	SamplePeak    int
	FractionalCFO float64
	IntegerCFO    int // subcarriers, only populated when Config.IntegerCFOScan is set
}

// Engine is the single-threaded-per-chain cell-synchronization state
// machine.
type Engine struct {
	cfg   Config
	state State

	agcCount   int
	findFrames int
	lock       CellLock

	sampleOffsetEMA float64
	fracCFOEMA      float64
	lostPeaks       int
	syncLostCount   int
}

// NewEngine constructs an engine in the AGC state.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, state: StateAGC}
}

// State returns the engine's current state.
func (e *Engine) State() State { return e.state }

// Lock returns the most recently committed cell lock. Only meaningful
// once the engine has reached TRACK at least once.
func (e *Engine) Lock() CellLock { return e.lock }

// LostPeaks returns the current consecutive-missed-peak count while in
// TRACK; it resets to zero on every successful recorrelation.
func (e *Engine) LostPeaks() int { return e.lostPeaks }

// SyncLostCount returns how many times the engine has given up a
// search or a lock: FIND exhausting MaxFindFrames, or TRACK losing
// TrackMaxLost consecutive peaks. Surfaced as a metric, not an error.
func (e *Engine) SyncLostCount() int { return e.syncLostCount }

// Reset cancels any in-flight correlation state and returns to AGC
// immediately. The configured cell
// capacity (cfg) is not discarded, and neither is the SYNC_LOST
// metric.
func (e *Engine) Reset() {
	e.state = StateAGC
	e.agcCount = 0
	e.findFrames = 0
	e.sampleOffsetEMA = 0
	e.fracCFOEMA = 0
	e.lostPeaks = 0
	e.lock = CellLock{}
}

// ProcessSubframe feeds one subframe-plus-FFT-size window of I/Q
// samples through the state machine and returns whether a TRACK-state
// peak (or initial FIND lock) was found this call.
func (e *Engine) ProcessSubframe(samples []complex128) (bool, error) {
	switch e.state {
	case StateAGC:
		e.agcCount++
		if e.agcCount >= e.cfg.AGCFrames {
			e.state = StateFIND
		}
		return false, nil

	case StateFIND:
		return e.runFind(samples)

	case StateTRACK:
		return e.runTrack(samples)

	default:
		return false, fmt.Errorf("sync: unknown state %v", e.state)
	}
}

// runFind performs the per-N_id_2 PSS search and, on a PSR exceeding
// threshold plus a valid SSS decode, commits a cell lock and
// transitions to TRACK.
func (e *Engine) runFind(samples []complex128) (bool, error) {
	type candidate struct {
		nID2   int
		result CorrelationResult
	}
	var best candidate
	best.result.PSR = -1
	var bestIntegerCFO int

	for nID2 := 0; nID2 < 3; nID2++ {
		pss, err := GeneratePSS(nID2, 63)
		if err != nil {
			return false, err
		}
		var integerCFO int
		if e.cfg.IntegerCFOScan {
			integerCFO = integerCFOSearch(samples, pss)
		}
		result := CrossCorrelate(samples, pss)
		if result.PSR > best.result.PSR {
			best = candidate{nID2: nID2, result: result}
			bestIntegerCFO = integerCFO
		}
	}

	if best.result.PSR < e.cfg.PSRThreshold {
		return false, e.findMiss()
	}

	// The SSS occupies the OFDM symbol preceding the PSS; its window
	// position depends on the (not yet known) CP length, so both CP
	// hypotheses are tried, CP-autocorrelation's pick first. The one
	// whose extracted REs decode to a valid N_id_1 wins and fixes the
	// CP kind.
	cpOrder := [2]transform.CPKind{InferCPKind(samples, e.cfg.FFTSize), transform.CPExtended}
	if cpOrder[0] == transform.CPExtended {
		cpOrder[1] = transform.CPNormal
	}

	var (
		nID1, subframeIdx int
		cpKind            transform.CPKind
		decoded           bool
	)
	for _, kind := range cpOrder {
		sssREs, ok := extractSSS(samples, best.result.PeakIndex, e.cfg.FFTSize, cpLengthForKind(kind, e.cfg.FFTSize))
		if !ok {
			continue
		}
		id1, sf, decErr := DecodeSSS(sssREs, best.nID2)
		if decErr != nil {
			continue
		}
		nID1, subframeIdx, cpKind, decoded = id1, sf, kind, true
		break
	}
	if !decoded {
		return false, e.findMiss()
	}

	fracCFO := FractionalCFOFromCP(samples, e.cfg.FFTSize, cpLengthForKind(cpKind, e.cfg.FFTSize))

	e.lock = CellLock{
		NID1:          nID1,
		NID2:          best.nID2,
		PhysCellID:    3*nID1 + best.nID2,
		CP:            cpKind,
		SubframeIdx:   subframeIdx,
		SamplePeak:    best.result.PeakIndex,
		FractionalCFO: fracCFO,
		IntegerCFO:    bestIntegerCFO,
	}
	e.sampleOffsetEMA = float64(best.result.PeakIndex)
	e.fracCFOEMA = fracCFO
	e.lostPeaks = 0
	e.findFrames = 0
	e.state = StateTRACK
	return true, nil
}

// findMiss counts a fruitless FIND frame; exhausting MaxFindFrames
// gives the search up back to AGC and bumps the SYNC_LOST metric.
func (e *Engine) findMiss() error {
	e.findFrames++
	if e.cfg.MaxFindFrames > 0 && e.findFrames >= e.cfg.MaxFindFrames {
		e.Reset()
		e.syncLostCount++
	}
	return nil
}

// runTrack recorrelates against the locked N_id_2 in a narrow window
// around the expected peak, updating EMA offset/CFO on success and
// falling back to FIND after cfg.TrackMaxLost consecutive misses.
func (e *Engine) runTrack(samples []complex128) (bool, error) {
	pss, err := GeneratePSS(e.lock.NID2, 63)
	if err != nil {
		return false, err
	}

	window := narrowWindow(samples, int(e.sampleOffsetEMA), 16)
	result := CrossCorrelate(window, pss)

	if result.PSR < e.cfg.PSRThreshold {
		e.lostPeaks++
		if e.lostPeaks >= e.cfg.TrackMaxLost {
			e.Reset()
			e.state = StateFIND
			e.syncLostCount++
		}
		return false, nil
	}

	e.lostPeaks = 0
	measuredOffset := float64(result.PeakIndex)
	e.sampleOffsetEMA += e.cfg.OffsetAlpha * (measuredOffset - e.sampleOffsetEMA)

	frac := FractionalCFOFromCP(samples, e.cfg.FFTSize, cpLengthForKind(e.lock.CP, e.cfg.FFTSize))
	e.fracCFOEMA += e.cfg.CFOAlpha * (frac - e.fracCFOEMA)
	e.lock.FractionalCFO = e.fracCFOEMA
	e.lock.SamplePeak = result.PeakIndex

	return true, nil
}

func cpLengthForKind(kind transform.CPKind, fftSize int) int {
	if kind == transform.CPExtended {
		return fftSize / 4
	}
	return fftSize * 144 / 2048
}

// narrowWindow extracts a correlation search window of radius r samples
// around center, clamped to the buffer bounds.
func narrowWindow(samples []complex128, center, r int) []complex128 {
	lo := center - r
	if lo < 0 {
		lo = 0
	}
	hi := center + r
	if hi > len(samples) {
		hi = len(samples)
	}
	if lo >= hi {
		return samples
	}
	return samples[lo:hi]
}

// extractSSS demodulates the OFDM symbol immediately preceding the PSS
// and hard-slices its central 62 subcarriers into a bipolar sequence.
// The correlation peak marks the last PSS sample, so the SSS symbol's
// FFT window ends one cyclic-prefix length before the PSS starts. The
// subcarrier layout straddles DC: logical RE i maps to subcarrier
// i-31, with negative subcarriers in the top FFT bins and DC unused.
func extractSSS(samples []complex128, peakIndex, fftSize, cpLen int) ([]int8, bool) {
	pssStart := peakIndex - 62
	end := pssStart - cpLen
	start := end - fftSize
	if start < 0 || end > len(samples) {
		return nil, false
	}

	bins := transform.DFT(samples[start:end])
	out := make([]int8, 62)
	for i := range out {
		k := i - 31
		bin := k + 1
		if k < 0 {
			bin = fftSize + k
		}
		if real(bins[bin]) < 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out, true
}

// integerCFOSearch runs three PSS correlators with templates shifted by
// -1, 0, +1 subcarriers and returns the argmax shift, the integer-CFO
// estimate in subcarriers. This is read-only: it reports a
// shift for the caller to apply once, downstream, rather than rotating
// samples in place and feeding the corrected buffer back into the next
// correlation. Detection always runs against uncorrected samples.
func integerCFOSearch(samples, pss []complex128) int {
	best := CrossCorrelate(samples, pss)
	bestShift := 0
	for _, shift := range []int{-1, 1} {
		shifted := subcarrierShift(pss, shift)
		result := CrossCorrelate(samples, shifted)
		if result.PeakValue > best.PeakValue {
			best = result
			bestShift = shift
		}
	}
	return bestShift
}

// subcarrierShift rotates template's phase ramp by shift subcarriers,
// approximating a frequency-domain shift in the time domain by
// multiplying each sample by exp(j*2*pi*shift*n/len(template)).
func subcarrierShift(template []complex128, shift int) []complex128 {
	n := len(template)
	out := make([]complex128, n)
	for i, z := range template {
		angle := 2 * 3.14159265358979323846 * float64(shift) * float64(i) / float64(n)
		out[i] = z * cmplx.Exp(complex(0, angle))
	}
	return out
}
