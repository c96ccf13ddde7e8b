package phy

import (
	"math/cmplx"

	"github.com/ransys/phycore/bitvec"
	"github.com/ransys/phycore/chanest"
	"github.com/ransys/phycore/fec/turbo"
	"github.com/ransys/phycore/macif"
	"github.com/ransys/phycore/phych"
	"github.com/ransys/phycore/ratematch"
	syncengine "github.com/ransys/phycore/sync"
	"github.com/ransys/phycore/transform"
)

// DownlinkConfig parameterizes the per-subframe downlink receive
// chain: OFDM demod -> channel estimate -> equalize ->
// demodulate -> rate-dematch -> decode -> transport block.
type DownlinkConfig struct {
	Cell             CellIdentity
	FFTSize          int
	SmoothTaps       int // frequency FIR length, odd, <= 9
	Noise            chanest.NoiseAlgorithm
	MeasureAvgFrames int
	MaxHARQProcesses int
}

// DownlinkProcessor owns the downlink pipeline state for one locked
// cell: the OFDM demodulator, the precomputed pilot table, the
// smoothing filter, per-process HARQ contexts, and the averaged
// measurements. Constructed once at TRACK entry, discarded on reset.
type DownlinkProcessor struct {
	cfg    DownlinkConfig
	ofdm   *transform.Config
	pilots *chanest.PilotTable
	fir    []float64

	harq     map[int]*harqProcess
	measAvg  chanest.Measurements
	measInit bool
}

// harqProcess carries one process's soft buffers plus the decode
// metadata reconstructed from its most recent new-data grant.
type harqProcess struct {
	ctx          *phych.HARQContext
	numCB        int
	interleavers []*turbo.Interleaver
}

// pilotSymbolsPerHalf are the pilot-bearing symbol indices within each
// 7-symbol (normal CP) or 6-symbol (extended CP) half of a subframe.
func pilotSymbolsPerHalf(cp transform.CPKind) (perHalf int, symbols []int) {
	if cp == transform.CPExtended {
		return 6, []int{0, 3}
	}
	return 7, []int{0, 4}
}

// NewDownlinkProcessor validates the configuration and precomputes the
// pilot table for every (slot, pilot symbol, port) of a frame.
func NewDownlinkProcessor(cfg DownlinkConfig) (*DownlinkProcessor, error) {
	if err := cfg.Cell.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxHARQProcesses <= 0 {
		return nil, Newf(InvalidConfig, "NewDownlinkProcessor", "max HARQ processes %d must be positive", cfg.MaxHARQProcesses)
	}
	if cfg.MeasureAvgFrames <= 0 {
		cfg.MeasureAvgFrames = 1
	}

	ofdm, err := transform.NewConfig(cfg.FFTSize, cfg.Cell.CP)
	if err != nil {
		return nil, Wrap(InvalidConfig, "NewDownlinkProcessor", err)
	}
	fir, err := chanest.NewTriangularFIR(cfg.SmoothTaps)
	if err != nil {
		return nil, Wrap(InvalidConfig, "NewDownlinkProcessor", err)
	}

	_, pilotSyms := pilotSymbolsPerHalf(cfg.Cell.CP)
	nPilotSC := 2 * cfg.Cell.BandwidthRB // one pilot every 6 subcarriers
	var layout []chanest.PilotKey
	for slot := 0; slot < 20; slot++ {
		for _, sym := range pilotSyms {
			for port := 0; port < cfg.Cell.NumAntennaPorts; port++ {
				layout = append(layout, chanest.PilotKey{Slot: slot, Symbol: sym, Port: port})
			}
		}
	}
	pilots, err := chanest.NewPilotTable(cfg.Cell.PhysCellID(), layout, nPilotSC)
	if err != nil {
		return nil, Wrap(InvalidConfig, "NewDownlinkProcessor", err)
	}

	return &DownlinkProcessor{
		cfg:    cfg,
		ofdm:   ofdm,
		pilots: pilots,
		fir:    fir,
		harq:   make(map[int]*harqProcess),
	}, nil
}

// Measurements returns the averaged RSRP/RSSI/RSRQ/SNR values.
func (p *DownlinkProcessor) Measurements() chanest.Measurements { return p.measAvg }

// ProcessSubframe runs the downlink chain over one subframe of samples
// and the MAC's grants for this TTI, returning one DecodedTB per
// grant. Decode failures come back with CRCOK=false rather than an
// error, so the MAC can request a retransmission; only shape
// violations error.
func (p *DownlinkProcessor) ProcessSubframe(samples []complex128, tti macif.TTI, grants []macif.Grant) ([]macif.DecodedTB, error) {
	perHalf, pilotSyms := pilotSymbolsPerHalf(p.cfg.Cell.CP)
	numSymbols := 2 * perHalf

	grid, err := p.ofdm.Demodulate(samples, numSymbols)
	if err != nil {
		return nil, Wrap(Domain, "ProcessSubframe", err)
	}

	est, noiseVar, err := p.estimateChannel(grid, tti, perHalf, pilotSyms)
	if err != nil {
		return nil, err
	}

	var out []macif.DecodedTB
	for _, grant := range grants {
		tb, decErr := p.decodeGrant(grid, est, noiseVar, tti, grant, pilotSyms, perHalf)
		if decErr != nil {
			return out, decErr
		}
		out = append(out, tb)
	}
	return out, nil
}

// estimateChannel runs the estimation pipeline over the grid: pilot
// extraction, LS, frequency smoothing, time interpolation, noise, and
// the power measurements.
func (p *DownlinkProcessor) estimateChannel(grid [][]complex128, tti macif.TTI, perHalf int, pilotSyms []int) ([][]complex128, float64, error) {
	nSC := 12 * p.cfg.Cell.BandwidthRB
	cellID := p.cfg.Cell.PhysCellID()

	var pilotBearing []int
	var perSymbolEst [][]complex128
	var allRawLS []complex128
	var allPilotREs []complex128
	var noiseSum float64
	noiseCount := 0

	for half := 0; half < 2; half++ {
		slot := (tti.Subframe()*2 + half) % 20
		for _, sym := range pilotSyms {
			absSym := half*perHalf + sym
			known, ok := p.pilots.Lookup(chanest.PilotKey{Slot: slot, Symbol: sym, Port: 0})
			if !ok {
				return nil, 0, Newf(Domain, "estimateChannel", "no pilot sequence for slot %d symbol %d", slot, sym)
			}

			// Pilot subcarriers: every 6th, with the standard per-symbol
			// frequency shift keyed on cell identity.
			shift := cellID % 6
			if sym != 0 {
				shift = (cellID + 3) % 6
			}
			var pilotIdx []int
			var received []complex128
			for k := shift; k < nSC; k += 6 {
				pilotIdx = append(pilotIdx, k)
				received = append(received, grid[absSym][p.scToFFTBin(k)])
			}

			raw, err := chanest.LSEstimate(received, known[:len(received)])
			if err != nil {
				return nil, 0, Wrap(Domain, "estimateChannel", err)
			}
			smoothed, err := chanest.SmoothFrequency(raw, p.fir)
			if err != nil {
				return nil, 0, Wrap(Domain, "estimateChannel", err)
			}

			nv, err := chanest.LSResidualNoise(raw, smoothed)
			if err == nil {
				noiseSum += nv
				noiseCount++
			}

			pilotBearing = append(pilotBearing, absSym)
			perSymbolEst = append(perSymbolEst, expandFrequency(pilotIdx, smoothed, nSC))
			allRawLS = append(allRawLS, raw...)
			for k := 0; k < nSC; k++ {
				allPilotREs = append(allPilotREs, grid[absSym][p.scToFFTBin(k)])
			}
		}
	}

	numSymbols := 2 * perHalf
	est, err := chanest.InterpolateTime(numSymbols, pilotBearing, perSymbolEst)
	if err != nil {
		return nil, 0, Wrap(Domain, "estimateChannel", err)
	}

	lsNoise := 0.0
	if noiseCount > 0 {
		lsNoise = noiseSum / float64(noiseCount)
	}

	noiseVar := lsNoise
	switch p.cfg.Noise {
	case chanest.NoiseGuardPower:
		noiseVar = p.guardBandNoise(grid, pilotBearing)
	case chanest.NoisePSSResidual:
		// The PSS is only present in subframes 0 and 5; elsewhere the
		// reference-signal residual stands in.
		if tti.Subframe()%5 == 0 {
			if nv, ok := p.pssResidualNoise(grid, est, perHalf); ok {
				noiseVar = nv
			}
		}
	}

	meas := chanest.Measure(allRawLS, allPilotREs, p.cfg.Cell.BandwidthRB, noiseVar)
	p.foldMeasurements(meas)
	return est, noiseVar, nil
}

// guardBandNoise implements the empty-subcarrier estimator: the mean
// power of the five unoccupied FFT bins flanking each edge of the
// occupied band, sampled on the pilot-bearing symbols.
func (p *DownlinkProcessor) guardBandNoise(grid [][]complex128, pilotBearing []int) float64 {
	nSC := 12 * p.cfg.Cell.BandwidthRB
	half := nSC / 2
	var guards []complex128
	for _, sym := range pilotBearing {
		for g := 1; g <= 5; g++ {
			guards = append(guards, grid[sym][half+g])                // above the upper edge
			guards = append(guards, grid[sym][p.cfg.FFTSize-half-g]) // below the lower edge
		}
	}
	return chanest.GuardBandNoise(guards)
}

// pssResidualNoise measures the residual between the received central
// 62 REs of the PSS symbol and the known sequence after channel
// compensation.
func (p *DownlinkProcessor) pssResidualNoise(grid, est [][]complex128, perHalf int) (float64, bool) {
	pssSym := perHalf - 1 // last symbol of the first half carries the PSS
	known, err := syncengine.GeneratePSS(p.cfg.Cell.NID2, 62)
	if err != nil {
		return 0, false
	}
	nSC := 12 * p.cfg.Cell.BandwidthRB
	lo := nSC/2 - 31
	if lo < 0 {
		return 0, false
	}
	received := make([]complex128, 62)
	chanEst := make([]complex128, 62)
	for i := 0; i < 62; i++ {
		k := lo + i
		received[i] = grid[pssSym][p.scToFFTBin(k)]
		chanEst[i] = est[pssSym][k]
	}
	nv, err := chanest.PSSResidualNoise(received, known, chanEst)
	if err != nil {
		return 0, false
	}
	return nv, true
}

// foldMeasurements applies the measure.avg_frames exponential window.
func (p *DownlinkProcessor) foldMeasurements(m chanest.Measurements) {
	if !p.measInit {
		p.measAvg = m
		p.measInit = true
		return
	}
	alpha := 1.0 / float64(p.cfg.MeasureAvgFrames)
	p.measAvg.RSRP += alpha * (m.RSRP - p.measAvg.RSRP)
	p.measAvg.RSSI += alpha * (m.RSSI - p.measAvg.RSSI)
	p.measAvg.RSRQ += alpha * (m.RSRQ - p.measAvg.RSRQ)
	p.measAvg.SNR += alpha * (m.SNR - p.measAvg.SNR)
}

// decodeGrant equalizes the grant's resource elements and runs the
// transport-block RX pipeline against the grant's HARQ process.
func (p *DownlinkProcessor) decodeGrant(grid, est [][]complex128, noiseVar float64, tti macif.TTI, grant macif.Grant, pilotSyms []int, perHalf int) (macif.DecodedTB, error) {
	nSC := 12 * p.cfg.Cell.BandwidthRB
	scLo := 12 * grant.RBStart
	scHi := scLo + 12*grant.RBLen
	if scLo < 0 || scHi > nSC || grant.RBLen <= 0 {
		return macif.DecodedTB{}, Newf(Domain, "decodeGrant", "grant RBs [%d,%d) outside cell bandwidth %d RB", grant.RBStart, grant.RBStart+grant.RBLen, p.cfg.Cell.BandwidthRB)
	}

	pilotSet := make(map[int]bool)
	for half := 0; half < 2; half++ {
		for _, sym := range pilotSyms {
			pilotSet[half*perHalf+sym] = true
		}
	}

	// MMSE equalization per RE over the data symbols.
	var symbols []complex128
	for s := range grid {
		if pilotSet[s] {
			continue
		}
		for k := scLo; k < scHi; k++ {
			h := est[s][k]
			y := grid[s][p.scToFFTBin(k)]
			den := real(h)*real(h) + imag(h)*imag(h) + noiseVar
			if den == 0 {
				symbols = append(symbols, 0)
				continue
			}
			symbols = append(symbols, cmplx.Conj(h)*y/complex(den, 0))
		}
	}

	mod := modulationFromMCS(grant.MCS)
	proc := p.harqFor(grant)

	cfg := phych.TBConfig{
		Code:  phych.CodeTurbo,
		Mod:   mod,
		CInit: scramblingSeed(grant.RNTI, tti, p.cfg.Cell.PhysCellID()),
		E:     len(symbols) * mod.BitsPerSymbol() / proc.numCB,
		RV:    ratematch.RV(grant.RV),
	}

	result, err := phych.DecodeTransportBlock(symbols, noiseVar, proc.numCB, proc.ctx, cfg, proc.interleavers)
	if err != nil {
		return macif.DecodedTB{}, Wrap(Domain, "decodeGrant", err)
	}

	return macif.DecodedTB{
		RNTI:    grant.RNTI,
		LCID:    macif.LCIDNone,
		Payload: bitvec.PackMSBFirst(result.Payload),
		TTI:     tti,
		CRCOK:   result.CRCOK,
	}, nil
}

// harqFor returns the grant's HARQ process, resetting (reallocating)
// its soft buffers when the new-data indicator toggles or the
// transport-block sizing changed.
func (p *DownlinkProcessor) harqFor(grant macif.Grant) *harqProcess {
	id := grant.HARQProcess % p.cfg.MaxHARQProcesses
	numCB, cbLen, _ := phych.SegmentPlan(grant.TBS+24, int(phych.MaxCBSizeTurbo), 24)

	proc, ok := p.harq[id]
	if ok && !grant.NewData && proc.numCB == numCB {
		return proc
	}

	interleavers := make([]*turbo.Interleaver, numCB)
	for i := range interleavers {
		interleavers[i] = turbo.NewInterleaver(cbLen)
	}
	proc = &harqProcess{
		ctx:          phych.NewHARQContext(numCB, 3*cbLen),
		numCB:        numCB,
		interleavers: interleavers,
	}
	p.harq[id] = proc
	return proc
}

// Reset discards all HARQ soft-buffer state, for use when the worker
// loses synchronization.
func (p *DownlinkProcessor) Reset() {
	p.harq = make(map[int]*harqProcess)
	p.measInit = false
}

// scToFFTBin maps a 0-based subcarrier index within the occupied
// bandwidth to its FFT bin: the occupied band straddles DC, lower half
// in the top bins, upper half starting at bin 1 (DC unused).
func (p *DownlinkProcessor) scToFFTBin(k int) int {
	nSC := 12 * p.cfg.Cell.BandwidthRB
	half := nSC / 2
	if k < half {
		return p.cfg.FFTSize - half + k
	}
	return k - half + 1
}

// expandFrequency linearly interpolates pilot-spaced estimates onto
// every subcarrier, extrapolating past the first and last pilot from
// the two nearest ones.
func expandFrequency(pilotIdx []int, est []complex128, width int) []complex128 {
	out := make([]complex128, width)
	if len(pilotIdx) == 0 {
		return out
	}
	if len(pilotIdx) == 1 {
		for k := range out {
			out[k] = est[0]
		}
		return out
	}

	for k := 0; k < width; k++ {
		// Find the pilot pair straddling k.
		j := 0
		for j < len(pilotIdx)-2 && pilotIdx[j+1] < k {
			j++
		}
		a, b := pilotIdx[j], pilotIdx[j+1]
		t := float64(k-a) / float64(b-a)
		out[k] = est[j] + complex(t, 0)*(est[j+1]-est[j])
	}
	return out
}

// modulationFromMCS maps an MCS index onto its constellation order,
// the usual LTE split: 0-9 QPSK, 10-16 16QAM, 17-28 64QAM.
func modulationFromMCS(mcs int) phych.Modulation {
	switch {
	case mcs <= 9:
		return phych.ModQPSK
	case mcs <= 16:
		return phych.Mod16QAM
	default:
		return phych.Mod64QAM
	}
}

// scramblingSeed forms the PDSCH scrambling initializer from RNTI,
// subframe, and cell identity.
func scramblingSeed(rnti uint16, tti macif.TTI, cellID int) uint32 {
	return uint32(rnti)<<14 | uint32(tti.Subframe())<<9 | uint32(cellID)
}
