package transform

import "math"

const cfoTableSize = 1024

// cfoTable is a precomputed 1024-entry sine/cosine table for the CFO
// rotator, indexed by normalized phase.
type cfoTable struct {
	sin [cfoTableSize]float64
	cos [cfoTableSize]float64
}

var sharedCFOTable = buildCFOTable()

func buildCFOTable() *cfoTable {
	t := &cfoTable{}
	for i := 0; i < cfoTableSize; i++ {
		angle := 2 * math.Pi * float64(i) / float64(cfoTableSize)
		t.sin[i] = math.Sin(angle)
		t.cos[i] = math.Cos(angle)
	}
	return t
}

// Interp selects between nearest and linear interpolation when reading
// the CFO table at a fractional phase.
type Interp int

const (
	InterpNearest Interp = iota
	InterpLinear
)

func (t *cfoTable) at(phase float64, interp Interp) (sin, cos float64) {
	phase = math.Mod(phase, 1.0)
	if phase < 0 {
		phase += 1.0
	}
	pos := phase * cfoTableSize

	switch interp {
	case InterpLinear:
		i0 := int(pos) % cfoTableSize
		i1 := (i0 + 1) % cfoTableSize
		frac := pos - math.Floor(pos)
		sin = t.sin[i0]*(1-frac) + t.sin[i1]*frac
		cos = t.cos[i0]*(1-frac) + t.cos[i1]*frac
	default:
		i := int(math.Round(pos)) % cfoTableSize
		sin, cos = t.sin[i], t.cos[i]
	}
	return
}

// CFOEstimator tracks a carrier-frequency offset estimate with
// exponential-moving-average smoothing.
type CFOEstimator struct {
	Alpha     float64 // EMA smoothing factor, 0..1
	Estimate  float64 // normalized frequency offset, cycles/sample
	Interp    Interp
	sampleIdx int
}

// NewCFOEstimator constructs an estimator with the given EMA alpha.
func NewCFOEstimator(alpha float64, interp Interp) *CFOEstimator {
	return &CFOEstimator{Alpha: alpha, Interp: interp}
}

// Update folds a new instantaneous CFO measurement into the EMA.
func (e *CFOEstimator) Update(measured float64) {
	e.Estimate = e.Alpha*measured + (1-e.Alpha)*e.Estimate
}

// Rotate multiplies samples by exp(-j*2*pi*f*n/N) using the current
// smoothed estimate, continuing the running sample index across calls
// so rotation phase stays continuous between subframes.
func (e *CFOEstimator) Rotate(samples []complex128) []complex128 {
	out := make([]complex128, len(samples))
	for i, s := range samples {
		phase := e.Estimate * float64(e.sampleIdx+i)
		sin, cos := sharedCFOTable.at(phase, e.Interp)
		// exp(-j*2*pi*f*n) = cos(2*pi*f*n) - j*sin(2*pi*f*n)
		rot := complex(cos, -sin)
		out[i] = s * rot
	}
	e.sampleIdx += len(samples)
	return out
}

// Reset clears the running phase counter, used when the synchronization
// engine resets to AGC.
func (e *CFOEstimator) Reset() {
	e.sampleIdx = 0
	e.Estimate = 0
}
