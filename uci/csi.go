package uci

// ReportTrigger selects when CSI is reported.
type ReportTrigger int

const (
	TriggerPeriodic ReportTrigger = iota
	TriggerAperiodic
)

// ReportContent selects what a CSI report carries.
type ReportContent int

const (
	ContentWidebandCRIRIPMICQI ReportContent = iota
	ContentNone
)

// CQITable selects which SINR-to-CQI-index quantization table applies.
type CQITable int

const (
	CQITable64QAM CQITable = iota
	CQITable256QAM
	CQITableLowSE
)

// cqiThresholdsDB gives the per-table SINR breakpoints (dB) separating
// successive CQI indices, increasing in spectral-efficiency demand as
// the index rises — representative values spanning each table's
// working range rather than the full standard's measured tables.
var cqiThresholdsDB = map[CQITable][]float64{
	CQITable64QAM:  {-6.5, -4, -2, 0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22},
	CQITable256QAM: {-6.5, -4, -2, 0, 2, 4, 6, 8, 10, 12, 14, 17, 20, 23, 26},
	CQITableLowSE:  {-9, -7, -5, -3, -1, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19},
}

// QuantizeCQI maps a SINR (dB) to a CQI index [0, len(thresholds)] for
// the given table: index 0 means "below the lowest reportable SINR".
func QuantizeCQI(sinrDB float64, table CQITable) int {
	thresholds := cqiThresholdsDB[table]
	idx := 0
	for _, th := range thresholds {
		if sinrDB >= th {
			idx++
		} else {
			break
		}
	}
	return idx
}

// CSIAverager exponentially averages per-resource channel measurements
// from NZP-CSI-RS with alpha=0.5, one averager per resource
// slot.
type CSIAverager struct {
	alpha  float64
	values map[int]float64
}

// NewCSIAverager constructs an averager with the fixed alpha.
func NewCSIAverager() *CSIAverager {
	return &CSIAverager{alpha: 0.5, values: make(map[int]float64)}
}

// Update folds a new measurement into resource slot's running average.
func (a *CSIAverager) Update(resourceSlot int, measurement float64) float64 {
	prev, ok := a.values[resourceSlot]
	if !ok {
		a.values[resourceSlot] = measurement
		return measurement
	}
	next := a.alpha*measurement + (1-a.alpha)*prev
	a.values[resourceSlot] = next
	return next
}

// Value returns the current averaged value for a resource slot.
func (a *CSIAverager) Value(resourceSlot int) (float64, bool) {
	v, ok := a.values[resourceSlot]
	return v, ok
}

// CSIReport is the quantized per-report content the CSI path
// produces for one report occasion.
type CSIReport struct {
	Trigger ReportTrigger
	Content ReportContent
	RI      int
	PMI     int
	CQI     int
}

// BuildReport quantizes an averaged wideband SINR into a CQI index per
// table and returns a NONE-content report unchanged when content is
// configured as pass-through.
func BuildReport(trigger ReportTrigger, content ReportContent, widebandSINRDB float64, table CQITable, ri, pmi int) CSIReport {
	if content == ContentNone {
		return CSIReport{Trigger: trigger, Content: content}
	}
	return CSIReport{
		Trigger: trigger,
		Content: content,
		RI:      ri,
		PMI:     pmi,
		CQI:     QuantizeCQI(widebandSINRDB, table),
	}
}
