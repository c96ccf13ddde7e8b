// Package macif is the PHY's view of the MAC scheduler and the
// decoded-transport-block delivery path. The scheduler
// itself is an external collaborator; this package defines the
// per-subframe contract the PHY worker calls through, plus the MAC
// PDU demultiplexer that splits decoded transport blocks into
// per-logical-channel subPDUs.
package macif

// TTI is a transmission time interval index: system frame number * 10
// plus the subframe index, wrapping at 10240.
type TTI uint32

// MaxTTI is the TTI wrap point (1024 frames of 10 subframes).
const MaxTTI TTI = 10240

// Add returns t advanced by n subframes, modulo the TTI wrap.
func (t TTI) Add(n int) TTI {
	return TTI((uint32(t) + uint32(n)) % uint32(MaxTTI))
}

// SFN returns the system frame number component.
func (t TTI) SFN() int { return int(t) / 10 }

// Subframe returns the subframe-index component.
func (t TTI) Subframe() int { return int(t) % 10 }

// Grant is a scheduling decision for one transport block in one
// direction, the MAC-side counterpart of the PHY's DCI descriptor.
type Grant struct {
	RNTI        uint16
	RBStart     int
	RBLen       int
	MCS         int
	RV          int
	HARQProcess int
	NewData     bool
	TBS         int // transport block size, bits
}

// Scheduler is the per-subframe MAC interface: the PHY worker
// pulls downlink and uplink schedules once per TTI and hands uplink
// grants back as a pre-decode hint.
type Scheduler interface {
	GetDLSched(tti TTI) []Grant
	GetULSched(tti TTI) []Grant
	GetMCHSched(tti TTI, isMCCH bool) (Grant, bool)
	SetULGrantAvailable(tti TTI, grants []Grant)
}

// DecodedTB is one decoded transport block pushed toward RLC/PDCP,
// carrying the (rnti, lcid, payload, tti, crc_ok) tuple. LCID is
// only meaningful for subPDUs that have passed the demultiplexer; a
// whole-TB push uses LCIDNone.
type DecodedTB struct {
	RNTI    uint16
	LCID    uint8
	Payload []byte
	TTI     TTI
	CRCOK   bool
}

// LCIDNone marks a DecodedTB that has not been demultiplexed.
const LCIDNone uint8 = 0xff

// PDUSink receives decoded transport blocks. Implementations must not
// block: the worker calls this on the real-time path.
type PDUSink interface {
	PushDecodedTB(tb DecodedTB)
}

// PDUSinkFunc adapts a function to the PDUSink interface.
type PDUSinkFunc func(tb DecodedTB)

func (f PDUSinkFunc) PushDecodedTB(tb DecodedTB) { f(tb) }

// NopScheduler is a Scheduler that never grants anything, for running
// the PHY worker without an attached MAC (synchronization and
// measurement only).
type NopScheduler struct{}

func (NopScheduler) GetDLSched(TTI) []Grant                { return nil }
func (NopScheduler) GetULSched(TTI) []Grant                { return nil }
func (NopScheduler) GetMCHSched(TTI, bool) (Grant, bool)   { return Grant{}, false }
func (NopScheduler) SetULGrantAvailable(tti TTI, g []Grant) {}
