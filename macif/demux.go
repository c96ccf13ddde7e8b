package macif

import "fmt"

// MAC PDU subheader layout: each subheader byte carries an extension
// bit (more subheaders follow), and a 5-bit LCID. Every subheader
// except the last also carries a length field: 7 bits when the F bit
// is clear, 15 bits when set. All subheaders precede all payloads.
const (
	lcidMask  = 0x1f
	extBit    = 0x20
	fBit      = 0x80
	lenMax7   = 0x7f
	LCIDCCCH  = 0
	LCIDPad   = 31
	lcidResLo = 11 // reserved LCID range for data subPDUs
	lcidResHi = 24
)

// SubPDU is one demultiplexed logical-channel payload.
type SubPDU struct {
	LCID    uint8
	Payload []byte
}

// DemuxStats counts the recoverable drop classes: MALFORMED_PDU
// (reserved LCID or a length exceeding the container) and
// RESOURCE_EXHAUSTED (reassembly queue full).
type DemuxStats struct {
	SubPDUs   uint64
	Malformed uint64
	Exhausted uint64
}

type subheader struct {
	lcid   uint8
	length int // -1 for the last subheader (implicit: rest of PDU)
}

// Demux splits one decoded MAC PDU into its subPDUs. A subPDU with a
// reserved LCID is dropped and counted as malformed; processing of the
// remaining subPDUs continues. A declared length that overruns the
// remaining payload is counted as malformed once and ends the walk:
// the subPDUs already extracted are returned, the overrunning one and
// any after it are not. Padding subheaders are consumed
// silently. An error is returned only when the header region itself is
// truncated, in which case no subPDUs are produced.
func Demux(pdu []byte, stats *DemuxStats) ([]SubPDU, error) {
	headers, payloadStart, err := parseSubheaders(pdu)
	if err != nil {
		return nil, err
	}

	var out []SubPDU
	pos := payloadStart
	for _, h := range headers {
		length := h.length
		if length < 0 {
			length = len(pdu) - pos
		}
		if pos+length > len(pdu) {
			stats.Malformed++
			break // nothing after an overrun is trustworthy
		}
		payload := pdu[pos : pos+length]
		pos += length

		if h.lcid == LCIDPad {
			continue
		}
		if h.lcid >= lcidResLo && h.lcid <= lcidResHi {
			stats.Malformed++
			continue
		}
		stats.SubPDUs++
		out = append(out, SubPDU{LCID: h.lcid, Payload: payload})
	}
	return out, nil
}

// parseSubheaders walks the subheader region and returns the parsed
// headers plus the offset where payloads begin.
func parseSubheaders(pdu []byte) ([]subheader, int, error) {
	var headers []subheader
	pos := 0
	for {
		if pos >= len(pdu) {
			return nil, 0, fmt.Errorf("macif: truncated subheader at offset %d", pos)
		}
		b := pdu[pos]
		pos++
		h := subheader{lcid: b & lcidMask, length: -1}
		more := b&extBit != 0
		if more {
			// Not the last subheader: a length field follows.
			if pos >= len(pdu) {
				return nil, 0, fmt.Errorf("macif: truncated length field at offset %d", pos)
			}
			l := int(pdu[pos])
			pos++
			if b&fBit != 0 {
				if pos >= len(pdu) {
					return nil, 0, fmt.Errorf("macif: truncated 15-bit length at offset %d", pos)
				}
				l = (l&lenMax7)<<8 | int(pdu[pos])
				pos++
			}
			h.length = l
		}
		headers = append(headers, h)
		if !more {
			return headers, pos, nil
		}
	}
}

// Reassembler fans demultiplexed subPDUs out into bounded per-LCID
// queues for the RLC to drain. A full queue drops the incoming subPDU
// and counts it (RESOURCE_EXHAUSTED); nothing blocks.
type Reassembler struct {
	depth  int
	queues map[uint8][]SubPDU
	stats  DemuxStats
}

// NewReassembler builds a reassembler whose per-LCID queues hold at
// most depth subPDUs each.
func NewReassembler(depth int) *Reassembler {
	return &Reassembler{depth: depth, queues: make(map[uint8][]SubPDU)}
}

// Ingest demultiplexes pdu and enqueues each subPDU on its LCID queue.
func (r *Reassembler) Ingest(pdu []byte) error {
	subs, err := Demux(pdu, &r.stats)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		q := r.queues[sub.LCID]
		if len(q) >= r.depth {
			r.stats.Exhausted++
			continue
		}
		r.queues[sub.LCID] = append(q, sub)
	}
	return nil
}

// Drain removes and returns all queued subPDUs for lcid, oldest first.
func (r *Reassembler) Drain(lcid uint8) []SubPDU {
	q := r.queues[lcid]
	delete(r.queues, lcid)
	return q
}

// Stats returns a copy of the drop counters.
func (r *Reassembler) Stats() DemuxStats { return r.stats }

// Mux is the reverse path: assemble subPDUs into one MAC PDU for
// uplink transmission, emitting the subheader region then the
// payloads. The final subheader omits its length field.
func Mux(subs []SubPDU) []byte {
	if len(subs) == 0 {
		return nil
	}
	var out []byte
	for i, sub := range subs {
		b := sub.LCID & lcidMask
		last := i == len(subs)-1
		if !last {
			b |= extBit
			if len(sub.Payload) > lenMax7 {
				b |= fBit
			}
		}
		out = append(out, b)
		if !last {
			if len(sub.Payload) > lenMax7 {
				out = append(out, byte(len(sub.Payload)>>8), byte(len(sub.Payload)))
			} else {
				out = append(out, byte(len(sub.Payload)))
			}
		}
	}
	for _, sub := range subs {
		out = append(out, sub.Payload...)
	}
	return out
}
