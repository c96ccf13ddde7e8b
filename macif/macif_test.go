package macif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTTI_Arithmetic(t *testing.T) {
	assert.Equal(t, TTI(0), TTI(10239).Add(1))
	assert.Equal(t, 1023, int(TTI(10239).SFN()))
	assert.Equal(t, 9, TTI(10239).Subframe())
	assert.Equal(t, 5, TTI(45).Subframe())
	assert.Equal(t, 4, TTI(45).SFN())
}

func TestMuxDemux_RoundTrip(t *testing.T) {
	subs := []SubPDU{
		{LCID: 1, Payload: []byte("hello")},
		{LCID: 3, Payload: make([]byte, 200)}, // forces 15-bit length
		{LCID: 2, Payload: []byte{0xde, 0xad}},
	}
	pdu := Mux(subs)

	var stats DemuxStats
	got, err := Demux(pdu, &stats)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, subs[0].LCID, got[0].LCID)
	assert.Equal(t, subs[0].Payload, got[0].Payload)
	assert.Equal(t, subs[1].Payload, got[1].Payload)
	assert.Equal(t, subs[2].Payload, got[2].Payload)
	assert.Equal(t, uint64(3), stats.SubPDUs)
	assert.Zero(t, stats.Malformed)
}

func TestMuxDemux_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "n")
		subs := make([]SubPDU, n)
		for i := range subs {
			subs[i] = SubPDU{
				LCID:    uint8(rapid.IntRange(0, 10).Draw(t, "lcid")),
				Payload: rapid.SliceOfN(rapid.Byte(), 0, 300).Draw(t, "payload"),
			}
		}
		var stats DemuxStats
		got, err := Demux(Mux(subs), &stats)
		require.NoError(t, err)
		require.Len(t, got, n)
		for i := range subs {
			assert.Equal(t, subs[i].LCID, got[i].LCID)
			assert.Equal(t, subs[i].Payload, got[i].Payload)
		}
	})
}

func TestDemux_ReservedLCIDDropsSubPDUOnly(t *testing.T) {
	subs := []SubPDU{
		{LCID: 1, Payload: []byte("keep")},
		{LCID: 12, Payload: []byte("reserved")},
		{LCID: 2, Payload: []byte("also keep")},
	}
	var stats DemuxStats
	got, err := Demux(Mux(subs), &stats)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint8(1), got[0].LCID)
	assert.Equal(t, uint8(2), got[1].LCID)
	assert.Equal(t, uint64(1), stats.Malformed)
	assert.Equal(t, uint64(2), stats.SubPDUs)
}

func TestDemux_PaddingIsConsumedSilently(t *testing.T) {
	subs := []SubPDU{
		{LCID: 1, Payload: []byte("data")},
		{LCID: LCIDPad, Payload: []byte{0, 0, 0}},
	}
	var stats DemuxStats
	got, err := Demux(Mux(subs), &stats)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, stats.Malformed)
}

func TestDemux_LengthOverrunStopsCleanly(t *testing.T) {
	// One subheader claiming 100 bytes, followed by only 4.
	pdu := []byte{extBit | 1, 100, 1 /* last header, lcid 1 */, 0xaa, 0xbb, 0xcc, 0xdd}
	var stats DemuxStats
	_, err := Demux(pdu, &stats)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Malformed)
}

func TestDemux_TruncatedHeaderIsError(t *testing.T) {
	var stats DemuxStats
	_, err := Demux([]byte{extBit | 1}, &stats) // ext bit set, no length byte
	assert.Error(t, err)
}

func TestReassembler_BoundedQueuesDropWhenFull(t *testing.T) {
	r := NewReassembler(2)
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Ingest(Mux([]SubPDU{{LCID: 5, Payload: []byte{byte(i)}}})))
	}
	q := r.Drain(5)
	require.Len(t, q, 2)
	assert.Equal(t, []byte{0}, q[0].Payload)
	assert.Equal(t, []byte{1}, q[1].Payload)
	assert.Equal(t, uint64(2), r.Stats().Exhausted)

	// Drain empties the queue; new ingests land again.
	require.NoError(t, r.Ingest(Mux([]SubPDU{{LCID: 5, Payload: []byte("x")}})))
	assert.Len(t, r.Drain(5), 1)
}
