package pcapsink

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mac.pcap")
	w, err := NewWriter(path)
	require.NoError(t, err)
	defer w.Close()

	recs := []Record{
		{TTI: 41, RNTI: 0x4601, Direction: Downlink, Bytes: []byte{0x01, 0x02, 0x03}},
		{TTI: 42, RNTI: 0x4601, Direction: Uplink, Bytes: []byte{0xff}},
		{TTI: 43, RNTI: 0xfff4, Direction: Downlink, IsRAR: true, Bytes: []byte{0x70, 0x06}},
	}
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(recs))
	for i := range recs {
		assert.Equal(t, recs[i].TTI, got[i].TTI)
		assert.Equal(t, recs[i].RNTI, got[i].RNTI)
		assert.Equal(t, recs[i].Direction, got[i].Direction)
		assert.Equal(t, recs[i].IsRAR, got[i].IsRAR)
		assert.Equal(t, recs[i].Bytes, got[i].Bytes)
	}
	assert.Zero(t, w.Dropped())
}

func TestWriter_DailyRotation(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "mac-%Y-%m-%d.pcap"))
	require.NoError(t, err)
	defer w.Close()

	day := time.Date(2026, 7, 30, 23, 59, 0, 0, time.UTC)
	w.SetClock(func() time.Time { return day })
	require.NoError(t, w.Write(Record{TTI: 1, RNTI: 70, Bytes: []byte{1}}))

	day = day.Add(2 * time.Minute) // crosses midnight
	require.NoError(t, w.Write(Record{TTI: 2, RNTI: 70, Bytes: []byte{2}}))
	require.NoError(t, w.Close())

	first, err := ReadFile(filepath.Join(dir, "mac-2026-07-30.pcap"))
	require.NoError(t, err)
	second, err := ReadFile(filepath.Join(dir, "mac-2026-07-31.pcap"))
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, uint32(1), first[0].TTI)
	assert.Equal(t, uint32(2), second[0].TTI)
}

func TestWriter_AppendsToExistingFileWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mac.pcap")

	w1, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w1.Write(Record{TTI: 1, RNTI: 9, Bytes: []byte{1}}))
	require.NoError(t, w1.Close())

	w2, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w2.Write(Record{TTI: 2, RNTI: 9, Bytes: []byte{2}}))
	require.NoError(t, w2.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
}
