// Package pcapsink writes decoded MAC PDUs and RARs to pcap capture
// files for offline analysis. Each record
// carries the {tti, rnti, direction, bytes} tuple inside a compact
// framing header, under the MAC-LTE user link type Wireshark dissects.
package pcapsink

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Direction of a captured PDU.
type Direction uint8

const (
	Downlink Direction = iota
	Uplink
)

func (d Direction) String() string {
	if d == Uplink {
		return "UL"
	}
	return "DL"
}

// Record is one capture entry.
type Record struct {
	TTI       uint32
	RNTI      uint16
	Direction Direction
	IsRAR     bool
	Bytes     []byte
}

// pcap file constants: classic little-endian pcap, user link type 147
// (the conventional slot for MAC-LTE framing).
const (
	pcapMagic    = 0xa1b2c3d4
	pcapVerMajor = 2
	pcapVerMinor = 4
	pcapSnaplen  = 65535
	pcapLinkType = 147
)

// recordHeaderLen is the length of the framing header preceding the
// PDU bytes inside each packet: direction(1) rar(1) rnti(2) tti(4).
const recordHeaderLen = 8

// Writer appends records to a pcap file whose name is rendered from a
// strftime pattern, rotating automatically when the rendered name
// changes (a pattern with %Y-%m-%d gives daily files). Safe for one
// writer goroutine; Write never blocks on anything but the filesystem.
type Writer struct {
	mu      sync.Mutex
	pattern *strftime.Strftime
	now     func() time.Time
	file    *os.File
	name    string
	dropped uint64
}

// NewWriter compiles the filename pattern. No file is opened until the
// first Write.
func NewWriter(pattern string) (*Writer, error) {
	p, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("pcapsink: bad filename pattern %q: %w", pattern, err)
	}
	return &Writer{pattern: p, now: time.Now}, nil
}

// SetClock replaces the wall clock used for file naming and packet
// timestamps. Intended for tests.
func (w *Writer) SetClock(now func() time.Time) { w.now = now }

// Write appends one record, opening or rotating the underlying file as
// the rendered name dictates. A failed write drops the record and
// counts it rather than stalling the caller.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := w.now()
	if err := w.ensureFile(t); err != nil {
		w.dropped++
		return err
	}

	payload := make([]byte, recordHeaderLen+len(rec.Bytes))
	payload[0] = byte(rec.Direction)
	if rec.IsRAR {
		payload[1] = 1
	}
	binary.LittleEndian.PutUint16(payload[2:], rec.RNTI)
	binary.LittleEndian.PutUint32(payload[4:], rec.TTI)
	copy(payload[recordHeaderLen:], rec.Bytes)

	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(t.Unix()))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(t.Nanosecond()/1000))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(len(payload)))

	if _, err := w.file.Write(hdr[:]); err != nil {
		w.dropped++
		return fmt.Errorf("pcapsink: record header: %w", err)
	}
	if _, err := w.file.Write(payload); err != nil {
		w.dropped++
		return fmt.Errorf("pcapsink: record payload: %w", err)
	}
	return nil
}

// Dropped returns the count of records lost to filesystem errors.
func (w *Writer) Dropped() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close flushes and closes the current file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.name = ""
	return err
}

// ensureFile opens (or rotates to) the file named by the pattern at t,
// writing the pcap global header on creation.
func (w *Writer) ensureFile(t time.Time) error {
	name := w.pattern.FormatString(t)
	if w.file != nil && name == w.name {
		return nil
	}
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("pcapsink: open %q: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("pcapsink: stat %q: %w", name, err)
	}
	if info.Size() == 0 {
		var hdr [24]byte
		binary.LittleEndian.PutUint32(hdr[0:], pcapMagic)
		binary.LittleEndian.PutUint16(hdr[4:], pcapVerMajor)
		binary.LittleEndian.PutUint16(hdr[6:], pcapVerMinor)
		binary.LittleEndian.PutUint32(hdr[16:], pcapSnaplen)
		binary.LittleEndian.PutUint32(hdr[20:], pcapLinkType)
		if _, err := f.Write(hdr[:]); err != nil {
			f.Close()
			return fmt.Errorf("pcapsink: global header: %w", err)
		}
	}
	w.file = f
	w.name = name
	return nil
}
