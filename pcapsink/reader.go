package pcapsink

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// ReadRecord is one record read back from a capture file, with the
// packet timestamp restored.
type ReadRecord struct {
	Record
	Timestamp time.Time
}

// ReadFile parses a capture file written by Writer and returns its
// records in file order.
func ReadFile(path string) ([]ReadRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcapsink: %w", err)
	}
	defer f.Close()
	return readAll(f)
}

func readAll(r io.Reader) ([]ReadRecord, error) {
	var global [24]byte
	if _, err := io.ReadFull(r, global[:]); err != nil {
		return nil, fmt.Errorf("pcapsink: global header: %w", err)
	}
	if binary.LittleEndian.Uint32(global[0:]) != pcapMagic {
		return nil, fmt.Errorf("pcapsink: bad magic %#x", binary.LittleEndian.Uint32(global[0:]))
	}
	if lt := binary.LittleEndian.Uint32(global[20:]); lt != pcapLinkType {
		return nil, fmt.Errorf("pcapsink: unexpected link type %d", lt)
	}

	var out []ReadRecord
	for {
		var hdr [16]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("pcapsink: record header: %w", err)
		}
		caplen := binary.LittleEndian.Uint32(hdr[8:])
		if caplen < recordHeaderLen || caplen > pcapSnaplen {
			return out, fmt.Errorf("pcapsink: record length %d out of range", caplen)
		}
		payload := make([]byte, caplen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return out, fmt.Errorf("pcapsink: record payload: %w", err)
		}

		sec := binary.LittleEndian.Uint32(hdr[0:])
		usec := binary.LittleEndian.Uint32(hdr[4:])
		out = append(out, ReadRecord{
			Record: Record{
				Direction: Direction(payload[0]),
				IsRAR:     payload[1] != 0,
				RNTI:      binary.LittleEndian.Uint16(payload[2:]),
				TTI:       binary.LittleEndian.Uint32(payload[4:]),
				Bytes:     payload[recordHeaderLen:],
			},
			Timestamp: time.Unix(int64(sec), int64(usec)*1000),
		})
	}
}
