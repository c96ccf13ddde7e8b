package phych

import (
	"fmt"

	"github.com/ransys/phycore/fec/crc"
	"github.com/ransys/phycore/fec/ldpc"
	"github.com/ransys/phycore/fec/turbo"
	"github.com/ransys/phycore/ratematch"
)

// ChannelCode selects which FEC family the transport-block pipeline
// uses.
type ChannelCode int

const (
	CodeTurbo ChannelCode = iota
	CodeLDPC
)

// TBConfig parameterizes one transport block's TX/RX pipeline.
type TBConfig struct {
	Code       ChannelCode
	Mod        Modulation
	CInit      uint32 // scrambling seed
	LDPC       *ldpc.Config
	E          int // rate-matched bit count per code block
	RV         ratematch.RV
}

// maxCB returns the per-code maximum code-block size.
func (c ChannelCode) maxCB() int {
	if c == CodeLDPC {
		return int(MaxCBSizeLDPC)
	}
	return int(MaxCBSizeTurbo)
}

// EncodedTransportBlock carries everything the RX side needs to
// reconstruct the TX pipeline's rate-matching plan.
type EncodedTransportBlock struct {
	Symbols      []complex128
	NumCB        int
	FillerBits   int
	BufferLen    int // circular buffer length per code block, for dematching
	Interleavers []*turbo.Interleaver
}

// EncodeTransportBlock runs the PDSCH/PUSCH TX pipeline: CRC24 attach
// -> segmentation (+ per-CB CRC24 if C>1) -> turbo/LDPC encode ->
// rate-match -> scramble -> modulate.
func EncodeTransportBlock(payload []byte, cfg TBConfig) (EncodedTransportBlock, error) {
	tbCRC, err := crc.New(crc.CRC24A)
	if err != nil {
		return EncodedTransportBlock{}, err
	}
	cbCRC, err := crc.New(crc.CRC24B)
	if err != nil {
		return EncodedTransportBlock{}, err
	}

	withCRC := tbCRC.Attach(payload)
	blocks, numCB, fillerBits, err := Segment(withCRC, cfg.Code.maxCB(), cbCRC.Attach)
	if err != nil {
		return EncodedTransportBlock{}, err
	}

	var allBits []byte
	var interleavers []*turbo.Interleaver
	bufferLen := 0
	for _, block := range blocks {
		var buf *ratematch.CircularBuffer
		switch cfg.Code {
		case CodeTurbo:
			sys, p1, p2, il := turbo.Encode(block)
			buf = ratematch.NewCircularBuffer(sys, p1, p2)
			interleavers = append(interleavers, il)
		case CodeLDPC:
			if cfg.LDPC == nil {
				return EncodedTransportBlock{}, fmt.Errorf("phych: LDPC config required")
			}
			codeword, encErr := cfg.LDPC.Encode(block)
			if encErr != nil {
				return EncodedTransportBlock{}, encErr
			}
			buf = ratematch.NewCircularBuffer(codeword)
		default:
			return EncodedTransportBlock{}, fmt.Errorf("phych: unknown channel code %v", cfg.Code)
		}
		bufferLen = buf.Len()
		selected, selErr := buf.Select(cfg.E, cfg.RV)
		if selErr != nil {
			return EncodedTransportBlock{}, selErr
		}
		allBits = append(allBits, selected...)
	}

	scrambled := Scramble(allBits, cfg.CInit)
	symbols, modErr := Modulate(scrambled, cfg.Mod)
	if modErr != nil {
		return EncodedTransportBlock{}, modErr
	}

	return EncodedTransportBlock{
		Symbols:      symbols,
		NumCB:        numCB,
		FillerBits:   fillerBits,
		BufferLen:    bufferLen,
		Interleavers: interleavers,
	}, nil
}

// HARQContext holds one transport block's per-codeblock soft buffers,
// persisting across HARQ retransmissions.
type HARQContext struct {
	buffers []*ratematch.SoftBuffer
}

// NewHARQContext allocates numCB soft buffers of bufferLen, zeroed
// (equivalent to an RV=0 new-data reset).
func NewHARQContext(numCB, bufferLen int) *HARQContext {
	h := &HARQContext{buffers: make([]*ratematch.SoftBuffer, numCB)}
	for i := range h.buffers {
		h.buffers[i] = ratematch.NewSoftBuffer(bufferLen)
	}
	return h
}

// DecodedTransportBlock is the outcome of the PDSCH/PUSCH RX pipeline.
type DecodedTransportBlock struct {
	Payload []byte
	CRCOK   bool
}

// DecodeTransportBlock runs the RX pipeline: predecoded
// constellation symbols in, demap -> descramble -> rate-dematch into the
// HARQ soft buffer -> decode with early-stop CRC -> CB concatenation
// -> transport-block CRC verify.
func DecodeTransportBlock(symbols []complex128, noiseVar float64, numCB int, harq *HARQContext, cfg TBConfig, interleavers []*turbo.Interleaver) (DecodedTransportBlock, error) {
	tbCRC, err := crc.New(crc.CRC24A)
	if err != nil {
		return DecodedTransportBlock{}, err
	}
	cbCRC, err := crc.New(crc.CRC24B)
	if err != nil {
		return DecodedTransportBlock{}, err
	}

	llr, err := DemapLLR(symbols, cfg.Mod, noiseVar)
	if err != nil {
		return DecodedTransportBlock{}, err
	}
	llr = DescrambleLLR(llr, cfg.CInit)

	perCB := len(llr) / numCB
	decodedBlocks := make([][]byte, numCB)
	for i := 0; i < numCB; i++ {
		cbLLR := llr[i*perCB : (i+1)*perCB]
		combined := ratematch.Dematch(cbLLR, harq.buffers[i].Len(), cfg.RV)
		combinedInt16 := make([]int16, len(combined))
		for j, v := range combined {
			combinedInt16[j] = clampInt16(v)
		}
		// Dematch has already applied the RV offset; the soft buffer
		// just accumulates the aligned vector.
		harq.buffers[i].Accumulate(combinedInt16)

		switch cfg.Code {
		case CodeTurbo:
			var il *turbo.Interleaver
			if i < len(interleavers) {
				il = interleavers[i]
			}
			full := harq.buffers[i].LLR()
			third := len(full) / 3
			result := turbo.Decode(full[:third], full[third:2*third], full[2*third:], il, cbCRC)
			decodedBlocks[i] = result.Bits
		case CodeLDPC:
			if cfg.LDPC == nil {
				return DecodedTransportBlock{}, fmt.Errorf("phych: LDPC config required")
			}
			result := cfg.LDPC.Decode(harq.buffers[i].LLR(), cbCRC)
			decodedBlocks[i] = result.Bits
		}
	}

	crcLen := 0
	if numCB > 1 {
		crcLen = cbCRC.Width()
	}
	concatenated := Concatenate(decodedBlocks, crcLen, 0)
	tbPayload, ok := tbCRC.Check(concatenated)
	return DecodedTransportBlock{Payload: tbPayload, CRCOK: ok}, nil
}
