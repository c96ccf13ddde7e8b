// vectorgen synthesizes baseband I/Q test vectors: clean or
// noise-impaired subframes carrying the synchronization signals of a
// chosen cell, in the raw interleaved-float32 format cellscan and the
// scenario tests consume.
package main

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/ransys/phycore/channel"
	syncengine "github.com/ransys/phycore/sync"
	"github.com/ransys/phycore/transform"
)

func main() {
	out := pflag.String("out", "trace.iq", "output file")
	pci := pflag.Int("pci", 123, "physical cell identifier [0,503]")
	fftSize := pflag.Int("fft", 512, "OFDM FFT size")
	frames := pflag.Int("frames", 20, "number of subframes to synthesize")
	snrDB := pflag.Float64("snr", 20, "signal-to-noise ratio in dB; >= 100 means noiseless")
	offset := pflag.Int("offset", 100, "PSS sample offset within each subframe")
	seed := pflag.Uint64("seed", 1, "noise generator seed")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "vectorgen"})
	if *pci < 0 || *pci > 503 {
		logger.Fatal("PCI out of range", "pci", *pci)
	}
	nID1, nID2 := *pci/3, *pci%3

	ofdm, err := transform.NewConfig(*fftSize, transform.CPNormal)
	if err != nil {
		logger.Fatal("FFT size", "err", err)
	}
	perSubframe := ofdm.SamplesPerSubframe() / 2

	field, err := syncengine.GenerateSyncField(nID1, nID2, 0, *fftSize, transform.CPNormal)
	if err != nil {
		logger.Fatal("sync field", "err", err)
	}
	if *offset+len(field) > perSubframe {
		logger.Fatal("offset leaves no room for the sync field", "offset", *offset, "field", len(field), "subframe", perSubframe)
	}

	awgn := channel.NewAWGN(*seed)
	awgn.SetN0(-*snrDB)

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatal("output", "err", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	subframe := make([]complex128, perSubframe)
	for frame := 0; frame < *frames; frame++ {
		for i := range subframe {
			subframe[i] = 0
		}
		copy(subframe[*offset:], field)

		samples := subframe
		if *snrDB < 100 {
			samples = awgn.RunComplex(subframe)
		}
		if err := writeIQ(w, samples); err != nil {
			logger.Fatal("write", "err", err)
		}
	}
	logger.Info("wrote trace", "file", *out, "pci", *pci, "frames", *frames, "snr_db", *snrDB, "samples_per_subframe", perSubframe)
}

func writeIQ(w *bufio.Writer, samples []complex128) error {
	var buf [8]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(real(s))))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(imag(s))))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}
