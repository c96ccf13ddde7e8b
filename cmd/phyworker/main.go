// phyworker runs one PHY worker against a soundcard I/Q front-end:
// cell search, tracking, and downlink decode, with decoded MAC PDUs
// exported to a pcap file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/ransys/phycore/macif"
	"github.com/ransys/phycore/pcapsink"
	"github.com/ransys/phycore/phy"
	"github.com/ransys/phycore/rfdriver"
	"github.com/ransys/phycore/transform"
)

func main() {
	configPath := pflag.String("config", "phy.yaml", "YAML configuration file")
	fftSize := pflag.Int("fft", 512, "OFDM FFT size")
	bandwidthRB := pflag.Int("rb", 25, "cell bandwidth in resource blocks")
	sampleRate := pflag.Float64("srate", 7680000, "sample rate in Hz")
	pcapPattern := pflag.String("pcap", "", "pcap filename pattern (strftime), empty disables capture")
	cpus := pflag.String("cpu", "", "comma-separated CPU affinity list for the worker thread")
	rtPriority := pflag.Int("rt-priority", 0, "SCHED_FIFO priority, 0 disables real-time scheduling")
	logLevel := pflag.String("log-level", "info", "debug, info, warn, or error")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "phy"})
	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	cfg, err := phy.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("configuration rejected", "err", err)
	}

	worker := phy.NewWorker(4, cfg.SyncConfig(*fftSize), logger.With("sub", "worker"))
	worker.AttachMAC(macif.NopScheduler{}, macif.PDUSinkFunc(func(tb macif.DecodedTB) {
		logger.Info("transport block", "tti", tb.TTI, "rnti", tb.RNTI, "bytes", len(tb.Payload), "crc_ok", tb.CRCOK)
	}))

	if *pcapPattern != "" {
		pcap, err := pcapsink.NewWriter(*pcapPattern)
		if err != nil {
			logger.Fatal("pcap writer", "err", err)
		}
		defer pcap.Close()
		worker.AttachPCAP(pcap)
	}

	cpKind, _ := cfg.CPMode()
	worker.ConfigureDownlink(phy.DownlinkConfig{
		Cell: phy.CellIdentity{
			BandwidthRB:     *bandwidthRB,
			NumAntennaPorts: 1,
			CP:              cpKind,
		},
		FFTSize:          *fftSize,
		SmoothTaps:       3,
		Noise:            cfg.NoiseAlgorithm(),
		MeasureAvgFrames: cfg.Measure.AvgFrames,
		MaxHARQProcesses: cfg.HARQ.MaxProcesses,
	})

	frontend, err := rfdriver.NewSoundcardSDR(rfdriver.SoundcardConfig{
		SampleRate:      *sampleRate,
		FramesPerBuffer: subframeSamples(*fftSize),
	})
	if err != nil {
		logger.Fatal("RF front-end", "err", err)
	}
	defer frontend.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy := phy.SchedulingPolicy{}
	if *rtPriority > 0 {
		policy.RealTime = true
		policy.Priority = *rtPriority
	}
	if affinity, err := parseCPUList(*cpus); err != nil {
		logger.Fatal("bad --cpu list", "err", err)
	} else {
		policy.CPUAffinity = affinity
	}

	go func() {
		if err := worker.Start(ctx, policy); err != nil {
			logger.Error("worker stopped", "err", err)
		}
	}()

	logger.Info("running", "fft", *fftSize, "rb", *bandwidthRB, "srate", *sampleRate)
	subframe := 0
	for ctx.Err() == nil {
		samples, err := frontend.GetBufferRx(0, 0)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			worker.NotifyRFTimeout()
			logger.Warn("RF read failed", "err", err)
			continue
		}
		if err := worker.PushRx(ctx, phy.SampleBuffer{SubframeIdx: subframe, Samples: samples}); err != nil {
			logger.Warn("subframe dropped", "err", err)
		}
		subframe = (subframe + 1) % 10
	}
	logger.Info("shutting down")
}

// subframeSamples approximates one subframe's sample count for the
// configured FFT size (normal CP).
func subframeSamples(fftSize int) int {
	cfg, err := transform.NewConfig(fftSize, transform.CPNormal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unsupported FFT size %d\n", fftSize)
		os.Exit(2)
	}
	return cfg.SamplesPerSubframe() / 2
}

func parseCPUList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
