// cellscan drives the synchronization engine over a recorded I/Q trace
// (or a live soundcard) and shows the state machine's progress live on
// a raw terminal. With --monitor-pt it also exposes a pseudo-terminal
// that streams one line per state change, so external tools can follow
// a scan without scraping the display.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/ransys/phycore/rfdriver"
	syncengine "github.com/ransys/phycore/sync"
	"github.com/ransys/phycore/transform"
)

func main() {
	iqPath := pflag.String("iq", "", "raw I/Q trace (interleaved float32 LE); empty uses the soundcard")
	fftSize := pflag.Int("fft", 512, "OFDM FFT size")
	sampleRate := pflag.Float64("srate", 7680000, "sample rate in Hz, soundcard mode only")
	psrThreshold := pflag.Float64("psr", 3.0, "peak-to-side-lobe ratio threshold")
	maxFrames := pflag.Int("max-frames", 200, "give up after this many frames without a lock")
	monitorPT := pflag.Bool("monitor-pt", false, "expose a pseudo-terminal streaming state changes")
	discover := pflag.Bool("discover", false, "list candidate RF front-ends and exit")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "cellscan"})

	if *discover {
		runDiscover(logger)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var monitor *os.File
	if *monitorPT {
		master, slave, err := pty.Open()
		if err != nil {
			logger.Fatal("pseudo-terminal", "err", err)
		}
		defer master.Close()
		monitor = master
		fmt.Printf("monitor port: %s\n", slave.Name())
	}

	// Raw mode keeps the live status line from fighting the terminal's
	// line discipline; restored on exit.
	console, termErr := term.Open("/dev/tty", term.RawMode)
	if termErr == nil {
		defer console.Restore()
		defer console.Close()
	}

	cfg := syncengine.DefaultConfig(*fftSize)
	cfg.PSRThreshold = *psrThreshold
	engine := syncengine.NewEngine(cfg)

	next, cleanup, err := sampleSource(*iqPath, *fftSize, *sampleRate)
	if err != nil {
		logger.Fatal("sample source", "err", err)
	}
	defer cleanup()

	lastState := engine.State()
	for frame := 0; frame < *maxFrames && ctx.Err() == nil; frame++ {
		samples, err := next()
		if err != nil {
			if err == io.EOF {
				break
			}
			logger.Fatal("sample read", "err", err)
		}

		if _, err := engine.ProcessSubframe(samples); err != nil {
			logger.Fatal("engine", "err", err)
		}

		state := engine.State()
		status := fmt.Sprintf("frame %4d  state %-5s", frame, state)
		if state == syncengine.StateTRACK {
			lock := engine.Lock()
			status += fmt.Sprintf("  cell %3d  cp %v  sf %d  cfo %+.4f",
				lock.PhysCellID, lock.CP, lock.SubframeIdx, lock.FractionalCFO)
		}
		fmt.Printf("\r%s", status)

		if state != lastState {
			lastState = state
			if monitor != nil {
				fmt.Fprintf(monitor, "%d %s %d\n", frame, state, engine.Lock().PhysCellID)
			}
		}

		if state == syncengine.StateTRACK {
			fmt.Println()
			lock := engine.Lock()
			logger.Info("locked", "cell_id", lock.PhysCellID, "n_id_1", lock.NID1, "n_id_2", lock.NID2, "cp", lock.CP)
			return
		}
	}
	fmt.Println()
	logger.Warn("no lock", "frames", *maxFrames)
	os.Exit(1)
}

// sampleSource returns a per-subframe sample reader for either a raw
// I/Q file or the default soundcard.
func sampleSource(iqPath string, fftSize int, srate float64) (func() ([]complex128, error), func(), error) {
	ofdm, err := transform.NewConfig(fftSize, transform.CPNormal)
	if err != nil {
		return nil, nil, err
	}
	perSubframe := ofdm.SamplesPerSubframe() / 2

	if iqPath != "" {
		f, err := os.Open(iqPath)
		if err != nil {
			return nil, nil, err
		}
		raw := make([]byte, 8*perSubframe)
		next := func() ([]complex128, error) {
			if _, err := io.ReadFull(f, raw); err != nil {
				if err == io.ErrUnexpectedEOF {
					return nil, io.EOF
				}
				return nil, err
			}
			out := make([]complex128, perSubframe)
			for i := range out {
				re := math.Float32frombits(binary.LittleEndian.Uint32(raw[8*i:]))
				im := math.Float32frombits(binary.LittleEndian.Uint32(raw[8*i+4:]))
				out[i] = complex(float64(re), float64(im))
			}
			return out, nil
		}
		return next, func() { f.Close() }, nil
	}

	sdr, err := rfdriver.NewSoundcardSDR(rfdriver.SoundcardConfig{
		SampleRate:      srate,
		FramesPerBuffer: perSubframe,
	})
	if err != nil {
		return nil, nil, err
	}
	next := func() ([]complex128, error) { return sdr.GetBufferRx(0, 0) }
	return next, func() { sdr.Close() }, nil
}

// discoverTimeout bounds the DNS-SD browse in --discover mode.
const discoverTimeout = 3 * time.Second

func runDiscover(logger *log.Logger) {
	found, err := rfdriver.Discover(context.Background(), discoverTimeout)
	if err != nil {
		logger.Fatal("discovery", "err", err)
	}
	if len(found) == 0 {
		fmt.Println("no RF front-ends found")
		return
	}
	for _, fe := range found {
		fmt.Printf("%-8s %-24s %s\n", fe.Kind, fe.Name, fe.Address)
	}
}
