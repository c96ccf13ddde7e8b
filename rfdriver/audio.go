package rfdriver

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// SoundcardSDR is a Frontend backed by a stereo soundcard carrying I/Q
// on its two channels, with an optional Tuner moving the analog
// front-end and an optional Keyer gating the transmit path. This is
// the classic soundmodem arrangement: the card provides samples, the
// rig-control link provides tuning, a GPIO line provides keying.
type SoundcardSDR struct {
	tuner Tuner
	keyer Keyer

	mu        sync.Mutex
	srate     float64
	frames    int
	inBuf     []float32
	outBuf    []float32
	inStream  *portaudio.Stream
	outStream *portaudio.Stream
	closed    bool
}

// SoundcardConfig sizes the capture path.
type SoundcardConfig struct {
	SampleRate      float64
	FramesPerBuffer int // complex samples per GetBufferRx slice
	Tuner           Tuner // nil for a fixed-tuned front-end
	Keyer           Keyer // nil when there is no keying line
}

// NewSoundcardSDR initializes the audio subsystem and opens the
// default full-duplex device pair.
func NewSoundcardSDR(cfg SoundcardConfig) (*SoundcardSDR, error) {
	if cfg.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("rfdriver: frames per buffer %d must be positive", cfg.FramesPerBuffer)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("rfdriver: portaudio init: %w", err)
	}

	s := &SoundcardSDR{
		tuner:  cfg.Tuner,
		keyer:  cfg.Keyer,
		srate:  cfg.SampleRate,
		frames: cfg.FramesPerBuffer,
		inBuf:  make([]float32, 2*cfg.FramesPerBuffer),
		outBuf: make([]float32, 2*cfg.FramesPerBuffer),
	}
	if s.keyer == nil {
		s.keyer = NullKeyer{}
	}

	in, err := portaudio.OpenDefaultStream(2, 0, cfg.SampleRate, cfg.FramesPerBuffer, s.inBuf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("rfdriver: open capture stream: %w", err)
	}
	out, err := portaudio.OpenDefaultStream(0, 2, cfg.SampleRate, cfg.FramesPerBuffer, s.outBuf)
	if err != nil {
		in.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("rfdriver: open playback stream: %w", err)
	}
	s.inStream = in
	s.outStream = out

	if err := in.Start(); err != nil {
		s.Close()
		return nil, fmt.Errorf("rfdriver: start capture: %w", err)
	}
	return s, nil
}

// GetBufferRx blocks until the card delivers the next capture buffer
// and returns it as complex samples. Only carrier 0, antenna 0 exist
// on a soundcard front-end.
func (s *SoundcardSDR) GetBufferRx(cc, ant int) ([]complex128, error) {
	if cc != 0 || ant != 0 {
		return nil, fmt.Errorf("rfdriver: soundcard has one carrier and one antenna, asked for cc=%d ant=%d", cc, ant)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("rfdriver: frontend closed")
	}
	if err := s.inStream.Read(); err != nil {
		return nil, fmt.Errorf("rfdriver: capture read: %w", err)
	}
	return InterleavedToIQ(s.inBuf), nil
}

// SendTx keys the transmitter, plays the samples, and unkeys. The
// TxContext timestamp is advisory on a soundcard path: the card has no
// hardware timestamping, so samples go out as soon as the stream
// accepts them.
func (s *SoundcardSDR) SendTx(ctx TxContext, samples []complex128) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("rfdriver: frontend closed")
	}
	if err := s.keyer.Key(true); err != nil {
		return err
	}
	defer s.keyer.Key(false)

	if err := s.outStream.Start(); err != nil {
		return fmt.Errorf("rfdriver: start playback: %w", err)
	}
	defer s.outStream.Stop()

	for off := 0; off < len(samples); off += s.frames {
		end := off + s.frames
		if end > len(samples) {
			end = len(samples)
		}
		chunk := IQToInterleaved(samples[off:end])
		copy(s.outBuf, chunk)
		for i := len(chunk); i < len(s.outBuf); i++ {
			s.outBuf[i] = 0
		}
		if err := s.outStream.Write(); err != nil {
			return fmt.Errorf("rfdriver: playback write at %d: %w", off, err)
		}
	}
	return nil
}

// SetFreq delegates to the tuner, if any.
func (s *SoundcardSDR) SetFreq(cc int, hz float64) error {
	if s.tuner == nil {
		return fmt.Errorf("rfdriver: no tuner attached")
	}
	return s.tuner.SetFreq(hz)
}

// SetGain delegates to the tuner, if any.
func (s *SoundcardSDR) SetGain(cc int, dB float64) error {
	if s.tuner == nil {
		return fmt.Errorf("rfdriver: no tuner attached")
	}
	return s.tuner.SetGain(dB)
}

// SetSrate reports whether the card can honor the requested rate; the
// streams are opened at a fixed rate, so only the configured value is
// accepted.
func (s *SoundcardSDR) SetSrate(cc int, hz float64) error {
	if hz != s.srate {
		return fmt.Errorf("rfdriver: soundcard fixed at %g Hz, cannot set %g", s.srate, hz)
	}
	return nil
}

// Close stops the streams and tears the audio subsystem down.
func (s *SoundcardSDR) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.inStream != nil {
		s.inStream.Stop()
		s.inStream.Close()
	}
	if s.outStream != nil {
		s.outStream.Close()
	}
	if s.keyer != nil {
		s.keyer.Close()
	}
	if s.tuner != nil {
		s.tuner.Close()
	}
	return portaudio.Terminate()
}
