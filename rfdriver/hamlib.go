package rfdriver

import (
	"fmt"
	"math"
	"sync"

	"github.com/xylo04/goHamlib"
)

// Tuner controls the analog front-end: carrier frequency and RF gain.
// The soundcard path handles samples; the tuner only moves the radio.
type Tuner interface {
	SetFreq(hz float64) error
	SetGain(dB float64) error
	Close() error
}

// HamlibConfig names the rig-control backend and its serial port.
type HamlibConfig struct {
	Model    int // hamlib rig model number
	Portname string
	Baudrate int
}

// HamlibTuner drives a rig-control backend through hamlib. All calls
// are serialized; hamlib backends are not reentrant.
type HamlibTuner struct {
	mu  sync.Mutex
	rig goHamlib.Rig
}

// NewHamlibTuner initializes and opens the configured rig backend.
func NewHamlibTuner(cfg HamlibConfig) (*HamlibTuner, error) {
	t := &HamlibTuner{}
	if err := t.rig.Init(cfg.Model); err != nil {
		return nil, fmt.Errorf("rfdriver: hamlib init model %d: %w", cfg.Model, err)
	}
	t.rig.SetPort(goHamlib.Port{
		RigPortType: goHamlib.RIG_PORT_SERIAL,
		Portname:    cfg.Portname,
		Baudrate:    cfg.Baudrate,
		Databits:    8,
		Stopbits:    1,
	})
	if err := t.rig.Open(); err != nil {
		return nil, fmt.Errorf("rfdriver: hamlib open %s: %w", cfg.Portname, err)
	}
	return t, nil
}

// SetFreq retunes the rig's current VFO.
func (t *HamlibTuner) SetFreq(hz float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.rig.SetFreq(goHamlib.VFO_CURR, hz); err != nil {
		return fmt.Errorf("rfdriver: hamlib set_freq %g: %w", hz, err)
	}
	return nil
}

// SetGain maps a dB request onto the rig's normalized RF-gain level.
// Hamlib levels run 0..1; 0 dB maps to full gain and each -6 dB halves
// it.
func (t *HamlibTuner) SetGain(dB float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	level := gainToLevel(dB)
	if err := t.rig.SetLevel(goHamlib.VFO_CURR, goHamlib.RIG_LEVEL_RF, level); err != nil {
		return fmt.Errorf("rfdriver: hamlib set_level %g dB: %w", dB, err)
	}
	return nil
}

// Close shuts the backend down.
func (t *HamlibTuner) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rig.Close()
	t.rig.Cleanup()
	return nil
}

// gainToLevel converts a gain request in dB (<= 0, relative to full
// scale) to hamlib's normalized 0..1 RF level.
func gainToLevel(dB float64) float32 {
	if dB >= 0 {
		return 1
	}
	return float32(math.Exp2(dB / 6))
}
