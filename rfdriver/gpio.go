package rfdriver

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Keyer switches the transmit path on and off at TX-buffer handoff.
type Keyer interface {
	Key(on bool) error
	Close() error
}

// GPIOKeying drives a TX-enable line through the kernel GPIO character
// device. Invert handles active-low keying circuits.
type GPIOKeying struct {
	line   *gpiocdev.Line
	invert bool
}

// NewGPIOKeying requests the line as an output, initially unkeyed.
func NewGPIOKeying(chip string, offset int, invert bool) (*GPIOKeying, error) {
	initial := 0
	if invert {
		initial = 1
	}
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("rfdriver: gpio %s line %d: %w", chip, offset, err)
	}
	return &GPIOKeying{line: line, invert: invert}, nil
}

// Key asserts or releases the TX-enable line.
func (g *GPIOKeying) Key(on bool) error {
	v := 0
	if on != g.invert {
		v = 1
	}
	if err := g.line.SetValue(v); err != nil {
		return fmt.Errorf("rfdriver: gpio set %d: %w", v, err)
	}
	return nil
}

// Close releases the line, leaving it unkeyed.
func (g *GPIOKeying) Close() error {
	_ = g.Key(false)
	return g.line.Close()
}

// NullKeyer is a Keyer for front-ends with no keying line.
type NullKeyer struct{}

func (NullKeyer) Key(bool) error { return nil }
func (NullKeyer) Close() error   { return nil }
