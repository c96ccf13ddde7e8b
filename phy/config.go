package phy

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ransys/phycore/chanest"
	"github.com/ransys/phycore/ratematch"
	syncengine "github.com/ransys/phycore/sync"
	"github.com/ransys/phycore/transform"
)

// Config is the recognized configuration surface, loaded once at
// startup from a YAML document and immutable thereafter.
type Config struct {
	PSS struct {
		MaxFrames          int     `yaml:"max_frames"`
		EarlyStopThreshold float64 `yaml:"early_stop_threshold"`
	} `yaml:"pss"`

	PBCH struct {
		MaxFrames int `yaml:"max_frames"`
	} `yaml:"pbch"`

	Measure struct {
		AvgFrames int `yaml:"avg_frames"`
	} `yaml:"measure"`

	CP struct {
		Mode string `yaml:"mode"` // auto, normal, extended
	} `yaml:"cp"`

	CFO struct {
		EMAAlpha float64 `yaml:"ema_alpha"`
	} `yaml:"cfo"`

	Noise struct {
		Algorithm string `yaml:"algorithm"` // refs, pss, empty-sc
	} `yaml:"noise"`

	RateMatch struct {
		RVSequence []int `yaml:"rv_sequence"`
	} `yaml:"rate_match"`

	HARQ struct {
		MaxProcesses int `yaml:"max_processes"`
	} `yaml:"harq"`
}

// DefaultConfig returns the documented default for every key.
func DefaultConfig() Config {
	var c Config
	c.PSS.MaxFrames = 100
	c.PSS.EarlyStopThreshold = 3.0
	c.PBCH.MaxFrames = 100
	c.Measure.AvgFrames = 10
	c.CP.Mode = "auto"
	c.CFO.EMAAlpha = 0.1
	c.Noise.Algorithm = "refs"
	c.RateMatch.RVSequence = []int{0, 2, 3, 1}
	c.HARQ.MaxProcesses = 8
	return c
}

// LoadConfig reads path as a YAML document over DefaultConfig and
// validates the result. A missing file is not an error: the defaults
// are returned unchanged.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, Wrap(InvalidConfig, "LoadConfig", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, Wrap(InvalidConfig, "LoadConfig", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks every configured value's range, returning an
// InvalidConfig error for the first violation.
func (c Config) Validate() error {
	switch {
	case c.PSS.MaxFrames <= 0:
		return Newf(InvalidConfig, "Config.Validate", "pss.max_frames %d must be positive", c.PSS.MaxFrames)
	case c.PSS.EarlyStopThreshold <= 0:
		return Newf(InvalidConfig, "Config.Validate", "pss.early_stop_threshold %g must be positive", c.PSS.EarlyStopThreshold)
	case c.PBCH.MaxFrames <= 0:
		return Newf(InvalidConfig, "Config.Validate", "pbch.max_frames %d must be positive", c.PBCH.MaxFrames)
	case c.Measure.AvgFrames <= 0:
		return Newf(InvalidConfig, "Config.Validate", "measure.avg_frames %d must be positive", c.Measure.AvgFrames)
	case c.CFO.EMAAlpha < 0 || c.CFO.EMAAlpha > 1:
		return Newf(InvalidConfig, "Config.Validate", "cfo.ema_alpha %g out of [0,1]", c.CFO.EMAAlpha)
	case c.HARQ.MaxProcesses <= 0:
		return Newf(InvalidConfig, "Config.Validate", "harq.max_processes %d must be positive", c.HARQ.MaxProcesses)
	}

	switch c.CP.Mode {
	case "auto", "normal", "extended":
	default:
		return Newf(InvalidConfig, "Config.Validate", "cp.mode %q must be auto, normal, or extended", c.CP.Mode)
	}

	switch c.Noise.Algorithm {
	case "refs", "pss", "empty-sc":
	default:
		return Newf(InvalidConfig, "Config.Validate", "noise.algorithm %q must be refs, pss, or empty-sc", c.Noise.Algorithm)
	}

	if len(c.RateMatch.RVSequence) == 0 {
		return Newf(InvalidConfig, "Config.Validate", "rate_match.rv_sequence must not be empty")
	}
	for _, rv := range c.RateMatch.RVSequence {
		if rv < 0 || rv > 3 {
			return Newf(InvalidConfig, "Config.Validate", "rate_match.rv_sequence entry %d out of [0,3]", rv)
		}
	}
	return nil
}

// SyncConfig renders the relevant keys into the synchronization
// engine's own configuration for the given FFT size.
func (c Config) SyncConfig(fftSize int) syncengine.Config {
	sc := syncengine.DefaultConfig(fftSize)
	sc.PSRThreshold = c.PSS.EarlyStopThreshold
	sc.MaxFindFrames = c.PSS.MaxFrames
	sc.CFOAlpha = c.CFO.EMAAlpha
	return sc
}

// NoiseAlgorithm maps the configured name onto the channel estimator's
// enum. Validate has already rejected unknown names.
func (c Config) NoiseAlgorithm() chanest.NoiseAlgorithm {
	switch c.Noise.Algorithm {
	case "pss":
		return chanest.NoisePSSResidual
	case "empty-sc":
		return chanest.NoiseGuardPower
	default:
		return chanest.NoiseLSResidual
	}
}

// CPMode returns the configured cyclic-prefix kind and whether it was
// forced; auto leaves the choice to the synchronization engine's
// correlation-energy inference.
func (c Config) CPMode() (kind transform.CPKind, forced bool) {
	switch c.CP.Mode {
	case "normal":
		return transform.CPNormal, true
	case "extended":
		return transform.CPExtended, true
	default:
		return transform.CPNormal, false
	}
}

// RVSequence returns the configured redundancy-version cycling order.
func (c Config) RVSequence() []ratematch.RV {
	out := make([]ratematch.RV, len(c.RateMatch.RVSequence))
	for i, rv := range c.RateMatch.RVSequence {
		out[i] = ratematch.RV(rv)
	}
	return out
}
