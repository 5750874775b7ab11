// Package conditioning implements the in-place transforms applied to every
// burst before channelization. A Chain runs the enabled stages in a fixed
// order: DC-offset removal, I/Q imbalance correction, frequency-offset
// de-rotation, automatic gain normalisation and noise smoothing.
//
// Stages own any scratch memory they need and reuse it between bursts; none of
// them keeps signal state from one burst to the next.
package conditioning

import (
	"io"
	"log/slog"
	"strings"

	"github.com/cwbudde/algo-vecmath/cpu"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

const (
	DefaultDCAlpha            = 0.01
	DefaultIQGainError        = 1.0
	DefaultIQPhaseError       = 0.01
	DefaultAGCTarget          = 0.5
	DefaultSmoothingHalfWidth = 5
)

// Stage is one in-place transform over the samples of a burst
type Stage interface {
	Name() string
	Apply(samples []iq.Sample)
}

// Config selects and parameterises the stages
type Config struct {
	SampleRate float64

	DCOffset bool
	DCAlpha  float64

	IQImbalance  bool
	IQGainError  float64
	IQPhaseError float64 // Radians

	FrequencyOffset float64 // Hz, de-rotation is skipped when zero

	AGC       bool
	AGCTarget float64

	Smoothing          bool
	SmoothingHalfWidth int
}

// Validate checks the stage parameters
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fault.NewConfigError("conditioning: sample rate must be positive: %g given", c.SampleRate)
	}
	if c.DCOffset && (c.DCAlpha <= 0 || c.DCAlpha > 1) {
		return fault.NewConfigError("conditioning: DC alpha must be in (0, 1]: %g given", c.DCAlpha)
	}
	if c.IQImbalance && c.IQGainError <= 0 {
		return fault.NewConfigError("conditioning: I/Q gain error must be positive: %g given", c.IQGainError)
	}
	if c.AGC && c.AGCTarget <= 0 {
		return fault.NewConfigError("conditioning: AGC target must be positive: %g given", c.AGCTarget)
	}
	if c.Smoothing && c.SmoothingHalfWidth < 1 {
		return fault.NewConfigError("conditioning: smoothing half-width must be at least 1: %d given", c.SmoothingHalfWidth)
	}
	return nil
}

// Chain applies the enabled stages in order
type Chain struct {
	stages []Stage
	agc    *AGC
	logger *slog.Logger
}

// WithLogger sets the logger for the chain
func WithLogger(logger *slog.Logger) func(c *Chain) {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain builds the chain for the given configuration and burst length.
// Scratch buffers are sized for burstLength up front.
func NewChain(config Config, burstLength int, options ...func(c *Chain)) (*Chain, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := Chain{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	if config.DCOffset {
		c.stages = append(c.stages, NewDCOffset(config.DCAlpha))
	}

	if config.IQImbalance {
		c.stages = append(c.stages, NewIQImbalance(config.IQGainError, config.IQPhaseError, burstLength, batchAvailable()))
	}

	if config.FrequencyOffset != 0 {
		c.stages = append(c.stages, NewFrequencyOffset(config.FrequencyOffset, config.SampleRate))
	}

	if config.AGC {
		c.agc = NewAGC(config.AGCTarget, burstLength)
		c.stages = append(c.stages, c.agc)
	}

	if config.Smoothing {
		c.stages = append(c.stages, NewNoiseSmoothing(config.SmoothingHalfWidth, burstLength))
	}

	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	c.logger.Info("conditioning chain", slog.String("stages", strings.Join(names, ",")))

	return &c, nil
}

// Apply runs every stage over the burst in place
func (c *Chain) Apply(b *iq.Burst) {
	for _, s := range c.stages {
		s.Apply(b.Samples)
	}
}

// Stages returns the enabled stages in execution order
func (c *Chain) Stages() []Stage {
	return c.stages
}

// InputLevel returns the mean magnitude the AGC measured on the last burst,
// or zero when the AGC is disabled
func (c *Chain) InputLevel() float64 {
	if c.agc == nil {
		return 0
	}
	return c.agc.Level()
}

// batchAvailable reports whether vecmath dispatches to a vector unit
func batchAvailable() bool {
	f := cpu.DetectFeatures()
	if f.ForceGeneric {
		return false
	}
	return f.HasSSE2 || f.HasAVX || f.HasAVX2 || f.HasAVX512 || f.HasNEON
}
