// Package mock provides a synthetic radio for runs without hardware. It
// produces tones with the impairments the conditioning chain removes: a DC
// offset, IQ gain and phase skew, and gaussian noise.
package mock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

const Device = "Mock"

// ErrInjected is the cause of reads failed by Config.FailEvery
var ErrInjected = errors.New("injected read failure")

// Tone is a complex exponential at an offset from the center frequency
type Tone struct {
	Offset    float64 `yaml:"offset" json:"offset"`       // Hz relative to the center frequency
	Amplitude float64 `yaml:"amplitude" json:"amplitude"` // Linear, full scale is 1
}

// Config is a struct for configuring the synthetic radio
type Config struct {
	Tones      []Tone  `yaml:"tones" json:"tones"`
	NoiseLevel float64 `yaml:"noiseLevel" json:"noiseLevel"` // Standard deviation per component
	DCOffsetI  float64 `yaml:"dcOffsetI" json:"dcOffsetI"`
	DCOffsetQ  float64 `yaml:"dcOffsetQ" json:"dcOffsetQ"`
	GainSkew   float64 `yaml:"gainSkew" json:"gainSkew"`   // Q amplitude relative to I
	PhaseSkew  float64 `yaml:"phaseSkew" json:"phaseSkew"` // Radians added to Q
	Seed       uint64  `yaml:"seed" json:"seed"`
	Realtime   bool    `yaml:"realtime" json:"realtime"`   // Pace reads to the sample rate
	FailEvery  int     `yaml:"failEvery" json:"failEvery"` // Every n-th read fails transiently, 0 disables
}

// Validate checks the generator options
func (c *Config) Validate() error {
	if c.NoiseLevel < 0 {
		return fmt.Errorf("mock.Config: noise level cannot be negative: %g given", c.NoiseLevel)
	}
	if c.FailEvery < 0 {
		return fmt.Errorf("mock.Config: failEvery cannot be negative: %d given", c.FailEvery)
	}
	return nil
}

// Limits mirror a wideband receiver so any preset can run without hardware
var Limits = radio.Limits{
	MinFrequency:  1e6,
	MaxFrequency:  6e9,
	MinSampleRate: 1e6,
	MaxSampleRate: 120e6,
	MaxBandwidth:  120e6,
	MinGain:       0,
	MaxGain:       100,
}

// Radio is a synthetic radio.Radio
type Radio struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	settings *radio.Settings
	phases   []float64
	noise    distuv.Normal
	reads    int
	next     time.Time
}

// New creates a synthetic radio
func New(config *Config, logger *slog.Logger) (*Radio, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	gainSkew := config.GainSkew
	if gainSkew == 0 {
		gainSkew = 1
	}

	r := Radio{
		config: *config,
		logger: logger.With(slog.String("device", Device)),
		phases: make([]float64, len(config.Tones)),
		noise: distuv.Normal{
			Mu:    0,
			Sigma: config.NoiseLevel,
			Src:   rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15),
		},
	}
	r.config.GainSkew = gainSkew

	return &r, nil
}

// Configure validates the settings against the synthetic limits
func (r *Radio) Configure(s radio.Settings) error {
	if err := Limits.Check(Device, s); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = &s
	clear(r.phases)
	r.next = time.Time{}

	r.logger.Info("configured", slog.String("settings", s.String()))
	return nil
}

// ReadBurst fills buf with the next samples of the synthetic signal
func (r *Radio) ReadBurst(ctx context.Context, buf []iq.Sample) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings == nil {
		return 0, radio.ErrNotConfigured
	}

	r.reads++
	if r.config.FailEvery > 0 && r.reads%r.config.FailEvery == 0 {
		return 0, fault.Transient(ErrInjected)
	}

	if r.config.Realtime {
		if err := r.pace(ctx, len(buf)); err != nil {
			return 0, err
		}
	}

	fs := r.settings.SampleRate
	for i := range buf {
		var re, im float64
		for k, tone := range r.config.Tones {
			phase := r.phases[k]
			re += tone.Amplitude * math.Cos(phase)
			im += tone.Amplitude * r.config.GainSkew * math.Sin(phase+r.config.PhaseSkew)

			phase += 2 * math.Pi * tone.Offset / fs
			r.phases[k] = math.Mod(phase, 2*math.Pi)
		}

		if r.config.NoiseLevel > 0 {
			re += r.noise.Rand()
			im += r.noise.Rand()
		}

		buf[i] = complex(float32(re+r.config.DCOffsetI), float32(im+r.config.DCOffsetQ))
	}

	return len(buf), nil
}

// pace blocks until the wall clock catches up with the samples produced so far
func (r *Radio) pace(ctx context.Context, n int) error {
	now := time.Now()
	if r.next.IsZero() {
		r.next = now
	}

	r.next = r.next.Add(time.Duration(float64(n) / r.settings.SampleRate * float64(time.Second)))
	wait := r.next.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MaxBandwidth returns the widest bandwidth the synthetic radio accepts
func (r *Radio) MaxBandwidth() float64 {
	return Limits.MaxBandwidth
}

// Device returns the device type
func (r *Radio) Device() string {
	return Device
}

// Close is a no-op
func (r *Radio) Close() error {
	return nil
}
