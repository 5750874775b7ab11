package radio

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// Settings is the tuning request passed to Radio.Configure
type Settings struct {
	SampleRate      float64 `json:"sampleRate"`      // Samples per second
	CenterFrequency float64 `json:"centerFrequency"` // Hz
	Bandwidth       float64 `json:"bandwidth"`       // Analog filter bandwidth in Hz
	Gain            float64 `json:"gain"`            // Total receive gain in dB
}

// Radio is the capability every receiver backend provides to the pipeline.
//
// ReadBurst may block until the buffer is filled. A failed read returns an
// error matching fault.ErrTransient; the caller retries with the next read.
// Configure rejects out-of-range settings with an error matching
// fault.ErrConfigurationRejected and is never retried.
type Radio interface {
	Configure(s Settings) error
	ReadBurst(ctx context.Context, buf []iq.Sample) (int, error)
	MaxBandwidth() float64
	Device() string
	Close() error
}

// Limits describes the hardware ranges a backend accepts
type Limits struct {
	MinFrequency  float64
	MaxFrequency  float64
	MinSampleRate float64
	MaxSampleRate float64
	MaxBandwidth  float64
	MinGain       float64
	MaxGain       float64
}

// Check validates the settings against the limits
func (l Limits) Check(device string, s Settings) error {
	if s.CenterFrequency < l.MinFrequency || s.CenterFrequency > l.MaxFrequency {
		return fault.NewConfigError("%s: center frequency %sHz outside %sHz..%sHz", device,
			si(s.CenterFrequency), si(l.MinFrequency), si(l.MaxFrequency))
	}
	if s.SampleRate < l.MinSampleRate || s.SampleRate > l.MaxSampleRate {
		return fault.NewConfigError("%s: sample rate %sS/s outside %sS/s..%sS/s", device,
			si(s.SampleRate), si(l.MinSampleRate), si(l.MaxSampleRate))
	}
	if s.Bandwidth <= 0 || s.Bandwidth > l.MaxBandwidth {
		return fault.NewConfigError("%s: bandwidth %sHz must be positive and at most %sHz", device,
			si(s.Bandwidth), si(l.MaxBandwidth))
	}
	if s.Gain < l.MinGain || s.Gain > l.MaxGain {
		return fault.NewConfigError("%s: gain %.1f dB outside %.1f..%.1f dB", device, s.Gain, l.MinGain, l.MaxGain)
	}
	return nil
}

func si(v float64) string {
	return humanize.SIWithDigits(v, 3, "")
}

// String renders the settings for log lines
func (s Settings) String() string {
	return fmt.Sprintf("freq=%sHz rate=%sS/s bw=%sHz gain=%.1fdB",
		si(s.CenterFrequency), si(s.SampleRate), si(s.Bandwidth), s.Gain)
}
