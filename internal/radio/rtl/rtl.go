// Package rtl streams raw samples from an RTL-SDR dongle through `rtl_sdr`.
package rtl

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

const (
	Runtime = "rtl_sdr"
	Device  = "RTL-SDR"

	MaxBandwidth = 3.2e6
	MaxGain      = 49.6
)

// Config is a struct for configuring the `rtl_sdr` tool
type Config struct {
	DeviceIndex int `yaml:"deviceIndex" json:"deviceIndex"` // -d device_index
	PPMError    int `yaml:"ppmError" json:"ppmError"`       // -p ppm_error Frequency correction
}

// Validate checks the hardware specific options
func (c *Config) Validate() error {
	if c.DeviceIndex < 0 {
		return fmt.Errorf("rtl.Config: device index cannot be negative: %d given", c.DeviceIndex)
	}
	return nil
}

type handler struct {
	config Config
}

func (h handler) Device() string {
	return Device
}

// Limits of an R820T tuner. The tuner bandwidth follows the sample rate.
func (h handler) Limits() radio.Limits {
	return radio.Limits{
		MinFrequency:  24e6,
		MaxFrequency:  1766e6,
		MinSampleRate: 225_001,
		MaxSampleRate: 3.2e6,
		MaxBandwidth:  MaxBandwidth,
		MinGain:       0,
		MaxGain:       MaxGain,
	}
}

func (h handler) Format() radio.Format {
	return radio.FormatCU8
}

// Args builds the command line arguments for `rtl_sdr`
// See `man rtl_sdr` for more information:
// https://manpages.debian.org/bookworm/rtl-sdr/rtl_sdr.1.en.html
func (h handler) Args(s radio.Settings) ([]string, error) {
	if err := h.config.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		"-f", strconv.FormatInt(int64(s.CenterFrequency), 10),
		"-s", strconv.FormatInt(int64(s.SampleRate), 10),
		"-g", strconv.FormatFloat(s.Gain, 'f', 1, 64),
		"-d", strconv.Itoa(h.config.DeviceIndex),
	}

	if h.config.PPMError != 0 {
		args = append(args, "-p", strconv.Itoa(h.config.PPMError))
	}

	// Always dump to stdout
	return append(args, "-"), nil
}

// New creates an RTL-SDR radio
func New(config *Config, logger *slog.Logger) (*radio.ToolRadio, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	binPath, err := radio.FindRuntime(Runtime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	return radio.NewToolRadio(binPath, handler{*config}, radio.WithLogger(logger)), nil
}
