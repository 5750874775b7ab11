// Package soapy streams raw samples through `rx_sdr`, the SoapySDR command line
// receiver. It covers LimeSDR, XTRX and bladeRF hardware.
package soapy

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

const (
	Runtime = "rx_sdr"

	DriverLime    Driver = "lime"
	DriverXTRX    Driver = "xtrx"
	DriverBladeRF Driver = "bladerf"
)

// Driver is a SoapySDR driver key
type Driver string

func (d Driver) String() string {
	return string(d)
}

var drivers = map[Driver]struct {
	device string
	limits radio.Limits
}{
	DriverLime: {
		device: "LimeSDR",
		limits: radio.Limits{
			MinFrequency:  100e3,
			MaxFrequency:  3.8e9,
			MinSampleRate: 100e3,
			MaxSampleRate: 61.44e6,
			MaxBandwidth:  61.44e6,
			MinGain:       0,
			MaxGain:       73,
		},
	},
	DriverXTRX: {
		device: "XTRX",
		limits: radio.Limits{
			MinFrequency:  30e6,
			MaxFrequency:  3.8e9,
			MinSampleRate: 2.1e6,
			MaxSampleRate: 120e6,
			MaxBandwidth:  120e6,
			MinGain:       0,
			MaxGain:       65,
		},
	},
	DriverBladeRF: {
		device: "bladeRF",
		limits: radio.Limits{
			MinFrequency:  47e6,
			MaxFrequency:  6e9,
			MinSampleRate: 520_834,
			MaxSampleRate: 61.44e6,
			MaxBandwidth:  56e6,
			MinGain:       -15,
			MaxGain:       60,
		},
	},
}

// Config is a struct for configuring the `rx_sdr` tool
type Config struct {
	Driver  Driver `yaml:"driver" json:"driver"`   // -d driver=<driver>
	Serial  string `yaml:"serial" json:"serial"`   // -d serial=<serial>
	Channel int    `yaml:"channel" json:"channel"` // -c channel
	Antenna string `yaml:"antenna" json:"antenna"` // -a antenna
}

// Validate checks the hardware specific options
func (c *Config) Validate() error {
	if _, ok := drivers[c.Driver]; !ok {
		return fmt.Errorf("soapy.Config: unsupported driver %q", c.Driver)
	}
	if c.Channel < 0 {
		return fmt.Errorf("soapy.Config: channel cannot be negative: %d given", c.Channel)
	}
	return nil
}

// DeviceString returns the SoapySDR device arguments
func (c *Config) DeviceString() string {
	s := "driver=" + c.Driver.String()
	if c.Serial != "" {
		s += ",serial=" + c.Serial
	}
	return s
}

type handler struct {
	config Config
}

func (h handler) Device() string {
	return drivers[h.config.Driver].device
}

func (h handler) Limits() radio.Limits {
	return drivers[h.config.Driver].limits
}

func (h handler) Format() radio.Format {
	return radio.FormatCS16
}

// Args builds the command line arguments for `rx_sdr`
// See https://github.com/rxseger/rx_tools for more information
func (h handler) Args(s radio.Settings) ([]string, error) {
	if err := h.config.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		"-d", h.config.DeviceString(),
		"-f", strconv.FormatInt(int64(s.CenterFrequency), 10),
		"-s", strconv.FormatInt(int64(s.SampleRate), 10),
		"-g", strconv.FormatFloat(s.Gain, 'f', 1, 64),
		"-F", radio.FormatCS16.String(),
	}

	if h.config.Channel > 0 {
		args = append(args, "-c", strconv.Itoa(h.config.Channel))
	}

	if h.config.Antenna != "" {
		args = append(args, "-a", h.config.Antenna)
	}

	return append(args, "-"), nil
}

// New creates a SoapySDR radio
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
