// Package hackrf streams raw samples from a HackRF One through `hackrf_transfer`.
package hackrf

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

const (
	Runtime = "hackrf_transfer"
	Device  = "HackRF"

	MaxLNAGain  = 40
	MaxVGAGain  = 62
	LNAGainStep = 8
	VGAGainStep = 2

	MaxBandwidth = 20e6
)

// Usage examples from man page:
// https://manpages.debian.org/bookworm/hackrf/hackrf_transfer.1.en.html

/*
	hackrfConfig := hackrf.Config{
		SerialNumber: "0000000000000000457863dc2b3a5a1f",
		EnableAmp:    false,
	}
	// with settings {2.426 GHz, 10 MS/s, 2 MHz, 30 dB} executes:
	// hackrf_transfer -r - -f 2426000000 -s 10000000 -b 2000000 -l 24 -g 6 -d 0000000000000000457863dc2b3a5a1f
*/

// Config is a struct for configuring the `hackrf_transfer` tool. Tuning comes
// from radio.Settings; this only carries what is specific to the hardware.
type Config struct {
	SerialNumber string `yaml:"serialNumber" json:"serialNumber"` // -d serial_number Serial number of desired HackRF
	EnableAmp    bool   `yaml:"enableAmp" json:"enableAmp"`       // -a amp_enable RX RF amplifier 1=Enable, 0=Disable
	AntennaPower bool   `yaml:"antennaPower" json:"antennaPower"` // -p antenna_enable Antenna port power, 1=Enable, 0=Disable

	// Overrides the split of the total gain between LNA and VGA
	LNAGain *int `yaml:"lnaGain" json:"lnaGain"` // -l gain_db LNA (IF) gain, 0-40dB, 8dB steps
}

// Validate checks the hardware specific options
func (c *Config) Validate() error {
	if c.LNAGain != nil {
		if *c.LNAGain < 0 || *c.LNAGain > MaxLNAGain {
			return fmt.Errorf("hackrf.Config: LNA gain must be between 0 and 40 dB: %d given", *c.LNAGain)
		}
		if *c.LNAGain%LNAGainStep != 0 {
			return errors.New("hackrf.Config: LNA gain must be a multiple of 8 dB")
		}
	}

	return nil
}

// SplitGain distributes the total gain over the LNA and VGA stages, filling
// the LNA first. A fixed LNA gain leaves the rest to the VGA.
func (c *Config) SplitGain(gain float64) (lna, vga int) {
	total := int(math.Round(gain))

	if c.LNAGain != nil {
		lna = *c.LNAGain
	} else {
		lna = min(MaxLNAGain, total/LNAGainStep*LNAGainStep)
	}

	vga = max(0, total-lna)
	vga = min(MaxVGAGain, vga/VGAGainStep*VGAGainStep)
	return lna, vga
}

type handler struct {
	config Config
}

// Device returns the device type
func (h handler) Device() string {
	return Device
}

// Limits returns the ranges hackrf_transfer accepts
func (h handler) Limits() radio.Limits {
	return radio.Limits{
		MinFrequency:  1e6,
		MaxFrequency:  6e9,
		MinSampleRate: 2e6,
		MaxSampleRate: 20e6,
		MaxBandwidth:  MaxBandwidth,
		MinGain:       0,
		MaxGain:       MaxLNAGain + MaxVGAGain,
	}
}

// Format returns the sample encoding written by hackrf_transfer
func (h handler) Format() radio.Format {
	return radio.FormatCS8
}

// Args builds the command line arguments for `hackrf_transfer`
// See `man hackrf_transfer` for more information:
// https://manpages.debian.org/bookworm/hackrf/hackrf_transfer.1.en.html
func (h handler) Args(s radio.Settings) ([]string, error) {
	if err := h.config.Validate(); err != nil {
		return nil, err
	}

	lna, vga := h.config.SplitGain(s.Gain)

	args := []string{
		"-r", "-",
		"-f", strconv.FormatInt(int64(s.CenterFrequency), 10),
		"-s", strconv.FormatInt(int64(s.SampleRate), 10),
		"-b", strconv.FormatInt(int64(s.Bandwidth), 10),
		"-l", strconv.Itoa(lna),
		"-g", strconv.Itoa(vga),
	}

	if h.config.EnableAmp {
		args = append(args, "-a", "1")
	}

	if h.config.AntennaPower {
		args = append(args, "-p", "1")
	}

	if h.config.SerialNumber != "" {
		args = append(args, "-d", h.config.SerialNumber)
	}

	return args, nil
}

// New creates a HackRF radio
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
