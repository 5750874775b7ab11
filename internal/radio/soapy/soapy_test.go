package soapy

import (
	"slices"
	"testing"

	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

func TestHandler_MaxBandwidth(t *testing.T) {
	testCases := []struct {
		driver Driver
		device string
		want   float64
	}{
		{DriverLime, "LimeSDR", 61.44e6},
		{DriverXTRX, "XTRX", 120e6},
		{DriverBladeRF, "bladeRF", 56e6},
	}

	for _, tc := range testCases {
		t.Run(tc.driver.String(), func(t *testing.T) {
			h := handler{Config{Driver: tc.driver}}
			if got := h.Limits().MaxBandwidth; got != tc.want {
				t.Errorf("expected %g, got %g", tc.want, got)
			}
			if got := h.Device(); got != tc.device {
				t.Errorf("expected %q, got %q", tc.device, got)
			}
		})
	}
}

func TestHandler_Args(t *testing.T) {
	h := handler{Config{Driver: DriverLime, Serial: "1D588", Antenna: "LNAW"}}

	args, err := h.Args(radio.Settings{SampleRate: 10e6, CenterFrequency: 2.426e9, Bandwidth: 2e6, Gain: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"-d", "driver=lime,serial=1D588",
		"-f", "2426000000",
		"-s", "10000000",
		"-g", "30.0",
		"-F", "CS16",
		"-a", "LNAW",
		"-",
	}
	if !slices.Equal(args, want) {
		t.Errorf("expected %v, got %v", want, args)
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"lime", Config{Driver: DriverLime}, false},
		{"unknown driver", Config{Driver: "airspy"}, true},
		{"empty driver", Config{}, true},
		{"negative channel", Config{Driver: DriverXTRX, Channel: -1}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.config.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
