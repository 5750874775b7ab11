package hackrf

import (
	"errors"
	"slices"
	"testing"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

func intPtr(v int) *int {
	return &v
}

func TestConfig_SplitGain(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		gain    float64
		wantLNA int
		wantVGA int
	}{
		{"zero", Config{}, 0, 0, 0},
		{"default gain", Config{}, 30, 24, 6},
		{"odd remainder", Config{}, 37, 32, 4},
		{"lna saturates", Config{}, 70, 40, 30},
		{"maximum", Config{}, 102, 40, 62},
		{"fixed lna", Config{LNAGain: intPtr(16)}, 30, 16, 14},
		{"fixed lna above total", Config{LNAGain: intPtr(40)}, 10, 40, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lna, vga := tc.config.SplitGain(tc.gain)
			if lna != tc.wantLNA || vga != tc.wantVGA {
				t.Errorf("expected lna=%d vga=%d, got lna=%d vga=%d", tc.wantLNA, tc.wantVGA, lna, vga)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"valid lna", Config{LNAGain: intPtr(8)}, false},
		{"lna too high", Config{LNAGain: intPtr(48)}, true},
		{"lna negative", Config{LNAGain: intPtr(-8)}, true},
		{"lna off step", Config{LNAGain: intPtr(10)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.config.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestHandler_Args(t *testing.T) {
	h := handler{Config{SerialNumber: "abc", EnableAmp: true}}

	args, err := h.Args(radio.Settings{
		SampleRate:      10e6,
		CenterFrequency: 2.426e9,
		Bandwidth:       2e6,
		Gain:            30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"-r", "-",
		"-f", "2426000000",
		"-s", "10000000",
		"-b", "2000000",
		"-l", "24",
		"-g", "6",
		"-a", "1",
		"-d", "abc",
	}
	if !slices.Equal(args, want) {
		t.Errorf("expected %v, got %v", want, args)
	}
}

func TestHandler_LimitsRejectWideBandwidth(t *testing.T) {
	h := handler{}

	err := h.Limits().Check(h.Device(), radio.Settings{
		SampleRate:      20e6,
		CenterFrequency: 2.426e9,
		Bandwidth:       40e6,
		Gain:            30,
	})
	if !errors.Is(err, fault.ErrConfigurationRejected) {
		t.Errorf("expected configuration rejected, got %v", err)
	}
}
