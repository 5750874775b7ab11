package rtl

import (
	"errors"
	"slices"
	"testing"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

func TestHandler_Args(t *testing.T) {
	testCases := []struct {
		name   string
		config Config
		want   []string
	}{
		{
			name:   "defaults",
			config: Config{},
			want:   []string{"-f", "433920000", "-s", "2400000", "-g", "30.0", "-d", "0", "-"},
		},
		{
			name:   "ppm correction",
			config: Config{DeviceIndex: 1, PPMError: -3},
			want:   []string{"-f", "433920000", "-s", "2400000", "-g", "30.0", "-d", "1", "-p", "-3", "-"},
		},
	}

	s := radio.Settings{SampleRate: 2.4e6, CenterFrequency: 433.92e6, Bandwidth: 2e6, Gain: 30}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args, err := handler{tc.config}.Args(s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(args, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, args)
			}
		})
	}
}

func TestHandler_Limits(t *testing.T) {
	h := handler{}

	// 2.4 GHz is beyond the R820T tuning range
	err := h.Limits().Check(h.Device(), radio.Settings{
		SampleRate:      2.4e6,
		CenterFrequency: 2.426e9,
		Bandwidth:       2e6,
		Gain:            30,
	})
	if !errors.Is(err, fault.ErrConfigurationRejected) {
		t.Errorf("expected configuration rejected, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	c := Config{DeviceIndex: -1}
	if err := c.Validate(); err == nil {
		t.Error("expected error for negative device index")
	}
}
