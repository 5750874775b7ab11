package conditioning

import (
	"math"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// FrequencyOffset de-rotates sample i by 2π·Δf·i/fs. The phase restarts at
// zero on every burst.
type FrequencyOffset struct {
	step float64
}

func NewFrequencyOffset(offset, sampleRate float64) *FrequencyOffset {
	return &FrequencyOffset{step: 2 * math.Pi * offset / sampleRate}
}

func (f *FrequencyOffset) Name() string {
	return "frequency-offset"
}

func (f *FrequencyOffset) Apply(samples []iq.Sample) {
	if f.step == 0 {
		return
	}

	for i, s := range samples {
		// the angle is recomputed from the index so the error does not grow along the burst
		sin, cos := math.Sincos(f.step * float64(i))
		re, im := float64(real(s)), float64(imag(s))
		samples[i] = complex(
			float32(re*cos-im*sin),
			float32(im*cos+re*sin),
		)
	}
}
