package conditioning

import "github.com/roman-kulish/radio-channelizer/internal/iq"

// NoiseSmoothing replaces every interior sample with the centred moving
// average over 2·halfWidth+1 input samples. The first and last halfWidth
// samples are left untouched.
type NoiseSmoothing struct {
	halfWidth int
	scratch   []iq.Sample
}

func NewNoiseSmoothing(halfWidth, burstLength int) *NoiseSmoothing {
	return &NoiseSmoothing{
		halfWidth: halfWidth,
		scratch:   make([]iq.Sample, burstLength),
	}
}

func (n *NoiseSmoothing) Name() string {
	return "smoothing"
}

func (n *NoiseSmoothing) Apply(samples []iq.Sample) {
	h := n.halfWidth
	if len(samples) <= 2*h {
		return
	}

	if cap(n.scratch) < len(samples) {
		n.scratch = make([]iq.Sample, len(samples))
	}
	src := n.scratch[:len(samples)]
	copy(src, samples)

	width := float64(2*h + 1)
	var sum complex128
	for _, s := range src[:2*h+1] {
		sum += complex128(s)
	}

	for i := h; i < len(src)-h; i++ {
		if i > h {
			sum += complex128(src[i+h]) - complex128(src[i-h-1])
		}
		samples[i] = complex64(complex(real(sum)/width, imag(sum)/width))
	}
}
