package conditioning

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// AGC rescales a burst so its mean magnitude equals the target level. A burst
// without signal (mean magnitude zero or not finite) passes through unscaled.
type AGC struct {
	target float64
	level  float64

	re, im, mag []float64
}

func NewAGC(target float64, burstLength int) *AGC {
	return &AGC{
		target: target,
		re:     make([]float64, burstLength),
		im:     make([]float64, burstLength),
		mag:    make([]float64, burstLength),
	}
}

func (a *AGC) Name() string {
	return "agc"
}

func (a *AGC) Apply(samples []iq.Sample) {
	a.level = 0
	n := len(samples)
	if n == 0 {
		return
	}

	if cap(a.re) < n {
		a.re = make([]float64, n)
		a.im = make([]float64, n)
		a.mag = make([]float64, n)
	}
	re, im, mag := a.re[:n], a.im[:n], a.mag[:n]

	for k, s := range samples {
		re[k] = float64(real(s))
		im[k] = float64(imag(s))
	}
	vecmath.Magnitude(mag, re, im)

	mean := vecmath.Sum(mag) / float64(n)
	a.level = mean
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return
	}

	gain := float32(a.target / mean)
	for k, s := range samples {
		samples[k] = complex(real(s)*gain, imag(s)*gain)
	}
}

// Level returns the mean magnitude measured on the last burst
func (a *AGC) Level() float64 {
	return a.level
}
