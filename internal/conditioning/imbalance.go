package conditioning

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// IQImbalance corrects gain and phase mismatch between the I and Q paths:
//
//	I' = I·cos(φ) − Q·g·sin(φ)
//	Q' = Q·cos(φ) + I·g·sin(φ)
//
// Products are formed in float64 and rounded once, so the scalar and batch
// paths produce identical samples.
type IQImbalance struct {
	cos   float64
	gsin  float64
	batch bool

	re, im, a, b []float64
}

func NewIQImbalance(gainError, phaseError float64, burstLength int, batch bool) *IQImbalance {
	c := IQImbalance{
		cos:   math.Cos(phaseError),
		gsin:  gainError * math.Sin(phaseError),
		batch: batch,
	}

	if batch {
		c.re = make([]float64, burstLength)
		c.im = make([]float64, burstLength)
		c.a = make([]float64, burstLength)
		c.b = make([]float64, burstLength)
	}

	return &c
}

func (c *IQImbalance) Name() string {
	if c.batch {
		return "iq-imbalance(batch)"
	}
	return "iq-imbalance"
}

func (c *IQImbalance) Apply(samples []iq.Sample) {
	if c.batch {
		c.applyBatch(samples)
		return
	}
	c.applyScalar(samples)
}

func (c *IQImbalance) applyScalar(samples []iq.Sample) {
	for k, s := range samples {
		i, q := float64(real(s)), float64(imag(s))
		// explicit conversions keep the products from being fused
		samples[k] = complex(
			float32(float64(i*c.cos)+float64(q*-c.gsin)),
			float32(float64(q*c.cos)+float64(i*c.gsin)),
		)
	}
}

func (c *IQImbalance) applyBatch(samples []iq.Sample) {
	n := len(samples)
	if cap(c.re) < n {
		c.re = make([]float64, n)
		c.im = make([]float64, n)
		c.a = make([]float64, n)
		c.b = make([]float64, n)
	}
	re, im, a, b := c.re[:n], c.im[:n], c.a[:n], c.b[:n]

	for k, s := range samples {
		re[k] = float64(real(s))
		im[k] = float64(imag(s))
	}

	// a = I·cos − Q·g·sin
	vecmath.ScaleBlock(a, re, c.cos)
	vecmath.ScaleBlock(b, im, -c.gsin)
	vecmath.AddBlockInPlace(a, b)

	// b = Q·cos + I·g·sin
	vecmath.ScaleBlockInPlace(im, c.cos)
	vecmath.ScaleBlock(b, re, c.gsin)
	vecmath.AddBlockInPlace(b, im)

	for k := range samples {
		samples[k] = complex(float32(a[k]), float32(b[k]))
	}
}
