package channelizer

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// transform is a forward DFT of a fixed length
type transform interface {
	forward(dst, src []complex128) error
}

type planTransform struct {
	plan *algofft.Plan[complex128]
}

func (t planTransform) forward(dst, src []complex128) error {
	return t.plan.Forward(dst, src)
}

// gonumTransform handles lengths algo-fft cannot plan
type gonumTransform struct {
	fft *fourier.CmplxFFT
}

func (t gonumTransform) forward(dst, src []complex128) error {
	t.fft.Coefficients(dst, src)
	return nil
}

// newTransform plans a forward transform of length n. The boolean reports
// whether the gonum fallback was used.
func newTransform(n int) (transform, bool, error) {
	if n < 1 {
		return nil, false, fmt.Errorf("transform length must be positive: %d given", n)
	}

	if plan, err := algofft.NewPlan64(n); err == nil {
		return planTransform{plan}, false, nil
	}

	return gonumTransform{fourier.NewCmplxFFT(n)}, true, nil
}

// Transform is the transform kernel: the weighted channel input goes through
// a forward DFT of the channel length and the real part is kept
type Transform struct {
	w        *weights
	fallback bool
	scratch  *scratchPool
}

// NewTransform builds the transform kernel. A transform that cannot be
// planned is fatal.
func NewTransform(bank *FilterBank, length int) (*Transform, error) {
	t := Transform{
		w: newWeights(bank, length),
	}

	// plan once up front so a failure surfaces before the pipeline starts;
	// later plans of the same length take the same path
	_, fallback, err := newTransform(length)
	if err != nil {
		return nil, fault.Fatal(fmt.Errorf("error planning transform: %w", err))
	}
	t.fallback = fallback

	t.scratch = newScratchPool(func() *scratch {
		tr, _, _ := newTransform(length)
		return &scratch{
			re:        make([]float64, length),
			im:        make([]float64, length),
			spec:      make([]complex128, length),
			work:      make([]complex128, length),
			transform: tr,
		}
	})

	return &t, nil
}

func (t *Transform) Name() string {
	if t.fallback {
		return string(StrategyTransform) + "(gonum)"
	}
	return string(StrategyTransform)
}

func (t *Transform) Channel(dst []float32, samples []iq.Sample, c int) error {
	if t.w.empty[c] {
		clear(dst)
		return nil
	}

	s := t.scratch.get()
	defer t.scratch.put(s)

	t.w.decimate(s.re, s.im, samples, c)
	vecmath.MulBlockInPlace(s.re, t.w.taps[c])
	vecmath.MulBlockInPlace(s.im, t.w.taps[c])

	for n := range s.work {
		s.work[n] = complex(s.re[n], s.im[n])
	}

	if err := s.transform.forward(s.spec, s.work); err != nil {
		return fault.Fatal(fmt.Errorf("channel %d transform: %w", c, err))
	}

	for k, v := range s.spec {
		dst[k] = float32(real(v))
	}

	return nil
}
