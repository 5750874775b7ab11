package channelizer

import (
	"sync"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// Kernel computes the output of one channel. For channel c of an N channel
// bank and a burst x of length B, with M = ⌊B/N⌋ and h the channel's taps
// repeated to length M, every kernel evaluates
//
//	y[k] = Re Σₙ x[nN+c]·h[n]·e^(−2πikn/M),  k = 0..M−1
//
// Kernels only read the burst and the bank, and write only dst, so channels
// can run concurrently.
type Kernel interface {
	Name() string
	Channel(dst []float32, samples []iq.Sample, c int) error
}

// weights holds the cyclically expanded taps of every channel
type weights struct {
	channels int
	length   int
	taps     [][]float64
	empty    []bool
}

func newWeights(bank *FilterBank, length int) *weights {
	w := weights{
		channels: bank.Channels(),
		length:   length,
		taps:     make([][]float64, bank.Channels()),
		empty:    make([]bool, bank.Channels()),
	}

	for c := range w.taps {
		w.taps[c] = bank.Expand(c, length)
		w.empty[c] = len(bank.Phases[c]) == 0
	}

	return &w
}

// decimate copies every channels-th sample starting at c into re and im
func (w *weights) decimate(re, im []float64, samples []iq.Sample, c int) {
	for n := range re {
		s := samples[n*w.channels+c]
		re[n] = float64(real(s))
		im[n] = float64(imag(s))
	}
}

// scratch is per-call working memory handed out by a sync.Pool
type scratch struct {
	re, im, a, b []float64
	spec, work   []complex128
	transform    transform
}

type scratchPool struct {
	pool sync.Pool
}

func newScratchPool(newScratch func() *scratch) *scratchPool {
	p := scratchPool{}
	p.pool.New = func() any {
		return newScratch()
	}
	return &p
}

func (p *scratchPool) get() *scratch {
	return p.pool.Get().(*scratch)
}

func (p *scratchPool) put(s *scratch) {
	p.pool.Put(s)
}
