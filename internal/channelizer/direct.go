package channelizer

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// maxTableEntries bounds the precomputed analysis tables to 8 MiB each.
// Longer channels gather their rows from a single period of twiddles.
const maxTableEntries = 1 << 20

// Direct is the direct-form kernel: every output value is a pair of vector
// dot products of the weighted channel input against one row of the cosine
// and sine analysis tables.
type Direct struct {
	w       *weights
	cos     []float64 // M×M row-major, nil when gathering
	sin     []float64
	twCos   []float64 // one period, length M
	twSin   []float64
	scratch *scratchPool
}

// NewDirect builds the direct-form kernel for channels of length outputs
func NewDirect(bank *FilterBank, length int) *Direct {
	d := Direct{
		w:     newWeights(bank, length),
		twCos: make([]float64, length),
		twSin: make([]float64, length),
	}

	for i := range d.twCos {
		d.twSin[i], d.twCos[i] = math.Sincos(2 * math.Pi * float64(i) / float64(length))
	}

	if length*length <= maxTableEntries {
		d.cos = make([]float64, length*length)
		d.sin = make([]float64, length*length)
		for k := 0; k < length; k++ {
			d.fillRow(d.cos[k*length:(k+1)*length], d.sin[k*length:(k+1)*length], k)
		}
	}

	d.scratch = newScratchPool(func() *scratch {
		s := scratch{
			re: make([]float64, length),
			im: make([]float64, length),
		}
		if d.cos == nil {
			s.a = make([]float64, length)
			s.b = make([]float64, length)
		}
		return &s
	})

	return &d
}

// fillRow writes cos(2πkn/M) and sin(2πkn/M) for n = 0..M−1
func (d *Direct) fillRow(cos, sin []float64, k int) {
	m := len(d.twCos)
	idx := 0
	for n := range cos {
		cos[n] = d.twCos[idx]
		sin[n] = d.twSin[idx]
		if idx += k; idx >= m {
			idx %= m
		}
	}
}

func (d *Direct) Name() string {
	return string(StrategyDirect)
}

func (d *Direct) Channel(dst []float32, samples []iq.Sample, c int) error {
	if d.w.empty[c] {
		clear(dst)
		return nil
	}

	s := d.scratch.get()
	defer d.scratch.put(s)

	m := d.w.length
	d.w.decimate(s.re, s.im, samples, c)
	vecmath.MulBlockInPlace(s.re, d.w.taps[c])
	vecmath.MulBlockInPlace(s.im, d.w.taps[c])

	// Re((a+ib)·(cos−i·sin)) = a·cos + b·sin
	for k := 0; k < m; k++ {
		var cos, sin []float64
		if d.cos != nil {
			cos, sin = d.cos[k*m:(k+1)*m], d.sin[k*m:(k+1)*m]
		} else {
			cos, sin = s.a, s.b
			d.fillRow(cos, sin, k)
		}
		dst[k] = float32(vecmath.DotProduct(s.re, cos) + vecmath.DotProduct(s.im, sin))
	}

	return nil
}
