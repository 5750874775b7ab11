package channelizer

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
)

// DefaultFilterLength is the number of prototype taps
const DefaultFilterLength = 128

// FilterBank is a low-pass prototype decomposed into one phase filter per
// channel. It is built once and only read afterwards.
type FilterBank struct {
	Prototype []float64
	Phases    [][]float64
}

// Design returns a Blackman-windowed sinc low-pass prototype of the given
// length with a cutoff of bandwidth/(sampleRate/2)
func Design(sampleRate, bandwidth float64, length int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fault.NewConfigError("filter: sample rate must be positive: %g given", sampleRate)
	}
	if length < 1 {
		return nil, fault.NewConfigError("filter: length must be positive: %d given", length)
	}

	cutoff := bandwidth / (sampleRate / 2)
	if cutoff <= 0 || cutoff > 1 {
		return nil, fault.NewConfigError("filter: bandwidth %g Hz must be in (0, %g] Hz at %g S/s",
			bandwidth, sampleRate/2, sampleRate)
	}

	w := []float64{1}
	if length > 1 {
		var err error
		if w, err = window.Blackman(length); err != nil {
			return nil, fmt.Errorf("error creating window: %w", err)
		}
	}

	centre := float64(length-1) / 2
	taps := make([]float64, length)
	for n := range taps {
		taps[n] = cutoff * sinc(cutoff*(float64(n)-centre)) * w[n]
	}

	return taps, nil
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// Partition deals the taps round-robin into channels phase filters: tap n
// goes to phase n mod channels. When the length is not a multiple of the
// channel count the trailing phases hold one tap fewer; nothing is padded.
func Partition(taps []float64, channels int) [][]float64 {
	phases := make([][]float64, channels)
	for c := range phases {
		phases[c] = make([]float64, 0, (len(taps)+channels-1)/channels)
	}

	for n, t := range taps {
		phases[n%channels] = append(phases[n%channels], t)
	}

	return phases
}

// NewFilterBank designs the prototype and partitions it across channels
func NewFilterBank(channels int, sampleRate, bandwidth float64, length int) (*FilterBank, error) {
	if channels < 1 {
		return nil, fault.NewConfigError("filter: channel count must be positive: %d given", channels)
	}

	taps, err := Design(sampleRate, bandwidth, length)
	if err != nil {
		return nil, err
	}

	return &FilterBank{
		Prototype: taps,
		Phases:    Partition(taps, channels),
	}, nil
}

// Channels returns the number of phase filters
func (b *FilterBank) Channels() int {
	return len(b.Phases)
}

// Expand returns the taps of channel c repeated cyclically to length n. A
// channel without taps expands to zeros.
func (b *FilterBank) Expand(c, n int) []float64 {
	phase := b.Phases[c]
	out := make([]float64, n)
	if len(phase) == 0 {
		return out
	}

	for i := range out {
		out[i] = phase[i%len(phase)]
	}
	return out
}
