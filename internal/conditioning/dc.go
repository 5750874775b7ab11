package conditioning

import "github.com/roman-kulish/radio-channelizer/internal/iq"

// DCOffset removes a slowly drifting DC component with a causal single-pole
// IIR estimate. Each sample has the current estimate subtracted before the
// estimate advances to include it. The estimate restarts at zero every burst.
type DCOffset struct {
	alpha float32
}

func NewDCOffset(alpha float64) *DCOffset {
	return &DCOffset{alpha: float32(alpha)}
}

func (d *DCOffset) Name() string {
	return "dc-offset"
}

func (d *DCOffset) Apply(samples []iq.Sample) {
	var estimate iq.Sample
	keep := complex(1-d.alpha, 0)
	alpha := complex(d.alpha, 0)

	for i, s := range samples {
		samples[i] = s - estimate
		estimate = estimate*keep + s*alpha
	}
}
