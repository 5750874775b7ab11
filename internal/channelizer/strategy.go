package channelizer

import (
	"github.com/cwbudde/algo-vecmath/cpu"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
)

const (
	StrategyAuto      Strategy = "auto"
	StrategyDirect    Strategy = "direct"
	StrategyTransform Strategy = "transform"
)

// Strategy names a channelization kernel
type Strategy string

func (s Strategy) String() string {
	return string(s)
}

// Validate checks the strategy name
func (s Strategy) Validate() error {
	switch s {
	case StrategyAuto, StrategyDirect, StrategyTransform:
		return nil
	default:
		return fault.NewConfigError("channelizer: unknown strategy %q", string(s))
	}
}

// DirectMaxLength is the longest channel for which auto picks the direct
// kernel. Direct costs O(M²) per channel and the transform O(M log M).
const DirectMaxLength = 8

// Resolve turns auto into a concrete strategy for channels of length outputs:
// direct when the CPU has a wide vector unit and the channel is no longer
// than DirectMaxLength, transform otherwise. Explicit strategies are returned
// as is.
func (s Strategy) Resolve(f cpu.Features, length int) Strategy {
	if s != StrategyAuto && s != "" {
		return s
	}

	if f.ForceGeneric || !(f.HasAVX || f.HasAVX2 || f.HasNEON) {
		return StrategyTransform
	}
	if length > DirectMaxLength {
		return StrategyTransform
	}
	return StrategyDirect
}
