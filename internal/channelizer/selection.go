package channelizer

import (
	"fmt"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
)

const (
	SelectionFull  SelectionMode = "full"
	SelectionRange SelectionMode = "range"
)

// SelectionMode picks which channels reach the sinks
type SelectionMode string

func (m SelectionMode) String() string {
	return string(m)
}

// Selection is a validated contiguous channel range, both ends inclusive
type Selection struct {
	Mode  SelectionMode
	First int
	Last  int
}

// NewSelection validates the mode and range against the channel count. The
// range is ignored in full mode.
func NewSelection(mode SelectionMode, first, last, channels int) (Selection, error) {
	if channels < 1 {
		return Selection{}, fault.NewConfigError("selection: channel count must be positive: %d given", channels)
	}

	switch mode {
	case SelectionFull:
		return Selection{Mode: SelectionFull, First: 0, Last: channels - 1}, nil

	case SelectionRange:
		if first < 0 || first >= channels {
			return Selection{}, fault.NewConfigError("selection: range start %d outside [0, %d)", first, channels)
		}
		if last < 0 || last >= channels {
			return Selection{}, fault.NewConfigError("selection: range end %d outside [0, %d)", last, channels)
		}
		if first > last {
			return Selection{}, fault.NewConfigError("selection: range start %d is after end %d", first, last)
		}
		return Selection{Mode: SelectionRange, First: first, Last: last}, nil

	default:
		return Selection{}, fault.NewConfigError("selection: unknown mode %q, use %q or %q", mode, SelectionFull, SelectionRange)
	}
}

// Len returns the number of selected channels
func (s Selection) Len() int {
	return s.Last - s.First + 1
}

// Indices returns the selected channel indices in ascending order
func (s Selection) Indices() []int {
	indices := make([]int, 0, s.Len())
	for c := s.First; c <= s.Last; c++ {
		indices = append(indices, c)
	}
	return indices
}

func (s Selection) String() string {
	return fmt.Sprintf("%s[%d..%d]", s.Mode, s.First, s.Last)
}
