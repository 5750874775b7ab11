package app

import "math"

const (
	defaultMinPower = -100.0 // dB
	defaultMaxPower = 0.0    // dB

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20

	minimumRange = 20 // dB
)

// PowerBounds represents the calculated power boundaries
type PowerBounds struct {
	Min  float64 // 5th percentile power level in dB
	Max  float64 // 95th percentile power level in dB
	Mean float64
}

func defaultPowerBounds() PowerBounds {
	return PowerBounds{
		Min:  defaultMinPower,
		Max:  defaultMaxPower,
		Mean: (defaultMinPower + defaultMaxPower) / 2,
	}
}

// PowerHistogram maintains a histogram of power values with 1dB bins
type PowerHistogram struct {
	bins       map[int]uint64
	totalCount uint64
	minBin     int
	maxBin     int
	sum        float64
}

// NewPowerHistogram creates a new histogram
func NewPowerHistogram() *PowerHistogram {
	return &PowerHistogram{
		bins:   make(map[int]uint64),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

func getBinIndex(power float64) int {
	return int(math.Floor(power))
}

// Update adds a power reading. NaN and infinite readings are ignored.
func (h *PowerHistogram) Update(power float64) {
	if math.IsNaN(power) || math.IsInf(power, 0) {
		return
	}

	bin := getBinIndex(power)
	h.bins[bin]++
	h.totalCount++
	h.sum += power

	h.minBin = min(h.minBin, bin)
	h.maxBin = max(h.maxBin, bin)
}

// Count returns the number of readings
func (h *PowerHistogram) Count() uint64 {
	return h.totalCount
}

// GetPercentileBounds returns power bounds based on percentiles
func (h *PowerHistogram) GetPercentileBounds() PowerBounds {
	if h.totalCount < minimumSampleCount {
		return defaultPowerBounds()
	}

	target5th := h.totalCount * 5 / 100

	var count uint64
	var min5th, max95th int

	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += h.bins[bin]
		if count >= target5th {
			min5th = bin
			break
		}
	}

	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += h.bins[bin]
		if count >= target5th {
			max95th = bin + 1
			break
		}
	}

	if max95th-min5th < minimumRange {
		center := (max95th + min5th) / 2
		min5th = center - minimumRange/2
		max95th = center + minimumRange/2
	}

	margin := (max95th - min5th) / 10
	return PowerBounds{
		Min:  float64(min5th - margin),
		Max:  float64(max95th + margin),
		Mean: h.sum / float64(h.totalCount),
	}
}
