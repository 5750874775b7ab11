package app

import (
	"math"
	"time"

	"github.com/roman-kulish/radio-channelizer/internal/catalog"
)

const defaultMaxRows = 1200

// ChannelGrid is the power map laid out for drawing: one row per group of
// consecutive bursts, one column per channel. Missing cells are NaN.
type ChannelGrid struct {
	Session      *catalog.Session
	Channels     []int
	Rows         [][]float64
	Start, End   time.Time
	Bursts       int
	BurstsPerRow int
}

// NewChannelGrid merges consecutive bursts so that at most maxRows rows
// remain. A merged cell keeps the strongest power of its group.
func NewChannelGrid(pm *catalog.PowerMap, maxRows int) *ChannelGrid {
	g := ChannelGrid{
		Session:      pm.Session,
		Channels:     pm.Channels,
		Bursts:       len(pm.Power),
		BurstsPerRow: 1,
	}

	if len(pm.Times) > 0 {
		g.Start = pm.Times[0]
		g.End = pm.Times[len(pm.Times)-1]
	}

	if maxRows > 0 && len(pm.Power) > maxRows {
		g.BurstsPerRow = (len(pm.Power) + maxRows - 1) / maxRows
	}

	for i := 0; i < len(pm.Power); i += g.BurstsPerRow {
		row := make([]float64, len(pm.Channels))
		for c := range row {
			row[c] = math.NaN()
		}

		for _, burst := range pm.Power[i:min(i+g.BurstsPerRow, len(pm.Power))] {
			for c, p := range burst {
				if math.IsNaN(p) {
					continue
				}
				if math.IsNaN(row[c]) || p > row[c] {
					row[c] = p
				}
			}
		}
		g.Rows = append(g.Rows, row)
	}

	return &g
}

// Bounds returns percentile power bounds over every cell
func (g *ChannelGrid) Bounds() PowerBounds {
	h := NewPowerHistogram()
	for _, row := range g.Rows {
		for _, p := range row {
			h.Update(p)
		}
	}
	return h.GetPercentileBounds()
}

// Duration returns the time between the first and the last burst
func (g *ChannelGrid) Duration() time.Duration {
	return g.End.Sub(g.Start)
}
