package app

import (
	"image/color"
	"math"
)

const (
	EnhancedTheme  ColorTheme = "enhanced"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"

	DefaultColorMapSize = 256
)

// ColorTheme names a power to colour gradient
type ColorTheme string

// InvalidPowerColor marks cells without a reading
var InvalidPowerColor = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}

// colorStop pins a colour to a position on the normalised power scale
type colorStop struct {
	at float64
	c  color.RGBA
}

// themes are piecewise linear gradients over [0, 1]; stops are sorted by at
// and span the whole range
var themes = map[ColorTheme][]colorStop{
	// noise floor dark blue, occupied channels yellow to red
	EnhancedTheme: {
		{0, color.RGBA{A: 0xff}},
		{0.2, color.RGBA{B: 0x8b, A: 0xff}},
		{0.45, color.RGBA{G: 0xb4, B: 0xd2, A: 0xff}},
		{0.7, color.RGBA{R: 0xff, G: 0xe6, A: 0xff}},
		{1, color.RGBA{R: 0xff, A: 0xff}},
	},
	GrayscaleTheme: {
		{0, color.RGBA{A: 0xff}},
		{1, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	},
	ThermalTheme: {
		{0, color.RGBA{A: 0xff}},
		{0.35, color.RGBA{R: 0xc8, A: 0xff}},
		{0.7, color.RGBA{R: 0xff, G: 0xd2, A: 0xff}},
		{1, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	},
}

// validTheme reports whether theme names a known gradient
func validTheme(theme ColorTheme) bool {
	_, ok := themes[theme]
	return ok
}

// ColorMapper maps channel power in dB to a colour. The gradient is sampled
// into a table spanning the power bounds.
type ColorMapper struct {
	table []color.RGBA
	min   float64
	step  float64 // dB per table entry
}

func NewColorMapper(size int, theme ColorTheme, bounds PowerBounds) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}

	stops, ok := themes[theme]
	if !ok {
		stops = themes[EnhancedTheme]
	}

	cm := &ColorMapper{
		table: make([]color.RGBA, size),
		min:   bounds.Min,
		step:  (bounds.Max - bounds.Min) / float64(size-1),
	}
	for i := range cm.table {
		cm.table[i] = interpolate(stops, float64(i)/float64(size-1))
	}

	return cm
}

// GetColor returns the colour of a power reading, clamped to the bounds
func (cm *ColorMapper) GetColor(power float64) color.RGBA {
	if math.IsNaN(power) {
		return InvalidPowerColor
	}
	if cm.step <= 0 {
		return cm.table[0]
	}

	index := int(math.Round((power - cm.min) / cm.step))
	return cm.table[min(max(index, 0), len(cm.table)-1)]
}

// interpolate blends the two stops around x
func interpolate(stops []colorStop, x float64) color.RGBA {
	if x <= stops[0].at {
		return stops[0].c
	}

	for i := 1; i < len(stops); i++ {
		lo, hi := stops[i-1], stops[i]
		if x > hi.at {
			continue
		}

		f := (x - lo.at) / (hi.at - lo.at)
		return color.RGBA{
			R: blend(lo.c.R, hi.c.R, f),
			G: blend(lo.c.G, hi.c.G, f),
			B: blend(lo.c.B, hi.c.B, f),
			A: 0xff,
		}
	}

	return stops[len(stops)-1].c
}

func blend(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
