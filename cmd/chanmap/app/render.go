package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi               = 120.0
	fontSize          = 10.0
	tickMarkHeight    = 5
	pixelsPerLabel    = 60
	pixelsPerTimeMark = 100

	minMapWidth  = 960
	minMapHeight = 240

	defaultTopBorder    = 40
	defaultLeftBorder   = 110
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05.000"
	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the map
type BorderConfig struct {
	Top    int // Space for channel scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int
}

// RenderConfig holds all configuration options for the channel map
type RenderConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location

	FontSize      float64
	ColorTheme    ColorTheme
	ColorMapSize  int
	CellWidth     int // Pixels per channel, 0 fits the map to minMapWidth
	NoAnnotations bool

	BorderConfig BorderConfig
}

// Renderer draws a ChannelGrid
type Renderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewRenderer creates a renderer with the given configuration
func NewRenderer(config RenderConfig) (*Renderer, error) {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{config: config, font: parsedFont}, nil
}

// layout is the pixel geometry of one rendering
type layout struct {
	cellWidth int
	rowHeight int
	area      image.Rectangle
}

func (r *Renderer) layout(grid *ChannelGrid) layout {
	cellWidth := r.config.CellWidth
	if cellWidth == 0 {
		cellWidth = max(1, (minMapWidth+len(grid.Channels)-1)/max(1, len(grid.Channels)))
	}
	rowHeight := max(1, (minMapHeight+len(grid.Rows)-1)/max(1, len(grid.Rows)))

	b := r.config.BorderConfig
	return layout{
		cellWidth: cellWidth,
		rowHeight: rowHeight,
		area: image.Rect(
			b.Left,
			b.Top,
			b.Left+cellWidth*len(grid.Channels),
			b.Top+rowHeight*len(grid.Rows),
		),
	}
}

// Render creates an image of the grid with annotations
func (r *Renderer) Render(grid *ChannelGrid, bounds PowerBounds) (*image.RGBA, error) {
	l := r.layout(grid)
	b := r.config.BorderConfig

	img := image.NewRGBA(image.Rect(0, 0, l.area.Max.X+b.Right, l.area.Max.Y+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if !r.config.NoAnnotations {
		ann := newAnnotator(r.font, annotatorConfig{
			TimeFormat:     r.config.TimeFormat,
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			FontSize:       r.config.FontSize,
			Borders:        b,
		})
		defer ann.Close()

		if err := ann.annotate(img, grid, l, bounds); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	mapper := NewColorMapper(r.config.ColorMapSize, r.config.ColorTheme, bounds)
	for y, row := range grid.Rows {
		for x, power := range row {
			cell := image.Rect(
				l.area.Min.X+x*l.cellWidth,
				l.area.Min.Y+y*l.rowHeight,
				l.area.Min.X+(x+1)*l.cellWidth,
				l.area.Min.Y+(y+1)*l.rowHeight,
			)
			draw.Draw(img, cell, image.NewUniform(mapper.GetColor(power)), image.Point{}, draw.Src)
		}
	}

	return img, nil
}

type annotatorConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(f *truetype.Font, config annotatorConfig) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(f)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(f, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, grid *ChannelGrid, l layout, bounds PowerBounds) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawChannelScale(img, grid, l); err != nil {
		return fmt.Errorf("drawing channel scale: %w", err)
	}
	if err := a.drawTimeScale(img, grid, l); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, grid, bounds); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawChannelScale(img *image.RGBA, grid *ChannelGrid, l layout) error {
	step := max(1, (pixelsPerLabel+l.cellWidth-1)/l.cellWidth)
	textY := a.config.Borders.Top - a.fontHeight()/2

	for i := 0; i < len(grid.Channels); i += step {
		x := l.area.Min.X + i*l.cellWidth + l.cellWidth/2

		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%d", grid.Channels[i])
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing channel label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, grid *ChannelGrid, l layout) error {
	rows := len(grid.Rows)
	if rows == 0 {
		return nil
	}

	metrics := a.fontFace.Metrics()
	rowsPerMark := max(1, pixelsPerTimeMark/l.rowHeight)

	for i := 0; i < rows; i += rowsPerMark {
		imgY := l.area.Min.Y + i*l.rowHeight

		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		// rows are spread evenly between the first and last burst
		at := grid.Start
		if rows > 1 {
			at = at.Add(time.Duration(float64(grid.Duration()) * float64(i) / float64(rows-1)))
		}

		textY := imgY + a.fontHeight()/2 - metrics.Descent.Round()
		label := at.In(a.config.Location).Format(a.config.TimeFormat)
		if _, err := a.context.DrawString(label, freetype.Pt(5, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, grid *ChannelGrid, bounds PowerBounds) error {
	info := fmt.Sprintf("Session %d, %s at %s; %s - %s; %d bursts, %d per row; %.1f to %.1f dB",
		grid.Session.ID,
		grid.Session.DeviceType,
		humanize.SIWithDigits(grid.Session.CenterFreq, 3, "Hz"),
		grid.Start.In(a.config.Location).Format(a.config.DatetimeFormat),
		grid.End.In(a.config.Location).Format(a.config.DatetimeFormat),
		grid.Bursts,
		grid.BurstsPerRow,
		bounds.Min,
		bounds.Max,
	)

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-a.fontHeight())/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(info, freetype.Pt(a.config.Borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}
