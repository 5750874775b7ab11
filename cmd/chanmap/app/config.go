package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	TimeZone      *time.Location
	CellWidth     int
	MaxRows       int
	MaxPower      *float64
	MinPower      *float64
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    EnhancedTheme,
		TimeZone: time.Local,
		MaxRows:  defaultMaxRows,
	}
}

// NewConfigFromCLI parses the command line
func NewConfigFromCLI() (*Config, error) {
	return parseConfig(flag.CommandLine, nil)
}

func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, theme, tz string
	var minPower, maxPower float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the catalog database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(EnhancedTheme), "Colour theme. [enhanced, grayscale, thermal]")
	fs.StringVar(&tz, "tz", "Local", "Time zone of the time scale, e.g. UTC or Europe/London")
	fs.IntVar(&c.CellWidth, "cell", 0, "Pixels per channel, 0 picks a width automatically")
	fs.IntVar(&c.MaxRows, "rows", defaultMaxRows, "Maximum image rows, consecutive bursts are merged above it")
	fs.Float64Var(&minPower, "min-power", 0, "Define a manual minimum power in dB (format nn.n)")
	fs.Float64Var(&maxPower, "max-power", 0, "Define a manual maximum power in dB (format nn.n)")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and channel scales")

	var err error
	if fs == flag.CommandLine {
		flag.Parse()
	} else if err = fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "min-power" {
			c.MinPower = &minPower
		}
		if f.Name == "max-power" {
			c.MaxPower = &maxPower
		}
	})

	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if !validTheme(ColorTheme(theme)) {
		err = fmt.Errorf("invalid colour theme: %s", theme)
	} else if c.CellWidth < 0 || c.MaxRows < 1 {
		err = errors.New("cell width cannot be negative and rows must be positive")
	} else if c.MinPower != nil && c.MaxPower != nil && *c.MinPower >= *c.MaxPower {
		err = fmt.Errorf("minimum power %.1f dB must be below maximum power %.1f dB", *c.MinPower, *c.MaxPower)
	} else if c.TimeZone, err = time.LoadLocation(tz); err != nil {
		err = fmt.Errorf("invalid time zone: %w", err)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
