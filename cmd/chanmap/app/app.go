package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/radio-channelizer/internal/catalog"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := catalog.New(config.DBPath)
	defer store.Close()

	pm, err := store.ReadPowerMap(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session %d: %w", config.SessionID, err)
	}

	grid := NewChannelGrid(pm, config.MaxRows)
	bounds := grid.Bounds()
	if config.MinPower != nil {
		bounds.Min = *config.MinPower
	}
	if config.MaxPower != nil {
		bounds.Max = *config.MaxPower
	}

	logger.Info("finished reading channel power",
		slog.Group("stats",
			slog.String("device", pm.Session.DeviceType),
			slog.String("center", humanize.SIWithDigits(pm.Session.CenterFreq, 3, "Hz")),
			slog.Int("bursts", grid.Bursts),
			slog.Int("channels", len(grid.Channels)),
			slog.String("start", grid.Start.In(config.TimeZone).Format(time.DateTime)),
			slog.String("end", grid.End.In(config.TimeZone).Format(time.DateTime)),
			slog.String("minPower", fmt.Sprintf("%0.2fdB", bounds.Min)),
			slog.String("maxPower", fmt.Sprintf("%0.2fdB", bounds.Max)),
		))

	renderer, err := NewRenderer(RenderConfig{
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		CellWidth:     config.CellWidth,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	img, err := renderer.Render(grid, bounds)
	if err != nil {
		return fmt.Errorf("rendering channel map: %w", err)
	}

	logger.Info("writing image",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}

	if cErr := out.Close(); err == nil {
		err = cErr
	}
	return err
}
