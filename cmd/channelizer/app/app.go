package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/radio-channelizer/internal/catalog"
	"github.com/roman-kulish/radio-channelizer/internal/channelizer"
	"github.com/roman-kulish/radio-channelizer/internal/conditioning"
	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
	"github.com/roman-kulish/radio-channelizer/internal/pipeline"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
	"github.com/roman-kulish/radio-channelizer/internal/radio/hackrf"
	"github.com/roman-kulish/radio-channelizer/internal/radio/mock"
	"github.com/roman-kulish/radio-channelizer/internal/radio/rtl"
	"github.com/roman-kulish/radio-channelizer/internal/radio/soapy"
	"github.com/roman-kulish/radio-channelizer/internal/sink"
)

// Run builds every component from the resolved settings and runs the
// pipeline until ctx is cancelled or a fatal error occurs. Nothing starts
// unless every component could be built.
func Run(ctx context.Context, settings Settings, logger *slog.Logger) error {
	r, err := createRadio(settings, logger)
	if err != nil {
		return fmt.Errorf("creating radio: %w", err)
	}
	defer r.Close()

	if settings.Radio.Bandwidth > r.MaxBandwidth() {
		return fault.NewConfigError("%s: bandwidth %s exceeds the maximum of %s", r.Device(),
			humanize.SIWithDigits(settings.Radio.Bandwidth, 2, "Hz"),
			humanize.SIWithDigits(r.MaxBandwidth(), 2, "Hz"))
	}

	if err = r.Configure(settings.Radio); err != nil {
		return fmt.Errorf("configuring radio: %w", err)
	}

	chain, err := conditioning.NewChain(settings.Conditioning, settings.BurstLength, conditioning.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating conditioning chain: %w", err)
	}

	ch, err := channelizer.New(settings.Channelizer, channelizer.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating channelizer: %w", err)
	}

	channels, err := sink.NewChannels(settings.OutputDir, settings.ChannelPrefix, settings.Selection.Indices(), ch.Length())
	if err != nil {
		return fmt.Errorf("creating channel files: %w", err)
	}
	defer func() {
		if cErr := channels.Close(); cErr != nil {
			logger.Error(fmt.Sprintf("error closing channel files: %s", cErr.Error()))
		}
	}()

	options := []func(p *pipeline.Processor){
		pipeline.WithLogger(logger),
		pipeline.WithStatsInterval(settings.StatsInterval),
	}

	if settings.Archive {
		archive, err := sink.NewArchive(settings.OutputDir, settings.RawPrefix, settings.ArchiveFormat, settings.Header)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		options = append(options, pipeline.WithArchive(archive))
	}

	if settings.Catalog {
		store, recorder, err := createCatalog(ctx, settings, r.Device())
		if err != nil {
			return fmt.Errorf("creating catalog: %w", err)
		}
		defer store.Close()

		logger.Info("cataloguing bursts", slog.Int64("session", recorder.SessionID()), slog.Int("every", settings.CatalogEvery))
		options = append(options, pipeline.WithRecorder(recorder, settings.CatalogEvery))
	}

	pool := iq.NewPool(settings.BurstLength)
	queue := pipeline.NewQueue(settings.QueueCapacity)

	acquisition := pipeline.NewAcquisition(r, pool, queue, pipeline.WithAcquisitionLogger(logger))
	processor := pipeline.NewProcessor(chain, ch, settings.Selection, channels, pool, options...)

	logger.Info("starting",
		slog.String("mode", settings.Mode.String()),
		slog.String("device", r.Device()),
		slog.String("center", humanize.SIWithDigits(settings.CenterFrequency, 3, "Hz")),
		slog.String("tuned", humanize.SIWithDigits(settings.Radio.CenterFrequency, 3, "Hz")),
		slog.String("sampleRate", humanize.SIWithDigits(settings.Radio.SampleRate, 2, "S/s")),
		slog.String("selection", settings.Selection.String()),
		slog.String("strategy", ch.Kernel().Name()),
	)

	return pipeline.New(acquisition, processor, queue, pipeline.WithPipelineLogger(logger)).Run(ctx)
}

func createRadio(settings Settings, logger *slog.Logger) (radio.Radio, error) {
	switch settings.Device {
	case DeviceHackRF:
		return hackrf.New(settings.Backend.(*hackrf.Config), logger)

	case DeviceRTLSDR:
		return rtl.New(settings.Backend.(*rtl.Config), logger)

	case DeviceSoapy:
		return soapy.New(settings.Backend.(*soapy.Config), logger)

	case DeviceMock:
		return mock.New(settings.Backend.(*mock.Config), logger)

	default:
		return nil, fault.NewConfigError("unknown device type %q", string(settings.Device))
	}
}

func createCatalog(ctx context.Context, settings Settings, device string) (*catalog.Store, *catalog.Recorder, error) {
	dbPath := settings.CatalogPath
	if dbPath == "" {
		dbPath = filepath.Join(settings.OutputDir, fmt.Sprintf("catalog_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	}

	store := catalog.New(dbPath)
	sessionID, err := store.CreateSession(ctx, &catalog.Session{
		StartTime:  time.Now(),
		DeviceType: device,
		Channels:   settings.Channelizer.Channels,
		SampleRate: settings.Radio.SampleRate,
		CenterFreq: settings.CenterFrequency,
	}, settings)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("creating session: %w", err)
	}

	return store, store.NewRecorder(sessionID), nil
}
