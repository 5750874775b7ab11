package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/radio-channelizer/internal/channelizer"
	"github.com/roman-kulish/radio-channelizer/internal/conditioning"
	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/pipeline"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
	"github.com/roman-kulish/radio-channelizer/internal/radio/hackrf"
	"github.com/roman-kulish/radio-channelizer/internal/radio/mock"
	"github.com/roman-kulish/radio-channelizer/internal/radio/rtl"
	"github.com/roman-kulish/radio-channelizer/internal/radio/soapy"
	"github.com/roman-kulish/radio-channelizer/internal/sink"
)

const (
	// ModeBLE pins the radio to the advertising band around 2.426 GHz
	ModeBLE Mode = "ble"

	// ModeBluetooth keeps the configured tuning and fills in the defaults
	ModeBluetooth Mode = "bluetooth"

	DeviceHackRF DeviceType = "hackrf"
	DeviceRTLSDR DeviceType = "rtl"
	DeviceSoapy  DeviceType = "soapy"
	DeviceMock   DeviceType = "mock"
)

const (
	bleCenterFrequency = 2.426e9
	bleSampleRate      = 10e6
	bleBandwidth       = 2e6

	defaultCenterFrequency = 2.402e9
	defaultSampleRate      = 10e6
	defaultBandwidth       = 2e6
	defaultGain            = 30

	defaultBurstLength = 8192
	defaultChannels    = 20
)

type Mode string

func (m Mode) String() string {
	return string(m)
}

type DeviceType string

func (d DeviceType) String() string {
	return string(d)
}

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// Config is the configuration file
type Config struct {
	Settings GeneralConfig  `yaml:"settings" json:"settings"`
	Mode     Mode           `yaml:"mode" json:"mode"`
	Device   DeviceConfig   `yaml:"device" json:"device"`
	Radio    RadioConfig    `yaml:"radio" json:"radio"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Catalog  CatalogConfig  `yaml:"catalog" json:"catalog"`
}

// GeneralConfig represents global application settings
type GeneralConfig struct {
	LogLevel      string       `yaml:"logLevel" json:"logLevel"`
	StatsInterval TimeDuration `yaml:"statsInterval" json:"statsInterval"`
}

// DeviceConfig selects the backend. Only the block matching Type is used.
type DeviceConfig struct {
	Type   DeviceType     `yaml:"type" json:"type"`
	HackRF *hackrf.Config `yaml:"hackrf,omitempty" json:"hackrf,omitempty"`
	RTL    *rtl.Config    `yaml:"rtl,omitempty" json:"rtl,omitempty"`
	Soapy  *soapy.Config  `yaml:"soapy,omitempty" json:"soapy,omitempty"`
	Mock   *mock.Config   `yaml:"mock,omitempty" json:"mock,omitempty"`
}

// RadioConfig is the tuning request. Zero values take the mode defaults.
type RadioConfig struct {
	CenterFrequency float64 `yaml:"centerFrequency" json:"centerFrequency"` // Hz
	SampleRate      float64 `yaml:"sampleRate" json:"sampleRate"`           // Samples per second
	Bandwidth       float64 `yaml:"bandwidth" json:"bandwidth"`             // Hz, also the prototype pass band
	Gain            float64 `yaml:"gain" json:"gain"`                       // dB
	FrequencyOffset float64 `yaml:"frequencyOffset" json:"frequencyOffset"` // Hz, the radio tunes to center + offset
}

type PipelineConfig struct {
	BurstLength   int                  `yaml:"burstLength" json:"burstLength"`
	QueueCapacity int                  `yaml:"queueCapacity" json:"queueCapacity"`
	Channels      int                  `yaml:"channels" json:"channels"`
	FilterLength  int                  `yaml:"filterLength" json:"filterLength"`
	Strategy      channelizer.Strategy `yaml:"strategy" json:"strategy"`
	DCOffset      DCOffsetConfig       `yaml:"dcOffset" json:"dcOffset"`
	IQImbalance   IQImbalanceConfig    `yaml:"iqImbalance" json:"iqImbalance"`
	AGC           AGCConfig            `yaml:"agc" json:"agc"`
	Smoothing     SmoothingConfig      `yaml:"smoothing" json:"smoothing"`
	Selection     SelectionConfig      `yaml:"selection" json:"selection"`
}

type DCOffsetConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Alpha   float64 `yaml:"alpha" json:"alpha"`
}

type IQImbalanceConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	GainError  float64 `yaml:"gainError" json:"gainError"`
	PhaseError float64 `yaml:"phaseError" json:"phaseError"` // Radians
}

type AGCConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Target  float64 `yaml:"target" json:"target"`
}

type SmoothingConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	HalfWidth int  `yaml:"halfWidth" json:"halfWidth"`
}

// SelectionConfig picks the channels written out. Start and End are inclusive.
type SelectionConfig struct {
	Mode  channelizer.SelectionMode `yaml:"mode" json:"mode"`
	Start int                       `yaml:"start" json:"start"`
	End   int                       `yaml:"end" json:"end"`
}

type OutputConfig struct {
	Directory     string        `yaml:"directory" json:"directory"`
	RawPrefix     string        `yaml:"rawPrefix" json:"rawPrefix"`
	ChannelPrefix string        `yaml:"channelPrefix" json:"channelPrefix"`
	Archive       ArchiveConfig `yaml:"archive" json:"archive"`
}

type ArchiveConfig struct {
	Enabled bool               `yaml:"enabled" json:"enabled"`
	Format  sink.ArchiveFormat `yaml:"format" json:"format"`
	Header  HeaderConfig       `yaml:"header" json:"header"`
}

type HeaderConfig struct {
	Unit      sink.TimeUnit      `yaml:"unit" json:"unit"`
	Width     int                `yaml:"width" json:"width"`
	Reference sink.TimeReference `yaml:"reference" json:"reference"`
}

// CatalogConfig enables the SQLite catalog. Every n-th burst is recorded.
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Every   int    `yaml:"every" json:"every"`
}

// DefaultConfig returns the configuration every file is decoded over
func DefaultConfig() *Config {
	return &Config{
		Settings: GeneralConfig{
			LogLevel:      "info",
			StatsInterval: TimeDuration(pipeline.DefaultStatsInterval),
		},
		Mode: ModeBluetooth,
		Device: DeviceConfig{
			Type: DeviceMock,
		},
		Radio: RadioConfig{
			Gain: defaultGain,
		},
		Pipeline: PipelineConfig{
			BurstLength:   defaultBurstLength,
			QueueCapacity: pipeline.DefaultQueueCapacity,
			Channels:      defaultChannels,
			FilterLength:  channelizer.DefaultFilterLength,
			Strategy:      channelizer.StrategyAuto,
			DCOffset: DCOffsetConfig{
				Enabled: true,
				Alpha:   conditioning.DefaultDCAlpha,
			},
			IQImbalance: IQImbalanceConfig{
				Enabled:    true,
				GainError:  conditioning.DefaultIQGainError,
				PhaseError: conditioning.DefaultIQPhaseError,
			},
			AGC: AGCConfig{
				Enabled: true,
				Target:  conditioning.DefaultAGCTarget,
			},
			Smoothing: SmoothingConfig{
				Enabled:   true,
				HalfWidth: conditioning.DefaultSmoothingHalfWidth,
			},
			Selection: SelectionConfig{
				Mode:  channelizer.SelectionFull,
				Start: 37,
				End:   39,
			},
		},
		Output: OutputConfig{
			Directory:     "output",
			RawPrefix:     "raw_iq",
			ChannelPrefix: "channel",
			Archive: ArchiveConfig{
				Enabled: true,
				Format:  sink.FormatRaw,
				Header: HeaderConfig{
					Unit:      sink.DefaultHeaderFormat.Unit,
					Width:     sink.DefaultHeaderFormat.Width,
					Reference: sink.DefaultHeaderFormat.Reference,
				},
			},
		},
		Catalog: CatalogConfig{
			Every: 1,
		},
	}
}

// LoadConfig reads the configuration file over the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return config, nil
}

// Settings is the resolved configuration. It is built once before anything
// starts and never changes afterwards.
type Settings struct {
	LogLevel      slog.Level
	StatsInterval time.Duration

	Mode    Mode
	Device  DeviceType
	Backend any // The backend config block matching Device

	// CenterFrequency is the frequency of interest. The radio itself is tuned
	// to CenterFrequency + FrequencyOffset.
	CenterFrequency float64
	FrequencyOffset float64
	Radio           radio.Settings

	BurstLength   int
	QueueCapacity int

	Conditioning conditioning.Config
	Channelizer  channelizer.Config
	Selection    channelizer.Selection

	OutputDir     string
	RawPrefix     string
	ChannelPrefix string

	Archive       bool
	ArchiveFormat sink.ArchiveFormat
	Header        sink.HeaderFormat

	Catalog      bool
	CatalogPath  string
	CatalogEvery int
}

// Resolve applies the mode preset and checks every option. Any failure is a
// configuration error.
func (c *Config) Resolve() (Settings, error) {
	var s Settings

	if err := s.LogLevel.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return Settings{}, fault.NewConfigError("settings: invalid log level %q", c.Settings.LogLevel)
	}
	s.StatsInterval = time.Duration(c.Settings.StatsInterval)
	if s.StatsInterval < 0 {
		return Settings{}, fault.NewConfigError("settings: stats interval cannot be negative: %s", s.StatsInterval)
	}

	rc := c.Radio
	switch c.Mode {
	case ModeBLE:
		rc.CenterFrequency = bleCenterFrequency
		rc.SampleRate = bleSampleRate
		rc.Bandwidth = bleBandwidth

	case ModeBluetooth:
		if rc.CenterFrequency == 0 {
			rc.CenterFrequency = defaultCenterFrequency
		}
		if rc.SampleRate == 0 {
			rc.SampleRate = defaultSampleRate
		}
		if rc.Bandwidth == 0 {
			rc.Bandwidth = defaultBandwidth
		}

	default:
		return Settings{}, fault.NewConfigError("unknown mode %q", string(c.Mode))
	}
	s.Mode = c.Mode

	if rc.CenterFrequency <= 0 || rc.SampleRate <= 0 || rc.Bandwidth <= 0 {
		return Settings{}, fault.NewConfigError("radio: frequency, sample rate and bandwidth must be positive")
	}
	if rc.Bandwidth > rc.SampleRate/2 {
		return Settings{}, fault.NewConfigError("radio: bandwidth %g Hz exceeds half the sample rate %g S/s", rc.Bandwidth, rc.SampleRate)
	}
	if rc.Gain < 0 {
		return Settings{}, fault.NewConfigError("radio: gain cannot be negative: %g given", rc.Gain)
	}

	s.CenterFrequency = rc.CenterFrequency
	s.FrequencyOffset = rc.FrequencyOffset
	s.Radio = radio.Settings{
		SampleRate:      rc.SampleRate,
		CenterFrequency: rc.CenterFrequency + rc.FrequencyOffset,
		Bandwidth:       rc.Bandwidth,
		Gain:            rc.Gain,
	}

	var err error
	if s.Device, s.Backend, err = c.Device.resolve(); err != nil {
		return Settings{}, err
	}

	p := c.Pipeline
	if p.BurstLength < 1 {
		return Settings{}, fault.NewConfigError("pipeline: burst length must be positive: %d given", p.BurstLength)
	}
	if p.QueueCapacity < 1 {
		return Settings{}, fault.NewConfigError("pipeline: queue capacity must be positive: %d given", p.QueueCapacity)
	}
	s.BurstLength = p.BurstLength
	s.QueueCapacity = p.QueueCapacity

	s.Conditioning = conditioning.Config{
		SampleRate:         rc.SampleRate,
		DCOffset:           p.DCOffset.Enabled,
		DCAlpha:            p.DCOffset.Alpha,
		IQImbalance:        p.IQImbalance.Enabled,
		IQGainError:        p.IQImbalance.GainError,
		IQPhaseError:       p.IQImbalance.PhaseError,
		FrequencyOffset:    rc.FrequencyOffset,
		AGC:                p.AGC.Enabled,
		AGCTarget:          p.AGC.Target,
		Smoothing:          p.Smoothing.Enabled,
		SmoothingHalfWidth: p.Smoothing.HalfWidth,
	}
	if err = s.Conditioning.Validate(); err != nil {
		return Settings{}, err
	}

	s.Channelizer = channelizer.Config{
		Channels:     p.Channels,
		SampleRate:   rc.SampleRate,
		Bandwidth:    rc.Bandwidth,
		FilterLength: p.FilterLength,
		BurstLength:  p.BurstLength,
		Strategy:     p.Strategy,
	}
	if s.Channelizer.Strategy == "" {
		s.Channelizer.Strategy = channelizer.StrategyAuto
	}
	if err = s.Channelizer.Validate(); err != nil {
		return Settings{}, err
	}

	if s.Selection, err = channelizer.NewSelection(p.Selection.Mode, p.Selection.Start, p.Selection.End, p.Channels); err != nil {
		return Settings{}, err
	}

	o := c.Output
	if o.Directory == "" || o.ChannelPrefix == "" {
		return Settings{}, fault.NewConfigError("output: directory and channel prefix are required")
	}
	s.OutputDir = o.Directory
	s.RawPrefix = o.RawPrefix
	s.ChannelPrefix = o.ChannelPrefix

	s.Archive = o.Archive.Enabled
	if s.Archive {
		if o.RawPrefix == "" {
			return Settings{}, fault.NewConfigError("output: raw prefix is required when archiving")
		}
		if o.Archive.Format != sink.FormatRaw && o.Archive.Format != sink.FormatSnappy {
			return Settings{}, fault.NewConfigError("output: unknown archive format %q", string(o.Archive.Format))
		}
		s.ArchiveFormat = o.Archive.Format
		s.Header = sink.HeaderFormat{
			Unit:      o.Archive.Header.Unit,
			Width:     o.Archive.Header.Width,
			Reference: o.Archive.Header.Reference,
		}
		if err = s.Header.Validate(); err != nil {
			return Settings{}, err
		}
	}

	s.Catalog = c.Catalog.Enabled
	if s.Catalog {
		if c.Catalog.Every < 1 {
			return Settings{}, fault.NewConfigError("catalog: every must be at least 1: %d given", c.Catalog.Every)
		}
		s.CatalogPath = c.Catalog.Path
		s.CatalogEvery = c.Catalog.Every
	}

	return s, nil
}

func (d *DeviceConfig) resolve() (DeviceType, any, error) {
	switch d.Type {
	case DeviceHackRF:
		config := d.HackRF
		if config == nil {
			config = &hackrf.Config{}
		}
		if err := config.Validate(); err != nil {
			return "", nil, fault.NewConfigError("device: %s", err.Error())
		}
		return d.Type, config, nil

	case DeviceRTLSDR:
		config := d.RTL
		if config == nil {
			config = &rtl.Config{}
		}
		if err := config.Validate(); err != nil {
			return "", nil, fault.NewConfigError("device: %s", err.Error())
		}
		return d.Type, config, nil

	case DeviceSoapy:
		if d.Soapy == nil {
			return "", nil, fault.NewConfigError("device: soapy block is required")
		}
		if err := d.Soapy.Validate(); err != nil {
			return "", nil, fault.NewConfigError("device: %s", err.Error())
		}
		return d.Type, d.Soapy, nil

	case DeviceMock:
		config := d.Mock
		if config == nil {
			config = &mock.Config{}
		}
		if err := config.Validate(); err != nil {
			return "", nil, fault.NewConfigError("device: %s", err.Error())
		}
		return d.Type, config, nil

	default:
		return "", nil, fault.NewConfigError("device: unknown type %q", string(d.Type))
	}
}
