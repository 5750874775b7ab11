// Package channelizer splits a conditioned burst into a bank of narrow channels
// with a polyphase filter bank.
//
// Two kernels compute the same linear map. Direct evaluates it as vector dot
// products against precomputed analysis rows; Transform evaluates it with a
// forward DFT. Auto picks Direct only for very short channels on a CPU that
// reports AVX, AVX2 or NEON.
// Channels are computed concurrently on a worker pool bounded by GOMAXPROCS
// and collected in channel order.
package channelizer

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/cwbudde/algo-vecmath/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// Config is the channelizer geometry
type Config struct {
	Channels     int
	SampleRate   float64
	Bandwidth    float64 // Prototype pass band in Hz
	FilterLength int
	BurstLength  int
	Strategy     Strategy
}

// Validate checks the geometry. A prototype shorter than the channel count
// would leave channels without taps and is rejected.
func (c *Config) Validate() error {
	if c.Channels < 1 {
		return fault.NewConfigError("channelizer: channel count must be positive: %d given", c.Channels)
	}
	if c.FilterLength < c.Channels {
		return fault.NewConfigError("channelizer: filter length %d is shorter than the channel count %d",
			c.FilterLength, c.Channels)
	}
	if c.BurstLength < c.Channels {
		return fault.NewConfigError("channelizer: burst length %d is shorter than the channel count %d",
			c.BurstLength, c.Channels)
	}
	return c.Strategy.Validate()
}

// Channelizer owns the filter bank, the kernel and the output buffers
type Channelizer struct {
	bank     *FilterBank
	kernel   Kernel
	strategy Strategy
	length   int
	workers  int
	features *cpu.Features
	out      [][]float32
	logger   *slog.Logger
}

// WithLogger sets the logger for the channelizer
func WithLogger(logger *slog.Logger) func(c *Channelizer) {
	return func(c *Channelizer) {
		c.logger = logger
	}
}

// WithWorkers bounds the number of channels computed concurrently
func WithWorkers(n int) func(c *Channelizer) {
	return func(c *Channelizer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithFeatures resolves the auto strategy against the given CPU features
// instead of the detected ones
func WithFeatures(f cpu.Features) func(c *Channelizer) {
	return func(c *Channelizer) {
		c.features = &f
	}
}

// New designs the filter bank and prepares the kernel
func New(config Config, options ...func(c *Channelizer)) (*Channelizer, error) {
	if config.Strategy == "" {
		config.Strategy = StrategyAuto
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	bank, err := NewFilterBank(config.Channels, config.SampleRate, config.Bandwidth, config.FilterLength)
	if err != nil {
		return nil, err
	}

	c := Channelizer{
		bank:     bank,
		strategy: config.Strategy,
		length:   config.BurstLength / config.Channels,
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	if c.strategy == StrategyAuto {
		features := cpu.DetectFeatures()
		if c.features != nil {
			features = *c.features
		}
		c.strategy = c.strategy.Resolve(features, c.length)
	}

	switch c.strategy {
	case StrategyDirect:
		c.kernel = NewDirect(bank, c.length)
	case StrategyTransform:
		if c.kernel, err = NewTransform(bank, c.length); err != nil {
			return nil, err
		}
	}

	c.out = make([][]float32, config.Channels)
	for i := range c.out {
		c.out[i] = make([]float32, c.length)
	}

	c.logger.Info("channelizer ready",
		slog.Int("channels", config.Channels),
		slog.Int("length", c.length),
		slog.Int("taps", len(bank.Prototype)),
		slog.String("kernel", c.kernel.Name()),
		slog.Int("workers", c.workers),
	)

	return &c, nil
}

// Channelize computes every channel of the burst. The returned slices are
// indexed by channel and are overwritten by the next call.
func (c *Channelizer) Channelize(samples []iq.Sample) ([][]float32, error) {
	if len(samples) < c.length*len(c.out) {
		return nil, fault.Fatal(fmt.Errorf("channelizer: burst of %d samples is shorter than %d", len(samples), c.length*len(c.out)))
	}

	var g errgroup.Group
	g.SetLimit(c.workers)

	for ch := range c.out {
		g.Go(func() error {
			return c.kernel.Channel(c.out[ch], samples, ch)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return c.out, nil
}

// Bank returns the filter bank
func (c *Channelizer) Bank() *FilterBank {
	return c.bank
}

// Strategy returns the resolved strategy
func (c *Channelizer) Strategy() Strategy {
	return c.strategy
}

// Kernel returns the kernel in use
func (c *Channelizer) Kernel() Kernel {
	return c.kernel
}

// Length returns the number of output values per channel
func (c *Channelizer) Length() int {
	return c.length
}
