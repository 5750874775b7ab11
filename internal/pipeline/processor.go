package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/radio-channelizer/internal/catalog"
	"github.com/roman-kulish/radio-channelizer/internal/channelizer"
	"github.com/roman-kulish/radio-channelizer/internal/conditioning"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// DefaultStatsInterval is how often the processing loop logs a summary
const DefaultStatsInterval = 30 * time.Second

// Archiver stores conditioned bursts
type Archiver interface {
	Write(b *iq.Burst) (string, error)
}

// ChannelWriter receives the channelized output indexed by channel
type ChannelWriter interface {
	Write(out [][]float32) error
}

// Recorder catalogues processed bursts
type Recorder interface {
	RecordBurst(r catalog.BurstRecord) error
}

// WithLogger sets the logger for the processor
func WithLogger(logger *slog.Logger) func(p *Processor) {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithArchive archives every conditioned burst
func WithArchive(a Archiver) func(p *Processor) {
	return func(p *Processor) {
		p.archive = a
	}
}

// WithRecorder catalogues every n-th processed burst
func WithRecorder(r Recorder, every int) func(p *Processor) {
	return func(p *Processor) {
		p.recorder = r
		p.recordEvery = max(1, every)
	}
}

// WithStatsInterval sets how often a summary is logged, zero disables it
func WithStatsInterval(d time.Duration) func(p *Processor) {
	return func(p *Processor) {
		p.statsInterval = d
	}
}

// Processor conditions, archives, channelizes and writes out every burst it
// receives
type Processor struct {
	chain       *conditioning.Chain
	channelizer *channelizer.Channelizer
	selection   channelizer.Selection
	channels    ChannelWriter
	pool        *iq.Pool

	archive     Archiver
	recorder    Recorder
	recordEvery int

	logger        *slog.Logger
	statsInterval time.Duration
	stats         stats

	power []float64
}

type stats struct {
	bursts   uint64
	samples  uint64
	recorded uint64
	busy     time.Duration
	lastSeq  uint64
	gaps     uint64
}

// NewProcessor creates the processing loop. pool receives bursts back once
// they have been written out.
func NewProcessor(chain *conditioning.Chain, ch *channelizer.Channelizer, sel channelizer.Selection,
	channels ChannelWriter, pool *iq.Pool, options ...func(p *Processor)) *Processor {
	p := Processor{
		chain:         chain,
		channelizer:   ch,
		selection:     sel,
		channels:      channels,
		pool:          pool,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		statsInterval: DefaultStatsInterval,
		power:         make([]float64, ch.Length()),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Run processes bursts until the producer closes the queue. Queued bursts are
// drained before it returns. On error the queue is stopped so the producer
// fails instead of blocking forever.
func (p *Processor) Run(q *Queue) error {
	defer q.Stop()

	var tick <-chan time.Time
	if p.statsInterval > 0 {
		ticker := time.NewTicker(p.statsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case b, ok := <-q.Bursts():
			if !ok {
				p.logStats(q)
				return nil
			}
			if err := p.Process(b); err != nil {
				return err
			}

		case <-tick:
			p.logStats(q)
		}
	}
}

// Process runs one burst through the pipeline and returns it to the pool
func (p *Processor) Process(b *iq.Burst) error {
	defer p.pool.Put(b)
	start := time.Now()

	if p.stats.lastSeq != 0 && b.Seq > p.stats.lastSeq+1 {
		p.stats.gaps += b.Seq - p.stats.lastSeq - 1
	}
	p.stats.lastSeq = b.Seq

	p.chain.Apply(b)

	if p.archive != nil {
		path, err := p.archive.Write(b)
		if err != nil {
			return err
		}
		p.logger.Debug("burst archived", slog.Uint64("seq", b.Seq), slog.String("path", path))
	}

	out, err := p.channelizer.Channelize(b.Samples)
	if err != nil {
		return fmt.Errorf("channelizing burst %d: %w", b.Seq, err)
	}

	if err = p.channels.Write(out); err != nil {
		return fmt.Errorf("writing burst %d: %w", b.Seq, err)
	}

	p.stats.bursts++
	p.stats.samples += uint64(b.Len())

	if p.recorder != nil && b.Seq%uint64(p.recordEvery) == 0 {
		if err = p.recorder.RecordBurst(p.record(b, out)); err != nil {
			p.logger.Error(fmt.Sprintf("error cataloguing burst %d: %s", b.Seq, err.Error()))
		} else {
			p.stats.recorded++
		}
	}

	p.stats.busy += time.Since(start)
	return nil
}

func (p *Processor) record(b *iq.Burst, out [][]float32) catalog.BurstRecord {
	r := catalog.BurstRecord{
		Seq:        b.Seq,
		Timestamp:  b.Timestamp.UTC(),
		Elapsed:    b.Elapsed,
		InputLevel: p.chain.InputLevel(),
		Strategy:   p.channelizer.Kernel().Name(),
		Power:      make([]catalog.ChannelPower, 0, p.selection.Len()),
	}

	for _, c := range p.selection.Indices() {
		r.Power = append(r.Power, catalog.ChannelPower{
			Channel: c,
			Power:   powerDB(out[c], p.power),
		})
	}

	return r
}

// powerDB returns the mean power of values in dB. scratch must be at least as
// long as values.
func powerDB(values []float32, scratch []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}

	v := scratch[:len(values)]
	for i, x := range values {
		v[i] = float64(x)
	}

	mean := vecmath.DotProduct(v, v) / float64(len(v))
	if mean == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(mean)
}

func (p *Processor) logStats(q *Queue) {
	if p.stats.bursts == 0 {
		return
	}

	mean := p.stats.busy / time.Duration(p.stats.bursts)
	p.logger.Info("processing stats",
		slog.Uint64("bursts", p.stats.bursts),
		slog.String("samples", humanize.SIWithDigits(float64(p.stats.samples), 2, "")),
		slog.Uint64("gaps", p.stats.gaps),
		slog.Uint64("recorded", p.stats.recorded),
		slog.Duration("meanProcessing", mean),
		slog.Int("queued", q.Len()),
	)
}

// Bursts returns the number of bursts processed so far
func (p *Processor) Bursts() uint64 {
	return p.stats.bursts
}
