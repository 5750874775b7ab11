package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/radio-channelizer/internal/catalog"
	"github.com/roman-kulish/radio-channelizer/internal/channelizer"
	"github.com/roman-kulish/radio-channelizer/internal/conditioning"
	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
	"github.com/roman-kulish/radio-channelizer/internal/radio/mock"
	"github.com/roman-kulish/radio-channelizer/internal/sink"
)

const (
	testChannels    = 20
	testBurstLength = 8192
	testSampleRate  = 10e6
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memRecorder struct {
	mu      sync.Mutex
	records []catalog.BurstRecord
	err     error
}

func (r *memRecorder) RecordBurst(rec catalog.BurstRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

// countingWriter cancels once n writes went through
type countingWriter struct {
	next   ChannelWriter
	n      int
	cancel context.CancelFunc
	writes int
	err    error
}

func (w *countingWriter) Write(out [][]float32) error {
	if w.err != nil {
		return w.err
	}
	if err := w.next.Write(out); err != nil {
		return err
	}
	w.writes++
	if w.writes == w.n && w.cancel != nil {
		w.cancel()
	}
	return nil
}

type processorFixture struct {
	chain       *conditioning.Chain
	channelizer *channelizer.Channelizer
	selection   channelizer.Selection
	pool        *iq.Pool
}

func newProcessorFixture(t *testing.T, strategy channelizer.Strategy) processorFixture {
	t.Helper()

	chain, err := conditioning.NewChain(conditioning.Config{
		SampleRate:         testSampleRate,
		DCOffset:           true,
		DCAlpha:            conditioning.DefaultDCAlpha,
		IQImbalance:        true,
		IQGainError:        conditioning.DefaultIQGainError,
		IQPhaseError:       conditioning.DefaultIQPhaseError,
		AGC:                true,
		AGCTarget:          conditioning.DefaultAGCTarget,
		Smoothing:          true,
		SmoothingHalfWidth: conditioning.DefaultSmoothingHalfWidth,
	}, testBurstLength)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	ch, err := channelizer.New(channelizer.Config{
		Channels:     testChannels,
		SampleRate:   testSampleRate,
		Bandwidth:    2e6,
		FilterLength: channelizer.DefaultFilterLength,
		BurstLength:  testBurstLength,
		Strategy:     strategy,
	})
	if err != nil {
		t.Fatalf("channelizer.New() error = %v", err)
	}

	sel, err := channelizer.NewSelection(channelizer.SelectionRange, 5, 7, testChannels)
	if err != nil {
		t.Fatalf("NewSelection() error = %v", err)
	}

	return processorFixture{chain: chain, channelizer: ch, selection: sel, pool: iq.NewPool(testBurstLength)}
}

func TestPipeline_EndToEnd(t *testing.T) {
	for _, strategy := range []channelizer.Strategy{channelizer.StrategyDirect, channelizer.StrategyTransform} {
		t.Run(string(strategy), func(t *testing.T) {
			fx := newProcessorFixture(t, strategy)
			dir := t.TempDir()

			channels, err := sink.NewChannels(dir, "channel", fx.selection.Indices(), fx.channelizer.Length())
			if err != nil {
				t.Fatalf("NewChannels() error = %v", err)
			}
			defer channels.Close()

			archive, err := sink.NewArchive(filepath.Join(dir, "raw"), "raw_iq", sink.FormatRaw, sink.DefaultHeaderFormat)
			if err != nil {
				t.Fatalf("NewArchive() error = %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			writer := &countingWriter{next: channels, n: 3, cancel: cancel}
			recorder := &memRecorder{}

			r := newMockRadio(t, mock.Config{
				Tones:      []mock.Tone{{Offset: 5e5, Amplitude: 0.4}},
				NoiseLevel: 0.01,
				DCOffsetI:  0.05,
				Seed:       7,
			})

			q := NewQueue(DefaultQueueCapacity)
			a := NewAcquisition(r, fx.pool, q)
			p := NewProcessor(fx.chain, fx.channelizer, fx.selection, writer, fx.pool,
				WithArchive(archive),
				WithRecorder(recorder, 1),
				WithStatsInterval(0),
			)

			if err = New(a, p, q).Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if p.Bursts() < 3 {
				t.Fatalf("Bursts() = %d, want at least 3", p.Bursts())
			}
			if uint64(writer.writes) != p.Bursts() {
				t.Errorf("writes = %d, want %d", writer.writes, p.Bursts())
			}

			// every queued burst is processed in order
			if uint64(len(recorder.records)) != p.Bursts() {
				t.Fatalf("records = %d, want %d", len(recorder.records), p.Bursts())
			}
			for i, rec := range recorder.records {
				if rec.Seq != uint64(i+1) {
					t.Fatalf("records[%d].Seq = %d, want %d", i, rec.Seq, i+1)
				}
				if len(rec.Power) != 3 || rec.Power[0].Channel != 5 || rec.Power[2].Channel != 7 {
					t.Fatalf("records[%d].Power = %+v", i, rec.Power)
				}
				if rec.Strategy != fx.channelizer.Kernel().Name() {
					t.Errorf("records[%d].Strategy = %q", i, rec.Strategy)
				}
			}

			for _, c := range fx.selection.Indices() {
				info, err := os.Stat(sink.ChannelPath(dir, "channel", c))
				if err != nil {
					t.Fatalf("channel %d file: %v", c, err)
				}
				if info.Size() != int64(4*fx.channelizer.Length()) {
					t.Errorf("channel %d size = %d, want %d", c, info.Size(), 4*fx.channelizer.Length())
				}
			}
			if _, err := os.Stat(sink.ChannelPath(dir, "channel", 4)); !os.IsNotExist(err) {
				t.Errorf("unselected channel 4 has a file: %v", err)
			}

			archived, err := filepath.Glob(filepath.Join(dir, "raw", "raw_iq_*.iq"))
			if err != nil || len(archived) == 0 {
				t.Fatalf("no archived bursts: %v", err)
			}
			h, samples, err := sink.ReadArchive(archived[0], sink.DefaultHeaderFormat)
			if err != nil {
				t.Fatalf("ReadArchive() error = %v", err)
			}
			if h.Count != testBurstLength || len(samples) != testBurstLength {
				t.Errorf("archive count = %d, samples = %d", h.Count, len(samples))
			}
		})
	}
}

func TestPipeline_WriteFailureStops(t *testing.T) {
	fx := newProcessorFixture(t, channelizer.StrategyTransform)

	cause := fault.Fatal(errors.New("disk full"))
	writer := &countingWriter{err: cause}

	q := NewQueue(DefaultQueueCapacity)
	a := NewAcquisition(newMockRadio(t, mock.Config{Seed: 1}), fx.pool, q)
	p := NewProcessor(fx.chain, fx.channelizer, fx.selection, writer, fx.pool, WithStatsInterval(0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := New(a, p, q).Run(ctx)
	if !errors.Is(err, fault.ErrFatal) {
		t.Fatalf("Run() error = %v, want fatal", err)
	}
	if ctx.Err() != nil {
		t.Error("pipeline ran until the deadline instead of stopping on the write failure")
	}
}

func TestProcessor_RecordEvery(t *testing.T) {
	fx := newProcessorFixture(t, channelizer.StrategyDirect)
	recorder := &memRecorder{}

	p := NewProcessor(fx.chain, fx.channelizer, fx.selection, discardWriter{}, fx.pool,
		WithRecorder(recorder, 2), WithStatsInterval(0))

	for seq := uint64(1); seq <= 5; seq++ {
		b := fx.pool.Get()
		b.Seq = seq
		b.Timestamp = time.Unix(0, int64(seq))
		for i := range b.Samples {
			b.Samples[i] = complex(float32(math.Cos(float64(i)/3)), float32(math.Sin(float64(i)/3)))
		}
		if err := p.Process(b); err != nil {
			t.Fatalf("Process(%d) error = %v", seq, err)
		}
	}

	if p.Bursts() != 5 {
		t.Errorf("Bursts() = %d, want 5", p.Bursts())
	}
	if len(recorder.records) != 2 || recorder.records[0].Seq != 2 || recorder.records[1].Seq != 4 {
		t.Fatalf("records = %+v, want seqs 2 and 4", recorder.records)
	}
	for _, cp := range recorder.records[0].Power {
		if math.IsNaN(cp.Power) || math.IsInf(cp.Power, 1) {
			t.Errorf("channel %d power = %v", cp.Channel, cp.Power)
		}
	}
}

func TestProcessor_CatalogFailureIsNotFatal(t *testing.T) {
	fx := newProcessorFixture(t, channelizer.StrategyDirect)
	recorder := &memRecorder{err: errors.New("database is locked")}

	p := NewProcessor(fx.chain, fx.channelizer, fx.selection, discardWriter{}, fx.pool,
		WithRecorder(recorder, 1), WithStatsInterval(0))

	b := fx.pool.Get()
	b.Seq = 1
	if err := p.Process(b); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if p.Bursts() != 1 {
		t.Errorf("Bursts() = %d, want 1", p.Bursts())
	}
}

type discardWriter struct{}

func (discardWriter) Write([][]float32) error { return nil }

func TestPowerDB(t *testing.T) {
	tests := []struct {
		name   string
		values []float32
		want   float64
	}{
		{"empty", nil, math.Inf(-1)},
		{"silent", []float32{0, 0, 0}, math.Inf(-1)},
		{"unit", []float32{1, -1}, 0},
		{"tenth", []float32{0.1, -0.1, 0.1, -0.1}, -20},
		{"mixed", []float32{2, 0}, 10 * math.Log10(2)},
	}

	scratch := make([]float64, 8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := powerDB(tt.values, scratch)
			if math.IsInf(tt.want, -1) {
				if !math.IsInf(got, -1) {
					t.Errorf("powerDB() = %v, want -Inf", got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("powerDB() = %v, want %v", got, tt.want)
			}
		})
	}
}
