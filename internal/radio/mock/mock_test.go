package mock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

var (
	discard  = slog.New(slog.NewTextHandler(io.Discard, nil))
	settings = radio.Settings{SampleRate: 10e6, CenterFrequency: 2.426e9, Bandwidth: 2e6, Gain: 30}
)

func newRadio(t *testing.T, config Config) *Radio {
	t.Helper()

	r, err := New(&config, discard)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err = r.Configure(settings); err != nil {
		t.Fatalf("configure: %v", err)
	}
	return r
}

func TestRadio_ImplementsRadio(t *testing.T) {
	var _ radio.Radio = (*Radio)(nil)
}

func TestRadio_DCOffset(t *testing.T) {
	r := newRadio(t, Config{DCOffsetI: 0.25, DCOffsetQ: -0.125})

	buf := make([]iq.Sample, 64)
	if _, err := r.ReadBurst(context.Background(), buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	for i, s := range buf {
		if s != complex(float32(0.25), float32(-0.125)) {
			t.Fatalf("sample %d: expected pure DC, got %v", i, s)
		}
	}
}

func TestRadio_ToneIsContinuousAcrossReads(t *testing.T) {
	r := newRadio(t, Config{Tones: []Tone{{Offset: 1e6, Amplitude: 0.5}}})

	first := make([]iq.Sample, 7)
	second := make([]iq.Sample, 1)
	if _, err := r.ReadBurst(context.Background(), first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := r.ReadBurst(context.Background(), second); err != nil {
		t.Fatalf("read: %v", err)
	}

	// 1 MHz at 10 MS/s advances 2π/10 per sample
	phase := 2 * math.Pi * 7 / 10
	want := complex(0.5*math.Cos(phase), 0.5*math.Sin(phase))
	got := complex128(second[0])
	if math.Abs(real(got)-real(want)) > 1e-6 || math.Abs(imag(got)-imag(want)) > 1e-6 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRadio_SeededNoiseIsReproducible(t *testing.T) {
	a := newRadio(t, Config{NoiseLevel: 0.1, Seed: 42})
	b := newRadio(t, Config{NoiseLevel: 0.1, Seed: 42})

	bufA := make([]iq.Sample, 128)
	bufB := make([]iq.Sample, 128)
	_, _ = a.ReadBurst(context.Background(), bufA)
	_, _ = b.ReadBurst(context.Background(), bufB)

	for i := range bufA {
		if bufA[i] != bufB[i] {
			t.Fatalf("sample %d differs: %v != %v", i, bufA[i], bufB[i])
		}
	}
}

func TestRadio_FailEvery(t *testing.T) {
	r := newRadio(t, Config{FailEvery: 3})

	buf := make([]iq.Sample, 8)
	for i := 1; i <= 6; i++ {
		_, err := r.ReadBurst(context.Background(), buf)
		if i%3 == 0 {
			if !fault.IsTransient(err) || !errors.Is(err, ErrInjected) {
				t.Errorf("read %d: expected injected transient error, got %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("read %d: unexpected error: %v", i, err)
		}
	}
}

func TestRadio_NotConfigured(t *testing.T) {
	r, err := New(&Config{}, discard)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err = r.ReadBurst(context.Background(), make([]iq.Sample, 1)); !errors.Is(err, radio.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestRadio_RealtimeHonoursContext(t *testing.T) {
	r := newRadio(t, Config{Realtime: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// one second worth of samples cannot be paced with a cancelled context
	buf := make([]iq.Sample, 10_000_000)
	if _, err := r.ReadBurst(ctx, buf); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
