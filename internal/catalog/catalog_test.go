package catalog

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "catalog.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.CreateSession(ctx, &Session{
		StartTime:  start,
		DeviceType: "Mock",
		Channels:   20,
		SampleRate: 10e6,
		CenterFreq: 2.426e9,
	}, map[string]any{"mode": "ble"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := s.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got.ID != id || got.DeviceType != "Mock" || got.Channels != 20 {
		t.Errorf("Session() = %+v", got)
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, start)
	}
	if got.Config == nil || *got.Config != `{"mode":"ble"}` {
		t.Errorf("Config = %v", got.Config)
	}
}

func TestStore_Sessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, config := range []any{nil, "raw", []byte("bytes")} {
		if _, err := s.CreateSession(ctx, &Session{
			StartTime:  base.Add(time.Duration(i) * time.Minute),
			DeviceType: "Mock",
			Channels:   i + 1,
			SampleRate: 1e6,
			CenterFreq: 100e6,
		}, config); err != nil {
			t.Fatalf("CreateSession(%d) error = %v", i, err)
		}
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("len(Sessions()) = %d, want 3", len(sessions))
	}
	if sessions[0].Config != nil {
		t.Errorf("sessions[0].Config = %q, want nil", *sessions[0].Config)
	}
	if sessions[1].Config == nil || *sessions[1].Config != "raw" {
		t.Errorf("sessions[1].Config = %v", sessions[1].Config)
	}
	if sessions[2].Config == nil || *sessions[2].Config != "bytes" {
		t.Errorf("sessions[2].Config = %v", sessions[2].Config)
	}
}

func TestStore_SessionNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateSession(ctx, &Session{DeviceType: "Mock", Channels: 1, SampleRate: 1, CenterFreq: 1}, nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := s.Session(ctx, 42); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Session(42) error = %v, want sql.ErrNoRows", err)
	}
}

func TestRecorder_ReadPowerMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, &Session{DeviceType: "Mock", Channels: 20, SampleRate: 10e6, CenterFreq: 2.426e9}, nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	rec := s.NewRecorder(id)
	if rec.SessionID() != id {
		t.Errorf("SessionID() = %d, want %d", rec.SessionID(), id)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []BurstRecord{
		{Seq: 1, Timestamp: base, Elapsed: time.Millisecond, InputLevel: 0.3, Strategy: "direct",
			Power: []ChannelPower{{Channel: 37, Power: -10}, {Channel: 38, Power: -20}, {Channel: 39, Power: math.Inf(-1)}}},
		{Seq: 2, Timestamp: base.Add(time.Millisecond), Elapsed: 2 * time.Millisecond, InputLevel: math.NaN(), Strategy: "direct",
			Power: []ChannelPower{{Channel: 38, Power: -5}}},
		{Seq: 3, Timestamp: base.Add(2 * time.Millisecond), Strategy: "direct"},
	}
	for _, r := range records {
		if err := rec.RecordBurst(r); err != nil {
			t.Fatalf("RecordBurst(%d) error = %v", r.Seq, err)
		}
	}

	pm, err := s.ReadPowerMap(ctx, id)
	if err != nil {
		t.Fatalf("ReadPowerMap() error = %v", err)
	}

	if got, want := pm.Seqs, []uint64{1, 2}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Seqs = %v, want %v", got, want)
	}
	if got, want := pm.Channels, []int{37, 38, 39}; len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("Channels = %v, want %v", got, want)
	}
	if !pm.Times[1].Equal(base.Add(time.Millisecond)) {
		t.Errorf("Times[1] = %v", pm.Times[1])
	}

	cases := []struct {
		burst, channel int
		want           float64 // NaN means missing
	}{
		{0, 0, -10},
		{0, 1, -20},
		{0, 2, math.NaN()},
		{1, 0, math.NaN()},
		{1, 1, -5},
		{1, 2, math.NaN()},
	}
	for _, tc := range cases {
		got := pm.Power[tc.burst][tc.channel]
		if math.IsNaN(tc.want) {
			if !math.IsNaN(got) {
				t.Errorf("Power[%d][%d] = %v, want NaN", tc.burst, tc.channel, got)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("Power[%d][%d] = %v, want %v", tc.burst, tc.channel, got, tc.want)
		}
	}
}

func TestStore_ReadPowerMapEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, &Session{DeviceType: "Mock", Channels: 1, SampleRate: 1, CenterFreq: 1}, nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := s.ReadPowerMap(ctx, id); !errors.Is(err, ErrNoData) {
		t.Errorf("ReadPowerMap() error = %v, want ErrNoData", err)
	}
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "catalog.db"))
	if _, err := s.CreateSession(context.Background(), &Session{DeviceType: "Mock", Channels: 1, SampleRate: 1, CenterFreq: 1}, nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
