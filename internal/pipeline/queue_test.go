package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

func TestQueue_BlocksWhenFull(t *testing.T) {
	q := NewQueue(DefaultQueueCapacity)
	ctx := context.Background()

	for i := range DefaultQueueCapacity {
		if err := q.Push(ctx, &iq.Burst{Seq: uint64(i + 1)}); err != nil {
			t.Fatalf("Push(%d) error = %v", i+1, err)
		}
	}
	if q.Len() != DefaultQueueCapacity {
		t.Fatalf("Len() = %d, want %d", q.Len(), DefaultQueueCapacity)
	}

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(ctx, &iq.Burst{Seq: 11})
	}()

	select {
	case err := <-pushed:
		t.Fatalf("Push into a full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if b := <-q.Bursts(); b.Seq != 1 {
		t.Errorf("first burst Seq = %d, want 1", b.Seq)
	}

	select {
	case err := <-pushed:
		if err != nil {
			t.Fatalf("Push after a slot freed error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push did not resume after a slot freed")
	}

	q.Close()
	var seqs []uint64
	for b := range q.Bursts() {
		seqs = append(seqs, b.Seq)
	}
	if len(seqs) != DefaultQueueCapacity || seqs[len(seqs)-1] != 11 {
		t.Errorf("drained %v, want 2..11", seqs)
	}
}

func TestQueue_PushAfterStop(t *testing.T) {
	q := NewQueue(2)
	q.Stop()
	q.Stop()

	if err := q.Push(context.Background(), &iq.Burst{}); !errors.Is(err, ErrConsumerGone) {
		t.Errorf("Push() error = %v, want ErrConsumerGone", err)
	}
}

func TestQueue_StopUnblocksPush(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	if err := q.Push(ctx, &iq.Burst{}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(ctx, &iq.Burst{})
	}()

	time.Sleep(10 * time.Millisecond)
	q.Stop()

	select {
	case err := <-pushed:
		if !errors.Is(err, ErrConsumerGone) {
			t.Errorf("Push() error = %v, want ErrConsumerGone", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push did not return after Stop")
	}
}

func TestQueue_PushCancelled(t *testing.T) {
	q := NewQueue(1)
	if err := q.Push(context.Background(), &iq.Burst{}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := q.Push(ctx, &iq.Burst{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Push() error = %v, want context.DeadlineExceeded", err)
	}
	if q.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", q.Cap())
	}
}
