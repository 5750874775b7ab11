package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

// DefaultQueueCapacity is the number of bursts that may wait for processing
const DefaultQueueCapacity = 10

// ErrConsumerGone is returned by Push once the processing side has stopped
var ErrConsumerGone = errors.New("burst consumer has stopped")

// Queue is the bounded hand-off between the acquisition and processing loops.
// Push blocks while the queue is full. Only the producer calls Close; only the
// consumer calls Stop.
type Queue struct {
	bursts chan *iq.Burst
	done   chan struct{}

	closeOnce sync.Once
	stopOnce  sync.Once
}

// NewQueue creates a queue holding up to capacity bursts
func NewQueue(capacity int) *Queue {
	return &Queue{
		bursts: make(chan *iq.Burst, capacity),
		done:   make(chan struct{}),
	}
}

// Push hands the burst over, blocking while the queue is full. It returns
// ErrConsumerGone if the consumer stopped and ctx.Err() if ctx ends first.
func (q *Queue) Push(ctx context.Context, b *iq.Burst) error {
	// a stopped consumer wins over free space
	select {
	case <-q.done:
		return ErrConsumerGone
	default:
	}

	select {
	case q.bursts <- b:
		return nil
	case <-q.done:
		return ErrConsumerGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bursts returns the receive side. It is closed after the producer's Close.
func (q *Queue) Bursts() <-chan *iq.Burst {
	return q.bursts
}

// Close tells the consumer that no more bursts will arrive
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.bursts)
	})
}

// Stop tells the producer that the consumer is gone for good
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
}

// Len returns the number of bursts waiting
func (q *Queue) Len() int {
	return len(q.bursts)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.bursts)
}
