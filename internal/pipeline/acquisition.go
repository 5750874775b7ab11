package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
	"github.com/roman-kulish/radio-channelizer/internal/radio"
)

const (
	retryInitialInterval = 10 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// WithAcquisitionLogger sets the logger for the acquisition loop
func WithAcquisitionLogger(logger *slog.Logger) func(a *Acquisition) {
	return func(a *Acquisition) {
		a.logger = logger
	}
}

// WithRetry sets the pause after the first failed read and its upper bound.
// The pause doubles on every consecutive failure.
func WithRetry(initial, maximum time.Duration) func(a *Acquisition) {
	return func(a *Acquisition) {
		a.retry.InitialInterval = initial
		a.retry.MaxInterval = maximum
	}
}

// Acquisition reads fixed-length bursts from the radio and pushes them onto
// the queue. Failed reads are logged and retried; a queue whose consumer has
// gone is fatal.
type Acquisition struct {
	radio  radio.Radio
	pool   *iq.Pool
	queue  *Queue
	logger *slog.Logger
	retry  *backoff.ExponentialBackOff

	failures uint64
}

// NewAcquisition creates the acquisition loop
func NewAcquisition(r radio.Radio, pool *iq.Pool, queue *Queue, options ...func(a *Acquisition)) *Acquisition {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = retryInitialInterval
	retry.MaxInterval = retryMaxInterval
	retry.MaxElapsedTime = 0 // never give up

	a := Acquisition{
		radio:  r,
		pool:   pool,
		queue:  queue,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:  retry,
	}

	for _, option := range options {
		option(&a)
	}

	a.retry.Reset()
	return &a
}

// Run loops until ctx is cancelled or a fatal error occurs. The queue is
// closed on return so the consumer can drain it.
func (a *Acquisition) Run(ctx context.Context) error {
	defer a.queue.Close()

	var seq uint64
	last := time.Now()

	for {
		if ctx.Err() != nil {
			return nil
		}

		b := a.pool.Get()
		n, err := a.radio.ReadBurst(ctx, b.Samples)
		if err == nil && n < len(b.Samples) {
			err = fault.Transient(fmt.Errorf("short read: %d of %d samples", n, len(b.Samples)))
		}

		if err != nil {
			a.pool.Put(b)
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, fault.ErrFatal) {
				return err
			}

			a.failures++
			wait := a.retry.NextBackOff()
			a.logger.Warn("burst read failed",
				slog.String("error", err.Error()),
				slog.Uint64("failures", a.failures),
				slog.Duration("retryIn", wait),
			)

			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}

		a.retry.Reset()

		now := time.Now()
		seq++
		b.Seq = seq
		b.Timestamp = now
		b.Elapsed = now.Sub(last)
		last = now

		if err = a.queue.Push(ctx, b); err != nil {
			a.pool.Put(b)
			if errors.Is(err, ErrConsumerGone) {
				return fault.Fatal(fmt.Errorf("handing over burst %d: %w", seq, err))
			}
			return nil
		}
	}
}

// Failures returns the number of failed reads so far. It is only meaningful
// after Run returned.
func (a *Acquisition) Failures() uint64 {
	return a.failures
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
