// Package pipeline connects a radio to the processing chain through a bounded
// queue. Acquisition and processing each run on their own goroutine and share
// nothing but the queue.
package pipeline

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs an acquisition loop and a processor over one queue
type Pipeline struct {
	acquisition *Acquisition
	processor   *Processor
	queue       *Queue
	logger      *slog.Logger
}

// WithPipelineLogger sets the logger for the pipeline
func WithPipelineLogger(logger *slog.Logger) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline. The acquisition loop and the processor must have
// been created over the same queue.
func New(a *Acquisition, p *Processor, q *Queue, options ...func(p *Pipeline)) *Pipeline {
	pl := Pipeline{
		acquisition: a,
		processor:   p,
		queue:       q,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&pl)
	}

	return &pl
}

// Run blocks until ctx is cancelled and queued bursts are processed, or until
// either side fails. A processing failure also stops acquisition.
func (pl *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := pl.acquisition.Run(ctx)
		pl.logger.Info("acquisition stopped", slog.Uint64("failedReads", pl.acquisition.Failures()))
		return err
	})

	g.Go(func() error {
		err := pl.processor.Run(pl.queue)
		pl.logger.Info("processing stopped", slog.Uint64("bursts", pl.processor.Bursts()))
		return err
	})

	pl.logger.Info("pipeline started", slog.Int("queueCapacity", pl.queue.Cap()))

	return g.Wait()
}
