package queue

import (
	"context"
	"time"
)

// Options control how a job is enqueued.
type Options struct {
	Delay time.Duration
}

// Option mutates enqueue Options.
type Option func(*Options)

// WithDelay postpones delivery of the job by d. Delayed jobs are parked in
// the scheduler and published to the queue once due.
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Delay = d
		}
	}
}

// Enqueuer hands jobs to the durable queue. Delivery is at-least-once, so
// every handler must tolerate reprocessing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job, opts ...Option) error
}

// ApplyOptions folds opts into an Options value.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
