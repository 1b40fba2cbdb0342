// Package redisdelay parks delayed dispatch jobs in a Redis sorted set and
// publishes them to the underlying queue once due. It exists because Kafka
// has no native delayed delivery.
package redisdelay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/queue"
)

const defaultKey = "dispatch:delayed"

// Scheduler implements queue.Enqueuer. Undelayed jobs pass straight through
// to the inner enqueuer; delayed ones are scored by their due time.
type Scheduler struct {
	client       *redis.Client
	inner        queue.Enqueuer
	key          string
	pollInterval time.Duration
	logger       logx.Logger
	now          func() time.Time
}

var _ queue.Enqueuer = (*Scheduler)(nil)

// NewScheduler creates a Scheduler on top of the given Redis client and
// inner enqueuer.
func NewScheduler(client *redis.Client, inner queue.Enqueuer, pollInterval time.Duration, logger logx.Logger) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Scheduler{
		client:       client,
		inner:        inner,
		key:          defaultKey,
		pollInterval: pollInterval,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue parks the job until its delay elapses, or forwards it immediately
// when no delay is requested.
func (s *Scheduler) Enqueue(ctx context.Context, job queue.Job, opts ...queue.Option) error {
	o := queue.ApplyOptions(opts...)
	if o.Delay <= 0 {
		return s.inner.Enqueue(ctx, job)
	}
	if s.client == nil {
		// no Redis configured: deliver immediately rather than lose the job
		s.logger.Warn("redis not configured, delayed job published immediately",
			logx.String("job_id", job.ID),
		)
		return s.inner.Enqueue(ctx, job)
	}
	if err := job.Validate(); err != nil {
		return err
	}

	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redisdelay: marshal job %s: %w", job.ID, err)
	}

	due := s.now().Add(o.Delay)
	if err := s.client.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: string(b),
	}).Err(); err != nil {
		return fmt.Errorf("redisdelay: park job %s: %w", job.ID, err)
	}

	s.logger.Debug("job parked",
		logx.String("job_id", job.ID),
		logx.String("kind", string(job.Kind)),
		logx.Duration("delay", o.Delay),
	)
	return nil
}

// Run polls for due jobs until ctx is cancelled. Without a Redis client
// there is nothing to poll and Run just waits for shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.client == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.releaseDue(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("release due jobs failed", logx.Any("err", err))
			}
		}
	}
}

// releaseDue moves every due job from the sorted set to the queue. ZRem is
// the ownership gate: with several workers polling, only the one that
// removed the member publishes it.
func (s *Scheduler) releaseDue(ctx context.Context) error {
	nowScore := strconv.FormatInt(s.now().UnixMilli(), 10)

	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: nowScore,
	}).Result()
	if err != nil {
		return fmt.Errorf("redisdelay: range due: %w", err)
	}

	for _, m := range members {
		removed, err := s.client.ZRem(ctx, s.key, m).Result()
		if err != nil {
			return fmt.Errorf("redisdelay: claim member: %w", err)
		}
		if removed == 0 {
			continue
		}

		var job queue.Job
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			s.logger.Error("dropping unreadable delayed job", logx.Any("err", err))
			continue
		}

		if err := s.inner.Enqueue(ctx, job); err != nil {
			// put it back so the job survives a queue outage
			if zErr := s.client.ZAdd(ctx, s.key, redis.Z{
				Score:  float64(s.now().UnixMilli()),
				Member: m,
			}).Err(); zErr != nil {
				s.logger.Error("re-park failed, delayed job lost",
					logx.String("job_id", job.ID),
					logx.Any("err", zErr),
				)
			}
			return fmt.Errorf("redisdelay: publish job %s: %w", job.ID, err)
		}

		s.logger.Debug("delayed job released",
			logx.String("job_id", job.ID),
			logx.String("kind", string(job.Kind)),
		)
	}
	return nil
}
