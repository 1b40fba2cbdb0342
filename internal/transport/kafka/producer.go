package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/queue"
)

// seam for tests
var newSyncProducer = sarama.NewSyncProducer

// Producer publishes dispatch jobs to the topic, keyed by order id.
// Delay options are ignored here: delayed delivery is the scheduler's job,
// the producer always publishes immediately.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   logx.Logger
}

var _ queue.Enqueuer = (*Producer)(nil)

// NewProducer creates a Kafka producer. A nil Producer with nil error means
// Kafka is not configured.
func NewProducer(logger logx.Logger, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	p, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Producer{producer: p, topic: topic, logger: logger}, nil
}

// Enqueue publishes the job. The order id is the partition key, keeping one
// order's search and timeout jobs on a single partition.
func (p *Producer) Enqueue(_ context.Context, job queue.Job, _ ...queue.Option) error {
	if p == nil {
		return fmt.Errorf("kafka producer is not configured")
	}
	if err := job.Validate(); err != nil {
		return err
	}

	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(job.OrderID()),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}

	p.logger.Debug("job published",
		logx.String("job_id", job.ID),
		logx.String("kind", string(job.Kind)),
		logx.String("order_id", job.OrderID()),
		logx.Int("partition", int(partition)),
		logx.Int64("offset", offset),
	)
	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
