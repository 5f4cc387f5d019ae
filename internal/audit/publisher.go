// Package audit streams append-only activity events to Kafka. The stream is a
// side channel: the relational store remains the source of truth and publish
// failures never fail the originating request.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"pulse/internal/platform/metrics"
)

// Publisher emits audit events.
type Publisher interface {
	Emit(ctx context.Context, event Event)
	Close()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
func (Nop) Close()                      {}

// Kafka publishes events as JSON records keyed by user ID, so one user's
// events stay ordered within a partition.
type Kafka struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewKafka connects to the brokers and ensures the topic exists.
func NewKafka(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Kafka{client: client, topic: topic, logger: logger, metrics: m}, nil
}

// Emit produces asynchronously; the delivery promise logs failures so request
// latency never depends on broker round trips.
func (k *Kafka) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		k.logger.ErrorContext(ctx, "encode audit event", "error", err)
		return
	}

	record := &kgo.Record{Key: []byte(event.UserID), Value: value}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			if k.metrics != nil {
				k.metrics.AuditPublishFailures.Inc()
			}
			k.logger.Error("audit event publish failed",
				"type", string(event.Type),
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %q: %w", topic, r.Err)
		}
	}
	return nil
}
