package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
	"github.com/user/campuscore/internal/adapter/metrics"
	"github.com/user/campuscore/internal/domain"
)

// KafkaPublisher publishes lifecycle events to a Kafka topic, keyed by school
// id so per-tenant ordering is preserved across partitions.
type KafkaPublisher struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	metrics *metrics.RegistryMetrics
}

// NewKafkaPublisher creates a lifecycle event publisher.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger, m *metrics.RegistryMetrics) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}

	return &KafkaPublisher{writer: writer, logger: logger, metrics: m}
}

var _ domain.EventPublisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.SchoolID, 10)),
		Value: payload,
	})
	if err != nil {
		if p.metrics != nil {
			p.metrics.EventsPublished.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("publish lifecycle event: %w", err)
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues("ok").Inc()
	}
	p.logger.Debug("published lifecycle event", "type", event.Type, "school_id", event.SchoolID)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
