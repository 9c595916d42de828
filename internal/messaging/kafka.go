// Package messaging mirrors search analytics events onto Kafka so
// downstream consumers (warehouse loaders, dashboards) can read them
// without polling the API.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/config"
	"github.com/tablerank/tablerank/internal/services"
)

// AnalyticsPublisher writes search events to a Kafka topic, keyed by
// variant so each variant's stream stays ordered within a partition.
type AnalyticsPublisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewAnalyticsPublisher returns nil when no brokers are configured;
// analytics then stays in process memory only.
func NewAnalyticsPublisher(cfg *config.Config, logger *logrus.Logger) *AnalyticsPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}

	return &AnalyticsPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.AnalyticsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		logger: logger,
	}
}

func (p *AnalyticsPublisher) PublishSearchEvent(ctx context.Context, event services.SearchEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal search event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Variant),
		Value: payload,
		Time:  event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish search event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": event.ID,
		"variant":  event.Variant,
	}).Debug("Search event published")

	return nil
}

// Close flushes and closes the underlying writer.
func (p *AnalyticsPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
