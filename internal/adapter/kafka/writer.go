package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/netpen-escape-risk/internal/config"
	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
)

// messageWriter is the subset of kafkago.Writer used for publishing.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces risk assessments to a Kafka topic.
// It implements pipeline.AssessmentPublisher.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured risk topic. Writes
// are asynchronous: PublishAssessment only enqueues, and delivery failures
// are reported through completed.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &Writer{logger: logger, metrics: metrics}
	w.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRiskTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   w.completed,
	}
	return w
}

// completed is called by the async writer once a batch is acknowledged or fails.
func (w *Writer) completed(msgs []kafkago.Message, err error) {
	if err == nil {
		return
	}
	w.metrics.PublishErrors.Add(float64(len(msgs)))
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		keys = append(keys, string(m.Key))
	}
	w.logger.Error("assessment delivery failed", "keys", keys, "error", err)
}

// PublishAssessment serializes one assessment and writes it keyed by site
// and day, so assessments for a site stay ordered on one partition.
func (w *Writer) PublishAssessment(ctx context.Context, a domain.RiskAssessment) error {
	msg, err := serializeToMessage(a)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write assessment for site %s: %w", a.SiteID, err)
	}
	w.logger.Debug("assessment enqueued", "site_id", a.SiteID, "level", a.Level, "synthetic", a.Synthetic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RiskAssessment into a Kafka message.
func serializeToMessage(a domain.RiskAssessment) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk assessment: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.SiteID + "|" + a.Date.UTC().Format(time.DateOnly)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "level", Value: []byte(a.Level)},
			{Key: "assessed_at", Value: []byte(a.AssessedAt.Format(time.RFC3339))},
			{Key: "synthetic", Value: []byte(fmt.Sprint(a.Synthetic))},
		},
	}, nil
}
