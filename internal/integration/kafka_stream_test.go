//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/netpen-escape-risk/internal/adapter/kafka"
	"github.com/couchcryptid/netpen-escape-risk/internal/config"
	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

const testRiskTopic = "test-escape-risk"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("escape-risk-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// streamedAssessment holds the parts of a consumed message the tests check.
type streamedAssessment struct {
	Key     string
	Headers map[string]string
	Body    struct {
		SiteID    string  `json:"site_id"`
		Index     float64 `json:"index"`
		Level     string  `json:"nivel"`
		Synthetic bool    `json:"synthetic"`
	}
}

func readAssessment(ctx context.Context, t *testing.T, consumer *kafkago.Reader) streamedAssessment {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from risk topic")

	out := streamedAssessment{Key: string(msg.Key), Headers: map[string]string{}}
	for _, h := range msg.Headers {
		out.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &out.Body))
	return out
}

// TestSummaryStreamsAssessments runs an all-site summary on synthetic
// telemetry and verifies every assessment lands on the risk topic.
func TestSummaryStreamsAssessments(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRiskTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaRiskTopic: testRiskTopic,
	}
	metrics := observability.NewMetricsForTesting()
	writer := kafka.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	profiles := domain.DefaultProfiles()
	scorer := domain.NewScorer(domain.DefaultCalibration())
	synth := domain.NewSynthesizer(profiles, domain.SeededSource(11))
	projector := domain.NewProjector(scorer, domain.SeededSource(11), domain.DefaultBaseSpread)
	gate := pipeline.NewGate(nil, synth, time.Second, discardLogger(), metrics)
	engine := pipeline.NewEngine(gate, scorer, projector, synth, discardLogger(), metrics,
		pipeline.WithPublisher(writer))

	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	all, err := engine.Summary(ctx, day)
	require.NoError(t, err)
	require.Len(t, all, len(profiles.Sites()))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testRiskTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	seen := map[string]streamedAssessment{}
	for len(seen) < len(all) {
		sa := readAssessment(ctx, t, consumer)
		seen[sa.Body.SiteID] = sa
	}

	for _, a := range all {
		sa, ok := seen[a.SiteID]
		require.True(t, ok, "missing assessment for site %s", a.SiteID)
		assert.Equal(t, a.SiteID+"|2025-03-10", sa.Key)
		assert.Equal(t, string(a.Level), sa.Headers["level"])
		assert.Equal(t, "true", sa.Headers["synthetic"])
		_, err := time.Parse(time.RFC3339, sa.Headers["assessed_at"])
		assert.NoError(t, err, "assessed_at should be valid RFC3339")
		assert.True(t, sa.Body.Synthetic)
		assert.InDelta(t, a.Index, sa.Body.Index, 0.05)
	}
	assert.Zero(t, testutil.ToFloat64(metrics.PublishErrors))
}
