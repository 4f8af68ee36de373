package pipeline_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	readings []domain.EnvironmentalReading
	err      error
	delay    time.Duration
	calls    atomic.Int64
}

func (m *mockSource) FetchReadings(ctx context.Context, _ string, _ []domain.Variable, _ domain.TimeRange) ([]domain.EnvironmentalReading, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.readings, m.err
}

// siteSource serves different readings per site.
type siteSource map[string][]domain.EnvironmentalReading

func (s siteSource) FetchReadings(_ context.Context, siteID string, _ []domain.Variable, _ domain.TimeRange) ([]domain.EnvironmentalReading, error) {
	return s[siteID], nil
}

// blockingPublisher waits for its context to end.
type blockingPublisher struct{}

func (blockingPublisher) PublishAssessment(ctx context.Context, _ domain.RiskAssessment) error {
	<-ctx.Done()
	return ctx.Err()
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.RiskAssessment
	err       error
}

func (m *mockPublisher) PublishAssessment(_ context.Context, a domain.RiskAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, a)
	return m.err
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func newTestSynth() *domain.Synthesizer {
	return domain.NewSynthesizer(domain.DefaultProfiles(), domain.SeededSource(7))
}

func newTestGate(src pipeline.ReadingSource, metrics *observability.Metrics) *pipeline.Gate {
	return pipeline.NewGate(src, newTestSynth(), 50*time.Millisecond, slog.Default(), metrics)
}

func reading(v domain.Variable, value float64, ts time.Time) domain.EnvironmentalReading {
	return domain.EnvironmentalReading{SiteID: "1", Variable: v, Value: value, Timestamp: ts}
}
