package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

// BreakerSource stops calling a failing source until it has had time to
// recover, so a dead database costs nothing per request.
type BreakerSource struct {
	inner pipeline.ReadingSource
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerSource trips after maxFailures consecutive failures and lets a
// single trial request through after openTimeout.
func NewBreakerSource(inner pipeline.ReadingSource, maxFailures uint32, openTimeout time.Duration, logger *slog.Logger) *BreakerSource {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerSource{inner: inner, cb: cb}
}

// FetchReadings forwards to the wrapped source unless the breaker is open.
// Empty results are not failures.
func (b *BreakerSource) FetchReadings(ctx context.Context, siteID string, variables []domain.Variable, r domain.TimeRange) ([]domain.EnvironmentalReading, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.FetchReadings(ctx, siteID, variables, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrDataUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	readings, _ := result.([]domain.EnvironmentalReading)
	return readings, nil
}

// State exposes the breaker state for logging and tests.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}
