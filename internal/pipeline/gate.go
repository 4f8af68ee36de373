package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
)

// ErrDataUnavailable is returned by a ReadingSource that cannot answer.
// The gate absorbs it; callers of the engine never see it.
var ErrDataUnavailable = errors.New("data unavailable")

// ReadingSource is the persistence collaborator that serves live telemetry.
type ReadingSource interface {
	FetchReadings(ctx context.Context, siteID string, variables []domain.Variable, r domain.TimeRange) ([]domain.EnvironmentalReading, error)
}

// Readings is the result of a gated fetch.
type Readings struct {
	Readings  []domain.EnvironmentalReading
	Synthetic bool
}

// Reasons a fetch is considered unavailable.
const (
	reasonError    = "error"
	reasonEmpty    = "empty"
	reasonTimeout  = "timeout"
	reasonNoSource = "no_source"
)

// fetchOutcome is the classified result of the single persistence attempt.
// An empty reason means the readings are live.
type fetchOutcome struct {
	readings []domain.EnvironmentalReading
	reason   string
	err      error
}

func (o fetchOutcome) live() bool { return o.reason == "" }

// Gate tries the persistence source once and falls back to synthesis.
type Gate struct {
	source  ReadingSource
	synth   *domain.Synthesizer
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGate creates a Gate. A nil source serves synthetic telemetry only.
func NewGate(source ReadingSource, synth *domain.Synthesizer, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		source:  source,
		synth:   synth,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// GetReadings returns live readings for the site, or a non-empty synthetic
// substitute when the source fails, times out, or has no rows. Errors are a
// *domain.ValidationError for a bad or oversized range, or
// domain.ErrUnknownVariable when none of the variables can be synthesized.
func (g *Gate) GetReadings(ctx context.Context, siteID string, variables []domain.Variable, r domain.TimeRange) (Readings, error) {
	if r.To.Before(r.From) {
		return Readings{}, domain.NewValidationError("range start %s is after end %s",
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}

	out := g.fetch(ctx, siteID, variables, r)
	if out.live() {
		return Readings{Readings: out.readings}, nil
	}

	g.metrics.Fallbacks.WithLabelValues(out.reason).Inc()
	level := slog.LevelWarn
	if out.reason == reasonNoSource {
		level = slog.LevelDebug
	}
	g.logger.Log(ctx, level, "live telemetry unavailable, synthesizing",
		"site_id", siteID,
		"variables", variables,
		"reason", out.reason,
		"error", out.err,
	)

	series, err := g.synth.SynthesizeSet(siteID, variables, r.From, r.To)
	if err != nil {
		return Readings{}, err
	}
	g.metrics.SeriesSamples.Add(float64(len(series)))
	return Readings{Readings: series, Synthetic: true}, nil
}

// fetch performs exactly one read under the configured timeout.
func (g *Gate) fetch(ctx context.Context, siteID string, variables []domain.Variable, r domain.TimeRange) fetchOutcome {
	if g.source == nil {
		return fetchOutcome{reason: reasonNoSource}
	}

	fetchCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	readings, err := g.source.FetchReadings(fetchCtx, siteID, variables, r)
	g.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || (err != nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded)):
		return fetchOutcome{reason: reasonTimeout, err: err}
	case err != nil:
		return fetchOutcome{reason: reasonError, err: err}
	case len(readings) == 0:
		return fetchOutcome{reason: reasonEmpty}
	default:
		return fetchOutcome{readings: readings}
	}
}
