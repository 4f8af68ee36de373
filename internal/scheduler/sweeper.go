// Package scheduler runs periodic all-site risk sweeps.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
)

// sweepTimeout bounds one sweep across every site.
const sweepTimeout = 30 * time.Second

// Summarizer assesses every configured site for a day.
type Summarizer interface {
	Summary(ctx context.Context, date time.Time) ([]domain.RiskAssessment, error)
}

// Sweeper assesses every site on a fixed interval, which keeps the
// risk_index gauge and the assessment stream current without traffic.
type Sweeper struct {
	scheduler *gocron.Scheduler
	engine    Summarizer
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Sweeper. An interval of zero disables it.
func New(engine Summarizer, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the sweep and starts the underlying scheduler. The first
// sweep runs immediately.
func (s *Sweeper) Start() error {
	if s.interval <= 0 {
		s.logger.Info("risk sweep disabled")
		return nil
	}

	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.Sweep); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("risk sweep scheduled", "interval", s.interval)
	return nil
}

// Sweep runs one assessment pass over all sites.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	all, err := s.engine.Summary(ctx, time.Time{})
	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("risk sweep failed", "error", err)
		return
	}

	var high []string
	for _, a := range all {
		if a.Level == domain.LevelHigh {
			high = append(high, a.SiteID)
		}
	}
	if len(high) > 0 {
		s.logger.Warn("high escape risk", "sites", high)
	}
	s.logger.Info("risk sweep completed", "sites", len(all), "duration", time.Since(start))
}

// Stop stops the scheduler and cancels any future sweeps.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
