package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/netpen-escape-risk/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/netpen-escape-risk/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/netpen-escape-risk/internal/adapter/kafka"
	"github.com/couchcryptid/netpen-escape-risk/internal/adapter/postgres"
	"github.com/couchcryptid/netpen-escape-risk/internal/config"
	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
	"github.com/couchcryptid/netpen-escape-risk/internal/scheduler"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scoring core.
	cal := domain.DefaultCalibration()
	cal.Normalize = cfg.NormalizeWeights
	scorer := domain.NewScorer(cal)

	rnd := domain.EntropySource()
	if cfg.HasSynthSeed {
		rnd = domain.SeededSource(cfg.SynthSeed)
		logger.Info("synthetic telemetry seeded", "seed", cfg.SynthSeed)
	}
	synth := domain.NewSynthesizer(domain.DefaultProfiles(), rnd)
	projector := domain.NewProjector(scorer, rnd, domain.DefaultBaseSpread)

	// Persistence collaborator (optional; synthetic-only without it).
	var (
		source pipeline.ReadingSource
		db     *postgres.Source
	)
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("invalid DATABASE_URL", "error", err)
			os.Exit(1)
		}
		pingCtx, cancelPing := context.WithTimeout(ctx, cfg.FetchTimeout)
		if err := db.Ping(pingCtx); err != nil {
			// Requests still try the database; the gate falls back per request.
			logger.Warn("postgres not reachable at startup", "error", err)
		}
		cancelPing()

		breaker := postgres.NewBreakerSource(db, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout, logger)
		source = cache.NewCachedSource(breaker, cfg.ReadingCacheSize, cfg.ReadingCacheTTL, clock, metrics)
		logger.Info("postgres reading source enabled",
			"cache_size", cfg.ReadingCacheSize, "cache_ttl", cfg.ReadingCacheTTL, "fetch_timeout", cfg.FetchTimeout)
	} else {
		logger.Info("no DATABASE_URL set, serving synthetic telemetry")
	}

	opts := []pipeline.Option{
		pipeline.WithClock(clock),
		pipeline.WithMaxForecastDays(cfg.ForecastMaxDays),
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("assessment stream enabled", "topic", cfg.KafkaRiskTopic, "brokers", cfg.KafkaBrokers)
	}

	gate := pipeline.NewGate(source, synth, cfg.FetchTimeout, logger, metrics)
	engine := pipeline.NewEngine(gate, scorer, projector, synth, logger, metrics, opts...)

	sweeper := scheduler.New(engine, cfg.SweepInterval, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start periodic sweep.
	if err := sweeper.Start(); err != nil {
		logger.Error("sweep scheduler error", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sweeper.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("postgres close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
