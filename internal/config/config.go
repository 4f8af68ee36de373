package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Persistence collaborator. An empty DatabaseURL runs the engine on
	// synthetic telemetry only.
	DatabaseURL        string
	FetchTimeout       time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// Live-read cache.
	ReadingCacheSize int
	ReadingCacheTTL  time.Duration

	// Assessment stream.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaRiskTopic string

	// SweepInterval of zero disables the periodic all-site sweep.
	SweepInterval time.Duration

	ForecastMaxDays  int
	NormalizeWeights bool

	// SynthSeed pins the synthetic generator when HasSynthSeed is set.
	SynthSeed    uint64
	HasSynthSeed bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("READING_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	breakerTimeout, err := parsePositiveDuration("BREAKER_OPEN_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	sweepInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("SWEEP_INTERVAL", "15m"))
	if err != nil || sweepInterval < 0 {
		return nil, errors.New("invalid SWEEP_INTERVAL")
	}

	cacheSize, err := parsePositiveInt("READING_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	maxDays, err := parsePositiveInt("FORECAST_MAX_DAYS", 14)
	if err != nil {
		return nil, err
	}
	maxFailures, err := parsePositiveInt("BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return nil, err
	}

	normalize, err := strconv.ParseBool(sharedcfg.EnvOrDefault("RISK_NORMALIZE_WEIGHTS", "true"))
	if err != nil {
		return nil, errors.New("invalid RISK_NORMALIZE_WEIGHTS")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL:        os.Getenv("DATABASE_URL"),
		FetchTimeout:       fetchTimeout,
		BreakerMaxFailures: uint32(maxFailures), //nolint:gosec // bounded by parsePositiveInt
		BreakerOpenTimeout: breakerTimeout,

		ReadingCacheSize: cacheSize,
		ReadingCacheTTL:  cacheTTL,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRiskTopic: sharedcfg.EnvOrDefault("KAFKA_RISK_TOPIC", "escape-risk-assessments"),

		SweepInterval:    sweepInterval,
		ForecastMaxDays:  maxDays,
		NormalizeWeights: normalize,
	}

	if s := os.Getenv("SYNTH_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errors.New("invalid SYNTH_SEED")
		}
		cfg.SynthSeed = seed
		cfg.HasSynthSeed = true
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaRiskTopic == "" {
			return nil, errors.New("KAFKA_RISK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 1<<20 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
