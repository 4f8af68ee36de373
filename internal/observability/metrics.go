package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "escape_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the risk engine.
type Metrics struct {
	Assessments *prometheus.CounterVec // labels: level={low,medium,high}, source={live,synthetic}
	Forecasts   *prometheus.CounterVec // labels: source={live,synthetic}
	RiskIndex   *prometheus.GaugeVec   // labels: site

	// Data availability.
	Fallbacks     *prometheus.CounterVec // labels: reason={error,empty,timeout,no_source}
	FetchDuration prometheus.Histogram
	SeriesSamples prometheus.Counter

	// Reading cache.
	ReadingCache *prometheus.CounterVec // labels: result={hit,miss}

	// Assessment stream and sweeps.
	PublishErrors prometheus.Counter
	SweepDuration prometheus.Histogram
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      help("Risk assessments computed, by level and data source."),
		}, []string{"level", "source"}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      help("Multi-day forecasts computed, by data source."),
		}, []string{"source"}),
		RiskIndex: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_index",
			Help:      help("Most recent risk index per site."),
		}, []string{"site"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthetic_fallbacks_total",
			Help:      help("Requests answered with synthetic telemetry, by reason."),
		}, []string{"reason"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("Duration of the persistence fetch, including failures."),
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SeriesSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthetic_samples_total",
			Help:      help("Synthetic readings generated."),
		}),
		ReadingCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reading_cache_total",
			Help:      help("Reading cache lookups by result."),
		}, []string{"result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      help("Assessments that could not be published to Kafka."),
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      help("Duration of a scheduled all-site assessment sweep."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.Assessments,
		m.Forecasts,
		m.RiskIndex,
		m.Fallbacks,
		m.FetchDuration,
		m.SeriesSamples,
		m.ReadingCache,
		m.PublishErrors,
		m.SweepDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
