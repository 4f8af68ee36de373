package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
)

// summaryConcurrency bounds the per-site fan-out of Summary.
const summaryConcurrency = 4

// defaultPublishTimeout bounds how long an assessment waits on the publisher.
const defaultPublishTimeout = 2 * time.Second

// assessmentVariables are fetched for every assessment and forecast seed.
var assessmentVariables = []domain.Variable{
	domain.VarWaveHeight,
	domain.VarCurrentSpeed,
	domain.VarCurrentU,
	domain.VarCurrentV,
}

// AssessmentPublisher receives every computed assessment.
type AssessmentPublisher interface {
	PublishAssessment(ctx context.Context, a domain.RiskAssessment) error
}

// Forecast is a multi-day projection for one site.
type Forecast struct {
	SiteID    string                 `json:"site_id"`
	Synthetic bool                   `json:"synthetic"`
	Points    []domain.ForecastPoint `json:"forecast"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher streams assessments to p. Publish failures are logged only.
func WithPublisher(p AssessmentPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMaxForecastDays caps ForecastRisk requests.
func WithMaxForecastDays(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxForecastDays = n
		}
	}
}

// WithPublishTimeout bounds each publish call. Non-positive values keep the default.
func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.publishTimeout = d
		}
	}
}

// Engine answers risk, forecast, and series requests. It holds no
// per-request state; the collaborators it shares are read-only.
type Engine struct {
	gate      *Gate
	scorer    *domain.Scorer
	projector *domain.Projector
	synth     *domain.Synthesizer
	publisher AssessmentPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	maxForecastDays int
	publishTimeout  time.Duration
	ready           atomic.Bool
}

// NewEngine wires the scoring core to the availability gate.
func NewEngine(gate *Gate, scorer *domain.Scorer, projector *domain.Projector, synth *domain.Synthesizer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		gate:            gate,
		scorer:          scorer,
		projector:       projector,
		synth:           synth,
		clock:           clockwork.NewRealClock(),
		logger:          logger,
		metrics:         metrics,
		maxForecastDays: 14,
		publishTimeout:  defaultPublishTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CheckReadiness returns nil once the engine has answered at least one assessment.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no assessment computed yet")
	}
	return nil
}

// Sites lists the configured site profiles ordered by ID.
func (e *Engine) Sites() []domain.SiteProfile {
	return e.synth.Profiles().Sites()
}

// Assess scores caller-supplied readings directly. Inputs are validated first.
func (e *Engine) Assess(currentWave, previousDayWave, currentSpeed float64) (domain.RiskAssessment, error) {
	if err := domain.ValidateInputs(currentWave, previousDayWave, currentSpeed); err != nil {
		return domain.RiskAssessment{}, err
	}
	a := e.scorer.Assess(currentWave, previousDayWave, currentSpeed)
	e.metrics.Assessments.WithLabelValues(string(a.Level), "manual").Inc()
	return a, nil
}

// AssessRisk scores a site for the given day. A zero date means today.
// The previous day's wave height comes from the same fetch. Sites without a
// profile are still assessed from live rows, or synthesized from the
// default profile.
func (e *Engine) AssessRisk(ctx context.Context, siteID string, date time.Time) (domain.RiskAssessment, error) {
	if date.IsZero() {
		date = e.clock.Now()
	}

	day := domain.DayRange(date)
	prevDay := domain.DayRange(day.From.AddDate(0, 0, -1))

	res, err := e.gate.GetReadings(ctx, siteID, assessmentVariables, domain.TimeRange{From: prevDay.From, To: day.To})
	if err != nil {
		return domain.RiskAssessment{}, err
	}

	waveNow := latestValue(res.Readings, domain.VarWaveHeight, day)
	wavePrev := latestValue(res.Readings, domain.VarWaveHeight, prevDay)
	current, _ := latestCurrent(res.Readings, day)
	if err := domain.ValidateInputs(waveNow, wavePrev, current); err != nil {
		return domain.RiskAssessment{}, err
	}

	a := e.scorer.Assess(waveNow, wavePrev, current)
	a.SiteID = siteID
	a.Date = day.From
	a.Synthetic = res.Synthetic

	e.metrics.Assessments.WithLabelValues(string(a.Level), source(res.Synthetic)).Inc()
	e.metrics.RiskIndex.WithLabelValues(siteID).Set(a.Index)
	e.publish(ctx, a)
	e.ready.Store(true)
	return a, nil
}

// ForecastRisk projects days of risk starting today, seeded from today's readings.
func (e *Engine) ForecastRisk(ctx context.Context, siteID string, days int) (Forecast, error) {
	if days < 1 || days > e.maxForecastDays {
		return Forecast{}, domain.NewValidationError("days must be between 1 and %d, got %d", e.maxForecastDays, days)
	}

	now := e.clock.Now()
	today := domain.DayRange(now)
	res, err := e.gate.GetReadings(ctx, siteID, assessmentVariables, today)
	if err != nil {
		return Forecast{}, err
	}

	profile := e.synth.Profiles().Get(siteID)
	wave, ok := domain.LatestIn(res.Readings, domain.VarWaveHeight, today)
	startWave := wave.Value
	if !ok {
		startWave = baseline(profile, domain.VarWaveHeight)
	}
	startCurrent, ok := latestCurrent(res.Readings, today)
	if !ok {
		startCurrent = baseline(profile, domain.VarCurrentSpeed)
	}

	e.metrics.Forecasts.WithLabelValues(source(res.Synthetic)).Inc()
	return Forecast{
		SiteID:    siteID,
		Synthetic: res.Synthetic,
		Points:    e.projector.Project(startWave, startCurrent, days, now),
	}, nil
}

// SynthesizeSeries generates a synthetic series for one variable. Current
// speed samples carry a direction; u/v components are derived from it.
// Unknown sites use the default profile.
func (e *Engine) SynthesizeSeries(siteID string, variable domain.Variable, from, to time.Time) ([]domain.EnvironmentalReading, error) {
	series, err := e.synth.SynthesizeSet(siteID, []domain.Variable{variable}, from, to)
	if err != nil {
		return nil, err
	}
	e.metrics.SeriesSamples.Add(float64(len(series)))
	return series, nil
}

// Summary assesses every configured site for the given day, highest index
// first. A site whose readings fail validation is logged and left out.
func (e *Engine) Summary(ctx context.Context, date time.Time) ([]domain.RiskAssessment, error) {
	sites := e.Sites()
	out := make([]domain.RiskAssessment, 0, len(sites))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)
	for _, site := range sites {
		g.Go(func() error {
			a, err := e.AssessRisk(gCtx, site.SiteID, date)
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				e.logger.Warn("site left out of summary", "site_id", site.SiteID, "error", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("assess site %s: %w", site.SiteID, err)
			}
			mu.Lock()
			out = append(out, a)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index > out[j].Index
		}
		return out[i].SiteID < out[j].SiteID
	})
	return out, nil
}

func (e *Engine) publish(ctx context.Context, a domain.RiskAssessment) {
	if e.publisher == nil {
		return
	}
	// The request may be cancelled once it has its answer; delivery should not be.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	defer cancel()
	if err := e.publisher.PublishAssessment(pubCtx, a); err != nil {
		e.metrics.PublishErrors.Inc()
		e.logger.Error("publish assessment failed", "site_id", a.SiteID, "error", err)
	}
}

// latestValue returns the latest reading of v in r, or 0 when there is none.
func latestValue(readings []domain.EnvironmentalReading, v domain.Variable, r domain.TimeRange) float64 {
	if rd, ok := domain.LatestIn(readings, v, r); ok {
		return rd.Value
	}
	return 0
}

// latestCurrent prefers a measured speed and otherwise derives one from the
// latest u/v components. ok is false when neither is present.
func latestCurrent(readings []domain.EnvironmentalReading, r domain.TimeRange) (speed float64, ok bool) {
	if rd, found := domain.LatestIn(readings, domain.VarCurrentSpeed, r); found {
		return rd.Value, true
	}
	u, uok := domain.LatestIn(readings, domain.VarCurrentU, r)
	v, vok := domain.LatestIn(readings, domain.VarCurrentV, r)
	if !uok && !vok {
		return 0, false
	}
	return domain.CurrentMagnitude(u.Value, v.Value), true
}

func baseline(p domain.SiteProfile, v domain.Variable) float64 {
	vp, ok := p.Variable(v)
	if !ok {
		return 0
	}
	return vp.Baseline
}

func source(synthetic bool) string {
	if synthetic {
		return "synthetic"
	}
	return "live"
}
