// Command synthgen writes seeded synthetic telemetry, assessments, and
// forecasts for every configured site. It drives the same engine the service
// runs, with no reading source, so fixtures match the synthetic fallback path.
//
// Usage:
//
//	go run ./cmd/synthgen \
//	  -seed 42 \
//	  -date 2025-03-10 \
//	  -out data/mock
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/observability"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

// seriesFixture is one synthetic series for one site and variable.
type seriesFixture struct {
	SiteID   string                        `json:"site_id"`
	Variable domain.Variable               `json:"variable"`
	Unit     string                        `json:"unit"`
	Readings []domain.EnvironmentalReading `json:"readings"`
}

var fixtureVariables = []domain.Variable{
	domain.VarWaveHeight,
	domain.VarCurrentSpeed,
	domain.VarTemperature,
	domain.VarSalinity,
	domain.VarDepth,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	seed := flag.Uint64("seed", 42, "seed for the synthetic generator")
	dateStr := flag.String("date", "2025-03-10", "day to synthesize (YYYY-MM-DD)")
	forecastDays := flag.Int("forecast-days", 7, "days per forecast")
	outDir := flag.String("out", "", "output directory for fixtures")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	day, err := time.Parse(time.DateOnly, *dateStr)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}

	// Fixed clock for reproducible fecha_analisis timestamps.
	clock := clockwork.NewFakeClockAt(day.Add(12 * time.Hour))
	domain.SetClock(clock)
	defer domain.SetClock(nil)

	rnd := domain.SeededSource(*seed)
	profiles := domain.DefaultProfiles()
	scorer := domain.NewScorer(domain.DefaultCalibration())
	synth := domain.NewSynthesizer(profiles, rnd)
	projector := domain.NewProjector(scorer, rnd, domain.DefaultBaseSpread)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	gate := pipeline.NewGate(nil, synth, 0, logger, metrics)
	engine := pipeline.NewEngine(gate, scorer, projector, synth, logger, metrics,
		pipeline.WithClock(clock),
		pipeline.WithMaxForecastDays(*forecastDays),
	)

	dayRange := domain.DayRange(day)
	var series []seriesFixture //nolint:prealloc // sites × variables
	for _, site := range profiles.Sites() {
		for _, v := range fixtureVariables {
			readings, err := engine.SynthesizeSeries(site.SiteID, v, dayRange.From, dayRange.To)
			if err != nil {
				return fmt.Errorf("synthesize %s/%s: %w", site.SiteID, v, err)
			}
			series = append(series, seriesFixture{SiteID: site.SiteID, Variable: v, Unit: v.Unit(), Readings: readings})
		}
	}

	ctx := context.Background()
	assessments, err := engine.Summary(ctx, day)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	forecasts := make([]pipeline.Forecast, 0, len(profiles.Sites()))
	for _, site := range profiles.Sites() {
		fc, err := engine.ForecastRisk(ctx, site.SiteID, *forecastDays)
		if err != nil {
			return fmt.Errorf("forecast %s: %w", site.SiteID, err)
		}
		forecasts = append(forecasts, fc)
	}

	outputs := []struct {
		name string
		v    any
	}{
		{"series.json", series},
		{"assessments.json", assessments},
		{"forecasts.json", forecasts},
	}
	for _, o := range outputs {
		path := filepath.Join(*outDir, o.name)
		if err := writeJSON(path, o.v); err != nil {
			return fmt.Errorf("writing %s: %w", o.name, err)
		}
		log.Printf("wrote %s", path)
	}

	printStats(assessments, series)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(assessments []domain.RiskAssessment, series []seriesFixture) {
	samples := 0
	for _, s := range series {
		samples += len(s.Readings)
	}
	fmt.Printf("\n%d series, %d samples\n", len(series), samples)
	fmt.Println("\nRisk by site:")
	for _, a := range assessments {
		fmt.Printf("  %-3s %-7s index=%.1f  p=%.2f\n", a.SiteID, a.Level, a.Index, a.Probability)
	}
}
