package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

var gateDay = domain.DayRange(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))

func TestGate_LiveReadingsPassThrough(t *testing.T) {
	live := []domain.EnvironmentalReading{
		reading(domain.VarWaveHeight, 1.2, gateDay.From.Add(3*time.Hour)),
		reading(domain.VarCurrentSpeed, 0.4, gateDay.From.Add(3*time.Hour)),
	}
	src := &mockSource{readings: live}
	metrics := newTestMetrics()

	res, err := newTestGate(src, metrics).GetReadings(context.Background(), "1",
		[]domain.Variable{domain.VarWaveHeight, domain.VarCurrentSpeed}, gateDay)
	require.NoError(t, err)

	assert.False(t, res.Synthetic)
	if diff := cmp.Diff(live, res.Readings); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(1), src.calls.Load())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Fallbacks.WithLabelValues("error")))
}

func TestGate_FallsBackToSynthesis(t *testing.T) {
	tests := []struct {
		name   string
		src    pipeline.ReadingSource
		reason string
	}{
		{"source error", &mockSource{err: pipeline.ErrDataUnavailable}, "error"},
		{"connection error", &mockSource{err: errors.New("dial tcp: connection refused")}, "error"},
		{"empty result", &mockSource{}, "empty"},
		{"timeout", &mockSource{delay: time.Second}, "timeout"},
		{"no source", nil, "no_source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newTestMetrics()
			vars := []domain.Variable{domain.VarWaveHeight, domain.VarCurrentSpeed, domain.VarTemperature}

			res, err := newTestGate(tt.src, metrics).GetReadings(context.Background(), "1", vars, gateDay)
			require.NoError(t, err)

			assert.True(t, res.Synthetic)
			require.NotEmpty(t, res.Readings)
			seen := map[domain.Variable]int{}
			for _, r := range res.Readings {
				seen[r.Variable]++
				assert.Equal(t, domain.QualitySynthetic, r.Quality)
				assert.True(t, gateDay.Contains(r.Timestamp))
			}
			assert.Equal(t, 8, seen[domain.VarWaveHeight])
			assert.Equal(t, 8, seen[domain.VarCurrentSpeed])
			assert.Equal(t, 8, seen[domain.VarTemperature])
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Fallbacks.WithLabelValues(tt.reason)))
		})
	}
}

func TestGate_SingleAttemptOnFailure(t *testing.T) {
	src := &mockSource{err: errors.New("boom")}

	_, err := newTestGate(src, newTestMetrics()).GetReadings(context.Background(), "1",
		[]domain.Variable{domain.VarWaveHeight}, gateDay)
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.calls.Load())
}

func TestGate_VectorCurrentHasDirection(t *testing.T) {
	res, err := newTestGate(nil, newTestMetrics()).GetReadings(context.Background(), "2",
		[]domain.Variable{domain.VarCurrentSpeed}, gateDay)
	require.NoError(t, err)

	for _, r := range res.Readings {
		require.NotNil(t, r.Direction)
		assert.GreaterOrEqual(t, *r.Direction, 0.0)
		assert.Less(t, *r.Direction, 360.0)
	}
}

func TestGate_DerivesCurrentComponents(t *testing.T) {
	metrics := newTestMetrics()
	res, err := newTestGate(&mockSource{err: errors.New("boom")}, metrics).GetReadings(context.Background(), "1",
		[]domain.Variable{domain.VarCurrentU, domain.VarCurrentV}, gateDay)
	require.NoError(t, err)

	assert.True(t, res.Synthetic)
	require.Len(t, res.Readings, 16)
	seen := map[domain.Variable]int{}
	for _, r := range res.Readings {
		seen[r.Variable]++
		assert.Equal(t, domain.QualitySynthetic, r.Quality)
	}
	assert.Equal(t, 8, seen[domain.VarCurrentU])
	assert.Equal(t, 8, seen[domain.VarCurrentV])
	assert.Equal(t, 16.0, testutil.ToFloat64(metrics.SeriesSamples))
}

func TestGate_OversizedRangeOnFallback(t *testing.T) {
	src := &mockSource{err: errors.New("boom")}
	long := domain.TimeRange{From: gateDay.From, To: gateDay.From.AddDate(10, 0, 0)}

	res, err := newTestGate(src, newTestMetrics()).GetReadings(context.Background(), "1",
		[]domain.Variable{domain.VarTemperature}, long)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, res.Readings)
	assert.False(t, res.Synthetic)
}

func TestGate_NothingSynthesizable(t *testing.T) {
	ps, err := domain.NewProfileSet("x", domain.SiteProfile{SiteID: "x", Variables: map[domain.Variable]domain.VariableProfile{
		domain.VarTemperature: {Baseline: 20, Band: 1, Cadence: domain.DefaultCadence},
	}})
	require.NoError(t, err)
	gate := pipeline.NewGate(nil, domain.NewSynthesizer(ps, nil), time.Second, slog.Default(), newTestMetrics())

	_, err = gate.GetReadings(context.Background(), "x",
		[]domain.Variable{domain.VarWaveHeight, domain.VarCurrentU}, gateDay)
	require.ErrorIs(t, err, domain.ErrUnknownVariable)
}

func TestGate_InvertedRange(t *testing.T) {
	src := &mockSource{}
	_, err := newTestGate(src, newTestMetrics()).GetReadings(context.Background(), "1",
		[]domain.Variable{domain.VarWaveHeight},
		domain.TimeRange{From: gateDay.To, To: gateDay.From})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, src.calls.Load())
}
