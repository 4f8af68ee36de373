package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssess_AllZero(t *testing.T) {
	a := NewScorer(DefaultCalibration()).Assess(0, 0, 0)

	assert.Equal(t, 0.0, a.Index)
	assert.Equal(t, LevelLow, a.Level)
	assert.Equal(t, 0.0, a.Probability)
	assert.Equal(t, 0, a.Percentage)
}

func TestAssess_Saturated(t *testing.T) {
	s := NewScorer(DefaultCalibration())

	for _, in := range [][3]float64{{5, 5, 1.4}, {8, 12, 3}} {
		a := s.Assess(in[0], in[1], in[2])
		assert.InDelta(t, 10.0, a.Index, 1e-9)
		assert.Equal(t, 100, a.Percentage)
		assert.Equal(t, LevelHigh, a.Level)
		assert.InDelta(t, 1.0, a.Probability, 1e-9)
	}
}

func TestAssess_ModerateSwell(t *testing.T) {
	// Contributions: current wave 4.0, previous wave 5.0, current 5.4.
	t.Run("normalized by weight sum", func(t *testing.T) {
		a := NewScorer(DefaultCalibration()).Assess(2.0, 2.5, 0.6)

		assert.InDelta(t, 5.78/1.2, a.Index, 1e-9)
		assert.Equal(t, LevelMedium, a.Level)
		assert.Equal(t, 48, a.Percentage)
	})

	t.Run("raw weighted sum", func(t *testing.T) {
		cal := DefaultCalibration()
		cal.Normalize = false
		a := NewScorer(cal).Assess(2.0, 2.5, 0.6)

		assert.InDelta(t, 5.8, a.Index, 0.1)
		assert.Equal(t, LevelMedium, a.Level)
		assert.Equal(t, 58, a.Percentage)
	})
}

func TestAssess_PreviousDayDominates(t *testing.T) {
	s := NewScorer(DefaultCalibration())

	stormYesterday := s.Assess(1.0, 4.0, 0.2)
	stormToday := s.Assess(4.0, 1.0, 0.2)

	assert.Greater(t, stormYesterday.Index, stormToday.Index)
}

func TestAssess_Factors(t *testing.T) {
	a := NewScorer(DefaultCalibration()).Assess(2.0, 2.5, 0.6)

	require.Len(t, a.Factors, 3)

	assert.Equal(t, FactorPreviousWave, a.Factors[0].Name)
	assert.Equal(t, 2.5, a.Factors[0].RawValue)
	assert.Equal(t, "m", a.Factors[0].Unit)
	assert.InDelta(t, 5.0, a.Factors[0].Contribution, 1e-9)
	assert.Equal(t, 3.0, a.Factors[0].Threshold)

	assert.Equal(t, FactorCurrentWave, a.Factors[1].Name)
	assert.InDelta(t, 4.0, a.Factors[1].Contribution, 1e-9)

	assert.Equal(t, FactorCurrentSpeed, a.Factors[2].Name)
	assert.Equal(t, "m/s", a.Factors[2].Unit)
	assert.InDelta(t, 5.4, a.Factors[2].Contribution, 1e-9)
	assert.Equal(t, 0.8, a.Factors[2].Threshold)
}

func TestAssess_MissingInputsCountAsZero(t *testing.T) {
	a := NewScorer(DefaultCalibration()).Assess(math.NaN(), -3, math.Inf(1))

	assert.Equal(t, 0.0, a.Index)
	assert.Equal(t, LevelLow, a.Level)
	for _, f := range a.Factors {
		assert.Equal(t, 0.0, f.RawValue)
	}
}

func TestAssess_ProbabilityInvariant(t *testing.T) {
	s := NewScorer(DefaultCalibration())
	for h := 0.0; h <= 6; h += 0.37 {
		a := s.Assess(h, h*0.8, h/5)
		assert.Equal(t, a.Index/10, a.Probability)
		assert.GreaterOrEqual(t, a.Index, 0.0)
		assert.LessOrEqual(t, a.Index, 10.0)
		assert.Equal(t, ClassifyLevel(a.Index), a.Level)
	}
}

func TestAssess_StampsClock(t *testing.T) {
	now := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	a := NewScorer(DefaultCalibration()).Assess(1, 1, 0.1)
	assert.Equal(t, now, a.AssessedAt)
}

func TestClassifyLevel(t *testing.T) {
	tests := []struct {
		index float64
		want  RiskLevel
	}{
		{0, LevelLow},
		{3.49, LevelLow},
		{3.5, LevelMedium},
		{6.99, LevelMedium},
		{7.0, LevelHigh},
		{10, LevelHigh},
		{42, LevelHigh},
		{-1, LevelLow},
		{math.NaN(), LevelLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLevel(tt.index), "index %v", tt.index)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0))
	assert.Equal(t, 35, Percentage(3.5))
	assert.Equal(t, 73, Percentage(7.26))
	assert.Equal(t, 100, Percentage(10))
	assert.Equal(t, 100, Percentage(11))
}

func TestValidateInputs(t *testing.T) {
	require.NoError(t, ValidateInputs(0, 1.2, 0.4))

	err := ValidateInputs(-1, math.NaN(), 0.2)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)
	assert.Contains(t, err.Error(), "current wave height cannot be negative")
	assert.Contains(t, err.Error(), "previous-day wave height must be a finite number")
}

func TestRiskAssessment_MarshalJSON(t *testing.T) {
	a := NewScorer(DefaultCalibration()).Assess(2.0, 2.5, 0.6)
	a.SiteID = "2"
	a.Date = time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	a.Synthetic = true

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, 4.8, body["index"])
	assert.Equal(t, "medium", body["nivel"])
	assert.Equal(t, 0.48, body["probabilidad"])
	assert.Equal(t, 48.0, body["porcentaje"])
	assert.Equal(t, true, body["synthetic"])
	assert.Equal(t, "2025-01-10", body["fecha"])

	factors, ok := body["factores"].([]any)
	require.True(t, ok)
	require.Len(t, factors, 3)
	first := factors[0].(map[string]any)
	assert.Equal(t, FactorPreviousWave, first["nombre"])
	assert.Equal(t, 2.5, first["valor"])
	assert.Equal(t, "m", first["unidad"])
	assert.Equal(t, 5.0, first["contribucion"])
	assert.Equal(t, 3.0, first["umbral"])
}
