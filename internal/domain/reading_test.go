package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariable(t *testing.T) {
	tests := map[string]Variable{
		"wave_height":  VarWaveHeight,
		"altura_olas":  VarWaveHeight,
		" Temperatura": VarTemperature,
		"corrientes":   VarCurrentSpeed,
		"vo":           VarCurrentV,
		"so":           VarSalinity,
	}
	for in, want := range tests {
		got, err := ParseVariable(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseVariable("oxygen")
	assert.True(t, errors.Is(err, ErrUnknownVariable))
}

func TestVariableUnit(t *testing.T) {
	assert.Equal(t, "m", VarWaveHeight.Unit())
	assert.Equal(t, "m/s", VarCurrentU.Unit())
	assert.Equal(t, "°C", VarTemperature.Unit())
	assert.Equal(t, "ppt", VarSalinity.Unit())
	assert.Empty(t, Variable("other").Unit())
}

func TestDayRange(t *testing.T) {
	r := DayRange(time.Date(2025, time.May, 5, 17, 45, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2025, time.May, 5, 23, 59, 59, 0, time.UTC), r.To)
	assert.True(t, r.Contains(r.From))
	assert.True(t, r.Contains(r.To))
	assert.False(t, r.Contains(r.To.Add(time.Second)))
}

func TestLatestIn(t *testing.T) {
	day := DayRange(time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC))
	readings := []EnvironmentalReading{
		{Variable: VarWaveHeight, Value: 1.0, Timestamp: day.From.Add(3 * time.Hour)},
		{Variable: VarWaveHeight, Value: 2.0, Timestamp: day.From.Add(18 * time.Hour)},
		{Variable: VarWaveHeight, Value: 9.0, Timestamp: day.To.Add(time.Hour)},
		{Variable: VarCurrentSpeed, Value: 0.5, Timestamp: day.From.Add(21 * time.Hour)},
	}

	got, ok := LatestIn(readings, VarWaveHeight, day)
	require.True(t, ok)
	assert.Equal(t, 2.0, got.Value)

	_, ok = LatestIn(readings, VarTemperature, day)
	assert.False(t, ok)
}

func TestVariable_StoredNames(t *testing.T) {
	assert.Equal(t, []string{"corrientes", "current", "current_speed", "currents"}, VarCurrentSpeed.StoredNames())
	assert.Equal(t, []string{"corriente_u", "uo"}, VarCurrentU.StoredNames())
	assert.Empty(t, Variable("oxygen").StoredNames())
}
