package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaveContribution(t *testing.T) {
	n := NewNormalizer(DefaultCalibration())

	tests := []struct {
		name   string
		height float64
		want   float64
	}{
		{"calm", 0, 0},
		{"half small", 0.75, 1.5},
		{"small breakpoint", 1.5, 3},
		{"mid band", 2.25, 4.5},
		{"large breakpoint", 3.0, 6},
		{"one metre over", 4.0, 8},
		{"saturation", 5.0, 10},
		{"beyond saturation", 9.0, 10},
		{"negative coerced", -1, 0},
		{"NaN coerced", math.NaN(), 0},
		{"Inf coerced", math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, n.WaveContribution(tt.height), 1e-9)
		})
	}
}

func TestCurrentContribution(t *testing.T) {
	n := NewNormalizer(DefaultCalibration())

	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"still", 0, 0},
		{"half low", 0.15, 1.5},
		{"low breakpoint", 0.3, 3},
		{"mid band", 0.55, 5},
		{"danger breakpoint", 0.8, 7},
		{"over danger", 1.0, 8},
		{"saturation", 1.4, 10},
		{"beyond saturation", 3.0, 10},
		{"negative coerced", -0.2, 0},
		{"NaN coerced", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, n.CurrentContribution(tt.speed), 1e-9)
		})
	}
}

func TestContributionCurves_BoundedAndMonotonic(t *testing.T) {
	n := NewNormalizer(DefaultCalibration())

	prevWave, prevCurrent := -1.0, -1.0
	for i := 0; i <= 800; i++ {
		x := float64(i) / 100 // 0..8

		w := n.WaveContribution(x)
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 10.0)
		assert.GreaterOrEqual(t, w, prevWave, "wave curve decreased at %.2f m", x)
		prevWave = w

		c := n.CurrentContribution(x / 4)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 10.0)
		assert.GreaterOrEqual(t, c, prevCurrent, "current curve decreased at %.3f m/s", x/4)
		prevCurrent = c
	}
}

func TestContributionCurves_ContinuousAtBreakpoints(t *testing.T) {
	n := NewNormalizer(DefaultCalibration())
	const eps = 1e-9

	for _, h := range []float64{1.5, 3.0} {
		assert.InDelta(t, n.WaveContribution(h), n.WaveContribution(h-eps), 1e-6, "jump at %.1f m", h)
	}
	for _, v := range []float64{0.3, 0.8} {
		assert.InDelta(t, n.CurrentContribution(v), n.CurrentContribution(v-eps), 1e-6, "jump at %.1f m/s", v)
	}
}

func TestCurrentMagnitude(t *testing.T) {
	assert.InDelta(t, 0.5, CurrentMagnitude(0.3, 0.4), 1e-12)
	assert.InDelta(t, 0.5, CurrentMagnitude(-0.3, -0.4), 1e-12)
	assert.Equal(t, 0.0, CurrentMagnitude(math.NaN(), 0))
}
