package domain

import (
	"encoding/json"
	"math"
	"time"
)

// DefaultBaseSpread is the relative jitter applied to forecast seeds. Kept
// below 0.158 so the storm shape survives any draw: day 5 (pulse 2.2) always
// exceeds day 6 (pulse 1.9).
const DefaultBaseSpread = 0.15

// ForecastPoint is one projected day. PrevDayWave of day i equals WaveHeight
// of day i-1; day 0 uses the seed wave.
type ForecastPoint struct {
	Date         time.Time
	WaveHeight   float64
	PrevDayWave  float64
	CurrentSpeed float64
	Index        float64
	Level        RiskLevel
	Probability  float64
}

// MarshalJSON renders the point with the field names the dashboard consumes.
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date        string    `json:"fecha"`
		WaveHeight  float64   `json:"wave_height"`
		PrevDayWave float64   `json:"prev_day_wave"`
		Current     float64   `json:"current"`
		Index       float64   `json:"indice"`
		Level       RiskLevel `json:"nivel"`
		Probability float64   `json:"probabilidad"`
	}{
		Date:        formatDate(p.Date),
		WaveHeight:  roundTo(p.WaveHeight, 2),
		PrevDayWave: roundTo(p.PrevDayWave, 2),
		Current:     roundTo(p.CurrentSpeed, 2),
		Index:       roundTo(p.Index, 1),
		Level:       p.Level,
		Probability: roundTo(p.Probability, 2),
	})
}

// StormPulse returns the wave multiplier for forecast day i (0-based):
// 1.0 for days 0–2, rising 0.4 per day to 2.2 on day 5, then decaying 0.3
// per day and never dropping below 1.0.
func StormPulse(day int) float64 {
	switch {
	case day < 3:
		return 1.0
	case day <= 5:
		return 1.0 + 0.4*float64(day-2)
	default:
		return math.Max(1.0, 2.2-0.3*float64(day-5))
	}
}

// Projector builds multi-day forecasts by shaping a seed reading with the storm pulse.
type Projector struct {
	scorer *Scorer
	rand   RandSource
	spread float64
}

// NewProjector creates a Projector. A nil source uses EntropySource.
func NewProjector(scorer *Scorer, src RandSource, spread float64) *Projector {
	if src == nil {
		src = EntropySource()
	}
	if spread < 0 || math.IsNaN(spread) {
		spread = 0
	}
	return &Projector{scorer: scorer, rand: src, spread: spread}
}

// Project returns one point per day starting at start. Magnitudes are
// randomized per call; the rise-then-fall shape around days 3–7 is not.
func (p *Projector) Project(startWave, startCurrent float64, days int, start time.Time) []ForecastPoint {
	if days <= 0 {
		return []ForecastPoint{}
	}

	startWave = sanitize(startWave)
	startCurrent = sanitize(startCurrent)
	rng := p.rand()
	randomized := func(x float64) float64 {
		return x * (1 + rng.Float64()*p.spread)
	}

	day0 := startOfDay(start)
	points := make([]ForecastPoint, 0, days)
	prev := startWave
	for i := 0; i < days; i++ {
		pulse := StormPulse(i)
		wave := randomized(startWave) * pulse
		current := randomized(startCurrent) * (0.8 + 0.4*pulse)

		a := p.scorer.Assess(wave, prev, current)
		points = append(points, ForecastPoint{
			Date:         day0.AddDate(0, 0, i),
			WaveHeight:   wave,
			PrevDayWave:  prev,
			CurrentSpeed: current,
			Index:        a.Index,
			Level:        a.Level,
			Probability:  a.Probability,
		})
		prev = wave
	}
	return points
}
