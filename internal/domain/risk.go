package domain

import (
	"encoding/json"
	"math"
	"time"
)

// RiskLevel is the discrete classification of a risk index.
type RiskLevel string

const (
	LevelLow    RiskLevel = "low"
	LevelMedium RiskLevel = "medium"
	LevelHigh   RiskLevel = "high"
)

// Factor names, in the order they appear in an assessment.
const (
	FactorPreviousWave = "Altura de olas (día anterior)"
	FactorCurrentWave  = "Altura de olas actual"
	FactorCurrentSpeed = "Velocidad de corriente"
)

// RiskFactor explains one input's share of the index.
type RiskFactor struct {
	Name         string
	RawValue     float64
	Unit         string
	Contribution float64 // 0–10, before weighting
	Threshold    float64
}

// MarshalJSON renders the factor with the field names the dashboard consumes.
func (f RiskFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name         string  `json:"nombre"`
		Value        float64 `json:"valor"`
		Unit         string  `json:"unidad"`
		Contribution float64 `json:"contribucion"`
		Threshold    float64 `json:"umbral"`
	}{
		Name:         f.Name,
		Value:        roundTo(f.RawValue, 2),
		Unit:         f.Unit,
		Contribution: roundTo(f.Contribution, 1),
		Threshold:    f.Threshold,
	})
}

// RiskAssessment is the scored result for one site and day. It is computed
// per request and never stored.
type RiskAssessment struct {
	SiteID      string
	Date        time.Time
	Index       float64
	Level       RiskLevel
	Probability float64
	Percentage  int
	Factors     []RiskFactor
	AssessedAt  time.Time
	Synthetic   bool
}

// MarshalJSON rounds index and probability for presentation; the struct keeps full precision.
func (a RiskAssessment) MarshalJSON() ([]byte, error) {
	factors := a.Factors
	if factors == nil {
		factors = []RiskFactor{}
	}
	return json.Marshal(struct {
		SiteID      string       `json:"site_id,omitempty"`
		Date        string       `json:"fecha,omitempty"`
		Index       float64      `json:"index"`
		Level       RiskLevel    `json:"nivel"`
		Probability float64      `json:"probabilidad"`
		Percentage  int          `json:"porcentaje"`
		Factors     []RiskFactor `json:"factores"`
		AssessedAt  time.Time    `json:"fecha_analisis"`
		Synthetic   bool         `json:"synthetic"`
	}{
		SiteID:      a.SiteID,
		Date:        formatDate(a.Date),
		Index:       roundTo(a.Index, 1),
		Level:       a.Level,
		Probability: roundTo(a.Probability, 2),
		Percentage:  a.Percentage,
		Factors:     factors,
		AssessedAt:  a.AssessedAt,
		Synthetic:   a.Synthetic,
	})
}

// Scorer combines factor contributions into a risk index.
type Scorer struct {
	cal  Calibration
	norm Normalizer
}

// NewScorer creates a Scorer for the given calibration.
func NewScorer(cal Calibration) *Scorer {
	return &Scorer{cal: cal, norm: NewNormalizer(cal)}
}

// Calibration returns the scorer's calibration.
func (s *Scorer) Calibration() Calibration { return s.cal }

// Assess scores one (current wave, previous-day wave, current speed) triple.
// Missing or non-finite inputs count as 0, the lowest-risk reading; callers
// that need to reject them run ValidateInputs first.
func (s *Scorer) Assess(currentWave, previousDayWave, currentSpeed float64) RiskAssessment {
	currentWave = sanitize(currentWave)
	previousDayWave = sanitize(previousDayWave)
	currentSpeed = sanitize(currentSpeed)

	cNow := s.norm.WaveContribution(currentWave)
	cPrev := s.norm.WaveContribution(previousDayWave)
	cCurrent := s.norm.CurrentContribution(currentSpeed)

	index := s.combine(cNow, cPrev, cCurrent)

	return RiskAssessment{
		Index:       index,
		Level:       s.Classify(index),
		Probability: index / maxIndex,
		Percentage:  Percentage(index),
		Factors: []RiskFactor{
			{Name: FactorPreviousWave, RawValue: previousDayWave, Unit: "m", Contribution: cPrev, Threshold: s.cal.WaveLarge},
			{Name: FactorCurrentWave, RawValue: currentWave, Unit: "m", Contribution: cNow, Threshold: s.cal.WaveLarge},
			{Name: FactorCurrentSpeed, RawValue: currentSpeed, Unit: "m/s", Contribution: cCurrent, Threshold: s.cal.CurrentDanger},
		},
		AssessedAt: clock.Now().UTC(),
	}
}

func (s *Scorer) combine(cNow, cPrev, cCurrent float64) float64 {
	sum := s.cal.WeightCurrentWave*cNow +
		s.cal.WeightPreviousWave*cPrev +
		s.cal.WeightCurrentSpeed*cCurrent
	if s.cal.Normalize {
		if ws := s.cal.weightSum(); ws > 0 {
			sum /= ws
		}
	}
	return ClampIndex(sum)
}

// Classify maps an index onto a level using the scorer's thresholds.
func (s *Scorer) Classify(index float64) RiskLevel {
	return classify(index, s.cal.MediumThreshold, s.cal.HighThreshold)
}

// ClassifyLevel maps an index onto a level with the default thresholds.
// Boundaries belong to the upper band: 3.5 is medium, 7.0 is high.
func ClassifyLevel(index float64) RiskLevel {
	cal := DefaultCalibration()
	return classify(index, cal.MediumThreshold, cal.HighThreshold)
}

func classify(index, medium, high float64) RiskLevel {
	index = ClampIndex(index)
	switch {
	case index < medium:
		return LevelLow
	case index < high:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// ClampIndex bounds an index to [0,10]; NaN becomes 0.
func ClampIndex(index float64) float64 {
	if math.IsNaN(index) {
		return 0
	}
	return math.Max(0, math.Min(maxIndex, index))
}

// Percentage converts an index to a whole percentage capped at 100.
func Percentage(index float64) int {
	p := int(math.Round(ClampIndex(index) * 10))
	if p > 100 {
		return 100
	}
	return p
}

func roundTo(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
