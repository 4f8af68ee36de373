package domain

import "math"

const (
	maxContribution = 10.0
	maxIndex        = 10.0
)

// Normalizer maps raw physical quantities onto 0–10 risk contributions.
type Normalizer struct {
	cal Calibration
}

// NewNormalizer creates a Normalizer for the given calibration.
func NewNormalizer(cal Calibration) Normalizer {
	return Normalizer{cal: cal}
}

// WaveContribution maps significant wave height (m) onto [0,10]:
//   - below WaveSmall: 0–3 linearly
//   - below WaveLarge: 3–6 linearly
//   - above: 6 plus 2 per metre, capped at 10
func (n Normalizer) WaveContribution(height float64) float64 {
	h := sanitize(height)
	small, large := n.cal.WaveSmall, n.cal.WaveLarge

	switch {
	case h < small:
		return (h / small) * 3
	case h < large:
		return 3 + ((h-small)/(large-small))*3
	default:
		return clampContribution(6 + math.Min(4, (h-large)*2))
	}
}

// CurrentContribution maps current speed (m/s) onto [0,10]:
//   - below CurrentLow: 0–3 linearly
//   - below CurrentDanger: 3–7 linearly
//   - above: 7 plus 5 per m/s, capped at 10
func (n Normalizer) CurrentContribution(speed float64) float64 {
	v := sanitize(speed)
	low, danger := n.cal.CurrentLow, n.cal.CurrentDanger

	switch {
	case v < low:
		return (v / low) * 3
	case v < danger:
		return 3 + ((v-low)/(danger-low))*4
	default:
		return clampContribution(7 + math.Min(3, (v-danger)*5))
	}
}

// CurrentMagnitude returns the speed of a current from its eastward (u) and
// northward (v) components.
func CurrentMagnitude(u, v float64) float64 {
	return math.Hypot(sanitizeSigned(u), sanitizeSigned(v))
}

// sanitize coerces NaN, infinities and negatives to 0 so the curves cannot diverge.
func sanitize(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return 0
	}
	return x
}

func sanitizeSigned(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func clampContribution(x float64) float64 {
	return math.Max(0, math.Min(maxContribution, x))
}
