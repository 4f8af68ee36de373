package domain

// Calibration holds the thresholds and weights of the risk model. Build it
// once at startup and pass it by value; nothing mutates it afterwards.
type Calibration struct {
	WaveSmall float64 // m, end of the 0–3 band
	WaveLarge float64 // m, start of the 6–10 band

	CurrentLow    float64 // m/s, end of the 0–3 band
	CurrentDanger float64 // m/s, start of the 7–10 band

	WeightCurrentWave  float64
	WeightPreviousWave float64
	WeightCurrentSpeed float64

	// Normalize divides the weighted sum by the weight sum. When false the
	// raw weighted sum is used and only the clamp bounds the index.
	Normalize bool

	MediumThreshold float64
	HighThreshold   float64
}

// DefaultCalibration returns the production model.
func DefaultCalibration() Calibration {
	return Calibration{
		WaveSmall:          1.5,
		WaveLarge:          3.0,
		CurrentLow:         0.3,
		CurrentDanger:      0.8,
		WeightCurrentWave:  0.3,
		WeightPreviousWave: 0.7,
		WeightCurrentSpeed: 0.2,
		Normalize:          true,
		MediumThreshold:    3.5,
		HighThreshold:      7.0,
	}
}

func (c Calibration) weightSum() float64 {
	return c.WeightCurrentWave + c.WeightPreviousWave + c.WeightCurrentSpeed
}
