package domain

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// maxSyntheticSamples bounds a single series so one request cannot allocate unbounded memory.
const maxSyntheticSamples = 20000

// DefaultCadence is the sampling interval of synthesized series.
const DefaultCadence = 3 * time.Hour

// RandSource hands out a private generator per synthesis call, so concurrent
// requests never share mutable random state.
type RandSource func() *rand.Rand

// EntropySource returns generators seeded from the runtime's entropy.
func EntropySource() RandSource {
	return func() *rand.Rand {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// SeededSource returns a deterministic sequence of generators: the n-th call
// always yields the same stream for a given seed.
func SeededSource(seed uint64) RandSource {
	var calls atomic.Uint64
	return func() *rand.Rand {
		n := calls.Add(1)
		return rand.New(rand.NewPCG(seed, n))
	}
}

// Synthesizer fabricates plausible telemetry from site profiles when live
// readings are unavailable.
type Synthesizer struct {
	profiles *ProfileSet
	rand     RandSource
}

// NewSynthesizer creates a Synthesizer. A nil source uses EntropySource.
func NewSynthesizer(profiles *ProfileSet, src RandSource) *Synthesizer {
	if src == nil {
		src = EntropySource()
	}
	return &Synthesizer{profiles: profiles, rand: src}
}

// Profiles returns the profile set the synthesizer draws from.
func (s *Synthesizer) Profiles() *ProfileSet { return s.profiles }

// Synthesize generates a series for one variable at the profile's cadence
// across [from, to], endpoints included. Each sample is
//
//	runningBase + sin(phase(hour))·amplitude + noise
//
// where runningBase is a bounded random walk around the baseline.
func (s *Synthesizer) Synthesize(siteID string, variable Variable, from, to time.Time) ([]EnvironmentalReading, error) {
	vp, err := s.variableProfile(siteID, variable, from, to)
	if err != nil {
		return nil, err
	}
	return generate(siteID, variable, vp, from, to, s.rand(), false), nil
}

// SynthesizeVector is Synthesize with an independent direction in [0°,360°)
// attached to every sample. It is meant for current speed.
func (s *Synthesizer) SynthesizeVector(siteID string, variable Variable, from, to time.Time) ([]EnvironmentalReading, error) {
	vp, err := s.variableProfile(siteID, variable, from, to)
	if err != nil {
		return nil, err
	}
	return generate(siteID, variable, vp, from, to, s.rand(), true), nil
}

// SynthesizeSet generates series for several variables over one range.
// Current speed and its u/v components come from a single vector series, so
// the components always agree with the speed and direction. Variables
// without a profile are skipped. Ranges are checked against every profile
// before anything is generated, and ErrUnknownVariable is returned when no
// requested variable can be produced.
func (s *Synthesizer) SynthesizeSet(siteID string, variables []Variable, from, to time.Time) ([]EnvironmentalReading, error) {
	profiled := make(map[Variable]bool, len(variables))
	for _, v := range variables {
		gen := v
		if v.IsCurrentComponent() {
			gen = VarCurrentSpeed
		}
		if profiled[gen] {
			continue
		}
		_, err := s.variableProfile(siteID, gen, from, to)
		switch {
		case errors.Is(err, ErrUnknownVariable):
			continue
		case err != nil:
			return nil, err
		}
		profiled[gen] = true
	}
	if len(profiled) == 0 {
		return nil, fmt.Errorf("%w: none of %v can be synthesized", ErrUnknownVariable, variables)
	}

	var (
		out     []EnvironmentalReading
		vector  []EnvironmentalReading
		uSeries []EnvironmentalReading
		vSeries []EnvironmentalReading
		emitted = make(map[Variable]bool, len(variables))
	)
	for _, v := range variables {
		if emitted[v] {
			continue
		}
		emitted[v] = true

		if v == VarCurrentSpeed || v.IsCurrentComponent() {
			if !profiled[VarCurrentSpeed] {
				continue
			}
			if vector == nil {
				var err error
				if vector, err = s.SynthesizeVector(siteID, VarCurrentSpeed, from, to); err != nil {
					return nil, err
				}
				uSeries, vSeries = VectorComponents(vector)
			}
			switch v {
			case VarCurrentSpeed:
				out = append(out, vector...)
			case VarCurrentU:
				out = append(out, uSeries...)
			case VarCurrentV:
				out = append(out, vSeries...)
			}
			continue
		}

		if !profiled[v] {
			continue
		}
		series, err := s.Synthesize(siteID, v, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, series...)
	}
	return out, nil
}

// VectorComponents splits vector current samples into their eastward (u)
// and northward (v) components. Samples without a direction are skipped.
func VectorComponents(speed []EnvironmentalReading) (u, v []EnvironmentalReading) {
	u = make([]EnvironmentalReading, 0, len(speed))
	v = make([]EnvironmentalReading, 0, len(speed))
	for _, rd := range speed {
		if rd.Direction == nil {
			continue
		}
		rad := *rd.Direction * math.Pi / 180
		ur, vr := rd, rd
		ur.Variable, ur.Value, ur.Direction = VarCurrentU, rd.Value*math.Sin(rad), nil
		vr.Variable, vr.Value, vr.Direction = VarCurrentV, rd.Value*math.Cos(rad), nil
		u = append(u, ur)
		v = append(v, vr)
	}
	return u, v
}

func (s *Synthesizer) variableProfile(siteID string, variable Variable, from, to time.Time) (VariableProfile, error) {
	if to.Before(from) {
		return VariableProfile{}, NewValidationError("range start %s is after end %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	vp, ok := s.profiles.Get(siteID).Variable(variable)
	if !ok {
		return VariableProfile{}, fmt.Errorf("%w: %q cannot be synthesized", ErrUnknownVariable, variable)
	}
	if vp.Cadence <= 0 {
		vp.Cadence = DefaultCadence
	}
	if n := to.Sub(from)/vp.Cadence + 1; n > maxSyntheticSamples {
		return VariableProfile{}, NewValidationError("range yields %d samples, limit is %d", n, maxSyntheticSamples)
	}
	return vp, nil
}

func generate(siteID string, variable Variable, vp VariableProfile, from, to time.Time, rng *rand.Rand, vector bool) []EnvironmentalReading {
	lo, hi := vp.Bounds()
	k := 1 - vp.Stability
	base := vp.Baseline

	out := make([]EnvironmentalReading, 0, int(to.Sub(from)/vp.Cadence)+1)
	for t := from.UTC(); !t.After(to); t = t.Add(vp.Cadence) {
		hour := float64(t.Hour()) + float64(t.Minute())/60
		cycle := math.Sin(vp.phase(hour)) * vp.Amplitude
		noise := (rng.Float64() - 0.5) * vp.NoiseScale * k

		base += (rng.Float64() - 0.5) * vp.StepScale * k
		base = math.Max(vp.Baseline-vp.Band, math.Min(vp.Baseline+vp.Band, base))

		value := base + cycle + noise
		if vp.NonNegative {
			value = math.Max(0, value)
		}
		value = math.Max(lo, math.Min(hi, value))

		r := EnvironmentalReading{
			SiteID:    siteID,
			Variable:  variable,
			Value:     value,
			Timestamp: t,
			Quality:   QualitySynthetic,
		}
		if vector {
			dir := rng.Float64() * 360
			r.Direction = &dir
		}
		out = append(out, r)
	}
	return out
}
