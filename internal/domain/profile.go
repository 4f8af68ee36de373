package domain

import (
	"errors"
	"math"
	"sort"
	"time"
)

// VariableProfile describes how one variable behaves at a site, for synthesis.
type VariableProfile struct {
	Baseline  float64
	Amplitude float64 // diurnal or tidal swing around the running base
	Stability float64 // 0 (exposed) – 1 (sheltered); scales walk and noise by 1-Stability
	Band      float64 // the running base stays within Baseline ± Band

	StepScale  float64 // random-walk step width before stability scaling
	NoiseScale float64 // noise width before stability scaling

	PhaseOffsetHours float64 // hour at which the cycle crosses zero going up
	PeriodHours      float64 // 24 for diurnal, 12 for semi-diurnal tides

	Cadence     time.Duration
	NonNegative bool
}

// Bounds returns the envelope every synthesized value stays within.
func (p VariableProfile) Bounds() (lo, hi float64) {
	return p.Baseline - 3*p.Band, p.Baseline + 3*p.Band
}

// phase returns the cycle angle for an hour of day.
func (p VariableProfile) phase(hour float64) float64 {
	period := p.PeriodHours
	if period <= 0 {
		period = 24
	}
	return (hour - p.PhaseOffsetHours) / period * 2 * math.Pi
}

// SiteProfile holds the static calibration of one net-pen site.
type SiteProfile struct {
	SiteID      string                       `json:"id"`
	Name        string                       `json:"name"`
	Location    string                       `json:"location"`
	Coordinates [2]float64                   `json:"coordinates"` // lat, lon
	Exposure    string                       `json:"exposure"`
	Variables   map[Variable]VariableProfile `json:"-"`
}

// Variable returns the site's profile for v.
func (s SiteProfile) Variable(v Variable) (VariableProfile, bool) {
	p, ok := s.Variables[v]
	return p, ok
}

// ProfileSet is an immutable, keyed collection of site profiles with a
// fallback for unknown sites. Safe for concurrent reads.
type ProfileSet struct {
	sites     map[string]SiteProfile
	order     []string
	defaultID string
}

// NewProfileSet indexes profiles by SiteID. defaultID must be one of them.
func NewProfileSet(defaultID string, profiles ...SiteProfile) (*ProfileSet, error) {
	ps := &ProfileSet{sites: make(map[string]SiteProfile, len(profiles)), defaultID: defaultID}
	for _, p := range profiles {
		if p.SiteID == "" {
			return nil, errors.New("site profile without id")
		}
		if _, dup := ps.sites[p.SiteID]; dup {
			return nil, errors.New("duplicate site profile " + p.SiteID)
		}
		ps.sites[p.SiteID] = p
		ps.order = append(ps.order, p.SiteID)
	}
	if _, ok := ps.sites[defaultID]; !ok {
		return nil, errors.New("default site profile " + defaultID + " not found")
	}
	sort.Strings(ps.order)
	return ps, nil
}

// Lookup returns the profile for siteID and whether it is configured.
func (ps *ProfileSet) Lookup(siteID string) (SiteProfile, bool) {
	p, ok := ps.sites[siteID]
	return p, ok
}

// Get returns the profile for siteID, or the default profile for unknown sites.
func (ps *ProfileSet) Get(siteID string) SiteProfile {
	if p, ok := ps.sites[siteID]; ok {
		return p
	}
	return ps.sites[ps.defaultID]
}

// Sites returns all configured profiles ordered by ID.
func (ps *ProfileSet) Sites() []SiteProfile {
	out := make([]SiteProfile, 0, len(ps.order))
	for _, id := range ps.order {
		out = append(out, ps.sites[id])
	}
	return out
}

// siteTraits captures the per-site numbers the variable profiles are built from.
type siteTraits struct {
	stability float64

	tempBase, tempAmp float64

	currentBase, currentTide float64

	waveBase, waveSpread float64

	salinityBase, salinityAmp, salinityStability float64

	depthBase, depthAmp, depthStability float64
}

func (t siteTraits) variables() map[Variable]VariableProfile {
	const cadence = DefaultCadence
	return map[Variable]VariableProfile{
		VarTemperature: {
			Baseline: t.tempBase, Amplitude: t.tempAmp, Stability: t.stability, Band: 3,
			StepScale: 0.1, NoiseScale: 1,
			PhaseOffsetHours: 6, PeriodHours: 24,
			Cadence: cadence,
		},
		VarCurrentSpeed: {
			Baseline: t.currentBase, Amplitude: t.currentTide, Stability: t.stability, Band: t.currentBase / 2,
			StepScale: 0.1, NoiseScale: 0.4,
			PeriodHours: 12,
			Cadence:     cadence, NonNegative: true,
		},
		VarWaveHeight: {
			Baseline: t.waveBase + t.waveSpread/2, Amplitude: t.waveSpread / 4, Stability: t.stability, Band: t.waveSpread / 2,
			StepScale: 0.2, NoiseScale: t.waveSpread,
			PeriodHours: 24,
			Cadence:     cadence, NonNegative: true,
		},
		VarSalinity: {
			Baseline: t.salinityBase, Amplitude: t.salinityAmp / 2, Stability: t.salinityStability, Band: 2,
			StepScale: 0.05, NoiseScale: 0.8,
			PhaseOffsetHours: 12, PeriodHours: 24,
			Cadence: cadence, NonNegative: true,
		},
		VarDepth: {
			Baseline: t.depthBase, Amplitude: t.depthAmp, Stability: t.depthStability, Band: 2.5,
			StepScale: 0.05, NoiseScale: 1.5,
			PeriodHours: 12,
			Cadence:     6 * time.Hour, NonNegative: true,
		},
	}
}

// DefaultSiteID is the profile used for sites without their own calibration.
const DefaultSiteID = "1"

// DefaultProfiles returns the four Mediterranean sites the service ships with.
// Guardamar doubles as the default for unknown sites.
func DefaultProfiles() *ProfileSet {
	ps, err := NewProfileSet(DefaultSiteID,
		SiteProfile{
			SiteID: "1", Name: "Acuicultura Marina Guardamar", Location: "Guardamar del Segura, Alicante",
			Coordinates: [2]float64{38.0892, -0.6547}, Exposure: "moderate",
			Variables: siteTraits{
				stability: 0.8, tempBase: 20, tempAmp: 2.5,
				currentBase: 0.35, currentTide: 0.20,
				waveBase: 1.5, waveSpread: 0.8,
				salinityBase: 36.5, salinityAmp: 1.2, salinityStability: 0.8,
				depthBase: 15, depthAmp: 2.5, depthStability: 0.85,
			}.variables(),
		},
		SiteProfile{
			SiteID: "2", Name: "Piscifactoría Mar Menor", Location: "San Pedro del Pinatar, Murcia",
			Coordinates: [2]float64{37.8333, -0.7833}, Exposure: "exposed",
			Variables: siteTraits{
				stability: 0.6, tempBase: 19, tempAmp: 3.0,
				currentBase: 0.50, currentTide: 0.30,
				waveBase: 2.0, waveSpread: 1.2,
				salinityBase: 38.0, salinityAmp: 2.5, salinityStability: 0.6,
				depthBase: 12, depthAmp: 3.0, depthStability: 0.75,
			}.variables(),
		},
		SiteProfile{
			SiteID: "3", Name: "Acuicultura Mediterráneo", Location: "Cullera, Valencia",
			Coordinates: [2]float64{39.1628, -0.2518}, Exposure: "sheltered",
			Variables: siteTraits{
				stability: 0.9, tempBase: 21, tempAmp: 2.0,
				currentBase: 0.25, currentTide: 0.15,
				waveBase: 1.2, waveSpread: 0.5,
				salinityBase: 36.0, salinityAmp: 1.0, salinityStability: 0.85,
				depthBase: 20, depthAmp: 3.5, depthStability: 0.8,
			}.variables(),
		},
		SiteProfile{
			SiteID: "4", Name: "Acuicultura Águilas", Location: "Águilas, Murcia",
			Coordinates: [2]float64{37.4074, -1.5831}, Exposure: "very exposed",
			Variables: siteTraits{
				stability: 0.5, tempBase: 18, tempAmp: 3.5,
				currentBase: 0.60, currentTide: 0.35,
				waveBase: 2.5, waveSpread: 1.5,
				salinityBase: 37.0, salinityAmp: 1.8, salinityStability: 0.7,
				depthBase: 18, depthAmp: 4.0, depthStability: 0.7,
			}.variables(),
		},
	)
	if err != nil {
		panic(err) // static table
	}
	return ps
}
