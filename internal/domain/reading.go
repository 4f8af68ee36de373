package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Variable names an environmental quantity as stored in variables_ambientales.
type Variable string

const (
	VarWaveHeight   Variable = "wave_height"
	VarCurrentSpeed Variable = "current_speed"
	VarCurrentU     Variable = "uo"
	VarCurrentV     Variable = "vo"
	VarTemperature  Variable = "temperature"
	VarSalinity     Variable = "salinity"
	VarDepth        Variable = "depth"
)

// QualitySynthetic marks readings produced by the Synthesizer. Synthetic
// readings are never written back to the store.
const QualitySynthetic = "synthetic"

// ErrUnknownVariable is returned for variable names outside the catalogue.
var ErrUnknownVariable = errors.New("unknown variable")

var variableAliases = map[string]Variable{
	"wave_height":      VarWaveHeight,
	"altura_olas":      VarWaveHeight,
	"waves":            VarWaveHeight,
	"current_speed":    VarCurrentSpeed,
	"current":          VarCurrentSpeed,
	"currents":         VarCurrentSpeed,
	"corrientes":       VarCurrentSpeed,
	"uo":               VarCurrentU,
	"corriente_u":      VarCurrentU,
	"vo":               VarCurrentV,
	"corriente_v":      VarCurrentV,
	"temperature":      VarTemperature,
	"temperatura":      VarTemperature,
	"temp":             VarTemperature,
	"temperatura_agua": VarTemperature,
	"salinity":         VarSalinity,
	"salinidad":        VarSalinity,
	"so":               VarSalinity,
	"depth":            VarDepth,
	"profundidad":      VarDepth,
}

// ParseVariable resolves a variable name or one of its legacy aliases.
func ParseVariable(name string) (Variable, error) {
	v, ok := variableAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return v, nil
}

// StoredNames returns every name v may be stored under, sorted.
func (v Variable) StoredNames() []string {
	var names []string
	for name, target := range variableAliases {
		if target == v {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsCurrentComponent reports whether v is the u or v component of the current.
func (v Variable) IsCurrentComponent() bool {
	return v == VarCurrentU || v == VarCurrentV
}

// Unit returns the physical unit the variable is stored in.
func (v Variable) Unit() string {
	switch v {
	case VarWaveHeight, VarDepth:
		return "m"
	case VarCurrentSpeed, VarCurrentU, VarCurrentV:
		return "m/s"
	case VarTemperature:
		return "°C"
	case VarSalinity:
		return "ppt"
	default:
		return ""
	}
}

// EnvironmentalReading is a single observation of one variable at one site.
type EnvironmentalReading struct {
	SiteID    string    `json:"site_id"`
	Variable  Variable  `json:"variable"`
	Value     float64   `json:"valor"`
	Timestamp time.Time `json:"fecha"`
	Quality   string    `json:"calidad,omitempty"`

	// Direction is set only for vector current samples, degrees clockwise from north.
	Direction *float64 `json:"direccion,omitempty"`
}

// TimeRange is an inclusive [From, To] interval.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// DayRange covers the calendar day containing t, in UTC.
func DayRange(t time.Time) TimeRange {
	start := startOfDay(t)
	return TimeRange{From: start, To: start.Add(24*time.Hour - time.Second)}
}

// Contains reports whether t lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LatestIn returns the most recent reading of variable within r.
func LatestIn(readings []EnvironmentalReading, variable Variable, r TimeRange) (EnvironmentalReading, bool) {
	var (
		latest EnvironmentalReading
		found  bool
	)
	for _, rd := range readings {
		if rd.Variable != variable || !r.Contains(rd.Timestamp) {
			continue
		}
		if !found || rd.Timestamp.After(latest.Timestamp) {
			latest = rd
			found = true
		}
	}
	return latest, found
}
