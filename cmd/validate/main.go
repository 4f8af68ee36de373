// Command validate checks synthgen fixtures against the risk model's
// invariants: series sampling and envelopes, assessment index/level/probability
// consistency, and the forecast day-to-day wave chain.
//
// Usage:
//
//	go run ./cmd/validate -dir data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// ── Fixture shapes, as serialized ──

type seriesJSON struct {
	SiteID   string `json:"site_id"`
	Variable string `json:"variable"`
	Readings []struct {
		Value     float64   `json:"valor"`
		Timestamp time.Time `json:"fecha"`
		Quality   string    `json:"calidad"`
		Direction *float64  `json:"direccion"`
	} `json:"readings"`
}

type assessmentJSON struct {
	SiteID      string  `json:"site_id"`
	Index       float64 `json:"index"`
	Level       string  `json:"nivel"`
	Probability float64 `json:"probabilidad"`
	Percentage  int     `json:"porcentaje"`
	Factors     []struct {
		Name         string  `json:"nombre"`
		Contribution float64 `json:"contribucion"`
	} `json:"factores"`
	Synthetic bool `json:"synthetic"`
}

type forecastJSON struct {
	SiteID    string `json:"site_id"`
	Synthetic bool   `json:"synthetic"`
	Points    []struct {
		Date        string  `json:"fecha"`
		WaveHeight  float64 `json:"wave_height"`
		PrevDayWave float64 `json:"prev_day_wave"`
		Index       float64 `json:"indice"`
		Level       string  `json:"nivel"`
		Probability float64 `json:"probabilidad"`
	} `json:"forecast"`
}

func main() {
	dir := flag.String("dir", "", "directory containing synthgen fixtures")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== Escape Risk Fixture Validation ===")
	fmt.Println()

	series, err := loadJSON[seriesJSON](filepath.Join(dir, "series.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series: %v\n", err)
		return 1
	}
	assessments, err := loadJSON[assessmentJSON](filepath.Join(dir, "assessments.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load assessments: %v\n", err)
		return 1
	}
	forecasts, err := loadJSON[forecastJSON](filepath.Join(dir, "forecasts.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load forecasts: %v\n", err)
		return 1
	}

	profiles := domain.DefaultProfiles()
	phases := []*phase{
		validateSeries(series, profiles),
		validateAssessments(assessments),
		validateForecasts(forecasts),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Fixtures: %d series, %d assessments, %d forecasts\n", len(series), len(assessments), len(forecasts))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: series ──

func validateSeries(series []seriesJSON, profiles *domain.ProfileSet) *phase {
	p := &phase{name: "Series sampling and envelopes"}
	for _, s := range series {
		label := s.SiteID + "/" + s.Variable
		v, err := domain.ParseVariable(s.Variable)
		if err != nil {
			p.errorf("%s: %v", label, err)
			continue
		}
		vp, ok := profiles.Get(s.SiteID).Variable(v)
		if !ok {
			p.errorf("%s: no profile", label)
			continue
		}
		if len(s.Readings) == 0 {
			p.errorf("%s: empty series", label)
			continue
		}

		lo, hi := vp.Bounds()
		for i, r := range s.Readings {
			if r.Value < lo || r.Value > hi {
				p.errorf("%s[%d]: value %.3f outside [%.3f, %.3f]", label, i, r.Value, lo, hi)
			}
			if r.Quality != domain.QualitySynthetic {
				p.errorf("%s[%d]: quality %q, want %q", label, i, r.Quality, domain.QualitySynthetic)
			}
			if (v == domain.VarCurrentSpeed) != (r.Direction != nil) {
				p.errorf("%s[%d]: direction presence mismatch", label, i)
			}
			if i > 0 {
				if step := r.Timestamp.Sub(s.Readings[i-1].Timestamp); step != vp.Cadence {
					p.errorf("%s[%d]: step %s, want %s", label, i, step, vp.Cadence)
				}
			}
		}
	}
	return p
}

// ── Phase 2: assessments ──

// boundaryTolerance skips level checks for indexes whose one-decimal
// rounding could cross a threshold.
const boundaryTolerance = 0.05

func validateAssessments(assessments []assessmentJSON) *phase {
	p := &phase{name: "Assessment index/level/probability"}
	for i, a := range assessments {
		label := fmt.Sprintf("site %s", a.SiteID)
		if a.Index < 0 || a.Index > 10 {
			p.errorf("%s: index %.1f outside [0,10]", label, a.Index)
		}
		if math.Abs(a.Probability-a.Index/10) > 0.011 {
			p.errorf("%s: probability %.2f != index/10 (%.2f)", label, a.Probability, a.Index/10)
		}
		if a.Percentage < 0 || a.Percentage > 100 || math.Abs(float64(a.Percentage)-a.Index*10) > 1 {
			p.errorf("%s: percentage %d inconsistent with index %.1f", label, a.Percentage, a.Index)
		}
		if !nearThreshold(a.Index) && string(domain.ClassifyLevel(a.Index)) != a.Level {
			p.errorf("%s: level %q, want %q", label, a.Level, domain.ClassifyLevel(a.Index))
		}
		if len(a.Factors) != 3 {
			p.errorf("%s: %d factors, want 3", label, len(a.Factors))
		}
		if !a.Synthetic {
			p.errorf("%s: fixture assessment not flagged synthetic", label)
		}
		if i > 0 && assessments[i-1].Index < a.Index {
			p.errorf("%s: summary not sorted by index", label)
		}
	}
	return p
}

func nearThreshold(index float64) bool {
	return math.Abs(index-3.5) < boundaryTolerance || math.Abs(index-7) < boundaryTolerance
}

// ── Phase 3: forecasts ──

func validateForecasts(forecasts []forecastJSON) *phase {
	p := &phase{name: "Forecast wave chain and storm shape"}
	for _, fc := range forecasts {
		label := "site " + fc.SiteID
		pts := fc.Points
		for i := 1; i < len(pts); i++ {
			if pts[i].PrevDayWave != pts[i-1].WaveHeight {
				p.errorf("%s day %d: prev_day_wave %.2f != previous wave_height %.2f",
					label, i, pts[i].PrevDayWave, pts[i-1].WaveHeight)
			}
			prev, err1 := time.Parse(time.DateOnly, pts[i-1].Date)
			cur, err2 := time.Parse(time.DateOnly, pts[i].Date)
			if err1 != nil || err2 != nil || !cur.Equal(prev.AddDate(0, 0, 1)) {
				p.errorf("%s day %d: dates %q -> %q not consecutive", label, i, pts[i-1].Date, pts[i].Date)
			}
		}
		if len(pts) >= 7 {
			if pts[5].WaveHeight < pts[0].WaveHeight {
				p.errorf("%s: peak day wave %.2f below day 0 %.2f", label, pts[5].WaveHeight, pts[0].WaveHeight)
			}
			if pts[6].WaveHeight >= pts[5].WaveHeight {
				p.errorf("%s: no decay after peak (%.2f >= %.2f)", label, pts[6].WaveHeight, pts[5].WaveHeight)
			}
		}
		for i, pt := range pts {
			if pt.Index < 0 || pt.Index > 10 || math.Abs(pt.Probability-pt.Index/10) > 0.011 {
				p.errorf("%s day %d: index %.1f / probability %.2f inconsistent", label, i, pt.Index, pt.Probability)
			}
		}
	}
	return p
}
