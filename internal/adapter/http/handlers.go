package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
	"github.com/couchcryptid/netpen-escape-risk/internal/pipeline"
)

var validate = validator.New()

// defaultForecastDays is used when the days parameter is omitted.
const defaultForecastDays = 7

// RiskService is the engine surface the HTTP layer consumes.
type RiskService interface {
	CheckReadiness(ctx context.Context) error
	Sites() []domain.SiteProfile
	Assess(currentWave, previousDayWave, currentSpeed float64) (domain.RiskAssessment, error)
	AssessRisk(ctx context.Context, siteID string, date time.Time) (domain.RiskAssessment, error)
	ForecastRisk(ctx context.Context, siteID string, days int) (pipeline.Forecast, error)
	SynthesizeSeries(siteID string, variable domain.Variable, from, to time.Time) ([]domain.EnvironmentalReading, error)
	Summary(ctx context.Context, date time.Time) ([]domain.RiskAssessment, error)
}

type handlers struct {
	svc    RiskService
	logger *slog.Logger
}

// dateQuery holds the optional ?date=YYYY-MM-DD parameter.
type dateQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

func (q dateQuery) day() time.Time {
	if q.Date == "" {
		return time.Time{}
	}
	d, _ := time.Parse(time.DateOnly, q.Date)
	return d
}

// forecastQuery holds the ?days=N parameter. The upper bound is enforced by the engine.
type forecastQuery struct {
	Days int `validate:"gte=1"`
}

func (q *forecastQuery) bind(r *http.Request) error {
	q.Days = defaultForecastDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("days must be an integer")
		}
		q.Days = n
	}
	return nil
}

// seriesQuery holds the RFC3339 range of a series request.
type seriesQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *seriesQuery) bind(r *http.Request) error {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return errors.New("from must be an RFC3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return errors.New("to must be an RFC3339 timestamp")
	}
	q.From, q.To = from, to
	return nil
}

// assessRequest is the body of a manual assessment.
type assessRequest struct {
	CurrentWave     *float64 `json:"current_wave_height" validate:"required,gte=0"`
	PreviousDayWave *float64 `json:"previous_day_wave_height" validate:"required,gte=0"`
	CurrentSpeed    *float64 `json:"current_speed" validate:"required,gte=0"`
}

func (h *handlers) listSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sites": h.svc.Sites()})
}

func (h *handlers) siteRisk(w http.ResponseWriter, r *http.Request) {
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	a, err := h.svc.AssessRisk(r.Context(), r.PathValue("id"), q.day())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handlers) siteForecast(w http.ResponseWriter, r *http.Request) {
	var q forecastQuery
	if err := q.bind(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "days must be at least 1")
		return
	}

	fc, err := h.svc.ForecastRisk(r.Context(), r.PathValue("id"), q.Days)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *handlers) siteSeries(w http.ResponseWriter, r *http.Request) {
	variable, err := domain.ParseVariable(r.PathValue("variable"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var q seriesQuery
	if err := q.bind(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	siteID := r.PathValue("id")
	series, err := h.svc.SynthesizeSeries(siteID, variable, q.From, q.To)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"site_id":   siteID,
		"variable":  variable,
		"unit":      variable.Unit(),
		"synthetic": true,
		"readings":  series,
	})
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	all, err := h.svc.Summary(r.Context(), q.day())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": all})
}

func (h *handlers) assess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "current_wave_height, previous_day_wave_height and current_speed are required and must be >= 0")
		return
	}

	a, err := h.svc.Assess(*req.CurrentWave, *req.PreviousDayWave, *req.CurrentSpeed)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// writeServiceError maps engine errors onto status codes. Availability
// failures never reach here; the engine absorbs them.
func (h *handlers) writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrUnknownVariable):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
