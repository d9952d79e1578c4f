package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/shopplan/internal/analysis"
	"github.com/kiranshivaraju/shopplan/internal/api/response"
	"github.com/kiranshivaraju/shopplan/internal/planning"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// Analyst reports on the published plan.
type Analyst interface {
	MachineLoad(ctx context.Context) ([]analysis.MachineLoadStats, error)
	MachineDays(ctx context.Context, machine string, minutes int) (*planning.MachineDays, error)
}

// AlertLister lists plan alerts.
type AlertLister interface {
	ListAlerts(ctx context.Context, status string) ([]models.Alert, error)
}

// NewMachineLoadHandler returns an http.HandlerFunc for GET /api/v1/analytics/machine-load.
func NewMachineLoadHandler(svc Analyst) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.MachineLoad(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, stats)
	}
}

// NewMachineDaysHandler returns an http.HandlerFunc for
// GET /api/v1/analytics/machines/{machine}/days. An optional minutes query
// parameter asks for the days that can still take a booking of that size.
func NewMachineDaysHandler(svc Analyst) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var minutes int
		if raw := r.URL.Query().Get("minutes"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				response.ValidationError(w, "Invalid query parameters", map[string]string{"minutes": "min"})
				return
			}
			minutes = v
		}

		days, err := svc.MachineDays(r.Context(), chi.URLParam(r, "machine"), minutes)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, days)
	}
}

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
func NewListAlertsHandler(svc AlertLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status != "" && status != models.AlertStatusOpen && status != models.AlertStatusResolved {
			response.ValidationError(w, "Invalid query parameters", map[string]string{"status": "oneof"})
			return
		}

		alerts, err := svc.ListAlerts(r.Context(), status)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if alerts == nil {
			alerts = []models.Alert{}
		}
		response.JSON(w, alerts)
	}
}
