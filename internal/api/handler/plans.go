package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/internal/api/response"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// Planner starts planning runs and reports on them.
type Planner interface {
	TriggerRun(ctx context.Context) (*models.PlanRun, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*models.PlanRun, error)
}

type triggerResponse struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
}

// NewTriggerPlanHandler returns an http.HandlerFunc for POST /api/v1/plans.
func NewTriggerPlanHandler(svc Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := svc.TriggerRun(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.Accepted(w, triggerResponse{RunID: run.ID, Status: run.Status})
	}
}

// NewGetPlanHandler returns an http.HandlerFunc for GET /api/v1/plans/{runID}.
func NewGetPlanHandler(svc Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			response.ValidationError(w, "runID must be a valid UUID", nil)
			return
		}

		run, err := svc.GetRun(r.Context(), runID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, run)
	}
}
