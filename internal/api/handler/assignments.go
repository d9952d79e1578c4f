package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/shopplan/internal/api/middleware"
	"github.com/kiranshivaraju/shopplan/internal/api/response"
	"github.com/kiranshivaraju/shopplan/internal/scheduler"
	"github.com/kiranshivaraju/shopplan/internal/store"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// AssignmentLister lists published assignments.
type AssignmentLister interface {
	ListAssignments(ctx context.Context, filter store.AssignmentFilter) ([]models.Assignment, int, error)
}

// Replanner applies floor events and manual edits to the published plan.
type Replanner interface {
	CompleteSetup(ctx context.Context, ev scheduler.SetupCompletion) (*scheduler.ReplanResult, error)
	EditAssignment(ctx context.Context, edit scheduler.AssignmentEdit) (*scheduler.ReplanResult, error)
}

type setupCompleteRequest struct {
	ActualSetupMinutes *int       `json:"actual_setup_minutes" validate:"required,min=0,max=1440"`
	ActualStart        *time.Time `json:"actual_start"`
	NewMachine         string     `json:"new_machine"          validate:"omitempty,max=100"`
}

type editAssignmentRequest struct {
	Start        *time.Time `json:"start"`
	Machine      string     `json:"machine"       validate:"omitempty,max=100"`
	SetupMinutes *int       `json:"setup_minutes" validate:"omitempty,min=0,max=1440"`
	RunMinutes   *int       `json:"run_minutes"   validate:"omitempty,min=0"`
}

func (req editAssignmentRequest) empty() bool {
	return req.Start == nil && req.Machine == "" && req.SetupMinutes == nil && req.RunMinutes == nil
}

type replanResponse struct {
	Assignment models.Assignment   `json:"assignment"`
	Shifted    []models.Assignment `json:"shifted"`
	Warnings   []scheduler.Warning `json:"warnings"`
}

func newReplanResponse(res *scheduler.ReplanResult) replanResponse {
	return replanResponse{Assignment: res.Updated, Shifted: res.Shifted, Warnings: res.Warnings}
}

var assignmentStatuses = map[string]bool{
	string(models.AssignmentPlanned):     true,
	string(models.AssignmentInProgress):  true,
	string(models.AssignmentCompleted):   true,
	string(models.AssignmentRescheduled): true,
}

// NewListAssignmentsHandler returns an http.HandlerFunc for GET /api/v1/assignments.
func NewListAssignmentsHandler(svc AssignmentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.AssignmentFilter{
			Machine: q.Get("machine"),
			Status:  q.Get("status"),
			Page:    1,
			Limit:   defaultPageLimit,
		}

		if filter.Status != "" && !assignmentStatuses[filter.Status] {
			response.ValidationError(w, "Invalid query parameters", map[string]string{"status": "oneof"})
			return
		}
		if raw := q.Get("job_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.ValidationError(w, "Invalid query parameters", map[string]string{"job_id": "uuid"})
				return
			}
			filter.JobID = &id
		}
		if raw := q.Get("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				response.ValidationError(w, "Invalid query parameters", map[string]string{"page": "min"})
				return
			}
			filter.Page = page
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				response.ValidationError(w, "Invalid query parameters", map[string]string{"limit": "min"})
				return
			}
			filter.Limit = min(limit, maxPageLimit)
		}

		assignments, total, err := svc.ListAssignments(r.Context(), filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if assignments == nil {
			assignments = []models.Assignment{}
		}
		response.Collection(w, assignments, response.NewPaginationMeta(filter.Page, filter.Limit, total))
	}
}

// NewSetupCompleteHandler returns an http.HandlerFunc for
// POST /api/v1/assignments/{id}/setup-complete.
func NewSetupCompleteHandler(svc Replanner, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.ValidationError(w, "id must be a valid UUID", nil)
			return
		}

		var req setupCompleteRequest
		if !decodeAndValidate(w, r, v, &req) {
			return
		}

		res, err := svc.CompleteSetup(r.Context(), scheduler.SetupCompletion{
			AssignmentID:       id,
			ActualSetupMinutes: *req.ActualSetupMinutes,
			ActualStart:        req.ActualStart,
			NewMachine:         req.NewMachine,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		logReplan(r, "setup_complete", res)
		response.JSON(w, newReplanResponse(res))
	}
}

// NewEditAssignmentHandler returns an http.HandlerFunc for PATCH /api/v1/assignments/{id}.
func NewEditAssignmentHandler(svc Replanner, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.ValidationError(w, "id must be a valid UUID", nil)
			return
		}

		var req editAssignmentRequest
		if !decodeAndValidate(w, r, v, &req) {
			return
		}
		if req.empty() {
			response.ValidationError(w, "At least one of start, machine, setup_minutes, run_minutes is required", nil)
			return
		}

		res, err := svc.EditAssignment(r.Context(), scheduler.AssignmentEdit{
			AssignmentID: id,
			Start:        req.Start,
			Machine:      req.Machine,
			SetupMinutes: req.SetupMinutes,
			RunMinutes:   req.RunMinutes,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		logReplan(r, "edit", res)
		response.JSON(w, newReplanResponse(res))
	}
}

// logReplan records which key changed the plan and how far the change reached.
func logReplan(r *http.Request, action string, res *scheduler.ReplanResult) {
	attrs := []any{
		"action", action,
		"assignment_id", res.Updated.ID,
		"machine", res.Updated.Machine,
		"shifted", len(res.Shifted),
		"warnings", len(res.Warnings),
	}
	if keyID, ok := mw.GetKeyID(r); ok {
		attrs = append(attrs, "key_id", keyID)
	}
	slog.Info("plan changed", attrs...)
}
