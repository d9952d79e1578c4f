package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	ListJobs(ctx context.Context) ([]models.Job, error)
	ListMachines(ctx context.Context) ([]models.Machine, error)
	ListShiftReports(ctx context.Context) ([]models.ShiftReport, error)

	CreatePlanRun(ctx context.Context, run *models.PlanRun) error
	GetPlanRun(ctx context.Context, id uuid.UUID) (*models.PlanRun, error)
	UpdatePlanRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error

	ReplaceSchedule(ctx context.Context, assignments []models.Assignment, alerts []models.Alert) error
	ListSchedule(ctx context.Context) ([]models.Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	UpdateAssignments(ctx context.Context, assignments []models.Assignment) error

	ListAlerts(ctx context.Context, status string) ([]models.Alert, error)
}

type AssignmentFilter struct {
	Machine string
	JobID   *uuid.UUID
	Status  string
	Page    int
	Limit   int
}

type runUpdateParams struct {
	ErrorMessage    *string
	Warnings        []string
	AssignmentCount *int
}

type RunUpdateOption func(*runUpdateParams)

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithWarnings(warnings []string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.Warnings = warnings
	}
}

func WithAssignmentCount(n int) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.AssignmentCount = &n
	}
}
