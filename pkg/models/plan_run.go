package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// PlanRun tracks an async planning run. POST /api/v1/plans returns a run_id;
// the client polls GET /api/v1/plans/{run_id} until status is completed or failed.
type PlanRun struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	Status          string     `db:"status"           json:"status"`
	Warnings        []string   `db:"warnings"         json:"warnings"`
	AssignmentCount int        `db:"assignment_count" json:"assignment_count"`
	ErrorMessage    *string    `db:"error_message"    json:"error_message,omitempty"`
	StartedAt       *time.Time `db:"started_at"       json:"started_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at"     json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}
