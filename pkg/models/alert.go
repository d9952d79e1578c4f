package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertKindDeadlineRisk  = "deadline_risk"
	AlertKindUnschedulable = "unschedulable"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"

	AlertStatusOpen     = "open"
	AlertStatusResolved = "resolved"
)

// Alert is a derived notice about the current plan. It is recomputed on every
// planning run and is never authoritative.
type Alert struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	Kind      string     `db:"kind"       json:"kind"`
	Severity  string     `db:"severity"   json:"severity"`
	JobID     uuid.UUID  `db:"job_id"     json:"job_id"`
	TaskID    *uuid.UUID `db:"task_id"    json:"task_id,omitempty"`
	Message   string     `db:"message"    json:"message"`
	Status    string     `db:"status"     json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
