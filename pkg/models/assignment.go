package models

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentPlanned     AssignmentStatus = "planned"
	AssignmentInProgress  AssignmentStatus = "in_progress"
	AssignmentCompleted   AssignmentStatus = "completed"
	AssignmentRescheduled AssignmentStatus = "rescheduled"
)

// Movable reports whether the assignment may still be moved by replanning.
func (s AssignmentStatus) Movable() bool {
	return s == AssignmentPlanned || s == AssignmentRescheduled
}

// Assignment binds one task to one machine and time window. A planning run
// produces one per scheduled (job, task) pair.
type Assignment struct {
	ID               uuid.UUID        `db:"id"                json:"id"`
	JobID            uuid.UUID        `db:"job_id"            json:"job_id"`
	TaskID           uuid.UUID        `db:"task_id"           json:"task_id"`
	Machine          string           `db:"machine"           json:"machine"`
	Start            time.Time        `db:"planned_start"     json:"planned_start"`
	End              time.Time        `db:"planned_end"       json:"planned_end"`
	Quantity         int              `db:"quantity"          json:"quantity"`
	RunMinutes       int              `db:"run_minutes"       json:"run_minutes"`
	SetupMinutes     int              `db:"setup_minutes"     json:"setup_minutes"`
	BufferMinutes    int              `db:"buffer_minutes"    json:"buffer_minutes"`
	Status           AssignmentStatus `db:"status"            json:"status"`
	RescheduledAt    *time.Time       `db:"rescheduled_at"    json:"rescheduled_at,omitempty"`
	RescheduleReason string           `db:"reschedule_reason" json:"reschedule_reason,omitempty"`
	CreatedAt        time.Time        `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"        json:"updated_at"`
}

// TotalMinutes is the working time the assignment occupies on its machine.
func (a Assignment) TotalMinutes() int {
	return a.RunMinutes + a.SetupMinutes + a.BufferMinutes
}
