package models

import (
	"time"

	"github.com/google/uuid"
)

// ShiftReport is one shift's production record for a task.
type ShiftReport struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	TaskID         uuid.UUID `db:"task_id"         json:"task_id"`
	Machine        string    `db:"machine"         json:"machine"`
	CompletedUnits int       `db:"completed_units" json:"completed_units"`
	ActualMinutes  float64   `db:"actual_minutes"  json:"actual_minutes"`
	ReportedAt     time.Time `db:"reported_at"     json:"reported_at"`
}
