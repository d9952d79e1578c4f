// Package models contains shared data models used across the shopplan codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Capability is the machining capability an operation requires.
type Capability string

const (
	CapabilityMilling3Axis Capability = "milling_3axis"
	CapabilityMilling4Axis Capability = "milling_4axis"
	CapabilityMilling      Capability = "milling"
	CapabilityTurning      Capability = "turning"
)

// Known reports whether c is one of the recognised capabilities.
func (c Capability) Known() bool {
	switch c {
	case CapabilityMilling3Axis, CapabilityMilling4Axis, CapabilityMilling, CapabilityTurning:
		return true
	}
	return false
}

// Job is a manufacturing order. The scheduler reads it and never writes it back.
type Job struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Reference string    `db:"reference"  json:"reference"`
	Quantity  int       `db:"quantity"   json:"quantity"`
	Deadline  time.Time `db:"deadline"   json:"deadline"`
	Priority  int       `db:"priority"   json:"priority"`
	Tasks     []Task    `db:"-"          json:"tasks"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Task is one operation of a Job. Sequence defines a strict chain: task N
// depends on task N-1 of the same job.
type Task struct {
	ID               uuid.UUID  `db:"id"                json:"id"`
	JobID            uuid.UUID  `db:"job_id"            json:"job_id"`
	Sequence         int        `db:"sequence"          json:"sequence"`
	Capability       Capability `db:"capability"        json:"capability"`
	MinutesPerUnit   float64    `db:"minutes_per_unit"  json:"minutes_per_unit"`
	PreferredMachine string     `db:"preferred_machine" json:"preferred_machine,omitempty"`
	Completion       Completion `db:"-"                 json:"completion"`
}

// IsDone reports whether external execution signals mark the task finished
// for a job of the given quantity.
func (t Task) IsDone(quantity int) bool {
	c := t.Completion
	if c.State == CompletionDone {
		return true
	}
	if c.CompletedUnits > 0 && c.CompletedUnits >= quantity {
		return true
	}
	return c.ActualMinutes > 0 && t.MinutesPerUnit > 0 && c.ActualMinutes >= t.MinutesPerUnit
}

// JobPlan holds the annotations a planning pass derives for a job.
// Priority is never part of it.
type JobPlan struct {
	JobID             uuid.UUID `json:"job_id"`
	IsOverdue         bool      `json:"is_overdue"`
	DaysOverdue       int       `json:"days_overdue"`
	EffectiveDeadline time.Time `json:"effective_deadline"`
}
