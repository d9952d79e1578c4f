package scheduler

import (
	"errors"

	"github.com/google/uuid"
)

// Caller mistakes. Scheduling trouble is never an error; it is reported as a Warning.
var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrInvalidTransition  = errors.New("invalid assignment status transition")
	ErrUnknownMachine     = errors.New("unknown machine")
	ErrSlotConflict       = errors.New("slot conflicts with an existing booking")
	ErrInvalidEdit        = errors.New("invalid assignment edit")
)

// Warning kinds.
const (
	WarnUnschedulable          = "unschedulable"
	WarnNoCompatibleMachine    = "no_compatible_machine"
	WarnPreemptionFailed       = "preemption_failed"
	WarnUnknownCapability      = "unknown_capability"
	WarnPredecessorUnscheduled = "predecessor_unscheduled"
	WarnReplanExhausted        = "replan_exhausted"
	WarnAnchorOverlap          = "anchor_overlap"
)

// Warning is a structured, non-fatal diagnostic from a pass.
type Warning struct {
	Kind    string    `json:"kind"`
	JobID   uuid.UUID `json:"job_id"`
	TaskID  uuid.UUID `json:"task_id"`
	Message string    `json:"message"`
}

func (w Warning) String() string {
	return w.Kind + ": " + w.Message
}
