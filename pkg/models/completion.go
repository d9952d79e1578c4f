package models

type CompletionState string

const (
	CompletionPending    CompletionState = "pending"
	CompletionInProgress CompletionState = "in_progress"
	CompletionDone       CompletionState = "done"
)

// Completion is the execution state of a task as reported from the shop floor.
// CompletedUnits and ActualMinutes (per unit) are only meaningful once work started.
type Completion struct {
	State          CompletionState `json:"state"`
	CompletedUnits int             `json:"completed_units,omitempty"`
	ActualMinutes  float64         `json:"actual_minutes,omitempty"`
}

// DeriveCompletion folds raw execution counters into a Completion.
func DeriveCompletion(completedUnits, quantity int, actualMinutes float64) Completion {
	c := Completion{State: CompletionPending, CompletedUnits: completedUnits, ActualMinutes: actualMinutes}
	switch {
	case completedUnits > 0 && completedUnits >= quantity:
		c.State = CompletionDone
	case completedUnits > 0:
		c.State = CompletionInProgress
	}
	return c
}
