// Package execution folds shop-floor production reports into task completion.
package execution

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// Totals is the accumulated production reported for one task.
type Totals struct {
	CompletedUnits int
	Minutes        float64
}

// MinutesPerUnit is the average actual minutes per completed unit, or 0 when
// nothing has been completed yet.
func (t Totals) MinutesPerUnit() float64 {
	if t.CompletedUnits <= 0 {
		return 0
	}
	return t.Minutes / float64(t.CompletedUnits)
}

// Summarize sums reports per task.
func Summarize(reports []models.ShiftReport) map[uuid.UUID]Totals {
	out := make(map[uuid.UUID]Totals)
	for _, r := range reports {
		t := out[r.TaskID]
		if r.CompletedUnits > 0 {
			t.CompletedUnits += r.CompletedUnits
		}
		if r.ActualMinutes > 0 {
			t.Minutes += r.ActualMinutes
		}
		out[r.TaskID] = t
	}
	return out
}

// Apply returns a copy of jobs with each reported task's Completion derived
// from its reports. A task already marked done stays done; tasks without
// reports keep the completion they had.
func Apply(jobs []models.Job, reports []models.ShiftReport) []models.Job {
	totals := Summarize(reports)

	out := make([]models.Job, len(jobs))
	for i, j := range jobs {
		tasks := make([]models.Task, len(j.Tasks))
		copy(tasks, j.Tasks)
		for k := range tasks {
			t, ok := totals[tasks[k].ID]
			if !ok {
				continue
			}
			c := models.DeriveCompletion(t.CompletedUnits, j.Quantity, t.MinutesPerUnit())
			if tasks[k].Completion.State == models.CompletionDone {
				c.State = models.CompletionDone
			}
			tasks[k].Completion = c
		}
		j.Tasks = tasks
		out[i] = j
	}
	return out
}
