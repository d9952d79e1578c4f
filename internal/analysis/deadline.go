package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// alertNamespace seeds deterministic alert IDs so an unchanged plan produces
// identical alerts.
var alertNamespace = uuid.MustParse("6f1c8e42-3b0d-4f7e-9a57-2d0c6b9e4a10")

// AlertID derives a stable alert ID from its kind and subject.
func AlertID(kind string, jobID uuid.UUID, taskID *uuid.UUID) uuid.UUID {
	name := kind + "/" + jobID.String()
	if taskID != nil {
		name += "/" + taskID.String()
	}
	return uuid.NewSHA1(alertNamespace, []byte(name))
}

// DeadlineAlerts returns a high severity deadline_risk alert for every job
// whose last assignment ends after its deadline. Jobs without assignments
// produce nothing. Output is sorted by job reference.
func DeadlineAlerts(jobs []models.Job, assignments []models.Assignment, now time.Time) []models.Alert {
	last := make(map[uuid.UUID]time.Time)
	for _, a := range assignments {
		if a.End.After(last[a.JobID]) {
			last[a.JobID] = a.End
		}
	}

	sorted := make([]models.Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Reference < sorted[j].Reference })

	alerts := []models.Alert{}
	for _, j := range sorted {
		end, ok := last[j.ID]
		if !ok || !end.After(j.Deadline) {
			continue
		}
		late := end.Sub(j.Deadline)
		alerts = append(alerts, models.Alert{
			ID:       AlertID(models.AlertKindDeadlineRisk, j.ID, nil),
			Kind:     models.AlertKindDeadlineRisk,
			Severity: models.SeverityHigh,
			JobID:    j.ID,
			Message: fmt.Sprintf("job %s finishes %s after its deadline %s",
				j.Reference, late.Round(time.Minute), j.Deadline.Format(time.DateOnly)),
			Status:    models.AlertStatusOpen,
			CreatedAt: now,
		})
	}
	return alerts
}
