package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/kiranshivaraju/shopplan/pkg/models"
)

const (
	workdayMinutes       = 480
	deadlineBufferFactor = 1.3
	calendarDaysFactor   = 1.4
	deadlineSlackDays    = 2
)

// PrioritizedJob is a job with the annotations derived for this pass.
type PrioritizedJob struct {
	Job  models.Job
	Plan models.JobPlan
}

// Critical reports whether the job may preempt other bookings: priority 1,
// overdue, or due within window of now.
func (p PrioritizedJob) Critical(now time.Time, window time.Duration) bool {
	return p.Job.Priority == 1 || p.Plan.IsOverdue || !p.Plan.EffectiveDeadline.After(now.Add(window))
}

// RealisticDeadline is the replacement deadline for an overdue job.
func RealisticDeadline(job models.Job, now time.Time) time.Time {
	need := math.Ceil(nominalMinutes(job) * deadlineBufferFactor / workdayMinutes)
	days := int(math.Ceil(calendarDaysFactor*need)) + deadlineSlackDays
	return now.AddDate(0, 0, days)
}

// Prioritize annotates jobs and returns them in processing order:
// priority ascending, then overdue before on-time (most overdue first),
// then earliest deadline, then ID for a stable total order.
// jobs is not modified.
func Prioritize(jobs []models.Job, now time.Time) []PrioritizedJob {
	out := make([]PrioritizedJob, 0, len(jobs))
	for _, j := range jobs {
		plan := models.JobPlan{JobID: j.ID, EffectiveDeadline: j.Deadline}
		if j.Deadline.Before(now) {
			plan.IsOverdue = true
			plan.DaysOverdue = int(now.Sub(j.Deadline) / (24 * time.Hour))
			plan.EffectiveDeadline = RealisticDeadline(j, now)
		}
		out = append(out, PrioritizedJob{Job: j, Plan: plan})
	}

	sort.SliceStable(out, func(i, k int) bool {
		a, b := out[i], out[k]
		if a.Job.Priority != b.Job.Priority {
			return a.Job.Priority < b.Job.Priority
		}
		if a.Plan.IsOverdue != b.Plan.IsOverdue {
			return a.Plan.IsOverdue
		}
		if a.Plan.IsOverdue {
			if a.Plan.DaysOverdue != b.Plan.DaysOverdue {
				return a.Plan.DaysOverdue > b.Plan.DaysOverdue
			}
		} else if !a.Plan.EffectiveDeadline.Equal(b.Plan.EffectiveDeadline) {
			return a.Plan.EffectiveDeadline.Before(b.Plan.EffectiveDeadline)
		}
		return a.Job.ID.String() < b.Job.ID.String()
	})
	return out
}
