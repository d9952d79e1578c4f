package scheduler

import (
	"fmt"
	"time"

	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// preempt books task for critical job pj at its earliest instant on the first
// eligible machine where every conflicting booking can be pushed behind it.
// A conflict may be pushed only if pj is at least as important (numerically
// lower or equal priority) and it is not locked.
func (p *pass) preempt(pj PrioritizedJob, task models.Task, eligible []models.Machine, earliest time.Time) (*models.Assignment, bool) {
	start := p.e.cal.NextWorkingInstant(earliest)

	for _, m := range eligible {
		est := EstimateTask(task, pj.Job.Quantity, m)
		critical := p.newAssignment(pj, task, candidate{machine: m, est: est, start: start})

		shifted, moved, ok := p.tryShift(pj, m, critical)
		if !ok {
			continue
		}

		p.tl = shifted
		reason := fmt.Sprintf("preempted by job %s", pj.Job.Reference)
		now := p.now
		for _, b := range moved {
			a := p.byID[b.AssignmentID]
			a.Start, a.End = b.Start, b.End
			a.RescheduleReason = reason
			a.RescheduledAt = &now
			a.UpdatedAt = p.now
			p.finished[a.TaskID] = a.End
		}
		return p.commit(critical), true
	}
	return nil, false
}

// tryShift works on a copy of the timeline and returns it only if the result
// still satisfies every booking rule on m and the sequence of the moved jobs.
func (p *pass) tryShift(pj PrioritizedJob, m models.Machine, critical models.Assignment) (*Timeline, []Booking, bool) {
	tl := p.tl.Clone()
	conflicts := tl.Overlapping(m.Name, critical.Start, critical.End)

	for _, c := range conflicts {
		if c.Locked {
			return nil, nil, false
		}
		owner, ok := p.idx.jobs[c.JobID]
		if !ok || pj.Job.Priority > owner.Priority {
			return nil, nil, false
		}
		tl.Remove(m.Name, c.AssignmentID)
	}
	tl.Add(m.Name, bookingOf(critical, false))

	cursor := critical.End
	moved := make([]Booking, 0, len(conflicts))
	for _, c := range conflicts {
		c.Start = p.e.cal.NextWorkingInstant(cursor)
		c.End = p.e.cal.AddWorkingMinutes(c.Start, c.Minutes)
		tl.Add(m.Name, c)
		moved = append(moved, c)
		cursor = c.End
	}

	if !checkOverlaps(m.Name, tl) || !p.e.finder.checkDays(m, tl) {
		return nil, nil, false
	}
	for _, b := range moved {
		if !p.sequenceHolds(tl, b) {
			return nil, nil, false
		}
	}
	return tl, moved, true
}

// sequenceHolds checks b against the end of its job predecessor and the start
// of its job successor.
func (p *pass) sequenceHolds(tl *Timeline, b Booking) bool {
	if prev, ok := p.idx.prev[b.TaskID]; ok {
		if _, pb, found := tl.FindTask(prev); found {
			if b.Start.Before(pb.End) {
				return false
			}
		} else if end, done := p.finished[prev]; done && b.Start.Before(end) {
			return false
		}
	}
	if next := p.idx.next[b.TaskID]; len(next) > 0 {
		if _, nb, found := tl.FindTask(next[0]); found && nb.Start.Before(b.End) {
			return false
		}
	}
	return true
}
