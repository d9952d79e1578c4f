// Package scheduler assigns manufacturing tasks to machines and time windows.
//
// A pass is greedy first-fit: jobs are taken in priority order, each job's
// tasks in sequence, and every task goes to the compatible machine offering
// the earliest acceptable slot. Critical jobs that find no slot may shift
// equal or less important bookings out of the way. Nothing here performs I/O.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/internal/analysis"
	"github.com/kiranshivaraju/shopplan/internal/calendar"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

var assignmentNamespace = uuid.MustParse("0b7d3a56-91e4-4c2a-8f3e-5a6c1d2e9f70")

// AssignmentID is the stable ID of the assignment for a (job, task) pair.
func AssignmentID(jobID, taskID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(assignmentNamespace, append(jobID[:], taskID[:]...))
}

// Input is the snapshot a pass works from. Assignments is the currently
// published set; in-progress and completed ones are kept as fixed anchors.
type Input struct {
	Jobs        []models.Job
	Machines    []models.Machine
	Assignments []models.Assignment
}

// Result is the complete replacement assignment set of a pass.
type Result struct {
	Assignments []models.Assignment `json:"assignments"`
	Jobs        []models.JobPlan    `json:"jobs"`
	Warnings    []Warning           `json:"warnings"`
	Alerts      []models.Alert      `json:"alerts"`
}

type Engine struct {
	cal    *calendar.Calendar
	opts   Options
	finder SlotFinder
	now    func() time.Time
}

type EngineOption func(*Engine)

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func New(cal *calendar.Calendar, opts Options, options ...EngineOption) *Engine {
	e := &Engine{
		cal:    cal,
		opts:   opts.withDefaults(cal.Location()),
		finder: NewSlotFinder(cal, opts),
		now:    time.Now,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) Calendar() *calendar.Calendar {
	return e.cal
}

// Now is the engine's clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Plan builds a fresh schedule for in. The returned set replaces the
// published one as a whole; on cancellation nothing is returned.
func (e *Engine) Plan(ctx context.Context, in Input) (*Result, error) {
	now := e.now()
	p := e.newPass(in, now)
	p.seedAnchors(in.Assignments)

	ordered := Prioritize(in.Jobs, now)
	for _, pj := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
		p.planJob(pj)
	}

	return p.result(ordered), nil
}

// pass holds the mutable state of one planning pass.
type pass struct {
	e        *Engine
	now      time.Time
	tl       *Timeline
	roster   []models.Machine
	idx      taskIndex
	byID     map[uuid.UUID]*models.Assignment
	finished map[uuid.UUID]time.Time
	warnings []Warning
	alerts   []models.Alert
}

func (e *Engine) newPass(in Input, now time.Time) *pass {
	roster := make([]models.Machine, len(in.Machines))
	copy(roster, in.Machines)
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })

	return &pass{
		e:        e,
		now:      now,
		tl:       NewTimeline(),
		roster:   roster,
		idx:      newTaskIndex(in.Jobs),
		byID:     make(map[uuid.UUID]*models.Assignment),
		finished: make(map[uuid.UUID]time.Time),
	}
}

// seedAnchors keeps in-progress and completed assignments of known jobs in
// place. Their tasks count as finished at the anchor's end.
func (p *pass) seedAnchors(current []models.Assignment) {
	for _, a := range current {
		if a.Status.Movable() {
			continue
		}
		if _, ok := p.idx.jobs[a.JobID]; !ok {
			continue
		}
		p.commit(a)
		p.tl.Add(a.Machine, bookingOf(a, true))
		p.finished[a.TaskID] = a.End
	}
}

func (p *pass) planJob(pj PrioritizedJob) {
	var prevEnd time.Time
	blocked := false

	for _, task := range Sequence(pj.Job.Tasks) {
		if end, ok := p.finished[task.ID]; ok {
			prevEnd, blocked = end, false
			continue
		}
		if task.IsDone(pj.Job.Quantity) {
			p.finished[task.ID] = p.now
			prevEnd, blocked = p.now, false
			continue
		}
		if blocked {
			p.fail(WarnPredecessorUnscheduled, pj, task, "previous operation could not be scheduled")
			continue
		}

		earliest := p.now
		if prevEnd.After(earliest) {
			earliest = prevEnd
		}

		a, ok := p.place(pj, task, earliest)
		if !ok {
			blocked = true
			continue
		}
		p.finished[task.ID] = a.End
		prevEnd = a.End
	}
}

type candidate struct {
	machine models.Machine
	est     Estimate
	start   time.Time
}

// place books task on the best machine, falling back to preemption for
// critical jobs.
func (p *pass) place(pj PrioritizedJob, task models.Task, earliest time.Time) (*models.Assignment, bool) {
	eligible, known := EligibleMachines(p.roster, task.Capability)
	if !known {
		p.warn(WarnUnknownCapability, pj, task, fmt.Sprintf("unknown capability %q, trying every active machine", task.Capability))
	}
	if len(eligible) == 0 {
		p.fail(WarnNoCompatibleMachine, pj, task, fmt.Sprintf("no active machine supports %q", task.Capability))
		return nil, false
	}

	if task.PreferredMachine != "" {
		for _, m := range eligible {
			if m.Name != task.PreferredMachine {
				continue
			}
			if c, ok := p.candidateOn(m, pj, task, earliest); ok {
				return p.book(pj, task, c), true
			}
		}
	}

	var best *candidate
	for _, m := range eligible {
		c, ok := p.candidateOn(m, pj, task, earliest)
		if ok && (best == nil || c.start.Before(best.start)) {
			best = &c
		}
	}
	if best != nil {
		return p.book(pj, task, *best), true
	}

	if pj.Critical(p.now, p.e.opts.CriticalWindow) {
		if a, ok := p.preempt(pj, task, eligible, earliest); ok {
			return a, true
		}
		p.fail(WarnPreemptionFailed, pj, task, fmt.Sprintf("no slot within %d days and no booking could be moved aside", p.e.opts.MaxWaitDays))
		return nil, false
	}

	p.fail(WarnUnschedulable, pj, task, fmt.Sprintf("no slot within %d days on %d compatible machines", p.e.opts.MaxWaitDays, len(eligible)))
	return nil, false
}

func (p *pass) candidateOn(m models.Machine, pj PrioritizedJob, task models.Task, earliest time.Time) (candidate, bool) {
	est := EstimateTask(task, pj.Job.Quantity, m)
	start, ok := p.e.finder.FindSlot(m, earliest, est.Total(), p.tl)
	return candidate{machine: m, est: est, start: start}, ok
}

func (p *pass) book(pj PrioritizedJob, task models.Task, c candidate) *models.Assignment {
	a := p.commit(p.newAssignment(pj, task, c))
	p.tl.Add(a.Machine, bookingOf(*a, false))
	return a
}

func (p *pass) newAssignment(pj PrioritizedJob, task models.Task, c candidate) models.Assignment {
	return models.Assignment{
		ID:            AssignmentID(pj.Job.ID, task.ID),
		JobID:         pj.Job.ID,
		TaskID:        task.ID,
		Machine:       c.machine.Name,
		Start:         c.start,
		End:           p.e.cal.AddWorkingMinutes(c.start, c.est.Total()),
		Quantity:      pj.Job.Quantity,
		RunMinutes:    c.est.Run,
		SetupMinutes:  c.est.Setup,
		BufferMinutes: c.est.Buffer,
		Status:        models.AssignmentPlanned,
		CreatedAt:     p.now,
		UpdatedAt:     p.now,
	}
}

func (p *pass) commit(a models.Assignment) *models.Assignment {
	ptr := &a
	p.byID[a.ID] = ptr
	return ptr
}

func bookingOf(a models.Assignment, locked bool) Booking {
	return Booking{
		AssignmentID: a.ID,
		JobID:        a.JobID,
		TaskID:       a.TaskID,
		Start:        a.Start,
		End:          a.End,
		Minutes:      a.TotalMinutes(),
		Locked:       locked,
	}
}

func (p *pass) warn(kind string, pj PrioritizedJob, task models.Task, msg string) {
	p.warnings = append(p.warnings, Warning{
		Kind:    kind,
		JobID:   pj.Job.ID,
		TaskID:  task.ID,
		Message: fmt.Sprintf("job %s operation %d: %s", pj.Job.Reference, task.Sequence, msg),
	})
}

// fail records a warning and an open alert for a task left unscheduled.
func (p *pass) fail(kind string, pj PrioritizedJob, task models.Task, msg string) {
	p.warn(kind, pj, task, msg)
	taskID := task.ID
	p.alerts = append(p.alerts, models.Alert{
		ID:        analysis.AlertID(models.AlertKindUnschedulable, pj.Job.ID, &taskID),
		Kind:      models.AlertKindUnschedulable,
		Severity:  models.SeverityMedium,
		JobID:     pj.Job.ID,
		TaskID:    &taskID,
		Message:   p.warnings[len(p.warnings)-1].Message,
		Status:    models.AlertStatusOpen,
		CreatedAt: p.now,
	})
}

func (p *pass) result(ordered []PrioritizedJob) *Result {
	res := &Result{
		Assignments: sortedAssignments(p.byID),
		Jobs:        make([]models.JobPlan, 0, len(ordered)),
		Warnings:    p.warnings,
		Alerts:      p.alerts,
	}
	if res.Warnings == nil {
		res.Warnings = []Warning{}
	}

	effective := make([]models.Job, 0, len(ordered))
	for _, pj := range ordered {
		res.Jobs = append(res.Jobs, pj.Plan)
		j := pj.Job
		j.Deadline = pj.Plan.EffectiveDeadline
		effective = append(effective, j)
	}
	res.Alerts = append(res.Alerts, analysis.DeadlineAlerts(effective, res.Assignments, p.now)...)
	return res
}

// sortedAssignments orders by start, then machine, then ID.
func sortedAssignments(byID map[uuid.UUID]*models.Assignment) []models.Assignment {
	out := make([]models.Assignment, 0, len(byID))
	for _, a := range byID {
		out = append(out, *a)
	}
	sortAssignments(out)
	return out
}

func sortAssignments(as []models.Assignment) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].Start.Equal(as[j].Start) {
			return as[i].Start.Before(as[j].Start)
		}
		if as[i].Machine != as[j].Machine {
			return as[i].Machine < as[j].Machine
		}
		return as[i].ID.String() < as[j].ID.String()
	})
}
