package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// SetupCompletion reports that setup for an assignment finished on the floor.
type SetupCompletion struct {
	AssignmentID       uuid.UUID
	ActualSetupMinutes int
	ActualStart        *time.Time
	NewMachine         string
}

// AssignmentEdit is a manual change to one assignment. Nil and empty fields
// are left as they are.
type AssignmentEdit struct {
	AssignmentID uuid.UUID
	Start        *time.Time
	Machine      string
	SetupMinutes *int
	RunMinutes   *int
}

// ReplanResult is the full assignment set after a replan, plus every
// assignment the replan changed and the caller must persist.
type ReplanResult struct {
	Assignments []models.Assignment `json:"assignments"`
	Updated     models.Assignment   `json:"updated"`
	Shifted     []models.Assignment `json:"shifted"`
	Warnings    []Warning           `json:"warnings"`
}

// replan holds the working copy of one replanning operation.
type replan struct {
	e        *Engine
	now      time.Time
	tl       *Timeline
	idx      taskIndex
	machines map[string]models.Machine
	set      []models.Assignment
	byTask   map[uuid.UUID]*models.Assignment
	shifted  map[uuid.UUID]bool
	warnings []Warning
}

func (e *Engine) newReplan(in Input) *replan {
	r := &replan{
		e:        e,
		now:      e.now(),
		tl:       NewTimeline(),
		idx:      newTaskIndex(in.Jobs),
		machines: make(map[string]models.Machine, len(in.Machines)),
		set:      make([]models.Assignment, len(in.Assignments)),
		byTask:   make(map[uuid.UUID]*models.Assignment, len(in.Assignments)),
		shifted:  make(map[uuid.UUID]bool),
	}
	for _, m := range in.Machines {
		r.machines[m.Name] = m
	}
	copy(r.set, in.Assignments)
	for i := range r.set {
		r.byTask[r.set[i].TaskID] = &r.set[i]
	}
	return r
}

func (r *replan) find(id uuid.UUID) (*models.Assignment, error) {
	for i := range r.set {
		if r.set[i].ID == id {
			return &r.set[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
}

// CompleteSetup records the actual setup of an assignment, marks it in
// progress and re-places every movable assignment on the machines it touched.
// Work is done on a copy of in; the result is all or nothing.
func (e *Engine) CompleteSetup(ctx context.Context, ev SetupCompletion, in Input) (*ReplanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("complete setup: %w", err)
	}
	if ev.ActualSetupMinutes < 0 {
		return nil, fmt.Errorf("%w: negative setup minutes", ErrInvalidEdit)
	}

	r := e.newReplan(in)
	target, err := r.find(ev.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !target.Status.Movable() {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, target.Status, models.AssignmentInProgress)
	}
	if ev.NewMachine != "" {
		if _, ok := r.machines[ev.NewMachine]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, ev.NewMachine)
		}
	}

	before := *target
	oldMachine := target.Machine
	target.SetupMinutes = ev.ActualSetupMinutes
	target.Status = models.AssignmentInProgress
	if ev.ActualStart != nil {
		target.Start = *ev.ActualStart
	}
	if ev.NewMachine != "" && ev.NewMachine != oldMachine {
		target.Machine = ev.NewMachine
		target.RescheduleReason = fmt.Sprintf("moved from %s to %s at setup", oldMachine, ev.NewMachine)
		at := r.now
		target.RescheduledAt = &at
	}
	target.End = e.cal.AddWorkingMinutes(target.Start, target.TotalMinutes())
	target.UpdatedAt = r.now
	r.markShifted(before, *target)

	affected := map[string]bool{oldMachine: true, target.Machine: true}
	reason := fmt.Sprintf("setup on %s took %d min", target.Machine, ev.ActualSetupMinutes)

	var movable []*models.Assignment
	for i := range r.set {
		a := &r.set[i]
		if affected[a.Machine] && a.Status.Movable() {
			movable = append(movable, a)
			continue
		}
		r.tl.Add(a.Machine, bookingOf(*a, !a.Status.Movable()))
	}
	r.checkAnchors(target)
	sort.SliceStable(movable, func(i, j int) bool {
		if !movable[i].Start.Equal(movable[j].Start) {
			return movable[i].Start.Before(movable[j].Start)
		}
		return movable[i].ID.String() < movable[j].ID.String()
	})

	for _, a := range movable {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("complete setup: %w", err)
		}
		r.replace(a, r.earliest(a), reason)
	}

	// Successors on untouched machines may now start too early.
	r.cascade(target, false, reason)
	for _, a := range movable {
		r.cascade(a, false, reason)
	}

	return r.result(*target), nil
}

// EditAssignment applies a manual edit and re-places the later operations of
// the same job behind it.
func (e *Engine) EditAssignment(ctx context.Context, edit AssignmentEdit, in Input) (*ReplanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("edit assignment: %w", err)
	}
	if (edit.SetupMinutes != nil && *edit.SetupMinutes < 0) || (edit.RunMinutes != nil && *edit.RunMinutes < 0) {
		return nil, fmt.Errorf("%w: negative minutes", ErrInvalidEdit)
	}

	r := e.newReplan(in)
	target, err := r.find(edit.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !target.Status.Movable() {
		return nil, fmt.Errorf("%w: cannot edit %s assignment", ErrInvalidTransition, target.Status)
	}
	if edit.Machine != "" {
		if _, ok := r.machines[edit.Machine]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, edit.Machine)
		}
	}

	before := *target
	if edit.Start != nil {
		target.Start = *edit.Start
	}
	if edit.Machine != "" {
		target.Machine = edit.Machine
	}
	if edit.SetupMinutes != nil {
		target.SetupMinutes = *edit.SetupMinutes
	}
	if edit.RunMinutes != nil {
		target.RunMinutes = *edit.RunMinutes
	}
	target.Start = e.cal.NextWorkingInstant(target.Start)
	target.End = e.cal.AddWorkingMinutes(target.Start, target.TotalMinutes())

	if prev, ok := r.idx.prev[target.TaskID]; ok {
		if pa := r.byTask[prev]; pa != nil && target.Start.Before(pa.End) {
			return nil, fmt.Errorf("%w: starts before the previous operation ends at %s", ErrInvalidEdit, pa.End.Format(time.RFC3339))
		}
	}

	successors := make(map[uuid.UUID]bool)
	for _, id := range r.idx.next[target.TaskID] {
		successors[id] = true
	}
	for i := range r.set {
		a := &r.set[i]
		if a.ID == target.ID || (successors[a.TaskID] && a.Status.Movable()) {
			continue
		}
		r.tl.Add(a.Machine, bookingOf(*a, !a.Status.Movable()))
	}
	if conflicts := r.tl.Overlapping(target.Machine, target.Start, target.End); len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %s overlaps %d booking(s) on %s", ErrSlotConflict, target.ID, len(conflicts), target.Machine)
	}
	m := r.machines[target.Machine]
	if t, ok := r.idx.tasks[target.TaskID]; ok {
		if compatible, known := Compatible(m, t.Capability); known && !compatible {
			return nil, fmt.Errorf("%w: %s cannot do %s", ErrInvalidEdit, m.Name, t.Capability)
		}
	}
	rules := e.opts.Rules
	day := e.finder.day(target.Machine, target.Start, r.tl)
	if why := rules.Reject(day, m.DailyBudgetMinutes, target.TotalMinutes(), rules.EndsEarly(target.End)); why != "" {
		return nil, fmt.Errorf("%w: %s on %s: %s", ErrSlotConflict, target.Machine, day.Key, why)
	}

	target.Status = models.AssignmentRescheduled
	target.RescheduleReason = "manual edit"
	at := r.now
	target.RescheduledAt = &at
	target.UpdatedAt = r.now
	r.tl.Add(target.Machine, bookingOf(*target, false))
	r.markShifted(before, *target)

	r.cascade(target, true, fmt.Sprintf("previous operation edited (%s)", target.Machine))
	return r.result(*target), nil
}

// earliest is the first instant a can start: now, or the end of its job predecessor.
func (r *replan) earliest(a *models.Assignment) time.Time {
	earliest := r.now
	if prev, ok := r.idx.prev[a.TaskID]; ok {
		if pa := r.byTask[prev]; pa != nil && pa.End.After(earliest) {
			earliest = pa.End
		}
	}
	return earliest
}

// replace finds a new slot for a, which must not be on the timeline. If none
// exists a stays where it was and is locked there.
func (r *replan) replace(a *models.Assignment, earliest time.Time, reason string) bool {
	m, ok := r.machines[a.Machine]
	if ok {
		if start, found := r.e.finder.FindSlot(m, earliest, a.TotalMinutes(), r.tl); found {
			before := *a
			a.Start = start
			a.End = r.e.cal.AddWorkingMinutes(start, a.TotalMinutes())
			a.Status = models.AssignmentRescheduled
			a.RescheduleReason = reason
			at := r.now
			a.RescheduledAt = &at
			a.UpdatedAt = r.now
			r.tl.Add(a.Machine, bookingOf(*a, false))
			r.markShifted(before, *a)
			return true
		}
	}

	r.warnings = append(r.warnings, Warning{
		Kind:    WarnReplanExhausted,
		JobID:   a.JobID,
		TaskID:  a.TaskID,
		Message: fmt.Sprintf("assignment %s on %s: no new slot found, kept at %s", a.ID, a.Machine, a.Start.Format(time.RFC3339)),
	})
	r.tl.Add(a.Machine, bookingOf(*a, true))
	return false
}

// cascade walks the job successors of from. Without force it stops at the
// first successor that already starts late enough.
func (r *replan) cascade(from *models.Assignment, force bool, reason string) {
	prevEnd := from.End
	for _, id := range r.idx.next[from.TaskID] {
		succ := r.byTask[id]
		if succ == nil {
			return
		}
		if !force && !succ.Start.Before(prevEnd) {
			return
		}
		if !succ.Status.Movable() {
			if succ.Start.Before(prevEnd) {
				r.warnings = append(r.warnings, Warning{
					Kind:    WarnReplanExhausted,
					JobID:   succ.JobID,
					TaskID:  succ.TaskID,
					Message: fmt.Sprintf("assignment %s is %s and starts before its previous operation ends", succ.ID, succ.Status),
				})
			}
			return
		}

		r.tl.Remove(succ.Machine, succ.ID)
		earliest := r.now
		if prevEnd.After(earliest) {
			earliest = prevEnd
		}
		if !r.replace(succ, earliest, reason) {
			return
		}
		prevEnd = succ.End
	}
}

// checkAnchors warns when target overlaps a locked booking on its machine.
// Setup already happened, so target stays where the floor reported it.
func (r *replan) checkAnchors(target *models.Assignment) {
	for _, b := range r.tl.Overlapping(target.Machine, target.Start, target.End) {
		if b.AssignmentID == target.ID || !b.Locked {
			continue
		}
		r.warnings = append(r.warnings, Warning{
			Kind:    WarnAnchorOverlap,
			JobID:   target.JobID,
			TaskID:  target.TaskID,
			Message: fmt.Sprintf("assignment %s on %s overlaps locked assignment %s (%s to %s)", target.ID, target.Machine, b.AssignmentID, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339)),
		})
	}
}

// markShifted records after as changed if any persisted field differs from before.
func (r *replan) markShifted(before, after models.Assignment) {
	if !before.Start.Equal(after.Start) || !before.End.Equal(after.End) ||
		before.Machine != after.Machine || before.Status != after.Status ||
		before.SetupMinutes != after.SetupMinutes || before.RunMinutes != after.RunMinutes ||
		before.RescheduleReason != after.RescheduleReason || !sameInstant(before.RescheduledAt, after.RescheduledAt) {
		r.shifted[after.ID] = true
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (r *replan) result(updated models.Assignment) *ReplanResult {
	res := &ReplanResult{
		Assignments: r.set,
		Updated:     updated,
		Shifted:     []models.Assignment{},
		Warnings:    r.warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []Warning{}
	}
	for _, a := range r.set {
		if r.shifted[a.ID] {
			res.Shifted = append(res.Shifted, a)
		}
	}
	sortAssignments(res.Assignments)
	sortAssignments(res.Shifted)
	return res
}
