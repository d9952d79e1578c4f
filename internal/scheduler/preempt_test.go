package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// preemptFixture books victim on M1 Sunday 08:00-13:00 and returns a pass
// ready to preempt it for critical.
func preemptFixture(t *testing.T, critical, victim models.Job, locked bool) (*pass, PrioritizedJob) {
	t.Helper()
	now := at("2026-10-18 07:00")
	e := testEngine(now, Options{})
	in := Input{Jobs: []models.Job{critical, victim}, Machines: []models.Machine{machine("M1", millAll)}}
	p := e.newPass(in, now)

	a := assignmentFor(victim, 1, "M1", at("2026-10-18 08:00"), at("2026-10-18 13:00"), 60, 240, models.AssignmentPlanned)
	p.commit(a)
	p.tl.Add("M1", bookingOf(a, locked))

	for _, pj := range Prioritize(in.Jobs, now) {
		if pj.Job.ID == critical.ID {
			return p, pj
		}
	}
	t.Fatal("critical job not prioritized")
	return nil, PrioritizedJob{}
}

func TestPreempt_ShiftsLowerPriorityBooking(t *testing.T) {
	now := at("2026-10-18 07:00")
	critical := job("CRIT", 1, now.AddDate(0, 0, 2), 1, task(models.CapabilityMilling3Axis, 480))
	victim := job("VICT", 2, now.AddDate(0, 0, 9), 1, task(models.CapabilityMilling3Axis, 240))
	p, pj := preemptFixture(t, critical, victim, false)

	a, ok := p.preempt(pj, critical.Tasks[0], p.roster, now)
	require.True(t, ok)
	assert.True(t, a.Start.Equal(at("2026-10-18 08:00")))
	assert.True(t, a.End.Equal(at("2026-10-19 09:00")))

	moved := p.byID[AssignmentID(victim.ID, victim.Tasks[0].ID)]
	assert.True(t, moved.Start.Equal(at("2026-10-19 09:00")))
	assert.True(t, moved.End.Equal(at("2026-10-19 14:00")))
	assert.Equal(t, "preempted by job CRIT", moved.RescheduleReason)
	require.NotNil(t, moved.RescheduledAt)
	assert.True(t, moved.RescheduledAt.Equal(now))
	assert.Equal(t, models.AssignmentPlanned, moved.Status)

	assert.True(t, checkOverlaps("M1", p.tl))
	assert.Len(t, p.tl.Bookings("M1"), 2)
}

func TestPreempt_Refused(t *testing.T) {
	now := at("2026-10-18 07:00")
	tests := []struct {
		name     string
		critical models.Job
		victim   models.Job
		locked   bool
	}{
		{
			name:     "victim is more important",
			critical: job("LATE", 2, now.AddDate(0, 0, -1), 1, task(models.CapabilityMilling3Axis, 480)),
			victim:   job("VIP", 1, now.AddDate(0, 0, 9), 1, task(models.CapabilityMilling3Axis, 240)),
		},
		{
			name:     "victim is locked",
			critical: job("CRIT", 1, now.AddDate(0, 0, 2), 1, task(models.CapabilityMilling3Axis, 480)),
			victim:   job("BUSY", 2, now.AddDate(0, 0, 9), 1, task(models.CapabilityMilling3Axis, 240)),
			locked:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, pj := preemptFixture(t, tt.critical, tt.victim, tt.locked)
			before := *p.byID[AssignmentID(tt.victim.ID, tt.victim.Tasks[0].ID)]

			_, ok := p.preempt(pj, tt.critical.Tasks[0], p.roster, now)
			assert.False(t, ok)

			after := p.byID[AssignmentID(tt.victim.ID, tt.victim.Tasks[0].ID)]
			assert.Equal(t, before, *after, "refused preemption leaves the victim alone")
			assert.Len(t, p.tl.Bookings("M1"), 1)
		})
	}
}

func TestSequenceHolds(t *testing.T) {
	now := at("2026-10-18 07:00")
	j := job("SEQ", 2, now.AddDate(0, 0, 9), 1,
		task(models.CapabilityMilling, 60),
		task(models.CapabilityMilling, 60),
		task(models.CapabilityMilling, 60))
	p := testEngine(now, Options{}).newPass(Input{Jobs: []models.Job{j}}, now)

	tl := NewTimeline()
	first := Booking{AssignmentID: AssignmentID(j.ID, j.Tasks[0].ID), JobID: j.ID, TaskID: j.Tasks[0].ID,
		Start: at("2026-10-18 08:00"), End: at("2026-10-18 10:00"), Minutes: 120}
	last := Booking{AssignmentID: AssignmentID(j.ID, j.Tasks[2].ID), JobID: j.ID, TaskID: j.Tasks[2].ID,
		Start: at("2026-10-18 13:00"), End: at("2026-10-18 14:00"), Minutes: 60}
	tl.Add("M1", first)
	tl.Add("M2", last)

	middle := func(start, end string) Booking {
		return Booking{JobID: j.ID, TaskID: j.Tasks[1].ID, Start: at(start), End: at(end), Minutes: 60}
	}
	tests := []struct {
		name string
		b    Booking
		want bool
	}{
		{"between neighbours", middle("2026-10-18 10:00", "2026-10-18 12:00"), true},
		{"before predecessor ends", middle("2026-10-18 09:00", "2026-10-18 11:00"), false},
		{"after successor starts", middle("2026-10-18 12:00", "2026-10-18 13:30"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.sequenceHolds(tl, tt.b); got != tt.want {
				t.Errorf("sequenceHolds = %v, want %v", got, tt.want)
			}
		})
	}

	// A finished predecessor outside the timeline still constrains the start.
	p.finished[j.Tasks[0].ID] = at("2026-10-18 11:00")
	tl.Remove("M1", first.AssignmentID)
	if p.sequenceHolds(tl, middle("2026-10-18 10:30", "2026-10-18 12:00")) {
		t.Error("expected finished predecessor to be honoured")
	}
}
