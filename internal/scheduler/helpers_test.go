package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/internal/analysis"
	"github.com/kiranshivaraju/shopplan/internal/calendar"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

var plantTZ = time.FixedZone("IST", 3*60*60)

// at parses "2006-01-02 15:04" in the plant zone. 2026-10-18 is a Sunday.
func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, plantTZ)
	if err != nil {
		panic(err)
	}
	return t
}

func testCalendar() *calendar.Calendar {
	return calendar.New(plantTZ, calendar.IsraeliWeek(), nil)
}

func testEngine(now time.Time, opts Options) *Engine {
	return New(testCalendar(), opts, WithClock(func() time.Time { return now }))
}

func machine(name string, caps models.Capabilities) models.Machine {
	return models.Machine{
		Name:               name,
		Capabilities:       caps,
		Efficiency:         1,
		DailyBudgetMinutes: 960,
		Active:             true,
	}
}

var (
	millAll  = models.Capabilities{Milling: true, ThreeAxis: true, FourAxis: true}
	turnOnly = models.Capabilities{Turning: true}
)

func job(ref string, priority int, deadline time.Time, qty int, tasks ...models.Task) models.Job {
	j := models.Job{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(ref)), Reference: ref, Quantity: qty, Deadline: deadline, Priority: priority}
	for i := range tasks {
		tasks[i].JobID = j.ID
		if tasks[i].Sequence == 0 {
			tasks[i].Sequence = i + 1
		}
		tasks[i].ID = uuid.NewSHA1(j.ID, []byte{byte(tasks[i].Sequence)})
	}
	j.Tasks = tasks
	return j
}

func task(c models.Capability, minutesPerUnit float64) models.Task {
	return models.Task{Capability: c, MinutesPerUnit: minutesPerUnit}
}

func assignmentFor(j models.Job, seq int, machine string, start, end time.Time, setup, run int, status models.AssignmentStatus) models.Assignment {
	t := j.Tasks[seq-1]
	return models.Assignment{
		ID:           AssignmentID(j.ID, t.ID),
		JobID:        j.ID,
		TaskID:       t.ID,
		Machine:      machine,
		Start:        start,
		End:          end,
		Quantity:     j.Quantity,
		SetupMinutes: setup,
		RunMinutes:   run,
		Status:       status,
	}
}

func byTask(as []models.Assignment) map[uuid.UUID]models.Assignment {
	out := make(map[uuid.UUID]models.Assignment, len(as))
	for _, a := range as {
		out[a.TaskID] = a
	}
	return out
}

// checkInvariants asserts the booking properties every published set must hold.
func checkInvariants(t *testing.T, jobs []models.Job, machines []models.Machine, as []models.Assignment, now time.Time) {
	t.Helper()
	rules := analysis.DefaultRules(plantTZ)

	perMachine := make(map[string][]models.Assignment)
	for _, a := range as {
		perMachine[a.Machine] = append(perMachine[a.Machine], a)
	}

	// no double booking
	for m, list := range perMachine {
		for i := range list {
			for k := i + 1; k < len(list); k++ {
				if list[i].Start.Before(list[k].End) && list[k].Start.Before(list[i].End) {
					t.Errorf("machine %s: %s and %s overlap", m, list[i].ID, list[k].ID)
				}
			}
		}
	}

	// daily cap and early-end exclusivity
	for _, m := range machines {
		for _, d := range rules.DayLoads(m.Name, as) {
			if d.Bookings > 2 {
				t.Errorf("machine %s day %s has %d bookings", m.Name, d.Key, d.Bookings)
			}
			if d.Bookings > 1 && d.Minutes > m.DailyBudgetMinutes {
				t.Errorf("machine %s day %s books %d minutes", m.Name, d.Key, d.Minutes)
			}
			if d.EarlyEnd && d.Bookings > 1 {
				t.Errorf("machine %s day %s has an early-ending booking that is not alone", m.Name, d.Key)
			}
		}
	}

	// sequence
	got := byTask(as)
	for _, j := range jobs {
		seq := Sequence(j.Tasks)
		for i := 1; i < len(seq); i++ {
			cur, ok := got[seq[i].ID]
			if !ok {
				continue
			}
			prevEnd := now
			if prev, ok := got[seq[i-1].ID]; ok {
				prevEnd = prev.End
			}
			if cur.Start.Before(prevEnd) {
				t.Errorf("job %s op %d starts %v before previous op ends %v", j.Reference, seq[i].Sequence, cur.Start, prevEnd)
			}
		}
	}
}
