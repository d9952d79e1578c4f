package scheduler

import (
	"time"

	"github.com/kiranshivaraju/shopplan/internal/analysis"
	"github.com/kiranshivaraju/shopplan/internal/calendar"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// SlotFinder finds the first start instant on a machine that satisfies the
// working calendar, the machine-day rules and the no-overlap rule.
type SlotFinder struct {
	cal  *calendar.Calendar
	opts Options
}

func NewSlotFinder(cal *calendar.Calendar, opts Options) SlotFinder {
	return SlotFinder{cal: cal, opts: opts.withDefaults(cal.Location())}
}

// FindSlot returns the earliest acceptable start for a booking of minutes on
// m at or after earliest. It does not record the booking.
func (f SlotFinder) FindSlot(m models.Machine, earliest time.Time, minutes int, tl *Timeline) (time.Time, bool) {
	candidate := f.cal.NextWorkingInstant(earliest)
	limit := earliest.Add(time.Duration(f.opts.MaxWaitDays) * 24 * time.Hour)

	for i := 0; i < f.opts.MaxIterations; i++ {
		if candidate.After(limit) {
			return time.Time{}, false
		}
		end := f.cal.AddWorkingMinutes(candidate, minutes)

		day := f.day(m.Name, candidate, tl)
		if f.opts.Rules.Reject(day, m.DailyBudgetMinutes, minutes, f.opts.Rules.EndsEarly(end)) != "" {
			candidate = f.cal.NextWorkingDayStart(candidate)
			continue
		}

		conflicts := tl.Overlapping(m.Name, candidate, end)
		if len(conflicts) == 0 {
			return candidate, true
		}
		latest := conflicts[0].End
		for _, c := range conflicts[1:] {
			if c.End.After(latest) {
				latest = c.End
			}
		}
		candidate = f.cal.NextWorkingInstant(latest)
	}
	return time.Time{}, false
}

// day summarises the bookings on machine that start on t's date.
func (f SlotFinder) day(machine string, t time.Time, tl *Timeline) analysis.Day {
	key := f.opts.Rules.DayKey(t)
	d := analysis.Day{Key: key}
	for _, b := range tl.Bookings(machine) {
		if f.opts.Rules.DayKey(b.Start) == key {
			d.Add(b.Minutes, f.opts.Rules.EndsEarly(b.End))
		}
	}
	return d
}

// checkDays verifies every day of machine against the rules.
func (f SlotFinder) checkDays(m models.Machine, tl *Timeline) bool {
	days := make(map[string]*analysis.Day)
	for _, b := range tl.Bookings(m.Name) {
		key := f.opts.Rules.DayKey(b.Start)
		d, ok := days[key]
		if !ok {
			d = &analysis.Day{Key: key}
			days[key] = d
		}
		if f.opts.Rules.Reject(*d, m.DailyBudgetMinutes, b.Minutes, f.opts.Rules.EndsEarly(b.End)) != "" {
			return false
		}
		d.Add(b.Minutes, f.opts.Rules.EndsEarly(b.End))
	}
	return true
}

// checkOverlaps reports whether machine's bookings are pairwise disjoint.
func checkOverlaps(machine string, tl *Timeline) bool {
	var maxEnd time.Time
	for i, b := range tl.Bookings(machine) {
		if i > 0 && b.Start.Before(maxEnd) {
			return false
		}
		if b.End.After(maxEnd) {
			maxEnd = b.End
		}
	}
	return true
}
