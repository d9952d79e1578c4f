// Package calendar answers working-time questions for the plant: which
// instants are inside a working period and how far a number of working
// minutes reaches from a given start.
package calendar

import (
	"context"
	"fmt"
	"time"
)

// maxScanDays bounds every forward search for a working day.
const maxScanDays = 400

// HolidaySource supplies full-day holidays for a year.
type HolidaySource interface {
	Holidays(ctx context.Context, year int) ([]time.Time, error)
}

// Calendar is immutable after construction and safe for concurrent use.
type Calendar struct {
	loc      *time.Location
	week     Week
	holidays map[string]struct{}
}

func New(loc *time.Location, week Week, holidays []time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{loc: loc, week: week, holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[c.DayKey(h)] = struct{}{}
	}
	return c
}

// Load builds a Calendar with the holidays src reports for each of years.
func Load(ctx context.Context, src HolidaySource, loc *time.Location, week Week, years ...int) (*Calendar, error) {
	var all []time.Time
	for _, y := range years {
		hs, err := src.Holidays(ctx, y)
		if err != nil {
			return nil, fmt.Errorf("load holidays %d: %w", y, err)
		}
		all = append(all, hs...)
	}
	return New(loc, week, all), nil
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DayKey identifies t's calendar date in the plant time zone.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format(time.DateOnly)
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[c.DayKey(t)]
	return ok
}

// Hours returns the working window for t's date, zero on rest days and holidays.
func (c *Calendar) Hours(t time.Time) DayHours {
	if c.IsHoliday(t) {
		return DayHours{}
	}
	return c.week[t.In(c.loc).Weekday()]
}

func (c *Calendar) IsWorkingDay(t time.Time) bool {
	return c.Hours(t).Working()
}

// At returns the instant at offset off on t's date.
func (c *Calendar) At(t time.Time, off time.Duration) time.Time {
	l := t.In(c.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), int(off/time.Hour), int(off%time.Hour/time.Minute), 0, 0, c.loc)
}

// DayStart and DayEnd bound the working window of t's date. They are only
// meaningful on working days.
func (c *Calendar) DayStart(t time.Time) time.Time {
	return c.At(t, c.Hours(t).Start)
}

func (c *Calendar) DayEnd(t time.Time) time.Time {
	return c.At(t, c.Hours(t).End)
}

func (c *Calendar) IsWorkingInstant(t time.Time) bool {
	h := c.Hours(t)
	if !h.Working() {
		return false
	}
	return !t.Before(c.At(t, h.Start)) && t.Before(c.At(t, h.End))
}

// NextWorkingInstant returns t if it is inside a working period, the start
// of t's working window if t is earlier that day, and otherwise the start of
// the next working day.
func (c *Calendar) NextWorkingInstant(t time.Time) time.Time {
	t = t.In(c.loc)
	h := c.Hours(t)
	if h.Working() {
		start, end := c.At(t, h.Start), c.At(t, h.End)
		if t.Before(start) {
			return start
		}
		if t.Before(end) {
			return t
		}
	}
	return c.NextWorkingDayStart(t)
}

// NextWorkingDayStart returns the start of the first working day after t's date.
func (c *Calendar) NextWorkingDayStart(t time.Time) time.Time {
	l := t.In(c.loc)
	day := time.Date(l.Year(), l.Month(), l.Day(), 12, 0, 0, 0, c.loc)
	for i := 0; i < maxScanDays; i++ {
		day = day.AddDate(0, 0, 1)
		if c.IsWorkingDay(day) {
			return c.DayStart(day)
		}
	}
	// A week with no working days at all; nothing sensible to return.
	return day
}

// AddWorkingMinutes walks forward from start consuming minutes of working
// time. The first day is consumed from start's time of day; later days from
// their window start.
func (c *Calendar) AddWorkingMinutes(start time.Time, minutes int) time.Time {
	t := c.NextWorkingInstant(start)
	remaining := minutes
	for i := 0; i < maxScanDays*2; i++ {
		if remaining <= 0 {
			return t
		}
		avail := int(c.DayEnd(t).Sub(t) / time.Minute)
		if remaining <= avail {
			return t.Add(time.Duration(remaining) * time.Minute)
		}
		remaining -= avail
		t = c.NextWorkingDayStart(t)
	}
	return t
}
