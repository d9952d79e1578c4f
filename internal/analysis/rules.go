// Package analysis holds the per-day booking rules shared by slot finding and
// the read-only plan analytics built on top of them.
package analysis

import (
	"time"
)

// Reasons a day rejects another booking.
const (
	RejectDayFull       = "day already holds the maximum number of bookings"
	RejectOverBudget    = "day budget exceeded"
	RejectClosedEarly   = "day closed by an early-ending booking"
	RejectEarlyNotAlone = "early-ending booking must be alone on its day"
)

// Rules are the machine-day constraints. A booking belongs to the day its
// start falls on.
type Rules struct {
	MaxBookingsPerDay int
	EarlyEndCutoff    time.Duration
	Loc               *time.Location
}

func DefaultRules(loc *time.Location) Rules {
	return Rules{MaxBookingsPerDay: 2, EarlyEndCutoff: 14 * time.Hour, Loc: loc}
}

func (r Rules) location() *time.Location {
	if r.Loc == nil {
		return time.UTC
	}
	return r.Loc
}

func (r Rules) DayKey(t time.Time) string {
	return t.In(r.location()).Format(time.DateOnly)
}

// EndsEarly reports whether end falls at or before the cutoff time of day.
func (r Rules) EndsEarly(end time.Time) bool {
	l := end.In(r.location())
	tod := time.Duration(l.Hour())*time.Hour + time.Duration(l.Minute())*time.Minute + time.Duration(l.Second())*time.Second
	return tod <= r.EarlyEndCutoff
}

// Day summarises the bookings that start on one machine-day.
type Day struct {
	Key      string `json:"day"`
	Bookings int    `json:"bookings"`
	Minutes  int    `json:"minutes"`
	EarlyEnd bool   `json:"early_end"`
}

// Add folds one booking into the day.
func (d *Day) Add(minutes int, endsEarly bool) {
	d.Bookings++
	d.Minutes += minutes
	d.EarlyEnd = d.EarlyEnd || endsEarly
}

// Reject returns why day cannot take a booking of minutes on a machine with
// the given daily budget, or "" if it can. A booking larger than the whole
// budget may only start on an empty day.
func (r Rules) Reject(day Day, budget, minutes int, endsEarly bool) string {
	switch {
	case day.Bookings >= r.MaxBookingsPerDay:
		return RejectDayFull
	case day.Bookings > 0 && day.Minutes+minutes > budget:
		return RejectOverBudget
	case day.EarlyEnd:
		return RejectClosedEarly
	case endsEarly && day.Bookings > 0:
		return RejectEarlyNotAlone
	}
	return ""
}

// Full reports whether no further booking of any size fits on day.
func (r Rules) Full(day Day, budget int) bool {
	return day.Bookings >= r.MaxBookingsPerDay || day.Minutes >= budget
}
