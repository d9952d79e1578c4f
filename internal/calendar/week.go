package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DayHours is the working window of one weekday, as offsets from midnight.
// A zero value is a rest day.
type DayHours struct {
	Start time.Duration
	End   time.Duration
}

func (d DayHours) Working() bool {
	return d.End > d.Start
}

// Week is indexed by time.Weekday.
type Week [7]DayHours

// IsraeliWeek is Sunday to Thursday 08:00-16:00, Friday 08:00-14:00, Saturday off.
func IsraeliWeek() Week {
	long := DayHours{Start: 8 * time.Hour, End: 16 * time.Hour}
	short := DayHours{Start: 8 * time.Hour, End: 14 * time.Hour}
	return Week{
		time.Sunday:    long,
		time.Monday:    long,
		time.Tuesday:   long,
		time.Wednesday: long,
		time.Thursday:  long,
		time.Friday:    short,
	}
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeek parses a pattern such as "sun-thu 08:00-16:00; fri 08:00-14:00".
// Days that are not mentioned are rest days.
func ParseWeek(s string) (Week, error) {
	var w Week
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return Week{}, fmt.Errorf("parse week %q: want \"<days> <hh:mm>-<hh:mm>\"", part)
		}

		from, to, err := parseDayRange(strings.ToLower(fields[0]))
		if err != nil {
			return Week{}, err
		}
		hours, err := parseHours(fields[1])
		if err != nil {
			return Week{}, err
		}

		for d := from; ; d = (d + 1) % 7 {
			w[d] = hours
			if d == to {
				break
			}
		}
	}
	return w, nil
}

func parseDayRange(s string) (time.Weekday, time.Weekday, error) {
	first, last, isRange := strings.Cut(s, "-")
	from, ok := weekdays[first]
	if !ok {
		return 0, 0, fmt.Errorf("parse week: unknown day %q", first)
	}
	if !isRange {
		return from, from, nil
	}
	to, ok := weekdays[last]
	if !ok {
		return 0, 0, fmt.Errorf("parse week: unknown day %q", last)
	}
	return from, to, nil
}

func parseHours(s string) (DayHours, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return DayHours{}, fmt.Errorf("parse week: bad hours %q", s)
	}
	st, err := ParseClock(start)
	if err != nil {
		return DayHours{}, err
	}
	en, err := ParseClock(end)
	if err != nil {
		return DayHours{}, err
	}
	if en <= st {
		return DayHours{}, fmt.Errorf("parse week: hours %q end before start", s)
	}
	return DayHours{Start: st, End: en}, nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
