package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

var plantTZ = time.FixedZone("IST", 3*60*60)

func at(day, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, plantTZ)
	if err != nil {
		panic(err)
	}
	return t
}

func testCalendar(holidays ...time.Time) *Calendar {
	return New(plantTZ, IsraeliWeek(), holidays)
}

func TestIsWorkingInstant(t *testing.T) {
	c := testCalendar(at("2026-10-20", "00:00"))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"sunday morning", at("2026-10-18", "09:00"), true},
		{"sunday before open", at("2026-10-18", "07:59"), false},
		{"sunday at close", at("2026-10-18", "16:00"), false},
		{"friday short day", at("2026-10-16", "13:59"), true},
		{"friday after short close", at("2026-10-16", "14:00"), false},
		{"saturday", at("2026-10-17", "10:00"), false},
		{"holiday", at("2026-10-20", "10:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsWorkingInstant(tt.at); got != tt.want {
				t.Errorf("IsWorkingInstant(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestNextWorkingInstant(t *testing.T) {
	c := testCalendar(at("2026-10-20", "00:00"))

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"inside window unchanged", at("2026-10-18", "10:30"), at("2026-10-18", "10:30")},
		{"early snaps to open", at("2026-10-18", "06:00"), at("2026-10-18", "08:00")},
		{"after close rolls to next day", at("2026-10-18", "17:00"), at("2026-10-19", "08:00")},
		{"friday afternoon skips saturday", at("2026-10-16", "15:00"), at("2026-10-18", "08:00")},
		{"saturday to sunday", at("2026-10-17", "09:00"), at("2026-10-18", "08:00")},
		{"skips holiday", at("2026-10-19", "16:30"), at("2026-10-21", "08:00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.NextWorkingInstant(tt.from); !got.Equal(tt.want) {
				t.Errorf("NextWorkingInstant(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestAddWorkingMinutes(t *testing.T) {
	c := testCalendar()

	tests := []struct {
		name    string
		start   time.Time
		minutes int
		want    time.Time
	}{
		{"fits in first day", at("2026-10-18", "08:00"), 120, at("2026-10-18", "10:00")},
		{"fills whole day", at("2026-10-18", "08:00"), 480, at("2026-10-18", "16:00")},
		{"partial first day rolls over", at("2026-10-18", "14:00"), 180, at("2026-10-19", "09:00")},
		{"thursday into friday short day", at("2026-10-22", "12:00"), 480, at("2026-10-23", "12:00")},
		{"friday over weekend", at("2026-10-23", "13:00"), 120, at("2026-10-25", "09:00")},
		{"start outside window is snapped", at("2026-10-17", "11:00"), 60, at("2026-10-18", "09:00")},
		{"zero minutes", at("2026-10-18", "09:15"), 0, at("2026-10-18", "09:15")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.AddWorkingMinutes(tt.start, tt.minutes); !got.Equal(tt.want) {
				t.Errorf("AddWorkingMinutes(%v, %d) = %v, want %v", tt.start, tt.minutes, got, tt.want)
			}
		})
	}
}

func TestHours(t *testing.T) {
	c := testCalendar(at("2026-10-20", "00:00"))

	tests := []struct {
		name string
		day  time.Time
		want time.Duration
	}{
		{"sunday", at("2026-10-18", "00:00"), 8 * time.Hour},
		{"friday", at("2026-10-23", "00:00"), 6 * time.Hour},
		{"saturday", at("2026-10-24", "00:00"), 0},
		{"holiday", at("2026-10-20", "00:00"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := c.Hours(tt.day)
			var got time.Duration
			if h.Working() {
				got = h.End - h.Start
			}
			if got != tt.want {
				t.Errorf("Hours(%v) spans %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func TestParseWeek(t *testing.T) {
	w, err := ParseWeek("sun-thu 08:00-16:00; fri 08:00-14:00")
	if err != nil {
		t.Fatalf("ParseWeek: %v", err)
	}
	if w != IsraeliWeek() {
		t.Errorf("ParseWeek = %+v, want IsraeliWeek", w)
	}

	w, err = ParseWeek("fri-sun 07:00-15:00")
	if err != nil {
		t.Fatalf("ParseWeek wrapping range: %v", err)
	}
	if !w[time.Saturday].Working() || !w[time.Sunday].Working() || w[time.Monday].Working() {
		t.Errorf("wrapping range parsed wrong: %+v", w)
	}

	bad := []string{"sun 08:00", "xyz 08:00-16:00", "mon 16:00-08:00", "mon 8-16"}
	for _, s := range bad {
		if _, err := ParseWeek(s); err == nil {
			t.Errorf("ParseWeek(%q) expected error", s)
		}
	}
}

type stubSource struct {
	days map[int][]time.Time
	err  error
}

func (s stubSource) Holidays(_ context.Context, year int) ([]time.Time, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.days[year], nil
}

func TestLoad(t *testing.T) {
	src := stubSource{days: map[int][]time.Time{
		2026: {at("2026-10-19", "00:00")},
		2027: {at("2027-04-22", "00:00")},
	}}
	c, err := Load(context.Background(), src, plantTZ, IsraeliWeek(), 2026, 2027)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.IsWorkingDay(at("2026-10-19", "10:00")) {
		t.Error("expected 2026-10-19 to be a holiday")
	}
	if c.IsWorkingDay(at("2027-04-22", "10:00")) {
		t.Error("expected 2027-04-22 to be a holiday")
	}

	boom := errors.New("boom")
	if _, err := Load(context.Background(), stubSource{err: boom}, plantTZ, IsraeliWeek(), 2026); !errors.Is(err, boom) {
		t.Errorf("Load error = %v, want wrapped boom", err)
	}
}
