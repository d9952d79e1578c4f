package scheduler

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Booking is one occupied interval on a machine.
type Booking struct {
	AssignmentID uuid.UUID
	JobID        uuid.UUID
	TaskID       uuid.UUID
	Start        time.Time
	End          time.Time
	Minutes      int
	// Locked bookings are in progress or completed and never move.
	Locked bool
}

func (b Booking) overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// Timeline is the per-machine ordered list of bookings a single planning or
// replanning pass reads and writes. It is not safe for concurrent use; each
// pass owns its own.
type Timeline struct {
	machines map[string][]Booking
}

func NewTimeline() *Timeline {
	return &Timeline{machines: make(map[string][]Booking)}
}

// Bookings returns machine's bookings ordered by start. The slice must not be modified.
func (t *Timeline) Bookings(machine string) []Booking {
	return t.machines[machine]
}

// Add inserts b keeping start order; equal starts keep insertion order.
func (t *Timeline) Add(machine string, b Booking) {
	bs := t.machines[machine]
	i := sort.Search(len(bs), func(i int) bool { return bs[i].Start.After(b.Start) })
	bs = append(bs, Booking{})
	copy(bs[i+1:], bs[i:])
	bs[i] = b
	t.machines[machine] = bs
}

// Remove deletes the booking for assignmentID from machine.
func (t *Timeline) Remove(machine string, assignmentID uuid.UUID) (Booking, bool) {
	bs := t.machines[machine]
	for i, b := range bs {
		if b.AssignmentID == assignmentID {
			t.machines[machine] = append(bs[:i:i], bs[i+1:]...)
			return b, true
		}
	}
	return Booking{}, false
}

// FindTask locates the booking for taskID on any machine.
func (t *Timeline) FindTask(taskID uuid.UUID) (string, Booking, bool) {
	for m, bs := range t.machines {
		for _, b := range bs {
			if b.TaskID == taskID {
				return m, b, true
			}
		}
	}
	return "", Booking{}, false
}

// Overlapping returns machine's bookings intersecting [start, end).
func (t *Timeline) Overlapping(machine string, start, end time.Time) []Booking {
	var out []Booking
	for _, b := range t.machines[machine] {
		if b.overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out
}

func (t *Timeline) Clone() *Timeline {
	c := NewTimeline()
	for m, bs := range t.machines {
		c.machines[m] = append([]Booking(nil), bs...)
	}
	return c
}
