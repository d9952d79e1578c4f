package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// MachineLoadStats aggregates one machine's bookings across the plan.
type MachineLoadStats struct {
	Machine          string  `json:"machine"`
	TotalMinutes     int     `json:"total_minutes"`
	Days             int     `json:"days"`
	FullyLoadedDays  int     `json:"fully_loaded_days"`
	BlockedDays      int     `json:"blocked_by_early_operations"`
	AverageOpsPerDay float64 `json:"average_operations_per_day"`
	LoadPercent      float64 `json:"load_percentage"`
	EarlyEndingOps   int     `json:"early_ending_operations"`
}

// DayLoads groups a machine's assignments by start day, sorted by day.
// Days without bookings are omitted.
func (r Rules) DayLoads(machine string, assignments []models.Assignment) []Day {
	byDay := make(map[string]*Day)
	for _, a := range assignments {
		if a.Machine != machine {
			continue
		}
		key := r.DayKey(a.Start)
		d, ok := byDay[key]
		if !ok {
			d = &Day{Key: key}
			byDay[key] = d
		}
		d.Add(a.TotalMinutes(), r.EndsEarly(a.End))
	}

	days := make([]Day, 0, len(byDay))
	for _, d := range byDay {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Key < days[j].Key })
	return days
}

// BlockedDays lists days closed to further bookings by an early-ending one.
func (r Rules) BlockedDays(machine string, assignments []models.Assignment) []string {
	out := []string{}
	for _, d := range r.DayLoads(machine, assignments) {
		if d.EarlyEnd {
			out = append(out, d.Key)
		}
	}
	return out
}

// FullyLoadedDays lists days that hold the maximum bookings or the whole budget.
func (r Rules) FullyLoadedDays(m models.Machine, assignments []models.Assignment) []string {
	out := []string{}
	for _, d := range r.DayLoads(m.Name, assignments) {
		if r.Full(d, m.DailyBudgetMinutes) {
			out = append(out, d.Key)
		}
	}
	return out
}

// CanAddOnDay reports whether a booking of minutes would pass the day rules
// on day. The early-end rule for the candidate itself is not checked since its
// end is unknown here.
func (r Rules) CanAddOnDay(m models.Machine, day time.Time, minutes int, assignments []models.Assignment) bool {
	key := r.DayKey(day)
	var d Day
	for _, x := range r.DayLoads(m.Name, assignments) {
		if x.Key == key {
			d = x
			break
		}
	}
	return r.Reject(d, m.DailyBudgetMinutes, minutes, false) == ""
}

// MachineLoad computes load statistics for every machine, in roster order.
func (r Rules) MachineLoad(machines []models.Machine, assignments []models.Assignment) []MachineLoadStats {
	stats := make([]MachineLoadStats, 0, len(machines))
	for _, m := range machines {
		s := MachineLoadStats{Machine: m.Name}
		days := r.DayLoads(m.Name, assignments)
		ops := 0
		for _, d := range days {
			s.TotalMinutes += d.Minutes
			ops += d.Bookings
			if r.Full(d, m.DailyBudgetMinutes) {
				s.FullyLoadedDays++
			}
			if d.EarlyEnd {
				s.BlockedDays++
			}
		}
		for _, a := range assignments {
			if a.Machine == m.Name && r.EndsEarly(a.End) {
				s.EarlyEndingOps++
			}
		}

		s.Days = len(days)
		if s.Days > 0 {
			s.AverageOpsPerDay = round2(float64(ops) / float64(s.Days))
			if r.MaxBookingsPerDay > 0 {
				s.LoadPercent = round2(float64(ops) / float64(s.Days) / float64(r.MaxBookingsPerDay) * 100)
			}
		}
		stats = append(stats, s)
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
