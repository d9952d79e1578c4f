package scheduler

import (
	"time"

	"github.com/kiranshivaraju/shopplan/internal/analysis"
)

// Options tunes the engine. The zero value of any field takes its default.
type Options struct {
	Rules          analysis.Rules
	MaxWaitDays    int
	MaxIterations  int
	CriticalWindow time.Duration
}

func DefaultOptions() Options {
	return Options{
		Rules:          analysis.DefaultRules(nil),
		MaxWaitDays:    60,
		MaxIterations:  100,
		CriticalWindow: 3 * 24 * time.Hour,
	}
}

func (o Options) withDefaults(loc *time.Location) Options {
	d := DefaultOptions()
	if o.Rules.MaxBookingsPerDay <= 0 {
		o.Rules.MaxBookingsPerDay = d.Rules.MaxBookingsPerDay
	}
	if o.Rules.EarlyEndCutoff <= 0 {
		o.Rules.EarlyEndCutoff = d.Rules.EarlyEndCutoff
	}
	if o.Rules.Loc == nil {
		o.Rules.Loc = loc
	}
	if o.MaxWaitDays <= 0 {
		o.MaxWaitDays = d.MaxWaitDays
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.CriticalWindow <= 0 {
		o.CriticalWindow = d.CriticalWindow
	}
	return o
}
