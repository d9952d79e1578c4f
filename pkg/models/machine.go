package models

import "time"

// Capabilities lists what a machine can be set up for. ThreeAxis and FourAxis
// refine Milling and mean nothing without it.
type Capabilities struct {
	Milling   bool `json:"milling"`
	ThreeAxis bool `json:"three_axis"`
	FourAxis  bool `json:"four_axis"`
	Turning   bool `json:"turning"`
}

type Machine struct {
	Name                string       `db:"name"                 json:"name"`
	Capabilities        Capabilities `db:"-"                    json:"capabilities"`
	Efficiency          float64      `db:"efficiency"           json:"efficiency"`
	DowntimeProbability float64      `db:"downtime_probability" json:"downtime_probability"`
	DailyBudgetMinutes  int          `db:"daily_budget_minutes" json:"daily_budget_minutes"`
	Active              bool         `db:"active"               json:"active"`
	CurrentSetup        Capability   `db:"current_setup"        json:"current_setup,omitempty"`
	UpdatedAt           time.Time    `db:"updated_at"           json:"updated_at"`
}
