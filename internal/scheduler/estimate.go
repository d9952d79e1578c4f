package scheduler

import (
	"math"

	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// baseSetupMinutes is the setup time per capability before the same-type discount.
var baseSetupMinutes = map[models.Capability]int{
	models.CapabilityMilling4Axis: 90,
	models.CapabilityMilling3Axis: 60,
	models.CapabilityMilling:      45,
	models.CapabilityTurning:      30,
}

const (
	defaultSetupMinutes = 60
	sameSetupFactor     = 0.3
)

// Estimate is the working time a task needs on a particular machine, in minutes.
type Estimate struct {
	Run    int
	Setup  int
	Buffer int
}

func (e Estimate) Total() int {
	return e.Run + e.Setup + e.Buffer
}

// SetupMinutes returns the setup time for capability c on m.
func SetupMinutes(c models.Capability, m models.Machine) int {
	base, ok := baseSetupMinutes[c]
	if !ok {
		base = defaultSetupMinutes
	}
	if m.CurrentSetup != "" && m.CurrentSetup == c {
		return int(math.Round(float64(base) * sameSetupFactor))
	}
	return base
}

// EstimateTask computes run, setup and buffer minutes for quantity units of
// task on m. A non-positive efficiency is treated as 1.
func EstimateTask(task models.Task, quantity int, m models.Machine) Estimate {
	eff := m.Efficiency
	if eff <= 0 {
		eff = 1
	}
	run := task.MinutesPerUnit * float64(quantity) / eff
	return Estimate{
		Run:    int(math.Round(run)),
		Setup:  SetupMinutes(task.Capability, m),
		Buffer: int(math.Round(run * m.DowntimeProbability)),
	}
}

// nominalMinutes is the machine-independent estimate used for deadline math:
// run time at full efficiency plus a flat hour of setup.
func nominalMinutes(job models.Job) float64 {
	var total float64
	for _, t := range job.Tasks {
		total += t.MinutesPerUnit*float64(job.Quantity) + defaultSetupMinutes
	}
	return total
}
