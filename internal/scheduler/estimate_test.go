package scheduler

import (
	"testing"

	"github.com/kiranshivaraju/shopplan/pkg/models"
)

func TestSetupMinutes(t *testing.T) {
	plain := models.Machine{}
	tests := []struct {
		name string
		c    models.Capability
		m    models.Machine
		want int
	}{
		{"4-axis", models.CapabilityMilling4Axis, plain, 90},
		{"3-axis", models.CapabilityMilling3Axis, plain, 60},
		{"milling", models.CapabilityMilling, plain, 45},
		{"turning", models.CapabilityTurning, plain, 30},
		{"unknown", models.Capability("edm"), plain, 60},
		{"same setup discount", models.CapabilityMilling4Axis, models.Machine{CurrentSetup: models.CapabilityMilling4Axis}, 27},
		{"different setup no discount", models.CapabilityTurning, models.Machine{CurrentSetup: models.CapabilityMilling}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SetupMinutes(tt.c, tt.m); got != tt.want {
				t.Errorf("SetupMinutes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateTask(t *testing.T) {
	tk := models.Task{Capability: models.CapabilityMilling3Axis, MinutesPerUnit: 12}
	m := models.Machine{Efficiency: 0.8, DowntimeProbability: 0.1}

	got := EstimateTask(tk, 20, m)
	// 12*20/0.8 = 300 run, 30 buffer, 60 setup
	want := Estimate{Run: 300, Setup: 60, Buffer: 30}
	if got != want {
		t.Errorf("EstimateTask = %+v, want %+v", got, want)
	}
	if got.Total() != 390 {
		t.Errorf("Total = %d, want 390", got.Total())
	}

	zeroEff := EstimateTask(tk, 10, models.Machine{})
	if zeroEff.Run != 120 {
		t.Errorf("zero efficiency should count as 1, got run %d", zeroEff.Run)
	}
}
