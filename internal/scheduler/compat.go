package scheduler

import "github.com/kiranshivaraju/shopplan/pkg/models"

// Compatible reports whether m can perform work requiring c. known is false
// for unrecognised capabilities, which are treated as compatible with every
// machine so real work is never silently dropped.
func Compatible(m models.Machine, c models.Capability) (ok bool, known bool) {
	caps := m.Capabilities
	switch c {
	case models.CapabilityMilling4Axis:
		return caps.Milling && caps.FourAxis, true
	case models.CapabilityMilling3Axis:
		return caps.Milling && caps.ThreeAxis, true
	case models.CapabilityMilling:
		return caps.Milling, true
	case models.CapabilityTurning:
		return caps.Turning, true
	}
	return true, false
}

// EligibleMachines filters roster down to active machines compatible with c,
// keeping roster order.
func EligibleMachines(roster []models.Machine, c models.Capability) (eligible []models.Machine, known bool) {
	for _, m := range roster {
		if !m.Active {
			continue
		}
		if ok, _ := Compatible(m, c); ok {
			eligible = append(eligible, m)
		}
	}
	return eligible, c.Known()
}
