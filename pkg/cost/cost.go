package cost

import (
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

const (
	// MinEnergy and MaxEnergy clamp every energy result. Stabilizes
	// aggregate comparisons against floating-point outliers.
	MinEnergy = 1e-6
	MaxEnergy = 1e6

	// DefaultScale is the energy normalization constant shared by all
	// execution paths.
	DefaultScale = 1e9
)

// Model computes closed-form execution costs over declared resource
// attributes. No real transport or execution is involved.
type Model struct {
	Scale float64 // Energy normalization constant
}

// NewModel creates a cost model with the given energy scale.
// Non-positive scales fall back to DefaultScale.
func NewModel(scale float64) Model {
	if scale <= 0 {
		scale = DefaultScale
	}
	return Model{Scale: scale}
}

// Local returns delay and energy for executing the task on its device.
func (m Model) Local(d *models.Device, t *models.Task) (delay, energy float64) {
	delay = t.ComputingCycles / d.CPUFreq
	energy = d.EnergyCoefficient * d.CPUFreq * d.CPUFreq * delay *
		(t.ComputingCycles / 1e6) * m.Scale
	return delay, clampEnergy(energy)
}

// Offload returns delay and energy for shipping the task to a server,
// executing there, and returning the result over the device's link.
func (m Model) Offload(d *models.Device, s *models.Server, t *models.Task) (delay, energy float64) {
	uplink := t.InputDataSize / d.DataRate
	execution := t.ComputingCycles / s.CPUFreq
	downlink := t.OutputDataSize / d.DataRate

	delay = uplink + execution + downlink
	energy = (d.TxPower*uplink + d.TxPower*downlink) * m.Scale
	return delay, clampEnergy(energy)
}

// Reuse returns delay and energy when a cached result is reused: only the
// result transfer remains, no upload and no execution.
func (m Model) Reuse(d *models.Device, t *models.Task) (delay, energy float64) {
	delay = t.OutputDataSize / d.DataRate
	energy = d.TxPower * delay * m.Scale
	return delay, clampEnergy(energy)
}

func clampEnergy(e float64) float64 {
	if e < MinEnergy {
		return MinEnergy
	}
	if e > MaxEnergy {
		return MaxEnergy
	}
	return e
}
