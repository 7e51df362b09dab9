package models

// Device represents an edge device that originates tasks
type Device struct {
	ID int `json:"id"`

	// Hardware characteristics
	CPUFreq           float64 `json:"cpu_freq"`           // Local CPU frequency in Hz (>0)
	EnergyCoefficient float64 `json:"energy_coefficient"` // Effective switched-capacitance coefficient
	TxPower           float64 `json:"tx_power"`           // Radio transmission power in watts
	DataRate          float64 `json:"data_rate"`          // Uplink/downlink data rate (>0)

	// CurrentLoad accumulates CPU cycles committed to this device.
	// Reset to zero between independent runs.
	CurrentLoad float64 `json:"current_load"`

	// Tasks is the device's assigned-task queue; the device owns it exclusively.
	Tasks []*Task `json:"tasks,omitempty"`
}

// Validate validates the device attributes
func (d Device) Validate() error {
	var errors ValidationErrors

	errors.AddIf(d.CPUFreq <= 0, "CPUFreq", d.CPUFreq,
		"CPUFreq must be > 0")
	errors.AddIf(d.EnergyCoefficient < 0, "EnergyCoefficient", d.EnergyCoefficient,
		"EnergyCoefficient must be non-negative")
	errors.AddIf(d.TxPower < 0, "TxPower", d.TxPower,
		"TxPower must be non-negative")
	errors.AddIf(d.DataRate <= 0, "DataRate", d.DataRate,
		"DataRate must be > 0")
	errors.AddIf(d.CurrentLoad < 0, "CurrentLoad", d.CurrentLoad,
		"CurrentLoad must be non-negative")

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// AddTask appends a task to the device's assigned queue
func (d *Device) AddTask(t *Task) {
	d.Tasks = append(d.Tasks, t)
}

// ResetLoad clears the accumulated load
func (d *Device) ResetLoad() {
	d.CurrentLoad = 0
}

// Clone returns a deep copy of the device, including its task queue
func (d *Device) Clone() *Device {
	clone := *d
	if d.Tasks != nil {
		clone.Tasks = make([]*Task, len(d.Tasks))
		for i, t := range d.Tasks {
			clone.Tasks[i] = t.Clone()
		}
	}
	return &clone
}
