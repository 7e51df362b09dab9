package solver

// SupervisionFeatures describes a task and its originating device at
// decision time. Together with SupervisionLabel it forms the training
// interface for an external imitation learner; nothing in this module
// consumes the records itself.
type SupervisionFeatures struct {
	TaskID          int     `json:"task_id"`
	ComputingCycles float64 `json:"computing_cycles"`
	InputDataSize   float64 `json:"input_data_size"`
	OutputDataSize  float64 `json:"output_data_size"`
	DependencyCount int     `json:"dependency_count"`

	DeviceID                int     `json:"device_id"`
	DeviceCPUFreq           float64 `json:"device_cpu_freq"`
	DeviceEnergyCoefficient float64 `json:"device_energy_coef"`
	DeviceTxPower           float64 `json:"device_tx_power"`
	DeviceDataRate          float64 `json:"device_data_rate"`
	DeviceCurrentLoad       float64 `json:"device_current_load"`
}

// SupervisionLabel is the solver's optimal decision for one task.
type SupervisionLabel struct {
	Offload        int     `json:"offload"`          // 1 offloaded, 0 local
	ServerID       int     `json:"server_id"`        // Target server identity, -1 when local
	ResourceShare  float64 `json:"resource_share"`   // Granted compute fraction, 0 when local
	BandwidthShare float64 `json:"bandwidth_share"`  // Granted bandwidth fraction, 0 when local
}

// SupervisionRecord pairs decision-time features with the optimal label.
type SupervisionRecord struct {
	Features SupervisionFeatures `json:"features"`
	Label    SupervisionLabel    `json:"label"`
}

// SupervisionRecords converts a solved decision map into one record per
// task, ordered by batch index. Returns nil when the result holds no
// solution. Device loads are replayed from the decision map, so the
// records are identical whether or not Apply has run.
func (s *Solver) SupervisionRecords(result *Result) []SupervisionRecord {
	if result == nil || !result.Found {
		return nil
	}

	deviceLoads := make([]float64, len(s.devices))
	for idx, task := range s.tasks {
		if p, ok := result.Decisions[idx]; ok && !p.IsOffloaded() {
			deviceLoads[p.DeviceIndex] += task.ComputingCycles
		}
	}

	records := make([]SupervisionRecord, 0, len(s.tasks))
	for idx, task := range s.tasks {
		p, ok := result.Decisions[idx]
		if !ok {
			continue
		}
		device := s.devices[p.DeviceIndex]

		record := SupervisionRecord{
			Features: SupervisionFeatures{
				TaskID:                  task.ID,
				ComputingCycles:         task.ComputingCycles,
				InputDataSize:           task.InputDataSize,
				OutputDataSize:          task.OutputDataSize,
				DependencyCount:         task.DependencyCount(),
				DeviceID:                device.ID,
				DeviceCPUFreq:           device.CPUFreq,
				DeviceEnergyCoefficient: device.EnergyCoefficient,
				DeviceTxPower:           device.TxPower,
				DeviceDataRate:          device.DataRate,
				DeviceCurrentLoad:       deviceLoads[p.DeviceIndex],
			},
			Label: SupervisionLabel{
				Offload:  0,
				ServerID: -1,
			},
		}
		if p.IsOffloaded() {
			record.Label = SupervisionLabel{
				Offload:        1,
				ServerID:       s.servers[p.ServerIndex].ID,
				ResourceShare:  1.0,
				BandwidthShare: 1.0,
			}
		}
		records = append(records, record)
	}
	return records
}
