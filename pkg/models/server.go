package models

// Server represents an edge server available as an offload target
type Server struct {
	ID int `json:"id"`

	// Hardware characteristics
	CPUFreq           float64 `json:"cpu_freq"`           // Server CPU frequency in Hz (>0)
	EnergyCoefficient float64 `json:"energy_coefficient"` // Effective switched-capacitance coefficient
	Bandwidth         float64 `json:"bandwidth"`          // Backhaul bandwidth

	// CurrentLoad accumulates CPU cycles committed to this server.
	// Reset to zero between independent runs.
	CurrentLoad float64 `json:"current_load"`

	// Tasks is an append-only bookkeeping list of accepted work;
	// the scheduler never removes entries.
	Tasks []*Task `json:"tasks,omitempty"`
}

// Validate validates the server attributes
func (s Server) Validate() error {
	var errors ValidationErrors

	errors.AddIf(s.CPUFreq <= 0, "CPUFreq", s.CPUFreq,
		"CPUFreq must be > 0")
	errors.AddIf(s.EnergyCoefficient < 0, "EnergyCoefficient", s.EnergyCoefficient,
		"EnergyCoefficient must be non-negative")
	errors.AddIf(s.Bandwidth < 0, "Bandwidth", s.Bandwidth,
		"Bandwidth must be non-negative")
	errors.AddIf(s.CurrentLoad < 0, "CurrentLoad", s.CurrentLoad,
		"CurrentLoad must be non-negative")

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// AddTask appends a task to the server's bookkeeping list
func (s *Server) AddTask(t *Task) {
	s.Tasks = append(s.Tasks, t)
}

// ResetLoad clears the accumulated load
func (s *Server) ResetLoad() {
	s.CurrentLoad = 0
}

// Clone returns a deep copy of the server, including its task list
func (s *Server) Clone() *Server {
	clone := *s
	if s.Tasks != nil {
		clone.Tasks = make([]*Task, len(s.Tasks))
		for i, t := range s.Tasks {
			clone.Tasks[i] = t.Clone()
		}
	}
	return &clone
}
