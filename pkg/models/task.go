package models

// Task represents one unit of offloadable computation
type Task struct {
	// Identity
	ID   int      `json:"id"`
	Kind TaskKind `json:"kind"`

	// Computation characteristics
	ComputingCycles float64 `json:"computing_cycles"` // CPU cycles required (>0)
	InputDataSize   float64 `json:"input_data_size"`  // Input payload bytes
	OutputDataSize  float64 `json:"output_data_size"` // Result payload bytes

	// Scheduling hints
	Priority float64 `json:"priority"` // Relative priority (0.5-1.0), not used by the solver
	Subtasks int     `json:"subtasks"` // Internal parallelism hint

	// Dependencies holds IDs of tasks that must complete first.
	// IDs that match no task in the current batch are ignored.
	Dependencies []int `json:"dependencies"`
}

// Validate validates the task attributes
func (t Task) Validate() error {
	var errors ValidationErrors

	errors.AddIf(t.ComputingCycles <= 0, "ComputingCycles", t.ComputingCycles,
		"ComputingCycles must be > 0")
	errors.AddIf(t.InputDataSize < 0, "InputDataSize", t.InputDataSize,
		"InputDataSize must be non-negative")
	errors.AddIf(t.OutputDataSize < 0, "OutputDataSize", t.OutputDataSize,
		"OutputDataSize must be non-negative")

	if t.Kind != "" && !t.Kind.IsValid() {
		errors.Add("Kind", t.Kind, "Kind must be a valid task kind")
	}

	for _, dep := range t.Dependencies {
		if dep == t.ID {
			errors.Add("Dependencies", t.Dependencies, "Task cannot depend on itself (self-dependency)")
			break
		}
	}

	depSet := make(map[int]bool)
	for _, dep := range t.Dependencies {
		if depSet[dep] {
			errors.Add("Dependencies", t.Dependencies, "Duplicate dependencies found")
			break
		}
		depSet[dep] = true
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	clone := *t
	if t.Dependencies != nil {
		clone.Dependencies = make([]int, len(t.Dependencies))
		copy(clone.Dependencies, t.Dependencies)
	}
	return &clone
}

// DependencyCount returns the number of declared dependencies
func (t *Task) DependencyCount() int {
	return len(t.Dependencies)
}
