package models

import (
	"fmt"
)

// TaskKind represents the workload profile of a task
type TaskKind string

const (
	STANDARD          TaskKind = "standard"
	DATA_INTENSIVE    TaskKind = "data_intensive"
	COMPUTE_INTENSIVE TaskKind = "compute_intensive"
)

// ValidTaskKinds returns all valid task kinds
func ValidTaskKinds() []TaskKind {
	return []TaskKind{STANDARD, DATA_INTENSIVE, COMPUTE_INTENSIVE}
}

// IsValid checks if a TaskKind is valid
func (tk TaskKind) IsValid() bool {
	for _, valid := range ValidTaskKinds() {
		if tk == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of TaskKind
func (tk TaskKind) String() string {
	return string(tk)
}

// LocalSite marks a placement that runs on the originating device
const LocalSite = -1

// Placement represents the execution site chosen for a single task
type Placement struct {
	DeviceIndex int  `json:"device_index"`     // Batch index of the executing/originating device
	ServerIndex int  `json:"server_index"`     // Batch index of the offload server, LocalSite for local
	Reused      bool `json:"reused,omitempty"` // Result served from the server's reuse cache
}

// IsOffloaded reports whether the placement targets an edge server
func (p Placement) IsOffloaded() bool {
	return p.ServerIndex != LocalSite
}

// String returns a human-readable placement description
func (p Placement) String() string {
	if p.IsOffloaded() {
		return fmt.Sprintf("device %d -> server %d", p.DeviceIndex, p.ServerIndex)
	}
	return fmt.Sprintf("local on device %d", p.DeviceIndex)
}

// DecisionMap maps task batch indices to their chosen execution sites
type DecisionMap map[int]Placement

// Clone returns an independent copy of the decision map
func (dm DecisionMap) Clone() DecisionMap {
	clone := make(DecisionMap, len(dm))
	for idx, p := range dm {
		clone[idx] = p
	}
	return clone
}

// IsComplete checks that every task index in [0, taskCount) has a placement
func (dm DecisionMap) IsComplete(taskCount int) bool {
	if len(dm) != taskCount {
		return false
	}
	for i := 0; i < taskCount; i++ {
		if _, ok := dm[i]; !ok {
			return false
		}
	}
	return true
}

// Outcome captures the evaluated result of applying a decision map
type Outcome struct {
	Delay   float64 `json:"delay"`   // Critical-path delay in seconds (max over tasks)
	Energy  float64 `json:"energy"`  // Total energy in joules (sum over tasks)
	Balance float64 `json:"balance"` // Load-balance score (0-100) over the server pool
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s",
		ve.Field, ve.Value, ve.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", ve[0].Error(), len(ve)-1)
}

// HasErrors returns true if there are validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field string, value interface{}, message string) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// AddIf adds a validation error if the condition is true
func (ve *ValidationErrors) AddIf(condition bool, field string, value interface{}, message string) {
	if condition {
		ve.Add(field, value, message)
	}
}
