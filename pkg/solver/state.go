package solver

import (
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// searchState is one node of the assignment search tree. States are
// immutable snapshots: expansion clones the parent and commits exactly one
// additional placement, so no state is mutated after creation and every
// node can be re-examined or replayed independently.
type searchState struct {
	allocated []bool   // allocated[i] = task batch index i has a placement
	decided   int      // number of allocated tasks
	decisions models.DecisionMap

	// Explicit per-resource load maps, indexed by batch position.
	// Loads accumulate committed CPU cycles.
	deviceLoads []float64
	serverLoads []float64

	totalDelay  float64 // Critical path: max over committed task delays
	totalEnergy float64 // Sum over committed task energies
}

// newRootState creates the empty assignment with all loads zero.
func newRootState(taskCount, deviceCount, serverCount int) *searchState {
	return &searchState{
		allocated:   make([]bool, taskCount),
		decisions:   make(models.DecisionMap, taskCount),
		deviceLoads: make([]float64, deviceCount),
		serverLoads: make([]float64, serverCount),
	}
}

// clone returns a deep copy sharing nothing with the receiver.
func (st *searchState) clone() *searchState {
	c := &searchState{
		allocated:   make([]bool, len(st.allocated)),
		decided:     st.decided,
		decisions:   st.decisions.Clone(),
		deviceLoads: make([]float64, len(st.deviceLoads)),
		serverLoads: make([]float64, len(st.serverLoads)),
		totalDelay:  st.totalDelay,
		totalEnergy: st.totalEnergy,
	}
	copy(c.allocated, st.allocated)
	copy(c.deviceLoads, st.deviceLoads)
	copy(c.serverLoads, st.serverLoads)
	return c
}

// isComplete reports whether every task has a placement.
func (st *searchState) isComplete(taskCount int) bool {
	return st.decided == taskCount
}
