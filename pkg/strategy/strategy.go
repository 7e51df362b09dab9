package strategy

import (
	"context"
	"fmt"

	"github.com/mkarlsson/edge-offload-engine/pkg/balance"
	"github.com/mkarlsson/edge-offload-engine/pkg/cost"
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
	"github.com/mkarlsson/edge-offload-engine/pkg/reuse"
	"github.com/mkarlsson/edge-offload-engine/pkg/solver"
)

// Registered strategy names.
const (
	NameLocalOnly  = "local_only"
	NameGreedy     = "greedy"
	NameCacheAware = "cache_aware"
	NameOptimal    = "optimal"
)

// Strategy places every task of a batch and reports the outcome.
// Run owns the load state: all device and server loads are reset on
// entry and reflect the chosen placements on return.
type Strategy interface {
	Name() string
	Run(ctx context.Context, env *Environment) (*Report, error)
}

// Environment is the world state one strategy run operates on. The
// caches map server batch indices to their reuse caches and may be nil
// or sparse; a missing cache disables reuse on that server.
type Environment struct {
	Tasks   []*models.Task
	Devices []*models.Device
	Servers []*models.Server
	Caches  map[int]*reuse.Cache

	Weights   solver.Weights
	CostModel cost.Model
	Evaluator balance.Evaluator
}

// normalize fills zero-valued knobs with their defaults.
func (e *Environment) normalize() {
	e.Weights.Normalize()
	if e.CostModel.Scale <= 0 {
		e.CostModel = cost.NewModel(cost.DefaultScale)
	}
	if e.Evaluator == (balance.Evaluator{}) {
		e.Evaluator = balance.NewEvaluator()
	}
}

func (e *Environment) validate() error {
	if len(e.Tasks) > 0 && len(e.Devices) == 0 {
		return fmt.Errorf("no devices to place %d tasks on", len(e.Tasks))
	}
	return nil
}

// DeviceIndexFor returns the index of the device owning the task, or 0
// when no device claims it.
func (e *Environment) DeviceIndexFor(task *models.Task) int {
	for di, d := range e.Devices {
		for _, owned := range d.Tasks {
			if owned == task {
				return di
			}
		}
	}
	return 0
}

// resetLoads zeroes every device and server load.
func (e *Environment) resetLoads() {
	for _, d := range e.Devices {
		d.ResetLoad()
	}
	for _, s := range e.Servers {
		s.ResetLoad()
	}
}

func (e *Environment) serverLoads() []float64 {
	loads := make([]float64, len(e.Servers))
	for i, s := range e.Servers {
		loads[i] = s.CurrentLoad
	}
	return loads
}

// weightedCost evaluates the full objective for the committed load
// state: delay and energy terms plus the imbalance of the combined
// device and server loads.
func (e *Environment) weightedCost(delay, energy float64) float64 {
	combined := make([]float64, 0, len(e.Devices)+len(e.Servers))
	for _, d := range e.Devices {
		combined = append(combined, d.CurrentLoad)
	}
	for _, s := range e.Servers {
		combined = append(combined, s.CurrentLoad)
	}
	imbalance := e.Evaluator.Imbalance(combined)
	return e.Weights.Delay*delay + e.Weights.Energy*energy + e.Weights.Balance*imbalance
}

// Report is the outcome of one strategy run over a batch.
type Report struct {
	Strategy  string             `json:"strategy"`
	Outcome   models.Outcome     `json:"outcome"`
	Decisions models.DecisionMap `json:"decisions"`
	Cost      float64            `json:"cost"` // Weighted objective of the committed placements

	LocalTasks     int     `json:"local_tasks"`
	OffloadedTasks int     `json:"offloaded_tasks"`
	ReusedTasks    int     `json:"reused_tasks"`
	CacheHitRate   float64 `json:"cache_hit_rate"` // Percent of the batch served from cache

	SolverStats *solver.Stats `json:"solver_stats,omitempty"`
}

// countPlacements tallies the decision map into the report's counters.
func (r *Report) countPlacements() {
	r.LocalTasks, r.OffloadedTasks, r.ReusedTasks = 0, 0, 0
	for _, p := range r.Decisions {
		switch {
		case p.Reused:
			r.ReusedTasks++
			r.OffloadedTasks++
		case p.IsOffloaded():
			r.OffloadedTasks++
		default:
			r.LocalTasks++
		}
	}
	if len(r.Decisions) > 0 {
		r.CacheHitRate = float64(r.ReusedTasks) / float64(len(r.Decisions)) * 100.0
	}
}

// ByName builds the strategy registered under the given name.
func ByName(name string) (Strategy, error) {
	switch name {
	case NameLocalOnly:
		return NewLocalOnly(), nil
	case NameGreedy:
		return NewGreedy(), nil
	case NameCacheAware:
		return NewCacheAware(), nil
	case NameOptimal:
		return NewOptimal(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Names lists every registered strategy in presentation order.
func Names() []string {
	return []string{NameLocalOnly, NameGreedy, NameCacheAware, NameOptimal}
}
