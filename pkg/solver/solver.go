package solver

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/mkarlsson/edge-offload-engine/pkg/balance"
	"github.com/mkarlsson/edge-offload-engine/pkg/cost"
	"github.com/mkarlsson/edge-offload-engine/pkg/dag"
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// ReuseProbe reports whether a server-side cache holds a result similar
// enough to substitute for executing a task. Probing never mutates the
// cache, so the solver can evaluate hypothetical placements freely.
type ReuseProbe interface {
	HasSimilar(t *models.Task) bool
}

// Weights blends the delay, energy, and load-imbalance terms of the
// objective. The solver normalizes them to sum to 1.
type Weights struct {
	Delay   float64 `json:"delay"`
	Energy  float64 `json:"energy"`
	Balance float64 `json:"balance"`
}

// DefaultWeights returns the uniform weighting of the three cost terms.
func DefaultWeights() Weights {
	return Weights{Delay: 1.0 / 3.0, Energy: 1.0 / 3.0, Balance: 1.0 / 3.0}
}

// Normalize scales the weights to sum to 1.0. Weights that sum to zero or
// less are replaced with the defaults.
func (w *Weights) Normalize() {
	sum := w.Delay + w.Energy + w.Balance
	if sum <= 0 {
		*w = DefaultWeights()
		return
	}
	w.Delay /= sum
	w.Energy /= sum
	w.Balance /= sum
}

// Config carries the solver's static configuration.
type Config struct {
	Weights   Weights
	CostModel cost.Model
	Evaluator balance.Evaluator

	// Caches maps server batch indices to their reuse caches. Entries may
	// be nil; a missing probe means no reuse on that server.
	Caches map[int]ReuseProbe

	// MaxNodes caps the number of expanded states; 0 means unlimited.
	// When the cap is hit the solver returns the best solution found so
	// far, which may be suboptimal.
	MaxNodes int

	// DisablePruning explores the full tree regardless of bounds. The
	// best cost must not change; exists for verification.
	DisablePruning bool
}

// Stats counts search effort for one Solve call.
type Stats struct {
	NodesExpanded  int `json:"nodes_expanded"`
	NodesGenerated int `json:"nodes_generated"`
	NodesPruned    int `json:"nodes_pruned"`
	CacheHits      int `json:"cache_hits"` // (task, server) pairs reported similar at solve start
	FrontierPeak   int `json:"frontier_peak"`
}

// Result is the solver's output. When Found is false the decision map is
// empty and must not be applied.
type Result struct {
	Found     bool               `json:"found"`
	Decisions models.DecisionMap `json:"decisions"`
	Outcome   models.Outcome     `json:"outcome"`
	Cost      float64            `json:"cost"`      // Weighted objective of the best complete assignment
	Exhausted bool               `json:"exhausted"` // True when the frontier drained within budget
	Stats     Stats              `json:"stats"`
}

// Solver finds the optimal execution site for every task in a batch via
// best-first branch-and-bound. A Solver instance owns its frontier and
// state tree; it is single-threaded and must not be shared across
// goroutines while a Solve is active.
type Solver struct {
	tasks   []*models.Task
	devices []*models.Device
	servers []*models.Server

	weights   Weights
	model     cost.Model
	evaluator balance.Evaluator
	caches    map[int]ReuseProbe

	maxNodes       int
	disablePruning bool

	order []int
	deps  [][]int
}

// New validates the batch and builds a solver over it.
func New(tasks []*models.Task, devices []*models.Device, servers []*models.Server, cfg Config) (*Solver, error) {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid task %d: %w", t.ID, err)
		}
	}
	for _, d := range devices {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid device %d: %w", d.ID, err)
		}
	}
	for _, sv := range servers {
		if err := sv.Validate(); err != nil {
			return nil, fmt.Errorf("invalid server %d: %w", sv.ID, err)
		}
	}

	weights := cfg.Weights
	weights.Normalize()

	evaluator := cfg.Evaluator
	if evaluator == (balance.Evaluator{}) {
		evaluator = balance.NewEvaluator()
	}

	model := cfg.CostModel
	if model.Scale <= 0 {
		model = cost.NewModel(cost.DefaultScale)
	}

	return &Solver{
		tasks:          tasks,
		devices:        devices,
		servers:        servers,
		weights:        weights,
		model:          model,
		evaluator:      evaluator,
		caches:         cfg.Caches,
		maxNodes:       cfg.MaxNodes,
		disablePruning: cfg.DisablePruning,
		order:          dag.Order(tasks),
		deps:           dag.DependencyIndices(tasks),
	}, nil
}

// Solve runs the search to completion or budget exhaustion. The context
// is polled between frontier pops; on cancellation the best solution
// found so far is returned with Exhausted=false. An empty batch yields
// the empty-result sentinel (Found=false, empty decisions) without error.
// Solve does not mutate the devices or servers; use Apply for that.
func (s *Solver) Solve(ctx context.Context) *Result {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &Result{
		Decisions: models.DecisionMap{},
		Cost:      math.Inf(1),
	}

	if len(s.tasks) == 0 || len(s.devices) == 0 {
		result.Exhausted = true
		return result
	}

	hits, hitPairs := s.snapshotReuse()
	result.Stats.CacheHits = hitPairs
	minDelay, minEnergy := s.optimisticMinima(hits)

	var seq uint64
	f := make(frontier, 0, 64)
	root := newRootState(len(s.tasks), len(s.devices), len(s.servers))
	heap.Push(&f, &frontierItem{state: root, bound: s.bound(root, minDelay, minEnergy), seq: seq})
	seq++

	var best *searchState
	bestCost := math.Inf(1)

search:
	for f.Len() > 0 {
		// Budget enforcement happens between pops; an abort falls back
		// to the best-so-far solution.
		select {
		case <-ctx.Done():
			break search
		default:
		}
		if s.maxNodes > 0 && result.Stats.NodesExpanded >= s.maxNodes {
			break search
		}

		item := heap.Pop(&f).(*frontierItem)
		if !s.disablePruning && item.bound >= bestCost {
			result.Stats.NodesPruned++
			continue
		}

		st := item.state
		if st.isComplete(len(s.tasks)) {
			if c := s.completeCost(st); c < bestCost {
				bestCost = c
				best = st
			}
			continue
		}

		next := s.nextSchedulable(st)
		if next < 0 {
			continue
		}

		result.Stats.NodesExpanded++
		s.expand(st, next, hits, &f, &seq, bestCost, minDelay, minEnergy, &result.Stats)
	}

	if f.Len() == 0 {
		result.Exhausted = true
	}

	if best != nil {
		result.Found = true
		result.Cost = bestCost
		result.Decisions = best.decisions.Clone()
		result.Outcome = models.Outcome{
			Delay:   best.totalDelay,
			Energy:  best.totalEnergy,
			Balance: s.evaluator.Score(best.serverLoads),
		}
	}
	return result
}

// Apply writes the result's placements onto the devices and servers.
// All loads are reset first, then each placement adds its task's cycles
// to the executing resource; reused placements consume no server cycles.
// Offloaded tasks are appended to the server's bookkeeping list.
func (s *Solver) Apply(result *Result) error {
	if result == nil || !result.Found {
		return fmt.Errorf("cannot apply an absent solution")
	}
	for _, d := range s.devices {
		d.ResetLoad()
	}
	for _, sv := range s.servers {
		sv.ResetLoad()
	}
	for idx := range s.tasks {
		p, ok := result.Decisions[idx]
		if !ok {
			return fmt.Errorf("decision map is missing task index %d", idx)
		}
		task := s.tasks[idx]
		if !p.IsOffloaded() {
			s.devices[p.DeviceIndex].CurrentLoad += task.ComputingCycles
			continue
		}
		server := s.servers[p.ServerIndex]
		if !p.Reused {
			server.CurrentLoad += task.ComputingCycles
		}
		server.AddTask(task)
	}
	return nil
}

// snapshotReuse probes every (task, server) pair once. The snapshot keeps
// hit detection consistent between bound computation and branching within
// a single Solve call.
func (s *Solver) snapshotReuse() ([][]bool, int) {
	hits := make([][]bool, len(s.tasks))
	pairs := 0
	for i := range s.tasks {
		hits[i] = make([]bool, len(s.servers))
		if s.caches == nil {
			continue
		}
		for si := range s.servers {
			probe := s.caches[si]
			if probe == nil {
				continue
			}
			if probe.HasSimilar(s.tasks[i]) {
				hits[i][si] = true
				pairs++
			}
		}
	}
	return hits, pairs
}

// optimisticMinima computes, per task, the cheapest delay and energy over
// every execution site, ignoring contention. Delay and energy are
// minimized independently, which keeps the resulting bound admissible.
func (s *Solver) optimisticMinima(hits [][]bool) (minDelay, minEnergy []float64) {
	minDelay = make([]float64, len(s.tasks))
	minEnergy = make([]float64, len(s.tasks))

	for i, task := range s.tasks {
		bestDelay := math.Inf(1)
		bestEnergy := math.Inf(1)
		for _, device := range s.devices {
			d, e := s.model.Local(device, task)
			bestDelay = math.Min(bestDelay, d)
			bestEnergy = math.Min(bestEnergy, e)

			for si := range s.servers {
				if hits[i][si] {
					d, e = s.model.Reuse(device, task)
				} else {
					d, e = s.model.Offload(device, s.servers[si], task)
				}
				bestDelay = math.Min(bestDelay, d)
				bestEnergy = math.Min(bestEnergy, e)
			}
		}
		minDelay[i] = bestDelay
		minEnergy[i] = bestEnergy
	}
	return minDelay, minEnergy
}

// bound returns an admissible lower bound on the cost of any completion
// reachable from the state: committed delay and energy plus each
// unallocated task's optimistic minimum. Remainder delay aggregates via
// max (critical-path semantics), energy via sum, and the imbalance term
// is optimistically zero.
func (s *Solver) bound(st *searchState, minDelay, minEnergy []float64) float64 {
	remDelay := 0.0
	remEnergy := 0.0
	for i := range s.tasks {
		if st.allocated[i] {
			continue
		}
		if minDelay[i] > remDelay {
			remDelay = minDelay[i]
		}
		remEnergy += minEnergy[i]
	}

	delayLB := math.Max(st.totalDelay, remDelay)
	energyLB := st.totalEnergy + remEnergy
	return s.weights.Delay*delayLB + s.weights.Energy*energyLB
}

// completeCost evaluates the full objective of a complete assignment,
// including the imbalance of the combined device and server loads.
func (s *Solver) completeCost(st *searchState) float64 {
	combined := make([]float64, 0, len(st.deviceLoads)+len(st.serverLoads))
	combined = append(combined, st.deviceLoads...)
	combined = append(combined, st.serverLoads...)
	imbalance := s.evaluator.Imbalance(combined)

	return s.weights.Delay*st.totalDelay +
		s.weights.Energy*st.totalEnergy +
		s.weights.Balance*imbalance
}

// nextSchedulable returns the lowest topological-order unallocated task
// whose in-batch dependencies are all allocated, or -1 if none exists.
func (s *Solver) nextSchedulable(st *searchState) int {
	for _, idx := range s.order {
		if st.allocated[idx] {
			continue
		}
		ready := true
		for _, dep := range s.deps[idx] {
			if !st.allocated[dep] {
				ready = false
				break
			}
		}
		if ready {
			return idx
		}
	}
	return -1
}

// expand generates every child of the state for the chosen task: a local
// child per device and an offload child per (device, server) pair, with
// reuse cost substituted where the snapshot reported a similarity hit.
// Reused placements leave the server load untouched.
func (s *Solver) expand(parent *searchState, taskIdx int, hits [][]bool, f *frontier, seq *uint64, bestCost float64, minDelay, minEnergy []float64, stats *Stats) {
	task := s.tasks[taskIdx]

	for di, device := range s.devices {
		local := parent.clone()
		local.allocated[taskIdx] = true
		local.decided++
		local.decisions[taskIdx] = models.Placement{DeviceIndex: di, ServerIndex: models.LocalSite}
		local.deviceLoads[di] += task.ComputingCycles
		delay, energy := s.model.Local(device, task)
		local.totalDelay = math.Max(local.totalDelay, delay)
		local.totalEnergy += energy
		s.offer(local, f, seq, bestCost, minDelay, minEnergy, stats)

		for si := range s.servers {
			reused := hits[taskIdx][si]
			var delay, energy float64
			if reused {
				delay, energy = s.model.Reuse(device, task)
			} else {
				delay, energy = s.model.Offload(device, s.servers[si], task)
			}

			child := parent.clone()
			child.allocated[taskIdx] = true
			child.decided++
			child.decisions[taskIdx] = models.Placement{DeviceIndex: di, ServerIndex: si, Reused: reused}
			if !reused {
				child.serverLoads[si] += task.ComputingCycles
			}
			child.totalDelay = math.Max(child.totalDelay, delay)
			child.totalEnergy += energy
			s.offer(child, f, seq, bestCost, minDelay, minEnergy, stats)
		}
	}
}

// offer bounds a child and pushes it unless pruned.
func (s *Solver) offer(child *searchState, f *frontier, seq *uint64, bestCost float64, minDelay, minEnergy []float64, stats *Stats) {
	stats.NodesGenerated++
	b := s.bound(child, minDelay, minEnergy)
	if !s.disablePruning && b >= bestCost {
		stats.NodesPruned++
		return
	}
	heap.Push(f, &frontierItem{state: child, bound: b, seq: *seq})
	*seq++
	if f.Len() > stats.FrontierPeak {
		stats.FrontierPeak = f.Len()
	}
}
