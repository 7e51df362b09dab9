package strategy

import (
	"context"
	"math"
	"sort"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

const (
	// DefaultAvailabilityThreshold is the load ratio above which a
	// server stops accepting greedy placements.
	DefaultAvailabilityThreshold = 0.95

	// Server scoring: normalized CPU frequency minus a load penalty.
	serverFreqNorm    = 1e10
	serverLoadPenalty = 0.5
)

// Greedy processes tasks highest priority first and places each on the
// cheaper of local execution versus the best-scoring available server.
// Placements are final; the strategy never revisits earlier decisions.
type Greedy struct {
	AvailabilityThreshold float64
}

// NewGreedy creates the priority-ordered greedy strategy.
func NewGreedy() *Greedy {
	return &Greedy{AvailabilityThreshold: DefaultAvailabilityThreshold}
}

func (g *Greedy) Name() string { return NameGreedy }

// Run executes the greedy pass and commits loads as it goes, so each
// placement sees the loads left by the higher-priority tasks before it.
func (g *Greedy) Run(ctx context.Context, env *Environment) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env.normalize()
	if err := env.validate(); err != nil {
		return nil, err
	}
	env.resetLoads()

	if len(env.Tasks) == 0 {
		return &Report{Strategy: g.Name(), Decisions: models.DecisionMap{}}, nil
	}

	order := make([]int, len(env.Tasks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return env.Tasks[order[a]].Priority > env.Tasks[order[b]].Priority
	})

	report := &Report{
		Strategy:  g.Name(),
		Decisions: models.DecisionMap{},
	}

	var totalDelay, totalEnergy float64
	for _, idx := range order {
		task := env.Tasks[idx]
		di := env.DeviceIndexFor(task)
		device := env.Devices[di]

		localDelay, localEnergy := env.CostModel.Local(device, task)

		si := g.pickServer(env)
		delay, energy := localDelay, localEnergy
		placement := models.Placement{DeviceIndex: di, ServerIndex: models.LocalSite}

		if si >= 0 {
			offDelay, offEnergy := env.CostModel.Offload(device, env.Servers[si], task)
			localCost := env.Weights.Delay*localDelay + env.Weights.Energy*localEnergy
			offloadCost := env.Weights.Delay*offDelay + env.Weights.Energy*offEnergy
			if offloadCost < localCost {
				delay, energy = offDelay, offEnergy
				placement = models.Placement{DeviceIndex: di, ServerIndex: si}
			}
		}

		if placement.IsOffloaded() {
			env.Servers[placement.ServerIndex].CurrentLoad += task.ComputingCycles
		} else {
			device.CurrentLoad += task.ComputingCycles
		}

		report.Decisions[idx] = placement
		totalDelay = math.Max(totalDelay, delay)
		totalEnergy += energy
	}

	report.Outcome = models.Outcome{
		Delay:   totalDelay,
		Energy:  totalEnergy,
		Balance: env.Evaluator.Score(env.serverLoads()),
	}
	report.Cost = env.weightedCost(totalDelay, totalEnergy)
	report.countPlacements()
	return report, nil
}

// pickServer scores every server under the availability threshold by
// normalized frequency minus a load penalty and returns the best index,
// or -1 when every server is saturated.
func (g *Greedy) pickServer(env *Environment) int {
	best := -1
	bestScore := math.Inf(-1)
	for si, server := range env.Servers {
		ratio := server.CurrentLoad / server.CPUFreq
		if ratio >= g.AvailabilityThreshold {
			continue
		}
		score := server.CPUFreq/serverFreqNorm - ratio*serverLoadPenalty
		if score > bestScore {
			bestScore = score
			best = si
		}
	}
	return best
}
