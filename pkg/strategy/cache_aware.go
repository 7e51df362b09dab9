package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/mkarlsson/edge-offload-engine/pkg/dag"
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// DefaultRedirectThreshold is the planned load ratio above which a
// cache-aware placement is redirected to the least-loaded server.
const DefaultRedirectThreshold = 0.7

// CacheAware is the online heuristic path: it plans placements against
// predicted server loads, redirects away from hot servers, then
// executes in dependency order with each server's reuse cache
// intercepting offloads. Sufficiently similar cached results replace
// execution entirely; misses execute and populate the cache.
type CacheAware struct {
	RedirectThreshold float64
}

// NewCacheAware creates the reuse-cache heuristic strategy.
func NewCacheAware() *CacheAware {
	return &CacheAware{RedirectThreshold: DefaultRedirectThreshold}
}

func (c *CacheAware) Name() string { return NameCacheAware }

// Run plans all placements first, then executes them in topological
// order so every task runs after its prerequisites.
func (c *CacheAware) Run(ctx context.Context, env *Environment) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env.normalize()
	if err := env.validate(); err != nil {
		return nil, err
	}
	env.resetLoads()

	report := &Report{
		Strategy:  c.Name(),
		Decisions: models.DecisionMap{},
	}
	if len(env.Tasks) == 0 {
		return report, nil
	}

	planned := c.plan(env)

	var totalDelay, totalEnergy float64
	for _, idx := range dag.Order(env.Tasks) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		task := env.Tasks[idx]
		placement := planned[idx]
		device := env.Devices[placement.DeviceIndex]

		var delay, energy float64
		if !placement.IsOffloaded() {
			delay, energy = env.CostModel.Local(device, task)
			device.CurrentLoad += task.ComputingCycles
		} else {
			server := env.Servers[placement.ServerIndex]
			cache := env.Caches[placement.ServerIndex]

			if cache != nil {
				if match, ok := cache.Lookup(task); ok {
					delay, energy = env.CostModel.Reuse(device, task)
					cache.RecordHit(match.Key)
					placement.Reused = true
				}
			}
			if !placement.Reused {
				delay, energy = env.CostModel.Offload(device, server, task)
				server.CurrentLoad += task.ComputingCycles
				if cache != nil {
					cache.Insert(task, fmt.Sprintf("result_for_task_%d", task.ID), task.ComputingCycles/server.CPUFreq)
				}
			}
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

// plan assigns every task a tentative placement against predicted
// server loads. Offloads that would land on a server past the redirect
// threshold move to the least-loaded server when that actually helps.
func (c *CacheAware) plan(env *Environment) map[int]models.Placement {
	planned := make(map[int]models.Placement, len(env.Tasks))
	loads := make([]float64, len(env.Servers))

	ratio := func(si int) float64 {
		return loads[si] / env.Servers[si].CPUFreq
	}

	for idx, task := range env.Tasks {
		di := env.DeviceIndexFor(task)
		device := env.Devices[di]

		placement := models.Placement{DeviceIndex: di, ServerIndex: models.LocalSite}

		si := -1
		bestScore := math.Inf(-1)
		for j := range env.Servers {
			score := env.Servers[j].CPUFreq/serverFreqNorm - ratio(j)*serverLoadPenalty
			if score > bestScore {
				bestScore = score
				si = j
			}
		}

		if si >= 0 {
			localDelay, localEnergy := env.CostModel.Local(device, task)
			offDelay, offEnergy := env.CostModel.Offload(device, env.Servers[si], task)
			localCost := env.Weights.Delay*localDelay + env.Weights.Energy*localEnergy
			offloadCost := env.Weights.Delay*offDelay + env.Weights.Energy*offEnergy

			if offloadCost < localCost {
				if ratio(si) > c.RedirectThreshold {
					alt := si
					for j := range env.Servers {
						if ratio(j) < ratio(alt) {
							alt = j
						}
					}
					si = alt
				}
				placement = models.Placement{DeviceIndex: di, ServerIndex: si}
				loads[si] += task.ComputingCycles
			}
		}

		planned[idx] = placement
	}
	return planned
}
