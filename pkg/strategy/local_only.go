package strategy

import (
	"context"
	"math"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// LocalOnly executes every task on its owning device and never
// offloads. It is the lower baseline: zero transfer cost, zero server
// utilization, and a balance score of zero.
type LocalOnly struct{}

// NewLocalOnly creates the local-execution baseline.
func NewLocalOnly() *LocalOnly {
	return &LocalOnly{}
}

func (l *LocalOnly) Name() string { return NameLocalOnly }

// Run places each task on its own device and accumulates the critical
// path delay and total energy.
func (l *LocalOnly) Run(ctx context.Context, env *Environment) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env.normalize()
	if err := env.validate(); err != nil {
		return nil, err
	}
	env.resetLoads()

	report := &Report{
		Strategy:  l.Name(),
		Decisions: models.DecisionMap{},
	}
	if len(env.Tasks) == 0 {
		return report, nil
	}

	var totalDelay, totalEnergy float64
	for i, task := range env.Tasks {
		di := env.DeviceIndexFor(task)
		device := env.Devices[di]

		delay, energy := env.CostModel.Local(device, task)
		device.CurrentLoad += task.ComputingCycles

		report.Decisions[i] = models.Placement{DeviceIndex: di, ServerIndex: models.LocalSite}
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
