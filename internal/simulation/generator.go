package simulation

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// Generator produces randomized edge workloads: device fleets, server
// pools and task batches with occasional dependency chains. All draws
// come from a seeded source, so a fixed seed reproduces the experiment.
type Generator struct {
	random  *rand.Rand
	poisson distuv.Poisson
}

// NewGenerator creates a workload generator. ArrivalRate is the Poisson
// mean used when Tasks is called without a fixed count; seed 0 derives
// one from the wall clock.
func NewGenerator(arrivalRate float64, seed uint64) *Generator {
	if arrivalRate <= 0 {
		arrivalRate = 5.0
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		random: rand.New(rand.NewPCG(seed, seed)),
		poisson: distuv.Poisson{
			Lambda: arrivalRate,
			Src:    rand.NewPCG(seed+1, seed+1),
		},
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.random.Float64()*(hi-lo)
}

// Devices generates n edge devices: 1-2 GHz CPUs, 0.1-0.5 W radios and
// 5-20 Mbps uplinks.
func (g *Generator) Devices(n int) []*models.Device {
	devices := make([]*models.Device, n)
	for i := range devices {
		devices[i] = &models.Device{
			ID:                i,
			CPUFreq:           g.uniform(1, 2) * 1e9,
			EnergyCoefficient: g.uniform(1, 2) * 1e-27,
			TxPower:           g.uniform(0.1, 0.5),
			DataRate:          g.uniform(5, 20) * 1e6,
		}
	}
	return devices
}

// Servers generates n edge servers: 5-10 GHz CPUs and 50-100 Mbps
// backhaul links.
func (g *Generator) Servers(n int) []*models.Server {
	servers := make([]*models.Server, n)
	for i := range servers {
		servers[i] = &models.Server{
			ID:                i,
			CPUFreq:           g.uniform(5, 10) * 1e9,
			EnergyCoefficient: g.uniform(1, 2) * 1e-27,
			Bandwidth:         g.uniform(50, 100) * 1e6,
		}
	}
	return servers
}

// Tasks generates a batch of count tasks with IDs 0..count-1. A count
// below 1 draws the batch size from the Poisson arrival process instead,
// with a floor of one task.
func (g *Generator) Tasks(count int) []*models.Task {
	if count < 1 {
		count = int(g.poisson.Rand())
		if count < 1 {
			count = 1
		}
	}
	tasks := make([]*models.Task, count)
	for i := range tasks {
		tasks[i] = g.task(i)
	}
	g.addDependencies(tasks)
	return tasks
}

// task rolls one task with a kind-specific compute and payload profile.
func (g *Generator) task(id int) *models.Task {
	t := &models.Task{
		ID:       id,
		Priority: g.uniform(0.5, 1.0),
		Subtasks: 1 + g.random.IntN(10),
	}

	switch g.random.IntN(3) {
	case 0:
		t.Kind = models.STANDARD
		t.ComputingCycles = g.uniform(1, 5) * 1e9
		t.InputDataSize = g.uniform(0.1, 1) * 1e6
		t.OutputDataSize = 0.2 * t.InputDataSize
	case 1:
		t.Kind = models.DATA_INTENSIVE
		t.ComputingCycles = g.uniform(1, 3) * 1e9
		t.InputDataSize = g.uniform(1, 10) * 1e6
		t.OutputDataSize = 0.3 * t.InputDataSize
	default:
		t.Kind = models.COMPUTE_INTENSIVE
		t.ComputingCycles = g.uniform(5, 10) * 1e9
		t.InputDataSize = g.uniform(0.1, 0.5) * 1e6
		t.OutputDataSize = 0.1 * t.InputDataSize
	}
	return t
}

// addDependencies links roughly every tenth task to up to three distinct
// earlier tasks. Only earlier batch indices are eligible, so the graph is
// acyclic by construction.
func (g *Generator) addDependencies(tasks []*models.Task) {
	for i := 1; i < len(tasks); i++ {
		if g.random.Float64() >= 0.1 {
			continue
		}
		maxDeps := i
		if maxDeps > 3 {
			maxDeps = 3
		}
		want := 1 + g.random.IntN(maxDeps)
		for _, j := range g.random.Perm(i)[:want] {
			tasks[i].Dependencies = append(tasks[i].Dependencies, tasks[j].ID)
		}
	}
}

// Assign spreads the batch across the device fleet. Each task lands on a
// uniformly chosen device's queue; queue membership is what ties a task
// to its originating device.
func (g *Generator) Assign(tasks []*models.Task, devices []*models.Device) {
	if len(devices) == 0 {
		return
	}
	for _, t := range tasks {
		devices[g.random.IntN(len(devices))].AddTask(t)
	}
}
