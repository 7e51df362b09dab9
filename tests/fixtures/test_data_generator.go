package fixtures

import (
	"math/rand/v2"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// TestDataGenerator creates reproducible edge workloads for strategy and
// solver validation
type TestDataGenerator struct {
	rand *rand.Rand
	seed uint64
}

func NewTestDataGenerator(seed uint64) *TestDataGenerator {
	return &TestDataGenerator{
		rand: rand.New(rand.NewPCG(seed, seed)),
		seed: seed,
	}
}

func (g *TestDataGenerator) GetSeed() uint64 {
	return g.seed
}

// Topology bundles one generated batch with the fleet it runs on.
type Topology struct {
	Tasks   []*models.Task
	Devices []*models.Device
	Servers []*models.Server
}

// Generate diverse task batches covering all workload profiles
func (g *TestDataGenerator) GenerateTasks(count int) []*models.Task {
	kindProfiles := []struct {
		kind        models.TaskKind
		cyclesRange [2]float64
		inputRange  [2]float64
		outputRatio float64
	}{
		{
			kind:        models.STANDARD,
			cyclesRange: [2]float64{1 * GHz, 5 * GHz},
			inputRange:  [2]float64{0.1 * MB, 1 * MB},
			outputRatio: 0.2,
		},
		{
			kind:        models.DATA_INTENSIVE,
			cyclesRange: [2]float64{1 * GHz, 3 * GHz},
			inputRange:  [2]float64{1 * MB, 10 * MB},
			outputRatio: 0.3,
		},
		{
			kind:        models.COMPUTE_INTENSIVE,
			cyclesRange: [2]float64{5 * GHz, 10 * GHz},
			inputRange:  [2]float64{0.1 * MB, 0.5 * MB},
			outputRatio: 0.1,
		},
	}

	tasks := make([]*models.Task, count)
	for i := 0; i < count; i++ {
		profile := kindProfiles[g.rand.IntN(len(kindProfiles))]

		input := g.uniform(profile.inputRange[0], profile.inputRange[1])
		tasks[i] = &models.Task{
			ID:              i,
			Kind:            profile.kind,
			ComputingCycles: g.uniform(profile.cyclesRange[0], profile.cyclesRange[1]),
			InputDataSize:   input,
			OutputDataSize:  profile.outputRatio * input,
			Priority:        g.uniform(0.5, 1.0),
			Subtasks:        1 + g.rand.IntN(10),
		}

		// Dependencies occasionally, always on earlier tasks
		if i > 0 && g.rand.Float64() < 0.2 {
			maxDeps := i
			if maxDeps > 3 {
				maxDeps = 3
			}
			want := 1 + g.rand.IntN(maxDeps)
			for _, j := range g.rand.Perm(i)[:want] {
				tasks[i].Dependencies = append(tasks[i].Dependencies, tasks[j].ID)
			}
		}
	}

	return tasks
}

// Generate heterogeneous device fleets
func (g *TestDataGenerator) GenerateDevices(count int) []*models.Device {
	devices := make([]*models.Device, count)
	for i := 0; i < count; i++ {
		devices[i] = &models.Device{
			ID:                i,
			CPUFreq:           g.uniform(1, 2) * GHz,
			EnergyCoefficient: g.uniform(1, 2) * 1e-27,
			TxPower:           g.uniform(0.1, 0.5),
			DataRate:          g.uniform(5, 20) * Mbps,
		}
	}
	return devices
}

// Generate heterogeneous server pools
func (g *TestDataGenerator) GenerateServers(count int) []*models.Server {
	servers := make([]*models.Server, count)
	for i := 0; i < count; i++ {
		servers[i] = &models.Server{
			ID:                i,
			CPUFreq:           g.uniform(5, 10) * GHz,
			EnergyCoefficient: g.uniform(1, 2) * 1e-27,
			Bandwidth:         g.uniform(50, 100) * Mbps,
		}
	}
	return servers
}

// GenerateTopology builds a full randomized scenario with tasks spread
// round-robin across the devices.
func (g *TestDataGenerator) GenerateTopology(taskCount, deviceCount, serverCount int) Topology {
	topo := Topology{
		Tasks:   g.GenerateTasks(taskCount),
		Devices: g.GenerateDevices(deviceCount),
		Servers: g.GenerateServers(serverCount),
	}
	AssignRoundRobin(topo.Tasks, topo.Devices)
	return topo
}

// OffloadFavorableTopology builds a scenario where offloading always wins
// on delay: slow devices with fast uplinks against much faster servers,
// running compute-heavy tasks with small payloads.
func (g *TestDataGenerator) OffloadFavorableTopology(taskCount, deviceCount, serverCount int) Topology {
	topo := Topology{
		Tasks:   ComputeHeavyTasks(taskCount),
		Devices: SlowDevices(deviceCount),
		Servers: FastServers(serverCount),
	}
	AssignRoundRobin(topo.Tasks, topo.Devices)
	return topo
}

func (g *TestDataGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}

// TaskChain builds n tasks where each one depends on its predecessor,
// forming a single maximal dependency path.
func TaskChain(n int) []*models.Task {
	tasks := make([]*models.Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = &models.Task{
			ID:              i,
			Kind:            models.STANDARD,
			ComputingCycles: 2 * GHz,
			InputDataSize:   0.5 * MB,
			OutputDataSize:  0.1 * MB,
			Priority:        0.8,
			Subtasks:        1,
		}
		if i > 0 {
			tasks[i].Dependencies = []int{i - 1}
		}
	}
	return tasks
}

// ComputeHeavyTasks builds n identical compute-bound tasks with small
// payloads, the profile where offloading pays off most.
func ComputeHeavyTasks(n int) []*models.Task {
	tasks := make([]*models.Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = &models.Task{
			ID:              i,
			Kind:            models.COMPUTE_INTENSIVE,
			ComputingCycles: 8 * GHz,
			InputDataSize:   0.1 * MB,
			OutputDataSize:  0.01 * MB,
			Priority:        0.9,
			Subtasks:        1,
		}
	}
	return tasks
}

// RepeatedTasks builds n requests for the same computation: every task
// carries the same ID and attributes, so their feature vectors coincide
// exactly and a reuse cache treats them as duplicates.
func RepeatedTasks(id, n int) []*models.Task {
	tasks := make([]*models.Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = &models.Task{
			ID:              id,
			Kind:            models.COMPUTE_INTENSIVE,
			ComputingCycles: 8 * GHz,
			InputDataSize:   0.1 * MB,
			OutputDataSize:  0.01 * MB,
			Priority:        0.9,
			Subtasks:        1,
		}
	}
	return tasks
}

// SlowDevices builds n identical 1 GHz devices with fast 20 Mbps links.
func SlowDevices(n int) []*models.Device {
	devices := make([]*models.Device, n)
	for i := 0; i < n; i++ {
		devices[i] = &models.Device{
			ID:                i,
			CPUFreq:           1 * GHz,
			EnergyCoefficient: 1e-27,
			TxPower:           0.1,
			DataRate:          20 * Mbps,
		}
	}
	return devices
}

// FastServers builds n identical 10 GHz servers.
func FastServers(n int) []*models.Server {
	servers := make([]*models.Server, n)
	for i := 0; i < n; i++ {
		servers[i] = &models.Server{
			ID:                i,
			CPUFreq:           10 * GHz,
			EnergyCoefficient: 1e-27,
			Bandwidth:         100 * Mbps,
		}
	}
	return servers
}

// AssignRoundRobin queues each task on devices in rotation, giving every
// task exactly one owning device.
func AssignRoundRobin(tasks []*models.Task, devices []*models.Device) {
	if len(devices) == 0 {
		return
	}
	for i, t := range tasks {
		devices[i%len(devices)].AddTask(t)
	}
}

// Magnitude constants
const (
	KB   = 1e3
	MB   = 1e6
	GHz  = 1e9
	Mbps = 1e6
)
