package solver

import (
	"context"
	"math"
	"testing"

	"github.com/mkarlsson/edge-offload-engine/pkg/balance"
	"github.com/mkarlsson/edge-offload-engine/pkg/cost"
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

const costTolerance = 1e-9

func solverTask(id int, cycles, in, out float64, deps ...int) *models.Task {
	return &models.Task{
		ID:              id,
		ComputingCycles: cycles,
		InputDataSize:   in,
		OutputDataSize:  out,
		Dependencies:    deps,
	}
}

func solverDevice(id int, freq float64) *models.Device {
	return &models.Device{
		ID:                id,
		CPUFreq:           freq,
		EnergyCoefficient: 1e-27,
		TxPower:           0.3,
		DataRate:          10e6,
	}
}

func solverServer(id int, freq float64) *models.Server {
	return &models.Server{
		ID:        id,
		CPUFreq:   freq,
		Bandwidth: 50e6,
	}
}

// bruteForceBest enumerates every device x {local, server} assignment and
// returns the minimum weighted cost. Valid only for batches without
// dependencies, where assignment order cannot matter.
func bruteForceBest(tasks []*models.Task, devices []*models.Device, servers []*models.Server,
	w Weights, m cost.Model, e balance.Evaluator) float64 {

	best := math.Inf(1)
	devLoads := make([]float64, len(devices))
	srvLoads := make([]float64, len(servers))

	var recurse func(idx int, delay, energy float64)
	recurse = func(idx int, delay, energy float64) {
		if idx == len(tasks) {
			combined := make([]float64, 0, len(devLoads)+len(srvLoads))
			combined = append(combined, devLoads...)
			combined = append(combined, srvLoads...)
			c := w.Delay*delay + w.Energy*energy + w.Balance*e.Imbalance(combined)
			if c < best {
				best = c
			}
			return
		}

		task := tasks[idx]
		for di, device := range devices {
			localDelay, localEnergy := m.Local(device, task)
			devLoads[di] += task.ComputingCycles
			recurse(idx+1, math.Max(delay, localDelay), energy+localEnergy)
			devLoads[di] -= task.ComputingCycles

			for si, server := range servers {
				offDelay, offEnergy := m.Offload(device, server, task)
				srvLoads[si] += task.ComputingCycles
				recurse(idx+1, math.Max(delay, offDelay), energy+offEnergy)
				srvLoads[si] -= task.ComputingCycles
			}
		}
	}

	recurse(0, 0, 0)
	return best
}

func TestWeights_Normalize(t *testing.T) {
	w := Weights{Delay: 2, Energy: 1, Balance: 1}
	w.Normalize()
	if math.Abs(w.Delay-0.5) > 1e-12 || math.Abs(w.Energy-0.25) > 1e-12 || math.Abs(w.Balance-0.25) > 1e-12 {
		t.Errorf("Expected normalized weights 0.5/0.25/0.25, got %+v", w)
	}

	zero := Weights{}
	zero.Normalize()
	def := DefaultWeights()
	if zero != def {
		t.Errorf("Zero weights should reset to defaults %+v, got %+v", def, zero)
	}

	sum := zero.Delay + zero.Energy + zero.Balance
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Default weights should sum to 1, got %f", sum)
	}
}

func TestSolver_EmptyBatch(t *testing.T) {
	s, err := New(nil, []*models.Device{solverDevice(0, 1e9)}, nil, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if result.Found {
		t.Error("Empty batch should not report a solution")
	}
	if result.Decisions == nil || len(result.Decisions) != 0 {
		t.Errorf("Empty batch should yield an empty decision map, got %v", result.Decisions)
	}
	if !result.Exhausted {
		t.Error("Empty batch should report an exhausted search")
	}
	if err := s.Apply(result); err == nil {
		t.Error("Applying an absent solution should fail")
	}
}

func TestSolver_NoDevices(t *testing.T) {
	tasks := []*models.Task{solverTask(0, 1e9, 1e3, 1e2)}
	s, err := New(tasks, nil, []*models.Server{solverServer(0, 5e9)}, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if result.Found {
		t.Error("A batch without devices has no execution sites and no solution")
	}
}

func TestSolver_InvalidInputRejected(t *testing.T) {
	bad := []*models.Task{solverTask(0, -5, 0, 0)}
	if _, err := New(bad, []*models.Device{solverDevice(0, 1e9)}, nil, Config{}); err == nil {
		t.Error("Expected validation error for non-positive cycles")
	}
}

func TestSolver_SingleTaskPicksCheapestSite(t *testing.T) {
	// Local execution takes 10s; offloading takes well under 1s and almost
	// no energy, so the task must be offloaded.
	tasks := []*models.Task{solverTask(0, 10e9, 1e3, 1e2)}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 20e9)}

	s, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if !result.Found {
		t.Fatal("Expected a solution")
	}
	p := result.Decisions[0]
	if !p.IsOffloaded() {
		t.Errorf("Expected offload placement, got %v", p)
	}
	if !result.Exhausted {
		t.Error("Unbudgeted solve should exhaust the frontier")
	}
}

func TestSolver_MatchesBruteForce(t *testing.T) {
	batches := [][]*models.Task{
		{
			solverTask(0, 2e9, 5e5, 1e5),
			solverTask(1, 7e9, 1e5, 2e4),
			solverTask(2, 1e9, 8e5, 3e5),
		},
		{
			solverTask(0, 3e9, 2e5, 4e4),
			solverTask(1, 1e9, 9e5, 2e5),
			solverTask(2, 5e9, 3e5, 6e4),
			solverTask(3, 2e9, 1e5, 1e4),
			solverTask(4, 8e9, 6e5, 9e4),
		},
		{
			solverTask(0, 1e9, 1e5, 5e4),
			solverTask(1, 2e9, 2e5, 5e4),
			solverTask(2, 3e9, 3e5, 5e4),
			solverTask(3, 4e9, 4e5, 5e4),
			solverTask(4, 5e9, 5e5, 5e4),
			solverTask(5, 6e9, 6e5, 5e4),
		},
	}

	devices := []*models.Device{solverDevice(0, 1e9), solverDevice(1, 2e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 8e9)}

	for bi, tasks := range batches {
		s, err := New(tasks, devices, servers, Config{})
		if err != nil {
			t.Fatalf("Batch %d: New() failed: %v", bi, err)
		}

		result := s.Solve(context.Background())
		if !result.Found {
			t.Fatalf("Batch %d: expected a solution", bi)
		}

		expected := bruteForceBest(tasks, devices, servers, s.weights, s.model, s.evaluator)
		if math.Abs(result.Cost-expected) > costTolerance*math.Max(1, expected) {
			t.Errorf("Batch %d: solver cost %.12f differs from brute-force minimum %.12f",
				bi, result.Cost, expected)
		}

		if !result.Decisions.IsComplete(len(tasks)) {
			t.Errorf("Batch %d: decision map incomplete: %v", bi, result.Decisions)
		}
	}
}

func TestSolver_PruningEquivalence(t *testing.T) {
	tasks := []*models.Task{
		solverTask(0, 2e9, 5e5, 1e5),
		solverTask(1, 7e9, 1e5, 2e4),
		solverTask(2, 1e9, 8e5, 3e5),
		solverTask(3, 4e9, 2e5, 5e4),
	}
	devices := []*models.Device{solverDevice(0, 1e9), solverDevice(1, 1.5e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 6e9)}

	pruned, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	unpruned, err := New(tasks, devices, servers, Config{DisablePruning: true})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	prunedResult := pruned.Solve(context.Background())
	unprunedResult := unpruned.Solve(context.Background())

	if !prunedResult.Found || !unprunedResult.Found {
		t.Fatal("Both searches should find a solution")
	}
	if math.Abs(prunedResult.Cost-unprunedResult.Cost) > costTolerance {
		t.Errorf("Pruned cost %.12f differs from unpruned cost %.12f",
			prunedResult.Cost, unprunedResult.Cost)
	}
	if unprunedResult.Stats.NodesPruned != 0 {
		t.Errorf("Disabled pruning should prune nothing, pruned %d", unprunedResult.Stats.NodesPruned)
	}
	if prunedResult.Stats.NodesGenerated > unprunedResult.Stats.NodesGenerated {
		t.Errorf("Pruning should not generate more nodes (%d > %d)",
			prunedResult.Stats.NodesGenerated, unprunedResult.Stats.NodesGenerated)
	}
}

func TestSolver_BoundIsAdmissible(t *testing.T) {
	tasks := []*models.Task{
		solverTask(0, 3e9, 4e5, 1e5),
		solverTask(1, 1e9, 1e5, 2e4),
		solverTask(2, 6e9, 7e5, 9e4),
	}
	devices := []*models.Device{solverDevice(0, 1e9), solverDevice(1, 2e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 9e9)}

	s, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	noHits := make([][]bool, len(tasks))
	for i := range noHits {
		noHits[i] = make([]bool, len(servers))
	}
	minDelay, minEnergy := s.optimisticMinima(noHits)

	// Walk the full state tree; at every node the bound must not exceed
	// the cost of the cheapest reachable completion.
	var verify func(st *searchState, idx int) float64
	verify = func(st *searchState, idx int) float64 {
		if idx == len(tasks) {
			return s.completeCost(st)
		}

		task := tasks[idx]
		best := math.Inf(1)
		for di, device := range devices {
			local := st.clone()
			local.allocated[idx] = true
			local.decided++
			local.deviceLoads[di] += task.ComputingCycles
			d, e := s.model.Local(device, task)
			local.totalDelay = math.Max(local.totalDelay, d)
			local.totalEnergy += e
			best = math.Min(best, verify(local, idx+1))

			for si := range servers {
				child := st.clone()
				child.allocated[idx] = true
				child.decided++
				child.serverLoads[si] += task.ComputingCycles
				d, e := s.model.Offload(device, servers[si], task)
				child.totalDelay = math.Max(child.totalDelay, d)
				child.totalEnergy += e
				best = math.Min(best, verify(child, idx+1))
			}
		}

		if b := s.bound(st, minDelay, minEnergy); b > best+costTolerance {
			t.Errorf("Bound %.12f exceeds cheapest completion %.12f at depth %d", b, best, idx)
		}
		return best
	}

	root := newRootState(len(tasks), len(devices), len(servers))
	verify(root, 0)
}

func TestSolver_RespectsDependencyOrder(t *testing.T) {
	// Batch order is the reverse of the dependency order.
	tasks := []*models.Task{
		solverTask(2, 1e9, 1e3, 1e2, 1),
		solverTask(1, 1e9, 1e3, 1e2, 0),
		solverTask(0, 1e9, 1e3, 1e2),
	}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 5e9)}

	s, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	st := newRootState(len(tasks), len(devices), len(servers))
	next := s.nextSchedulable(st)
	if next != 2 {
		t.Fatalf("Root should schedule the dependency-free task (index 2), got %d", next)
	}

	st.allocated[2] = true
	st.decided++
	if next = s.nextSchedulable(st); next != 1 {
		t.Fatalf("Expected task index 1 next, got %d", next)
	}

	st.allocated[1] = true
	st.decided++
	if next = s.nextSchedulable(st); next != 0 {
		t.Fatalf("Expected task index 0 last, got %d", next)
	}

	result := s.Solve(context.Background())
	if !result.Found || !result.Decisions.IsComplete(len(tasks)) {
		t.Fatalf("Dependent batch should still produce a complete solution, got %+v", result)
	}
}

func TestSolver_ScenarioOffloadsLargestToDistinctServers(t *testing.T) {
	tasks := []*models.Task{
		solverTask(0, 1e9, 1e2, 1e1),
		solverTask(1, 2e9, 1e2, 1e1),
		solverTask(2, 1.5e9, 1e2, 1e1),
	}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 5e9)}

	// Unit energy scale: joule-sized energies, so delay and balance drive
	// the placement.
	s, err := New(tasks, devices, servers, Config{CostModel: cost.NewModel(1)})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if !result.Found {
		t.Fatal("Expected a solution")
	}

	large := result.Decisions[1]
	medium := result.Decisions[2]
	if !large.IsOffloaded() || !medium.IsOffloaded() {
		t.Fatalf("The two largest tasks should be offloaded, got %v and %v", large, medium)
	}
	if large.ServerIndex == medium.ServerIndex {
		t.Errorf("The two largest tasks should land on distinct servers, both on %d", large.ServerIndex)
	}

	// All-local execution is bounded below by the 2e9-cycle task at 1 GHz.
	if result.Outcome.Delay >= 2.0 {
		t.Errorf("Offloading should beat the 2.0s local critical path, got %f", result.Outcome.Delay)
	}
	if result.Outcome.Balance <= 0 {
		t.Errorf("Two loaded servers should report balance > 0, got %f", result.Outcome.Balance)
	}
}

func TestSolver_Deterministic(t *testing.T) {
	tasks := []*models.Task{
		solverTask(0, 2e9, 5e5, 1e5),
		solverTask(1, 2e9, 5e5, 1e5), // Identical twin forces bound ties
		solverTask(2, 1e9, 1e5, 2e4),
	}
	devices := []*models.Device{solverDevice(0, 1e9), solverDevice(1, 1e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 5e9)}

	first, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	firstResult := first.Solve(context.Background())
	if !firstResult.Found {
		t.Fatal("Expected a solution")
	}

	for run := 0; run < 5; run++ {
		again, err := New(tasks, devices, servers, Config{})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		result := again.Solve(context.Background())

		if len(result.Decisions) != len(firstResult.Decisions) {
			t.Fatalf("Run %d: decision count %d differs from first run %d",
				run, len(result.Decisions), len(firstResult.Decisions))
		}
		if result.Cost != firstResult.Cost {
			t.Fatalf("Run %d: cost %v differs from first run %v", run, result.Cost, firstResult.Cost)
		}
		for idx, p := range firstResult.Decisions {
			if result.Decisions[idx] != p {
				t.Fatalf("Run %d: decision for task %d differs: %v vs %v",
					run, idx, result.Decisions[idx], p)
			}
		}
	}
}

func TestSolver_MaxNodesBudget(t *testing.T) {
	tasks := make([]*models.Task, 8)
	for i := range tasks {
		tasks[i] = solverTask(i, float64(i+1)*1e9, 2e5, 4e4)
	}
	devices := []*models.Device{solverDevice(0, 1e9), solverDevice(1, 2e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 7e9)}

	s, err := New(tasks, devices, servers, Config{MaxNodes: 5})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if result.Stats.NodesExpanded > 5 {
		t.Errorf("Budget of 5 expansions exceeded: %d", result.Stats.NodesExpanded)
	}
	if result.Exhausted {
		t.Error("A tight budget on a large batch should not exhaust the frontier")
	}
}

func TestSolver_ContextCancellation(t *testing.T) {
	tasks := make([]*models.Task, 6)
	for i := range tasks {
		tasks[i] = solverTask(i, float64(i+2)*1e9, 3e5, 5e4)
	}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 5e9)}

	s, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := s.Solve(ctx)
	if result.Found {
		t.Error("A pre-cancelled context should abort before any completion")
	}
	if result.Exhausted {
		t.Error("An aborted search should not report exhaustion")
	}
}

type stubProbe struct {
	similar map[int]bool // task ID -> hit
}

func (p *stubProbe) HasSimilar(t *models.Task) bool {
	return p.similar[t.ID]
}

func TestSolver_ReuseHitShortCircuitsOffload(t *testing.T) {
	// 10s local, ~2s offloaded, ~0.1ms when the result is already cached.
	// Reuse also transfers the least data, so it wins on energy too.
	tasks := []*models.Task{solverTask(0, 10e9, 1e3, 1e3)}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 5e9)}

	caches := map[int]ReuseProbe{
		0: &stubProbe{similar: map[int]bool{0: true}},
	}

	s, err := New(tasks, devices, servers, Config{Caches: caches})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if !result.Found {
		t.Fatal("Expected a solution")
	}
	if result.Stats.CacheHits != 1 {
		t.Errorf("Expected 1 similarity hit in the snapshot, got %d", result.Stats.CacheHits)
	}

	p := result.Decisions[0]
	if !p.IsOffloaded() || p.ServerIndex != 0 || !p.Reused {
		t.Fatalf("Expected reused placement on server 0, got %+v", p)
	}

	if err := s.Apply(result); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if servers[0].CurrentLoad != 0 {
		t.Errorf("Reused work should not consume server cycles, load = %f", servers[0].CurrentLoad)
	}
	if len(servers[0].Tasks) != 1 {
		t.Errorf("Server bookkeeping list should record the task, got %d entries", len(servers[0].Tasks))
	}
}

func TestSolver_ApplyWritesLoads(t *testing.T) {
	tasks := []*models.Task{
		solverTask(0, 9e9, 1e3, 1e2), // Offloads: local compute costs 9s and more energy
		solverTask(1, 1e8, 1e3, 1e2), // Stays local: transfer energy dwarfs its compute energy
	}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 9e9)}

	s, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	if !result.Found {
		t.Fatal("Expected a solution")
	}
	if err := s.Apply(result); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	var wantDevice, wantServer float64
	for idx, task := range tasks {
		p := result.Decisions[idx]
		if p.IsOffloaded() {
			wantServer += task.ComputingCycles
		} else {
			wantDevice += task.ComputingCycles
		}
	}
	if devices[0].CurrentLoad != wantDevice {
		t.Errorf("Device load %f, want %f", devices[0].CurrentLoad, wantDevice)
	}
	if servers[0].CurrentLoad != wantServer {
		t.Errorf("Server load %f, want %f", servers[0].CurrentLoad, wantServer)
	}

	// Apply resets loads first, so a second apply is idempotent.
	if err := s.Apply(result); err != nil {
		t.Fatalf("Second Apply() failed: %v", err)
	}
	if devices[0].CurrentLoad != wantDevice || servers[0].CurrentLoad != wantServer {
		t.Error("Apply should be idempotent over loads")
	}
}

func TestSolver_SupervisionRecords(t *testing.T) {
	tasks := []*models.Task{
		solverTask(0, 1e9, 1e2, 1e1),
		solverTask(1, 2e9, 1e2, 1e1),
		solverTask(2, 1.5e9, 1e2, 1e1),
	}
	devices := []*models.Device{solverDevice(0, 1e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 5e9)}

	s, err := New(tasks, devices, servers, Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	result := s.Solve(context.Background())
	records := s.SupervisionRecords(result)
	if len(records) != len(tasks) {
		t.Fatalf("Expected %d records, got %d", len(tasks), len(records))
	}

	for i, rec := range records {
		task := tasks[i]
		p := result.Decisions[i]

		if rec.Features.TaskID != task.ID {
			t.Errorf("Record %d: task ID %d, want %d", i, rec.Features.TaskID, task.ID)
		}
		if rec.Features.ComputingCycles != task.ComputingCycles {
			t.Errorf("Record %d: cycles %f, want %f", i, rec.Features.ComputingCycles, task.ComputingCycles)
		}
		if rec.Features.DeviceCPUFreq != devices[p.DeviceIndex].CPUFreq {
			t.Errorf("Record %d: device freq mismatch", i)
		}

		if p.IsOffloaded() {
			if rec.Label.Offload != 1 {
				t.Errorf("Record %d: offloaded task labeled local", i)
			}
			if rec.Label.ServerID != servers[p.ServerIndex].ID {
				t.Errorf("Record %d: server ID %d, want %d", i, rec.Label.ServerID, servers[p.ServerIndex].ID)
			}
			if rec.Label.ResourceShare != 1.0 || rec.Label.BandwidthShare != 1.0 {
				t.Errorf("Record %d: offload shares should be 1.0, got %+v", i, rec.Label)
			}
		} else {
			if rec.Label.Offload != 0 || rec.Label.ServerID != -1 {
				t.Errorf("Record %d: local task mislabeled: %+v", i, rec.Label)
			}
			if rec.Label.ResourceShare != 0 || rec.Label.BandwidthShare != 0 {
				t.Errorf("Record %d: local shares should be 0, got %+v", i, rec.Label)
			}
		}
	}

	if s.SupervisionRecords(&Result{}) != nil {
		t.Error("An absent solution should yield no records")
	}
}

func BenchmarkSolver_Solve(b *testing.B) {
	tasks := []*models.Task{
		solverTask(0, 1e9, 1e5, 5e4),
		solverTask(1, 2e9, 2e5, 5e4),
		solverTask(2, 3e9, 3e5, 5e4),
		solverTask(3, 4e9, 4e5, 5e4),
		solverTask(4, 5e9, 5e5, 5e4),
		solverTask(5, 6e9, 6e5, 5e4),
	}
	devices := []*models.Device{solverDevice(0, 1e9), solverDevice(1, 2e9)}
	servers := []*models.Server{solverServer(0, 5e9), solverServer(1, 8e9)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := New(tasks, devices, servers, Config{})
		if err != nil {
			b.Fatal(err)
		}
		s.Solve(context.Background())
	}
}
