package dag

import (
	"testing"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

func makeTask(id int, deps ...int) *models.Task {
	return &models.Task{
		ID:              id,
		ComputingCycles: 1e9,
		Dependencies:    deps,
	}
}

func TestOrder_EmptyBatch(t *testing.T) {
	order := Order(nil)
	if order == nil {
		t.Fatal("Order(nil) should return an empty slice, not nil")
	}
	if len(order) != 0 {
		t.Errorf("Expected empty order, got %v", order)
	}
}

func TestOrder_IndependentTasksKeepBatchOrder(t *testing.T) {
	tasks := []*models.Task{makeTask(5), makeTask(3), makeTask(9)}

	order := Order(tasks)
	expected := []int{0, 1, 2}
	for i, idx := range order {
		if idx != expected[i] {
			t.Errorf("Expected batch order %v, got %v", expected, order)
			break
		}
	}
}

func TestOrder_LinearChain(t *testing.T) {
	// 2 depends on 1 depends on 0, declared in reverse batch order
	tasks := []*models.Task{
		makeTask(2, 1),
		makeTask(1, 0),
		makeTask(0),
	}

	order := Order(tasks)
	expected := []int{2, 1, 0}
	if len(order) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(order))
	}
	for i, idx := range order {
		if idx != expected[i] {
			t.Errorf("Expected order %v, got %v", expected, order)
			break
		}
	}
}

func TestOrder_DependenciesPrecedeDependents(t *testing.T) {
	tasks := []*models.Task{
		makeTask(0),
		makeTask(1, 0),
		makeTask(2, 0),
		makeTask(3, 1, 2),
		makeTask(4),
		makeTask(5, 3, 4),
	}

	order := Order(tasks)
	if len(order) != len(tasks) {
		t.Fatalf("Expected %d entries, got %d", len(tasks), len(order))
	}

	position := make(map[int]int, len(order))
	for pos, idx := range order {
		position[idx] = pos
	}

	idToIndex := make(map[int]int)
	for i, task := range tasks {
		idToIndex[task.ID] = i
	}

	for i, task := range tasks {
		for _, depID := range task.Dependencies {
			depIdx := idToIndex[depID]
			if position[depIdx] >= position[i] {
				t.Errorf("Dependency %d (pos %d) should precede task %d (pos %d)",
					depID, position[depIdx], task.ID, position[i])
			}
		}
	}
}

func TestOrder_DanglingDependencyIgnored(t *testing.T) {
	tasks := []*models.Task{
		makeTask(0, 99), // 99 is not in the batch
		makeTask(1, 0),
	}

	order := Order(tasks)
	if len(order) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(order))
	}
	if order[0] != 0 || order[1] != 1 {
		t.Errorf("Expected order [0 1], got %v", order)
	}
}

func TestOrder_CycleFallbackSortsByID(t *testing.T) {
	// 0 and 1 form a cycle; 2 is free
	tasks := []*models.Task{
		makeTask(7, 3),
		makeTask(3, 7),
		makeTask(1),
	}

	order := Order(tasks)
	if len(order) != 3 {
		t.Fatalf("Expected a total order of 3 entries, got %d", len(order))
	}

	// The free task resolves first, then the cycle members by task ID (3 < 7)
	expected := []int{2, 1, 0}
	for i, idx := range order {
		if idx != expected[i] {
			t.Errorf("Expected fallback order %v, got %v", expected, order)
			break
		}
	}
}

func TestOrder_Deterministic(t *testing.T) {
	tasks := []*models.Task{
		makeTask(0),
		makeTask(1, 0),
		makeTask(2, 0),
		makeTask(3, 1),
		makeTask(4, 2),
	}

	first := Order(tasks)
	for run := 0; run < 10; run++ {
		again := Order(tasks)
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("Order not deterministic: run %d gave %v, want %v", run, again, first)
			}
		}
	}
}

func TestDependencyIndices_ResolvesToBatchPositions(t *testing.T) {
	tasks := []*models.Task{
		makeTask(10),
		makeTask(20, 10, 99), // 99 dangling
		makeTask(30, 20),
	}

	resolved := DependencyIndices(tasks)
	if len(resolved[0]) != 0 {
		t.Errorf("Task 10 should have no resolved deps, got %v", resolved[0])
	}
	if len(resolved[1]) != 1 || resolved[1][0] != 0 {
		t.Errorf("Task 20 should resolve dep 10 to index 0, got %v", resolved[1])
	}
	if len(resolved[2]) != 1 || resolved[2][0] != 1 {
		t.Errorf("Task 30 should resolve dep 20 to index 1, got %v", resolved[2])
	}
}

func BenchmarkOrder(b *testing.B) {
	tasks := make([]*models.Task, 200)
	for i := range tasks {
		var deps []int
		if i > 0 && i%3 == 0 {
			deps = append(deps, i-1)
		}
		if i > 10 && i%7 == 0 {
			deps = append(deps, i-10)
		}
		tasks[i] = makeTask(i, deps...)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Order(tasks)
	}
}
