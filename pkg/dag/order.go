package dag

import (
	"sort"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// Order returns batch indices in a dependency-respecting execution order
// using Kahn's algorithm. Dependency IDs that match no task in the batch are
// ignored. Ready tasks are processed FIFO, seeded and released in batch
// order, so the result is deterministic for identical input. If the
// dependency graph contains a cycle, the unresolved remainder is appended
// sorted by task ID; Order never fails.
func Order(tasks []*models.Task) []int {
	if len(tasks) == 0 {
		return []int{}
	}

	idToIndex := make(map[int]int, len(tasks))
	for i, t := range tasks {
		idToIndex[t.ID] = i
	}

	inDegree := make([]int, len(tasks))
	dependents := make([][]int, len(tasks))

	for i, t := range tasks {
		for _, depID := range t.Dependencies {
			depIdx, ok := idToIndex[depID]
			if !ok || depIdx == i {
				continue // dangling or self reference, dropped
			}
			dependents[depIdx] = append(dependents[depIdx], i)
			inDegree[i]++
		}
	}

	queue := make([]int, 0, len(tasks))
	for i := range tasks {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(tasks))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// Cycle fallback: schedule whatever Kahn could not resolve, in task-ID
	// order, so the caller always receives a total order.
	if len(order) < len(tasks) {
		ordered := make([]bool, len(tasks))
		for _, idx := range order {
			ordered[idx] = true
		}
		remainder := make([]int, 0, len(tasks)-len(order))
		for i := range tasks {
			if !ordered[i] {
				remainder = append(remainder, i)
			}
		}
		sort.Slice(remainder, func(a, b int) bool {
			return tasks[remainder[a]].ID < tasks[remainder[b]].ID
		})
		order = append(order, remainder...)
	}

	return order
}

// DependencyIndices resolves each task's dependency IDs to batch indices.
// Dangling and self references are dropped, mirroring Order.
func DependencyIndices(tasks []*models.Task) [][]int {
	idToIndex := make(map[int]int, len(tasks))
	for i, t := range tasks {
		idToIndex[t.ID] = i
	}

	resolved := make([][]int, len(tasks))
	for i, t := range tasks {
		for _, depID := range t.Dependencies {
			depIdx, ok := idToIndex[depID]
			if !ok || depIdx == i {
				continue
			}
			resolved[i] = append(resolved[i], depIdx)
		}
	}
	return resolved
}
