package strategy

import (
	"context"
	"fmt"

	"github.com/mkarlsson/edge-offload-engine/pkg/solver"
)

// Optimal runs the exact branch-and-bound search and applies its
// decisions. Reuse caches are probed read-only during the search; the
// cache-aware path owns cache population.
type Optimal struct {
	// MaxNodes caps the search; 0 searches exhaustively.
	MaxNodes int
}

// NewOptimal creates the exact-solver strategy.
func NewOptimal() *Optimal {
	return &Optimal{}
}

func (o *Optimal) Name() string { return NameOptimal }

// Run solves the batch to optimality and commits the resulting loads.
func (o *Optimal) Run(ctx context.Context, env *Environment) (*Report, error) {
	env.normalize()
	if err := env.validate(); err != nil {
		return nil, err
	}

	probes := make(map[int]solver.ReuseProbe, len(env.Caches))
	for si, cache := range env.Caches {
		if cache != nil {
			probes[si] = cache
		}
	}

	s, err := solver.New(env.Tasks, env.Devices, env.Servers, solver.Config{
		Weights:   env.Weights,
		CostModel: env.CostModel,
		Evaluator: env.Evaluator,
		Caches:    probes,
		MaxNodes:  o.MaxNodes,
	})
	if err != nil {
		return nil, fmt.Errorf("building solver: %w", err)
	}

	result := s.Solve(ctx)
	report := &Report{
		Strategy:    o.Name(),
		Decisions:   result.Decisions,
		SolverStats: &result.Stats,
	}

	if len(env.Tasks) == 0 {
		env.resetLoads()
		return report, nil
	}
	if !result.Found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("search budget exhausted before a complete assignment")
	}

	if err := s.Apply(result); err != nil {
		return nil, fmt.Errorf("applying solution: %w", err)
	}

	report.Outcome = result.Outcome
	report.Cost = result.Cost
	report.countPlacements()
	return report, nil
}
