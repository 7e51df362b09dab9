package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkarlsson/edge-offload-engine/internal/config"
	"github.com/mkarlsson/edge-offload-engine/internal/metrics"
	"github.com/mkarlsson/edge-offload-engine/pkg/balance"
	"github.com/mkarlsson/edge-offload-engine/pkg/cost"
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
	"github.com/mkarlsson/edge-offload-engine/pkg/reuse"
	"github.com/mkarlsson/edge-offload-engine/pkg/solver"
	"github.com/mkarlsson/edge-offload-engine/pkg/strategy"
)

// Runner drives offloading experiments over one generated topology. The
// device fleet, server pool and per-server reuse caches are built once
// and shared across every round, so cache contents carry over between
// batches the way a long-running deployment's would.
type Runner struct {
	cfg       *config.Config
	generator *Generator
	collector *Collector
	metrics   *metrics.Metrics
	logger    *zap.Logger

	devices    []*models.Device
	servers    []*models.Server
	caches     map[int]*reuse.Cache
	strategies []strategy.Strategy
	aggregates map[string]*balance.Aggregator

	seed           uint64
	snapshotCaches bool
}

// NewRunner builds a runner from the experiment configuration. A zero
// seed is resolved from the wall clock once, so every component of the
// run shares the same reproducible seed.
func NewRunner(cfg *config.Config, collector *Collector, m *metrics.Metrics, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}

	seed := uint64(cfg.Experiment.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	generator := NewGenerator(cfg.Workload.TaskArrivalRate, seed)
	devices := generator.Devices(cfg.Workload.Devices)
	servers := generator.Servers(cfg.Workload.Servers)

	caches := make(map[int]*reuse.Cache, len(servers))
	for i, srv := range servers {
		caches[i] = reuse.New(srv.ID, reuse.Config{
			MaxSize:         cfg.Cache.MaxSize,
			K:               cfg.Cache.K,
			AcceptThreshold: cfg.Cache.AcceptThreshold,
			ScoreDecayRate:  cfg.Cache.ScoreDecayRate,
			HashCount:       cfg.Cache.HashCount,
			Seed:            seed + uint64(i) + 1,
		})
	}

	strategies := make([]strategy.Strategy, 0, len(cfg.Experiment.Strategies))
	snapshotCaches := false
	for _, name := range cfg.Experiment.Strategies {
		strat, err := strategy.ByName(name)
		if err != nil {
			return nil, err
		}
		if opt, ok := strat.(*strategy.Optimal); ok {
			opt.MaxNodes = cfg.Solver.MaxNodes
		}
		if name == strategy.NameCacheAware || name == strategy.NameOptimal {
			snapshotCaches = true
		}
		strategies = append(strategies, strat)
	}

	aggregates := make(map[string]*balance.Aggregator, len(strategies))
	for _, strat := range strategies {
		aggregates[strat.Name()] = balance.NewAggregator()
	}

	return &Runner{
		cfg:            cfg,
		generator:      generator,
		collector:      collector,
		metrics:        m,
		logger:         logger,
		devices:        devices,
		servers:        servers,
		caches:         caches,
		strategies:     strategies,
		aggregates:     aggregates,
		seed:           seed,
		snapshotCaches: snapshotCaches,
	}, nil
}

// Seed returns the resolved experiment seed.
func (r *Runner) Seed() uint64 {
	return r.seed
}

// Run executes the comparison sweep: every batch size from task_count_min
// to task_count_max, repeated runs_per_count times, with every configured
// strategy placing the same batch.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	exp := r.cfg.Experiment
	r.logger.Info("starting comparison experiment",
		zap.String("experiment_id", r.collector.ExperimentID()),
		zap.Uint64("seed", r.seed),
		zap.Int("devices", len(r.devices)),
		zap.Int("servers", len(r.servers)),
		zap.Strings("strategies", exp.Strategies),
		zap.Int("task_count_min", exp.TaskCountMin),
		zap.Int("task_count_max", exp.TaskCountMax))

	round := 0
	for count := exp.TaskCountMin; count <= exp.TaskCountMax; count += exp.TaskCountStep {
		for run := 0; run < exp.RunsPerCount; run++ {
			if err := ctx.Err(); err != nil {
				return r.fail(err)
			}
			if err := r.runRound(ctx, round, count); err != nil {
				return r.fail(err)
			}
			round++
		}
		r.logger.Info("batch size swept",
			zap.Int("task_count", count),
			zap.Int("rounds_completed", round))
	}

	if err := r.collector.Close(); err != nil {
		return fmt.Errorf("failed to finalize experiment: %w", err)
	}

	for _, strat := range r.strategies {
		agg := r.aggregates[strat.Name()]
		if agg.Count() == 0 {
			continue
		}
		avg := agg.Summary()
		r.logger.Info("strategy averages",
			zap.String("strategy", strat.Name()),
			zap.Int("runs", avg.Runs),
			zap.Float64("mean_delay", avg.MeanDelay),
			zap.Float64("mean_energy", avg.MeanEnergy),
			zap.Float64("mean_balance", avg.MeanBalance))
	}

	r.logger.Info("experiment completed",
		zap.String("experiment_id", r.collector.ExperimentID()),
		zap.Int("rounds", round),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// runRound generates one batch and runs every strategy against it.
func (r *Runner) runRound(ctx context.Context, round, taskCount int) error {
	tasks := r.generator.Tasks(taskCount)
	r.resetTopology()
	r.generator.Assign(tasks, r.devices)
	env := r.environment(tasks)

	for _, strat := range r.strategies {
		runStart := time.Now()
		report, err := strat.Run(ctx, env)
		if err != nil {
			r.metrics.ObserveError(strat.Name())
			return fmt.Errorf("strategy %s failed on round %d: %w", strat.Name(), round, err)
		}
		elapsed := time.Since(runStart)

		r.metrics.ObserveRun(strat.Name(), elapsed, report.Cost)
		r.metrics.ObservePlacements(strat.Name(), report.LocalTasks, report.OffloadedTasks, report.ReusedTasks)
		r.metrics.SetCacheHitRate(strat.Name(), report.CacheHitRate)
		if report.SolverStats != nil {
			r.metrics.ObserveSolver(report.SolverStats.NodesExpanded)
		}
		r.aggregates[strat.Name()].Add(report.Outcome)

		if err := r.collector.CollectReport(round, report, len(tasks), len(r.devices), len(r.servers)); err != nil {
			return err
		}
		if err := r.collector.CollectDecisions(round, strat.Name(), tasks, report.Decisions); err != nil {
			return err
		}

		r.logger.Debug("strategy run finished",
			zap.Int("round", round),
			zap.String("strategy", strat.Name()),
			zap.Int("tasks", len(tasks)),
			zap.Float64("cost", report.Cost),
			zap.Float64("delay", report.Outcome.Delay),
			zap.Float64("balance", report.Outcome.Balance),
			zap.Int("reused", report.ReusedTasks),
			zap.Duration("elapsed", elapsed))
	}

	if r.snapshotCaches {
		for i := range r.servers {
			if cache, ok := r.caches[i]; ok {
				if err := r.collector.CollectCacheSnapshot(round, cache); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Single runs one named strategy against a single generated batch and
// returns its report.
func (r *Runner) Single(ctx context.Context, name string, taskCount int) (*strategy.Report, error) {
	strat, err := strategy.ByName(name)
	if err != nil {
		return nil, err
	}
	if opt, ok := strat.(*strategy.Optimal); ok {
		opt.MaxNodes = r.cfg.Solver.MaxNodes
	}

	tasks := r.generator.Tasks(taskCount)
	r.resetTopology()
	r.generator.Assign(tasks, r.devices)

	report, err := strat.Run(ctx, r.environment(tasks))
	if err != nil {
		r.metrics.ObserveError(name)
		return nil, r.fail(fmt.Errorf("strategy %s failed: %w", name, err))
	}

	r.metrics.ObserveRun(name, 0, report.Cost)
	if err := r.collector.CollectReport(0, report, len(tasks), len(r.devices), len(r.servers)); err != nil {
		return nil, r.fail(err)
	}
	if err := r.collector.CollectDecisions(0, name, tasks, report.Decisions); err != nil {
		return nil, r.fail(err)
	}
	if err := r.collector.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize experiment: %w", err)
	}
	return report, nil
}

// Supervise solves a series of fresh batches exactly and stores every
// labeled decision as training data for learned offloading policies.
// Caches are left out so the labels reflect pure placement choices.
func (r *Runner) Supervise(ctx context.Context) error {
	sup := r.cfg.Supervision
	r.logger.Info("collecting supervision traces",
		zap.String("experiment_id", r.collector.ExperimentID()),
		zap.Uint64("seed", r.seed),
		zap.Int("batches", sup.Batches),
		zap.Int("tasks_per_batch", sup.TasksPerBatch))

	for batch := 0; batch < sup.Batches; batch++ {
		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}

		tasks := r.generator.Tasks(sup.TasksPerBatch)
		r.resetTopology()
		r.generator.Assign(tasks, r.devices)

		s, err := solver.New(tasks, r.devices, r.servers, solver.Config{
			Weights:   r.weights(),
			CostModel: cost.NewModel(r.cfg.Solver.EnergyScale),
			MaxNodes:  r.cfg.Solver.MaxNodes,
		})
		if err != nil {
			return r.fail(fmt.Errorf("building solver for batch %d: %w", batch, err))
		}

		result := s.Solve(ctx)
		if !result.Found {
			if ctx.Err() != nil {
				return r.fail(ctx.Err())
			}
			return r.fail(fmt.Errorf("batch %d: search budget exhausted before a complete assignment", batch))
		}
		r.metrics.ObserveSolver(result.Stats.NodesExpanded)

		if err := r.collector.CollectSupervision(batch, s.SupervisionRecords(result)); err != nil {
			return r.fail(err)
		}

		r.logger.Debug("batch solved",
			zap.Int("batch", batch),
			zap.Int("tasks", len(tasks)),
			zap.Float64("cost", result.Cost),
			zap.Int("nodes_expanded", result.Stats.NodesExpanded),
			zap.Bool("exhausted", result.Exhausted))
	}

	if err := r.collector.Close(); err != nil {
		return fmt.Errorf("failed to finalize experiment: %w", err)
	}
	r.logger.Info("supervision traces collected", zap.Int("batches", sup.Batches))
	return nil
}

// resetTopology clears loads and queues left behind by the previous
// round. Cache contents survive on purpose.
func (r *Runner) resetTopology() {
	for _, d := range r.devices {
		d.Tasks = nil
		d.ResetLoad()
	}
	for _, s := range r.servers {
		s.Tasks = nil
		s.ResetLoad()
	}
}

func (r *Runner) weights() solver.Weights {
	return solver.Weights{
		Delay:   r.cfg.Solver.DelayWeight,
		Energy:  r.cfg.Solver.EnergyWeight,
		Balance: r.cfg.Solver.BalanceWeight,
	}
}

func (r *Runner) environment(tasks []*models.Task) *strategy.Environment {
	return &strategy.Environment{
		Tasks:     tasks,
		Devices:   r.devices,
		Servers:   r.servers,
		Caches:    r.caches,
		Weights:   r.weights(),
		CostModel: cost.NewModel(r.cfg.Solver.EnergyScale),
	}
}

// fail marks the experiment failed, preserving the original error.
func (r *Runner) fail(err error) error {
	if ferr := r.collector.Fail(); ferr != nil {
		r.logger.Warn("failed to mark experiment as failed", zap.Error(ferr))
	}
	return err
}
