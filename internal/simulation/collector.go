package simulation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsson/edge-offload-engine/internal/database"
	"github.com/mkarlsson/edge-offload-engine/pkg/models"
	"github.com/mkarlsson/edge-offload-engine/pkg/reuse"
	"github.com/mkarlsson/edge-offload-engine/pkg/solver"
	"github.com/mkarlsson/edge-offload-engine/pkg/strategy"
)

// Collector buffers per-round records and writes them to the analytics
// database in batches.
type Collector struct {
	repo         *database.Repository
	experimentID string

	results   []database.StrategyResult
	decisions []database.PlacementDecision
	samples   []database.SupervisionSample

	bufferSize int
	lastFlush  time.Time
}

// NewCollector registers a new experiment and returns its collector. The
// config argument is marshaled and stored as the experiment's settings
// snapshot; nil skips the snapshot.
func NewCollector(repo *database.Repository, name, description string, config interface{}) (*Collector, error) {
	configJSON := ""
	if config != nil {
		if data, err := json.Marshal(config); err == nil {
			configJSON = string(data)
		}
	}

	exp := &database.Experiment{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		StartTime:   time.Now(),
		Status:      "running",
		Config:      configJSON,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := repo.CreateExperiment(exp); err != nil {
		return nil, fmt.Errorf("failed to create experiment: %w", err)
	}

	return &Collector{
		repo:         repo,
		experimentID: exp.ID,
		results:      make([]database.StrategyResult, 0, 100),
		decisions:    make([]database.PlacementDecision, 0, 100),
		samples:      make([]database.SupervisionSample, 0, 100),
		bufferSize:   100,
		lastFlush:    time.Now(),
	}, nil
}

// ExperimentID returns the registered experiment's ID.
func (c *Collector) ExperimentID() string {
	return c.experimentID
}

// CollectReport buffers one strategy's round outcome together with the
// batch shape it ran against.
func (c *Collector) CollectReport(round int, report *strategy.Report, taskCount, deviceCount, serverCount int) error {
	result := database.StrategyResult{
		ExperimentID: c.experimentID,
		Timestamp:    time.Now(),

		Round:    round,
		Strategy: report.Strategy,

		Delay:   report.Outcome.Delay,
		Energy:  report.Outcome.Energy,
		Balance: report.Outcome.Balance,
		Cost:    report.Cost,

		LocalTasks:     report.LocalTasks,
		OffloadedTasks: report.OffloadedTasks,
		ReusedTasks:    report.ReusedTasks,
		CacheHitRate:   report.CacheHitRate,

		TaskCount:   taskCount,
		DeviceCount: deviceCount,
		ServerCount: serverCount,

		CreatedAt: time.Now(),
	}
	if report.SolverStats != nil {
		result.NodesExpanded = report.SolverStats.NodesExpanded
		result.NodesPruned = report.SolverStats.NodesPruned
	}

	c.results = append(c.results, result)
	return c.maybeFlush()
}

// CollectDecisions buffers every task placement of one run.
func (c *Collector) CollectDecisions(round int, strategyName string, tasks []*models.Task, decisions models.DecisionMap) error {
	now := time.Now()
	for idx, task := range tasks {
		p, ok := decisions[idx]
		if !ok {
			continue
		}
		c.decisions = append(c.decisions, database.PlacementDecision{
			ExperimentID: c.experimentID,
			Timestamp:    now,
			Round:        round,
			Strategy:     strategyName,
			TaskID:       task.ID,
			DeviceID:     p.DeviceIndex,
			ServerID:     p.ServerIndex,
			Offloaded:    p.IsOffloaded(),
			Reused:       p.Reused,
			CreatedAt:    now,
		})
	}
	return c.maybeFlush()
}

// CollectSupervision buffers the labeled records of one exact solve.
func (c *Collector) CollectSupervision(round int, records []solver.SupervisionRecord) error {
	now := time.Now()
	for _, rec := range records {
		c.samples = append(c.samples, database.SupervisionSample{
			ExperimentID: c.experimentID,
			Timestamp:    now,
			Round:        round,

			TaskID:                  rec.Features.TaskID,
			ComputingCycles:         rec.Features.ComputingCycles,
			InputDataSize:           rec.Features.InputDataSize,
			OutputDataSize:          rec.Features.OutputDataSize,
			DependencyCount:         rec.Features.DependencyCount,
			DeviceID:                rec.Features.DeviceID,
			DeviceCPUFreq:           rec.Features.DeviceCPUFreq,
			DeviceEnergyCoefficient: rec.Features.DeviceEnergyCoefficient,
			DeviceTxPower:           rec.Features.DeviceTxPower,
			DeviceDataRate:          rec.Features.DeviceDataRate,
			DeviceCurrentLoad:       rec.Features.DeviceCurrentLoad,

			Offload:        rec.Label.Offload,
			ServerID:       rec.Label.ServerID,
			ResourceShare:  rec.Label.ResourceShare,
			BandwidthShare: rec.Label.BandwidthShare,

			CreatedAt: now,
		})
	}
	return c.maybeFlush()
}

// CollectCacheSnapshot writes one server cache's counters immediately.
func (c *Collector) CollectCacheSnapshot(round int, cache *reuse.Cache) error {
	stats := cache.Stats()
	snapshot := &database.CacheSnapshot{
		ExperimentID: c.experimentID,
		Timestamp:    time.Now(),
		Round:        round,
		ServerID:     cache.ServerID(),

		Entries:    cache.Len(),
		Buckets:    cache.BucketCount(),
		Hits:       stats.Hits,
		Insertions: stats.Insertions,
		Evictions:  stats.Evictions,
		HitRate:    stats.HitRate(),

		CreatedAt: time.Now(),
	}
	return c.repo.SaveCacheSnapshot(snapshot)
}

// maybeFlush writes the buffers once they grow past the batch size or
// five seconds have passed since the last write.
func (c *Collector) maybeFlush() error {
	buffered := len(c.results) + len(c.decisions) + len(c.samples)
	if buffered >= c.bufferSize || time.Since(c.lastFlush) > 5*time.Second {
		return c.Flush()
	}
	return nil
}

// Flush writes every buffered record.
func (c *Collector) Flush() error {
	if len(c.results) > 0 {
		if err := c.repo.BatchSaveStrategyResults(c.results); err != nil {
			return fmt.Errorf("failed to save strategy results: %w", err)
		}
		c.results = c.results[:0]
	}
	if len(c.decisions) > 0 {
		if err := c.repo.BatchSaveDecisions(c.decisions); err != nil {
			return fmt.Errorf("failed to save placement decisions: %w", err)
		}
		c.decisions = c.decisions[:0]
	}
	if len(c.samples) > 0 {
		if err := c.repo.BatchSaveSupervisionSamples(c.samples); err != nil {
			return fmt.Errorf("failed to save supervision samples: %w", err)
		}
		c.samples = c.samples[:0]
	}
	c.lastFlush = time.Now()
	return nil
}

// Close flushes remaining records and marks the experiment completed.
func (c *Collector) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.repo.EndExperiment(c.experimentID, "completed")
}

// Fail flushes remaining records and marks the experiment failed.
func (c *Collector) Fail() error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.repo.EndExperiment(c.experimentID, "failed")
}
