package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateExperiment creates a new experiment record
func (r *Repository) CreateExperiment(exp *Experiment) error {
	return r.db.Create(exp).Error
}

// GetExperiment retrieves an experiment by ID
func (r *Repository) GetExperiment(id string) (*Experiment, error) {
	var exp Experiment
	err := r.db.First(&exp, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// ListExperiments lists all experiments
func (r *Repository) ListExperiments() ([]Experiment, error) {
	var exps []Experiment
	err := r.db.Order("created_at DESC").Find(&exps).Error
	return exps, err
}

// EndExperiment marks an experiment as finished
func (r *Repository) EndExperiment(id string, status string) error {
	now := time.Now()
	return r.db.Model(&Experiment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"end_time": now,
			"status":   status,
		}).Error
}

// SaveStrategyResult saves one strategy round outcome
func (r *Repository) SaveStrategyResult(result *StrategyResult) error {
	return r.db.Create(result).Error
}

// BatchSaveStrategyResults saves multiple results efficiently
func (r *Repository) BatchSaveStrategyResults(results []StrategyResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.CreateInBatches(results, 100).Error
}

// GetStrategyResults retrieves results for an experiment, optionally
// filtered by strategy
func (r *Repository) GetStrategyResults(experimentID string, strategy string) ([]StrategyResult, error) {
	var results []StrategyResult
	query := r.db.Where("experiment_id = ?", experimentID)

	if strategy != "" {
		query = query.Where("strategy = ?", strategy)
	}

	err := query.Order("round ASC, strategy ASC").Find(&results).Error
	return results, err
}

// BatchSaveDecisions saves placement decisions efficiently
func (r *Repository) BatchSaveDecisions(decisions []PlacementDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	return r.db.CreateInBatches(decisions, 100).Error
}

// GetDecisions retrieves placement decisions for one round
func (r *Repository) GetDecisions(experimentID string, round int, strategy string) ([]PlacementDecision, error) {
	var decisions []PlacementDecision
	query := r.db.Where("experiment_id = ? AND round = ?", experimentID, round)

	if strategy != "" {
		query = query.Where("strategy = ?", strategy)
	}

	err := query.Order("task_id ASC").Find(&decisions).Error
	return decisions, err
}

// BatchSaveSupervisionSamples saves labeled solver decisions efficiently
func (r *Repository) BatchSaveSupervisionSamples(samples []SupervisionSample) error {
	if len(samples) == 0 {
		return nil
	}
	return r.db.CreateInBatches(samples, 100).Error
}

// GetSupervisionSamples retrieves training samples for an experiment
func (r *Repository) GetSupervisionSamples(experimentID string, limit int) ([]SupervisionSample, error) {
	var samples []SupervisionSample
	query := r.db.Where("experiment_id = ?", experimentID).Order("id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&samples).Error
	return samples, err
}

// SaveCacheSnapshot saves one server cache's counters
func (r *Repository) SaveCacheSnapshot(snapshot *CacheSnapshot) error {
	return r.db.Create(snapshot).Error
}

// GetCacheSnapshots retrieves cache snapshots for an experiment
func (r *Repository) GetCacheSnapshots(experimentID string) ([]CacheSnapshot, error) {
	var snapshots []CacheSnapshot
	err := r.db.Where("experiment_id = ?", experimentID).
		Order("round ASC, server_id ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// StrategyAggregate holds per-strategy averages over an experiment
type StrategyAggregate struct {
	Strategy        string  `json:"strategy"`
	Runs            int64   `json:"runs"`
	AvgDelay        float64 `json:"avg_delay"`
	AvgEnergy       float64 `json:"avg_energy"`
	AvgBalance      float64 `json:"avg_balance"`
	AvgCost         float64 `json:"avg_cost"`
	AvgCacheHitRate float64 `json:"avg_cache_hit_rate"`
}

// GetExperimentSummary gets aggregated stats for an experiment
func (r *Repository) GetExperimentSummary(experimentID string) (map[string]interface{}, error) {
	summary := make(map[string]interface{})

	exp, err := r.GetExperiment(experimentID)
	if err != nil {
		return nil, err
	}
	summary["experiment"] = exp

	var aggregates []StrategyAggregate
	r.db.Model(&StrategyResult{}).
		Where("experiment_id = ?", experimentID).
		Select("strategy, COUNT(*) as runs, AVG(delay) as avg_delay, AVG(energy) as avg_energy, " +
			"AVG(balance) as avg_balance, AVG(cost) as avg_cost, AVG(cache_hit_rate) as avg_cache_hit_rate").
		Group("strategy").
		Scan(&aggregates)
	summary["strategies"] = aggregates

	var sampleCount int64
	r.db.Model(&SupervisionSample{}).
		Where("experiment_id = ?", experimentID).
		Count(&sampleCount)
	summary["supervision_samples"] = sampleCount

	return summary, nil
}

// DeleteExperiment deletes an experiment and all related data
func (r *Repository) DeleteExperiment(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Delete related data first
		if err := tx.Where("experiment_id = ?", id).Delete(&StrategyResult{}).Error; err != nil {
			return err
		}
		if err := tx.Where("experiment_id = ?", id).Delete(&PlacementDecision{}).Error; err != nil {
			return err
		}
		if err := tx.Where("experiment_id = ?", id).Delete(&SupervisionSample{}).Error; err != nil {
			return err
		}
		if err := tx.Where("experiment_id = ?", id).Delete(&CacheSnapshot{}).Error; err != nil {
			return err
		}

		// Delete experiment
		return tx.Where("id = ?", id).Delete(&Experiment{}).Error
	})
}

// GetLatestResult gets the most recent strategy result for an experiment
func (r *Repository) GetLatestResult(experimentID string) (*StrategyResult, error) {
	var result StrategyResult
	err := r.db.Where("experiment_id = ?", experimentID).
		Order("timestamp DESC").
		First(&result).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get latest strategy result: %w", err)
	}

	return &result, nil
}
