package database

import (
	"time"
)

// Experiment represents a single simulation experiment run
type Experiment struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Status      string     `json:"status"` // running, completed, failed
	Config      string     `json:"config"` // JSON configuration
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StrategyResult represents one strategy's outcome over one batch round
type StrategyResult struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ExperimentID string    `json:"experiment_id" gorm:"index"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`

	Round    int    `json:"round"`
	Strategy string `json:"strategy"` // local_only, greedy, cache_aware, optimal

	// Outcome metrics
	Delay   float64 `json:"delay"`   // critical path, seconds
	Energy  float64 `json:"energy"`  // total scaled energy
	Balance float64 `json:"balance"` // server load balance [0,100]
	Cost    float64 `json:"cost"`    // weighted objective

	// Placement counters
	LocalTasks     int     `json:"local_tasks"`
	OffloadedTasks int     `json:"offloaded_tasks"`
	ReusedTasks    int     `json:"reused_tasks"`
	CacheHitRate   float64 `json:"cache_hit_rate"`

	// Batch shape
	TaskCount   int `json:"task_count"`
	DeviceCount int `json:"device_count"`
	ServerCount int `json:"server_count"`

	// Search effort (optimal strategy only)
	NodesExpanded int `json:"nodes_expanded"`
	NodesPruned   int `json:"nodes_pruned"`

	CreatedAt time.Time `json:"created_at"`
}

// PlacementDecision represents a single task's placement within a round
type PlacementDecision struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ExperimentID string    `json:"experiment_id" gorm:"index"`
	Timestamp    time.Time `json:"timestamp"`

	Round    int    `json:"round"`
	Strategy string `json:"strategy"`

	TaskID    int  `json:"task_id"`
	DeviceID  int  `json:"device_id"`
	ServerID  int  `json:"server_id"` // -1 for local execution
	Offloaded bool `json:"offloaded"`
	Reused    bool `json:"reused"`

	CreatedAt time.Time `json:"created_at"`
}

// SupervisionSample is one labeled decision from an exact solve,
// exportable as training data for learned offloading policies
type SupervisionSample struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ExperimentID string    `json:"experiment_id" gorm:"index"`
	Timestamp    time.Time `json:"timestamp"`

	Round int `json:"round"`

	// Task and device features
	TaskID                  int     `json:"task_id"`
	ComputingCycles         float64 `json:"computing_cycles"`
	InputDataSize           float64 `json:"input_data_size"`
	OutputDataSize          float64 `json:"output_data_size"`
	DependencyCount         int     `json:"dependency_count"`
	DeviceID                int     `json:"device_id"`
	DeviceCPUFreq           float64 `json:"device_cpu_freq"`
	DeviceEnergyCoefficient float64 `json:"device_energy_coef"`
	DeviceTxPower           float64 `json:"device_tx_power"`
	DeviceDataRate          float64 `json:"device_data_rate"`
	DeviceCurrentLoad       float64 `json:"device_current_load"`

	// Labels
	Offload        int     `json:"offload"` // 0 local, 1 offload
	ServerID       int     `json:"server_id"`
	ResourceShare  float64 `json:"resource_share"`
	BandwidthShare float64 `json:"bandwidth_share"`

	CreatedAt time.Time `json:"created_at"`
}

// CacheSnapshot captures one server cache's counters after a round
type CacheSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ExperimentID string    `json:"experiment_id" gorm:"index"`
	Timestamp    time.Time `json:"timestamp"`

	Round    int `json:"round"`
	ServerID int `json:"server_id"`

	Entries    int     `json:"entries"`
	Buckets    int     `json:"buckets"`
	Hits       int     `json:"hits"`
	Insertions int     `json:"insertions"`
	Evictions  int     `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`

	CreatedAt time.Time `json:"created_at"`
}
