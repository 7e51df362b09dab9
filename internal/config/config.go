package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mkarlsson/edge-offload-engine/pkg/strategy"
)

// Config is the full experiment configuration. Every field has a default,
// so an empty file (or no file at all) yields a runnable setup.
type Config struct {
	Experiment  ExperimentConfig  `mapstructure:"experiment" json:"experiment"`
	Workload    WorkloadConfig    `mapstructure:"workload" json:"workload"`
	Solver      SolverConfig      `mapstructure:"solver" json:"solver"`
	Cache       CacheConfig       `mapstructure:"cache" json:"cache"`
	Supervision SupervisionConfig `mapstructure:"supervision" json:"supervision"`
	Database    DatabaseConfig    `mapstructure:"database" json:"database"`
	API         APIConfig         `mapstructure:"api" json:"api"`
	Logging     LoggingConfig     `mapstructure:"logging" json:"logging"`
}

// ExperimentConfig shapes the comparison sweep: which strategies run,
// which batch sizes are swept, and how many repetitions each size gets.
type ExperimentConfig struct {
	Name          string   `mapstructure:"name" json:"name"`
	Strategies    []string `mapstructure:"strategies" json:"strategies"`
	TaskCountMin  int      `mapstructure:"task_count_min" json:"task_count_min"`
	TaskCountMax  int      `mapstructure:"task_count_max" json:"task_count_max"`
	TaskCountStep int      `mapstructure:"task_count_step" json:"task_count_step"`
	RunsPerCount  int      `mapstructure:"runs_per_count" json:"runs_per_count"`
	Seed          int64    `mapstructure:"seed" json:"seed"` // 0 means time-based
}

// WorkloadConfig sizes the generated edge topology.
type WorkloadConfig struct {
	Devices         int     `mapstructure:"devices" json:"devices"`
	Servers         int     `mapstructure:"servers" json:"servers"`
	TaskArrivalRate float64 `mapstructure:"task_arrival_rate" json:"task_arrival_rate"` // Poisson mean when no fixed count is given
}

// SolverConfig carries the objective weights and the search budget for
// the exact strategy.
type SolverConfig struct {
	DelayWeight   float64 `mapstructure:"delay_weight" json:"delay_weight"`
	EnergyWeight  float64 `mapstructure:"energy_weight" json:"energy_weight"`
	BalanceWeight float64 `mapstructure:"balance_weight" json:"balance_weight"`
	EnergyScale   float64 `mapstructure:"energy_scale" json:"energy_scale"`
	MaxNodes      int     `mapstructure:"max_nodes" json:"max_nodes"` // 0 disables the budget
}

// CacheConfig tunes the per-server computation reuse caches.
type CacheConfig struct {
	MaxSize         int     `mapstructure:"max_size" json:"max_size"`
	K               int     `mapstructure:"k" json:"k"`
	AcceptThreshold float64 `mapstructure:"accept_threshold" json:"accept_threshold"`
	ScoreDecayRate  float64 `mapstructure:"score_decay_rate" json:"score_decay_rate"`
	HashCount       int     `mapstructure:"hash_count" json:"hash_count"`
}

// SupervisionConfig sizes the offline expert-trace collection pass.
type SupervisionConfig struct {
	Batches       int `mapstructure:"batches" json:"batches"`
	TasksPerBatch int `mapstructure:"tasks_per_batch" json:"tasks_per_batch"`
}

// DatabaseConfig locates the SQLite analytics store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// APIConfig holds the analytics server listen settings.
type APIConfig struct {
	Port string `mapstructure:"port" json:"port"`
}

// LoggingConfig selects the log level and encoder style.
type LoggingConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	Development bool   `mapstructure:"development" json:"development"`
}

// Default returns the reference experiment setup: 50 devices and 10 edge
// servers, batch sizes swept from 10 to 100 in steps of 10 with 5 runs
// each, and the exact strategy reserved for supervision traces.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Name:          "offload-comparison",
			Strategies:    []string{strategy.NameLocalOnly, strategy.NameGreedy, strategy.NameCacheAware},
			TaskCountMin:  10,
			TaskCountMax:  100,
			TaskCountStep: 10,
			RunsPerCount:  5,
		},
		Workload: WorkloadConfig{
			Devices:         50,
			Servers:         10,
			TaskArrivalRate: 5.0,
		},
		Solver: SolverConfig{
			DelayWeight:   1.0 / 3.0,
			EnergyWeight:  1.0 / 3.0,
			BalanceWeight: 1.0 / 3.0,
			EnergyScale:   1e9,
			MaxNodes:      50000,
		},
		Cache: CacheConfig{
			MaxSize:         100,
			K:               3,
			AcceptThreshold: 0.2,
			ScoreDecayRate:  0.01,
			HashCount:       10,
		},
		Supervision: SupervisionConfig{
			Batches:       10,
			TasksPerBatch: 20,
		},
		Database: DatabaseConfig{
			Path: "offload.db",
		},
		API: APIConfig{
			Port: "8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a JSON config file over the defaults. An empty path skips the
// file and returns defaults merged with OFFLOAD_* environment overrides
// (for example OFFLOAD_WORKLOAD_DEVICES=100).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("OFFLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("experiment.name", d.Experiment.Name)
	v.SetDefault("experiment.strategies", d.Experiment.Strategies)
	v.SetDefault("experiment.task_count_min", d.Experiment.TaskCountMin)
	v.SetDefault("experiment.task_count_max", d.Experiment.TaskCountMax)
	v.SetDefault("experiment.task_count_step", d.Experiment.TaskCountStep)
	v.SetDefault("experiment.runs_per_count", d.Experiment.RunsPerCount)
	v.SetDefault("experiment.seed", d.Experiment.Seed)
	v.SetDefault("workload.devices", d.Workload.Devices)
	v.SetDefault("workload.servers", d.Workload.Servers)
	v.SetDefault("workload.task_arrival_rate", d.Workload.TaskArrivalRate)
	v.SetDefault("solver.delay_weight", d.Solver.DelayWeight)
	v.SetDefault("solver.energy_weight", d.Solver.EnergyWeight)
	v.SetDefault("solver.balance_weight", d.Solver.BalanceWeight)
	v.SetDefault("solver.energy_scale", d.Solver.EnergyScale)
	v.SetDefault("solver.max_nodes", d.Solver.MaxNodes)
	v.SetDefault("cache.max_size", d.Cache.MaxSize)
	v.SetDefault("cache.k", d.Cache.K)
	v.SetDefault("cache.accept_threshold", d.Cache.AcceptThreshold)
	v.SetDefault("cache.score_decay_rate", d.Cache.ScoreDecayRate)
	v.SetDefault("cache.hash_count", d.Cache.HashCount)
	v.SetDefault("supervision.batches", d.Supervision.Batches)
	v.SetDefault("supervision.tasks_per_batch", d.Supervision.TasksPerBatch)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
}

// Validate checks that the configuration describes a runnable experiment.
func (c *Config) Validate() error {
	if c.Experiment.Name == "" {
		return fmt.Errorf("experiment.name must not be empty")
	}
	if len(c.Experiment.Strategies) == 0 {
		return fmt.Errorf("experiment.strategies must name at least one strategy")
	}
	for _, name := range c.Experiment.Strategies {
		if _, err := strategy.ByName(name); err != nil {
			return fmt.Errorf("experiment.strategies: %w", err)
		}
	}
	if c.Experiment.TaskCountMin < 1 {
		return fmt.Errorf("experiment.task_count_min must be at least 1, got %d", c.Experiment.TaskCountMin)
	}
	if c.Experiment.TaskCountMax < c.Experiment.TaskCountMin {
		return fmt.Errorf("experiment.task_count_max %d is below task_count_min %d",
			c.Experiment.TaskCountMax, c.Experiment.TaskCountMin)
	}
	if c.Experiment.TaskCountStep < 1 {
		return fmt.Errorf("experiment.task_count_step must be at least 1, got %d", c.Experiment.TaskCountStep)
	}
	if c.Experiment.RunsPerCount < 1 {
		return fmt.Errorf("experiment.runs_per_count must be at least 1, got %d", c.Experiment.RunsPerCount)
	}
	if c.Workload.Devices < 1 {
		return fmt.Errorf("workload.devices must be at least 1, got %d", c.Workload.Devices)
	}
	if c.Workload.Servers < 0 {
		return fmt.Errorf("workload.servers must not be negative, got %d", c.Workload.Servers)
	}
	if c.Workload.TaskArrivalRate <= 0 {
		return fmt.Errorf("workload.task_arrival_rate must be positive, got %g", c.Workload.TaskArrivalRate)
	}
	if c.Solver.DelayWeight < 0 || c.Solver.EnergyWeight < 0 || c.Solver.BalanceWeight < 0 {
		return fmt.Errorf("solver weights must not be negative")
	}
	if c.Solver.EnergyScale < 0 {
		return fmt.Errorf("solver.energy_scale must not be negative, got %g", c.Solver.EnergyScale)
	}
	if c.Solver.MaxNodes < 0 {
		return fmt.Errorf("solver.max_nodes must not be negative, got %d", c.Solver.MaxNodes)
	}
	if c.Cache.MaxSize < 1 {
		return fmt.Errorf("cache.max_size must be at least 1, got %d", c.Cache.MaxSize)
	}
	if c.Cache.K < 1 {
		return fmt.Errorf("cache.k must be at least 1, got %d", c.Cache.K)
	}
	if c.Cache.AcceptThreshold <= 0 {
		return fmt.Errorf("cache.accept_threshold must be positive, got %g", c.Cache.AcceptThreshold)
	}
	if c.Cache.ScoreDecayRate < 0 {
		return fmt.Errorf("cache.score_decay_rate must not be negative, got %g", c.Cache.ScoreDecayRate)
	}
	if c.Cache.HashCount < 1 {
		return fmt.Errorf("cache.hash_count must be at least 1, got %d", c.Cache.HashCount)
	}
	if c.Supervision.Batches < 1 {
		return fmt.Errorf("supervision.batches must be at least 1, got %d", c.Supervision.Batches)
	}
	if c.Supervision.TasksPerBatch < 1 {
		return fmt.Errorf("supervision.tasks_per_batch must be at least 1, got %d", c.Supervision.TasksPerBatch)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.API.Port == "" {
		return fmt.Errorf("api.port must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
