package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mkarlsson/edge-offload-engine/internal/config"
	"github.com/mkarlsson/edge-offload-engine/internal/database"
	"github.com/mkarlsson/edge-offload-engine/internal/logging"
	"github.com/mkarlsson/edge-offload-engine/internal/metrics"
	"github.com/mkarlsson/edge-offload-engine/internal/simulation"
	"github.com/mkarlsson/edge-offload-engine/pkg/strategy"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to experiment config (JSON, optional)")
		dbPath      = flag.String("db", "", "Path to SQLite database file (overrides config)")
		mode        = flag.String("mode", "compare", "Run mode: compare, single or supervise")
		stratName   = flag.String("strategy", strategy.NameGreedy, "Strategy to run in single mode")
		taskCount   = flag.Int("tasks", 20, "Task count for single mode")
		seed        = flag.Int64("seed", 0, "Random seed (overrides config, 0 = time-based)")
		expName     = flag.String("name", "", "Experiment name (overrides config)")
		description = flag.String("description", "Edge offloading strategy comparison", "Experiment description")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *seed != 0 {
		cfg.Experiment.Seed = *seed
	}
	if *expName != "" {
		cfg.Experiment.Name = *expName
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	log.Printf("Connecting to database at %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Register the experiment and create its collector
	collector, err := simulation.NewCollector(repo, cfg.Experiment.Name, *description, cfg)
	if err != nil {
		log.Fatalf("Failed to create collector: %v", err)
	}
	log.Printf("Created experiment with ID: %s", collector.ExperimentID())

	runner, err := simulation.NewRunner(cfg, collector, metrics.New(), logger)
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	switch *mode {
	case "compare":
		err = runner.Run(ctx)
	case "supervise":
		err = runner.Supervise(ctx)
	case "single":
		var report *strategy.Report
		report, err = runner.Single(ctx, *stratName, *taskCount)
		if err == nil {
			log.Printf("Strategy %s: delay=%.4fs energy=%.2f balance=%.1f cost=%.4f (local=%d offloaded=%d reused=%d)",
				report.Strategy, report.Outcome.Delay, report.Outcome.Energy, report.Outcome.Balance,
				report.Cost, report.LocalTasks, report.OffloadedTasks, report.ReusedTasks)
		}
	default:
		log.Fatalf("Unknown mode: %s", *mode)
	}
	if err != nil {
		log.Fatalf("Experiment failed: %v", err)
	}

	log.Printf("Experiment completed in %v", time.Since(start))
	log.Printf("Results stored in database. Experiment ID: %s", collector.ExperimentID())
	log.Printf("Start analytics server to view results: ./analytics-server -db %s", cfg.Database.Path)
}
