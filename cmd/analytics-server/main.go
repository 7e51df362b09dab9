package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/mkarlsson/edge-offload-engine/internal/api"
	"github.com/mkarlsson/edge-offload-engine/internal/config"
	"github.com/mkarlsson/edge-offload-engine/internal/database"
	"github.com/mkarlsson/edge-offload-engine/internal/metrics"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to experiment config (JSON, optional)")
		dbPath     = flag.String("db", "", "Path to SQLite database file (overrides config)")
		port       = flag.String("port", "", "Port to run API server on (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *port != "" {
		cfg.API.Port = *port
	}

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

	// Create repository
	repo := database.NewRepository(db)

	// Create and start API server
	log.Printf("Starting analytics API server on port %s", cfg.API.Port)
	server := api.NewServer(repo, metrics.New(), cfg.API.Port)

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
