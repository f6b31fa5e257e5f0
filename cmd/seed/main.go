package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/safetyfirst/backend/internal/config"
	"github.com/safetyfirst/backend/internal/db"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/seed"
	"github.com/safetyfirst/backend/internal/services"
	"github.com/safetyfirst/backend/internal/store"
)

func main() {
	file := flag.String("file", "data/initial-users.json", "seed file with users and locations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Log)

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}

	// Run migrations first
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}

	data, path, err := seed.ReadFile(*file)
	if err != nil {
		logger.Fatal("Failed to read seed file", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Seeding database", map[string]interface{}{"file": path})

	records := store.NewGorm(conn)
	if err := seed.Run(context.Background(), data, records, services.NewLocationService(records)); err != nil {
		logger.Fatal("Seeding failed", map[string]interface{}{"error": err.Error()})
	}
}
