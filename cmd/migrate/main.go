package main

import (
	"fmt"
	"os"

	"github.com/safetyfirst/backend/internal/config"
	"github.com/safetyfirst/backend/internal/db"
	"github.com/safetyfirst/backend/internal/logger"
)

func main() {
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

	logger.Info("Running database migrations...", nil)
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Database migrations completed successfully", nil)
}
