package db

import (
	"context"
	"fmt"
	"time"

	"github.com/safetyfirst/backend/internal/config"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the postgres connection pool. Driver errors are translated to
// gorm's portable errors (ErrDuplicatedKey, ErrForeignKeyViolated) so the
// store can map them without driver-specific codes.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	conn, err := Open(cfg.DSN())
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected successfully", map[string]interface{}{
		"host": cfg.Host,
		"name": cfg.Name,
	})
	return conn, nil
}

// Open connects to dsn and verifies the pool with a ping.
func Open(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Error),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// AutoMigrate creates or updates every table. Order matters for foreign keys.
func AutoMigrate(conn *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.PlantLocation{},
		&models.Incident{},
		&models.IncidentEvent{},
		&models.DailyReportCount{},
	}
	for _, t := range tables {
		if err := conn.AutoMigrate(t); err != nil {
			return fmt.Errorf("migrate %T: %w", t, err)
		}
	}
	logger.Info("All database migrations completed successfully", map[string]interface{}{
		"tables": len(tables),
	})
	return nil
}
