package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/config"
	"github.com/safetyfirst/backend/internal/db"
	"github.com/safetyfirst/backend/internal/handlers"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/middleware"
	"github.com/safetyfirst/backend/internal/notify"
	"github.com/safetyfirst/backend/internal/routes"
	"github.com/safetyfirst/backend/internal/seed"
	"github.com/safetyfirst/backend/internal/services"
	"github.com/safetyfirst/backend/internal/storage"
	"github.com/safetyfirst/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger first
	logger.Initialize(cfg.Log)

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}
	records := store.NewGorm(conn)

	// Setup graceful shutdown
	stopChan := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		logger.Warn("Received shutdown signal, stopping server...", nil)
		close(stopChan)
	}()

	ctx := context.Background()
	photos, closePhotos, err := newPhotoStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize photo storage", map[string]interface{}{
			"backend": cfg.Storage.Backend,
			"error":   err.Error(),
		})
	}
	defer closePhotos()

	dispatcher := notify.NewDispatcher(cfg.Notify.Workers, cfg.Notify.QueueSize, newNotifiers(cfg.Notify)...)

	users := services.NewUserService(records)
	locations := services.NewLocationService(records)

	// Seed database with initial data if in development
	if cfg.Server.Env == "development" {
		if data, path, err := seed.ReadFile("data/initial-users.json", "../../data/initial-users.json"); err != nil {
			logger.Warn("Skipping development seed", map[string]interface{}{"error": err.Error()})
		} else {
			logger.Info("Seeding database with initial data", map[string]interface{}{"file": path})
			if err := seed.Run(ctx, data, records, locations); err != nil {
				logger.Warn("Failed to seed database", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.MaxMultipartMemory = cfg.Storage.MaxBytes + 1<<20

	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	r.Use(gin.Recovery())

	if local, ok := photos.(*storage.Local); ok && strings.HasPrefix(cfg.Storage.BaseURL, "/") {
		r.Static(cfg.Storage.BaseURL, local.Dir())
	}

	routes.SetupRoutes(r, routes.Deps{
		Tokens:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Incidents: services.NewIncidentService(records, records, dispatcher),
		Reports: services.NewReportService(records, photos, dispatcher, services.ReportOptions{
			DailyLimit:    cfg.Reports.DailyLimit,
			Timezone:      cfg.Reports.Location(),
			MaxPhotoBytes: cfg.Storage.MaxBytes,
		}),
		Users:     users,
		Locations: locations,
		Health: map[string]handlers.Pinger{
			"database": records,
			"storage":  photos,
		},
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	logger.Info("Starting Safety First backend server", map[string]interface{}{
		"port":            cfg.Server.Port,
		"gin_mode":        gin.Mode(),
		"storage":         cfg.Storage.Backend,
		"daily_limit":     cfg.Reports.DailyLimit,
		"report_timezone": cfg.Reports.Location().String(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for shutdown signal
	<-stopChan
	logger.Info("Shutting down server gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Deliver notices queued by the last requests before exiting.
	dispatcher.Stop()

	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server exited gracefully", nil)
}

// newPhotoStore builds the configured photo backend and its cleanup func.
func newPhotoStore(ctx context.Context, cfg config.StorageConfig) (storage.PhotoStore, func(), error) {
	switch cfg.Backend {
	case "gcs":
		g, err := storage.NewGCS(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	case "memory":
		logger.Warn("Photos are kept in memory and lost on restart", nil)
		return storage.NewMemory(), func() {}, nil
	default:
		l, err := storage.NewLocal(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return l, func() {}, nil
	}
}

// newNotifiers always logs notices and also posts them to Slack when
// configured.
func newNotifiers(cfg config.NotifyConfig) []notify.Notifier {
	notifiers := []notify.Notifier{notify.LogNotifier{}}
	if cfg.SlackToken != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.SlackToken, cfg.SlackChannel))
		logger.Info("Slack notifications enabled", map[string]interface{}{"channel": cfg.SlackChannel})
	}
	return notifiers
}
