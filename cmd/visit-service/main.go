package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yadlapure/health-care/internal/attendance"
	"github.com/Yadlapure/health-care/internal/identity"
	"github.com/Yadlapure/health-care/internal/visits"
	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/database"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/monitoring"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.CreateSchema(context.Background()); err != nil {
		logger.Fatalf("Failed to create database schema: %v", err)
	}

	// Wire visit components. The user directory is shared with the identity
	// service through the same database.
	visitRepo := visits.NewRepository(db, logger)
	userRepo := identity.NewUserRepository(db, logger)
	mediaClient := visits.NewMediaClient(&cfg.Media, logger)
	metrics := monitoring.NewMetricsCollector("visit-service")
	reporter := attendance.NewReporter(&cfg.Attendance, logger, visitRepo)

	service := visits.NewService(cfg, logger, visitRepo, userRepo, mediaClient, reporter, metrics)

	healthManager := monitoring.NewHealthManager("visit-service", "1.0.0")
	healthManager.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	healthManager.RegisterChecker("media", monitoring.NewHTTPHealthChecker(cfg.Media.BaseURL+"/health", 5*time.Second))
	service.SetHealthManager(healthManager)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting Visit Service on port %s", port)
		if err := service.Start(":" + port); err != nil {
			logger.Fatalf("Failed to start Visit Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Visit Service...")
	if err := service.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Visit Service stopped")
}
