package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Yadlapure/health-care/internal/identity"
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

	// Wire identity components
	userRepo := identity.NewUserRepository(db, logger)
	passwordManager := identity.NewPasswordManager()
	tokenIssuer := identity.NewJWTIssuer(&cfg.JWT)

	service := identity.NewService(cfg, logger, userRepo, passwordManager, tokenIssuer)

	healthManager := monitoring.NewHealthManager("identity-service", "1.0.0")
	healthManager.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	service.SetHealthManager(healthManager)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	// Start service in a goroutine
	go func() {
		logger.Infof("Starting Identity Service on port %s", port)
		if err := service.Start(":" + port); err != nil {
			logger.Fatalf("Failed to start Identity Service: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Identity Service...")
	if err := service.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Identity Service stopped")
}
