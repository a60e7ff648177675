package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yadlapure/health-care/internal/gateway"
	"github.com/Yadlapure/health-care/pkg/config"
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

	gatewayConfig := &gateway.Config{
		Port:         getEnvOrDefault("PORT", "8080"),
		JWTSecret:    cfg.JWT.SecretKey,
		RateLimit:    cfg.RateLimit.RequestsPerMin,
		RatePeriod:   time.Minute,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	rateLimiter := gateway.NewRateLimiter(gatewayConfig.RateLimit, gatewayConfig.RatePeriod)
	rateLimiter.StartCleanup(time.Hour)

	metrics := monitoring.NewMetricsCollector("api-gateway")
	gatewayService := gateway.NewService(gatewayConfig, rateLimiter, logger, metrics)

	registerUpstreams(gatewayService, logger)

	// Start the server in a goroutine
	go func() {
		logger.Infof("Starting API Gateway on port %s", gatewayConfig.Port)
		if err := gatewayService.Start(""); err != nil {
			logger.Fatalf("Failed to start API Gateway: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API Gateway...")
	if err := gatewayService.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("API Gateway stopped")
}

// registerUpstreams registers the identity and visit services
func registerUpstreams(gw *gateway.Service, logger *logger.Logger) {
	upstreams := map[string]string{
		"identity": getEnvOrDefault("IDENTITY_SERVICE_URL", "http://localhost:8081"),
		"visits":   getEnvOrDefault("VISIT_SERVICE_URL", "http://localhost:8082"),
	}

	for name, url := range upstreams {
		if err := gw.RegisterService(name, url); err != nil {
			logger.Errorf("Failed to register upstream %s at %s: %v", name, url, err)
		}
	}
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
