package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Yadlapure/health-care/pkg/interfaces"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/monitoring"
)

// Service implements the API gateway. It terminates JWT auth and forwards
// requests to the identity and visit services with caller identity headers
// attached.
type Service struct {
	router         *mux.Router
	server         *http.Server
	rateLimiter    interfaces.RateLimiter
	tokenValidator interfaces.TokenValidator
	services       map[string]*url.URL
	servicesMux    sync.RWMutex
	logger         *logger.Logger
	metrics        *monitoring.MetricsCollector
	startTime      time.Time
}

// Config holds the gateway configuration
type Config struct {
	Port         string
	JWTSecret    string
	RateLimit    int
	RatePeriod   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewService creates a new API gateway service
func NewService(config *Config, rateLimiter interfaces.RateLimiter, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	s := &Service{
		router:      mux.NewRouter(),
		rateLimiter: rateLimiter,
		services:    make(map[string]*url.URL),
		logger:      log,
		metrics:     metrics,
		startTime:   time.Now(),
	}

	s.tokenValidator = NewTokenValidator(config.JWTSecret)
	s.setupRoutes()
	s.setupMiddleware()

	s.server = &http.Server{
		Addr:         ":" + config.Port,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// ValidateToken validates a JWT token and returns the caller's claims
func (s *Service) ValidateToken(tokenString string) (*UserClaims, error) {
	return s.tokenValidator.ValidateJWT(tokenString)
}

// ApplyRateLimit applies rate limiting for a user
func (s *Service) ApplyRateLimit(userID string) error {
	allowed, err := s.rateLimiter.Allow(userID)
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return fmt.Errorf("rate limit exceeded for user %s", userID)
	}
	return nil
}

// HealthCheck verifies every registered upstream responds on /health
func (s *Service) HealthCheck() error {
	s.servicesMux.RLock()
	defer s.servicesMux.RUnlock()

	for name, serviceURL := range s.services {
		healthURL := fmt.Sprintf("%s/health", serviceURL.String())
		resp, err := http.Get(healthURL)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil || resp.StatusCode != http.StatusOK {
			return fmt.Errorf("service %s is unhealthy", name)
		}
	}

	return nil
}

// Start starts the API gateway server
func (s *Service) Start(addr string) error {
	if addr != "" {
		s.server.Addr = addr
	}

	s.logger.Infof("Starting API Gateway on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the API gateway server
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Stopping API Gateway")
	return s.server.Shutdown(ctx)
}

// RegisterService registers an upstream service under a route prefix
func (s *Service) RegisterService(name, serviceURL string) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid service URL: %w", err)
	}

	s.servicesMux.Lock()
	s.services[name] = parsedURL
	s.servicesMux.Unlock()

	s.logger.Infof("Registered upstream %s at %s", name, serviceURL)
	return nil
}

// UnregisterService removes an upstream service
func (s *Service) UnregisterService(name string) error {
	s.servicesMux.Lock()
	delete(s.services, name)
	s.servicesMux.Unlock()

	s.logger.Infof("Unregistered upstream %s", name)
	return nil
}

// proxyFor resolves the upstream for a path and builds a reverse proxy to it
func (s *Service) proxyFor(path string) (*httputil.ReverseProxy, string, error) {
	serviceName := s.upstreamNameFor(path)
	if serviceName == "" {
		return nil, "", fmt.Errorf("no upstream for path %s", path)
	}

	s.servicesMux.RLock()
	targetURL, exists := s.services[serviceName]
	s.servicesMux.RUnlock()

	if !exists {
		return nil, "", fmt.Errorf("service %s not registered", serviceName)
	}

	return httputil.NewSingleHostReverseProxy(targetURL), serviceName, nil
}

// upstreamNameFor maps a request path to the owning service. Auth and user
// directory routes go to identity, everything else under /api/v1 is visit
// territory.
func (s *Service) upstreamNameFor(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	if trimmed == path {
		return ""
	}

	head := strings.SplitN(trimmed, "/", 2)[0]
	switch head {
	case "auth", "users":
		return "identity"
	case "visits", "clients", "employees":
		return "visits"
	default:
		return ""
	}
}

// setupRoutes sets up the routing
func (s *Service) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.HandleFunc("/admin/services", s.handleListServices).Methods("GET")
	s.router.HandleFunc("/admin/services/{name}", s.handleRegisterService).Methods("POST")
	s.router.HandleFunc("/admin/services/{name}", s.handleUnregisterService).Methods("DELETE")

	s.router.PathPrefix("/api/v1/").HandlerFunc(s.handleProxy)
}

// setupMiddleware sets up middleware
func (s *Service) setupMiddleware() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.authMiddleware)
	s.router.Use(s.rateLimitMiddleware)
}
