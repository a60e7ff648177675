package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of probing a single dependency
type HealthCheck struct {
	Name        string                 `json:"name"`
	Status      HealthStatus           `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// HealthReport aggregates dependency checks for one service
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Service   string        `json:"service"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// HealthChecker probes one dependency
type HealthChecker interface {
	Check(ctx context.Context) HealthCheck
}

// HealthManager runs registered dependency checks and serves the report
type HealthManager struct {
	serviceName    string
	serviceVersion string
	mu             sync.RWMutex
	checkers       map[string]HealthChecker
	timeout        time.Duration
}

// NewHealthManager creates a health manager for the named service
func NewHealthManager(serviceName, serviceVersion string) *HealthManager {
	return &HealthManager{
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		checkers:       make(map[string]HealthChecker),
		timeout:        10 * time.Second,
	}
}

// RegisterChecker adds a named dependency check
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// CheckHealth probes all registered dependencies concurrently. The report is
// unhealthy if any check is unhealthy, degraded if any check is degraded.
func (hm *HealthManager) CheckHealth(ctx context.Context) *HealthReport {
	hm.mu.RLock()
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	timeout := hm.timeout
	hm.mu.RUnlock()

	report := &HealthReport{
		Service:   hm.serviceName,
		Version:   hm.serviceVersion,
		Timestamp: time.Now(),
		Status:    HealthStatusHealthy,
		Checks:    make([]HealthCheck, 0, len(checkers)),
	}

	var wg sync.WaitGroup
	var resultsMu sync.Mutex

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			check := checker.Check(checkCtx)
			check.Name = name
			check.LastChecked = start
			check.Duration = time.Since(start)

			resultsMu.Lock()
			report.Checks = append(report.Checks, check)
			resultsMu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	sort.Slice(report.Checks, func(i, j int) bool {
		return report.Checks[i].Name < report.Checks[j].Name
	})

	for _, check := range report.Checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			report.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if report.Status != HealthStatusUnhealthy {
				report.Status = HealthStatusDegraded
			}
		}
	}

	return report
}

// HTTPHandler serves the health report as JSON, 503 when unhealthy
func (hm *HealthManager) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.CheckHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(report)
	}
}

// DatabaseHealthChecker probes database connectivity and pool pressure
type DatabaseHealthChecker struct {
	db *sql.DB
}

// NewDatabaseHealthChecker creates a database health checker
func NewDatabaseHealthChecker(db *sql.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

// Check pings the database and inspects connection pool statistics
func (dhc *DatabaseHealthChecker) Check(ctx context.Context) HealthCheck {
	check := HealthCheck{
		Details: make(map[string]interface{}),
	}

	if err := dhc.db.PingContext(ctx); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
		return check
	}

	stats := dhc.db.Stats()
	check.Details["open_connections"] = stats.OpenConnections
	check.Details["in_use"] = stats.InUse
	check.Details["idle"] = stats.Idle

	if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
		check.Status = HealthStatusDegraded
		check.Message = "Connection pool exhausted"
	} else {
		check.Status = HealthStatusHealthy
		check.Message = "Database reachable"
	}

	return check
}

// HTTPHealthChecker probes a sidecar or upstream HTTP endpoint
type HTTPHealthChecker struct {
	url    string
	client *http.Client
}

// NewHTTPHealthChecker creates an HTTP health checker for the given URL
func NewHTTPHealthChecker(url string, timeout time.Duration) *HTTPHealthChecker {
	return &HTTPHealthChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Check issues a GET and maps the status code to a health status
func (hhc *HTTPHealthChecker) Check(ctx context.Context) HealthCheck {
	check := HealthCheck{
		Details: map[string]interface{}{"url": hhc.url},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hhc.url, nil)
	if err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("Failed to build request: %v", err)
		return check
	}

	resp, err := hhc.client.Do(req)
	if err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("Probe failed: %v", err)
		return check
	}
	defer resp.Body.Close()

	check.Details["status_code"] = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		check.Status = HealthStatusHealthy
		check.Message = "Endpoint reachable"
	case resp.StatusCode >= 500:
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("Endpoint returned %d", resp.StatusCode)
	default:
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("Endpoint returned %d", resp.StatusCode)
	}

	return check
}
