package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/monitoring"
)

var testMetrics = monitoring.NewMetricsCollector("api-gateway")

func setupTestGateway() *Service {
	cfg := &Config{
		Port:         "8080",
		JWTSecret:    "test-secret",
		RateLimit:    100,
		RatePeriod:   time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return NewService(cfg, NewRateLimiter(cfg.RateLimit, cfg.RatePeriod), logger.New("debug"), testMetrics)
}

func TestAuthMiddleware_InjectsIdentityHeaders(t *testing.T) {
	gateway := setupTestGateway()

	var gotUserID, gotRole string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Header.Get("X-User-ID")
		gotRole = r.Header.Get("X-User-Role")
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	if err := gateway.RegisterService("visits", backend.URL); err != nil {
		t.Fatalf("Failed to register upstream: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/visits", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret", time.Now().Add(time.Hour)))

	recorder := httptest.NewRecorder()
	gateway.router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if gotUserID != "P200001" {
		t.Errorf("Expected X-User-ID 'P200001', got '%s'", gotUserID)
	}
	if gotRole != "practitioner" {
		t.Errorf("Expected X-User-Role 'practitioner', got '%s'", gotRole)
	}
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	gateway := setupTestGateway()

	req := httptest.NewRequest("GET", "/api/v1/visits", nil)
	recorder := httptest.NewRecorder()
	gateway.router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", recorder.Code)
	}
}

func TestAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	gateway := setupTestGateway()

	req := httptest.NewRequest("GET", "/api/v1/visits", nil)
	req.Header.Set("Authorization", "Token abc123")

	recorder := httptest.NewRecorder()
	gateway.router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", recorder.Code)
	}
}

func TestAuthMiddleware_SkipsPublicPaths(t *testing.T) {
	gateway := setupTestGateway()

	req := httptest.NewRequest("GET", "/health", nil)
	recorder := httptest.NewRecorder()
	gateway.router.ServeHTTP(recorder, req)

	if recorder.Code == http.StatusUnauthorized {
		t.Error("Health endpoint should not require a token")
	}
}

func TestRateLimitMiddleware_Enforced(t *testing.T) {
	cfg := &Config{
		Port:         "8080",
		JWTSecret:    "test-secret",
		RateLimit:    1,
		RatePeriod:   time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	gateway := NewService(cfg, NewRateLimiter(1, time.Minute), logger.New("debug"), testMetrics)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()
	gateway.RegisterService("visits", backend.URL)

	token := signedToken(t, "test-secret", time.Now().Add(time.Hour))

	for i, expected := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("GET", "/api/v1/visits", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		recorder := httptest.NewRecorder()
		gateway.router.ServeHTTP(recorder, req)

		if recorder.Code != expected {
			t.Errorf("Request %d: expected status %d, got %d", i+1, expected, recorder.Code)
		}
	}
}

func TestUpstreamNameFor(t *testing.T) {
	gateway := setupTestGateway()

	tests := map[string]string{
		"/api/v1/auth/login":                           "identity",
		"/api/v1/users/C100001":                        "identity",
		"/api/v1/visits/assign":                        "visits",
		"/api/v1/visits/V300001/check-in":              "visits",
		"/api/v1/employees/P200001/attendance":         "visits",
		"/api/v1/clients/C100001/assignable-employees": "visits",
		"/health":                                      "",
		"/api/v1/nosuch":                               "",
	}

	for path, expected := range tests {
		if got := gateway.upstreamNameFor(path); got != expected {
			t.Errorf("upstreamNameFor(%q) = %q, want %q", path, got, expected)
		}
	}
}
