package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Yadlapure/health-care/pkg/types"
)

// handleHealth handles health check requests
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.HealthCheck(); err != nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "service unhealthy: "+err.Error())
		return
	}

	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
		"services":  s.getServiceStatus(),
	}

	s.writeJSONResponse(w, http.StatusOK, response)
}

// handleListServices lists all registered upstream services
func (s *Service) handleListServices(w http.ResponseWriter, r *http.Request) {
	s.servicesMux.RLock()
	services := make(map[string]string)
	for name, url := range s.services {
		services[name] = url.String()
	}
	s.servicesMux.RUnlock()

	response := map[string]interface{}{
		"services": services,
		"count":    len(services),
	}

	s.writeJSONResponse(w, http.StatusOK, response)
}

// handleRegisterService registers a new upstream service
func (s *Service) handleRegisterService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceName := vars["name"]

	var req struct {
		URL string `json:"url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.RegisterService(serviceName, req.URL); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "failed to register service: "+err.Error())
		return
	}

	response := map[string]interface{}{
		"message": "service registered successfully",
		"service": serviceName,
		"url":     req.URL,
	}

	s.writeJSONResponse(w, http.StatusCreated, response)
}

// handleUnregisterService unregisters an upstream service
func (s *Service) handleUnregisterService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceName := vars["name"]

	if err := s.UnregisterService(serviceName); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to unregister service: "+err.Error())
		return
	}

	response := map[string]interface{}{
		"message": "service unregistered successfully",
		"service": serviceName,
	}

	s.writeJSONResponse(w, http.StatusOK, response)
}

// handleProxy forwards the request to the owning upstream service
func (s *Service) handleProxy(w http.ResponseWriter, r *http.Request) {
	proxy, serviceName, err := s.proxyFor(r.URL.Path)
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to route %s", r.URL.Path)
		s.writeErrorResponse(w, http.StatusBadGateway, "service unavailable")
		return
	}

	s.logger.WithService(serviceName).Debugf("Proxying %s %s", r.Method, r.URL.Path)
	proxy.ServeHTTP(w, r)
}

// getServiceStatus returns the status of all registered upstream services
func (s *Service) getServiceStatus() map[string]string {
	status := make(map[string]string)

	s.servicesMux.RLock()
	defer s.servicesMux.RUnlock()

	for name, serviceURL := range s.services {
		healthURL := serviceURL.String() + "/health"
		resp, err := http.Get(healthURL)
		if err != nil || resp.StatusCode != http.StatusOK {
			status[name] = "unhealthy"
		} else {
			status[name] = "healthy"
		}
		if resp != nil {
			resp.Body.Close()
		}
	}

	return status
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	errorResponse := &types.AppError{
		Type:    errorTypeForStatus(statusCode),
		Code:    http.StatusText(statusCode),
		Message: message,
	}

	s.writeJSONResponse(w, statusCode, errorResponse)
}

// errorTypeForStatus maps HTTP status codes to error types
func errorTypeForStatus(statusCode int) types.ErrorType {
	switch statusCode {
	case http.StatusBadRequest:
		return types.ErrorTypeValidation
	case http.StatusUnauthorized:
		return types.ErrorTypeAuthentication
	case http.StatusForbidden:
		return types.ErrorTypeAuthorization
	case http.StatusNotFound:
		return types.ErrorTypeNotFound
	case http.StatusConflict:
		return types.ErrorTypeConflict
	case http.StatusBadGateway:
		return types.ErrorTypeExternal
	default:
		return types.ErrorTypeInternal
	}
}
