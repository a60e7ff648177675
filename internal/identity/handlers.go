package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Yadlapure/health-care/pkg/types"
)

// setupRoutes configures HTTP routes for the identity service
func (s *Service) setupRoutes(router *mux.Router) {
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	if s.health != nil {
		router.HandleFunc("/health/detailed", s.health.HTTPHandler()).Methods("GET")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// Auth routes
	api.HandleFunc("/auth/register", s.registerClientHandler).Methods("POST")
	api.HandleFunc("/auth/employee-register", s.registerEmployeeHandler).Methods("POST")
	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")

	// Directory routes
	api.HandleFunc("/users", s.listUsersHandler).Methods("GET")
	api.HandleFunc("/users/{id}", s.getUserHandler).Methods("GET")
	api.HandleFunc("/users/{id}", s.updateUserHandler).Methods("PUT")
	api.HandleFunc("/users/{id}/deactivate", s.deactivateUserHandler).Methods("POST")
	api.HandleFunc("/employees/active", s.activeEmployeesHandler).Methods("GET")

	s.logger.Info("Identity service routes configured")
}

// healthHandler reports service liveness
func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "identity-service",
	})
}

// registerClientHandler handles client self registration
func (s *Service) registerClientHandler(w http.ResponseWriter, r *http.Request) {
	var req types.UserRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.RegisterClient(r.Context(), &req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, user)
}

// registerEmployeeHandler handles employee registration, admin only
func (s *Service) registerEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	if role := r.Header.Get("X-User-Role"); role != string(types.RoleAdmin) {
		s.writeAppError(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Only admins may register employees"))
		return
	}

	var req types.UserRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.RegisterEmployee(r.Context(), &req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, user)
}

// loginHandler handles credential authentication
func (s *Service) loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, err := s.Authenticate(r.Context(), &creds)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, token)
}

// getUserHandler handles user retrieval
func (s *Service) getUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := s.GetUser(r.Context(), vars["id"])
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// listUsersHandler handles user listing with query filters
func (s *Service) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	criteria := &types.UserSearchCriteria{
		Role:   types.UserRole(r.URL.Query().Get("role")),
		Mobile: r.URL.Query().Get("mobile"),
		City:   r.URL.Query().Get("city"),
	}

	if activeStr := r.URL.Query().Get("is_active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			criteria.IsActive = &active
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			criteria.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			criteria.Offset = offset
		}
	}

	users, err := s.ListUsers(r.Context(), criteria)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, users)
}

// activeEmployeesHandler returns all active field employees
func (s *Service) activeEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	employees, err := s.ActiveEmployees(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, employees)
}

// updateUserHandler handles user profile updates
func (s *Service) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var updates types.UserUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.UpdateUser(r.Context(), vars["id"], &updates)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// deactivateUserHandler handles account deactivation, admin only
func (s *Service) deactivateUserHandler(w http.ResponseWriter, r *http.Request) {
	if role := r.Header.Get("X-User-Role"); role != string(types.RoleAdmin) {
		s.writeAppError(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Only admins may deactivate users"))
		return
	}

	vars := mux.Vars(r)
	if err := s.DeactivateUser(r.Context(), vars["id"]); err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "User deactivated successfully"})
}

// writeAppError maps structured errors to HTTP status codes
func (s *Service) writeAppError(w http.ResponseWriter, err error) {
	status := httpStatusFor(err)

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		s.logger.WithError(err).Warn("Request rejected")
		s.writeJSONResponse(w, status, map[string]interface{}{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"type":    appErr.Type,
			"details": appErr.Details,
			"status":  status,
		})
		return
	}

	s.writeErrorResponse(w, status, "Internal server error", err)
}

func httpStatusFor(err error) int {
	switch types.ErrorTypeOf(err) {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypePrecondition:
		return http.StatusUnprocessableEntity
	case types.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
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
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.Errorf("%s: %v", message, err)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}
