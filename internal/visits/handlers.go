package visits

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Yadlapure/health-care/pkg/types"
)

const maxUploadBytes = 10 << 20

// setupRoutes configures HTTP routes for the visit service
func (s *Service) setupRoutes(router *mux.Router) {
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	if s.health != nil {
		router.HandleFunc("/health/detailed", s.health.HTTPHandler()).Methods("GET")
	}
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	router.Use(s.metrics.HTTPMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Assignment planner routes
	api.HandleFunc("/visits/assign", s.assignHandler).Methods("POST")
	api.HandleFunc("/visits/{id}/unassign", s.unassignHandler).Methods("POST")
	api.HandleFunc("/visits/{id}/extend", s.extendHandler).Methods("POST")
	api.HandleFunc("/clients/{clientId}/assignable-employees", s.assignableEmployeesHandler).Methods("GET")

	// Daily state machine routes
	api.HandleFunc("/visits/{id}/check-in", s.checkInHandler).Methods("POST")
	api.HandleFunc("/visits/{id}/vitals", s.vitalsHandler).Methods("POST")
	api.HandleFunc("/visits/{id}/check-out", s.checkOutHandler).Methods("POST")

	// Listing routes
	api.HandleFunc("/visits", s.listVisitsHandler).Methods("GET")
	api.HandleFunc("/visits/{id}", s.getVisitHandler).Methods("GET")

	// Attendance route
	api.HandleFunc("/employees/{employeeId}/attendance", s.attendanceHandler).Methods("GET")

	s.logger.Info("Visit service routes configured")
}

// healthHandler reports service liveness
func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "visit-service",
	})
}

// assignHandler handles visit assignment, admin only
func (s *Service) assignHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, types.RoleAdmin, types.RoleCoordinator) {
		return
	}

	var req types.AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	visit, err := s.Assign(r.Context(), &req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, visit)
}

// unassignHandler handles visit cancellation, admin only
func (s *Service) unassignHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, types.RoleAdmin, types.RoleCoordinator) {
		return
	}

	vars := mux.Vars(r)
	if err := s.Unassign(r.Context(), vars["id"]); err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Visit unassigned successfully"})
}

// extendHandler handles pushing a visit's end date forward, admin only
func (s *Service) extendHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, types.RoleAdmin, types.RoleCoordinator) {
		return
	}

	vars := mux.Vars(r)

	var req types.ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	newTo, err := time.ParseInLocation(dateLayout, req.NewToDate, time.Local)
	if err != nil {
		s.writeAppError(w, types.NewValidationError(types.ErrCodeValidationFailed, "Invalid new end date", nil))
		return
	}

	visit, err := s.Extend(r.Context(), vars["id"], newTo)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, visit)
}

// assignableEmployeesHandler returns employees free for a client's range
func (s *Service) assignableEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	from, to, err := s.parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	employees, err := s.ListAssignableEmployees(r.Context(), vars["clientId"], from, to)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, employees)
}

// checkInHandler handles the employee's daily check-in with photo
func (s *Service) checkInHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !s.requireVisitEmployee(w, r, vars["id"]) {
		return
	}

	req, err := s.parseCheckEventRequest(r)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	detail, err := s.CheckIn(r.Context(), vars["id"], req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, detail)
}

// vitalsHandler handles vitals capture for today's visit day
func (s *Service) vitalsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !s.requireVisitEmployee(w, r, vars["id"]) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	req := &types.VitalsRequest{
		BloodPressure: r.FormValue("blood_pressure"),
		Sugar:         r.FormValue("sugar"),
		Notes:         r.FormValue("notes"),
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["prescription_images"] {
			file, err := header.Open()
			if err != nil {
				s.writeErrorResponse(w, http.StatusBadRequest, "Failed to read prescription image", err)
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				s.writeErrorResponse(w, http.StatusBadRequest, "Failed to read prescription image", err)
				return
			}
			req.PrescriptionImages = append(req.PrescriptionImages, data)
		}
	}

	detail, err := s.RecordVitals(r.Context(), vars["id"], req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, detail)
}

// checkOutHandler handles the employee's daily check-out with photo
func (s *Service) checkOutHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !s.requireVisitEmployee(w, r, vars["id"]) {
		return
	}

	req, err := s.parseCheckEventRequest(r)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	detail, err := s.CheckOut(r.Context(), vars["id"], req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, detail)
}

// listVisitsHandler lists visits scoped by the caller's role
func (s *Service) listVisitsHandler(w http.ResponseWriter, r *http.Request) {
	filters := &types.VisitFilters{
		ClientID:   r.URL.Query().Get("client_id"),
		EmployeeID: r.URL.Query().Get("employee_id"),
	}

	// Non-admin callers only ever see their own visits
	userID := r.Header.Get("X-User-ID")
	switch types.UserRole(r.Header.Get("X-User-Role")) {
	case types.RoleClient:
		filters.ClientID = userID
	case types.RolePractitioner, types.RoleCaretaker:
		filters.EmployeeID = userID
	}

	if activeStr := r.URL.Query().Get("is_active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			filters.IsActive = &active
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filters.Limit = limit
		}
	}

	visits, err := s.ListVisits(r.Context(), filters)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, visits)
}

// getVisitHandler retrieves a single visit with its day rows
func (s *Service) getVisitHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	visit, err := s.GetVisit(r.Context(), vars["id"])
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, visit)
}

// attendanceHandler returns the per-day classification for an employee
func (s *Service) attendanceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	from, to, err := s.parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	days, err := s.attendance.AttendanceFor(r.Context(), vars["employeeId"], from, to)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, days)
}

func (s *Service) parseCheckEventRequest(r *http.Request) (*types.CheckEventRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid multipart form", nil)
	}

	req := &types.CheckEventRequest{
		Lat: r.FormValue("lat"),
		Lng: r.FormValue("lng"),
	}

	file, _, err := r.FormFile("img")
	if err != nil {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Photo is required", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Failed to read photo", nil)
	}
	req.Photo = data

	return req, nil
}

// requireVisitEmployee ensures the caller is the field employee the visit is
// assigned to. Admins manage assignments but never drive the daily lifecycle.
func (s *Service) requireVisitEmployee(w http.ResponseWriter, r *http.Request, visitID string) bool {
	if !s.requireRole(w, r, types.RolePractitioner, types.RoleCaretaker) {
		return false
	}

	visit, err := s.repository.GetByID(r.Context(), visitID)
	if err != nil {
		s.writeAppError(w, err)
		return false
	}
	if visit.EmployeeID != r.Header.Get("X-User-ID") {
		s.writeAppError(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Visit is assigned to another employee"))
		return false
	}
	return true
}

func (s *Service) requireRole(w http.ResponseWriter, r *http.Request, roles ...types.UserRole) bool {
	callerRole := types.UserRole(r.Header.Get("X-User-Role"))
	for _, role := range roles {
		if callerRole == role {
			return true
		}
	}

	s.writeAppError(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Caller role may not perform this operation"))
	return false
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
