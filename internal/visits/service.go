package visits

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/interfaces"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/monitoring"
	"github.com/Yadlapure/health-care/pkg/types"
)

const dateLayout = "2006-01-02"

// Service implements assignment planning and the daily visit lifecycle
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	repository interfaces.VisitRepository
	users      interfaces.UserRepository
	media      interfaces.MediaStore
	attendance interfaces.AttendanceReporter
	metrics    *monitoring.MetricsCollector
	health     *monitoring.HealthManager
	server     *http.Server
	now        func() time.Time
}

// NewService creates a new visit service instance
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repository interfaces.VisitRepository,
	users interfaces.UserRepository,
	media interfaces.MediaStore,
	attendance interfaces.AttendanceReporter,
	metrics *monitoring.MetricsCollector,
) *Service {
	return &Service{
		config:     cfg,
		logger:     log,
		repository: repository,
		users:      users,
		media:      media,
		attendance: attendance,
		metrics:    metrics,
		now:        time.Now,
	}
}

// SetHealthManager attaches dependency health checks exposed on
// /health/detailed
func (s *Service) SetHealthManager(hm *monitoring.HealthManager) {
	s.health = hm
}

// ListAssignableEmployees returns active employees whose existing active
// visits do not overlap the requested range
func (s *Service) ListAssignableEmployees(ctx context.Context, clientID string, from, to time.Time) ([]*types.User, error) {
	if from.After(to) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "From date must not be after to date", nil)
	}

	if _, err := s.users.GetByID(ctx, clientID); err != nil {
		return nil, err
	}

	active := true
	assignable := make([]*types.User, 0)

	for _, role := range []types.UserRole{types.RolePractitioner, types.RoleCaretaker} {
		employees, err := s.users.List(ctx, &types.UserSearchCriteria{Role: role, IsActive: &active})
		if err != nil {
			return nil, err
		}

		for _, employee := range employees {
			visits, err := s.repository.GetActiveByEmployee(ctx, employee.ID)
			if err != nil {
				return nil, err
			}

			busy := false
			for _, v := range visits {
				if rangesOverlap(v.FromTS, v.ToTS, from, to) {
					busy = true
					break
				}
			}
			if !busy {
				assignable = append(assignable, employee)
			}
		}
	}

	return assignable, nil
}

// Assign creates a visit for a client/employee pair over an inclusive date
// range, with one INITIATED day row per calendar date. The overlap check and
// the insert run inside one repository transaction.
func (s *Service) Assign(ctx context.Context, req *types.AssignmentRequest) (*types.Visit, error) {
	from, to, err := s.parseRange(req.FromDate, req.ToDate)
	if err != nil {
		s.metrics.RecordAssignment("assign", "rejected")
		return nil, err
	}

	if req.Lat == "" || req.Lng == "" {
		s.metrics.RecordAssignment("assign", "rejected")
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Visit location is required", nil)
	}

	client, err := s.users.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Role != types.RoleClient || !client.IsActive {
		s.metrics.RecordAssignment("assign", "rejected")
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Assignment target must be an active client",
			map[string]interface{}{"client_id": req.ClientID})
	}

	employee, err := s.users.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !employee.Role.IsEmployeeRole() || !employee.IsActive {
		s.metrics.RecordAssignment("assign", "rejected")
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Assignee must be an active employee",
			map[string]interface{}{"employee_id": req.EmployeeID})
	}

	now := s.now()
	visit := &types.Visit{
		ID:         types.NewID(types.VisitIDPrefix),
		ClientID:   client.ID,
		EmployeeID: employee.ID,
		FromTS:     from,
		ToTS:       to,
		IsActive:   true,
		MainStatus: types.MainStatusInitiated,
		Location:   types.GeoPoint{Lat: req.Lat, Lng: req.Lng},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	details := buildDayRows(visit.ID, from, to, now)

	if err := s.repository.CreateWithDetails(ctx, visit, details); err != nil {
		if types.IsConflict(err) {
			s.metrics.RecordAssignment("assign", "conflict")
		} else {
			s.metrics.RecordAssignment("assign", "error")
		}
		return nil, err
	}

	visit.Details = details
	s.metrics.RecordAssignment("assign", "success")
	s.logger.WithVisitID(visit.ID).Infof("Assigned employee %s to client %s from %s to %s",
		employee.ID, client.ID, req.FromDate, req.ToDate)
	return visit, nil
}

// Unassign soft-deletes a visit. Historical day rows are retained.
func (s *Service) Unassign(ctx context.Context, visitID string) error {
	visit, err := s.repository.GetByID(ctx, visitID)
	if err != nil {
		return err
	}

	if !visit.IsActive {
		s.metrics.RecordAssignment("unassign", "conflict")
		return types.NewConflictError("ALREADY_UNASSIGNED", "Visit is already unassigned", nil)
	}

	if err := s.repository.SetActive(ctx, visitID, false); err != nil {
		s.metrics.RecordAssignment("unassign", "error")
		return err
	}

	s.metrics.RecordAssignment("unassign", "success")
	s.logger.WithVisitID(visitID).Info("Visit unassigned")
	return nil
}

// Extend pushes a visit's end date forward and appends INITIATED day rows
// for each new date. The end date can never move backward.
func (s *Service) Extend(ctx context.Context, visitID string, newTo time.Time) (*types.Visit, error) {
	visit, err := s.repository.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if !visit.IsActive {
		return nil, types.NewConflictError("VISIT_INACTIVE", "Cannot extend an unassigned visit", nil)
	}

	newTo = midnight(newTo)
	if !newTo.After(midnight(visit.ToTS)) {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed,
			"New end date must be after the current end date",
			map[string]interface{}{
				"current_to": visit.ToTS.Format(dateLayout),
				"new_to":     newTo.Format(dateLayout),
			})
	}

	firstNewDay := midnight(visit.ToTS).AddDate(0, 0, 1)
	newDetails := buildDayRows(visit.ID, firstNewDay, newTo, s.now())

	if err := s.repository.ExtendRange(ctx, visitID, newTo, newDetails); err != nil {
		s.metrics.RecordAssignment("extend", "error")
		return nil, err
	}

	s.metrics.RecordAssignment("extend", "success")
	s.logger.WithVisitID(visitID).Infof("Visit extended to %s", newTo.Format(dateLayout))
	return s.repository.GetByID(ctx, visitID)
}

// CheckIn advances today's day row to CHECKEDIN. The photo upload runs
// first; an upload failure aborts the transition.
func (s *Service) CheckIn(ctx context.Context, visitID string, req *types.CheckEventRequest) (*types.VisitDetail, error) {
	return s.applyCheckEvent(ctx, visitID, req, "check_in")
}

// RecordVitals advances today's day row to VITALUPDATE. Notes are mandatory.
func (s *Service) RecordVitals(ctx context.Context, visitID string, req *types.VitalsRequest) (*types.VisitDetail, error) {
	visit, detail, err := s.todayDetailForUpdate(ctx, visitID)
	if err != nil {
		s.metrics.RecordVisitTransition("vitals", "rejected")
		return nil, err
	}

	vitals := &types.Vitals{
		BloodPressure: req.BloodPressure,
		Sugar:         req.Sugar,
		Notes:         req.Notes,
	}

	for _, img := range req.PrescriptionImages {
		url, err := s.media.UploadPhoto(ctx, "prescription", img)
		if err != nil {
			s.metrics.RecordVisitTransition("vitals", "upload_failed")
			return nil, err
		}
		vitals.PrescriptionImages = append(vitals.PrescriptionImages, url)
	}

	if err := applyVitals(detail, vitals, s.now()); err != nil {
		s.metrics.RecordVisitTransition("vitals", "rejected")
		return nil, err
	}

	if err := s.persistTransition(ctx, visit, detail); err != nil {
		s.metrics.RecordVisitTransition("vitals", "error")
		return nil, err
	}

	s.metrics.RecordVisitTransition("vitals", "success")
	return detail, nil
}

// CheckOut advances today's day row to CHECKEDOUT, the terminal state.
func (s *Service) CheckOut(ctx context.Context, visitID string, req *types.CheckEventRequest) (*types.VisitDetail, error) {
	return s.applyCheckEvent(ctx, visitID, req, "check_out")
}

func (s *Service) applyCheckEvent(ctx context.Context, visitID string, req *types.CheckEventRequest, kind string) (*types.VisitDetail, error) {
	visit, detail, err := s.todayDetailForUpdate(ctx, visitID)
	if err != nil {
		s.metrics.RecordVisitTransition(kind, "rejected")
		return nil, err
	}

	if req.Lat == "" || req.Lng == "" {
		s.metrics.RecordVisitTransition(kind, "rejected")
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Coordinates are required", nil)
	}

	if s.config.Geofence.Enabled {
		if err := checkGeofence(visit.Location, req.Lat, req.Lng, s.config.Geofence.RadiusMeters); err != nil {
			s.metrics.RecordVisitTransition(kind, "rejected")
			return nil, err
		}
	}

	// Upload before mutating state so a sidecar failure leaves the day row
	// untouched.
	start := s.now()
	imgURL, err := s.media.UploadPhoto(ctx, kind, req.Photo)
	s.metrics.RecordMediaUpload(kind, uploadStatus(err), s.now().Sub(start))
	if err != nil {
		s.metrics.RecordVisitTransition(kind, "upload_failed")
		return nil, err
	}

	now := s.now()
	event := &types.CheckEvent{
		At:  now,
		Lat: req.Lat,
		Lng: req.Lng,
		Img: imgURL,
	}

	if kind == "check_in" {
		err = applyCheckIn(detail, event, now)
	} else {
		err = applyCheckOut(detail, event, now)
	}
	if err != nil {
		s.metrics.RecordVisitTransition(kind, "rejected")
		return nil, err
	}

	if err := s.persistTransition(ctx, visit, detail); err != nil {
		s.metrics.RecordVisitTransition(kind, "error")
		return nil, err
	}

	s.metrics.RecordVisitTransition(kind, "success")
	return detail, nil
}

// GetVisit retrieves a visit with its day rows
func (s *Service) GetVisit(ctx context.Context, visitID string) (*types.Visit, error) {
	return s.repository.GetByID(ctx, visitID)
}

// ListVisits retrieves visits matching the given filters
func (s *Service) ListVisits(ctx context.Context, filters *types.VisitFilters) ([]*types.Visit, error) {
	return s.repository.List(ctx, filters)
}

// Start starts the visit service HTTP server
func (s *Service) Start(addr string) error {
	router := mux.NewRouter()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	s.logger.Infof("Starting Visit Service on %s", addr)
	return s.server.ListenAndServe()
}

// Stop stops the visit service
func (s *Service) Stop() error {
	if s.server != nil {
		s.logger.Info("Stopping Visit Service")
		return s.server.Close()
	}
	return nil
}

// todayDetailForUpdate loads an active visit and returns today's day row
func (s *Service) todayDetailForUpdate(ctx context.Context, visitID string) (*types.Visit, *types.VisitDetail, error) {
	visit, err := s.repository.GetByID(ctx, visitID)
	if err != nil {
		return nil, nil, err
	}

	if !visit.IsActive {
		return nil, nil, types.NewPreconditionError("VISIT_INACTIVE", "Visit is no longer active", nil)
	}

	detail := TodayDetail(visit, s.now())
	if detail == nil {
		return nil, nil, types.NewPreconditionError("NO_VISIT_TODAY", "No visit day scheduled for today",
			map[string]interface{}{"visit_id": visitID})
	}

	return visit, detail, nil
}

// persistTransition stores the mutated day row and refreshes the derived
// visit-level status
func (s *Service) persistTransition(ctx context.Context, visit *types.Visit, detail *types.VisitDetail) error {
	if err := s.repository.UpdateDetail(ctx, detail); err != nil {
		return err
	}

	mainStatus := ComputeMainStatus(visit.Details)
	if mainStatus != visit.MainStatus {
		if err := s.repository.UpdateMainStatus(ctx, visit.ID, mainStatus); err != nil {
			return err
		}
		visit.MainStatus = mainStatus
	}

	return nil
}

func (s *Service) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, types.NewValidationError(types.ErrCodeValidationFailed, "Date range is required", nil)
	}

	from, err := time.ParseInLocation(dateLayout, fromStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError(types.ErrCodeValidationFailed,
			fmt.Sprintf("Invalid from date: %s", fromStr), nil)
	}
	to, err := time.ParseInLocation(dateLayout, toStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError(types.ErrCodeValidationFailed,
			fmt.Sprintf("Invalid to date: %s", toStr), nil)
	}

	from, to = midnight(from), midnight(to)
	if from.After(to) {
		return time.Time{}, time.Time{}, types.NewValidationError(types.ErrCodeValidationFailed,
			"From date must not be after to date", nil)
	}

	return from, to, nil
}

func buildDayRows(visitID string, from, to time.Time, now time.Time) []types.VisitDetail {
	days := daysIn(from, to)
	details := make([]types.VisitDetail, 0, len(days))

	for _, day := range days {
		details = append(details, types.VisitDetail{
			ID:          uuid.New().String(),
			VisitID:     visitID,
			ForDate:     day,
			DailyStatus: types.DailyStatusInitiated,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return details
}

func uploadStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
