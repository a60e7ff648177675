package visits

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/monitoring"
	"github.com/Yadlapure/health-care/pkg/types"
)

// Registered once for the whole package; Prometheus rejects duplicate
// collector registration.
var testMetrics = monitoring.NewMetricsCollector("visit-service")

type MockVisitRepository struct {
	mock.Mock
}

func (m *MockVisitRepository) CreateWithDetails(ctx context.Context, visit *types.Visit, details []types.VisitDetail) error {
	args := m.Called(ctx, visit, details)
	return args.Error(0)
}

func (m *MockVisitRepository) GetByID(ctx context.Context, id string) (*types.Visit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Visit), args.Error(1)
}

func (m *MockVisitRepository) GetActiveByEmployee(ctx context.Context, employeeID string) ([]*types.Visit, error) {
	args := m.Called(ctx, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Visit), args.Error(1)
}

func (m *MockVisitRepository) GetActiveByClient(ctx context.Context, clientID string) ([]*types.Visit, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Visit), args.Error(1)
}

func (m *MockVisitRepository) List(ctx context.Context, filters *types.VisitFilters) ([]*types.Visit, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Visit), args.Error(1)
}

func (m *MockVisitRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockVisitRepository) ExtendRange(ctx context.Context, id string, newTo time.Time, newDetails []types.VisitDetail) error {
	args := m.Called(ctx, id, newTo, newDetails)
	return args.Error(0)
}

func (m *MockVisitRepository) UpdateDetail(ctx context.Context, detail *types.VisitDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockVisitRepository) UpdateMainStatus(ctx context.Context, id string, status types.MainStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockVisitRepository) GetDetailsByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]*types.VisitDetail, error) {
	args := m.Called(ctx, employeeID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.VisitDetail), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByMobile(ctx context.Context, mobile string) (*types.User, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, criteria *types.UserSearchCriteria) ([]*types.User, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.User), args.Error(1)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) UploadPhoto(ctx context.Context, kind string, data []byte) (string, error) {
	args := m.Called(ctx, kind, data)
	return args.String(0), args.Error(1)
}

type MockAttendanceReporter struct {
	mock.Mock
}

func (m *MockAttendanceReporter) AttendanceFor(ctx context.Context, employeeID string, from, to time.Time) ([]types.AttendanceDay, error) {
	args := m.Called(ctx, employeeID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AttendanceDay), args.Error(1)
}

var testNow = time.Date(2025, 3, 11, 10, 0, 0, 0, time.Local)

func setupTestService() (*Service, *MockVisitRepository, *MockUserRepository, *MockMediaStore) {
	cfg := &config.Config{}
	mockVisits := &MockVisitRepository{}
	mockUsers := &MockUserRepository{}
	mockMedia := &MockMediaStore{}

	service := NewService(cfg, logger.New("debug"), mockVisits, mockUsers, mockMedia, &MockAttendanceReporter{}, testMetrics)
	service.now = func() time.Time { return testNow }

	return service, mockVisits, mockUsers, mockMedia
}

func activeClient() *types.User {
	return &types.User{ID: "C100001", Name: "Asha Rao", Role: types.RoleClient, IsActive: true}
}

func activeEmployee() *types.User {
	return &types.User{ID: "P200001", Name: "Ravi Kumar", Role: types.RolePractitioner, IsActive: true}
}

// testVisit builds an active visit spanning [fromOffset, toOffset] days
// around the pinned clock, with one day row per date.
func testVisit(fromOffset, toOffset int, statuses ...types.DailyStatus) *types.Visit {
	from := midnight(testNow).AddDate(0, 0, fromOffset)
	to := midnight(testNow).AddDate(0, 0, toOffset)

	visit := &types.Visit{
		ID:         "V300001",
		ClientID:   "C100001",
		EmployeeID: "P200001",
		FromTS:     from,
		ToTS:       to,
		IsActive:   true,
		MainStatus: types.MainStatusInitiated,
		Location:   types.GeoPoint{Lat: "12.9716", Lng: "77.5946"},
	}

	days := daysIn(from, to)
	for i, day := range days {
		status := types.DailyStatusInitiated
		if i < len(statuses) {
			status = statuses[i]
		}
		visit.Details = append(visit.Details, types.VisitDetail{
			ID:          "detail-" + day.Format("2006-01-02"),
			VisitID:     visit.ID,
			ForDate:     day,
			DailyStatus: status,
		})
	}

	return visit
}

func assignmentRequest() *types.AssignmentRequest {
	return &types.AssignmentRequest{
		ClientID:   "C100001",
		EmployeeID: "P200001",
		FromDate:   "2025-03-10",
		ToDate:     "2025-03-12",
		Lat:        "12.9716",
		Lng:        "77.5946",
	}
}

func TestAssign_CreatesOneDayRowPerDate(t *testing.T) {
	service, mockVisits, mockUsers, _ := setupTestService()

	mockUsers.On("GetByID", mock.Anything, "C100001").Return(activeClient(), nil)
	mockUsers.On("GetByID", mock.Anything, "P200001").Return(activeEmployee(), nil)

	var captured []types.VisitDetail
	mockVisits.On("CreateWithDetails", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]types.VisitDetail)
		}).Return(nil)

	visit, err := service.Assign(context.Background(), assignmentRequest())

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(visit.ID, "V"))
	assert.Equal(t, types.MainStatusInitiated, visit.MainStatus)

	assert.Len(t, captured, 3)
	seen := make(map[string]bool)
	for _, detail := range captured {
		assert.Equal(t, visit.ID, detail.VisitID)
		assert.Equal(t, types.DailyStatusInitiated, detail.DailyStatus)
		seen[detail.ForDate.Format(dateLayout)] = true
	}
	assert.Len(t, seen, 3)
}

func TestAssign_OverlapConflict(t *testing.T) {
	service, mockVisits, mockUsers, _ := setupTestService()

	mockUsers.On("GetByID", mock.Anything, "C100001").Return(activeClient(), nil)
	mockUsers.On("GetByID", mock.Anything, "P200001").Return(activeEmployee(), nil)
	mockVisits.On("CreateWithDetails", mock.Anything, mock.Anything, mock.Anything).
		Return(types.NewConflictError(types.ErrCodeScheduleOverlap, "Schedule overlaps an existing active visit", nil))

	_, err := service.Assign(context.Background(), assignmentRequest())

	assert.Error(t, err)
	assert.True(t, types.IsConflict(err))
}

func TestAssign_RejectsInactiveEmployee(t *testing.T) {
	service, mockVisits, mockUsers, _ := setupTestService()

	employee := activeEmployee()
	employee.IsActive = false

	mockUsers.On("GetByID", mock.Anything, "C100001").Return(activeClient(), nil)
	mockUsers.On("GetByID", mock.Anything, "P200001").Return(employee, nil)

	_, err := service.Assign(context.Background(), assignmentRequest())

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
	mockVisits.AssertNotCalled(t, "CreateWithDetails")
}

// assignRejectedCount scrapes the package metrics endpoint for the rejected
// assignment counter.
func assignRejectedCount(t *testing.T) float64 {
	t.Helper()

	recorder := httptest.NewRecorder()
	testMetrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	for _, line := range strings.Split(recorder.Body.String(), "\n") {
		if !strings.HasPrefix(line, "visit_assignments_total") {
			continue
		}
		if !strings.Contains(line, `operation="assign"`) || !strings.Contains(line, `status="rejected"`) {
			continue
		}
		fields := strings.Fields(line)
		value, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		require.NoError(t, err)
		return value
	}
	return 0
}

func TestAssign_EligibilityRejectionsCounted(t *testing.T) {
	service, _, mockUsers, _ := setupTestService()

	employee := activeEmployee()
	employee.IsActive = false
	mockUsers.On("GetByID", mock.Anything, "C100001").Return(activeClient(), nil)
	mockUsers.On("GetByID", mock.Anything, "P200001").Return(employee, nil)

	before := assignRejectedCount(t)
	_, err := service.Assign(context.Background(), assignmentRequest())

	assert.Error(t, err)
	assert.Equal(t, before+1, assignRejectedCount(t))
}

func TestAssign_RejectsClientAsAssignee(t *testing.T) {
	service, mockVisits, mockUsers, _ := setupTestService()

	mockUsers.On("GetByID", mock.Anything, "C100001").Return(activeClient(), nil)
	mockUsers.On("GetByID", mock.Anything, "P200001").Return(activeClient(), nil)

	_, err := service.Assign(context.Background(), assignmentRequest())

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
	mockVisits.AssertNotCalled(t, "CreateWithDetails")
}

func TestAssign_RejectsMissingLocation(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	req := assignmentRequest()
	req.Lat = ""

	_, err := service.Assign(context.Background(), req)

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
	mockVisits.AssertNotCalled(t, "CreateWithDetails")
}

func TestAssign_RejectsInvertedRange(t *testing.T) {
	service, _, _, _ := setupTestService()

	req := assignmentRequest()
	req.FromDate, req.ToDate = req.ToDate, req.FromDate

	_, err := service.Assign(context.Background(), req)

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestUnassign_Success(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	mockVisits.On("GetByID", mock.Anything, "V300001").Return(testVisit(-1, 1), nil)
	mockVisits.On("SetActive", mock.Anything, "V300001", false).Return(nil)

	err := service.Unassign(context.Background(), "V300001")

	assert.NoError(t, err)
	mockVisits.AssertCalled(t, "SetActive", mock.Anything, "V300001", false)
}

func TestUnassign_AlreadyUnassigned(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	visit := testVisit(-1, 1)
	visit.IsActive = false
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)

	err := service.Unassign(context.Background(), "V300001")

	assert.Error(t, err)
	assert.True(t, types.IsConflict(err))
	mockVisits.AssertNotCalled(t, "SetActive")
}

func TestExtend_AppendsOnlyNewDays(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	visit := testVisit(-1, 1)
	newTo := midnight(testNow).AddDate(0, 0, 3)

	var captured []types.VisitDetail
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)
	mockVisits.On("ExtendRange", mock.Anything, "V300001", newTo, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).([]types.VisitDetail)
		}).Return(nil)

	_, err := service.Extend(context.Background(), "V300001", newTo)

	assert.NoError(t, err)
	assert.Len(t, captured, 2)
	assert.Equal(t, midnight(testNow).AddDate(0, 0, 2), captured[0].ForDate)
	assert.Equal(t, newTo, captured[1].ForDate)
	for _, detail := range captured {
		assert.Equal(t, types.DailyStatusInitiated, detail.DailyStatus)
	}
}

func TestExtend_RejectsEarlierEndDate(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	mockVisits.On("GetByID", mock.Anything, "V300001").Return(testVisit(-1, 1), nil)

	_, err := service.Extend(context.Background(), "V300001", midnight(testNow))

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
	mockVisits.AssertNotCalled(t, "ExtendRange")
}

func TestExtend_RejectsInactiveVisit(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	visit := testVisit(-1, 1)
	visit.IsActive = false
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)

	_, err := service.Extend(context.Background(), "V300001", midnight(testNow).AddDate(0, 0, 5))

	assert.Error(t, err)
	assert.True(t, types.IsConflict(err))
}

func checkEventRequest() *types.CheckEventRequest {
	return &types.CheckEventRequest{Lat: "12.9716", Lng: "77.5946", Photo: []byte("jpeg-bytes")}
}

func TestCheckIn_Success(t *testing.T) {
	service, mockVisits, _, mockMedia := setupTestService()

	visit := testVisit(-1, 1)
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)
	mockMedia.On("UploadPhoto", mock.Anything, "check_in", []byte("jpeg-bytes")).Return("media/in.jpg", nil)
	mockVisits.On("UpdateDetail", mock.Anything, mock.Anything).Return(nil)
	mockVisits.On("UpdateMainStatus", mock.Anything, "V300001", types.MainStatusCheckedIn).Return(nil)

	detail, err := service.CheckIn(context.Background(), "V300001", checkEventRequest())

	assert.NoError(t, err)
	assert.Equal(t, types.DailyStatusCheckedIn, detail.DailyStatus)
	assert.Equal(t, "media/in.jpg", detail.CheckIn.Img)
	assert.Equal(t, testNow, detail.CheckIn.At)
	mockVisits.AssertCalled(t, "UpdateMainStatus", mock.Anything, "V300001", types.MainStatusCheckedIn)
}

func TestCheckIn_UploadFailureLeavesDayUntouched(t *testing.T) {
	service, mockVisits, _, mockMedia := setupTestService()

	visit := testVisit(-1, 1)
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)
	mockMedia.On("UploadPhoto", mock.Anything, "check_in", mock.Anything).
		Return("", types.NewExternalError("MEDIA_UPLOAD_FAILED", "Media service unavailable", nil))

	_, err := service.CheckIn(context.Background(), "V300001", checkEventRequest())

	assert.Error(t, err)
	assert.True(t, types.IsExternal(err))
	assert.Equal(t, types.DailyStatusInitiated, visit.Details[1].DailyStatus)
	mockVisits.AssertNotCalled(t, "UpdateDetail")
}

func TestCheckIn_NoVisitDayToday(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	mockVisits.On("GetByID", mock.Anything, "V300001").Return(testVisit(2, 4), nil)

	_, err := service.CheckIn(context.Background(), "V300001", checkEventRequest())

	assert.Error(t, err)
	assert.True(t, types.IsPrecondition(err))
}

func TestCheckIn_InactiveVisit(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	visit := testVisit(-1, 1)
	visit.IsActive = false
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)

	_, err := service.CheckIn(context.Background(), "V300001", checkEventRequest())

	assert.Error(t, err)
	assert.True(t, types.IsPrecondition(err))
}

func TestCheckIn_RequiresCoordinates(t *testing.T) {
	service, mockVisits, _, mockMedia := setupTestService()

	mockVisits.On("GetByID", mock.Anything, "V300001").Return(testVisit(-1, 1), nil)

	req := checkEventRequest()
	req.Lng = ""

	_, err := service.CheckIn(context.Background(), "V300001", req)

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
	mockMedia.AssertNotCalled(t, "UploadPhoto")
}

func TestRecordVitals_RequiresNotes(t *testing.T) {
	service, mockVisits, _, _ := setupTestService()

	visit := testVisit(-1, 1, types.DailyStatusInitiated, types.DailyStatusCheckedIn)
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)

	_, err := service.RecordVitals(context.Background(), "V300001", &types.VitalsRequest{BloodPressure: "120/80"})

	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
	assert.Equal(t, types.DailyStatusCheckedIn, visit.Details[1].DailyStatus)
	mockVisits.AssertNotCalled(t, "UpdateDetail")
}

func TestRecordVitals_UploadsPrescriptionImages(t *testing.T) {
	service, mockVisits, _, mockMedia := setupTestService()

	visit := testVisit(-1, 1, types.DailyStatusInitiated, types.DailyStatusCheckedIn)
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)
	mockMedia.On("UploadPhoto", mock.Anything, "prescription", []byte("rx-1")).Return("media/rx-1.jpg", nil)
	mockMedia.On("UploadPhoto", mock.Anything, "prescription", []byte("rx-2")).Return("media/rx-2.jpg", nil)
	mockVisits.On("UpdateDetail", mock.Anything, mock.Anything).Return(nil)
	mockVisits.On("UpdateMainStatus", mock.Anything, "V300001", mock.Anything).Return(nil)

	detail, err := service.RecordVitals(context.Background(), "V300001", &types.VitalsRequest{
		BloodPressure:      "120/80",
		Sugar:              "98",
		Notes:              "responding well",
		PrescriptionImages: [][]byte{[]byte("rx-1"), []byte("rx-2")},
	})

	assert.NoError(t, err)
	assert.Equal(t, types.DailyStatusVitalUpdate, detail.DailyStatus)
	assert.Equal(t, []string{"media/rx-1.jpg", "media/rx-2.jpg"}, detail.Vitals.PrescriptionImages)
}

// Walks one day through the whole lifecycle, including the rejected vitals
// attempt in the middle.
func TestDailyLifecycle_EndToEnd(t *testing.T) {
	service, mockVisits, _, mockMedia := setupTestService()

	visit := testVisit(0, 0)
	mockVisits.On("GetByID", mock.Anything, "V300001").Return(visit, nil)
	mockMedia.On("UploadPhoto", mock.Anything, mock.Anything, mock.Anything).Return("media/photo.jpg", nil)
	mockVisits.On("UpdateDetail", mock.Anything, mock.Anything).Return(nil)
	mockVisits.On("UpdateMainStatus", mock.Anything, "V300001", mock.Anything).Return(nil)

	_, err := service.CheckIn(context.Background(), "V300001", checkEventRequest())
	assert.NoError(t, err)

	_, err = service.RecordVitals(context.Background(), "V300001", &types.VitalsRequest{Notes: ""})
	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))

	_, err = service.RecordVitals(context.Background(), "V300001", &types.VitalsRequest{Notes: "all vitals normal"})
	assert.NoError(t, err)

	detail, err := service.CheckOut(context.Background(), "V300001", checkEventRequest())
	assert.NoError(t, err)
	assert.Equal(t, types.DailyStatusCheckedOut, detail.DailyStatus)

	// The single day is complete, so the visit itself rolls up to CHECKEDOUT
	mockVisits.AssertCalled(t, "UpdateMainStatus", mock.Anything, "V300001", types.MainStatusCheckedOut)

	// Nothing may follow a check-out
	_, err = service.CheckIn(context.Background(), "V300001", checkEventRequest())
	assert.Error(t, err)
	assert.True(t, types.IsPrecondition(err))
}

func TestListAssignableEmployees_FiltersOverlappingEmployees(t *testing.T) {
	service, mockVisits, mockUsers, _ := setupTestService()

	from := midnight(testNow)
	to := from.AddDate(0, 0, 4)

	busy := &types.User{ID: "P200001", Role: types.RolePractitioner, IsActive: true}
	free := &types.User{ID: "P200002", Role: types.RolePractitioner, IsActive: true}

	mockUsers.On("GetByID", mock.Anything, "C100001").Return(activeClient(), nil)
	mockUsers.On("List", mock.Anything, mock.MatchedBy(func(c *types.UserSearchCriteria) bool {
		return c.Role == types.RolePractitioner
	})).Return([]*types.User{busy, free}, nil)
	mockUsers.On("List", mock.Anything, mock.MatchedBy(func(c *types.UserSearchCriteria) bool {
		return c.Role == types.RoleCaretaker
	})).Return([]*types.User{}, nil)

	mockVisits.On("GetActiveByEmployee", mock.Anything, "P200001").Return([]*types.Visit{testVisit(-1, 1)}, nil)
	mockVisits.On("GetActiveByEmployee", mock.Anything, "P200002").Return([]*types.Visit{}, nil)

	employees, err := service.ListAssignableEmployees(context.Background(), "C100001", from, to)

	assert.NoError(t, err)
	assert.Len(t, employees, 1)
	assert.Equal(t, "P200002", employees[0].ID)
}

func TestListAssignableEmployees_UnknownClient(t *testing.T) {
	service, _, mockUsers, _ := setupTestService()

	mockUsers.On("GetByID", mock.Anything, "C999999").
		Return(nil, types.NewNotFoundError("USER_NOT_FOUND", "User not found"))

	from := midnight(testNow)
	_, err := service.ListAssignableEmployees(context.Background(), "C999999", from, from.AddDate(0, 0, 2))

	assert.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}
