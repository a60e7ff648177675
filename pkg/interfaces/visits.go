package interfaces

import (
	"context"
	"time"

	"github.com/Yadlapure/health-care/pkg/types"
)

// VisitService defines the interface for assignment planning and the
// per-day visit lifecycle
type VisitService interface {
	// Assignment planning
	ListAssignableEmployees(ctx context.Context, clientID string, from, to time.Time) ([]*types.User, error)
	Assign(ctx context.Context, req *types.AssignmentRequest) (*types.Visit, error)
	Unassign(ctx context.Context, visitID string) error
	Extend(ctx context.Context, visitID string, newTo time.Time) (*types.Visit, error)

	// Daily state machine
	CheckIn(ctx context.Context, visitID string, req *types.CheckEventRequest) (*types.VisitDetail, error)
	RecordVitals(ctx context.Context, visitID string, req *types.VitalsRequest) (*types.VisitDetail, error)
	CheckOut(ctx context.Context, visitID string, req *types.CheckEventRequest) (*types.VisitDetail, error)

	// Listings
	GetVisit(ctx context.Context, visitID string) (*types.Visit, error)
	ListVisits(ctx context.Context, filters *types.VisitFilters) ([]*types.Visit, error)

	// Service management
	Start(addr string) error
	Stop() error
}

// VisitRepository defines the interface for visit data persistence
type VisitRepository interface {
	CreateWithDetails(ctx context.Context, visit *types.Visit, details []types.VisitDetail) error
	GetByID(ctx context.Context, id string) (*types.Visit, error)
	GetActiveByEmployee(ctx context.Context, employeeID string) ([]*types.Visit, error)
	GetActiveByClient(ctx context.Context, clientID string) ([]*types.Visit, error)
	List(ctx context.Context, filters *types.VisitFilters) ([]*types.Visit, error)
	SetActive(ctx context.Context, id string, active bool) error
	ExtendRange(ctx context.Context, id string, newTo time.Time, newDetails []types.VisitDetail) error
	UpdateDetail(ctx context.Context, detail *types.VisitDetail) error
	UpdateMainStatus(ctx context.Context, id string, status types.MainStatus) error
	GetDetailsByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]*types.VisitDetail, error)
}

// MediaStore defines the interface for the image storage sidecar
type MediaStore interface {
	UploadPhoto(ctx context.Context, kind string, data []byte) (string, error)
}
