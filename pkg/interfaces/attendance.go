package interfaces

import (
	"context"
	"time"

	"github.com/Yadlapure/health-care/pkg/types"
)

// AttendanceReporter classifies an employee's calendar days inside a window
type AttendanceReporter interface {
	AttendanceFor(ctx context.Context, employeeID string, from, to time.Time) ([]types.AttendanceDay, error)
}
