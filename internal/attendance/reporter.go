package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/Yadlapure/health-care/pkg/config"
	"github.com/Yadlapure/health-care/pkg/interfaces"
	"github.com/Yadlapure/health-care/pkg/logger"
	"github.com/Yadlapure/health-care/pkg/types"
)

// Reporter derives per-day attendance from visit-day records. Nothing is
// stored; every request recomputes the window from the day rows.
type Reporter struct {
	config  *config.AttendanceConfig
	logger  *logger.Logger
	details interfaces.VisitRepository

	now func() time.Time
}

// NewReporter creates a new attendance reporter
func NewReporter(cfg *config.AttendanceConfig, log *logger.Logger, details interfaces.VisitRepository) *Reporter {
	return &Reporter{
		config:  cfg,
		logger:  log,
		details: details,
		now:     time.Now,
	}
}

// AttendanceFor classifies every calendar day in [from, to] for one employee
func (r *Reporter) AttendanceFor(ctx context.Context, employeeID string, from, to time.Time) ([]types.AttendanceDay, error) {
	if employeeID == "" {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Employee ID is required", nil)
	}

	from = midnight(from)
	to = midnight(to)
	if from.After(to) {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Start date must not be after end date", map[string]interface{}{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		})
	}

	records, err := r.details.GetDetailsByEmployeeRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*types.VisitDetail, len(records))
	for _, record := range records {
		key := record.ForDate.Format("2006-01-02")
		if existing, ok := byDate[key]; ok && !preferDetail(record, existing) {
			continue
		}
		byDate[key] = record
	}

	today := midnight(r.now())

	var days []types.AttendanceDay
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		days = append(days, r.classify(day, today, byDate[day.Format("2006-01-02")]))
	}

	r.logger.WithUserID(employeeID).Infof("Attendance computed for %d days", len(days))
	return days, nil
}

// classify maps one calendar day to its attendance status. A real check-in
// always beats the weekend rule.
// preferDetail reports whether candidate carries more recorded activity than
// existing for the same date. Unassigning and reassigning an employee on the
// same day leaves two rows; the one with a check-in must win.
func preferDetail(candidate, existing *types.VisitDetail) bool {
	if (candidate.CheckIn != nil) != (existing.CheckIn != nil) {
		return candidate.CheckIn != nil
	}
	return candidate.CheckOut != nil && existing.CheckOut == nil
}

func (r *Reporter) classify(day, today time.Time, detail *types.VisitDetail) types.AttendanceDay {
	out := types.AttendanceDay{Date: day, Status: types.AttendanceNotCaptured}

	if detail != nil && detail.CheckIn != nil {
		checkIn := detail.CheckIn.At
		out.CheckInTime = &checkIn

		if detail.CheckOut != nil {
			checkOut := detail.CheckOut.At
			out.CheckOutTime = &checkOut
			out.Status = types.AttendancePresent
			return out
		}

		out.Status = types.AttendanceHalfDay
		return out
	}

	if r.isWeekend(day) {
		out.Status = types.AttendanceWeekend
		return out
	}

	if detail != nil && day.Before(today) {
		out.Status = types.AttendanceAbsent
	}

	return out
}

func (r *Reporter) isWeekend(day time.Time) bool {
	for _, name := range r.config.WeekendDays {
		if strings.EqualFold(name, day.Weekday().String()) {
			return true
		}
	}
	return false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
