package visits

import (
	"time"

	"github.com/Yadlapure/health-care/pkg/types"
)

// successor maps each daily status to the only status it may advance to.
// CHECKEDOUT is terminal and has no entry.
var successor = map[types.DailyStatus]types.DailyStatus{
	types.DailyStatusInitiated:   types.DailyStatusCheckedIn,
	types.DailyStatusCheckedIn:   types.DailyStatusVitalUpdate,
	types.DailyStatusVitalUpdate: types.DailyStatusCheckedOut,
}

// guardTransition rejects any transition that is not the single legal
// successor of the detail's current status
func guardTransition(detail *types.VisitDetail, to types.DailyStatus) error {
	next, ok := successor[detail.DailyStatus]
	if !ok || next != to {
		return types.NewPreconditionError(types.ErrCodeInvalidTransition,
			"Transition not allowed from current daily status",
			map[string]interface{}{
				"current":   detail.DailyStatus,
				"requested": to,
				"for_date":  detail.ForDate.Format("2006-01-02"),
			})
	}
	return nil
}

// applyCheckIn advances today's detail from INITIATED to CHECKEDIN,
// stamping the check-in event. Check-in is only valid for the current date.
func applyCheckIn(detail *types.VisitDetail, event *types.CheckEvent, now time.Time) error {
	if !sameDay(detail.ForDate, now) {
		return types.NewPreconditionError("NOT_TODAY",
			"Check-in is only allowed for today's visit day",
			map[string]interface{}{"for_date": detail.ForDate.Format("2006-01-02")})
	}
	if err := guardTransition(detail, types.DailyStatusCheckedIn); err != nil {
		return err
	}

	detail.DailyStatus = types.DailyStatusCheckedIn
	detail.CheckIn = event
	detail.UpdatedAt = now
	return nil
}

// applyVitals advances the detail from CHECKEDIN to VITALUPDATE. Notes are
// mandatory, the remaining measurements are optional.
func applyVitals(detail *types.VisitDetail, vitals *types.Vitals, now time.Time) error {
	if vitals == nil || vitals.Notes == "" {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Vitals notes are required", nil)
	}
	if err := guardTransition(detail, types.DailyStatusVitalUpdate); err != nil {
		return err
	}

	detail.DailyStatus = types.DailyStatusVitalUpdate
	detail.Vitals = vitals
	detail.UpdatedAt = now
	return nil
}

// applyCheckOut advances the detail from VITALUPDATE to CHECKEDOUT, the
// terminal state for the day.
func applyCheckOut(detail *types.VisitDetail, event *types.CheckEvent, now time.Time) error {
	if err := guardTransition(detail, types.DailyStatusCheckedOut); err != nil {
		return err
	}

	detail.DailyStatus = types.DailyStatusCheckedOut
	detail.CheckOut = event
	detail.UpdatedAt = now
	return nil
}

// sameDay reports whether two instants fall on the same calendar date
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// midnight normalizes an instant to 00:00 of its calendar date
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysIn returns one midnight-normalized entry per calendar date in the
// inclusive range [from, to]
func daysIn(from, to time.Time) []time.Time {
	from = midnight(from)
	to = midnight(to)

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
