package visits

import (
	"time"

	"github.com/Yadlapure/health-care/pkg/types"
)

// ComputeMainStatus rolls a visit's daily details up into the coarse
// visit-level status: CHECKEDOUT only when every day is CHECKEDOUT,
// CHECKEDIN once any day has progressed past INITIATED, INITIATED otherwise.
func ComputeMainStatus(details []types.VisitDetail) types.MainStatus {
	if len(details) == 0 {
		return types.MainStatusInitiated
	}

	allCheckedOut := true
	anyStarted := false

	for i := range details {
		if details[i].DailyStatus != types.DailyStatusCheckedOut {
			allCheckedOut = false
		}
		if details[i].DailyStatus.Rank() >= types.DailyStatusCheckedIn.Rank() {
			anyStarted = true
		}
	}

	if allCheckedOut {
		return types.MainStatusCheckedOut
	}
	if anyStarted {
		return types.MainStatusCheckedIn
	}
	return types.MainStatusInitiated
}

// TodayDetail returns the visit day dated today, or nil when today falls
// outside the visit range or the row is missing. Callers must treat nil as
// "no visit scheduled today".
func TodayDetail(visit *types.Visit, now time.Time) *types.VisitDetail {
	if visit == nil {
		return nil
	}
	for i := range visit.Details {
		if sameDay(visit.Details[i].ForDate, now) {
			return &visit.Details[i]
		}
	}
	return nil
}

// Bucket classifies one visit day for dashboard listings: completed days,
// today's in-progress day, and upcoming days.
func Bucket(detail *types.VisitDetail, now time.Time) types.VisitBucket {
	if detail.DailyStatus == types.DailyStatusCheckedOut {
		return types.BucketCompleted
	}
	if sameDay(detail.ForDate, now) {
		return types.BucketToday
	}
	if midnight(detail.ForDate).After(midnight(now)) {
		return types.BucketUpcoming
	}
	// past day that never completed
	return types.BucketCompleted
}

// rangesOverlap reports whether two inclusive date ranges intersect.
// Inputs are compared on midnight-normalized dates, so ranges sharing only
// a boundary date still overlap while adjacent ranges do not.
func rangesOverlap(a1, b1, a2, b2 time.Time) bool {
	a1, b1 = midnight(a1), midnight(b1)
	a2, b2 = midnight(a2), midnight(b2)
	return !a1.After(b2) && !a2.After(b1)
}
