package types

import "time"

// DailyStatus represents the per-day progression of a visit
type DailyStatus string

const (
	DailyStatusInitiated   DailyStatus = "INITIATED"
	DailyStatusCheckedIn   DailyStatus = "CHECKEDIN"
	DailyStatusVitalUpdate DailyStatus = "VITALUPDATE"
	DailyStatusCheckedOut  DailyStatus = "CHECKEDOUT"
)

// Rank returns the position of the status along the daily progression,
// or -1 for an unknown value
func (s DailyStatus) Rank() int {
	switch s {
	case DailyStatusInitiated:
		return 0
	case DailyStatusCheckedIn:
		return 1
	case DailyStatusVitalUpdate:
		return 2
	case DailyStatusCheckedOut:
		return 3
	default:
		return -1
	}
}

// MainStatus represents the visit-level roll-up of all daily statuses
type MainStatus string

const (
	MainStatusInitiated  MainStatus = "INITIATED"
	MainStatusCheckedIn  MainStatus = "CHECKEDIN"
	MainStatusCheckedOut MainStatus = "CHECKEDOUT"
)

// VisitBucket classifies a visit day for dashboard listings
type VisitBucket string

const (
	BucketToday     VisitBucket = "today"
	BucketUpcoming  VisitBucket = "upcoming"
	BucketCompleted VisitBucket = "completed"
)

// GeoPoint is a latitude/longitude pair. Coordinates travel as strings on the
// wire and are parsed only where distance math is needed.
type GeoPoint struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// CheckEvent captures a check-in or check-out: timestamp, coordinates and the
// reference to the uploaded photo
type CheckEvent struct {
	At  time.Time `json:"at"`
	Lat string    `json:"lat"`
	Lng string    `json:"lng"`
	Img string    `json:"img"`
}

// Vitals captures the measurements recorded during a visit day
type Vitals struct {
	BloodPressure      string   `json:"blood_pressure,omitempty"`
	Sugar              string   `json:"sugar,omitempty"`
	Notes              string   `json:"notes"`
	PrescriptionImages []string `json:"prescription_images,omitempty"`
}

// VisitDetail is one calendar day of a visit
type VisitDetail struct {
	ID          string      `json:"detail_id" db:"id"`
	VisitID     string      `json:"visit_id" db:"visit_id"`
	ForDate     time.Time   `json:"for_date" db:"for_date"`
	DailyStatus DailyStatus `json:"daily_status" db:"daily_status"`
	CheckIn     *CheckEvent `json:"check_in,omitempty" db:"check_in"`
	CheckOut    *CheckEvent `json:"check_out,omitempty" db:"check_out"`
	Vitals      *Vitals     `json:"vitals,omitempty" db:"vitals"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Visit is the assignment of one employee to one client over an inclusive
// date range, owning one VisitDetail per calendar day in the range
type Visit struct {
	ID         string        `json:"visit_id" db:"id"`
	ClientID   string        `json:"assigned_client_id" db:"client_id"`
	EmployeeID string        `json:"assigned_emp_id" db:"employee_id"`
	FromTS     time.Time     `json:"from_ts" db:"from_ts"`
	ToTS       time.Time     `json:"to_ts" db:"to_ts"`
	IsActive   bool          `json:"is_active" db:"is_active"`
	MainStatus MainStatus    `json:"main_status" db:"main_status"`
	Location   GeoPoint      `json:"location"`
	Details    []VisitDetail `json:"details,omitempty"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// AssignmentRequest represents a request to assign an employee to a client
type AssignmentRequest struct {
	ClientID   string `json:"client_id" validate:"required"`
	EmployeeID string `json:"employee_id" validate:"required"`
	FromDate   string `json:"from_date" validate:"required"`
	ToDate     string `json:"to_date" validate:"required"`
	Lat        string `json:"lat" validate:"required"`
	Lng        string `json:"lng" validate:"required"`
}

// ExtendRequest represents a request to push a visit's end date forward
type ExtendRequest struct {
	VisitID   string `json:"visit_id" validate:"required"`
	NewToDate string `json:"new_to_date" validate:"required"`
}

// CheckEventRequest represents a check-in or check-out submission
type CheckEventRequest struct {
	Lat   string `json:"lat" validate:"required"`
	Lng   string `json:"lng" validate:"required"`
	Photo []byte `json:"-"`
}

// VitalsRequest represents a vitals submission for today's visit day
type VitalsRequest struct {
	BloodPressure      string   `json:"blood_pressure,omitempty"`
	Sugar              string   `json:"sugar,omitempty"`
	Notes              string   `json:"notes" validate:"required"`
	PrescriptionImages [][]byte `json:"-"`
}

// VisitFilters represents filters for visit listings
type VisitFilters struct {
	ClientID   string     `json:"client_id,omitempty"`
	EmployeeID string     `json:"employee_id,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
