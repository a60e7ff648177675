package types

import "time"

// AttendanceStatus classifies one calendar day of an employee's record
type AttendanceStatus string

const (
	AttendancePresent     AttendanceStatus = "present"
	AttendanceAbsent      AttendanceStatus = "absent"
	AttendanceHalfDay     AttendanceStatus = "half_day"
	AttendanceWeekend     AttendanceStatus = "weekend"
	AttendanceNotCaptured AttendanceStatus = "nc"
)

// AttendanceDay is derived on read from an employee's visit-day records;
// it is never stored
type AttendanceDay struct {
	Date         time.Time        `json:"date"`
	Status       AttendanceStatus `json:"status"`
	CheckInTime  *time.Time       `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time       `json:"check_out_time,omitempty"`
}

// AttendanceRequest represents an attendance window query for one employee
type AttendanceRequest struct {
	EmployeeID string `json:"user_id" validate:"required"`
	From       string `json:"from" validate:"required"`
	To         string `json:"to" validate:"required"`
}
