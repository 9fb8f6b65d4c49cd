package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusApproved    AppointmentStatus = "approved"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusNoShow      AppointmentStatus = "no_show"
)

// validTransitions is the appointment lifecycle. Statuses absent from the map
// are terminal.
var validTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Blocks reports whether an appointment in this status still occupies its
// window. Cancelled and no-show appointments free the slot; everything else
// keeps it reserved.
func (s AppointmentStatus) Blocks() bool {
	return s != StatusCancelled && s != StatusNoShow && s != StatusRescheduled
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RolePatient Role = "patient"
)

type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// WeekdayOf maps a calendar date to the clinic's weekday enumeration.
func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// ValidWeekday reports whether s is one of the seven enumerated values.
func ValidWeekday(s Weekday) bool {
	switch s {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

type Staff struct {
	ID          uuid.UUID
	Name        string
	Specialty   *string
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlot is a configured availability window for a staff member. Exactly one
// of DayOfWeek (recurring, every week) or Date (one-off override for a single
// calendar day) is set. IsAvailable=false turns the slot into a blocking
// override that carves time out of the recurring set for that date.
type TimeSlot struct {
	ID          uuid.UUID
	StaffID     uuid.UUID
	DayOfWeek   *Weekday
	Date        *time.Time
	StartTime   string // HH:MM, clinic-local wall clock
	EndTime     string
	IsRecurring bool
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the structural invariants before a slot is written.
func (ts TimeSlot) Validate() error {
	if ts.StaffID == uuid.Nil {
		return fmt.Errorf("%w: staff id is required", ErrInvalidTimeSlot)
	}
	if (ts.DayOfWeek == nil) == (ts.Date == nil) {
		return fmt.Errorf("%w: exactly one of day_of_week or date must be set", ErrInvalidTimeSlot)
	}
	if ts.DayOfWeek != nil && !ValidWeekday(*ts.DayOfWeek) {
		return fmt.Errorf("%w: unknown day_of_week %q", ErrInvalidTimeSlot, *ts.DayOfWeek)
	}
	if ts.IsRecurring != (ts.DayOfWeek != nil) {
		return fmt.Errorf("%w: is_recurring must match day_of_week presence", ErrInvalidTimeSlot)
	}
	if ts.DayOfWeek != nil && !ts.IsAvailable {
		return fmt.Errorf("%w: blocking slots must be pinned to a date", ErrInvalidTimeSlot)
	}
	start, err := ParseClock(ts.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time: %v", ErrInvalidTimeSlot, err)
	}
	end, err := ParseClock(ts.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time: %v", ErrInvalidTimeSlot, err)
	}
	if start >= end {
		return fmt.Errorf("%w: start_time must be before end_time", ErrInvalidTimeSlot)
	}
	return nil
}

type Appointment struct {
	ID              uuid.UUID
	StaffID         uuid.UUID
	PatientID       uuid.UUID
	AppointmentDate time.Time // precise start instant
	Status          AppointmentStatus
	Reason          string
	ReminderSentAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AppointmentDetail hydrates an appointment with the people on both sides.
type AppointmentDetail struct {
	Appointment
	Staff   *Staff
	Patient *Patient
}
