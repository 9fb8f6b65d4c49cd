package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStaffNotFound       = errors.New("staff member not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrTimeSlotNotFound    = errors.New("time slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrStaffUnavailable  = errors.New("staff member is not accepting appointments")
	ErrSlotNotAvailable  = errors.New("requested time is no longer available")
	ErrPastDate          = errors.New("requested time is in the past")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrNotPermitted      = errors.New("action not permitted for this role")
	ErrInvalidTimeSlot   = errors.New("invalid time slot")
	ErrNotSlotOwner      = errors.New("time slot belongs to another staff member")
)

// Repository contains all store interactions needed by the resolver, the
// booking guard, and the slot management service.
type Repository interface {
	GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	SetStaffAvailability(ctx context.Context, id uuid.UUID, available bool) (*Staff, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	CreateTimeSlot(ctx context.Context, slot TimeSlot) (*TimeSlot, error)
	GetTimeSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	UpdateTimeSlot(ctx context.Context, slot TimeSlot) (*TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, id uuid.UUID) error
	ListTimeSlotsByStaff(ctx context.Context, staffID uuid.UUID) ([]TimeSlot, error)

	// TimeSlotsForDate returns the recurring slots matching the weekday plus
	// the one-off slots pinned to the date, both available and blocking.
	TimeSlotsForDate(ctx context.Context, staffID uuid.UUID, day Weekday, date time.Time) ([]TimeSlot, error)

	// ListBlockingAppointments returns the appointments for the staff member
	// in [from, to) whose status still occupies its window.
	ListBlockingAppointments(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// CreateAppointmentIfFree atomically re-checks for a blocking appointment
	// overlapping [appt.AppointmentDate, +duration) and inserts the row only
	// if none exists. A conflict returns ErrSlotNotAvailable and writes
	// nothing. This is the booking guard's serialization point.
	CreateAppointmentIfFree(ctx context.Context, appt Appointment, duration time.Duration) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	ListAppointmentsByStaffDay(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error)

	// UpdateAppointmentStatus is a compare-and-set: the row moves from -> to
	// only if it is still in from, otherwise ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Reminder worker.
	FindDueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]AppointmentDetail, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}
