package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/carewell-health/clinic-scheduling/internal/redis"
)

// BookingRequest is a patient's ask for a specific start time. Any
// availability the client displayed beforehand is a hint only; the guard
// re-derives everything from current store state.
type BookingRequest struct {
	StaffID   uuid.UUID
	PatientID uuid.UUID
	Start     time.Time
	Reason    string
}

// Book validates a booking request against current availability and commits
// it exactly once. Every rejection is a typed error and performs no writes.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	staff, err := s.repo.GetStaffByID(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if !staff.IsAvailable {
		return nil, ErrStaffUnavailable
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	// Appointments live on whole minutes. Resolved windows carry no finer
	// resolution, so a sub-minute start would occupy time the resolver can
	// never subtract.
	req.Start = req.Start.Truncate(time.Minute)

	// Past times are rejected before availability is even consulted.
	now := s.Now()
	if !req.Start.After(now) {
		return nil, ErrPastDate
	}

	windows, err := s.resolver.Resolve(ctx, req.StaffID, req.Start)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}

	startMin := s.resolver.minuteOfDay(req.Start)
	endMin := startMin + s.resolver.apptMinutes
	if !windowCovers(windows, startMin, endMin) {
		return nil, ErrSlotNotAvailable
	}

	day := s.resolver.midnight(req.Start)

	var created *Appointment
	err = s.locker.WithScheduleLock(ctx, req.StaffID, day, func(lockCtx context.Context) error {
		// The store re-checks for a conflicting appointment inside the same
		// transaction as the insert, so two racing requests cannot both read
		// "available" before either commits.
		appt, err := s.repo.CreateAppointmentIfFree(lockCtx, Appointment{
			StaffID:         req.StaffID,
			PatientID:       req.PatientID,
			AppointmentDate: req.Start,
			Status:          StatusPending,
			Reason:          req.Reason,
		}, s.cfg.AppointmentDuration)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			// Another booking for the same staff-day holds the lock; from the
			// caller's point of view the slot is contended.
			return nil, ErrSlotNotAvailable
		}
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("staff_id", req.StaffID.String()),
		zap.String("patient_id", req.PatientID.String()),
		zap.Time("start", req.Start),
	)
	return created, nil
}

// windowCovers reports whether [start, end) fits fully inside one resolved
// window.
func windowCovers(windows []Window, start, end int) bool {
	for _, w := range windows {
		if w.Start <= start && end <= w.End {
			return true
		}
	}
	return false
}

// Transition applies a status change on behalf of an actor. Patients may only
// cancel their own appointments; staff and admin drive every other legal
// transition. The store-side compare-and-set keeps concurrent transitions from
// double-applying.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to AppointmentStatus, actor Role, actorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor == RolePatient {
		if to != StatusCancelled || appt.PatientID != actorID {
			return nil, ErrNotPermitted
		}
	}

	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status moved underneath us between read and CAS.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.log.Info("appointment status changed",
		zap.String("appointment_id", id.String()),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(to)),
		zap.String("actor_role", string(actor)),
	)
	return updated, nil
}

// Reschedule books a new appointment at newStart and retires the old record
// as rescheduled. Patients may only reschedule their own.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, actor Role, actorID uuid.UUID) (*Appointment, error) {
	old, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == RolePatient && old.PatientID != actorID {
		return nil, ErrNotPermitted
	}
	if !CanTransition(old.Status, StatusRescheduled) {
		return nil, ErrInvalidTransition
	}

	created, err := s.Book(ctx, BookingRequest{
		StaffID:   old.StaffID,
		PatientID: old.PatientID,
		Start:     newStart,
		Reason:    old.Reason,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateAppointmentStatus(ctx, old.ID, old.Status, StatusRescheduled); err != nil {
		// The old record changed concurrently; release the window we just
		// took so the reschedule stays all-or-nothing.
		if _, cErr := s.repo.UpdateAppointmentStatus(ctx, created.ID, StatusPending, StatusCancelled); cErr != nil {
			s.log.Error("failed to roll back replacement appointment",
				zap.String("appointment_id", created.ID.String()),
				zap.Error(cErr),
			)
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("retire old appointment: %w", err)
	}

	s.log.Info("appointment rescheduled",
		zap.String("old_appointment_id", old.ID.String()),
		zap.String("new_appointment_id", created.ID.String()),
		zap.Time("new_start", newStart),
	)
	return created, nil
}
