package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/config"
	redisclient "github.com/carewell-health/clinic-scheduling/internal/redis"
)

// Service owns the scheduling rules: time slot management, availability
// resolution, and the booking guard.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	resolver *Resolver
	cfg      config.Config
	loc      *time.Location
	log      *zap.Logger

	// Now is the clock source, overridable in tests. The resolver shares it.
	Now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, loc *time.Location, log *zap.Logger) *Service {
	resolver := NewResolver(repo, loc, cfg.AppointmentDuration, cfg.MinBookable)
	s := &Service{
		repo:     repo,
		locker:   locker,
		resolver: resolver,
		cfg:      cfg,
		loc:      loc,
		log:      log,
		Now:      time.Now,
	}
	resolver.Now = func() time.Time { return s.Now() }
	return s
}

// Resolve exposes the availability resolver.
func (s *Service) Resolve(ctx context.Context, staffID uuid.UUID, date time.Time) ([]Window, error) {
	return s.resolver.Resolve(ctx, staffID, date)
}

// CreateTimeSlot adds a recurring or one-off availability window for the
// acting staff member. Overlap with existing slots is allowed; the resolver
// merges at read time.
func (s *Service) CreateTimeSlot(ctx context.Context, actorID uuid.UUID, slot TimeSlot) (*TimeSlot, error) {
	slot.StaffID = actorID
	slot.IsRecurring = slot.DayOfWeek != nil
	if slot.Date != nil {
		d := s.resolver.midnight(*slot.Date)
		slot.Date = &d
	}
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetStaffByID(ctx, actorID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateTimeSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("create time slot: %w", err)
	}

	s.log.Info("time slot created",
		zap.String("slot_id", created.ID.String()),
		zap.String("staff_id", actorID.String()),
		zap.Bool("recurring", created.IsRecurring),
		zap.Bool("available", created.IsAvailable),
	)
	return created, nil
}

// UpdateTimeSlot edits a slot's day/date and times. Only the owner may edit.
func (s *Service) UpdateTimeSlot(ctx context.Context, actorID uuid.UUID, slot TimeSlot) (*TimeSlot, error) {
	existing, err := s.repo.GetTimeSlotByID(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if existing.StaffID != actorID {
		return nil, ErrNotSlotOwner
	}

	slot.StaffID = existing.StaffID
	slot.IsRecurring = slot.DayOfWeek != nil
	if slot.Date != nil {
		d := s.resolver.midnight(*slot.Date)
		slot.Date = &d
	}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateTimeSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("update time slot: %w", err)
	}
	return updated, nil
}

// DeleteTimeSlot removes a slot. Appointments booked from the slot's windows
// are untouched; slots are a generative rule, not a reserved resource.
func (s *Service) DeleteTimeSlot(ctx context.Context, actorID, slotID uuid.UUID) error {
	existing, err := s.repo.GetTimeSlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	if existing.StaffID != actorID {
		return ErrNotSlotOwner
	}
	if err := s.repo.DeleteTimeSlot(ctx, slotID); err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	return nil
}

func (s *Service) ListTimeSlots(ctx context.Context, staffID uuid.UUID) ([]TimeSlot, error) {
	slots, err := s.repo.ListTimeSlotsByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// SetStaffAvailability flips the staff-wide accepting-appointments toggle.
// Only the staff member themselves may flip it.
func (s *Service) SetStaffAvailability(ctx context.Context, actorID, staffID uuid.UUID, available bool) (*Staff, error) {
	if actorID != staffID {
		return nil, ErrNotPermitted
	}
	staff, err := s.repo.SetStaffAvailability(ctx, staffID, available)
	if err != nil {
		return nil, err
	}
	s.log.Info("staff availability toggled",
		zap.String("staff_id", staffID.String()),
		zap.Bool("available", available),
	)
	return staff, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListAppointmentsByStaffDay retrieves a staff member's appointments for one
// calendar date, all statuses included.
func (s *Service) ListAppointmentsByStaffDay(ctx context.Context, staffID uuid.UUID, date time.Time) ([]AppointmentDetail, error) {
	day := s.resolver.midnight(date)
	appointments, err := s.repo.ListAppointmentsByStaffDay(ctx, staffID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments by staff day: %w", err)
	}
	return appointments, nil
}
