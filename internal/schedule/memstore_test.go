package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carewell-health/clinic-scheduling/internal/config"
)

// memStore is an in-memory Repository used by the resolver and guard tests.
// CreateAppointmentIfFree holds the store mutex across the conflict check and
// the insert, mirroring the transactional guarantee of the Postgres store.
type memStore struct {
	mu       sync.Mutex
	staff    map[uuid.UUID]*Staff
	patients map[uuid.UUID]*Patient
	slots    map[uuid.UUID]*TimeSlot
	appts    map[uuid.UUID]*Appointment
}

func newMemStore() *memStore {
	return &memStore{
		staff:    make(map[uuid.UUID]*Staff),
		patients: make(map[uuid.UUID]*Patient),
		slots:    make(map[uuid.UUID]*TimeSlot),
		appts:    make(map[uuid.UUID]*Appointment),
	}
}

func (m *memStore) addStaff(available bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.staff[id] = &Staff{ID: id, Name: "Dr. Test", IsAvailable: available}
	return id
}

func (m *memStore) addPatient(email string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	p := &Patient{ID: id, Name: "Pat Test"}
	if email != "" {
		p.Email = &email
	}
	m.patients[id] = p
	return id
}

func (m *memStore) addRecurringSlot(staffID uuid.UUID, day Weekday, start, end string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.slots[id] = &TimeSlot{
		ID: id, StaffID: staffID, DayOfWeek: &day,
		StartTime: start, EndTime: end,
		IsRecurring: true, IsAvailable: true,
	}
	return id
}

func (m *memStore) addDateSlot(staffID uuid.UUID, date time.Time, start, end string, available bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	d := date
	m.slots[id] = &TimeSlot{
		ID: id, StaffID: staffID, Date: &d,
		StartTime: start, EndTime: end,
		IsRecurring: false, IsAvailable: available,
	}
	return id
}

// Repository implementation

func (m *memStore) GetStaffByID(_ context.Context, id uuid.UUID) (*Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) SetStaffAvailability(_ context.Context, id uuid.UUID, available bool) (*Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	s.IsAvailable = available
	cp := *s
	return &cp, nil
}

func (m *memStore) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreateTimeSlot(_ context.Context, slot TimeSlot) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot.ID = uuid.New()
	m.slots[slot.ID] = &slot
	cp := slot
	return &cp, nil
}

func (m *memStore) GetTimeSlotByID(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrTimeSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) UpdateTimeSlot(_ context.Context, slot TimeSlot) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; !ok {
		return nil, ErrTimeSlotNotFound
	}
	m.slots[slot.ID] = &slot
	cp := slot
	return &cp, nil
}

func (m *memStore) DeleteTimeSlot(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return ErrTimeSlotNotFound
	}
	delete(m.slots, id)
	return nil
}

func (m *memStore) ListTimeSlotsByStaff(_ context.Context, staffID uuid.UUID) ([]TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TimeSlot
	for _, s := range m.slots {
		if s.StaffID == staffID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *memStore) TimeSlotsForDate(_ context.Context, staffID uuid.UUID, day Weekday, date time.Time) ([]TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TimeSlot
	for _, s := range m.slots {
		if s.StaffID != staffID {
			continue
		}
		if s.IsRecurring && s.DayOfWeek != nil && *s.DayOfWeek == day {
			out = append(out, *s)
		}
		if !s.IsRecurring && s.Date != nil && s.Date.Equal(date) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) ListBlockingAppointments(_ context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.appts {
		if a.StaffID != staffID || !a.Status.Blocks() {
			continue
		}
		if a.AppointmentDate.Before(from) || !a.AppointmentDate.Before(to) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	return out, nil
}

func (m *memStore) CreateAppointmentIfFree(_ context.Context, appt Appointment, duration time.Duration) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.appts {
		if existing.StaffID != appt.StaffID || !existing.Status.Blocks() {
			continue
		}
		gap := existing.AppointmentDate.Sub(appt.AppointmentDate)
		if gap < 0 {
			gap = -gap
		}
		if gap < duration {
			return nil, ErrSlotNotAvailable
		}
	}

	appt.ID = uuid.New()
	appt.Status = StatusPending
	m.appts[appt.ID] = &appt
	cp := appt
	return &cp, nil
}

func (m *memStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := m.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	detail := &AppointmentDetail{Appointment: *a}
	if s, ok := m.staff[a.StaffID]; ok {
		cp := *s
		detail.Staff = &cp
	}
	if p, ok := m.patients[a.PatientID]; ok {
		cp := *p
		detail.Patient = &cp
	}
	return detail, nil
}

func (m *memStore) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	m.mu.Lock()
	var ids []uuid.UUID
	for id, a := range m.appts {
		if a.PatientID == patientID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	var out []AppointmentDetail
	for _, id := range ids {
		d, err := m.GetAppointmentDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.After(out[j].AppointmentDate) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListAppointmentsByStaffDay(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	m.mu.Lock()
	var ids []uuid.UUID
	for id, a := range m.appts {
		if a.StaffID == staffID && !a.AppointmentDate.Before(from) && a.AppointmentDate.Before(to) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	var out []AppointmentDetail
	for _, id := range ids {
		d, err := m.GetAppointmentDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	return out, nil
}

func (m *memStore) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (m *memStore) FindDueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]AppointmentDetail, error) {
	m.mu.Lock()
	var ids []uuid.UUID
	for id, a := range m.appts {
		if a.Status != StatusApproved && a.Status != StatusConfirmed {
			continue
		}
		if a.ReminderSentAt != nil {
			continue
		}
		if !a.AppointmentDate.After(now) || a.AppointmentDate.After(now.Add(horizon)) {
			continue
		}
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var out []AppointmentDetail
	for _, id := range ids {
		d, err := m.GetAppointmentDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *memStore) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.ReminderSentAt = &at
	return nil
}

// memLocker serializes commits with a plain mutex, standing in for the Redis
// schedule lock.
type memLocker struct {
	mu sync.Mutex
}

func (l *memLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

// testNow is Monday 2 March 2026, 08:00 UTC. Tests pin the service clock here.
var testNow = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

func newTestService(store *memStore) *Service {
	cfg := config.Config{
		AppointmentDuration: 30 * time.Minute,
		MinBookable:         30 * time.Minute,
		ReminderHorizon:     24 * time.Hour,
	}
	svc := NewService(store, &memLocker{}, cfg, time.UTC, zap.NewNop())
	svc.Now = func() time.Time { return testNow }
	return svc
}
