package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	var specialty *string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&specialty,
		&s.IsAvailable,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	s.Specialty = specialty
	return &s, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanTimeSlot(row pgx.Row) (*TimeSlot, error) {
	var ts TimeSlot
	var day *string
	var date *time.Time

	err := row.Scan(
		&ts.ID,
		&ts.StaffID,
		&day,
		&date,
		&ts.StartTime,
		&ts.EndTime,
		&ts.IsRecurring,
		&ts.IsAvailable,
		&ts.CreatedAt,
		&ts.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimeSlotNotFound
		}
		return nil, err
	}

	if day != nil {
		w := Weekday(*day)
		ts.DayOfWeek = &w
	}
	ts.Date = date
	return &ts, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reminderSentAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.StaffID,
		&a.PatientID,
		&a.AppointmentDate,
		&a.Status,
		&a.Reason,
		&reminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ReminderSentAt = reminderSentAt
	return &a, nil
}

const appointmentColumns = `id, staff_id, patient_id, appointment_date, status, reason, reminder_sent_at, created_at, updated_at`
const timeSlotColumns = `id, staff_id, day_of_week, date, start_time, end_time, is_recurring, is_available, created_at, updated_at`

// Interface methods

func (r *PgStore) GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, is_available, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, id)
	return scanStaff(row)
}

func (r *PgStore) SetStaffAvailability(ctx context.Context, id uuid.UUID, available bool) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE staff
		SET is_available = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, specialty, is_available, created_at, updated_at
	`, id, available)
	return scanStaff(row)
}

func (r *PgStore) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgStore) CreateTimeSlot(ctx context.Context, slot TimeSlot) (*TimeSlot, error) {
	id := uuid.New()

	var day *string
	if slot.DayOfWeek != nil {
		d := string(*slot.DayOfWeek)
		day = &d
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO time_slots (id, staff_id, day_of_week, date, start_time, end_time, is_recurring, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+timeSlotColumns+`
	`, id, slot.StaffID, day, slot.Date, slot.StartTime, slot.EndTime, slot.IsRecurring, slot.IsAvailable)

	return scanTimeSlot(row)
}

func (r *PgStore) GetTimeSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+timeSlotColumns+`
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanTimeSlot(row)
}

func (r *PgStore) UpdateTimeSlot(ctx context.Context, slot TimeSlot) (*TimeSlot, error) {
	var day *string
	if slot.DayOfWeek != nil {
		d := string(*slot.DayOfWeek)
		day = &d
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE time_slots
		SET day_of_week = $2,
		    date = $3,
		    start_time = $4,
		    end_time = $5,
		    is_recurring = $6,
		    is_available = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+timeSlotColumns+`
	`, slot.ID, day, slot.Date, slot.StartTime, slot.EndTime, slot.IsRecurring, slot.IsAvailable)

	return scanTimeSlot(row)
}

func (r *PgStore) DeleteTimeSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTimeSlotNotFound
	}
	return nil
}

func (r *PgStore) ListTimeSlotsByStaff(ctx context.Context, staffID uuid.UUID) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+timeSlotColumns+`
		FROM time_slots
		WHERE staff_id = $1
		ORDER BY is_recurring DESC, day_of_week, date, start_time
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimeSlots(rows)
}

func (r *PgStore) TimeSlotsForDate(ctx context.Context, staffID uuid.UUID, day Weekday, date time.Time) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+timeSlotColumns+`
		FROM time_slots
		WHERE staff_id = $1
		  AND (day_of_week = $2 OR date = $3)
		ORDER BY start_time
	`, staffID, string(day), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimeSlots(rows)
}

func collectTimeSlots(rows pgx.Rows) ([]TimeSlot, error) {
	var result []TimeSlot
	for rows.Next() {
		ts, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ts)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgStore) ListBlockingAppointments(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
		  AND appointment_date >= $2
		  AND appointment_date < $3
		  AND status NOT IN ('cancelled', 'no_show', 'rescheduled')
		ORDER BY appointment_date
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateAppointmentIfFree runs the conflict re-check and the insert inside one
// transaction. The Redis schedule lock serializes racing bookings for the same
// staff-day; the transaction guarantees the check and the insert land
// atomically even if the lock expires mid-flight.
func (r *PgStore) CreateAppointmentIfFree(ctx context.Context, appt Appointment, duration time.Duration) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Two fixed-length windows overlap iff their starts are closer than one
	// duration apart.
	lower := appt.AppointmentDate.Add(-duration)
	upper := appt.AppointmentDate.Add(duration)

	var conflictID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id
		FROM appointments
		WHERE staff_id = $1
		  AND appointment_date > $2
		  AND appointment_date < $3
		  AND status NOT IN ('cancelled', 'no_show', 'rescheduled')
		LIMIT 1
		FOR UPDATE
	`, appt.StaffID, lower, upper).Scan(&conflictID)
	if err == nil {
		return nil, ErrSlotNotAvailable
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check conflicting appointment: %w", err)
	}

	id := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, staff_id, patient_id, appointment_date, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.StaffID, appt.PatientID, appt.AppointmentDate, appt.Reason)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return created, nil
}

func (r *PgStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgStore) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	staff, err := r.GetStaffByID(ctx, appt.StaffID)
	if err != nil && !errors.Is(err, ErrStaffNotFound) {
		return nil, err
	}
	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}

	return &AppointmentDetail{
		Appointment: *appt,
		Staff:       staff,
		Patient:     patient,
	}, nil
}

func (r *PgStore) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.staff_id, a.patient_id, a.appointment_date, a.status, a.reason, a.reminder_sent_at, a.created_at, a.updated_at,
		       s.id, s.name, s.specialty, s.is_available, s.created_at, s.updated_at
		FROM appointments a
		JOIN staff s ON s.id = a.staff_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		var staff Staff
		err := rows.Scan(
			&d.ID, &d.StaffID, &d.PatientID, &d.AppointmentDate, &d.Status, &d.Reason, &d.ReminderSentAt, &d.CreatedAt, &d.UpdatedAt,
			&staff.ID, &staff.Name, &staff.Specialty, &staff.IsAvailable, &staff.CreatedAt, &staff.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		d.Staff = &staff
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgStore) ListAppointmentsByStaffDay(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.staff_id, a.patient_id, a.appointment_date, a.status, a.reason, a.reminder_sent_at, a.created_at, a.updated_at,
		       p.id, p.name, p.email, p.created_at, p.updated_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.staff_id = $1
		  AND a.appointment_date >= $2
		  AND a.appointment_date < $3
		ORDER BY a.appointment_date
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		var patient Patient
		err := rows.Scan(
			&d.ID, &d.StaffID, &d.PatientID, &d.AppointmentDate, &d.Status, &d.Reason, &d.ReminderSentAt, &d.CreatedAt, &d.UpdatedAt,
			&patient.ID, &patient.Name, &patient.Email, &patient.CreatedAt, &patient.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		d.Patient = &patient
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgStore) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgStore) FindDueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.staff_id, a.patient_id, a.appointment_date, a.status, a.reason, a.reminder_sent_at, a.created_at, a.updated_at,
		       p.id, p.name, p.email, p.created_at, p.updated_at,
		       s.id, s.name, s.specialty, s.is_available, s.created_at, s.updated_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN staff s ON s.id = a.staff_id
		WHERE a.status IN ('approved', 'confirmed')
		  AND a.reminder_sent_at IS NULL
		  AND a.appointment_date > $1
		  AND a.appointment_date <= $2
		ORDER BY a.appointment_date
	`, now, now.Add(horizon))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		var patient Patient
		var staff Staff
		err := rows.Scan(
			&d.ID, &d.StaffID, &d.PatientID, &d.AppointmentDate, &d.Status, &d.Reason, &d.ReminderSentAt, &d.CreatedAt, &d.UpdatedAt,
			&patient.ID, &patient.Name, &patient.Email, &patient.CreatedAt, &patient.UpdatedAt,
			&staff.ID, &staff.Name, &staff.Specialty, &staff.IsAvailable, &staff.CreatedAt, &staff.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		d.Patient = &patient
		d.Staff = &staff
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgStore) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent_at = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
