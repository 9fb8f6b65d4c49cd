package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayPtr(d Weekday) *Weekday { return &d }

func TestCreateTimeSlotValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)

	ctx := context.Background()

	tests := []struct {
		name string
		slot TimeSlot
	}{
		{"neither day nor date", TimeSlot{StartTime: "09:00", EndTime: "12:00", IsAvailable: true}},
		{"both day and date", TimeSlot{DayOfWeek: weekdayPtr(Monday), Date: &monday, StartTime: "09:00", EndTime: "12:00", IsAvailable: true}},
		{"unknown weekday", TimeSlot{DayOfWeek: weekdayPtr(Weekday("Funday")), StartTime: "09:00", EndTime: "12:00", IsAvailable: true}},
		{"bad clock", TimeSlot{DayOfWeek: weekdayPtr(Monday), StartTime: "9am", EndTime: "12:00", IsAvailable: true}},
		{"recurring blocking slot", TimeSlot{DayOfWeek: weekdayPtr(Monday), StartTime: "09:00", EndTime: "12:00", IsAvailable: false}},
		{"start not before end", TimeSlot{DayOfWeek: weekdayPtr(Monday), StartTime: "12:00", EndTime: "09:00", IsAvailable: true}},
		{"zero length", TimeSlot{DayOfWeek: weekdayPtr(Monday), StartTime: "09:00", EndTime: "09:00", IsAvailable: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTimeSlot(ctx, staffID, tc.slot)
			assert.ErrorIs(t, err, ErrInvalidTimeSlot)
		})
	}
}

func TestCreateTimeSlotNormalizesDate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)

	noon := monday.Add(12 * time.Hour)
	created, err := svc.CreateTimeSlot(context.Background(), staffID, TimeSlot{
		Date:        &noon,
		StartTime:   "09:00",
		EndTime:     "12:00",
		IsAvailable: true,
	})
	require.NoError(t, err)
	require.NotNil(t, created.Date)
	assert.True(t, created.Date.Equal(monday), "date should be normalized to midnight")
	assert.False(t, created.IsRecurring)
}

func TestUpdateTimeSlotOwnership(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	owner := store.addStaff(true)
	intruder := store.addStaff(true)
	slotID := store.addRecurringSlot(owner, Monday, "09:00", "12:00")

	ctx := context.Background()

	edit := TimeSlot{
		ID:          slotID,
		DayOfWeek:   weekdayPtr(Tuesday),
		StartTime:   "10:00",
		EndTime:     "13:00",
		IsAvailable: true,
	}

	_, err := svc.UpdateTimeSlot(ctx, intruder, edit)
	assert.ErrorIs(t, err, ErrNotSlotOwner)

	updated, err := svc.UpdateTimeSlot(ctx, owner, edit)
	require.NoError(t, err)
	require.NotNil(t, updated.DayOfWeek)
	assert.Equal(t, Tuesday, *updated.DayOfWeek)
	assert.Equal(t, "10:00", updated.StartTime)
}

func TestDeleteTimeSlotOwnership(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	owner := store.addStaff(true)
	intruder := store.addStaff(true)
	slotID := store.addRecurringSlot(owner, Monday, "09:00", "12:00")

	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteTimeSlot(ctx, intruder, slotID), ErrNotSlotOwner)
	require.NoError(t, svc.DeleteTimeSlot(ctx, owner, slotID))
	assert.ErrorIs(t, svc.DeleteTimeSlot(ctx, owner, slotID), ErrTimeSlotNotFound)
}

func TestDeleteTimeSlotLeavesAppointments(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	patientID := store.addPatient("")
	slotID := store.addRecurringSlot(staffID, Tuesday, "13:00", "15:00")

	ctx := context.Background()

	appt, err := svc.Book(ctx, BookingRequest{
		StaffID:   staffID,
		PatientID: patientID,
		Start:     tuesday.Add(13 * time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTimeSlot(ctx, staffID, slotID))

	// The appointment survives; only future availability disappears.
	got, err := store.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	windows, err := svc.Resolve(ctx, staffID, tuesday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestSetStaffAvailabilitySelfOnly(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	other := store.addStaff(true)

	ctx := context.Background()

	_, err := svc.SetStaffAvailability(ctx, other, staffID, false)
	assert.ErrorIs(t, err, ErrNotPermitted)

	staff, err := svc.SetStaffAvailability(ctx, staffID, staffID, false)
	require.NoError(t, err)
	assert.False(t, staff.IsAvailable)
}

func TestListAppointmentsByPatientClampsLimit(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	patientID := store.addPatient("")
	store.addRecurringSlot(staffID, Tuesday, "09:00", "17:00")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Book(ctx, BookingRequest{
			StaffID:   staffID,
			PatientID: patientID,
			Start:     tuesday.Add(time.Duration(9+i) * time.Hour),
		})
		require.NoError(t, err)
	}

	got, err := svc.ListAppointmentsByPatient(ctx, patientID, -5, -1)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.ListAppointmentsByPatient(ctx, patientID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
