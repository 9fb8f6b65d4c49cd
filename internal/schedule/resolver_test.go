package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Calendar anchors relative to testNow (Monday 2 March 2026).
var (
	monday  = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
)

func TestResolveNoConfiguration(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestResolveUnknownStaff(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	windows, err := svc.Resolve(context.Background(), uuid.New(), monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestResolvePastDate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addRecurringSlot(staffID, Sunday, "09:00", "12:00")

	lastSunday := monday.AddDate(0, 0, -1)
	windows, err := svc.Resolve(context.Background(), staffID, lastSunday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestResolveRecurringSlot(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addRecurringSlot(staffID, Monday, "09:00", "12:00")

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00-12:00", windows[0].String())
	assert.False(t, windows[0].FromOverride)

	// A recurring slot for another weekday contributes nothing.
	windows, err = svc.Resolve(context.Background(), staffID, tuesday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addRecurringSlot(staffID, Monday, "09:00", "12:00")
	store.addRecurringSlot(staffID, Monday, "13:00", "17:00")

	first, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveSubtractsActiveAppointment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	patientID := store.addPatient("")
	store.addRecurringSlot(staffID, Monday, "09:00", "12:00")

	_, err := store.CreateAppointmentIfFree(context.Background(), Appointment{
		StaffID:         staffID,
		PatientID:       patientID,
		AppointmentDate: monday.Add(10 * time.Hour), // 10:00
	}, 30*time.Minute)
	require.NoError(t, err)

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "09:00-10:00", windows[0].String())
	assert.Equal(t, "10:30-12:00", windows[1].String())
}

func TestResolveIgnoresCancelledAndNoShow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	patientID := store.addPatient("")
	store.addRecurringSlot(staffID, Monday, "09:00", "12:00")

	for _, status := range []AppointmentStatus{StatusCancelled, StatusNoShow} {
		id := uuid.New()
		store.appts[id] = &Appointment{
			ID:              id,
			StaffID:         staffID,
			PatientID:       patientID,
			AppointmentDate: monday.Add(10 * time.Hour),
			Status:          status,
		}
	}

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00-12:00", windows[0].String())
}

func TestResolveBlockingOverridePrecedence(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addRecurringSlot(staffID, Monday, "09:00", "17:00")
	store.addDateSlot(staffID, monday, "09:00", "12:00", false)

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "12:00-17:00", windows[0].String())

	// The next Monday is unaffected by the one-off block.
	nextMonday := monday.AddDate(0, 0, 7)
	windows, err = svc.Resolve(context.Background(), staffID, nextMonday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00-17:00", windows[0].String())
}

func TestResolveOneOffAdditionCarriesOverrideFlag(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addDateSlot(staffID, tuesday, "14:00", "16:00", true)

	windows, err := svc.Resolve(context.Background(), staffID, tuesday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "14:00-16:00", windows[0].String())
	assert.True(t, windows[0].FromOverride)
}

func TestResolveMergesAdjacentSlots(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addRecurringSlot(staffID, Monday, "09:00", "12:00")
	store.addRecurringSlot(staffID, Monday, "12:00", "15:00")
	store.addRecurringSlot(staffID, Monday, "10:00", "13:00") // fully overlapped

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00-15:00", windows[0].String())
}

func TestResolveDropsFragmentsBelowMinimum(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	staffID := store.addStaff(true)
	store.addRecurringSlot(staffID, Monday, "09:00", "12:00")
	// Block all but the first 20 minutes; the remainder is too short to book.
	store.addDateSlot(staffID, monday, "09:20", "12:00", false)

	windows, err := svc.Resolve(context.Background(), staffID, monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}
