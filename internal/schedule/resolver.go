package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolver computes the bookable windows for a staff member on a given
// calendar date. Resolution is a pure function of store state at call time;
// staleness under concurrent edits is acceptable because the booking guard
// re-checks at commit.
type Resolver struct {
	repo        Repository
	loc         *time.Location
	apptMinutes int
	minMinutes  int

	// Now is the clock source, overridable in tests.
	Now func() time.Time
}

func NewResolver(repo Repository, loc *time.Location, apptDuration, minBookable time.Duration) *Resolver {
	return &Resolver{
		repo:        repo,
		loc:         loc,
		apptMinutes: int(apptDuration / time.Minute),
		minMinutes:  int(minBookable / time.Minute),
		Now:         time.Now,
	}
}

// midnight truncates t to the start of its calendar day in the clinic
// timezone.
func (r *Resolver) midnight(t time.Time) time.Time {
	local := t.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
}

// minuteOfDay converts an instant to minutes past clinic-local midnight.
func (r *Resolver) minuteOfDay(t time.Time) int {
	local := t.In(r.loc)
	return local.Hour()*60 + local.Minute()
}

// Resolve returns the ordered, disjoint bookable windows for the staff member
// on the given date. Unknown staff, unconfigured dates, and past dates all
// yield an empty list, never an error.
func (r *Resolver) Resolve(ctx context.Context, staffID uuid.UUID, date time.Time) ([]Window, error) {
	day := r.midnight(date)
	today := r.midnight(r.Now())
	if day.Before(today) {
		return nil, nil
	}

	slots, err := r.repo.TimeSlotsForDate(ctx, staffID, WeekdayOf(day), day)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}

	var additions []Window
	var blocks []Window
	for _, slot := range slots {
		start, err := ParseClock(slot.StartTime)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
		end, err := ParseClock(slot.EndTime)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}

		w := Window{Start: start, End: end, FromOverride: !slot.IsRecurring}
		if slot.IsAvailable {
			additions = append(additions, w)
		} else {
			// Blocking overrides are always one-off; they carve time out of
			// whatever the additions produced for this date.
			blocks = append(blocks, w)
		}
	}

	windows := mergeWindows(additions)
	for _, b := range blocks {
		windows = subtractWindow(windows, b.Start, b.End)
	}

	appts, err := r.repo.ListBlockingAppointments(ctx, staffID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	for _, appt := range appts {
		busy := r.minuteOfDay(appt.AppointmentDate)
		windows = subtractWindow(windows, busy, busy+r.apptMinutes)
	}

	return dropShortWindows(windows, r.minMinutes), nil
}
