package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carewell-health/clinic-scheduling/internal/schedule"
)

func createTimeSlotHandler(svc *schedule.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}
		if !requireSelf(w, r, staffID) {
			return
		}

		var req TimeSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		slot, err := timeSlotFromRequest(req, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_slot", err.Error())
			return
		}

		created, err := svc.CreateTimeSlot(r.Context(), staffID, slot)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTimeSlotResponse(created))
	}
}

func updateTimeSlotHandler(svc *schedule.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slotID must be a valid UUID")
			return
		}
		if !requireSelf(w, r, staffID) {
			return
		}

		var req TimeSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		slot, err := timeSlotFromRequest(req, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_slot", err.Error())
			return
		}
		slot.ID = slotID

		updated, err := svc.UpdateTimeSlot(r.Context(), staffID, slot)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTimeSlotResponse(updated))
	}
}

func deleteTimeSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slotID must be a valid UUID")
			return
		}
		if !requireSelf(w, r, staffID) {
			return
		}

		if err := svc.DeleteTimeSlot(r.Context(), staffID, slotID); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listTimeSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}

		slots, err := svc.ListTimeSlots(r.Context(), staffID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]TimeSlotResponse, 0, len(slots))
		for i := range slots {
			out = append(out, toTimeSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// requireSelf rejects slot mutations by anyone other than the owning staff
// member. Admins do not get a bypass here; availability is self-managed.
func requireSelf(w http.ResponseWriter, r *http.Request, staffID uuid.UUID) bool {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "missing_actor", "X-User-ID header is required")
		return false
	}
	if actorID != staffID {
		writeError(w, http.StatusForbidden, "not_permitted", "time slots may only be managed by their owner")
		return false
	}
	return true
}

func timeSlotFromRequest(req TimeSlotRequest, loc *time.Location) (schedule.TimeSlot, error) {
	slot := schedule.TimeSlot{
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		slot.IsAvailable = *req.IsAvailable
	}
	if req.DayOfWeek != nil {
		day := schedule.Weekday(*req.DayOfWeek)
		slot.DayOfWeek = &day
	}
	if req.Date != nil {
		date, err := time.ParseInLocation("2006-01-02", *req.Date, loc)
		if err != nil {
			return schedule.TimeSlot{}, err
		}
		slot.Date = &date
	}
	return slot, nil
}

func toTimeSlotResponse(slot *schedule.TimeSlot) TimeSlotResponse {
	resp := TimeSlotResponse{
		ID:          slot.ID,
		StaffID:     slot.StaffID,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		IsRecurring: slot.IsRecurring,
		IsAvailable: slot.IsAvailable,
	}
	if slot.DayOfWeek != nil {
		d := string(*slot.DayOfWeek)
		resp.DayOfWeek = &d
	}
	if slot.Date != nil {
		d := slot.Date.Format("2006-01-02")
		resp.Date = &d
	}
	return resp
}
