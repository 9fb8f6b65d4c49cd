package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carewell-health/clinic-scheduling/internal/schedule"
)

var validate = validator.New()

func getAvailabilityHandler(svc *schedule.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		windows, err := svc.Resolve(r.Context(), staffID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := AvailabilityResponse{
			StaffID: staffID,
			Date:    date.Format("2006-01-02"),
			Windows: make([]WindowResponse, 0, len(windows)),
		}
		for _, win := range windows {
			resp.Windows = append(resp.Windows, WindowResponse{
				Start:        schedule.FormatClock(win.Start),
				End:          schedule.FormatClock(win.End),
				FromOverride: win.FromOverride,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		appt, err := svc.Book(r.Context(), schedule.BookingRequest{
			StaffID:   staffID,
			PatientID: patientID,
			Start:     start,
			Reason:    req.Reason,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func listPatientAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)

		details, err := svc.ListAppointmentsByPatient(r.Context(), patientID, limit, offset)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

func listStaffAppointmentsHandler(svc *schedule.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		details, err := svc.ListAppointmentsByStaffDay(r.Context(), staffID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

func transitionAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		actorID, ok := GetActorID(r.Context())
		if !ok {
			writeError(w, http.StatusForbidden, "missing_actor", "X-User-ID header is required")
			return
		}

		appt, err := svc.Transition(r.Context(), id, schedule.AppointmentStatus(req.Status), GetActorRole(r.Context()), actorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		actorID, ok := GetActorID(r.Context())
		if !ok {
			writeError(w, http.StatusForbidden, "missing_actor", "X-User-ID header is required")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, start, GetActorRole(r.Context()), actorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func toggleStaffAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}

		var req AvailabilityToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		actorID, ok := GetActorID(r.Context())
		if !ok {
			writeError(w, http.StatusForbidden, "missing_actor", "X-User-ID header is required")
			return
		}

		staff, err := svc.SetStaffAvailability(r.Context(), actorID, staffID, *req.IsAvailable)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, StaffResponse{
			ID:          staff.ID,
			Name:        staff.Name,
			Specialty:   staff.Specialty,
			IsAvailable: staff.IsAvailable,
		})
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrTimeSlotNotFound):
		writeError(w, http.StatusNotFound, "time_slot_not_found", err.Error())
	case errors.Is(err, schedule.ErrStaffUnavailable):
		writeError(w, http.StatusConflict, "staff_unavailable", "this staff member is not accepting appointments")
	case errors.Is(err, schedule.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_not_available", "this time is no longer available, please refresh availability")
	case errors.Is(err, schedule.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", "please choose a future time")
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, schedule.ErrNotPermitted), errors.Is(err, schedule.ErrNotSlotOwner):
		writeError(w, http.StatusForbidden, "not_permitted", err.Error())
	case errors.Is(err, schedule.ErrInvalidTimeSlot):
		writeError(w, http.StatusBadRequest, "invalid_time_slot", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toAppointmentResponse(appt *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              appt.ID,
		StaffID:         appt.StaffID,
		PatientID:       appt.PatientID,
		AppointmentDate: appt.AppointmentDate,
		Status:          string(appt.Status),
		Reason:          appt.Reason,
	}
}

func toDetailResponse(detail *schedule.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&detail.Appointment),
	}
	if detail.Staff != nil {
		resp.StaffName = detail.Staff.Name
	}
	if detail.Patient != nil {
		resp.PatientName = detail.Patient.Name
	}
	return resp
}

func toDetailResponses(details []schedule.AppointmentDetail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(details))
	for i := range details {
		out = append(out, toDetailResponse(&details[i]))
	}
	return out
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
