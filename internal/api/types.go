package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carewell-health/clinic-scheduling/internal/chat"
)

type BookAppointmentRequest struct {
	StaffID   string `json:"staff_id" validate:"required,uuid4"`
	PatientID string `json:"patient_id" validate:"required,uuid4"`
	Start     string `json:"start" validate:"required"` // RFC 3339
	Reason    string `json:"reason" validate:"max=500"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	StaffID         uuid.UUID `json:"staff_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	StaffName   string `json:"staff_name,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type RescheduleRequest struct {
	Start string `json:"start" validate:"required"` // RFC 3339
}

type WindowResponse struct {
	Start        string `json:"start"` // HH:MM
	End          string `json:"end"`
	FromOverride bool   `json:"from_override"`
}

type AvailabilityResponse struct {
	StaffID uuid.UUID        `json:"staff_id"`
	Date    string           `json:"date"` // YYYY-MM-DD
	Windows []WindowResponse `json:"windows"`
}

type TimeSlotRequest struct {
	DayOfWeek   *string `json:"day_of_week,omitempty" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	Date        *string `json:"date,omitempty"` // YYYY-MM-DD
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	IsAvailable *bool   `json:"is_available,omitempty"` // defaults true
}

type TimeSlotResponse struct {
	ID          uuid.UUID `json:"id"`
	StaffID     uuid.UUID `json:"staff_id"`
	DayOfWeek   *string   `json:"day_of_week,omitempty"`
	Date        *string   `json:"date,omitempty"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	IsRecurring bool      `json:"is_recurring"`
	IsAvailable bool      `json:"is_available"`
}

type AvailabilityToggleRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type StaffResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Specialty   *string   `json:"specialty,omitempty"`
	IsAvailable bool      `json:"is_available"`
}

type ChatRequest struct {
	Messages []chat.Message `json:"messages" validate:"required,min=1,dive"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
