package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

type CreateAppointmentRequest struct {
	PatientID   string  `json:"patient_id"`
	DoctorID    string  `json:"doctor_id"`
	ProcedureID string  `json:"procedure_id"`
	RoomID      string  `json:"room_id"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Insurance   *string `json:"insurance,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	ProcedureID uuid.UUID `json:"procedure_id"`
	RoomID      uuid.UUID `json:"room_id"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      string    `json:"status"`
	Insurance   *string   `json:"insurance,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DoctorID:    a.DoctorID,
		ProcedureID: a.ProcedureID,
		RoomID:      a.RoomID,
		Date:        a.Date,
		Time:        a.Time,
		Status:      a.Status,
		Insurance:   a.Insurance,
		Notes:       a.Notes,
		UpdatedAt:   a.UpdatedAt,
	}
}

type CreateRescheduleRequest struct {
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id"`
	NewDate       string `json:"new_date"`
	NewTime       string `json:"new_time"`
	Reason        string `json:"reason"`
}

type DenyRescheduleRequest struct {
	DenialReason  *string `json:"denial_reason,omitempty"`
	SuggestedDate *string `json:"suggested_date,omitempty"`
	SuggestedTime *string `json:"suggested_time,omitempty"`
}

type RescheduleResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	NewDate       string    `json:"new_date"`
	NewTime       string    `json:"new_time"`
	Reason        string    `json:"reason,omitempty"`
	Status        string    `json:"status"`
	DenialReason  *string   `json:"denial_reason,omitempty"`
	SuggestedDate *string   `json:"suggested_date,omitempty"`
	SuggestedTime *string   `json:"suggested_time,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toRescheduleResponse(r *scheduling.RescheduleRequest) RescheduleResponse {
	return RescheduleResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		NewDate:       r.NewDate,
		NewTime:       r.NewTime,
		Reason:        r.Reason,
		Status:        string(r.Status),
		DenialReason:  r.DenialReason,
		SuggestedDate: r.SuggestedDate,
		SuggestedTime: r.SuggestedTime,
		CreatedAt:     r.CreatedAt,
	}
}

type SlotsResponse struct {
	Day   string   `json:"day"`
	Slots []string `json:"slots"`
}

type SlotCheckResponse struct {
	Day       string `json:"day"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type SuggestionResponse struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type AutoCloseRequest struct {
	Reference *time.Time `json:"reference,omitempty"`
}

type AutoCloseResponse struct {
	Closed int64 `json:"closed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
