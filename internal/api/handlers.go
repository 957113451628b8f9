package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
	"github.com/clinicdesk/clinic-scheduling/internal/scheduling"
)

func availableSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := queryUUID(w, r, "doctor_id", true)
		if !ok {
			return
		}
		roomID, ok := queryUUID(w, r, "room_id", true)
		if !ok {
			return
		}

		day := r.URL.Query().Get("day")
		if day == "" {
			writeError(w, http.StatusBadRequest, "missing_day", "day is required (YYYY-MM-DD)")
			return
		}

		step, ok := queryStep(w, r)
		if !ok {
			return
		}

		exclude, ok := queryUUID(w, r, "exclude", false)
		if !ok {
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), *doctorID, *roomID, day, step, exclude)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Day: day, Slots: slots})
	}
}

func busySlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := r.URL.Query().Get("day")
		if day == "" {
			writeError(w, http.StatusBadRequest, "missing_day", "day is required (YYYY-MM-DD)")
			return
		}

		doctorID, ok := queryUUID(w, r, "doctor_id", false)
		if !ok {
			return
		}
		roomID, ok := queryUUID(w, r, "room_id", false)
		if !ok {
			return
		}
		exclude, ok := queryUUID(w, r, "exclude", false)
		if !ok {
			return
		}

		slots, err := svc.BusySlots(r.Context(), day, doctorID, roomID, exclude)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Day: day, Slots: slots})
	}
}

func checkSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := r.URL.Query().Get("day")
		timeOfDay := r.URL.Query().Get("time")
		if day == "" || timeOfDay == "" {
			writeError(w, http.StatusBadRequest, "missing_slot", "day and time are required")
			return
		}

		doctorID, ok := queryUUID(w, r, "doctor_id", false)
		if !ok {
			return
		}
		roomID, ok := queryUUID(w, r, "room_id", false)
		if !ok {
			return
		}
		exclude, ok := queryUUID(w, r, "exclude", false)
		if !ok {
			return
		}

		free, err := svc.IsSlotAvailable(r.Context(), day, timeOfDay, doctorID, roomID, exclude)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotCheckResponse{Day: day, Time: timeOfDay, Available: free})
	}
}

func suggestNextSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := queryUUID(w, r, "doctor_id", true)
		if !ok {
			return
		}
		roomID, ok := queryUUID(w, r, "room_id", true)
		if !ok {
			return
		}

		day := r.URL.Query().Get("day")
		timeOfDay := r.URL.Query().Get("time")
		if day == "" || timeOfDay == "" {
			writeError(w, http.StatusBadRequest, "missing_start", "day and time are required")
			return
		}

		step, ok := queryStep(w, r)
		if !ok {
			return
		}

		sugDay, sugTime, err := svc.SuggestNextSlot(r.Context(), day, timeOfDay, *doctorID, *roomID, step)
		if err != nil {
			if errors.Is(err, scheduling.ErrNoSlotAvailable) {
				writeError(w, http.StatusNotFound, "no_slot_available", err.Error())
				return
			}
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SuggestionResponse{Day: sugDay, Time: sugTime})
	}
}

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		procedureID, err := uuid.Parse(req.ProcedureID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_procedure_id", "procedure_id must be a valid UUID")
			return
		}
		roomID, err := uuid.Parse(req.RoomID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_room_id", "room_id must be a valid UUID")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), scheduling.BookingParams{
			PatientID:   patientID,
			DoctorID:    doctorID,
			ProcedureID: procedureID,
			RoomID:      roomID,
			Date:        req.Date,
			Time:        req.Time,
			Insurance:   req.Insurance,
			Notes:       req.Notes,
		})
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listPatientAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		appts, err := svc.ListPatientAppointments(r.Context(), patientID)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createRescheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		created, err := svc.CreateRescheduleRequest(r.Context(), patientID, appointmentID, req.NewDate, req.NewTime, req.Reason)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRescheduleResponse(created))
	}
}

func listPendingReschedulesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqs, err := svc.ListPendingRescheduleRequests(r.Context())
		if err != nil {
			handleEngineError(w, err)
			return
		}

		resp := make([]RescheduleResponse, 0, len(reqs))
		for i := range reqs {
			resp = append(resp, toRescheduleResponse(&reqs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func acceptRescheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a valid UUID")
			return
		}

		req, err := svc.AcceptRescheduleRequest(r.Context(), id)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRescheduleResponse(req))
	}
}

func denyRescheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a valid UUID")
			return
		}

		var body DenyRescheduleRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		if err := svc.DenyRescheduleRequest(r.Context(), id, body.DenialReason, body.SuggestedDate, body.SuggestedTime); err != nil {
			handleEngineError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func autoCloseHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body AutoCloseRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		ref := time.Time{}
		if body.Reference != nil {
			ref = *body.Reference
		}

		closed, err := svc.AutoClosePastAppointments(r.Context(), ref)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AutoCloseResponse{Closed: closed})
	}
}

// handleEngineError maps domain failures onto HTTP statuses; anything not
// recognized is an infrastructure fault.
func handleEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrMissingFields),
		errors.Is(err, scheduling.ErrInvalidDateTime):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room_not_found", err.Error())
	case errors.Is(err, scheduling.ErrProcedureNotFound):
		writeError(w, http.StatusNotFound, "procedure_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrRequestNotFound),
		errors.Is(err, scheduling.ErrRequestNotOpen):
		writeError(w, http.StatusNotFound, "reschedule_request_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, scheduling.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func queryUUID(w http.ResponseWriter, r *http.Request, name string, required bool) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			writeError(w, http.StatusBadRequest, "missing_"+name, name+" is required")
			return nil, false
		}
		return nil, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return nil, false
	}
	return &id, true
}

func queryStep(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("step")
	if raw == "" {
		return 0, true
	}

	step, err := strconv.Atoi(raw)
	if err != nil || step <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_step", "step must be a positive number of minutes")
		return 0, false
	}
	return step, true
}
