package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrProcedureNotFound   = errors.New("procedure not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrRequestNotFound     = errors.New("reschedule request not found")
)

// OccupancyQuery scopes the busy-slot lookup for one day. When both DoctorID
// and RoomID are set the match is doctor OR room: either resource being taken
// blocks the slot.
type OccupancyQuery struct {
	Day                  string
	DoctorID             *uuid.UUID
	RoomID               *uuid.UUID
	ExcludeAppointmentID *uuid.UUID
}

// TimeStatus is one appointment's slot time with its raw status, the only
// columns the availability index needs.
type TimeStatus struct {
	Time   string
	Status string
}

// ScheduleRow is the projection the auto-close sweep scans.
type ScheduleRow struct {
	ID     uuid.UUID
	Date   string
	Time   string
	Status string
}

// Repository contains all store interactions needed by the engine.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error)
	GetProcedureByID(ctx context.Context, id uuid.UUID) (*Procedure, error)

	// Availability index input: (time, status) pairs for one day, scoped by q.
	AppointmentTimes(ctx context.Context, q OccupancyQuery) ([]TimeStatus, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetPatientAppointment resolves an appointment only when it belongs to
	// the given patient.
	GetPatientAppointment(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	CreateAppointment(ctx context.Context, appt *Appointment) error

	// Auto-close sweep.
	ListSchedule(ctx context.Context) ([]ScheduleRow, error)
	CompleteAppointments(ctx context.Context, ids []uuid.UUID, ref time.Time) (int64, error)

	CreateRescheduleRequest(ctx context.Context, req *RescheduleRequest) error
	GetRescheduleRequest(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error)
	ListPendingRescheduleRequests(ctx context.Context) ([]RescheduleRequest, error)
	// DenyRescheduleRequest resolves a pending request; ErrRequestNotFound
	// when it does not exist or is no longer pending.
	DenyRescheduleRequest(ctx context.Context, id uuid.UUID, denialReason, suggestedDate, suggestedTime *string, ref time.Time) error
	// AcceptRescheduleRequest moves the appointment and resolves the request
	// in one transaction; ErrRequestNotFound when the request is no longer
	// pending, in which case the appointment is untouched.
	AcceptRescheduleRequest(ctx context.Context, requestID, appointmentID uuid.UUID, newDate, newTime string, ref time.Time) error
}
