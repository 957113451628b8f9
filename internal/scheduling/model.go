package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment statuses are free-form text in the store; these are the
// values the application itself writes.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusConfirmed  = "confirmed"
	StatusPending    = "pending"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusDenied     = "denied"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDenied   RequestStatus = "denied"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Room struct {
	ID        uuid.UUID
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Procedure struct {
	ID          uuid.UUID
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Appointment is a booked visit: one patient with one doctor in one room
// at a (date, time). Date and time are kept in their wire forms
// (YYYY-MM-DD and HH:MM) end to end.
type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	ProcedureID   uuid.UUID
	RoomID        uuid.UUID
	Date          string
	Time          string
	Status        string
	Insurance     *string
	Notes         *string
	DenialReason  *string
	SuggestedDate *string
	SuggestedTime *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RescheduleRequest is a patient's proposal to move an appointment to a new
// (date, time). It is resolved exactly once: pending -> accepted | denied.
type RescheduleRequest struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	NewDate       string
	NewTime       string
	Reason        string
	Status        RequestStatus
	DenialReason  *string
	SuggestedDate *string
	SuggestedTime *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// nonOccupying is a denylist: only these statuses free a slot, every other
// status (unknown ones included) keeps it blocked.
var nonOccupying = map[string]struct{}{
	StatusCancelled: {},
	"canceled":      {},
	StatusDenied:    {},
	"declined":      {},
}

// Occupies reports whether an appointment with this status blocks its slot.
func Occupies(status string) bool {
	_, exempt := nonOccupying[strings.ToLower(strings.TrimSpace(status))]
	return !exempt
}

// activeStatuses are the states the auto-close sweep transitions to completed.
var activeStatuses = map[string]struct{}{
	StatusScheduled:  {},
	StatusInProgress: {},
	StatusConfirmed:  {},
	StatusPending:    {},
}

// IsActive reports whether the status still counts as an upcoming visit.
func IsActive(status string) bool {
	_, ok := activeStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// ParseDayTime combines the wire date and time forms into a time.Time.
func ParseDayTime(day, timeOfDay string) (time.Time, error) {
	return time.Parse(DateLayout+" "+TimeLayout, day+" "+timeOfDay)
}
