package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
)

// fakeRepository is an in-memory Repository so engine and service behavior
// can be tested without Postgres.
type fakeRepository struct {
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	rooms        map[uuid.UUID]*Room
	procedures   map[uuid.UUID]*Procedure
	appointments map[uuid.UUID]*Appointment
	requests     map[uuid.UUID]*RescheduleRequest
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		rooms:        make(map[uuid.UUID]*Room),
		procedures:   make(map[uuid.UUID]*Procedure),
		appointments: make(map[uuid.UUID]*Appointment),
		requests:     make(map[uuid.UUID]*RescheduleRequest),
	}
}

func (f *fakeRepository) addPatient() uuid.UUID {
	id := uuid.New()
	f.patients[id] = &Patient{ID: id, Name: "patient"}
	return id
}

func (f *fakeRepository) addDoctor() uuid.UUID {
	id := uuid.New()
	f.doctors[id] = &Doctor{ID: id, Name: "doctor"}
	return id
}

func (f *fakeRepository) addRoom() uuid.UUID {
	id := uuid.New()
	f.rooms[id] = &Room{ID: id, Name: "room", Capacity: 1}
	return id
}

func (f *fakeRepository) addProcedure() uuid.UUID {
	id := uuid.New()
	f.procedures[id] = &Procedure{ID: id, Name: "procedure"}
	return id
}

func (f *fakeRepository) addAppointment(patientID, doctorID, procedureID, roomID uuid.UUID, day, timeOfDay, status string) uuid.UUID {
	id := uuid.New()
	f.appointments[id] = &Appointment{
		ID:          id,
		PatientID:   patientID,
		DoctorID:    doctorID,
		ProcedureID: procedureID,
		RoomID:      roomID,
		Date:        day,
		Time:        timeOfDay,
		Status:      status,
	}
	return id
}

func (f *fakeRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}

func (f *fakeRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, ErrDoctorNotFound
}

func (f *fakeRepository) GetRoomByID(_ context.Context, id uuid.UUID) (*Room, error) {
	if r, ok := f.rooms[id]; ok {
		return r, nil
	}
	return nil, ErrRoomNotFound
}

func (f *fakeRepository) GetProcedureByID(_ context.Context, id uuid.UUID) (*Procedure, error) {
	if p, ok := f.procedures[id]; ok {
		return p, nil
	}
	return nil, ErrProcedureNotFound
}

func (f *fakeRepository) AppointmentTimes(_ context.Context, q OccupancyQuery) ([]TimeStatus, error) {
	var result []TimeStatus
	for _, a := range f.appointments {
		if a.Date != q.Day {
			continue
		}
		switch {
		case q.DoctorID != nil && q.RoomID != nil:
			if a.DoctorID != *q.DoctorID && a.RoomID != *q.RoomID {
				continue
			}
		case q.DoctorID != nil:
			if a.DoctorID != *q.DoctorID {
				continue
			}
		case q.RoomID != nil:
			if a.RoomID != *q.RoomID {
				continue
			}
		}
		if q.ExcludeAppointmentID != nil && a.ID == *q.ExcludeAppointmentID {
			continue
		}
		result = append(result, TimeStatus{Time: a.Time, Status: a.Status})
	}
	return result, nil
}

func (f *fakeRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	if a, ok := f.appointments[id]; ok {
		return a, nil
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepository) GetPatientAppointment(_ context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	if a, ok := f.appointments[id]; ok && a.PatientID == patientID {
		return a, nil
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	var result []Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (f *fakeRepository) CreateAppointment(_ context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	stored := *appt
	f.appointments[appt.ID] = &stored
	return nil
}

func (f *fakeRepository) ListSchedule(_ context.Context) ([]ScheduleRow, error) {
	var result []ScheduleRow
	for _, a := range f.appointments {
		result = append(result, ScheduleRow{ID: a.ID, Date: a.Date, Time: a.Time, Status: a.Status})
	}
	return result, nil
}

func (f *fakeRepository) CompleteAppointments(_ context.Context, ids []uuid.UUID, ref time.Time) (int64, error) {
	var n int64
	for _, id := range ids {
		if a, ok := f.appointments[id]; ok {
			a.Status = StatusCompleted
			a.UpdatedAt = ref
			n++
		}
	}
	return n, nil
}

func (f *fakeRepository) CreateRescheduleRequest(_ context.Context, req *RescheduleRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	stored := *req
	f.requests[req.ID] = &stored
	return nil
}

func (f *fakeRepository) GetRescheduleRequest(_ context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	if r, ok := f.requests[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, ErrRequestNotFound
}

func (f *fakeRepository) ListPendingRescheduleRequests(_ context.Context) ([]RescheduleRequest, error) {
	var result []RescheduleRequest
	for _, r := range f.requests {
		if r.Status == RequestPending {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (f *fakeRepository) DenyRescheduleRequest(_ context.Context, id uuid.UUID, denialReason, suggestedDate, suggestedTime *string, ref time.Time) error {
	r, ok := f.requests[id]
	if !ok || r.Status != RequestPending {
		return ErrRequestNotFound
	}
	r.Status = RequestDenied
	r.DenialReason = denialReason
	r.SuggestedDate = suggestedDate
	r.SuggestedTime = suggestedTime
	r.UpdatedAt = ref
	return nil
}

func (f *fakeRepository) AcceptRescheduleRequest(_ context.Context, requestID, appointmentID uuid.UUID, newDate, newTime string, ref time.Time) error {
	r, ok := f.requests[requestID]
	if !ok || r.Status != RequestPending {
		return ErrRequestNotFound
	}
	a, ok := f.appointments[appointmentID]
	if !ok {
		return ErrAppointmentNotFound
	}
	r.Status = RequestAccepted
	r.UpdatedAt = ref
	a.Date = newDate
	a.Time = newTime
	a.UpdatedAt = ref
	return nil
}

// noopLocker runs the critical section without any locking.
type noopLocker struct{}

func (noopLocker) WithBookingLock(ctx context.Context, _ []string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testConfig() config.Config {
	return config.Config{
		DayStart:           "08:00",
		DayEnd:             "17:00",
		SlotStepMinutes:    30,
		SuggestHorizonDays: 14,
	}
}

func newTestService(repo *fakeRepository) *Service {
	return NewService(repo, noopLocker{}, testConfig(), zap.NewNop())
}
