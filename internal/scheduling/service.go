package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-scheduling/internal/config"
	redisclient "github.com/clinicdesk/clinic-scheduling/internal/redis"
)

const maxRescheduleReasonLen = 240

var (
	ErrSlotTaken       = errors.New("slot is already taken")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
	ErrMissingFields   = errors.New("required fields are missing")
	ErrInvalidDateTime = errors.New("invalid date or time")
	ErrRequestNotOpen  = errors.New("reschedule request is not pending")
)

type Service struct {
	*Availability

	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	log    *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, log *zap.Logger) *Service {
	return &Service{
		Availability: NewAvailability(repo, cfg),
		repo:         repo,
		locker:       locker,
		cfg:          cfg,
		log:          log,
	}
}

type BookingParams struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ProcedureID uuid.UUID
	RoomID      uuid.UUID
	Date        string
	Time        string
	Insurance   *string
	Notes       *string
}

// CreateAppointment books a visit. The availability re-check and the insert
// run inside a lock over the doctor's and the room's slot keys so two
// concurrent bookers cannot both pass the check; the partial unique indexes
// on occupying rows are the backstop if the lock is ever bypassed.
func (s *Service) CreateAppointment(ctx context.Context, p BookingParams) (*Appointment, error) {
	if p.Date == "" || p.Time == "" {
		return nil, ErrMissingFields
	}
	if _, err := ParseDayTime(p.Date, p.Time); err != nil {
		return nil, ErrInvalidDateTime
	}

	if _, err := s.repo.GetPatientByID(ctx, p.PatientID); err != nil {
		return nil, wrapLoad("patient", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, p.DoctorID); err != nil {
		return nil, wrapLoad("doctor", err)
	}
	if _, err := s.repo.GetRoomByID(ctx, p.RoomID); err != nil {
		return nil, wrapLoad("room", err)
	}
	if _, err := s.repo.GetProcedureByID(ctx, p.ProcedureID); err != nil {
		return nil, wrapLoad("procedure", err)
	}

	keys := []string{
		redisclient.DoctorSlotKey(p.DoctorID, p.Date, p.Time),
		redisclient.RoomSlotKey(p.RoomID, p.Date, p.Time),
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, keys, func(lockCtx context.Context) error {
		free, err := s.IsSlotAvailable(lockCtx, p.Date, p.Time, &p.DoctorID, &p.RoomID, nil)
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if !free {
			return ErrSlotTaken
		}

		appt := &Appointment{
			PatientID:   p.PatientID,
			DoctorID:    p.DoctorID,
			ProcedureID: p.ProcedureID,
			RoomID:      p.RoomID,
			Date:        p.Date,
			Time:        p.Time,
			Status:      StatusScheduled,
			Insurance:   p.Insurance,
			Notes:       p.Notes,
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return err
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", p.DoctorID.String()),
		zap.String("room_id", p.RoomID.String()),
		zap.String("date", p.Date),
		zap.String("time", p.Time),
	)

	return created, nil
}

// GetAppointment retrieves one appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListPatientAppointments returns a patient's appointments in schedule order.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListAppointmentsByPatient(ctx, patientID)
}

// AutoClosePastAppointments transitions every still-active appointment whose
// (date, time) lies strictly before ref to completed, stamping updated_at
// with ref. Rows with unparseable date/time are skipped. The transition is a
// single batched update, and re-running with the same or a later ref is a
// no-op for already-completed rows.
func (s *Service) AutoClosePastAppointments(ctx context.Context, ref time.Time) (int64, error) {
	if ref.IsZero() {
		ref = time.Now()
	}

	rows, err := s.repo.ListSchedule(ctx)
	if err != nil {
		return 0, fmt.Errorf("list schedule: %w", err)
	}

	var toClose []uuid.UUID
	for _, row := range rows {
		at, err := ParseDayTime(row.Date, row.Time)
		if err != nil {
			continue
		}
		if at.Before(ref) && IsActive(row.Status) {
			toClose = append(toClose, row.ID)
		}
	}

	if len(toClose) == 0 {
		return 0, nil
	}

	closed, err := s.repo.CompleteAppointments(ctx, toClose, ref)
	if err != nil {
		return 0, err
	}

	s.log.Info("auto-closed past appointments", zap.Int64("count", closed))
	return closed, nil
}

// CreateRescheduleRequest files a patient's request to move their own
// appointment. When the target differs from the appointment's current slot,
// the new time must currently be free for the appointment's doctor and room;
// re-requesting the identical slot needs no check since the appointment
// itself is what occupies it.
func (s *Service) CreateRescheduleRequest(ctx context.Context, patientID, appointmentID uuid.UUID, newDate, newTime, reason string) (*RescheduleRequest, error) {
	appt, err := s.repo.GetPatientAppointment(ctx, appointmentID, patientID)
	if err != nil {
		return nil, wrapLoad("appointment", err)
	}

	if newDate == "" || newTime == "" {
		return nil, ErrMissingFields
	}
	if _, err := ParseDayTime(newDate, newTime); err != nil {
		return nil, ErrInvalidDateTime
	}

	if !(newDate == appt.Date && newTime == appt.Time) {
		free, err := s.AvailableSlots(ctx, appt.DoctorID, appt.RoomID, newDate, 0, nil)
		if err != nil {
			return nil, err
		}
		if !contains(free, newTime) {
			return nil, ErrSlotTaken
		}
	}

	if len(reason) > maxRescheduleReasonLen {
		reason = reason[:maxRescheduleReasonLen]
	}

	req := &RescheduleRequest{
		AppointmentID: appointmentID,
		NewDate:       newDate,
		NewTime:       newTime,
		Reason:        reason,
		Status:        RequestPending,
	}
	if err := s.repo.CreateRescheduleRequest(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("reschedule request filed",
		zap.String("request_id", req.ID.String()),
		zap.String("appointment_id", appointmentID.String()),
		zap.String("new_date", newDate),
		zap.String("new_time", newTime),
	)

	return req, nil
}

// ListPendingRescheduleRequests returns unresolved requests, oldest first.
func (s *Service) ListPendingRescheduleRequests(ctx context.Context) ([]RescheduleRequest, error) {
	return s.repo.ListPendingRescheduleRequests(ctx)
}

// DenyRescheduleRequest resolves a pending request as denied. No checks
// beyond the request still being pending; an optional denial reason and a
// suggested alternative slot are recorded with it.
func (s *Service) DenyRescheduleRequest(ctx context.Context, id uuid.UUID, denialReason, suggestedDate, suggestedTime *string) error {
	if err := s.repo.DenyRescheduleRequest(ctx, id, denialReason, suggestedDate, suggestedTime, time.Now()); err != nil {
		return err
	}

	s.log.Info("reschedule request denied", zap.String("request_id", id.String()))
	return nil
}

// AcceptRescheduleRequest applies a pending request. The requested slot is
// re-validated at decision time under the booking lock: it may have been
// taken since the request was filed. On conflict the request stays pending
// so the receptionist can decide again later; on success the appointment
// move and the request resolution commit together.
func (s *Service) AcceptRescheduleRequest(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	req, err := s.repo.GetRescheduleRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrRequestNotOpen
	}

	appt, err := s.repo.GetAppointmentByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, wrapLoad("appointment", err)
	}

	keys := []string{
		redisclient.DoctorSlotKey(appt.DoctorID, req.NewDate, req.NewTime),
		redisclient.RoomSlotKey(appt.RoomID, req.NewDate, req.NewTime),
	}

	now := time.Now()

	err = s.locker.WithBookingLock(ctx, keys, func(lockCtx context.Context) error {
		free, err := s.AvailableSlots(lockCtx, appt.DoctorID, appt.RoomID, req.NewDate, 0, nil)
		if err != nil {
			return err
		}
		if !contains(free, req.NewTime) {
			return ErrSlotTaken
		}

		return s.repo.AcceptRescheduleRequest(lockCtx, req.ID, appt.ID, req.NewDate, req.NewTime, now)
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	req.Status = RequestAccepted
	req.UpdatedAt = now

	s.log.Info("reschedule request accepted",
		zap.String("request_id", req.ID.String()),
		zap.String("appointment_id", appt.ID.String()),
		zap.String("new_date", req.NewDate),
		zap.String("new_time", req.NewTime),
	)

	return req, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func wrapLoad(what string, err error) error {
	switch {
	case errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrProcedureNotFound),
		errors.Is(err, ErrAppointmentNotFound):
		return err
	default:
		return fmt.Errorf("load %s: %w", what, err)
	}
}
