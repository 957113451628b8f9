package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room

	err := row.Scan(
		&rm.ID,
		&rm.Name,
		&rm.Capacity,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &rm, nil
}

func scanProcedure(row pgx.Row) (*Procedure, error) {
	var pr Procedure

	err := row.Scan(
		&pr.ID,
		&pr.Name,
		&pr.Description,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProcedureNotFound
		}
		return nil, err
	}

	return &pr, nil
}

const appointmentColumns = `id, patient_id, doctor_id, procedure_id, room_id, visit_date, visit_time,
		status, insurance, notes, denial_reason, suggested_date, suggested_time, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ProcedureID,
		&a.RoomID,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.Insurance,
		&a.Notes,
		&a.DenialReason,
		&a.SuggestedDate,
		&a.SuggestedTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const requestColumns = `id, appointment_id, new_date, new_time, reason, status,
		denial_reason, suggested_date, suggested_time, created_at, updated_at`

func scanRescheduleRequest(row pgx.Row) (*RescheduleRequest, error) {
	var rr RescheduleRequest

	err := row.Scan(
		&rr.ID,
		&rr.AppointmentID,
		&rr.NewDate,
		&rr.NewTime,
		&rr.Reason,
		&rr.Status,
		&rr.DenialReason,
		&rr.SuggestedDate,
		&rr.SuggestedTime,
		&rr.CreatedAt,
		&rr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return &rr, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, capacity, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`, id)
	return scanRoom(row)
}

func (r *PgRepository) GetProcedureByID(ctx context.Context, id uuid.UUID) (*Procedure, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM procedures
		WHERE id = $1
	`, id)
	return scanProcedure(row)
}

func (r *PgRepository) AppointmentTimes(ctx context.Context, q OccupancyQuery) ([]TimeStatus, error) {
	query := `SELECT visit_time, status FROM appointments WHERE visit_date = $1`
	args := []any{q.Day}

	switch {
	case q.DoctorID != nil && q.RoomID != nil:
		query += fmt.Sprintf(" AND (doctor_id = $%d OR room_id = $%d)", len(args)+1, len(args)+2)
		args = append(args, *q.DoctorID, *q.RoomID)
	case q.DoctorID != nil:
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args)+1)
		args = append(args, *q.DoctorID)
	case q.RoomID != nil:
		query += fmt.Sprintf(" AND room_id = $%d", len(args)+1)
		args = append(args, *q.RoomID)
	}

	if q.ExcludeAppointmentID != nil {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, *q.ExcludeAppointmentID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeStatus
	for rows.Next() {
		var ts TimeStatus
		if err := rows.Scan(&ts.Time, &ts.Status); err != nil {
			return nil, err
		}
		result = append(result, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetPatientAppointment(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND patient_id = $2
	`, id, patientID)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY visit_date, visit_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, doctor_id, procedure_id, room_id, visit_date, visit_time,
			 status, insurance, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.ProcedureID, appt.RoomID,
		appt.Date, appt.Time, appt.Status, appt.Insurance, appt.Notes)

	if err := row.Scan(&appt.CreatedAt, &appt.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			// Partial unique index on occupying rows: someone else won the slot.
			return ErrSlotTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	return nil
}

func (r *PgRepository) ListSchedule(ctx context.Context) ([]ScheduleRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, visit_date, visit_time, status
		FROM appointments
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleRow
	for rows.Next() {
		var sr ScheduleRow
		if err := rows.Scan(&sr.ID, &sr.Date, &sr.Time, &sr.Status); err != nil {
			return nil, err
		}
		result = append(result, sr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CompleteAppointments(ctx context.Context, ids []uuid.UUID, ref time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = $3
		WHERE id = ANY($1)
	`, ids, StatusCompleted, ref)
	if err != nil {
		return 0, fmt.Errorf("complete appointments: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PgRepository) CreateRescheduleRequest(ctx context.Context, req *RescheduleRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO reschedule_requests
			(id, appointment_id, new_date, new_time, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, req.ID, req.AppointmentID, req.NewDate, req.NewTime, req.Reason, req.Status)

	if err := row.Scan(&req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("insert reschedule request: %w", err)
	}

	return nil
}

func (r *PgRepository) GetRescheduleRequest(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM reschedule_requests
		WHERE id = $1
	`, id)
	return scanRescheduleRequest(row)
}

func (r *PgRepository) ListPendingRescheduleRequests(ctx context.Context) ([]RescheduleRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM reschedule_requests
		WHERE status = $1
		ORDER BY created_at
	`, RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RescheduleRequest
	for rows.Next() {
		rr, err := scanRescheduleRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DenyRescheduleRequest(ctx context.Context, id uuid.UUID, denialReason, suggestedDate, suggestedTime *string, ref time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reschedule_requests
		SET status = $2,
		    denial_reason = $3,
		    suggested_date = $4,
		    suggested_time = $5,
		    updated_at = $6
		WHERE id = $1
		  AND status = $7
	`, id, RequestDenied, denialReason, suggestedDate, suggestedTime, ref, RequestPending)
	if err != nil {
		return fmt.Errorf("deny reschedule request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	return nil
}

func (r *PgRepository) AcceptRescheduleRequest(ctx context.Context, requestID, appointmentID uuid.UUID, newDate, newTime string, ref time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE reschedule_requests
		SET status = $2,
		    updated_at = $3
		WHERE id = $1
		  AND status = $4
	`, requestID, RequestAccepted, ref, RequestPending)
	if err != nil {
		return fmt.Errorf("accept reschedule request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	tag, err = tx.Exec(ctx, `
		UPDATE appointments
		SET visit_date = $2,
		    visit_time = $3,
		    updated_at = $4
		WHERE id = $1
	`, appointmentID, newDate, newTime, ref)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("move appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accept tx: %w", err)
	}

	return nil
}
