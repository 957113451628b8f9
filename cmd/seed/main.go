package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	roomIDs, err := seedRooms(context.Background(), pool, 6)
	if err != nil {
		log.Fatalf("seed rooms: %v", err)
	}
	procedureIDs, err := seedProcedures(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed procedures: %v", err)
	}

	if err := seedAppointments(context.Background(), pool, patientIDs, doctorIDs, roomIDs, procedureIDs, 200); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("patients seeded")
	return ids, nil
}

func seedRooms(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d rooms", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO rooms (id, name, capacity, created_at, updated_at)
			VALUES ($1, $2, 1, now(), now())
		`, id, fmt.Sprintf("Room %d", i+1))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("rooms seeded")
	return ids, nil
}

func seedProcedures(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	procedures := []struct {
		name, desc string
	}{
		{"Private Consultation", "Out-of-pocket visit"},
		{"Insurance Consultation", "Visit billed through a registered insurer"},
		{"Prescription Renewal", "Renewal of an existing prescription"},
		{"Checkup", "Routine checkup"},
	}

	log.Printf("seeding %d procedures", len(procedures))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(procedures))
	for _, p := range procedures {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO procedures (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (name) DO NOTHING
		`, id, p.name, p.desc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("procedures seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patients, doctors, rooms, procedures []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	times := []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for inserted < count {
		day := time.Now().AddDate(0, 0, gofakeit.Number(1, 20)).Format("2006-01-02")
		slot := times[gofakeit.Number(0, len(times)-1)]
		doctor := doctors[gofakeit.Number(0, len(doctors)-1)]
		room := rooms[gofakeit.Number(0, len(rooms)-1)]

		// Skip combinations that would collide with an occupying row.
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE visit_date = $1 AND visit_time = $2
				  AND (doctor_id = $3 OR room_id = $4)
				  AND lower(status) NOT IN ('cancelled', 'canceled', 'denied', 'declined')
			)
		`, day, slot, doctor, room).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO appointments
				(id, patient_id, doctor_id, procedure_id, room_id, visit_date, visit_time,
				 status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', now(), now())
		`, uuid.New(),
			patients[gofakeit.Number(0, len(patients)-1)],
			doctor,
			procedures[gofakeit.Number(0, len(procedures)-1)],
			room,
			day, slot)
		if err != nil {
			return err
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("appointments seeded")
	return nil
}
