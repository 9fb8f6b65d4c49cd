package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carewell-health/clinic-scheduling/internal/db"
	"github.com/carewell-health/clinic-scheduling/internal/schedule"
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

	staffIDs, err := seedStaff(context.Background(), pool, 30)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedTimeSlots(context.Background(), pool, staffIDs); err != nil {
		log.Fatalf("seed time slots: %v", err)
	}

	log.Println("seed complete")
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff members", count)

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
			INSERT INTO staff (id, name, specialty, is_available, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("staff seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedTimeSlots gives every staff member a plausible working week: a morning
// and an afternoon recurring block on three to five weekdays.
func seedTimeSlots(ctx context.Context, pool *pgxpool.Pool, staffIDs []uuid.UUID) error {
	log.Printf("seeding time slots for %d staff members", len(staffIDs))

	weekdays := []schedule.Weekday{
		schedule.Monday,
		schedule.Tuesday,
		schedule.Wednesday,
		schedule.Thursday,
		schedule.Friday,
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, staffID := range staffIDs {
		days := gofakeit.Number(3, 5)
		for d := 0; d < days; d++ {
			day := string(weekdays[d])

			blocks := [][2]string{
				{"09:00", "12:00"},
				{"13:00", "17:00"},
			}
			for _, block := range blocks {
				_, err := tx.Exec(ctx, `
					INSERT INTO time_slots (id, staff_id, day_of_week, date, start_time, end_time, is_recurring, is_available, created_at, updated_at)
					VALUES ($1, $2, $3, NULL, $4, $5, true, true, now(), now())
				`, uuid.New(), staffID, day, block[0], block[1])
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("time slots seeded")
	return nil
}
