package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/db"
)

// Seeds a demo organization with providers, resources and a few appointment
// types covering every booking mode.
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

	seedCtx := context.Background()

	orgID, err := seedOrganization(seedCtx, pool)
	if err != nil {
		log.Fatalf("seed organization: %v", err)
	}
	providerIDs, err := seedUsers(seedCtx, pool, 5)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	resourceIDs, err := seedResources(seedCtx, pool, orgID, 3)
	if err != nil {
		log.Fatalf("seed resources: %v", err)
	}
	if err := seedAppointmentTypes(seedCtx, pool, orgID, providerIDs, resourceIDs); err != nil {
		log.Fatalf("seed appointment types: %v", err)
	}

	log.Println("seed complete")
}

func seedOrganization(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO organizations (id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
	`, id, gofakeit.Company())
	if err != nil {
		return uuid.Nil, err
	}
	log.Printf("organization seeded: %s", id)
	return id, nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d users", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Name(), gofakeit.Email())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("users seeded")
	return ids, nil
}

func seedResources(ctx context.Context, pool *pgxpool.Pool, orgID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d resources", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.ProductName()
		capacity := gofakeit.Number(1, 4)

		_, err := tx.Exec(ctx, `
			INSERT INTO resources (id, organization_id, name, capacity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, orgID, name, capacity)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("resources seeded")
	return ids, nil
}

func seedAppointmentTypes(ctx context.Context, pool *pgxpool.Pool, orgID uuid.UUID, providerIDs, resourceIDs []uuid.UUID) error {
	schedule := []booking.ScheduleEntry{
		{Day: "MONDAY", From: "09:00", To: "17:00"},
		{Day: "TUESDAY", From: "09:00", To: "17:00"},
		{Day: "WEDNESDAY", From: "09:00", To: "17:00"},
		{Day: "THURSDAY", From: "09:00", To: "17:00"},
		{Day: "FRIDAY", From: "09:00", To: "12:00"},
	}
	scheduleJSON, err := json.Marshal(schedule)
	if err != nil {
		return err
	}

	type seedType struct {
		title          string
		durationMin    int
		bookMode       booking.BookMode
		assignmentMode booking.AssignmentMode
		isPaid         bool
		priceCents     int64
		leadHours      int
		providerIDs    []uuid.UUID
		resourceIDs    []uuid.UUID
	}

	types := []seedType{
		{
			title:          "Consultation",
			durationMin:    30,
			bookMode:       booking.BookByUser,
			assignmentMode: booking.AssignByVisitor,
			providerIDs:    providerIDs,
		},
		{
			title:          "Express Checkup",
			durationMin:    15,
			bookMode:       booking.BookByUser,
			assignmentMode: booking.AssignAutomatic,
			providerIDs:    providerIDs,
		},
		{
			title:          "Court Rental",
			durationMin:    60,
			bookMode:       booking.BookByResource,
			assignmentMode: booking.AssignByVisitor,
			isPaid:         true,
			priceCents:     2500,
			leadHours:      24,
			resourceIDs:    resourceIDs,
		},
	}

	for _, t := range types {
		id := uuid.New()
		providers := t.providerIDs
		if providers == nil {
			providers = []uuid.UUID{}
		}
		resources := t.resourceIDs
		if resources == nil {
			resources = []uuid.UUID{}
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO appointment_types
				(id, organization_id, title, duration_minutes, book_mode, assignment_mode,
				 allow_multiple_slots, max_slots_per_booking, is_paid, price_per_slot_cents,
				 cancellation_lead_hours, weekly_schedule, allowed_provider_ids,
				 allowed_resource_ids, is_published, bookings_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, true, 4, $7, $8, $9, $10, $11, $12, true, 0, now(), now())
		`, id, orgID, t.title, t.durationMin, t.bookMode, t.assignmentMode,
			t.isPaid, t.priceCents, t.leadHours, scheduleJSON, providers, resources)
		if err != nil {
			return err
		}
		log.Printf("appointment type seeded: %s (%s)", t.title, id)
	}

	return nil
}
