package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentTypeColumns = `
	id, organization_id, title, duration_minutes, book_mode, assignment_mode,
	allow_multiple_slots, max_slots_per_booking, is_paid, price_per_slot_cents,
	cancellation_lead_hours, weekly_schedule, allowed_provider_ids, allowed_resource_ids,
	is_published, secret_link_token, secret_link_expires_at, secret_link_capacity,
	bookings_count, created_at, updated_at`

const bookingColumns = `
	id, appointment_id, booker_user_id, resource_id, provider_id,
	start_time, end_time, number_of_slots, status, payment_status,
	total_amount_cents, created_at, updated_at, cancelled_at`

// Helpers

func scanAppointmentType(row pgx.Row) (*AppointmentType, error) {
	var a AppointmentType
	var scheduleJSON []byte
	var linkToken *string
	var linkExpiry *time.Time
	var linkCapacity *int

	err := row.Scan(
		&a.ID,
		&a.OrganizationID,
		&a.Title,
		&a.DurationMinutes,
		&a.BookMode,
		&a.AssignmentMode,
		&a.AllowMultipleSlots,
		&a.MaxSlotsPerBooking,
		&a.IsPaid,
		&a.PricePerSlotCents,
		&a.CancellationLeadHours,
		&scheduleJSON,
		&a.AllowedProviderIDs,
		&a.AllowedResourceIDs,
		&a.IsPublished,
		&linkToken,
		&linkExpiry,
		&linkCapacity,
		&a.BookingsCount,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &a.WeeklySchedule); err != nil {
			return nil, fmt.Errorf("decode weekly schedule: %w", err)
		}
	}
	if linkToken != nil {
		a.SecretLink = &SecretLink{
			Token:          *linkToken,
			ExpiryTime:     linkExpiry,
			ExpiryCapacity: linkCapacity,
		}
	}

	return &a, nil
}

func scanResource(row pgx.Row) (*Resource, error) {
	var r Resource

	err := row.Scan(
		&r.ID,
		&r.OrganizationID,
		&r.Name,
		&r.Capacity,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.AppointmentID,
		&b.BookerUserID,
		&b.ResourceID,
		&b.ProviderID,
		&b.StartTime,
		&b.EndTime,
		&b.NumberOfSlots,
		&b.Status,
		&b.PaymentStatus,
		&b.TotalAmountCents,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

// Interface methods

func (r *PgRepository) GetAppointmentType(ctx context.Context, id uuid.UUID) (*AppointmentType, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentTypeColumns+`
		FROM appointment_types
		WHERE id = $1
	`, id)
	return scanAppointmentType(row)
}

func (r *PgRepository) GetAppointmentTypeByLink(ctx context.Context, token string) (*AppointmentType, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentTypeColumns+`
		FROM appointment_types
		WHERE secret_link_token = $1
	`, token)
	return scanAppointmentType(row)
}

func (r *PgRepository) GetResource(ctx context.Context, id uuid.UUID) (*Resource, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, organization_id, name, capacity, created_at, updated_at
		FROM resources
		WHERE id = $1
	`, id)
	return scanResource(row)
}

func (r *PgRepository) ListResources(ctx context.Context, ids []uuid.UUID) ([]Resource, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, name, capacity, created_at, updated_at
		FROM resources
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ListActiveResourceBookings(ctx context.Context, resourceIDs []uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE resource_id = ANY($1)
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC
	`, resourceIDs, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ListActiveProviderBookings(ctx context.Context, providerIDs []uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = ANY($1)
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC
	`, providerIDs, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountActiveByProvider(ctx context.Context, providerIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT provider_id, COUNT(*)
		FROM bookings
		WHERE provider_id = ANY($1)
		  AND status IN ('pending', 'confirmed')
		GROUP BY provider_id
	`, providerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := make(map[uuid.UUID]int)
	for rows.Next() {
		var providerID uuid.UUID
		var count int
		if err := rows.Scan(&providerID, &count); err != nil {
			return nil, err
		}
		loads[providerID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return loads, nil
}

func (r *PgRepository) CreateBooking(ctx context.Context, b *Booking, linkCapacity *int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// The counter update also takes a row lock on the appointment type, so
	// counter and booking row always move together. When the booking
	// consumes secret-link capacity the increment is guarded here: admission
	// locks are keyed per resource or provider, so two link bookings on
	// different entities can race past the service-level check.
	tag, err := tx.Exec(ctx, `
		UPDATE appointment_types
		SET bookings_count = bookings_count + 1,
		    updated_at = now()
		WHERE id = $1
		  AND ($2::int IS NULL OR bookings_count < $2)
	`, b.AppointmentID, linkCapacity)
	if err != nil {
		return fmt.Errorf("increment bookings count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyCreateMiss(ctx, tx, b.AppointmentID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings
			(id, appointment_id, booker_user_id, resource_id, provider_id,
			 start_time, end_time, number_of_slots, status, payment_status,
			 total_amount_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, b.ID, b.AppointmentID, b.BookerUserID, b.ResourceID, b.ProviderID,
		b.StartTime, b.EndTime, b.NumberOfSlots, b.Status, b.PaymentStatus,
		b.TotalAmountCents, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// classifyCreateMiss figures out why the guarded counter increment matched
// no row: missing appointment type or exhausted link capacity.
func (r *PgRepository) classifyCreateMiss(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointment_types WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAppointmentNotFound
	}
	return ErrLinkCapacityReached
}

func (r *PgRepository) CancelBooking(ctx context.Context, id uuid.UUID, now time.Time) (*Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    cancelled_at = $2,
		    updated_at = $2
		WHERE id = $1
		  AND status IN ('pending', 'confirmed')
		RETURNING `+bookingColumns+`
	`, id, now)

	cancelled, err := scanBooking(row)
	if errors.Is(err, ErrBookingNotFound) {
		return nil, r.classifyCancelMiss(ctx, tx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointment_types
		SET bookings_count = GREATEST(bookings_count - 1, 0),
		    updated_at = now()
		WHERE id = $1
	`, cancelled.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("decrement bookings count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return cancelled, nil
}

// classifyCancelMiss figures out why the guarded cancel update matched no
// row: missing booking, already cancelled, or a non-cancellable state.
func (r *PgRepository) classifyCancelMiss(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var status BookingStatus
	err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return err
	}
	if status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	return ErrBookingNotActive
}

func (r *PgRepository) CompleteFinishedBookings(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'completed',
		    updated_at = $1
		WHERE status = 'confirmed'
		  AND end_time <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
