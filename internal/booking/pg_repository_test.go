package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingColumnNames = []string{
	"id", "appointment_id", "booker_user_id", "resource_id", "provider_id",
	"start_time", "end_time", "number_of_slots", "status", "payment_status",
	"total_amount_cents", "created_at", "updated_at", "cancelled_at",
}

func bookingRow(id, appointmentID uuid.UUID, start, end time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(bookingColumnNames).AddRow(
		id, appointmentID, uuid.New(), nil, nil,
		start, end, 1, StatusConfirmed, PaymentPaid,
		int64(0), start, start, nil,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PgRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgRepository(mock)
}

func TestPgRepositoryGetAppointmentType(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	now := time.Now().UTC()
	scheduleJSON := []byte(`[{"day":"MONDAY","from":"09:00","to":"12:00"}]`)

	rows := pgxmock.NewRows([]string{
		"id", "organization_id", "title", "duration_minutes", "book_mode", "assignment_mode",
		"allow_multiple_slots", "max_slots_per_booking", "is_paid", "price_per_slot_cents",
		"cancellation_lead_hours", "weekly_schedule", "allowed_provider_ids", "allowed_resource_ids",
		"is_published", "secret_link_token", "secret_link_expires_at", "secret_link_capacity",
		"bookings_count", "created_at", "updated_at",
	}).AddRow(
		id, uuid.New(), "Court Rental", 30, BookByResource, AssignByVisitor,
		false, nil, true, int64(2500),
		24, scheduleJSON, []uuid.UUID{}, []uuid.UUID{uuid.New()},
		true, nil, nil, nil,
		0, now, now,
	)
	mock.ExpectQuery("FROM appointment_types").WithArgs(id).WillReturnRows(rows)

	got, err := repo.GetAppointmentType(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, BookByResource, got.BookMode)
	require.Len(t, got.WeeklySchedule, 1)
	assert.Equal(t, "MONDAY", got.WeeklySchedule[0].Day)
	assert.Nil(t, got.SecretLink)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGetAppointmentTypeNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery("FROM appointment_types").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetAppointmentType(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryListActiveResourceBookings(t *testing.T) {
	mock, repo := newMockRepo(t)

	resourceID := uuid.New()
	resourceIDs := []uuid.UUID{resourceID}
	from := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	rows := pgxmock.NewRows(bookingColumnNames).
		AddRow(uuid.New(), uuid.New(), uuid.New(), &resourceID, nil,
			from, from.Add(30*time.Minute), 1, StatusConfirmed, PaymentPaid,
			int64(0), from, from, nil).
		AddRow(uuid.New(), uuid.New(), uuid.New(), &resourceID, nil,
			from.Add(30*time.Minute), to, 1, StatusPending, PaymentPending,
			int64(2500), from, from, nil)
	mock.ExpectQuery("FROM bookings").WithArgs(resourceIDs, from, to).WillReturnRows(rows)

	got, err := repo.ListActiveResourceBookings(context.Background(), resourceIDs, from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StatusPending, got[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCountActiveByProvider(t *testing.T) {
	mock, repo := newMockRepo(t)

	p1, p2 := uuid.New(), uuid.New()
	providerIDs := []uuid.UUID{p1, p2}

	rows := pgxmock.NewRows([]string{"provider_id", "count"}).
		AddRow(p1, 3).
		AddRow(p2, 1)
	mock.ExpectQuery("FROM bookings").WithArgs(providerIDs).WillReturnRows(rows)

	got, err := repo.CountActiveByProvider(context.Background(), providerIDs)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{p1: 3, p2: 1}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCreateBooking(t *testing.T) {
	mock, repo := newMockRepo(t)

	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	b := &Booking{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		BookerUserID:  uuid.New(),
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
		NumberOfSlots: 1,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentPaid,
		CreatedAt:     start,
		UpdatedAt:     start,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointment_types").
		WithArgs(b.AppointmentID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(b.ID, b.AppointmentID, b.BookerUserID, pgxmock.AnyArg(), pgxmock.AnyArg(),
			b.StartTime, b.EndTime, b.NumberOfSlots, b.Status, b.PaymentStatus,
			b.TotalAmountCents, b.CreatedAt, b.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateBooking(context.Background(), b, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCreateBookingMissingAppointment(t *testing.T) {
	mock, repo := newMockRepo(t)

	b := &Booking{ID: uuid.New(), AppointmentID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointment_types").
		WithArgs(b.AppointmentID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(b.AppointmentID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.CreateBooking(context.Background(), b, nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCreateBookingLinkCapacityExhausted(t *testing.T) {
	mock, repo := newMockRepo(t)

	b := &Booking{ID: uuid.New(), AppointmentID: uuid.New()}
	linkCapacity := 5

	// The guarded increment matches no row when bookings_count has already
	// reached the link capacity.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointment_types").
		WithArgs(b.AppointmentID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(b.AppointmentID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.CreateBooking(context.Background(), b, &linkCapacity)
	assert.ErrorIs(t, err, ErrLinkCapacityReached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCancelBooking(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	appointmentID := uuid.New()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").
		WithArgs(id, now).
		WillReturnRows(bookingRow(id, appointmentID, start, start.Add(30*time.Minute)))
	mock.ExpectExec("UPDATE appointment_types").
		WithArgs(appointmentID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := repo.CancelBooking(context.Background(), id, now)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCancelBookingAlreadyCancelled(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").
		WithArgs(id, now).
		WillReturnRows(pgxmock.NewRows(bookingColumnNames))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusCancelled))
	mock.ExpectRollback()

	_, err := repo.CancelBooking(context.Background(), id, now)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCancelBookingNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").
		WithArgs(id, now).
		WillReturnRows(pgxmock.NewRows(bookingColumnNames))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.CancelBooking(context.Background(), id, now)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCompleteFinishedBookings(t *testing.T) {
	mock, repo := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE bookings").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.CompleteFinishedBookings(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
