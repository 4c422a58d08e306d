package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
//
// CreateBooking and CancelBooking are transactional: the booking row change
// and the appointment type's bookings_count update commit together or not
// at all.
type Repository interface {
	GetAppointmentType(ctx context.Context, id uuid.UUID) (*AppointmentType, error)
	GetAppointmentTypeByLink(ctx context.Context, token string) (*AppointmentType, error)

	GetResource(ctx context.Context, id uuid.UUID) (*Resource, error)
	ListResources(ctx context.Context, ids []uuid.UUID) ([]Resource, error)

	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListActiveResourceBookings returns pending and confirmed bookings
	// on any of the given resources whose [start,end) interval overlaps
	// [from,to). Occupancy is a property of the resource, not of the
	// appointment type that created the booking, so the query is not
	// scoped by appointment type.
	ListActiveResourceBookings(ctx context.Context, resourceIDs []uuid.UUID, from, to time.Time) ([]Booking, error)

	// ListActiveProviderBookings is the provider-side counterpart.
	ListActiveProviderBookings(ctx context.Context, providerIDs []uuid.UUID, from, to time.Time) ([]Booking, error)

	// CountActiveByProvider returns the number of active bookings per
	// provider across all appointment types. Providers without bookings
	// are simply absent from the map.
	CountActiveByProvider(ctx context.Context, providerIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// CreateBooking inserts the booking and increments the appointment
	// type's bookings_count in a single transaction. A non-nil
	// linkCapacity guards the increment: when the counter has already
	// reached it the insert fails with ErrLinkCapacityReached.
	CreateBooking(ctx context.Context, b *Booking, linkCapacity *int) error

	// CancelBooking flips an active booking to cancelled and decrements
	// the appointment type's bookings_count in a single transaction.
	// Returns ErrAlreadyCancelled when the booking is cancelled already
	// and ErrBookingNotActive for completed bookings.
	CancelBooking(ctx context.Context, id uuid.UUID, now time.Time) (*Booking, error)

	// CompleteFinishedBookings marks confirmed bookings whose end time has
	// passed as completed. Used by the completion worker.
	CompleteFinishedBookings(ctx context.Context, now time.Time) (int64, error)
}
