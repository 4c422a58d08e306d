package booking

import (
	"time"

	"github.com/google/uuid"
)

// BookMode decides which kind of entity a booking occupies.
type BookMode string

const (
	// BookByResource books against a pooled resource with capacity > 1 allowed.
	BookByResource BookMode = "by_resource"
	// BookByUser books against a provider (a person), capacity is always 1.
	BookByUser BookMode = "by_user"
)

// AssignmentMode applies only to BookByUser appointment types.
type AssignmentMode string

const (
	// AssignAutomatic picks the least-loaded free provider at admission time.
	AssignAutomatic AssignmentMode = "automatic"
	// AssignByVisitor lets the booker request a specific provider.
	AssignByVisitor AssignmentMode = "by_visitor"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ScheduleEntry is one bookable window in an appointment type's weekly
// schedule. Day is an uppercase weekday name (MONDAY..SUNDAY); From and To
// are zero-padded 24h "HH:MM" strings, From < To, compared after parsing.
type ScheduleEntry struct {
	Day  string `json:"day"`
	From string `json:"from"`
	To   string `json:"to"`
}

// SecretLink grants access to an unpublished appointment type until it
// expires or its booking capacity is used up. Nil limits mean unlimited.
type SecretLink struct {
	Token          string
	ExpiryTime     *time.Time
	ExpiryCapacity *int
}

type AppointmentType struct {
	ID                    uuid.UUID
	OrganizationID        uuid.UUID
	Title                 string
	DurationMinutes       int
	BookMode              BookMode
	AssignmentMode        AssignmentMode
	AllowMultipleSlots    bool
	MaxSlotsPerBooking    *int
	IsPaid                bool
	PricePerSlotCents     int64
	CancellationLeadHours int
	WeeklySchedule        []ScheduleEntry
	AllowedProviderIDs    []uuid.UUID
	AllowedResourceIDs    []uuid.UUID
	IsPublished           bool
	SecretLink            *SecretLink
	BookingsCount         int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SlotDuration is the length of a single slot.
func (a *AppointmentType) SlotDuration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

type Resource struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Capacity       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Booking struct {
	ID               uuid.UUID
	AppointmentID    uuid.UUID
	BookerUserID     uuid.UUID
	ResourceID       *uuid.UUID
	ProviderID       *uuid.UUID
	StartTime        time.Time
	EndTime          time.Time
	NumberOfSlots    int
	Status           BookingStatus
	PaymentStatus    PaymentStatus
	TotalAmountCents int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CancelledAt      *time.Time
}

// Active reports whether the booking still occupies its interval.
func (b *Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// ActorRole classifies who is asking for a cancellation.
type ActorRole string

const (
	// RoleBooker is the user who created the booking, subject to policy.
	RoleBooker ActorRole = "booker"
	// RoleOperator is an organization operator, bypasses cancellation policy.
	RoleOperator ActorRole = "operator"
)
