package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	AppointmentID string    `json:"appointment_id,omitempty"`
	SecretLink    string    `json:"secret_link,omitempty"`
	BookerUserID  string    `json:"booker_user_id"`
	StartTime     time.Time `json:"start_time"`
	NumberOfSlots int       `json:"number_of_slots,omitempty"`
	ResourceID    string    `json:"resource_id,omitempty"`
	ProviderID    string    `json:"provider_id,omitempty"`
}

type CancelBookingRequest struct {
	ActorUserID string `json:"actor_user_id"`
	ActorRole   string `json:"actor_role"`
}

type BookingResponse struct {
	ID               uuid.UUID  `json:"id"`
	AppointmentID    uuid.UUID  `json:"appointment_id"`
	BookerUserID     uuid.UUID  `json:"booker_user_id"`
	ResourceID       *uuid.UUID `json:"resource_id,omitempty"`
	ProviderID       *uuid.UUID `json:"provider_id,omitempty"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	NumberOfSlots    int        `json:"number_of_slots"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"payment_status"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

type SlotResponse struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	AvailableCount int       `json:"available_count"`
}

type AvailabilityResponse struct {
	DayOfWeek string         `json:"day_of_week"`
	Slots     []SlotResponse `json:"slots"`
	Message   string         `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
