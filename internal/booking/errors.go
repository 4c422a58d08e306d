package booking

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentNotFound = errors.New("appointment type not found")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrBookingNotFound     = errors.New("booking not found")

	// ErrNotBookable means the appointment type is unpublished and the
	// request carried no valid secret link.
	ErrNotBookable = errors.New("appointment type is not bookable")

	ErrLinkExpired          = errors.New("secret link has expired")
	ErrLinkCapacityReached  = errors.New("secret link booking capacity reached")
	ErrResourceRequired     = errors.New("a resource must be specified for this appointment type")
	ErrProviderRequired     = errors.New("a provider must be specified for this appointment type")
	ErrResourceNotAllowed   = errors.New("resource is not allowed for this appointment type")
	ErrProviderNotAllowed   = errors.New("provider is not allowed for this appointment type")
	ErrOutsideBookableHours = errors.New("requested time is outside the bookable schedule")
	ErrNoProviderAvailable  = errors.New("no provider is available for the requested time")
	ErrBookingNotActive     = errors.New("booking is not in a cancellable state")
	ErrNotBookingOwner      = errors.New("actor does not own this booking")
	ErrConcurrencyConflict  = errors.New("booking conflicted with concurrent requests, please retry")
	ErrAlreadyCancelled     = errors.New("booking is already cancelled")
)

// SlotCountError reports a numberOfSlots that violates the appointment
// type's multi-slot configuration. Max is 1 when multiple slots are not
// allowed, 0 when no upper bound is configured.
type SlotCountError struct {
	Requested int
	Max       int
}

func (e *SlotCountError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("invalid number of slots %d, at most %d allowed", e.Requested, e.Max)
	}
	return fmt.Sprintf("invalid number of slots %d", e.Requested)
}

// CapacityError reports the first contiguous sub-slot that lacked capacity.
// SubSlot is 0-based.
type CapacityError struct {
	SubSlot   int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no capacity for sub-slot %d (remaining %d)", e.SubSlot, e.Remaining)
}

// PolicyError reports an owner cancellation inside the configured lead-time
// window (or after the booking already started, in which case HoursLeft is
// negative).
type PolicyError struct {
	HoursLeft float64
	LeadHours int
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("cancellation requires %dh notice, booking starts in %.1fh", e.LeadHours, e.HoursLeft)
}
