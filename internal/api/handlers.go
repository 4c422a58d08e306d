package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookable/booking-engine/internal/booking"
)

// BookingService is the slice of the booking service the HTTP layer needs.
type BookingService interface {
	DayAvailability(ctx context.Context, q booking.AvailabilityQuery) (*booking.DayAvailability, error)
	AdmitBooking(ctx context.Context, req booking.BookingRequest) (*booking.Booking, error)
	CancelBooking(ctx context.Context, req booking.CancelRequest) (*booking.Booking, error)
}

func availabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		query := booking.AvailabilityQuery{
			AppointmentID: appointmentID,
			Date:          date,
		}
		if query.ResourceID, err = optionalUUID(r.URL.Query().Get("resource_id")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
			return
		}
		if query.ProviderID, err = optionalUUID(r.URL.Query().Get("provider_id")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		day, err := svc.DayAvailability(r.Context(), query)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := AvailabilityResponse{
			DayOfWeek: day.DayOfWeek,
			Slots:     make([]SlotResponse, 0, len(day.Slots)),
		}
		if !day.Open {
			resp.Message = "not bookable on this date"
		}
		for _, slot := range day.Slots {
			resp.Slots = append(resp.Slots, SlotResponse{
				StartTime:      slot.Start,
				EndTime:        slot.End,
				AvailableCount: slot.Available,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if (req.AppointmentID == "") == (req.SecretLink == "") {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "exactly one of appointment_id and secret_link is required")
			return
		}

		bookerID, err := uuid.Parse(req.BookerUserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booker_user_id", "booker_user_id must be a valid UUID")
			return
		}
		if req.StartTime.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time is required")
			return
		}

		admission := booking.BookingRequest{
			SecretLink:    req.SecretLink,
			BookerUserID:  bookerID,
			StartTime:     req.StartTime,
			NumberOfSlots: req.NumberOfSlots,
		}
		if req.AppointmentID != "" {
			if admission.AppointmentID, err = uuid.Parse(req.AppointmentID); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
		}
		if admission.ResourceID, err = optionalUUID(req.ResourceID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
			return
		}
		if admission.ProviderID, err = optionalUUID(req.ProviderID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		created, err := svc.AdmitBooking(r.Context(), admission)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(created))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req CancelBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actorID, err := uuid.Parse(req.ActorUserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_user_id", "actor_user_id must be a valid UUID")
			return
		}

		role := booking.ActorRole(req.ActorRole)
		if role != booking.RoleBooker && role != booking.RoleOperator {
			writeError(w, http.StatusBadRequest, "invalid_actor_role", "actor_role must be booker or operator")
			return
		}

		cancelled, err := svc.CancelBooking(r.Context(), booking.CancelRequest{
			BookingID:   bookingID,
			ActorUserID: actorID,
			ActorRole:   role,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(cancelled))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	var slotCountErr *booking.SlotCountError
	var capacityErr *booking.CapacityError
	var policyErr *booking.PolicyError

	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, "resource_not_found", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrNotBookable):
		writeError(w, http.StatusForbidden, "not_bookable", err.Error())
	case errors.Is(err, booking.ErrLinkExpired):
		writeError(w, http.StatusGone, "link_expired", err.Error())
	case errors.Is(err, booking.ErrLinkCapacityReached):
		writeError(w, http.StatusGone, "link_capacity_reached", err.Error())
	case errors.As(err, &slotCountErr):
		writeError(w, http.StatusUnprocessableEntity, "invalid_slot_count", err.Error())
	case errors.Is(err, booking.ErrResourceRequired),
		errors.Is(err, booking.ErrProviderRequired),
		errors.Is(err, booking.ErrResourceNotAllowed),
		errors.Is(err, booking.ErrProviderNotAllowed):
		writeError(w, http.StatusUnprocessableEntity, "invalid_provider_or_resource", err.Error())
	case errors.Is(err, booking.ErrOutsideBookableHours):
		writeError(w, http.StatusUnprocessableEntity, "outside_bookable_hours", err.Error())
	case errors.As(err, &capacityErr):
		writeError(w, http.StatusConflict, "capacity_exceeded", err.Error())
	case errors.Is(err, booking.ErrNoProviderAvailable):
		writeError(w, http.StatusConflict, "no_provider_available", err.Error())
	case errors.Is(err, booking.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "booking_conflict", err.Error())
	case errors.As(err, &policyErr):
		writeError(w, http.StatusUnprocessableEntity, "cancellation_policy_violation", err.Error())
	case errors.Is(err, booking.ErrBookingNotActive):
		writeError(w, http.StatusConflict, "booking_not_active", err.Error())
	case errors.Is(err, booking.ErrNotBookingOwner):
		writeError(w, http.StatusForbidden, "not_booking_owner", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		AppointmentID:    b.AppointmentID,
		BookerUserID:     b.BookerUserID,
		ResourceID:       b.ResourceID,
		ProviderID:       b.ProviderID,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		NumberOfSlots:    b.NumberOfSlots,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		TotalAmountCents: b.TotalAmountCents,
		CancelledAt:      b.CancelledAt,
	}
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
