package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookable/booking-engine/internal/config"
	"github.com/bookable/booking-engine/internal/events"
	redisclient "github.com/bookable/booking-engine/internal/redis"
)

// EventEmitter is the fire-and-forget notification hook. Emit must never
// block or fail the booking that triggered it.
type EventEmitter interface {
	Emit(ev events.Event)
}

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	emitter EventEmitter
	logger  *zap.Logger
	cfg     config.Config

	// nowFunc is swapped in tests.
	nowFunc func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, emitter EventEmitter, logger *zap.Logger, cfg config.Config) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		emitter: emitter,
		logger:  logger,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// BookingRequest is an admission attempt. Exactly one of AppointmentID and
// SecretLink identifies the appointment type.
type BookingRequest struct {
	AppointmentID uuid.UUID
	SecretLink    string
	BookerUserID  uuid.UUID
	StartTime     time.Time
	NumberOfSlots int // defaults to 1
	ResourceID    *uuid.UUID
	ProviderID    *uuid.UUID
}

type AvailabilityQuery struct {
	AppointmentID uuid.UUID
	Date          time.Time
	ResourceID    *uuid.UUID
	ProviderID    *uuid.UUID
}

type SlotAvailability struct {
	Slot
	Available int
}

type DayAvailability struct {
	DayOfWeek string
	Open      bool
	Slots     []SlotAvailability
}

type CancelRequest struct {
	BookingID   uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   ActorRole
}

// DayAvailability computes the bookable slots of a calendar day together
// with each slot's remaining capacity. Reads are lock-free: a slightly
// stale count is fine here because admission re-validates under the lock.
func (s *Service) DayAvailability(ctx context.Context, q AvailabilityQuery) (*DayAvailability, error) {
	appt, err := s.repo.GetAppointmentType(ctx, q.AppointmentID)
	if err != nil {
		return nil, err
	}

	out := &DayAvailability{DayOfWeek: WeekdayName(q.Date.Weekday())}

	window, open, err := ResolveDayWindow(appt.WeeklySchedule, q.Date)
	if err != nil {
		return nil, fmt.Errorf("resolve day window: %w", err)
	}
	if !open {
		return out, nil
	}
	out.Open = true

	duration := appt.SlotDuration()

	// Occupancy belongs to the resource or provider, not to this
	// appointment type, so the overlap reads are entity-scoped: a booking
	// made through another type still consumes the shared capacity.
	switch appt.BookMode {
	case BookByResource:
		if q.ResourceID != nil {
			if !containsID(appt.AllowedResourceIDs, *q.ResourceID) {
				return nil, ErrResourceNotAllowed
			}
			res, err := s.repo.GetResource(ctx, *q.ResourceID)
			if err != nil {
				return nil, err
			}
			active, err := s.repo.ListActiveResourceBookings(ctx, []uuid.UUID{res.ID}, window.Start, window.End)
			if err != nil {
				return nil, fmt.Errorf("list resource bookings: %w", err)
			}
			for slot := range window.Slots(duration) {
				out.Slots = append(out.Slots, SlotAvailability{Slot: slot, Available: ResourceRemaining(res, slot, active)})
			}
		} else {
			resources, err := s.repo.ListResources(ctx, appt.AllowedResourceIDs)
			if err != nil {
				return nil, err
			}
			active, err := s.repo.ListActiveResourceBookings(ctx, appt.AllowedResourceIDs, window.Start, window.End)
			if err != nil {
				return nil, fmt.Errorf("list resource bookings: %w", err)
			}
			for slot := range window.Slots(duration) {
				out.Slots = append(out.Slots, SlotAvailability{Slot: slot, Available: AggregateResourceRemaining(resources, slot, active)})
			}
		}

	case BookByUser:
		if q.ProviderID != nil {
			if !containsID(appt.AllowedProviderIDs, *q.ProviderID) {
				return nil, ErrProviderNotAllowed
			}
			active, err := s.repo.ListActiveProviderBookings(ctx, []uuid.UUID{*q.ProviderID}, window.Start, window.End)
			if err != nil {
				return nil, fmt.Errorf("list provider bookings: %w", err)
			}
			for slot := range window.Slots(duration) {
				available := 0
				if ProviderFree(*q.ProviderID, slot, active) {
					available = 1
				}
				out.Slots = append(out.Slots, SlotAvailability{Slot: slot, Available: available})
			}
		} else {
			active, err := s.repo.ListActiveProviderBookings(ctx, appt.AllowedProviderIDs, window.Start, window.End)
			if err != nil {
				return nil, fmt.Errorf("list provider bookings: %w", err)
			}
			for slot := range window.Slots(duration) {
				out.Slots = append(out.Slots, SlotAvailability{Slot: slot, Available: AggregateProviderRemaining(appt.AllowedProviderIDs, slot, active)})
			}
		}

	default:
		return nil, fmt.Errorf("unknown book mode %q", appt.BookMode)
	}

	return out, nil
}

// AdmitBooking validates a booking request and, when it passes, creates the
// booking atomically with respect to concurrent requests for overlapping
// slots. Preconditions are checked in a fixed order and the first failure
// wins; capacity is re-evaluated inside the lock so that a check-then-act
// race cannot overbook.
func (s *Service) AdmitBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	appt, err := s.loadReachable(ctx, req)
	if err != nil {
		return nil, err
	}

	numberOfSlots := req.NumberOfSlots
	if numberOfSlots <= 0 {
		numberOfSlots = 1
	}
	if err := validateSlotCount(appt, numberOfSlots); err != nil {
		return nil, err
	}

	duration := appt.SlotDuration()
	start := req.StartTime
	end := start.Add(time.Duration(numberOfSlots) * duration)
	subSlots := SubSlots(start, numberOfSlots, duration)

	var resource *Resource
	switch appt.BookMode {
	case BookByResource:
		if req.ResourceID == nil {
			return nil, ErrResourceRequired
		}
		if !containsID(appt.AllowedResourceIDs, *req.ResourceID) {
			return nil, ErrResourceNotAllowed
		}
		resource, err = s.repo.GetResource(ctx, *req.ResourceID)
		if err != nil {
			return nil, err
		}
	case BookByUser:
		if appt.AssignmentMode == AssignByVisitor {
			if req.ProviderID == nil {
				return nil, ErrProviderRequired
			}
			if !containsID(appt.AllowedProviderIDs, *req.ProviderID) {
				return nil, ErrProviderNotAllowed
			}
		}
	default:
		return nil, fmt.Errorf("unknown book mode %q", appt.BookMode)
	}

	if err := s.checkWithinSchedule(appt, start, end); err != nil {
		return nil, err
	}

	lockKey := admissionLockKey(appt, req)

	var created *Booking
	attempt := func() error {
		return s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
			booking, err := s.admitLocked(lockCtx, appt, resource, req, subSlots, numberOfSlots, start, end)
			if err != nil {
				return err
			}
			created = booking
			return nil
		})
	}

	for i := 0; ; i++ {
		err = attempt()
		if !errors.Is(err, redisclient.ErrLockNotAcquired) {
			break
		}
		if i+1 >= s.cfg.AdmissionRetries {
			s.logger.Warn("admission lock contention exhausted retries",
				zap.String("lock_key", lockKey),
				zap.Int("attempts", i+1))
			return nil, ErrConcurrencyConflict
		}
		backoff := s.cfg.AdmissionBackoff * time.Duration(i+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return nil, err
	}

	s.emit(events.Event{
		Type:          events.BookingCreated,
		AppointmentID: appt.ID,
		BookingID:     created.ID,
	})

	return created, nil
}

// admitLocked runs inside the admission lock: re-reads current state,
// re-evaluates capacity per sub-slot, selects the provider when assignment
// is automatic, and persists booking plus counter in one transaction.
func (s *Service) admitLocked(ctx context.Context, appt *AppointmentType, resource *Resource, req BookingRequest, subSlots []Slot, numberOfSlots int, start, end time.Time) (*Booking, error) {
	// A secret link's remaining capacity can be consumed while we waited
	// for the lock, so re-validate against a fresh row. The re-check is a
	// fast fail only: the lock key names the resource or provider, not the
	// link, so the counter increment in CreateBooking carries the
	// authoritative capacity guard.
	var linkCapacity *int
	if req.SecretLink != "" {
		fresh, err := s.repo.GetAppointmentTypeByLink(ctx, req.SecretLink)
		if err != nil {
			return nil, err
		}
		if err := validateLink(fresh, s.nowFunc()); err != nil {
			return nil, err
		}
		if fresh.SecretLink != nil {
			linkCapacity = fresh.SecretLink.ExpiryCapacity
		}
	}

	now := s.nowFunc()
	totalCents := int64(0)
	paymentStatus := PaymentPaid
	if appt.IsPaid {
		totalCents = appt.PricePerSlotCents * int64(numberOfSlots)
		paymentStatus = PaymentPending
	}

	booking := &Booking{
		ID:               uuid.New(),
		AppointmentID:    appt.ID,
		BookerUserID:     req.BookerUserID,
		StartTime:        start,
		EndTime:          end,
		NumberOfSlots:    numberOfSlots,
		Status:           StatusConfirmed,
		PaymentStatus:    paymentStatus,
		TotalAmountCents: totalCents,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	switch appt.BookMode {
	case BookByResource:
		active, err := s.repo.ListActiveResourceBookings(ctx, []uuid.UUID{resource.ID}, start, end)
		if err != nil {
			return nil, fmt.Errorf("list resource bookings: %w", err)
		}
		for i, slot := range subSlots {
			remaining := ResourceRemaining(resource, slot, active)
			if remaining <= 0 {
				return nil, &CapacityError{SubSlot: i, Remaining: remaining}
			}
		}
		resourceID := resource.ID
		booking.ResourceID = &resourceID

	case BookByUser:
		if appt.AssignmentMode == AssignByVisitor {
			active, err := s.repo.ListActiveProviderBookings(ctx, []uuid.UUID{*req.ProviderID}, start, end)
			if err != nil {
				return nil, fmt.Errorf("list provider bookings: %w", err)
			}
			for i, slot := range subSlots {
				if !ProviderFree(*req.ProviderID, slot, active) {
					return nil, &CapacityError{SubSlot: i}
				}
			}
			providerID := *req.ProviderID
			booking.ProviderID = &providerID
		} else {
			active, err := s.repo.ListActiveProviderBookings(ctx, appt.AllowedProviderIDs, start, end)
			if err != nil {
				return nil, fmt.Errorf("list provider bookings: %w", err)
			}
			loads, err := s.repo.CountActiveByProvider(ctx, appt.AllowedProviderIDs)
			if err != nil {
				return nil, fmt.Errorf("count provider loads: %w", err)
			}
			chosen, ok := PickProvider(appt.AllowedProviderIDs, loads, subSlots, active)
			if !ok {
				return nil, ErrNoProviderAvailable
			}
			booking.ProviderID = &chosen
		}

	default:
		return nil, fmt.Errorf("unknown book mode %q", appt.BookMode)
	}

	if err := s.repo.CreateBooking(ctx, booking, linkCapacity); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	return booking, nil
}

// CancelBooking applies the cancellation policy and reverses the booking's
// counters. Cancelling an already-cancelled booking is an idempotent no-op
// success.
func (s *Service) CancelBooking(ctx context.Context, req CancelRequest) (*Booking, error) {
	booking, err := s.repo.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == StatusCancelled {
		return booking, nil
	}

	if req.ActorRole != RoleOperator {
		if booking.BookerUserID != req.ActorUserID {
			return nil, ErrNotBookingOwner
		}

		appt, err := s.repo.GetAppointmentType(ctx, booking.AppointmentID)
		if err != nil {
			return nil, err
		}

		hoursLeft := booking.StartTime.Sub(s.nowFunc()).Hours()
		if hoursLeft <= 0 {
			return nil, &PolicyError{HoursLeft: hoursLeft}
		}
		// The lead-time window applies to paid appointments only; free
		// bookings may be cancelled any time before start.
		if appt.IsPaid && hoursLeft < float64(appt.CancellationLeadHours) {
			return nil, &PolicyError{HoursLeft: hoursLeft, LeadHours: appt.CancellationLeadHours}
		}
	}

	cancelled, err := s.repo.CancelBooking(ctx, booking.ID, s.nowFunc())
	if errors.Is(err, ErrAlreadyCancelled) {
		// Lost a race with another cancel; same no-op success.
		return s.repo.GetBooking(ctx, booking.ID)
	}
	if err != nil {
		return nil, err
	}

	s.emit(events.Event{
		Type:          events.BookingCancelled,
		AppointmentID: cancelled.AppointmentID,
		BookingID:     cancelled.ID,
	})

	return cancelled, nil
}

// CompleteFinishedBookings is called by the completion worker to move
// confirmed bookings past their end time to completed.
func (s *Service) CompleteFinishedBookings(ctx context.Context) (int64, error) {
	n, err := s.repo.CompleteFinishedBookings(ctx, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("complete finished bookings: %w", err)
	}
	if n > 0 {
		s.logger.Info("completed finished bookings", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) loadReachable(ctx context.Context, req BookingRequest) (*AppointmentType, error) {
	if req.SecretLink != "" {
		appt, err := s.repo.GetAppointmentTypeByLink(ctx, req.SecretLink)
		if err != nil {
			return nil, err
		}
		if err := validateLink(appt, s.nowFunc()); err != nil {
			return nil, err
		}
		return appt, nil
	}

	appt, err := s.repo.GetAppointmentType(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.IsPublished {
		return nil, ErrNotBookable
	}
	return appt, nil
}

// checkWithinSchedule rejects requests whose full [start,end) interval does
// not fit the bookable window of that day, aligned to a slot boundary.
func (s *Service) checkWithinSchedule(appt *AppointmentType, start, end time.Time) error {
	window, open, err := ResolveDayWindow(appt.WeeklySchedule, start)
	if err != nil {
		return fmt.Errorf("resolve day window: %w", err)
	}
	if !open {
		return ErrOutsideBookableHours
	}
	if start.Before(window.Start) || end.After(window.End) {
		return ErrOutsideBookableHours
	}
	offset := start.Sub(window.Start)
	if offset%appt.SlotDuration() != 0 {
		return ErrOutsideBookableHours
	}
	return nil
}

func (s *Service) emit(ev events.Event) {
	if s.emitter == nil {
		return
	}
	ev.OccurredAt = s.nowFunc()
	s.emitter.Emit(ev)
}

func validateLink(appt *AppointmentType, now time.Time) error {
	link := appt.SecretLink
	if link == nil {
		return ErrNotBookable
	}
	if link.ExpiryTime != nil && now.After(*link.ExpiryTime) {
		return ErrLinkExpired
	}
	if link.ExpiryCapacity != nil && appt.BookingsCount >= *link.ExpiryCapacity {
		return ErrLinkCapacityReached
	}
	return nil
}

func validateSlotCount(appt *AppointmentType, n int) error {
	if n == 1 {
		return nil
	}
	if !appt.AllowMultipleSlots {
		return &SlotCountError{Requested: n, Max: 1}
	}
	if appt.MaxSlotsPerBooking != nil && n > *appt.MaxSlotsPerBooking {
		return &SlotCountError{Requested: n, Max: *appt.MaxSlotsPerBooking}
	}
	return nil
}

func admissionLockKey(appt *AppointmentType, req BookingRequest) string {
	switch {
	case appt.BookMode == BookByResource:
		return "resource:" + req.ResourceID.String()
	case appt.AssignmentMode == AssignByVisitor:
		return "provider:" + req.ProviderID.String()
	default:
		// Automatic assignment: the provider is unknown until selection,
		// so serialize on the appointment type.
		return "appointment:" + appt.ID.String()
	}
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
