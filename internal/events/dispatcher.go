package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	BookingCreated   Type = "BOOKING_CREATED"
	BookingCancelled Type = "BOOKING_CANCELLED"
)

// Event is what the notification subsystem consumes. It carries ids only;
// subscribers load whatever detail they need.
type Event struct {
	Type          Type
	AppointmentID uuid.UUID
	BookingID     uuid.UUID
	OccurredAt    time.Time
	Payload       map[string]any
}

// Sink receives events. Delivery failures are logged and dropped; they must
// never affect the booking that produced the event.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher fans events out to its sinks from a background goroutine.
// Emit never blocks: when the queue is full the event is dropped with a
// warning rather than slowing down admission.
type Dispatcher struct {
	logger *zap.Logger
	queue  chan Event
	sinks  []Sink
	wg     sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 128
	}

	d := &Dispatcher{
		logger: logger,
		queue:  make(chan Event, buffer),
		sinks:  sinks,
	}

	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		for _, sink := range d.sinks {
			if err := sink.Deliver(ctx, ev); err != nil {
				d.logger.Warn("event delivery failed",
					zap.String("type", string(ev.Type)),
					zap.String("booking_id", ev.BookingID.String()),
					zap.Error(err))
			}
		}
		cancel()
	}
}

func (d *Dispatcher) Emit(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("booking_id", ev.BookingID.String()))
	}
}

// Close drains the queue and stops the worker. Call on shutdown only.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}
