package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Deliver(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) delivered() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	d := NewDispatcher(zap.NewNop(), 16, first, second)

	ev := Event{Type: BookingCreated, AppointmentID: uuid.New(), BookingID: uuid.New()}
	d.Emit(ev)
	d.Close()

	require.Len(t, first.delivered(), 1)
	require.Len(t, second.delivered(), 1)
	got := first.delivered()[0]
	assert.Equal(t, ev.BookingID, got.BookingID)
	assert.False(t, got.OccurredAt.IsZero(), "Emit must stamp OccurredAt")
}

func TestDispatcherSinkErrorDoesNotStopOthers(t *testing.T) {
	failing := &recordingSink{err: errors.New("sink down")}
	healthy := &recordingSink{}
	d := NewDispatcher(zap.NewNop(), 16, failing, healthy)

	d.Emit(Event{Type: BookingCancelled, BookingID: uuid.New()})
	d.Close()

	assert.Len(t, failing.delivered(), 1)
	assert.Len(t, healthy.delivered(), 1)
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(zap.NewNop(), 64, sink)

	for i := 0; i < 10; i++ {
		d.Emit(Event{Type: BookingCreated, BookingID: uuid.New()})
	}
	d.Close()

	assert.Len(t, sink.delivered(), 10)
}

func TestDispatcherNoSinks(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 0)
	d.Emit(Event{Type: BookingCreated, BookingID: uuid.New()})
	d.Close()
}
