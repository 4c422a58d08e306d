package booking

import (
	"iter"
	"time"
)

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect: aStart < bEnd && bStart < aEnd.
//
// Every interval comparison in this package goes through this rule so that
// back-to-back bookings never count as conflicting.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Slot is a single bookable candidate interval, half-open [Start,End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the slot intersects [start,end).
func (s Slot) Overlaps(start, end time.Time) bool {
	return Overlaps(s.Start, s.End, start, end)
}

// OverlapsBooking reports whether the slot intersects a booking's interval.
func (s Slot) OverlapsBooking(b *Booking) bool {
	return Overlaps(s.Start, s.End, b.StartTime, b.EndTime)
}

// Slots tiles the window into fixed-duration candidate slots. The sequence
// is lazy, finite and restartable; a slot is emitted only when it fits
// entirely inside the window, so no partial trailing slot appears.
func (w Window) Slots(duration time.Duration) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if duration <= 0 {
			return
		}
		for start := w.Start; !start.Add(duration).After(w.End); start = start.Add(duration) {
			if !yield(Slot{Start: start, End: start.Add(duration)}) {
				return
			}
		}
	}
}

// SubSlots splits a multi-slot reservation starting at start into its n
// contiguous sub-slots of the given duration. Each sub-slot must satisfy
// capacity independently.
func SubSlots(start time.Time, n int, duration time.Duration) []Slot {
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		s := start.Add(time.Duration(i) * duration)
		slots = append(slots, Slot{Start: s, End: s.Add(duration)})
	}
	return slots
}
