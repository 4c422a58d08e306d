package booking

import (
	"sort"

	"github.com/google/uuid"
)

// The capacity evaluator is pure: callers load the relevant active bookings
// (and provider loads for automatic assignment) and the functions here do
// interval arithmetic only. Admission re-runs these under a lock; the
// availability endpoint runs them lock-free and tolerates stale reads.

// ResourceRemaining is the resource's capacity minus the number of active
// bookings on it that overlap the slot. Never negative.
func ResourceRemaining(res *Resource, slot Slot, active []Booking) int {
	used := 0
	for i := range active {
		b := &active[i]
		if !b.Active() || b.ResourceID == nil || *b.ResourceID != res.ID {
			continue
		}
		if slot.OverlapsBooking(b) {
			used++
		}
	}
	if used >= res.Capacity {
		return 0
	}
	return res.Capacity - used
}

// AggregateResourceRemaining is the summed capacity of all resources minus
// all overlapping active bookings across them. Display only; admission
// always works against one concrete resource.
func AggregateResourceRemaining(resources []Resource, slot Slot, active []Booking) int {
	total := 0
	byID := make(map[uuid.UUID]bool, len(resources))
	for _, r := range resources {
		total += r.Capacity
		byID[r.ID] = true
	}

	used := 0
	for i := range active {
		b := &active[i]
		if !b.Active() || b.ResourceID == nil || !byID[*b.ResourceID] {
			continue
		}
		if slot.OverlapsBooking(b) {
			used++
		}
	}
	if used >= total {
		return 0
	}
	return total - used
}

// ProviderFree reports whether the provider has no active booking
// overlapping the slot. Providers have a binary capacity of one.
func ProviderFree(providerID uuid.UUID, slot Slot, active []Booking) bool {
	for i := range active {
		b := &active[i]
		if !b.Active() || b.ProviderID == nil || *b.ProviderID != providerID {
			continue
		}
		if slot.OverlapsBooking(b) {
			return false
		}
	}
	return true
}

// AggregateProviderRemaining counts how many of the allowed providers are
// free in the slot. Display only.
func AggregateProviderRemaining(providers []uuid.UUID, slot Slot, active []Booking) int {
	free := 0
	for _, id := range providers {
		if ProviderFree(id, slot, active) {
			free++
		}
	}
	return free
}

// PickProvider selects a provider for automatic assignment: allowed
// providers are visited in ascending order of their current active-booking
// count, ties broken by their position in the allowed list, and the first
// provider free in every sub-slot wins. The greedy load-balancing order is
// part of the contract, not an optimization.
func PickProvider(providers []uuid.UUID, loads map[uuid.UUID]int, slots []Slot, active []Booking) (uuid.UUID, bool) {
	ordered := make([]uuid.UUID, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return loads[ordered[i]] < loads[ordered[j]]
	})

	for _, id := range ordered {
		free := true
		for _, slot := range slots {
			if !ProviderFree(id, slot, active) {
				free = false
				break
			}
		}
		if free {
			return id, true
		}
	}
	return uuid.Nil, false
}
