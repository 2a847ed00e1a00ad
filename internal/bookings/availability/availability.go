// Package availability decides whether a car is free for a date range.
// It performs no I/O; callers pass in the car's complete booking set.
package availability

import "carrental/pkg/model"

// Overlaps reports whether two closed date ranges share at least one day.
// A range ending on day X and another starting on day X overlap.
func Overlaps(a, b model.DateRange) bool {
	return !(a.End.Before(b.Start) || a.Start.After(b.End))
}

// IsAvailable is a full scan over existing; an empty set is always available.
func IsAvailable(existing []*model.Booking, query model.DateRange) bool {
	return FirstConflict(existing, query) == nil
}

// FirstConflict returns the first booking in existing that overlaps query, or nil.
func FirstConflict(existing []*model.Booking, query model.DateRange) *model.Booking {
	for _, b := range existing {
		if Overlaps(b.Range(), query) {
			return b
		}
	}
	return nil
}
