package booking

import (
	"fmt"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// WeekdayName returns the uppercase schedule name for a weekday.
func WeekdayName(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "SUNDAY"
	case time.Monday:
		return "MONDAY"
	case time.Tuesday:
		return "TUESDAY"
	case time.Wednesday:
		return "WEDNESDAY"
	case time.Thursday:
		return "THURSDAY"
	case time.Friday:
		return "FRIDAY"
	default:
		return "SATURDAY"
	}
}

// ParseClock parses a zero-padded 24h "HH:MM" string into minutes since
// midnight. Values like "9:00" are rejected: the stored schedule format is
// compared as text elsewhere in the stack and only zero-padded times order
// correctly.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock time %q, want zero-padded HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Window is a concrete half-open [Start,End) bookable interval on a
// calendar date.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveDayWindow maps date's weekday to the matching weekly schedule
// entry and anchors it on that calendar date in date's location. The second
// return is false when the appointment type is closed on that day.
//
// When the schedule carries more than one entry for the same day the first
// one wins; per-day uniqueness is a write-side concern, not enforced here.
func ResolveDayWindow(schedule []ScheduleEntry, date time.Time) (Window, bool, error) {
	name := WeekdayName(date.Weekday())

	for _, entry := range schedule {
		if entry.Day != name {
			continue
		}

		from, err := ParseClock(entry.From)
		if err != nil {
			return Window{}, false, fmt.Errorf("schedule entry for %s: %w", entry.Day, err)
		}
		to, err := ParseClock(entry.To)
		if err != nil {
			return Window{}, false, fmt.Errorf("schedule entry for %s: %w", entry.Day, err)
		}
		if from >= to {
			return Window{}, false, fmt.Errorf("schedule entry for %s: from %q is not before to %q", entry.Day, entry.From, entry.To)
		}

		midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		return Window{
			Start: midnight.Add(time.Duration(from) * time.Minute),
			End:   midnight.Add(time.Duration(to) * time.Minute),
		}, true, nil
	}

	return Window{}, false, nil
}

// ValidateSchedule checks every entry of a weekly schedule for a known day
// name, parseable zero-padded times, and from < to.
func ValidateSchedule(schedule []ScheduleEntry) error {
	for i, entry := range schedule {
		if _, ok := weekdayNames[entry.Day]; !ok {
			return fmt.Errorf("schedule entry %d: unknown day %q", i, entry.Day)
		}
		from, err := ParseClock(entry.From)
		if err != nil {
			return fmt.Errorf("schedule entry %d: %w", i, err)
		}
		to, err := ParseClock(entry.To)
		if err != nil {
			return fmt.Errorf("schedule entry %d: %w", i, err)
		}
		if from >= to {
			return fmt.Errorf("schedule entry %d: from %q is not before to %q", i, entry.From, entry.To)
		}
	}
	return nil
}
