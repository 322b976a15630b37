package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates throughout the engine.
const DateLayout = "2006-01-02"

// ResolveLocalInstant converts a wall-clock local time in a named IANA
// timezone to an absolute instant, DST included.
//
// Wall times that fall inside a spring-forward gap normalize forward (02:30
// during a +1h transition resolves to 03:30); ambiguous fall-back times
// resolve to the first occurrence. Both follow time.Date semantics.
func ResolveLocalInstant(date string, hour, minute int, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// DayOfWeek returns the weekday index (Sunday=0) of a calendar date as
// observed in the given timezone.
func DayOfWeek(date string, timezone string) (int, error) {
	// Anchor at noon so the weekday cannot shift across a midnight DST edge.
	noon, err := ResolveLocalInstant(date, 12, 0, timezone)
	if err != nil {
		return 0, err
	}
	return int(noon.Weekday()), nil
}
