package schedule

import (
	"fmt"
	"time"
)

// GenerateSlots produces the ordered bookable slots for one calendar date.
// A disabled day yields an empty list, not an error. Slots starting at or
// before now are dropped entirely; slots colliding with an existing event
// are returned but marked unavailable.
//
// Pure function of its arguments: no hidden state, no I/O, identical inputs
// give identical output.
func GenerateSlots(date string, cfg BookingConfig, existingEvents []ExistingEvent, now time.Time) ([]TimeSlot, error) {
	weekday, err := DayOfWeek(date, cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolve weekday: %w", err)
	}

	day := cfg.WeeklySchedule[weekday]
	if !day.Enabled {
		return nil, nil
	}

	startMin := day.StartHour * 60
	endMin := day.EndHour * 60
	dur := cfg.SlotDurationMinutes

	var slots []TimeSlot
	// A trailing slot that would overrun the window is never emitted.
	for offset := startMin; offset+dur <= endMin; offset += dur {
		slotStart, err := ResolveLocalInstant(date, offset/60, offset%60, cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("resolve slot start: %w", err)
		}
		endOffset := offset + dur
		slotEnd, err := ResolveLocalInstant(date, endOffset/60, endOffset%60, cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("resolve slot end: %w", err)
		}

		// Past slots are invisible, not merely unavailable.
		if !slotStart.After(now) {
			continue
		}

		slots = append(slots, TimeSlot{
			StartTime: slotStart,
			EndTime:   slotEnd,
			Available: !overlapsAny(slotStart, slotEnd, existingEvents),
		})
	}

	return slots, nil
}

// overlapsAny reports whether [start,end) intersects any event. Half-open
// intervals: back-to-back events do not conflict.
func overlapsAny(start, end time.Time, events []ExistingEvent) bool {
	for _, ev := range events {
		if start.Before(ev.EndTime) && ev.StartTime.Before(end) {
			return true
		}
	}
	return false
}
