package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig = errors.New("invalid booking config")
)

// DaySchedule is one day's working-hours window. Hours are local to the
// tenant's timezone.
type DaySchedule struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
}

// WeeklySchedule holds one DaySchedule per weekday, Sunday first. The index
// matches time.Weekday.
type WeeklySchedule [7]DaySchedule

// BookingConfig is a tenant's slot-generation settings. It is read-only to
// the engine; mutations happen through tenant configuration updates, which
// must call Validate before persisting.
type BookingConfig struct {
	Timezone            string         `json:"timezone"`
	SlotDurationMinutes int            `json:"slot_duration_minutes"`
	WeeklySchedule      WeeklySchedule `json:"weekly_schedule"`
}

// Validate rejects malformed configs so the slot-generation hot path never
// has to. Errors wrap ErrInvalidConfig.
func (c BookingConfig) Validate() error {
	if c.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfig, c.SlotDurationMinutes)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, c.Timezone)
	}
	for day, ds := range c.WeeklySchedule {
		if !ds.Enabled {
			continue
		}
		if ds.StartHour < 0 || ds.StartHour >= 24 || ds.EndHour < 0 || ds.EndHour > 24 {
			return fmt.Errorf("%w: day %d hours out of range (%d-%d)", ErrInvalidConfig, day, ds.StartHour, ds.EndHour)
		}
		if ds.StartHour >= ds.EndHour {
			return fmt.Errorf("%w: day %d start hour %d not before end hour %d", ErrInvalidConfig, day, ds.StartHour, ds.EndHour)
		}
	}
	return nil
}

// TimeSlot is a bookable window. Computed on demand, never persisted.
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}

// ExistingEvent is any calendar entry that can conflict with a slot.
// Filtering by status (e.g. dropping cancelled events) is the caller's job
// before invocation.
type ExistingEvent struct {
	StartTime time.Time
	EndTime   time.Time
}
