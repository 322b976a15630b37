package schedule

import (
	"testing"
	"time"
)

func TestResolveLocalInstant_StandardTime(t *testing.T) {
	// Sydney in June: AEST, UTC+10.
	got, err := ResolveLocalInstant("2025-06-16", 9, 0, "Australia/Sydney")
	if err != nil {
		t.Fatalf("ResolveLocalInstant: %v", err)
	}
	want := time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestResolveLocalInstant_DaylightSaving(t *testing.T) {
	// Sydney in January: AEDT, UTC+11.
	got, err := ResolveLocalInstant("2025-01-06", 9, 0, "Australia/Sydney")
	if err != nil {
		t.Fatalf("ResolveLocalInstant: %v", err)
	}
	want := time.Date(2025, 1, 5, 22, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestResolveLocalInstant_SpringForwardGapNormalizes(t *testing.T) {
	// Sydney DST begins 2025-10-05: 02:00 jumps to 03:00. A wall time
	// inside the gap rolls forward rather than erroring.
	got, err := ResolveLocalInstant("2025-10-05", 2, 30, "Australia/Sydney")
	if err != nil {
		t.Fatalf("ResolveLocalInstant: %v", err)
	}
	if got.Hour() != 3 || got.Minute() != 30 {
		t.Fatalf("expected gap time to normalize to 03:30 local, got %02d:%02d", got.Hour(), got.Minute())
	}
}

func TestResolveLocalInstant_BadInput(t *testing.T) {
	if _, err := ResolveLocalInstant("2025-06-16", 9, 0, "Not/AZone"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if _, err := ResolveLocalInstant("16/06/2025", 9, 0, "UTC"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestDayOfWeek(t *testing.T) {
	cases := []struct {
		date     string
		timezone string
		want     int
	}{
		{"2025-06-15", "UTC", 0},                 // Sunday
		{"2025-06-16", "Australia/Sydney", 1},    // Monday
		{"2025-06-20", "America/Los_Angeles", 5}, // Friday
		{"2025-06-21", "Pacific/Auckland", 6},    // Saturday
	}

	for _, tc := range cases {
		got, err := DayOfWeek(tc.date, tc.timezone)
		if err != nil {
			t.Fatalf("DayOfWeek(%s, %s): %v", tc.date, tc.timezone, err)
		}
		if got != tc.want {
			t.Fatalf("DayOfWeek(%s, %s) = %d, want %d", tc.date, tc.timezone, got, tc.want)
		}
	}
}
