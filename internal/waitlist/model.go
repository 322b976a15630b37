package waitlist

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusNotified Status = "notified"
	StatusBooked   Status = "booked"
	StatusExpired  Status = "expired"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusBooked || s == StatusExpired
}

// Entry is one visitor's place in a scope's FIFO queue. ScopeKey is either a
// "YYYY-MM-DD" date or a product ID, depending on what capacity is being
// waited for. Position is 1-based and unique within (TenantID, ScopeKey).
type Entry struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ScopeKey     string
	VisitorEmail string
	VisitorName  string
	Position     int
	Status       Status
	NotifiedAt   *time.Time
	ExpiresAt    *time.Time
	BookedAt     *time.Time
	CreatedAt    time.Time
}

// Scope identifies one independent waitlist partition.
type Scope struct {
	TenantID uuid.UUID
	ScopeKey string
}

type EventLog struct {
	ID        int64
	EventType string
	EntryID   *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
