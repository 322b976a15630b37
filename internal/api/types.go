package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/refund"
	"github.com/slotwise/booking-engine/internal/schedule"
)

type GenerateSlotsRequest struct {
	Date           string                 `json:"date"`
	Config         schedule.BookingConfig `json:"config"`
	ExistingEvents []ExistingEventPayload `json:"existing_events"`
}

type ExistingEventPayload struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type GenerateSlotsResponse struct {
	Date  string              `json:"date"`
	Slots []schedule.TimeSlot `json:"slots"`
}

type VisitorRefundRequest struct {
	PaidAmountCents int64                     `json:"paid_amount_cents"`
	EventStartTime  time.Time                 `json:"event_start_time"`
	Config          refund.CancellationConfig `json:"config"`
}

type TenantRefundRequest struct {
	PaidAmountCents int64 `json:"paid_amount_cents"`
}

type JoinWaitlistRequest struct {
	TenantID     string `json:"tenant_id"`
	ScopeKey     string `json:"scope_key"`
	VisitorEmail string `json:"visitor_email"`
	VisitorName  string `json:"visitor_name"`
}

type CapacityFreedRequest struct {
	TenantID string `json:"tenant_id"`
	ScopeKey string `json:"scope_key"`
}

type WaitlistEntryResponse struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	ScopeKey     string     `json:"scope_key"`
	VisitorEmail string     `json:"visitor_email"`
	VisitorName  string     `json:"visitor_name"`
	Position     int        `json:"position"`
	Status       string     `json:"status"`
	NotifiedAt   *time.Time `json:"notified_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	BookedAt     *time.Time `json:"booked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
