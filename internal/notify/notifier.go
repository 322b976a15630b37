// Package notify delivers slot-offer messages to visitors promoted off a
// waitlist. At-least-once delivery is acceptable; the state machine applies
// the notified transition exactly once regardless of delivery outcome.
package notify

import (
	"context"
	"log"
	"time"
)

// Notifier is the send-one-message collaborator consumed by the waitlist
// service.
type Notifier interface {
	Notify(ctx context.Context, visitorEmail, scopeKey string, expiresAt time.Time) error
}

// SlotOfferEvent is the payload published for a promoted waitlist entry.
type SlotOfferEvent struct {
	VisitorEmail string    `json:"visitor_email"`
	ScopeKey     string    `json:"scope_key"`
	ExpiresAt    time.Time `json:"expires_at"`
	OfferedAt    time.Time `json:"offered_at"`
}

// LogNotifier writes offers to the process log. Used in dev and as the
// fallback when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, visitorEmail, scopeKey string, expiresAt time.Time) error {
	log.Printf("slot offer: visitor=%s scope=%s expires_at=%s", visitorEmail, scopeKey, expiresAt.Format(time.RFC3339))
	return nil
}
