package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound = errors.New("waitlist entry not found")
)

// Repository contains all store interactions needed by the service. The
// Mark* transitions are conditional writes: they apply only when the entry
// is still in the expected source state, and return ErrEntryNotFound when
// the condition does not hold.
type Repository interface {
	GetEntryByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// FindActiveByVisitor returns a waiting or notified entry for the
	// visitor in the scope, if one exists.
	FindActiveByVisitor(ctx context.Context, tenantID uuid.UUID, scopeKey, visitorEmail string) (*Entry, error)

	// CreateWaitingEntry inserts a new waiting entry, assigning the next
	// free position within the scope.
	CreateWaitingEntry(ctx context.Context, tenantID uuid.UUID, scopeKey, visitorEmail, visitorName string, createdAt time.Time) (*Entry, error)

	// FirstWaiting returns the lowest-position waiting entry in the scope.
	FirstWaiting(ctx context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error)

	// FindNotified returns the scope's single notified entry, if any.
	FindNotified(ctx context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error)

	// MarkNotified transitions waiting -> notified. Refuses when another
	// entry in the scope is already notified.
	MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt, expiresAt time.Time) (*Entry, error)

	// MarkBooked transitions notified -> booked.
	MarkBooked(ctx context.Context, id uuid.UUID, bookedAt time.Time) (*Entry, error)

	// MarkExpired transitions notified -> expired, only once the entry's
	// expiry has passed.
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (*Entry, error)

	// ListActiveScopes returns every scope with outstanding waiting or
	// notified entries. Used by the sweep; eventual consistency is fine.
	ListActiveScopes(ctx context.Context) ([]Scope, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
