package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/notify"
	redisclient "github.com/slotwise/booking-engine/internal/redis"
)

const (
	EventEntryJoined   = "WAITLIST_JOINED"
	EventEntryNotified = "WAITLIST_NOTIFIED"
	EventEntryBooked   = "WAITLIST_BOOKED"
	EventEntryExpired  = "WAITLIST_EXPIRED"
)

var (
	ErrDuplicateEntry    = errors.New("visitor already on waitlist for this scope")
	ErrInvalidTransition = errors.New("invalid waitlist status transition")
	ErrScopeBusy         = errors.New("scope is busy, please retry")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	window   time.Duration

	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, notificationWindow time.Duration) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		window:   notificationWindow,
		now:      time.Now,
	}
}

// Join adds a visitor to the scope's queue in waiting status. The position
// is assigned under the scope lock so concurrent joins cannot collide.
func (s *Service) Join(ctx context.Context, tenantID uuid.UUID, scopeKey, visitorEmail, visitorName string) (*Entry, error) {
	var created *Entry

	err := s.locker.WithScopeLock(ctx, tenantID, scopeKey, func(lockCtx context.Context) error {
		existing, err := s.repo.FindActiveByVisitor(lockCtx, tenantID, scopeKey, visitorEmail)
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			return fmt.Errorf("check existing entry: %w", err)
		}
		if existing != nil {
			return ErrDuplicateEntry
		}

		entry, err := s.repo.CreateWaitingEntry(lockCtx, tenantID, scopeKey, visitorEmail, visitorName, s.now())
		if err != nil {
			return fmt.Errorf("create waiting entry: %w", err)
		}
		created = entry

		s.logEvent(lockCtx, entry.ID, EventEntryJoined, map[string]any{
			"tenant_id": tenantID.String(),
			"scope_key": scopeKey,
			"position":  entry.Position,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScopeBusy
		}
		return nil, err
	}

	return created, nil
}

// PromoteNext offers freed capacity to the lowest-position waiting entry.
// No-op when the queue is empty or an offer is already outstanding; the
// scope never carries more than one notified entry.
func (s *Service) PromoteNext(ctx context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error) {
	var promoted *Entry

	err := s.locker.WithScopeLock(ctx, tenantID, scopeKey, func(lockCtx context.Context) error {
		var err error
		promoted, err = s.promoteLocked(lockCtx, tenantID, scopeKey)
		return err
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScopeBusy
		}
		return nil, err
	}

	return promoted, nil
}

// promoteLocked runs the promotion step. Callers must hold the scope lock.
func (s *Service) promoteLocked(ctx context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error) {
	outstanding, err := s.repo.FindNotified(ctx, tenantID, scopeKey)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return nil, fmt.Errorf("check outstanding offer: %w", err)
	}
	if outstanding != nil {
		return nil, nil
	}

	next, err := s.repo.FirstWaiting(ctx, tenantID, scopeKey)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find first waiting entry: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.window)

	promoted, err := s.repo.MarkNotified(ctx, next.ID, now, expiresAt)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			// The conditional write refused: a concurrent caller got its
			// offer in first. A lost race, not a missing entry.
			return nil, ErrScopeBusy
		}
		return nil, fmt.Errorf("mark entry notified: %w", err)
	}

	s.logEvent(ctx, promoted.ID, EventEntryNotified, map[string]any{
		"tenant_id":  tenantID.String(),
		"scope_key":  scopeKey,
		"expires_at": expiresAt,
	})

	// Delivery is at-least-once; a failed send does not roll back the
	// transition, it is retried by downstream tooling off the event log.
	if err := s.notifier.Notify(ctx, promoted.VisitorEmail, scopeKey, expiresAt); err != nil {
		log.Printf("failed to notify visitor %s for scope %s: %v", promoted.VisitorEmail, scopeKey, err)
	}

	return promoted, nil
}

// ConfirmBooking converts an outstanding offer into a booking. Valid only
// from notified; anything else is an integration error.
func (s *Service) ConfirmBooking(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	entry, err := s.repo.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}

	if entry.Status != StatusNotified {
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, entry.Status)
	}

	var booked *Entry

	err = s.locker.WithScopeLock(ctx, entry.TenantID, entry.ScopeKey, func(lockCtx context.Context) error {
		updated, err := s.repo.MarkBooked(lockCtx, entryID, s.now())
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				// Lost the race with the sweep: the offer expired first.
				return fmt.Errorf("%w: offer no longer open", ErrInvalidTransition)
			}
			return fmt.Errorf("mark entry booked: %w", err)
		}
		booked = updated

		s.logEvent(lockCtx, updated.ID, EventEntryBooked, map[string]any{
			"tenant_id": updated.TenantID.String(),
			"scope_key": updated.ScopeKey,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScopeBusy
		}
		return nil, err
	}

	return booked, nil
}

// ExpireStale retires the scope's notified entry once its window has passed
// and immediately promotes the next waiting entry, as one step under the
// scope lock so the queue never stalls.
func (s *Service) ExpireStale(ctx context.Context, tenantID uuid.UUID, scopeKey string, now time.Time) error {
	err := s.locker.WithScopeLock(ctx, tenantID, scopeKey, func(lockCtx context.Context) error {
		outstanding, err := s.repo.FindNotified(lockCtx, tenantID, scopeKey)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				return nil
			}
			return fmt.Errorf("find notified entry: %w", err)
		}

		if outstanding.ExpiresAt == nil || outstanding.ExpiresAt.After(now) {
			return nil
		}

		expired, err := s.repo.MarkExpired(lockCtx, outstanding.ID, now)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				// Already booked or expired by a concurrent caller.
				return nil
			}
			return fmt.Errorf("mark entry expired: %w", err)
		}

		s.logEvent(lockCtx, expired.ID, EventEntryExpired, map[string]any{
			"tenant_id": tenantID.String(),
			"scope_key": scopeKey,
			"reason":    "notification window elapsed",
		})

		_, err = s.promoteLocked(lockCtx, tenantID, scopeKey)
		return err
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrScopeBusy
		}
		return err
	}

	return nil
}

// ActiveScopes lists every scope with outstanding entries, for the sweep.
func (s *Service) ActiveScopes(ctx context.Context) ([]Scope, error) {
	scopes, err := s.repo.ListActiveScopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active scopes: %w", err)
	}
	return scopes, nil
}

func (s *Service) logEvent(ctx context.Context, entryID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	id := entryID

	ev := EventLog{
		EventType: eventType,
		EntryID:   &id,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for entry %s: %v", eventType, entryID, err)
	}
}
