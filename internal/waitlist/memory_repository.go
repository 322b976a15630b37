package waitlist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for unit tests and local runs
// without Postgres. It honors the same conditional-write semantics as the
// Postgres implementation.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	events  []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries: make(map[uuid.UUID]*Entry),
	}
}

func (r *MemoryRepository) GetEntryByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *MemoryRepository) FindActiveByVisitor(_ context.Context, tenantID uuid.UUID, scopeKey, visitorEmail string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ScopeKey == scopeKey && e.VisitorEmail == visitorEmail &&
			(e.Status == StatusWaiting || e.Status == StatusNotified) {
			clone := *e
			return &clone, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (r *MemoryRepository) CreateWaitingEntry(_ context.Context, tenantID uuid.UUID, scopeKey, visitorEmail, visitorName string, createdAt time.Time) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	maxPos := 0
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ScopeKey == scopeKey && e.Position > maxPos {
			maxPos = e.Position
		}
	}

	entry := &Entry{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ScopeKey:     scopeKey,
		VisitorEmail: visitorEmail,
		VisitorName:  visitorName,
		Position:     maxPos + 1,
		Status:       StatusWaiting,
		CreatedAt:    createdAt,
	}
	r.entries[entry.ID] = entry

	clone := *entry
	return &clone, nil
}

func (r *MemoryRepository) FirstWaiting(_ context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first *Entry
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ScopeKey != scopeKey || e.Status != StatusWaiting {
			continue
		}
		if first == nil || e.Position < first.Position {
			first = e
		}
	}
	if first == nil {
		return nil, ErrEntryNotFound
	}
	clone := *first
	return &clone, nil
}

func (r *MemoryRepository) FindNotified(_ context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ScopeKey == scopeKey && e.Status == StatusNotified {
			clone := *e
			return &clone, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (r *MemoryRepository) MarkNotified(_ context.Context, id uuid.UUID, notifiedAt, expiresAt time.Time) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.Status != StatusWaiting {
		return nil, ErrEntryNotFound
	}
	for _, other := range r.entries {
		if other.TenantID == e.TenantID && other.ScopeKey == e.ScopeKey && other.Status == StatusNotified {
			return nil, ErrEntryNotFound
		}
	}

	na, xa := notifiedAt, expiresAt
	e.Status = StatusNotified
	e.NotifiedAt = &na
	e.ExpiresAt = &xa

	clone := *e
	return &clone, nil
}

func (r *MemoryRepository) MarkBooked(_ context.Context, id uuid.UUID, bookedAt time.Time) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.Status != StatusNotified {
		return nil, ErrEntryNotFound
	}

	ba := bookedAt
	e.Status = StatusBooked
	e.BookedAt = &ba

	clone := *e
	return &clone, nil
}

func (r *MemoryRepository) MarkExpired(_ context.Context, id uuid.UUID, now time.Time) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.Status != StatusNotified || e.ExpiresAt == nil || e.ExpiresAt.After(now) {
		return nil, ErrEntryNotFound
	}

	e.Status = StatusExpired

	clone := *e
	return &clone, nil
}

func (r *MemoryRepository) ListActiveScopes(_ context.Context) ([]Scope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[Scope]bool)
	for _, e := range r.entries {
		if e.Status == StatusWaiting || e.Status == StatusNotified {
			seen[Scope{TenantID: e.TenantID, ScopeKey: e.ScopeKey}] = true
		}
	}

	scopes := make([]Scope, 0, len(seen))
	for s := range seen {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].TenantID != scopes[j].TenantID {
			return scopes[i].TenantID.String() < scopes[j].TenantID.String()
		}
		return scopes[i].ScopeKey < scopes[j].ScopeKey
	})

	return scopes, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
