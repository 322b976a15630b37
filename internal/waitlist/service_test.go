package waitlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// localLocker serializes callbacks per scope with in-process mutexes,
// standing in for the Redis locker.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) WithScopeLock(ctx context.Context, tenantID uuid.UUID, scopeKey string, fn func(ctx context.Context) error) error {
	key := tenantID.String() + ":" + scopeKey
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type recordedOffer struct {
	VisitorEmail string
	ScopeKey     string
	ExpiresAt    time.Time
}

type recordingNotifier struct {
	mu     sync.Mutex
	offers []recordedOffer
}

func (n *recordingNotifier) Notify(_ context.Context, visitorEmail, scopeKey string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offers = append(n.offers, recordedOffer{visitorEmail, scopeKey, expiresAt})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.offers)
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *recordingNotifier, *time.Time) {
	t.Helper()

	repo := NewMemoryRepository()
	notifier := &recordingNotifier{}
	svc := NewService(repo, newLocalLocker(), notifier, 30*time.Minute)

	now := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, repo, notifier, &now
}

var (
	testTenant = uuid.MustParse("3d9f2c6e-8a41-4b7a-9f13-2f6f0d1c5a77")
	testScope  = "2025-07-01"
)

func TestJoinAssignsFIFOPositions(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for i, email := range emails {
		entry, err := svc.Join(ctx, testTenant, testScope, email, "Visitor")
		if err != nil {
			t.Fatalf("join %s: %v", email, err)
		}
		if entry.Position != i+1 {
			t.Fatalf("expected position %d for %s, got %d", i+1, email, entry.Position)
		}
		if entry.Status != StatusWaiting {
			t.Fatalf("new entry should be waiting, got %s", entry.Status)
		}
	}
}

func TestJoinRejectsDuplicate(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, testTenant, testScope, "a@example.com", "A"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	// The same visitor may queue in a different scope.
	if _, err := svc.Join(ctx, testTenant, "2025-07-02", "a@example.com", "A"); err != nil {
		t.Fatalf("join in other scope: %v", err)
	}
}

func TestPromoteNextNotifiesFirstWaiting(t *testing.T) {
	svc, _, notifier, now := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	svc.Join(ctx, testTenant, testScope, "b@example.com", "B")

	promoted, err := svc.PromoteNext(ctx, testTenant, testScope)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted == nil || promoted.ID != a.ID {
		t.Fatalf("expected entry A promoted, got %+v", promoted)
	}
	if promoted.Status != StatusNotified {
		t.Fatalf("expected notified, got %s", promoted.Status)
	}
	if promoted.NotifiedAt == nil || !promoted.NotifiedAt.Equal(*now) {
		t.Fatalf("notifiedAt not set to now: %+v", promoted.NotifiedAt)
	}
	wantExpiry := now.Add(30 * time.Minute)
	if promoted.ExpiresAt == nil || !promoted.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %+v", wantExpiry, promoted.ExpiresAt)
	}
	if notifier.count() != 1 || notifier.offers[0].VisitorEmail != "a@example.com" {
		t.Fatalf("expected one offer to A, got %+v", notifier.offers)
	}
}

func TestPromoteNextEmptyScopeIsNoOp(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)

	promoted, err := svc.PromoteNext(context.Background(), testTenant, testScope)
	if err != nil {
		t.Fatalf("promote on empty scope: %v", err)
	}
	if promoted != nil {
		t.Fatalf("expected no promotion, got %+v", promoted)
	}
	if notifier.count() != 0 {
		t.Fatal("no offer should be sent for an empty scope")
	}
}

func TestPromoteNextRefusesSecondOffer(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	svc.Join(ctx, testTenant, testScope, "b@example.com", "B")

	if _, err := svc.PromoteNext(ctx, testTenant, testScope); err != nil {
		t.Fatalf("first promote: %v", err)
	}
	second, err := svc.PromoteNext(ctx, testTenant, testScope)
	if err != nil {
		t.Fatalf("second promote: %v", err)
	}
	if second != nil {
		t.Fatalf("second promote while an offer is open must no-op, got %+v", second)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one offer, got %d", notifier.count())
	}
}

func TestConfirmBooking(t *testing.T) {
	svc, _, _, now := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	if _, err := svc.PromoteNext(ctx, testTenant, testScope); err != nil {
		t.Fatalf("promote: %v", err)
	}

	booked, err := svc.ConfirmBooking(ctx, a.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if booked.Status != StatusBooked {
		t.Fatalf("expected booked, got %s", booked.Status)
	}
	if booked.BookedAt == nil || !booked.BookedAt.Equal(*now) {
		t.Fatalf("bookedAt not set: %+v", booked.BookedAt)
	}
}

func TestConfirmBookingInvalidFromWaiting(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")

	_, err := svc.ConfirmBooking(ctx, a.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestConfirmBookingUnknownEntry(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.ConfirmBooking(context.Background(), uuid.New())
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestExpireStalePromotesSuccessor(t *testing.T) {
	svc, _, notifier, now := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	b, _ := svc.Join(ctx, testTenant, testScope, "b@example.com", "B")
	svc.Join(ctx, testTenant, testScope, "c@example.com", "C")

	if _, err := svc.PromoteNext(ctx, testTenant, testScope); err != nil {
		t.Fatalf("promote: %v", err)
	}

	// Advance past A's notification window and sweep.
	*now = now.Add(31 * time.Minute)
	if err := svc.ExpireStale(ctx, testTenant, testScope, *now); err != nil {
		t.Fatalf("expire: %v", err)
	}

	expired, _ := svc.repo.GetEntryByID(ctx, a.ID)
	if expired.Status != StatusExpired {
		t.Fatalf("A should be expired, got %s", expired.Status)
	}

	next, _ := svc.repo.GetEntryByID(ctx, b.ID)
	if next.Status != StatusNotified {
		t.Fatalf("B should be notified after A expires, got %s", next.Status)
	}

	if notifier.count() != 2 {
		t.Fatalf("expected offers to A then B, got %d", notifier.count())
	}
	if notifier.offers[1].VisitorEmail != "b@example.com" {
		t.Fatalf("second offer must go to B, never C: got %s", notifier.offers[1].VisitorEmail)
	}
}

func TestExpireStaleBeforeWindowIsNoOp(t *testing.T) {
	svc, _, _, now := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	if _, err := svc.PromoteNext(ctx, testTenant, testScope); err != nil {
		t.Fatalf("promote: %v", err)
	}

	if err := svc.ExpireStale(ctx, testTenant, testScope, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("expire: %v", err)
	}

	entry, _ := svc.repo.GetEntryByID(ctx, a.ID)
	if entry.Status != StatusNotified {
		t.Fatalf("offer inside its window must survive the sweep, got %s", entry.Status)
	}
}

func TestBookedIsTerminal(t *testing.T) {
	svc, _, _, now := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	if _, err := svc.PromoteNext(ctx, testTenant, testScope); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if _, err := svc.ConfirmBooking(ctx, a.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// A booked entry is untouched by later sweeps, even past its window.
	*now = now.Add(2 * time.Hour)
	if err := svc.ExpireStale(ctx, testTenant, testScope, *now); err != nil {
		t.Fatalf("expire: %v", err)
	}
	entry, _ := svc.repo.GetEntryByID(ctx, a.ID)
	if entry.Status != StatusBooked {
		t.Fatalf("booked is terminal, got %s", entry.Status)
	}

	_, err := svc.ConfirmBooking(ctx, a.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("re-confirming a booked entry: expected ErrInvalidTransition, got %v", err)
	}
}

func TestSingleNotifiedUnderConcurrentPromotes(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		if _, err := svc.Join(ctx, testTenant, testScope, email, "Visitor"); err != nil {
			t.Fatalf("join %s: %v", email, err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PromoteNext(ctx, testTenant, testScope); err != nil {
				t.Errorf("promote: %v", err)
			}
		}()
	}
	wg.Wait()

	notified := 0
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		e, err := repo.FindActiveByVisitor(ctx, testTenant, testScope, email)
		if err != nil {
			t.Fatalf("lookup %s: %v", email, err)
		}
		if e.Status == StatusNotified {
			notified++
		}
	}
	if notified != 1 {
		t.Fatalf("expected exactly one notified entry, got %d", notified)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one offer sent, got %d", notifier.count())
	}
}

// refusingRepo simulates the conditional-write guard firing: MarkNotified
// always refuses, as it would when another caller's offer landed first.
type refusingRepo struct {
	Repository
}

func (refusingRepo) MarkNotified(context.Context, uuid.UUID, time.Time, time.Time) (*Entry, error) {
	return nil, ErrEntryNotFound
}

func TestPromoteNextLostConditionalWriteReportsBusy(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &recordingNotifier{}
	svc := NewService(refusingRepo{repo}, newLocalLocker(), notifier, 30*time.Minute)
	ctx := context.Background()

	if _, err := svc.Join(ctx, testTenant, testScope, "a@example.com", "A"); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, err := svc.PromoteNext(ctx, testTenant, testScope)
	if !errors.Is(err, ErrScopeBusy) {
		t.Fatalf("a refused promote must surface ErrScopeBusy, got %v", err)
	}
	if errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("store-level not-found must not leak to the caller: %v", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("no offer may be sent for a refused promote, got %d", notifier.count())
	}
}

func TestScopesAreIndependent(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	otherTenant := uuid.New()
	svc.Join(ctx, testTenant, testScope, "a@example.com", "A")
	svc.Join(ctx, testTenant, "2025-07-02", "b@example.com", "B")
	svc.Join(ctx, otherTenant, testScope, "c@example.com", "C")

	for _, s := range []struct {
		tenant uuid.UUID
		scope  string
	}{
		{testTenant, testScope},
		{testTenant, "2025-07-02"},
		{otherTenant, testScope},
	} {
		if _, err := svc.PromoteNext(ctx, s.tenant, s.scope); err != nil {
			t.Fatalf("promote %s/%s: %v", s.tenant, s.scope, err)
		}
	}

	// One open offer per scope, three scopes, three offers.
	if notifier.count() != 3 {
		t.Fatalf("expected 3 offers across independent scopes, got %d", notifier.count())
	}

	scopes, err := svc.ActiveScopes(ctx)
	if err != nil {
		t.Fatalf("active scopes: %v", err)
	}
	if len(scopes) != 3 {
		t.Fatalf("expected 3 active scopes, got %d", len(scopes))
	}
}
