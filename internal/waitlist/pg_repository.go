package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const entryColumns = `id, tenant_id, scope_key, visitor_email, visitor_name, queue_position, status, notified_at, expires_at, booked_at, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var notifiedAt, expiresAt, bookedAt *time.Time

	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.ScopeKey,
		&e.VisitorEmail,
		&e.VisitorName,
		&e.Position,
		&e.Status,
		&notifiedAt,
		&expiresAt,
		&bookedAt,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	e.NotifiedAt = notifiedAt
	e.ExpiresAt = expiresAt
	e.BookedAt = bookedAt
	return &e, nil
}

func (r *PgRepository) GetEntryByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE id = $1
	`, id)
	return scanEntry(row)
}

func (r *PgRepository) FindActiveByVisitor(ctx context.Context, tenantID uuid.UUID, scopeKey, visitorEmail string) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE tenant_id = $1
		  AND scope_key = $2
		  AND visitor_email = $3
		  AND status IN ('waiting', 'notified')
		LIMIT 1
	`, tenantID, scopeKey, visitorEmail)
	return scanEntry(row)
}

// CreateWaitingEntry assigns queue_position inside the insert so the
// position sequence lives next to the entries. The service serializes joins
// per scope, the subselect keeps positions correct even so.
func (r *PgRepository) CreateWaitingEntry(ctx context.Context, tenantID uuid.UUID, scopeKey, visitorEmail, visitorName string, createdAt time.Time) (*Entry, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO waitlist_entries (id, tenant_id, scope_key, visitor_email, visitor_name, queue_position, status, created_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(queue_position), 0) + 1
			 FROM waitlist_entries
			 WHERE tenant_id = $2 AND scope_key = $3),
			'waiting', $6)
		RETURNING `+entryColumns+`
	`, id, tenantID, scopeKey, visitorEmail, visitorName, createdAt)

	return scanEntry(row)
}

func (r *PgRepository) FirstWaiting(ctx context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE tenant_id = $1
		  AND scope_key = $2
		  AND status = 'waiting'
		ORDER BY queue_position ASC
		LIMIT 1
	`, tenantID, scopeKey)
	return scanEntry(row)
}

func (r *PgRepository) FindNotified(ctx context.Context, tenantID uuid.UUID, scopeKey string) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries
		WHERE tenant_id = $1
		  AND scope_key = $2
		  AND status = 'notified'
		LIMIT 1
	`, tenantID, scopeKey)
	return scanEntry(row)
}

// MarkNotified is a conditional write: it applies only while the entry is
// still waiting and no other entry in the scope holds an open offer, so a
// caller that lost its lock cannot double-offer freed capacity.
func (r *PgRepository) MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt, expiresAt time.Time) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'notified',
		    notified_at = $2,
		    expires_at = $3
		WHERE id = $1
		  AND status = 'waiting'
		  AND NOT EXISTS (
			SELECT 1 FROM waitlist_entries other
			WHERE other.tenant_id = waitlist_entries.tenant_id
			  AND other.scope_key = waitlist_entries.scope_key
			  AND other.status = 'notified'
		  )
		RETURNING `+entryColumns+`
	`, id, notifiedAt, expiresAt)

	return scanEntry(row)
}

func (r *PgRepository) MarkBooked(ctx context.Context, id uuid.UUID, bookedAt time.Time) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'booked',
		    booked_at = $2
		WHERE id = $1
		  AND status = 'notified'
		RETURNING `+entryColumns+`
	`, id, bookedAt)

	return scanEntry(row)
}

func (r *PgRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = 'expired'
		WHERE id = $1
		  AND status = 'notified'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $2
		RETURNING `+entryColumns+`
	`, id, now)

	return scanEntry(row)
}

func (r *PgRepository) ListActiveScopes(ctx context.Context) ([]Scope, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT tenant_id, scope_key
		FROM waitlist_entries
		WHERE status IN ('waiting', 'notified')
		ORDER BY tenant_id, scope_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Scope
	for rows.Next() {
		var s Scope
		if err := rows.Scan(&s.TenantID, &s.ScopeKey); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO waitlist_events (event_type, entry_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.EntryID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
