package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-engine/internal/db"
)

const (
	tenantCount     = 20
	scopesPerTenant = 5
	entriesPerScope = 8
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedWaitlists(context.Background(), pool); err != nil {
		log.Fatalf("seed waitlists: %v", err)
	}

	log.Println("seed complete")
}

func seedWaitlists(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding %d tenants x %d scopes x %d entries", tenantCount, scopesPerTenant, entriesPerScope)

	for t := 0; t < tenantCount; t++ {
		tenantID := uuid.New()

		for s := 0; s < scopesPerTenant; s++ {
			scopeKey := gofakeit.DateRange(
				time.Now().AddDate(0, 0, 1),
				time.Now().AddDate(0, 1, 0),
			).Format("2006-01-02")

			for pos := 1; pos <= entriesPerScope; pos++ {
				_, err := pool.Exec(ctx, `
					INSERT INTO waitlist_entries (id, tenant_id, scope_key, visitor_email, visitor_name, queue_position, status, created_at)
					VALUES ($1, $2, $3, $4, $5, $6, 'waiting', now())
					ON CONFLICT DO NOTHING
				`, uuid.New(), tenantID, scopeKey, gofakeit.Email(), gofakeit.Name(), pos)
				if err != nil {
					return fmt.Errorf("insert entry for tenant %s scope %s: %w", tenantID, scopeKey, err)
				}
			}
		}

		if (t+1)%5 == 0 {
			log.Printf("seeded %d/%d tenants", t+1, tenantCount)
		}
	}

	return nil
}
