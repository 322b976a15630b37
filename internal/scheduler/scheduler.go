// Package scheduler ties the waitlist state machine to the events that
// drive it: cancellations freeing capacity, and the periodic sweep that
// retires stale offers.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/waitlist"
)

type Orchestrator struct {
	waitlist *waitlist.Service
}

func NewOrchestrator(wl *waitlist.Service) *Orchestrator {
	return &Orchestrator{waitlist: wl}
}

// OnCapacityFreed is invoked when a booking is cancelled or deleted. It
// offers the freed capacity to the scope's queue. Safe to call when nobody
// is waiting.
func (o *Orchestrator) OnCapacityFreed(ctx context.Context, tenantID uuid.UUID, scopeKey string) error {
	_, err := o.waitlist.PromoteNext(ctx, tenantID, scopeKey)
	return err
}

// OnTick sweeps every scope with outstanding entries, expiring lapsed
// offers and promoting successors. One scope's failure never aborts the
// sweep of the others.
func (o *Orchestrator) OnTick(ctx context.Context, now time.Time) error {
	scopes, err := o.waitlist.ActiveScopes(ctx)
	if err != nil {
		return err
	}

	for _, scope := range scopes {
		if err := o.waitlist.ExpireStale(ctx, scope.TenantID, scope.ScopeKey, now); err != nil {
			log.Printf("sweep failed for tenant=%s scope=%s: %v", scope.TenantID, scope.ScopeKey, err)
			continue
		}
	}

	return nil
}
