package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/booking-engine/internal/scheduler"
	"github.com/slotwise/booking-engine/internal/waitlist"
)

type RouterConfig struct {
	Waitlist     *waitlist.Service
	Orchestrator *scheduler.Orchestrator
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Pure engine operations
	r.Post("/slots/generate", generateSlotsHandler())
	r.Post("/refunds/visitor", visitorRefundHandler())
	r.Post("/refunds/tenant", tenantRefundHandler())

	// Waitlist operations
	r.Post("/waitlist", joinWaitlistHandler(cfg.Waitlist))
	r.Post("/waitlist/{id}/confirm", confirmBookingHandler(cfg.Waitlist))
	r.Post("/capacity/freed", capacityFreedHandler(cfg.Orchestrator))

	return r
}
