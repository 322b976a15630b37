package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/slotwise/booking-engine/internal/api"
	"github.com/slotwise/booking-engine/internal/config"
	"github.com/slotwise/booking-engine/internal/db"
	"github.com/slotwise/booking-engine/internal/notify"
	redisclient "github.com/slotwise/booking-engine/internal/redis"
	"github.com/slotwise/booking-engine/internal/scheduler"
	"github.com/slotwise/booking-engine/internal/waitlist"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		notifier = notify.NewAMQPNotifier(cfg.AMQPURL)
		log.Println("using AMQP notifier")
	}

	repo := waitlist.NewPgRepository(pgPool)
	locker := redisclient.NewRedisScopeLocker(rdb, cfg.LockTTL)
	wl := waitlist.NewService(repo, locker, notifier, cfg.NotificationWindow)
	orch := scheduler.NewOrchestrator(wl)

	router := api.NewRouter(api.RouterConfig{
		Waitlist:     wl,
		Orchestrator: orch,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
