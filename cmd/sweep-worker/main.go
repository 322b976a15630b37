package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/slotwise/booking-engine/internal/config"
	"github.com/slotwise/booking-engine/internal/db"
	"github.com/slotwise/booking-engine/internal/notify"
	redisclient "github.com/slotwise/booking-engine/internal/redis"
	"github.com/slotwise/booking-engine/internal/scheduler"
	"github.com/slotwise/booking-engine/internal/waitlist"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("sweep-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running sweep worker in env=%s interval=%s", cfg.Env, cfg.SweepInterval)

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

	// Run once at startup
	runOnce(rootCtx, orch)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping sweep worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, orch)
		}
	}
}

func runOnce(ctx context.Context, orch *scheduler.Orchestrator) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := orch.OnTick(runCtx, start); err != nil {
		log.Printf("sweep run error: %v", err)
		return
	}
	log.Printf("sweep run complete in %s", time.Since(start))
}
