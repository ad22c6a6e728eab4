package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/pingmedaddy/pingmedaddy/internal/analytics"
	"github.com/pingmedaddy/pingmedaddy/internal/config"
	"github.com/pingmedaddy/pingmedaddy/internal/httpapi"
	"github.com/pingmedaddy/pingmedaddy/internal/jobs"
	"github.com/pingmedaddy/pingmedaddy/internal/probe"
	"github.com/pingmedaddy/pingmedaddy/internal/registry"
	"github.com/pingmedaddy/pingmedaddy/internal/scheduler"
	"github.com/pingmedaddy/pingmedaddy/internal/store"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	cache, err := store.ConnectCache(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to cache: %v", err)
	}

	dataStore := store.New(db, cache)

	pinger := probe.NewPinger(cfg.PingTimeout)
	tracer := probe.NewTracer(cfg.TracerouteBinary, cfg.PingTimeout*10)

	sched := scheduler.New(pinger, dataStore, cfg.PingConcurrencyLimit)
	reg := registry.New(db, sched)
	engine := analytics.New(dataStore, reg)

	active, err := reg.ActiveTargets(context.Background())
	if err != nil {
		log.Fatalf("failed to load active targets: %v", err)
	}
	sched.Boot(active)
	defer sched.Shutdown()

	cronJobs := jobs.New(dataStore)
	if err := cronJobs.Start(); err != nil {
		log.Fatalf("failed to start periodic jobs: %v", err)
	}
	defer cronJobs.Stop()

	limiter := httpapi.NewRateLimiter(rate.Limit(10), 20)
	limiterStop := make(chan struct{})
	go limiter.CleanupOldLimiters(limiterStop)
	defer close(limiterStop)

	router := httpapi.NewRouter(cfg, reg, engine, dataStore, tracer, limiter)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: traceroute (default 25s, up to 60s, spec §5)
		// and the raw CSV export (streams the full retention window,
		// spec §9) both legitimately run past any deadline short enough
		// to matter for ordinary JSON routes. Traceroute is bounded by
		// its own timeout parameter; the export runs until the stream
		// ends or the client disconnects.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("pingmedaddy listening on port %d", cfg.AppPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("shutdown complete")
}
