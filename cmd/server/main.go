package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse/internal/analytics"
	"pulse/internal/analytics/store"
	"pulse/internal/audit"
	"pulse/internal/auth/cache"
	authservice "pulse/internal/auth/service"
	"pulse/internal/auth/verifier"
	"pulse/internal/identity"
	"pulse/internal/platform/config"
	"pulse/internal/platform/httpserver"
	"pulse/internal/platform/logger"
	"pulse/internal/platform/metrics"
	"pulse/internal/platform/postgres"
	"pulse/internal/platform/redis"
	"pulse/internal/seed"
	"pulse/internal/tracking"
	httptransport "pulse/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	seedOnly := flag.Bool("seed", false, "seed demo users and events, then exit")
	seedEvents := flag.Int("seed-events", 500, "number of demo events to create with -seed")
	flag.Parse()

	log := logger.New()
	if err := run(log, *seedOnly, *seedEvents); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type dbCheck struct{ db *sql.DB }

func (c dbCheck) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

func run(log *slog.Logger, seedOnly bool, seedEvents int) error {
	cfg := config.FromEnv()
	m := metrics.New()

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := postgres.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var st store.Store
	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(startCtx); err != nil {
			return err
		}
		st = pg
		checks["postgres"] = dbCheck{db: db}
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("PULSE_DATABASE_URL not set, using in-memory store")
	}

	rc, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}

	var tokenCache cache.Cache
	if rc != nil {
		defer rc.Close()
		tokenCache = cache.NewRedis(rc.Client, cfg.TokenCacheTTL, log)
		checks["redis"] = rc
		log.Info("using redis token cache")
	} else {
		tokenCache = cache.NewMemory(cfg.TokenCacheTTL, cfg.TokenCacheMax)
	}

	var provider identity.Provider
	if cfg.IdentityURL != "" {
		provider = identity.NewHTTPProvider(cfg.IdentityURL, cfg.IdentityAPIKey)
		log.Info("using remote identity provider", "url", cfg.IdentityURL)
	} else {
		provider = identity.NewLocalProvider(cfg.SigningKey)
		log.Warn("PULSE_IDENTITY_URL not set, using local identity provider")
	}

	var publisher audit.Publisher = audit.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := audit.NewKafka(cfg.KafkaBrokers, cfg.AuditTopic, log, m)
		if err != nil {
			return err
		}
		publisher = kp
		log.Info("audit events streaming to kafka", "topic", cfg.AuditTopic)
	}
	defer publisher.Close()

	if seedOnly {
		return seed.New(provider, st, log).Run(startCtx, seedEvents)
	}

	verify := verifier.New(tokenCache, provider, log, m)
	accounts := authservice.New(provider, st, verify, publisher, log, m)
	tracker := tracking.New(st, publisher, log, m)
	engine := analytics.NewEngine(st, m)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(accounts, log),
		Track:         httptransport.NewTrackHandler(tracker, log),
		Analytics:     httptransport.NewAnalyticsHandler(engine, log),
		Verifier:      verify,
		Logger:        log,
		AllowedOrigin: cfg.FrontendOrigin,
		Checks:        checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting pulse", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
