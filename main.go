package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/campusarena/potm-voting/auth"
	"github.com/campusarena/potm-voting/cliparse"
	"github.com/campusarena/potm-voting/db"
	"github.com/campusarena/potm-voting/event"
	"github.com/campusarena/potm-voting/metrics"
	"github.com/campusarena/potm-voting/middleware"
	"github.com/campusarena/potm-voting/pubsub"
	"github.com/campusarena/potm-voting/ratelimit"
	"github.com/campusarena/potm-voting/router"
	"github.com/campusarena/potm-voting/store"
	"github.com/campusarena/potm-voting/voting"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	if cfg.PrintAdminKey != "" {
		fmt.Println(auth.GenerateAdminKey(cfg.PrintAdminKey, cfg.AdminKeySalt))
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Rate limiting
	limiter, err := openLimiter(ctx, cfg)
	if err != nil {
		return err
	}

	// Event fan-out
	hub := pubsub.NewHub(m)
	go hub.Run(ctx)

	opts := []voting.Option{
		voting.WithMetrics(m),
		voting.WithNotifier("live", hub),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer publisher.Close()
		opts = append(opts, voting.WithNotifier("kafka", publisher))
		slog.Info("publishing voting events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	svc := voting.NewService(st, opts...)

	if cfg.SeedDemo {
		if err := svc.SeedDemo(ctx); err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
	}

	if cfg.AdminKeySalt == "" {
		slog.Warn("ADMIN_KEY_SALT not set, anyone can close voting")
	}

	// Create router
	mux := router.NewRouter(router.Deps{
		Service:  svc,
		Resolver: router.NewResolver(cfg),
		Limiter:  limiter,
		Hub:      hub,
		Metrics:  m,
		Gatherer: reg,
		Config:   cfg,
	})

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening",
		"port", cfg.Port,
		"store", cfg.DatabaseType,
		"identity", cfg.IdentityMode,
		"rate_limit", cfg.RateLimit,
		"rate_window", cfg.RateWindow)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}

// openStore returns the configured store and a func releasing it
func openStore(cfg cliparse.Config) (store.Store, func(), error) {
	if cfg.DatabaseType == cliparse.DatabaseMemory {
		slog.Warn("using in-memory store, votes are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Create schema (tables)
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("schema creation failed: %w", err)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	return store.NewSQLStore(conn), func() { conn.Close() }, nil
}

// openLimiter prefers the shared Redis limiter. The in-process limiter is
// swept once per window so entries of departed voters do not pile up.
func openLimiter(ctx context.Context, cfg cliparse.Config) (ratelimit.Limiter, error) {
	if cfg.RedisURL != "" {
		rl, err := ratelimit.NewRedisLimiter(ctx, cfg.RedisURL, cfg.RateLimit, cfg.RateWindow)
		if err != nil {
			return nil, fmt.Errorf("redis rate limiter: %w", err)
		}
		go func() {
			<-ctx.Done()
			rl.Close()
		}()
		slog.Info("using redis rate limiter")
		return rl, nil
	}

	ml := ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
	go func() {
		ticker := time.NewTicker(cfg.RateWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ml.Sweep(); n > 0 {
					slog.Debug("swept rate limit entries", "removed", n, "remaining", ml.Len())
				}
			}
		}
	}()
	return ml, nil
}
