package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/taklabs/coordinator/internal/api"
	"github.com/taklabs/coordinator/internal/config"
	"github.com/taklabs/coordinator/internal/deal"
	"github.com/taklabs/coordinator/internal/events"
	"github.com/taklabs/coordinator/internal/idempotency"
	"github.com/taklabs/coordinator/internal/negotiation"
	"github.com/taklabs/coordinator/internal/settlement"
	"github.com/taklabs/coordinator/internal/store"
	"github.com/taklabs/coordinator/pkg/logger"
	"github.com/taklabs/coordinator/pkg/secrets"
	"github.com/taklabs/coordinator/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [coordinator]...")

	// --- Resolve database DSN (AWS Secrets Manager, optional) ---
	dsn := cfg.DatabaseURL
	if cfg.DatabaseSecretName != "" {
		provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		secret, err := provider.GetSecret(ctx, cfg.DatabaseSecretName)
		if err != nil {
			logg.Fatalw("failed to resolve database secret", "error", err, "secret", cfg.DatabaseSecretName)
		}
		if v, ok := secret["dsn"]; ok && v != "" {
			dsn = v
		} else {
			logg.Fatalw("database secret has no 'dsn' key", "secret", cfg.DatabaseSecretName)
		}
	}
	logg.Info("connecting to DSN: ", utils.MaskDSN(dsn))

	// --- Ledger store (Postgres) ---
	st, err := store.NewPG(ctx, dsn, store.PoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}
	if err := st.Migrate(ctx); err != nil {
		logg.Fatalw("failed to migrate schema", "error", err)
	}

	// --- Idempotency guard ---
	stopSweep := make(chan struct{})
	var guardStore idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPass,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logg.Fatalw("redis ping failed", "error", err, "addr", cfg.RedisAddr)
		}
		guardStore = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
		logg.Infow("idempotency guard: redis", "addr", cfg.RedisAddr, "ttl", cfg.IdempotencyTTL)
	} else {
		mem := idempotency.NewMemoryStore(cfg.IdempotencyTTL)
		go mem.StartSweep(cfg.IdempotencySweepInterval, stopSweep)
		guardStore = mem
		logg.Warn("REDIS_ADDR not configured; idempotency records are process-local")
	}
	guard := idempotency.NewGuard(guardStore, logg.Desugar())

	// --- NATS lifecycle events (optional) ---
	var nc *nats.Conn
	var pub *events.Publisher
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err = events.New(nc, cfg.EventSubjectPrefix, cfg.ServiceName, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to init event publisher", "error", err)
		}
	} else {
		logg.Warn("NATS_URL not configured; lifecycle events disabled")
	}

	// --- Settlement adapter ---
	// Real backends are injected here in place of the mock.
	var adapter settlement.Adapter = settlement.NewMockAdapter(logg.Desugar(), cfg.MockAdapterDelay)
	if cfg.AdapterKind != "mock" {
		logg.Fatalw("unknown settlement adapter", "kind", cfg.AdapterKind)
	}
	logg.Infow("settlement adapter configured", "adapter", adapter.Name())

	// --- Services ---
	negSvc := negotiation.NewService(st, pub, logg.Desugar())
	dealSvc := deal.NewService(st, adapter, pub, logg.Desugar())

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
		Prefork:      cfg.HTTPPrefork,
	})

	handler := api.NewHandler(logg.Desugar(), negSvc, dealSvc, adapter.Name())
	api.RegisterRoutes(app, nc, st, handler, guard)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[coordinator] running",
		"env", cfg.Env,
		"port", cfg.Port,
		"adapter", adapter.Name(),
		"events", cfg.NATSURL != "")

	<-ctx.Done()
	logg.Info("shutting down [coordinator]...")

	close(stopSweep)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
