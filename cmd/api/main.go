package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upi-ledger/config"
	httpHandler "upi-ledger/internal/adapter/http/handler"
	memStorage "upi-ledger/internal/adapter/storage/memory"
	pgStorage "upi-ledger/internal/adapter/storage/postgres"
	redisStorage "upi-ledger/internal/adapter/storage/redis"
	"upi-ledger/internal/core/ports"
	"upi-ledger/internal/service"
	"upi-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the adapters selected by storage.driver.
type storage struct {
	accounts   ports.AccountRepository
	ledger     ports.LedgerRepository
	audit      ports.AuditRepository // nil when the driver keeps no audit table
	transactor ports.Transactor
	health     ports.HealthChecker
	close      func()
}

func main() {
	cfg, err := config.Load(os.Getenv("UPL_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("UPI Ledger stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting UPI Ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	encSvc, err := service.NewAESEncryptionService(cfg.Crypto.Key)
	if err != nil {
		return fmt.Errorf("initializing encryption service: %w", err)
	}

	transferSvc := service.NewTransferService(store.accounts, store.ledger, store.transactor, logger.Component(log, "transfer"))
	accountSvc := service.NewAccountService(store.accounts, encSvc, logger.Component(log, "account"))
	querySvc := service.NewQueryService(store.accounts, store.ledger)
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))

	if cfg.Seed.Enabled {
		n, err := service.SeedAccounts(ctx, accountSvc, store.accounts, logger.Component(log, "seed"))
		if err != nil {
			return fmt.Errorf("seeding sample accounts: %w", err)
		}
		log.Info().Int("accounts", n).Msg("Sample data seeded")
	}

	checkers := []ports.HealthChecker{store.health}

	var rateLimitStore ports.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			// The API still serves without Redis; only rate limiting is lost.
			log.Warn().Err(err).Msg("Redis unavailable, rate limiting disabled")
		} else {
			defer rdb.Close()
			rateLimitStore = redisStorage.NewBreakerRateLimitStore(
				redisStorage.NewRateLimitStore(rdb),
				"redis-ratelimit",
				redisStorage.DefaultBreakerConfig(),
				logger.Component(log, "ratelimit"),
			)
			checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    transferSvc,
		AccountSvc:     accountSvc,
		QuerySvc:       querySvc,
		AuditSvc:       auditSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: checkers,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memStorage.NewStore()
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		return &storage{
			accounts:   memStorage.NewAccountRepo(store),
			ledger:     memStorage.NewLedgerRepo(store),
			transactor: memStorage.NewTransactor(store),
			health:     memStorage.NewHealthCheck(store),
			close:      func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(cfg.Database, logger.Component(log, "migrate")); err != nil {
				return nil, fmt.Errorf("running migrations: %w", err)
			}
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		return &storage{
			accounts:   pgStorage.NewAccountRepo(pool),
			ledger:     pgStorage.NewLedgerRepo(pool),
			audit:      pgStorage.NewAuditRepository(pool),
			transactor: pgStorage.NewTransactor(pool),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
