package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josh-kwaku/wallet-transfer/internal/config"
	"github.com/josh-kwaku/wallet-transfer/internal/domain"
	"github.com/josh-kwaku/wallet-transfer/internal/fee"
	"github.com/josh-kwaku/wallet-transfer/internal/handler"
	"github.com/josh-kwaku/wallet-transfer/internal/logging"
	"github.com/josh-kwaku/wallet-transfer/internal/middleware"
	"github.com/josh-kwaku/wallet-transfer/internal/notification"
	"github.com/josh-kwaku/wallet-transfer/internal/repository"
	"github.com/josh-kwaku/wallet-transfer/internal/service"
	"github.com/josh-kwaku/wallet-transfer/internal/service/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("wallet-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := repository.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	wallets := repository.NewWalletRepository(db)
	ledger := repository.NewLedgerRepository(db)
	idempotency := repository.NewIdempotencyRepository(rdb, cfg.IdempotencyTTL)

	queue := notification.NewQueue(rdb, cfg.NotifyQueue)
	worker := notification.NewWorker(queue, notification.NewLoggerSender(logger), notification.WorkerConfig{
		MaxRetries: cfg.NotifyMaxRetries,
		RetryDelay: cfg.NotifyRetryDelay,
	}, logger)

	transfers := transfer.NewService(
		wallets,
		ledger,
		repository.NewDB(db),
		fee.NewPolicy(cfg.FeeThreshold, cfg.FeeRate),
		transfer.NewSystemAccountResolver(wallets, cfg.SystemOwnerFor),
		queue,
	)
	walletSvc := service.NewWalletService(wallets, ledger, domain.Currency(cfg.DefaultCurrency))

	healthH := handler.NewHealthHandler(db, handler.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))
	walletH := handler.NewWalletHandler(walletSvc)
	transferH := handler.NewTransferHandler(transfers)

	withIdempotency := middleware.Idempotency(idempotency)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthH.Liveness)
	mux.HandleFunc("GET /health/ready", healthH.Readiness)
	mux.Handle("POST /api/v1/wallets", withIdempotency(http.HandlerFunc(walletH.Create)))
	mux.HandleFunc("GET /api/v1/wallets/{id}", walletH.Get)
	mux.HandleFunc("GET /api/v1/wallets/{id}/transactions", walletH.ListTransactions)
	mux.Handle("POST /api/v1/transfers", withIdempotency(http.HandlerFunc(transferH.Create)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Chain(mux, middleware.Tracing, middleware.Logging(logger), middleware.Recovery),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(workerCtx)
	}()

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// in-flight requests may still enqueue notifications, so the worker stops
	// after the server
	stopWorker()
	<-workerDone
	slog.Info("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		if db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connectDB: %w", ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
