package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/terangapay/transfert-backend/internal/adapter/artifact"
	httpadapter "github.com/terangapay/transfert-backend/internal/adapter/http"
	"github.com/terangapay/transfert-backend/internal/adapter/repository/memory"
	"github.com/terangapay/transfert-backend/internal/adapter/repository/postgres"
	"github.com/terangapay/transfert-backend/internal/config"
	"github.com/terangapay/transfert-backend/internal/domain"
	"github.com/terangapay/transfert-backend/internal/logging"
	"github.com/terangapay/transfert-backend/internal/usecase/adminops"
	"github.com/terangapay/transfert-backend/internal/usecase/history"
	"github.com/terangapay/transfert-backend/internal/usecase/receipt"
	"github.com/terangapay/transfert-backend/internal/usecase/transfer"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	ctx := context.Background()

	// 1. Setup the store
	var store domain.Store
	switch cfg.Database.Driver {
	case "memory":
		store = memory.NewStore()
		logger.Warn("using in-memory store, data will not survive restarts")
	default:
		db, err := postgres.NewDB(cfg.Database.ConnString)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		store = postgres.NewStore(db)
	}

	// 2. Initialize collaborators and services
	renderer, err := artifact.NewFileRenderer(cfg.Receipts.Dir)
	if err != nil {
		logger.Error("failed to prepare receipts directory", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(store.Repositories().Receipts, renderer, logger)
	transferService := transfer.NewService(store, receiptService, logger)
	adminService := adminops.NewService(store, logger)
	historyService := history.NewService(store)

	// 3. Wire the HTTP surface
	verifier := httpadapter.NewHMACVerifier(cfg.Auth.Secret)
	handlers := httpadapter.NewHandlers(logger, transferService, adminService, receiptService, historyService, renderer)
	server := httpadapter.NewServer(cfg.HTTP, httpadapter.NewRouter(handlers, verifier))

	// 4. Serve until signalled
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(server, cfg, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, cfg config.Config, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
