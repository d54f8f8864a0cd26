package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/metaexchange/internal/config"
	"github.com/efreitasn/metaexchange/internal/engine"
	"github.com/efreitasn/metaexchange/internal/handler"
	"github.com/efreitasn/metaexchange/internal/logging"
	"github.com/efreitasn/metaexchange/internal/service"
	"github.com/efreitasn/metaexchange/internal/snapshot"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Order books.
	book, err := snapshot.LoadFile(cfg.OrderBookFile, snapshot.Options{
		Limit:        cfg.OrderBookLimit,
		BaseBalance:  cfg.BaseBalance,
		QuoteBalance: cfg.QuoteBalance,
	})
	if err != nil {
		return fmt.Errorf("load order books: %w", err)
	}
	logger.Info("order books loaded",
		zap.String("path", cfg.OrderBookFile),
		zap.Int("exchanges", book.Exchanges),
		zap.Int("asks", len(book.Asks)),
		zap.Int("bids", len(book.Bids)),
	)

	// Engine and service.
	allocator, err := engine.NewAllocatorFromOrders(book.Accounts, book.Asks, book.Bids)
	if err != nil {
		return fmt.Errorf("build order queues: %w", err)
	}
	execSvc := service.NewExecutionService(allocator, logger)

	// Router.
	router := handler.NewRouter(execSvc, logger, cfg.CORSAllowedOrigins)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		// Graceful shutdown: drain in-flight requests within the timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
