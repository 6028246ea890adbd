package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog/backend/internal/config"
	productdomain "catalog/backend/internal/domain/product"
	"catalog/backend/internal/httpserver"
	"catalog/backend/internal/infrastructure/filestore"
	"catalog/backend/internal/infrastructure/memory"
	"catalog/backend/internal/infrastructure/postgres"
	"catalog/backend/internal/logging"
	productusecase "catalog/backend/internal/usecase/product"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so deferred cleanup happens on all exit paths.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	rootCtx := context.Background()

	var (
		products productdomain.Repository
		variants productdomain.VariantRepository
		health   httpserver.HealthChecker
	)
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		products, variants = store.Products(), store.Variants()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := postgres.New(rootCtx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(rootCtx); err != nil {
			return fmt.Errorf("run database migrations: %w", err)
		}
		products = postgres.NewProductRepository(db.Pool)
		variants = postgres.NewVariantRepository(db.Pool)
		health = db
	}

	images, err := filestore.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("prepare upload directory %s: %w", cfg.UploadDir, err)
	}

	productService := productusecase.NewService(products, variants, images, logger)

	server := httpserver.NewServer(cfg, productService, health, logger)
	logger.Info("HTTP server listening", "addr", server.Addr(), "driver", cfg.DatabaseDriver, "upload_dir", images.Dir())

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("graceful shutdown completed")
	return nil
}
