package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/shellprefs"
	"github.com/CreativeUnicorns/shellprefs/api"
	"github.com/CreativeUnicorns/shellprefs/cache"
	"github.com/CreativeUnicorns/shellprefs/config"
	"github.com/CreativeUnicorns/shellprefs/storage"
)

func serveCmd() *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and GraphQL API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Server.Address = listenAddr
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "HTTP listen address (overrides SHELLPREFS_SERVER_ADDRESS)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger shellprefs.Logger) error {
	logger.Info("Shellprefs server starting up...",
		"storage", cfg.Storage.Driver,
		"cache", cfg.Cache.Driver,
	)

	store, err := buildStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	opts := []shellprefs.Option{
		shellprefs.WithStorage(store),
		shellprefs.WithLogger(logger),
		shellprefs.WithCacheTTL(cfg.Cache.TTL),
	}

	c, err := buildCache(cfg.Cache)
	if err != nil {
		store.Close()
		return err
	}
	if c != nil {
		opts = append(opts, shellprefs.WithCache(c))
	}

	mgr := shellprefs.New(opts...)
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Error("Failed to close backends", "error", err)
		}
	}()

	apiServer, err := api.NewServer(api.Config{
		ListenAddress: cfg.Server.Address,
		Manager:       mgr,
		Logger:        logger,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-quit:
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func buildStorage(ctx context.Context, cfg config.StorageConfig) (shellprefs.Storage, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil
	case config.StorageSQLite:
		return storage.NewSQLiteStorage(ctx, cfg.DSN)
	case config.StoragePostgres:
		return storage.NewPostgresStorage(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("%w: unknown storage driver %q", shellprefs.ErrInvalidInput, cfg.Driver)
}

// buildCache returns a nil Cache for the "none" driver.
func buildCache(cfg config.CacheConfig) (shellprefs.Cache, error) {
	switch cfg.Driver {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	return nil, fmt.Errorf("%w: unknown cache driver %q", shellprefs.ErrInvalidInput, cfg.Driver)
}
