// Package main provides the entry point for the SQL gateway server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nnnkkk7/sqlgateway/pkg/archive"
	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/connection"
	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/pkg/pool"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/pkg/query"
	"github.com/nnnkkk7/sqlgateway/server"
	"github.com/nnnkkk7/sqlgateway/server/handlers"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	profiles, err := loadProfiles(cfg, logger)
	if err != nil {
		logger.Error("load connection profiles", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("connection profiles loaded",
		slog.Any("profiles", profiles.Keys()),
		slog.Int("max_rows", profiles.MaxRows()),
	)

	registry := query.NewRegistry(pool.New(profiles, connection.NewDrivers(), logger), logger)

	var opts []query.Option
	if cfg.Archive.Enabled() {
		archiver, err := archive.New(context.Background(), cfg.Archive)
		if err != nil {
			logger.Error("init result archive", slog.Any("error", err))
			_ = registry.Shutdown()
			os.Exit(1)
		}
		opts = append(opts, query.WithArchiver(archiver))
		logger.Info("result archiving enabled",
			slog.String("endpoint", cfg.Archive.Endpoint),
			slog.String("bucket", cfg.Archive.Bucket),
		)
	}
	executor := query.NewExecutor(registry, profiles, logger, opts...)

	executions := handlers.NewExecutionHandler(executor, registry, profiles, logger)
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.NewRouter(executions, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting sql gateway", slog.String("addr", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down sql gateway")
	exitCode := 0
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = srv.Close()
		exitCode = 1
	}
	if err := registry.Shutdown(); err != nil {
		logger.Error("closing connections failed", slog.Any("error", err))
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// loadProfiles reads the properties file, or only the environment properties when
// SQLGATEWAY_PROPERTIES_FILE is set empty.
func loadProfiles(cfg config.Config, logger *slog.Logger) (*profile.Store, error) {
	if cfg.Profiles.PropertiesFile == "" {
		return profile.Load(cfg.Profiles.Properties, logger), nil
	}
	return profile.LoadFile(cfg.Profiles.PropertiesFile, cfg.Profiles.Properties, logger)
}
