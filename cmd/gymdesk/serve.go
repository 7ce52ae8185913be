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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/tendant/gymdesk/gym"
	"github.com/tendant/gymdesk/internal/db"
	"github.com/tendant/gymdesk/pkg/repository"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. With MIGRATE_ON_START the schema is migrated
first, and with SEED_ON_START empty tables receive the default data.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	if cfg.MigrateOnStart {
		if err := db.Run(cfg.Database().DSN(), db.Up); err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
		logger.Info("migrations applied")
	}

	conn, err := repository.NewDB(cfg.Database())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer conn.Close()
	logger.Info("connected to database")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(conn, "gymdesk"),
	)

	gcfg := gym.FromConfig(cfg, conn, logger)
	gcfg.Metrics = registry
	app, err := gym.New(gcfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.SeedOnStart {
		if err := app.Seed(cmd.Context()); err != nil {
			return err
		}
	}
	if cfg.HasGoogleOAuth() {
		logger.Info("Google OAuth enabled")
	}

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("addr", addr).Wrap(err)
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
