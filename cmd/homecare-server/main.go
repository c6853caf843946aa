package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/homecare/internal/config"
	"github.com/ehr/homecare/internal/domain/coordination"
	"github.com/ehr/homecare/internal/domain/draft"
	"github.com/ehr/homecare/internal/platform/loader"
	"github.com/ehr/homecare/internal/platform/websocket"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "homecare-server",
		Short:        "Home-care coordination server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(draftsCmd())
	rootCmd.AddCommand(reportCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the roster and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

// loadStore fetches the bundle and seeds a new store with it. A failed fetch
// still yields a usable store carrying the load warning.
func loadStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *coordination.Store {
	src := loader.NewSource(cfg.DataSource, cfg.DataFetchTimeout)
	ds := loader.New(src, logger).Load(ctx)

	store := coordination.NewStore(coordination.InitialState(), nil, logger)
	store.Dispatch(coordination.ImportState{Snapshot: ds.Snapshot()})
	return store
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openDraftBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger.Info().Str("backend", cfg.DraftBackend).Msg("draft storage ready")

	hub := websocket.NewHub(logger)
	store := loadStore(ctx, cfg, logger)
	stopForward := websocket.Forward(store, hub, time.Now, logger)
	defer stopForward()

	svc := draft.NewService(backend.Repo)
	autosaver := draft.NewAutosaver(svc, cfg.AutosaveDelay, logger)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go draft.RunSweeper(sweepCtx, svc, cfg.DraftSweepInterval, cfg.DraftMaxAge, logger)

	e := newServer(cfg, logger, serverDeps{
		store:     store,
		drafts:    svc,
		autosaver: autosaver,
		hub:       hub,
		checks:    append([]healthCheck{storeCheck(store)}, backend.Checks...),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := shutdown(shutdownCtx, e, autosaver, logger); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// shutdown drains in-flight requests, then writes the autosaves they
// scheduled before the draft backend closes.
func shutdown(ctx context.Context, e *echo.Echo, autosaver *draft.Autosaver, logger zerolog.Logger) error {
	shutdownErr := e.Shutdown(ctx)
	if shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("server shutdown failed")
	}
	if err := autosaver.Flush(ctx); err != nil {
		logger.Error().Err(err).Msg("flush pending drafts")
	}
	autosaver.Stop()
	return shutdownErr
}
