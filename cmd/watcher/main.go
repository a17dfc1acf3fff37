package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"dota-tracker/internal/config"
	"dota-tracker/internal/constants"
	fxmodules "dota-tracker/internal/fx"
	"dota-tracker/internal/poller"
	"dota-tracker/internal/server"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runWatcher),
	).Run()
}

func runWatcher(
	lc fx.Lifecycle,
	sched *poller.Scheduler,
	orch *poller.Orchestrator,
	statusSrv *server.StatusServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: statusSrv.Handler(),
	}

	// The scheduler outlives OnStart's context; it gets its own, cancelled
	// on shutdown.
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("status server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("status server failed")
				}
			}()
			go func() {
				defer close(done)
				sched.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down")
			cancel()

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancelShutdown()

			select {
			case <-done:
			case <-shutdownCtx.Done():
				logger.Warn().Msg("scheduler did not stop in time")
			}

			if err := orch.Flush(); err != nil {
				logger.Error().Err(err).Msg("final state save failed")
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database")
			}
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("status server shutdown failed")
				return err
			}
			logger.Info().Msg("stopped cleanly")
			return nil
		},
	})
}
