package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/httpapi"
	"github.com/amishk599/jobagg/internal/runlock"
	"github.com/amishk599/jobagg/internal/scheduler"
)

var startServe bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the aggregation daemon",
	Long:  "Runs an aggregation immediately and then every schedule.interval; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startServe, "serve", false, "also serve the HTTP API on server.addr")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"interval", cfg.Schedule.Interval.String(),
		"sources", len(cfg.EnabledSources()),
		"provider", cfg.Extraction.Provider,
		"database", cfg.Database.Path,
	)

	lock, err := runlock.Acquire(cfg.Database.Path)
	if err != nil {
		logger.Error("cannot start daemon", "error", err)
		return err
	}
	defer lock.Release()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	agg, err := buildAggregator(cfg, st.backend, setupNotifier(cfg, newHTTPClient(), logger), logger)
	if err != nil {
		logger.Error("nothing to run", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if startServe {
		srv := httpapi.NewServer(cfg.Server.Addr, st.backend, logger)
		go func() {
			logger.Info("http api listening", "addr", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http api stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sched := scheduler.NewScheduler(agg, cfg.Schedule.Interval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
