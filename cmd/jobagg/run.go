package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/aggregator"
	"github.com/amishk599/jobagg/internal/config"
	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/notifier"
	"github.com/amishk599/jobagg/internal/runlock"
	"github.com/amishk599/jobagg/internal/store"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one aggregation and exit",
	Long:  "Fetches every enabled source once, extracts and deduplicates postings, stores new ones and prints the run summary.",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and deduplicate but write nothing")
	rootCmd.AddCommand(runCmd)
}

// buildAggregator assembles sources, extraction and the given store.
func buildAggregator(cfg *config.Config, jobStore model.JobStore, n model.Notifier, logger *slog.Logger) (*aggregator.Aggregator, error) {
	sources := buildSources(cfg, newHTTPClient(), logger)
	if len(sources) == 0 {
		return nil, errors.New("no enabled sources")
	}
	return aggregator.New(sources, buildEngine(cfg, logger), jobStore, logger,
		aggregator.WithNotifier(n),
		aggregator.WithConcurrency(cfg.Fetch.Concurrency),
		aggregator.WithFetchTimeout(cfg.Fetch.Timeout),
	), nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(cfg.Database.Path)
	if err != nil {
		logger.Error("cannot start run", "error", err)
		return err
	}
	defer lock.Release()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	var jobStore model.JobStore = st.backend
	n := setupNotifier(cfg, newHTTPClient(), logger)
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be stored")
		jobStore = store.NewNopStore(st.sql)
		n = notifier.NewLogNotifier(logger)
	}

	agg, err := buildAggregator(cfg, jobStore, n, logger)
	if err != nil {
		logger.Error("nothing to run", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := agg.Aggregate(ctx)
	printRunStats(stats)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printRunStats(s model.RunStats) {
	fmt.Printf("\nRun %s finished in %s\n", s.RunID, s.Finished.Sub(s.Started).Round(time.Millisecond))
	fmt.Printf("  fetched     %d\n", s.Fetched)
	fmt.Printf("  added       %d\n", s.Added)
	fmt.Printf("  duplicates  %d\n", s.Duplicates)
	fmt.Printf("  failed      %d\n", s.Failed)
	if s.AdapterFailures > 0 {
		fmt.Printf("  sources down %d\n", s.AdapterFailures)
	}
}
