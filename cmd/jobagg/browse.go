package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/browse"
	"github.com/amishk599/jobagg/internal/model"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored jobs interactively (TUI)",
	Long:  "Pick a source, then page through its jobs with a live preview, search and type/date filters.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	// Log output before the alt-screen starts corrupts the display.
	st, err := openStore(cfg, silentLogger())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	for {
		opts, err := st.backend.FilterOptions(ctx)
		if err != nil {
			return err
		}
		stats, err := st.backend.Stats(ctx)
		if err != nil {
			return err
		}
		if len(opts.Sources) == 0 {
			fmt.Println("No stored jobs yet. Run `jobagg run` first.")
			return nil
		}

		counts := map[string]int{browse.AllSources: stats.Total}
		for k, v := range stats.BySource {
			counts[k] = v
		}
		choice, err := browse.RunSourcePicker(opts.Sources, counts)
		if err != nil {
			return err
		}
		if choice == "" {
			return nil
		}

		f := model.Filters{Order: model.OrderNewest}
		if choice != browse.AllSources {
			f.Source = choice
		}
		jobs, err := browse.RunLoader(choice, func(ctx context.Context) ([]model.StoredJob, error) {
			return st.backend.Query(ctx, f)
		})
		if err != nil {
			return err
		}

		wantQuit, err := browse.Run(jobs)
		if err != nil {
			return err
		}
		if wantQuit {
			return nil
		}
	}
}
