package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/amishk599/jobagg/internal/ai"
	"github.com/amishk599/jobagg/internal/config"
	"github.com/amishk599/jobagg/internal/source"
)

type setupCheck struct {
	name string
	run  func(ctx context.Context) error
}

// setupChecks lists what a run needs from the machine: a reachable LLM with
// its model pulled, a writable database directory and, for whatsapp_web
// sources, an installed Playwright driver.
func setupChecks(cfg *config.Config, httpClient *http.Client, checkBrowser func() error) []setupCheck {
	var checks []setupCheck

	ec := cfg.Extraction
	switch ec.Provider {
	case "ollama":
		checks = append(checks, setupCheck{
			name: fmt.Sprintf("ollama model %s at %s", ec.Model, ec.BaseURL),
			run: func(ctx context.Context) error {
				return ai.NewOllamaProvider(ec.BaseURL, ec.Model, httpClient).Ping(ctx)
			},
		})
	case "openai":
		checks = append(checks, setupCheck{
			name: "openai api key",
			run: func(context.Context) error {
				if ec.APIKey == "" {
					return errors.New("extraction.api_key is empty")
				}
				return nil
			},
		})
	}

	dbDir := filepath.Dir(cfg.Database.Path)
	checks = append(checks, setupCheck{
		name: "database directory " + dbDir,
		run:  func(context.Context) error { return checkWritableDir(dbDir) },
	})

	for _, sc := range cfg.EnabledSources() {
		if sc.Type == config.SourceWhatsAppWeb {
			checks = append(checks, setupCheck{
				name: "playwright driver",
				run:  func(context.Context) error { return checkBrowser() },
			})
			break
		}
	}
	return checks
}

// runSetupChecks prints one line per check and fails if any check did.
func runSetupChecks(ctx context.Context, w io.Writer, checks []setupCheck) error {
	failed := 0
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := c.run(cctx)
		cancel()
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(w, "OK    %s\n", c.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d setup checks failed", failed, len(checks))
	}
	return nil
}

func checkWritableDir(dir string) error {
	f, err := os.CreateTemp(dir, ".jobagg-setup-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func runSetup(cfg *config.Config) error {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return runSetupChecks(context.Background(), os.Stdout, setupChecks(cfg, httpClient, source.CheckPlaywright))
}
