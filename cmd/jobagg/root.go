package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/config"
	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/notifier"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "jobagg",
	Short:         "Job post aggregator",
	Long:          "jobagg collects job posts from chat channels, mailboxes and exports, extracts structured postings, and keeps one copy of each.",
	SilenceUsage:  true,
	SilenceErrors: false,
	// `jobagg` with no subcommand runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBAGG_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBAGG_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBAGG_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setupLogger builds the process logger. --debug wins over log.level.
func setupLogger(dbg bool, level string) *slog.Logger {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	if level != "" {
		if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			logLevel = slog.LevelInfo
		}
	}
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// silentLogger is for interactive commands, where log lines would corrupt
// the terminal UI.
func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bootstrap loads the config and the logger it configures. Config errors are
// logged with a provisional logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		setupLogger(debug, "").Error("failed to load config", "error", err)
		return nil, nil, err
	}
	return cfg, setupLogger(debug, cfg.Log.Level), nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}
