package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/secrets"
)

// Config is the root configuration for the aggregator.
type Config struct {
	Database     DatabaseConfig
	Schedule     ScheduleConfig
	Extraction   ExtractionConfig
	Fetch        FetchConfig
	Sources      []SourceConfig
	Cache        CacheConfig
	Notification NotificationConfig
	Server       ServerConfig
	Log          LogConfig
}

type DatabaseConfig struct {
	Path string
}

type ScheduleConfig struct {
	Interval time.Duration
}

// ExtractionConfig selects the LLM behind extraction. Provider "none" runs
// the heuristic parser only.
type ExtractionConfig struct {
	Provider          string // "openai", "ollama" or "none"
	BaseURL           string
	Model             string
	APIKey            string // may be "keyring:<account>"
	Timeout           time.Duration
	Temperature       float64
	MinTextLength     int
	RequestsPerSecond float64
	Burst             int
	Retries           int
}

// FetchConfig controls how sources are read during a run.
type FetchConfig struct {
	Concurrency int
	Timeout     time.Duration // per source
	Retries     int
	RetryDelay  time.Duration
	MinDelay    time.Duration // minimum gap between fetches of the same source type
}

// SourceConfig describes one channel. Which fields apply depends on Type.
type SourceConfig struct {
	Name       string           `yaml:"name"`
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Path       string           `yaml:"path"`        // file, whatsapp_export
	URL        string           `yaml:"url"`         // whatsapp_web channel URL
	ProfileDir string           `yaml:"profile_dir"` // whatsapp_web
	Headless   bool             `yaml:"headless"`    // whatsapp_web
	Token      string           `yaml:"token"`       // telegram
	Chats      []string         `yaml:"chats"`       // telegram
	IMAP       IMAPSourceConfig `yaml:"imap"`
	ATS        string           `yaml:"ats"`         // board: greenhouse, lever or ashby
	BoardToken string           `yaml:"board_token"` // board
	Company    string           `yaml:"company"`     // board, defaults to name
}

type IMAPSourceConfig struct {
	Addr      string `yaml:"addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Mailbox   string `yaml:"mailbox"`
	From      string `yaml:"from"`
	SinceDays int    `yaml:"since_days"`
	Max       int    `yaml:"max"`
}

// CacheConfig enables the Redis stats cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

type ServerConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

// Source types.
const (
	SourceFile           = "file"
	SourceWhatsAppExport = "whatsapp_export"
	SourceWhatsAppWeb    = "whatsapp_web"
	SourceTelegram       = "telegram"
	SourceIMAP           = "imap"
	SourceBoard          = "board"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	Schedule     rawSchedule        `yaml:"schedule"`
	Extraction   rawExtraction      `yaml:"extraction"`
	Fetch        rawFetch           `yaml:"fetch"`
	Sources      []SourceConfig     `yaml:"sources"`
	Cache        rawCache           `yaml:"cache"`
	Notification NotificationConfig `yaml:"notification"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

type rawSchedule struct {
	Interval string `yaml:"interval"`
}

type rawExtraction struct {
	Provider          string   `yaml:"provider"`
	BaseURL           string   `yaml:"base_url"`
	Model             string   `yaml:"model"`
	APIKey            string   `yaml:"api_key"`
	Timeout           string   `yaml:"timeout"`
	Temperature       *float64 `yaml:"temperature"`
	MinTextLength     int      `yaml:"min_text_length"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	Retries           *int     `yaml:"retries"`
}

type rawFetch struct {
	Concurrency int    `yaml:"concurrency"`
	Timeout     string `yaml:"timeout"`
	Retries     *int   `yaml:"retries"`
	RetryDelay  string `yaml:"retry_delay"`
	MinDelay    string `yaml:"min_delay"`
}

type rawCache struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. A .env file next to the config is loaded first so that
// ${VARS} in the YAML can come from it. Every failure is a
// *model.ConfigurationError.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &model.ConfigurationError{Field: ".env", Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigurationError{Err: fmt.Errorf("read config: %w", err)}
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, &model.ConfigurationError{Err: fmt.Errorf("parse config: %w", err)}
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	cfg := &Config{
		Database:     raw.Database,
		Sources:      raw.Sources,
		Notification: raw.Notification,
		Server:       raw.Server,
		Log:          raw.Log,
	}
	var err error

	if cfg.Database.Path == "" {
		cfg.Database.Path = "jobs.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Schedule.Interval, err = duration("schedule.interval", raw.Schedule.Interval, time.Hour); err != nil {
		return nil, err
	}

	ex := raw.Extraction
	cfg.Extraction = ExtractionConfig{
		Provider:          strings.ToLower(ex.Provider),
		BaseURL:           ex.BaseURL,
		Model:             ex.Model,
		APIKey:            ex.APIKey,
		Temperature:       0.1,
		MinTextLength:     ex.MinTextLength,
		RequestsPerSecond: ex.RequestsPerSecond,
		Burst:             ex.Burst,
		Retries:           2,
	}
	if cfg.Extraction.Provider == "" {
		cfg.Extraction.Provider = "none"
	}
	if cfg.Extraction.BaseURL == "" {
		switch cfg.Extraction.Provider {
		case "openai":
			cfg.Extraction.BaseURL = defaultOpenAIBaseURL
		case "ollama":
			cfg.Extraction.BaseURL = defaultOllamaBaseURL
		}
	}
	if ex.Temperature != nil {
		cfg.Extraction.Temperature = *ex.Temperature
	}
	if ex.Retries != nil {
		cfg.Extraction.Retries = *ex.Retries
	}
	if cfg.Extraction.MinTextLength == 0 {
		cfg.Extraction.MinTextLength = 20
	}
	if cfg.Extraction.RequestsPerSecond == 0 {
		cfg.Extraction.RequestsPerSecond = 1
	}
	if cfg.Extraction.Burst == 0 {
		cfg.Extraction.Burst = 1
	}
	if cfg.Extraction.Timeout, err = duration("extraction.timeout", ex.Timeout, 60*time.Second); err != nil {
		return nil, err
	}

	f := raw.Fetch
	cfg.Fetch = FetchConfig{Concurrency: f.Concurrency, Retries: 2}
	if cfg.Fetch.Concurrency == 0 {
		cfg.Fetch.Concurrency = 4
	}
	if f.Retries != nil {
		cfg.Fetch.Retries = *f.Retries
	}
	if cfg.Fetch.Timeout, err = duration("fetch.timeout", f.Timeout, 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Fetch.RetryDelay, err = duration("fetch.retry_delay", f.RetryDelay, 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Fetch.MinDelay, err = duration("fetch.min_delay", f.MinDelay, 0); err != nil {
		return nil, err
	}

	cfg.Cache.RedisURL = raw.Cache.RedisURL
	if cfg.Cache.TTL, err = duration("cache.ttl", raw.Cache.TTL, 5*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// duration parses s, returning def when s is empty.
func duration(field, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &model.ConfigurationError{Field: field, Err: err}
	}
	return d, nil
}

// resolveSecrets replaces keyring:<account> references with stored secrets.
func resolveSecrets(cfg *Config) error {
	var err error
	if cfg.Extraction.APIKey, err = secrets.Resolve(cfg.Extraction.APIKey); err != nil {
		return &model.ConfigurationError{Field: "extraction.api_key", Err: err}
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if !s.Enabled {
			continue
		}
		if s.Token, err = secrets.Resolve(s.Token); err != nil {
			return &model.ConfigurationError{Field: fmt.Sprintf("sources[%s].token", s.Name), Err: err}
		}
		if s.IMAP.Password, err = secrets.Resolve(s.IMAP.Password); err != nil {
			return &model.ConfigurationError{Field: fmt.Sprintf("sources[%s].imap.password", s.Name), Err: err}
		}
	}
	return nil
}

func validate(cfg *Config) error {
	invalid := func(field, format string, args ...any) error {
		return &model.ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
	}

	if cfg.Schedule.Interval <= 0 {
		return invalid("schedule.interval", "must be positive, got %v", cfg.Schedule.Interval)
	}
	if cfg.Fetch.Concurrency < 1 {
		return invalid("fetch.concurrency", "must be at least 1, got %d", cfg.Fetch.Concurrency)
	}
	if cfg.Fetch.Retries < 0 || cfg.Extraction.Retries < 0 {
		return invalid("retries", "must not be negative")
	}

	switch cfg.Extraction.Provider {
	case "none":
	case "openai":
		if cfg.Extraction.APIKey == "" {
			return invalid("extraction.api_key", "required when provider is \"openai\"")
		}
		fallthrough
	case "ollama":
		if cfg.Extraction.Model == "" {
			return invalid("extraction.model", "required when provider is %q", cfg.Extraction.Provider)
		}
	default:
		return invalid("extraction.provider", "unknown provider %q (want openai, ollama or none)", cfg.Extraction.Provider)
	}
	if cfg.Extraction.Timeout <= 0 {
		return invalid("extraction.timeout", "must be positive, got %v", cfg.Extraction.Timeout)
	}

	seen := make(map[string]bool)
	for i, s := range cfg.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if s.Name == "" {
			return invalid(field+".name", "required")
		}
		if seen[s.Name] {
			return invalid(field+".name", "duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		if !s.Enabled {
			continue
		}
		switch s.Type {
		case SourceFile, SourceWhatsAppExport:
			if s.Path == "" {
				return invalid(field+".path", "required for %s source %q", s.Type, s.Name)
			}
		case SourceWhatsAppWeb:
			if s.URL == "" || s.ProfileDir == "" {
				return invalid(field, "whatsapp_web source %q needs url and profile_dir", s.Name)
			}
		case SourceTelegram:
			if s.Token == "" {
				return invalid(field+".token", "required for telegram source %q", s.Name)
			}
		case SourceIMAP:
			if s.IMAP.Addr == "" || s.IMAP.Username == "" || s.IMAP.Password == "" {
				return invalid(field+".imap", "imap source %q needs addr, username and password", s.Name)
			}
		case SourceBoard:
			switch s.ATS {
			case "greenhouse", "lever", "ashby":
			default:
				return invalid(field+".ats", "unknown ats %q for board source %q (want greenhouse, lever or ashby)", s.ATS, s.Name)
			}
			if s.BoardToken == "" {
				return invalid(field+".board_token", "required for board source %q", s.Name)
			}
		default:
			return invalid(field+".type", "unknown source type %q", s.Type)
		}
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return invalid("notification.webhook_url", "required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return invalid("notification.webhook_url", "must start with https://hooks.slack.com/")
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", "unknown level %q", cfg.Log.Level)
	}
	return nil
}

// EnabledSources returns the sources switched on in the config.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
