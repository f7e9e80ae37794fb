package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobagg/internal/ai"
	"github.com/amishk599/jobagg/internal/cache"
	"github.com/amishk599/jobagg/internal/config"
	"github.com/amishk599/jobagg/internal/extract"
	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/ratelimit"
	"github.com/amishk599/jobagg/internal/retry"
	"github.com/amishk599/jobagg/internal/source"
	"github.com/amishk599/jobagg/internal/store"
)

// backend is what the commands need from storage.
type backend interface {
	model.JobStore
	model.JobQuerier
}

// openedStore bundles the SQLite store with the optional cache in front of it.
type openedStore struct {
	sql     *store.SQLiteStore
	backend backend
	cache   *cache.Cache
}

func (o *openedStore) Close() {
	if o.cache != nil {
		o.cache.Close()
	}
	o.sql.Close()
}

// openStore opens the database and, when cache.redis_url is set, fronts it
// with the Redis stats cache. An unreachable Redis is logged and skipped.
func openStore(cfg *config.Config, logger *slog.Logger) (*openedStore, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	o := &openedStore{sql: sqlStore, backend: sqlStore}
	if cfg.Cache.RedisURL == "" {
		return o, nil
	}

	c, err := cache.New(cfg.Cache.RedisURL, cfg.Database.Path, cfg.Cache.TTL)
	if err != nil {
		if _, ok := err.(*model.ConfigurationError); ok {
			sqlStore.Close()
			return nil, err
		}
		logger.Warn("stats cache unavailable, continuing without it", "error", err)
		return o, nil
	}
	o.cache = c
	o.backend = cache.NewStore(sqlStore, c, logger)
	logger.Info("stats cache enabled", "ttl", cfg.Cache.TTL.String())
	return o, nil
}

func createSource(sc config.SourceConfig, httpClient *http.Client, logger *slog.Logger) (model.Source, bool) {
	switch sc.Type {
	case config.SourceFile:
		return source.NewFileSource(sc.Name, sc.Path), true
	case config.SourceWhatsAppExport:
		return source.NewWhatsAppExportSource(sc.Name, sc.Path, nil), true
	case config.SourceWhatsAppWeb:
		return source.NewWhatsAppWebSource(sc.Name, source.WhatsAppWebConfig{
			ChannelURL: sc.URL,
			ProfileDir: sc.ProfileDir,
			Headless:   sc.Headless,
		}, logger), true
	case config.SourceTelegram:
		return source.NewTelegramSource(sc.Name, sc.Token, sc.Chats, "", httpClient, logger), true
	case config.SourceIMAP:
		return source.NewIMAPSource(sc.Name, source.IMAPConfig{
			Addr:      sc.IMAP.Addr,
			Username:  sc.IMAP.Username,
			Password:  sc.IMAP.Password,
			Mailbox:   sc.IMAP.Mailbox,
			From:      sc.IMAP.From,
			SinceDays: sc.IMAP.SinceDays,
			Max:       sc.IMAP.Max,
		}, logger), true
	case config.SourceBoard:
		return source.NewBoardSource(sc.Name, source.BoardConfig{
			ATS:     sc.ATS,
			Token:   sc.BoardToken,
			Company: sc.Company,
		}, httpClient), true
	default:
		logger.Warn("unsupported source type, skipping", "source", sc.Name, "type", sc.Type)
		return nil, false
	}
}

// buildSources creates every enabled source, wrapped with retries and a
// per-type minimum spacing shared by sources of the same type.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.Source {
	limiter := ratelimit.NewMinDelayLimiter(cfg.Fetch.MinDelay)
	policy := retry.NewPolicy(cfg.Fetch.Retries, cfg.Fetch.RetryDelay, logger)

	var sources []model.Source
	for _, sc := range cfg.EnabledSources() {
		src, ok := createSource(sc, httpClient, logger)
		if !ok {
			continue
		}
		src = retry.NewRetrySource(src, policy)
		src = ratelimit.NewRateLimitedSource(src, limiter, sc.Type)
		sources = append(sources, src)
		logger.Info("registered source", "name", sc.Name, "type", sc.Type)
	}
	return sources
}

const llmRetryDelay = 2 * time.Second

// buildEngine wires the configured LLM behind retries and a rate limit, and
// wraps it in the extraction engine. Provider "none" leaves the heuristic
// parser alone.
func buildEngine(cfg *config.Config, logger *slog.Logger) *extract.Engine {
	ec := cfg.Extraction
	opts := []extract.Option{extract.WithTimeout(ec.Timeout), extract.WithMinLength(ec.MinTextLength)}

	httpClient := &http.Client{Timeout: ec.Timeout}
	var provider ai.LLMProvider
	switch ec.Provider {
	case "openai":
		provider = ai.NewOpenAIProvider(ec.BaseURL, ec.APIKey, ec.Model, httpClient).WithTemperature(ec.Temperature)
	case "ollama":
		ollama := ai.NewOllamaProvider(ec.BaseURL, ec.Model, httpClient).WithTemperature(ec.Temperature)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := ollama.Ping(ctx); err != nil {
			logger.Warn("ollama not ready, posts will fall back to heuristics until it is", "error", err)
		}
		cancel()
		provider = ollama
	default:
		logger.Info("no llm configured, using heuristic extraction only")
		return extract.NewEngine(nil, logger, opts...)
	}

	provider = retry.NewRetryProvider(provider, retry.NewPolicy(ec.Retries, llmRetryDelay, logger))
	provider = ratelimit.NewLimitedProvider(provider, ratelimit.NewKeyedLimiter(ec.RequestsPerSecond, ec.Burst), ec.Provider)
	logger.Info("llm extraction enabled", "provider", ec.Provider, "model", ec.Model)

	return extract.NewEngine(ai.NewLLMExtractor(provider, ai.ExtractTemplate, logger), logger, opts...)
}
