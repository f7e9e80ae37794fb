package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/retry"
)

// TelegramSource reads channel posts delivered to a bot that is a member
// (or admin) of the channels. Only chats listed in chats are kept; an empty
// list keeps every chat.
type TelegramSource struct {
	name     string
	token    string
	endpoint string
	client   *http.Client
	chats    map[string]bool
	logger   *slog.Logger

	mu     sync.Mutex
	bot    *tgbotapi.BotAPI
	offset int
}

var _ model.Source = (*TelegramSource)(nil)

// NewTelegramSource creates a bot-backed source. endpoint is the bot API URL
// format (tgbotapi.APIEndpoint when empty).
func NewTelegramSource(name, token string, chats []string, endpoint string, client *http.Client, logger *slog.Logger) *TelegramSource {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	set := make(map[string]bool, len(chats))
	for _, c := range chats {
		set[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "@"))] = true
	}
	return &TelegramSource{
		name:     name,
		token:    token,
		endpoint: endpoint,
		client:   client,
		chats:    set,
		logger:   logger,
	}
}

func (s *TelegramSource) Name() string { return s.name }

// FetchPosts polls getUpdates once without long polling. The update offset
// advances in memory, so a long-running process does not see a post twice
// while a fresh process replays whatever Telegram still holds.
func (s *TelegramSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.bot == nil {
		bot, err := callWithContext(ctx, func() (*tgbotapi.BotAPI, error) {
			return tgbotapi.NewBotAPIWithClient(s.token, s.endpoint, s.client)
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			if strings.Contains(err.Error(), "Unauthorized") {
				return nil, retry.Permanent(fmt.Errorf("telegram %s: %w", s.name, err))
			}
			return nil, fmt.Errorf("telegram %s: %w", s.name, err)
		}
		s.bot = bot
	}

	u := tgbotapi.NewUpdate(s.offset)
	u.Timeout = 0
	u.Limit = 100
	u.AllowedUpdates = []string{"channel_post", "message"}

	bot := s.bot
	updates, err := callWithContext(ctx, func() ([]tgbotapi.Update, error) {
		return bot.GetUpdates(u)
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("telegram %s: get updates: %w", s.name, err)
	}

	var posts []model.RawPost
	for _, up := range updates {
		if up.UpdateID >= s.offset {
			s.offset = up.UpdateID + 1
		}
		msg := up.ChannelPost
		if msg == nil {
			msg = up.Message
		}
		if msg == nil || msg.Chat == nil || !s.wanted(msg.Chat) {
			continue
		}
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		posts = append(posts, model.RawPost{
			Source:    s.name,
			ID:        fmt.Sprintf("%d:%d", msg.Chat.ID, msg.MessageID),
			Text:      text,
			Timestamp: msg.Time(),
		})
	}
	s.logger.Debug("telegram updates fetched", "source", s.name, "updates", len(updates), "posts", len(posts))
	return posts, nil
}

// callWithContext runs fn, which cannot be cancelled, and stops waiting for it
// once ctx is done. A late result is dropped; for getUpdates that leaves the
// offset unchanged so the same updates are fetched again next time.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *TelegramSource) wanted(chat *tgbotapi.Chat) bool {
	if len(s.chats) == 0 {
		return true
	}
	return s.chats[strings.ToLower(chat.UserName)] || s.chats[strconv.FormatInt(chat.ID, 10)]
}
