package source

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/retry"
)

// IMAPConfig configures a job-alert mailbox.
type IMAPConfig struct {
	Addr      string // host:port, TLS
	Username  string
	Password  string
	Mailbox   string // default INBOX
	From      string // only messages whose From header contains this
	SinceDays int    // default 7
	Max       int    // newest messages kept, default 50
}

// IMAPSource turns job-alert e-mails into raw posts. Messages are read with
// BODY.PEEK[] and the mailbox is opened read-only, so nothing is marked seen.
type IMAPSource struct {
	name   string
	cfg    IMAPConfig
	tls    *tls.Config
	logger *slog.Logger
	now    func() time.Time
}

var _ model.Source = (*IMAPSource)(nil)

// NewIMAPSource creates a mailbox source.
func NewIMAPSource(name string, cfg IMAPConfig, logger *slog.Logger) *IMAPSource {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.SinceDays <= 0 {
		cfg.SinceDays = 7
	}
	if cfg.Max <= 0 {
		cfg.Max = 50
	}
	host, _, _ := strings.Cut(cfg.Addr, ":")
	return &IMAPSource{
		name:   name,
		cfg:    cfg,
		tls:    &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
		logger: logger,
		now:    time.Now,
	}
}

func (s *IMAPSource) Name() string { return s.name }

func (s *IMAPSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	c, err := imapclient.DialTLS(s.cfg.Addr, &imapclient.Options{TLSConfig: s.tls})
	if err != nil {
		return nil, fmt.Errorf("imap %s: dial: %w", s.name, err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		return nil, retry.Permanent(fmt.Errorf("imap %s: login: %w", s.name, err))
	}
	if _, err := c.Select(s.cfg.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap %s: select %s: %w", s.name, s.cfg.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{Since: s.now().AddDate(0, 0, -s.cfg.SinceDays)}
	if s.cfg.From != "" {
		criteria.Header = []imap.SearchCriteriaHeaderField{{Key: "From", Value: s.cfg.From}}
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap %s: search: %w", s.name, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	slices.Reverse(uids)
	if len(uids) > s.cfg.Max {
		uids = uids[:s.cfg.Max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer fetchCmd.Close()

	var posts []model.RawPost
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap %s: fetch: %w", s.name, err)
		}

		post := model.RawPost{
			Source:    s.name,
			ID:        fmt.Sprintf("uid:%d", buf.UID),
			Timestamp: buf.InternalDate,
		}
		var subject string
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
			if buf.Envelope.MessageID != "" {
				post.ID = buf.Envelope.MessageID
			}
			if !buf.Envelope.Date.IsZero() {
				post.Timestamp = buf.Envelope.Date
			}
		}

		body, err := MessageText(buf.FindBodySection(bodyAll))
		if err != nil {
			s.logger.Warn("skipping unreadable message", "source", s.name, "post_id", post.ID, "error", err)
			continue
		}
		post.Text = strings.TrimSpace(subject + "\n\n" + body)
		posts = append(posts, post)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap %s: fetch close: %w", s.name, err)
	}
	_ = c.Logout().Wait()
	return posts, nil
}

// MessageText returns the readable body of an RFC 822 message: the first
// text/plain part, or the first text/html part rendered as text.
func MessageText(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty message")
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", err
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", err
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return "", err
		}
		switch {
		case ct == "text/plain" && plain == "":
			plain = string(b)
		case ct == "text/html" && html == "":
			html = string(b)
		}
	}

	if strings.TrimSpace(plain) != "" {
		return tidyLines(plain), nil
	}
	if html != "" {
		return HTMLToText(strings.NewReader(html))
	}
	return "", fmt.Errorf("no text part")
}
