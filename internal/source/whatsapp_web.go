package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/retry"
)

const scrollPaneJS = `() => {
  const pane = document.querySelector("[data-testid='conversation-panel-messages']")
    || document.querySelector("#main [role='application']")
    || document.querySelector("#main");
  if (!pane) return 0;
  pane.scrollTop = 0;
  return pane.scrollHeight;
}`

// WhatsAppWebConfig configures a live WhatsApp Web channel scrape.
type WhatsAppWebConfig struct {
	ChannelURL string
	ProfileDir string // persistent browser profile holding the logged-in session
	Headless   bool
	MaxScrolls int           // default 15
	ScrollWait time.Duration // default 3s
	Location   *time.Location
}

// WhatsAppWebSource drives a Chromium profile that is already logged in to
// WhatsApp Web, scrolls a channel to load its history and parses the page.
type WhatsAppWebSource struct {
	name   string
	cfg    WhatsAppWebConfig
	logger *slog.Logger
}

var _ model.Source = (*WhatsAppWebSource)(nil)

// NewWhatsAppWebSource creates a browser-backed channel source.
func NewWhatsAppWebSource(name string, cfg WhatsAppWebConfig, logger *slog.Logger) *WhatsAppWebSource {
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 15
	}
	if cfg.ScrollWait <= 0 {
		cfg.ScrollWait = 3 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &WhatsAppWebSource{name: name, cfg: cfg, logger: logger}
}

// CheckPlaywright starts and stops the Playwright driver, which fails when
// the driver or its browsers have not been installed.
func CheckPlaywright() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("starting playwright (install with: go run github.com/playwright-community/playwright-go/cmd/playwright install chromium): %w", err)
	}
	return pw.Stop()
}

func (s *WhatsAppWebSource) Name() string { return s.name }

func (s *WhatsAppWebSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("whatsapp web %s: starting playwright: %w", s.name, err))
	}
	defer pw.Stop()

	bctx, err := pw.Chromium.LaunchPersistentContext(s.cfg.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(s.cfg.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled", "--no-sandbox"},
	})
	if err != nil {
		return nil, fmt.Errorf("whatsapp web %s: launching browser: %w", s.name, err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("whatsapp web %s: %w", s.name, err)
	}

	if _, err := page.Goto(s.cfg.ChannelURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(60000),
	}); err != nil {
		return nil, fmt.Errorf("whatsapp web %s: opening channel: %w", s.name, err)
	}

	// Invite links land on a preview page first.
	_ = page.Locator("text=View channel").First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(5000),
	})

	if _, err := page.WaitForSelector("[data-pre-plain-text], .copyable-text", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(60000),
	}); err != nil {
		// Usually a logged-out profile showing the QR code.
		return nil, retry.Permanent(fmt.Errorf("whatsapp web %s: no messages rendered, is the profile logged in? %w", s.name, err))
	}

	if err := s.scrollHistory(ctx, page); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("whatsapp web %s: reading page: %w", s.name, err)
	}
	posts, err := ParseWhatsAppHTML(strings.NewReader(html), s.name, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("whatsapp web %s: %w", s.name, err)
	}
	s.logger.Debug("whatsapp channel scraped", "source", s.name, "posts", len(posts), "page_bytes", len(html))
	return posts, nil
}

// scrollHistory scrolls the message pane to the top until its height stops
// growing or MaxScrolls is reached.
func (s *WhatsAppWebSource) scrollHistory(ctx context.Context, page playwright.Page) error {
	var last string
	for i := 0; i < s.cfg.MaxScrolls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := page.Evaluate(scrollPaneJS)
		if err != nil {
			return fmt.Errorf("whatsapp web %s: scrolling: %w", s.name, err)
		}
		height := fmt.Sprint(h)
		if height == last {
			s.logger.Debug("reached top of channel", "source", s.name, "scrolls", i+1)
			return nil
		}
		last = height

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ScrollWait):
		}
	}
	return nil
}
