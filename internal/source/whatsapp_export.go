package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/retry"
)

// WhatsAppExportSource reads a WhatsApp Web page saved to disk.
type WhatsAppExportSource struct {
	name string
	path string
	loc  *time.Location
}

var _ model.Source = (*WhatsAppExportSource)(nil)

// NewWhatsAppExportSource creates a source over a saved channel page.
// Message times carry no zone, so they are read in loc (time.Local if nil).
func NewWhatsAppExportSource(name, path string, loc *time.Location) *WhatsAppExportSource {
	if loc == nil {
		loc = time.Local
	}
	return &WhatsAppExportSource{name: name, path: path, loc: loc}
}

func (s *WhatsAppExportSource) Name() string { return s.name }

func (s *WhatsAppExportSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("whatsapp export %s: %w", s.name, err))
	}
	defer f.Close()

	posts, err := ParseWhatsAppHTML(f, s.name, s.loc)
	if err != nil {
		return nil, fmt.Errorf("whatsapp export %s: %w", s.name, err)
	}
	return posts, nil
}

var preRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*([^:]*):?\s*$`)

// preLayouts are the timestamp shapes WhatsApp renders in
// data-pre-plain-text, month-first before day-first.
var preLayouts = []string{
	"15:04, 1/2/2006",
	"3:04 PM, 1/2/2006",
	"15:04, 2/1/2006",
	"3:04 PM, 2/1/2006",
	"15:04, 1/2/06",
	"3:04 PM, 1/2/06",
	"15:04, 2.1.2006",
	"1/2/2006, 15:04",
	"2/1/2006, 15:04",
	"2006-01-02 15:04",
}

// ParseWhatsAppHTML extracts channel messages from a WhatsApp Web page.
// Message bubbles are found by their data-pre-plain-text attribute (either
// spelling); pages without it fall back to outermost .copyable-text nodes.
func ParseWhatsAppHTML(r io.Reader, source string, loc *time.Location) ([]model.RawPost, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	elems := doc.Find("[data-pre-plain-text]")
	if elems.Length() == 0 {
		elems = doc.Find("[data-pre_plain_text]")
	}
	if elems.Length() == 0 {
		elems = doc.Find(".copyable-text").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(".copyable-text").Length() == 0
		})
	}

	var posts []model.RawPost
	elems.Each(func(_ int, sel *goquery.Selection) {
		pre, ok := sel.Attr("data-pre-plain-text")
		if !ok {
			pre, _ = sel.Attr("data-pre_plain_text")
		}

		breakLines(sel)
		text := tidyLines(sel.Text())
		if p := strings.TrimSpace(pre); p != "" {
			text = strings.TrimSpace(strings.TrimPrefix(text, p))
		}
		if text == "" {
			return
		}

		post := model.RawPost{Source: source, Text: text}
		post.Timestamp, _ = parsePrePlain(pre, loc)
		if id, ok := sel.Closest("[data-id]").Attr("data-id"); ok {
			post.ID = id
		}
		posts = append(posts, post)
	})
	return posts, nil
}

// parsePrePlain reads the "[10:32, 1/2/2025] Sender:" prefix of a message.
func parsePrePlain(pre string, loc *time.Location) (time.Time, string) {
	s := strings.NewReplacer("\u200e", "", "\u200f", "", "\u202f", " ", "\u00a0", " ").Replace(pre)
	s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), ">"))
	m := preRe.FindStringSubmatch(strings.Join(strings.Fields(s), " "))
	if m == nil {
		return time.Time{}, ""
	}
	ts := strings.ToUpper(strings.TrimSpace(m[1]))
	for _, layout := range preLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t, strings.TrimSpace(m[2])
		}
	}
	return time.Time{}, strings.TrimSpace(m[2])
}
