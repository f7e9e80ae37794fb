// Package extract turns raw posts into candidate records, preferring an LLM
// and falling back to deterministic heuristics.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobagg/internal/model"
)

// postNamespace seeds name-based post ids for sources without native ids.
var postNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("jobagg:post"))

const maxDescription = 2000

// Extractor produces a candidate from a raw post.
type Extractor interface {
	Extract(ctx context.Context, post model.RawPost) (model.Candidate, error)
}

// Engine runs the primary extractor under a timeout and falls back to the
// heuristic parser when it fails.
type Engine struct {
	primary   Extractor // nil means fallback only
	fallback  Heuristic
	timeout   time.Duration
	minLength int
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each primary extraction call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMinLength rejects posts whose trimmed text is shorter than n runes.
func WithMinLength(n int) Option {
	return func(e *Engine) { e.minLength = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. primary may be nil.
func NewEngine(primary Extractor, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		primary:   primary,
		timeout:   60 * time.Second,
		minLength: 20,
		logger:    logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns a candidate or an *model.ExtractionFailure.
func (e *Engine) Extract(ctx context.Context, post model.RawPost) (model.Candidate, error) {
	text := strings.TrimSpace(post.Text)
	if len([]rune(text)) < e.minLength {
		return model.Candidate{}, &model.ExtractionFailure{Reason: "text too short", RawText: post.Text}
	}

	var primaryErr error
	if e.primary != nil {
		c, err := e.runPrimary(ctx, post)
		if err == nil {
			return e.finish(c, post), nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return model.Candidate{}, &model.ExtractionFailure{Reason: "cancelled", RawText: post.Text, Err: ctx.Err()}
		}
		e.logger.Debug("primary extraction failed, using fallback",
			"source", post.Source,
			"error", err,
		)
	}

	c, ok := e.fallback.Parse(text)
	if !ok {
		reason := "no role and company found"
		if primaryErr != nil {
			reason = "llm and fallback both failed"
		}
		return model.Candidate{}, &model.ExtractionFailure{Reason: reason, RawText: post.Text, Err: primaryErr}
	}
	if c.Description == "" {
		c.Description = truncateRunes(text, maxDescription)
	}
	return e.finish(c, post), nil
}

func (e *Engine) runPrimary(ctx context.Context, post model.RawPost) (model.Candidate, error) {
	cctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	c, err := e.primary.Extract(cctx, post)
	if err != nil {
		return model.Candidate{}, err
	}
	if strings.TrimSpace(c.Role) == "" || strings.TrimSpace(c.CompanyName) == "" {
		return model.Candidate{}, errors.New("primary extractor returned no role or company")
	}
	return c, nil
}

// finish fills the fields that come from the post rather than the text.
func (e *Engine) finish(c model.Candidate, post model.RawPost) model.Candidate {
	c.Source = post.Source
	c.PostID = PostID(post)
	if c.PostedDate.IsZero() {
		if !post.Timestamp.IsZero() {
			c.PostedDate = post.Timestamp
		} else {
			c.PostedDate = e.now()
		}
	}
	if c.JobType == "" {
		c.JobType = model.JobTypeUnknown
	}
	return c
}

// PostID returns the source's own id, or a name-based UUID of source and
// text so the same message keeps its id across runs.
func PostID(post model.RawPost) string {
	if post.ID != "" {
		return post.ID
	}
	return uuid.NewSHA1(postNamespace, []byte(post.Source+"\x00"+strings.TrimSpace(post.Text))).String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
