package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/amishk599/jobagg/internal/model"
)

// ErrNotPosting is returned when the model answers {"valid": false}.
var ErrNotPosting = errors.New("model says text is not a job posting")

// ErrMissingFields is returned when the model answer lacks a role or company.
var ErrMissingFields = errors.New("model answer lacks role or company")

// LLMExtractor turns a raw post into a candidate using an LLM.
type LLMExtractor struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMExtractor creates an extractor rendering tmpl with the raw post.
func NewLLMExtractor(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Extract renders the prompt, calls the provider and decodes its answer.
// The returned candidate carries only what the model produced; source,
// post id and defaults are filled by the caller.
func (e *LLMExtractor) Extract(ctx context.Context, post model.RawPost) (model.Candidate, error) {
	var promptBuf bytes.Buffer
	if err := e.tmpl.Execute(&promptBuf, post); err != nil {
		return model.Candidate{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.Candidate{}, fmt.Errorf("llm complete: %w", err)
	}

	c, err := parsePosting(raw)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("unusable llm answer", "source", post.Source, "error", err, "answer", truncate(raw, 300))
		}
		return model.Candidate{}, err
	}
	c.ExtractedBy = model.ExtractedByLLM
	return c, nil
}

// rawPosting is the JSON shape returned by the LLM (matches postingSchema).
// Local models sometimes answer with numbers or lists where strings are
// expected, so every field decodes leniently.
type rawPosting struct {
	Valid              *bool       `json:"valid"`
	Role               lenientText `json:"role"`
	CompanyName        lenientText `json:"company_name"`
	Location           lenientText `json:"location"`
	ExperienceRequired lenientText `json:"experience_required"`
	JobType            lenientText `json:"job_type"`
	ApplicationLink    lenientText `json:"application_link"`
	Description        lenientText `json:"description"`
	PostedDate         lenientText `json:"posted_date"`
}

type lenientText string

func (t *lenientText) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = lenientText(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, fmt.Sprint(p))
		}
		*t = lenientText(strings.Join(parts, ", "))
	default:
		*t = lenientText(fmt.Sprint(x))
	}
	return nil
}

func (t lenientText) String() string {
	s := strings.TrimSpace(string(t))
	switch strings.ToLower(s) {
	case "null", "none", "n/a":
		return ""
	}
	return s
}

// parsePosting decodes an LLM answer. Code fences and chatter around the
// object are tolerated: the slice between the first '{' and the last '}' is
// decoded.
func parsePosting(raw string) (model.Candidate, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return model.Candidate{}, errors.New("no JSON object in llm answer")
	}

	var rp rawPosting
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rp); err != nil {
		return model.Candidate{}, fmt.Errorf("unmarshal posting JSON: %w", err)
	}
	if rp.Valid != nil && !*rp.Valid {
		return model.Candidate{}, ErrNotPosting
	}

	c := model.Candidate{
		Role:               rp.Role.String(),
		CompanyName:        rp.CompanyName.String(),
		Location:           rp.Location.String(),
		ExperienceRequired: rp.ExperienceRequired.String(),
		JobType:            model.JobType(rp.JobType.String()),
		ApplicationLink:    rp.ApplicationLink.String(),
		Description:        rp.Description.String(),
	}
	if c.Role == "" || c.CompanyName == "" {
		return model.Candidate{}, ErrMissingFields
	}
	if d, ok := parseDate(rp.PostedDate.String()); ok {
		c.PostedDate = d
	}
	return c, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2 Jan 2006",
	"January 2, 2006",
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
