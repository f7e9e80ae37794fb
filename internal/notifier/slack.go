package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobagg/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxJobsPerMessage keeps a digest under Slack's 50-block limit.
const maxJobsPerMessage = 20

// SlackNotifier sends a digest of new jobs to a Slack channel via Incoming
// Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	pause      time.Duration
}

// NewSlackNotifier returns a notifier that posts job digests to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		pause:      500 * time.Millisecond,
	}
}

// Notify sends jobs in digests of up to maxJobsPerMessage. Returns an error
// only if every digest fails. Individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, jobs []model.StoredJob) error {
	if len(jobs) == 0 {
		return nil
	}

	var batches [][]model.StoredJob
	for start := 0; start < len(jobs); start += maxJobsPerMessage {
		batches = append(batches, jobs[start:min(start+maxJobsPerMessage, len(jobs))])
	}

	failures := 0
	for i, batch := range batches {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pause):
			}
		}
		if err := s.send(ctx, buildPayload(batch, len(jobs))); err != nil {
			s.logger.Error("slack notification failed", "jobs", len(batch), "error", err)
			failures++
		}
	}

	if failures == len(batches) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "messages", len(batches)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) send(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		if status, _, err = s.post(ctx, body); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string        `json:"type"`
	Text      *slackText    `json:"text,omitempty"`
	Fields    []slackText   `json:"fields,omitempty"`
	Accessory *slackElement `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

// SendTestMessage sends a dummy job notification to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	now := time.Now()
	testJob := model.StoredJob{
		Candidate: model.Candidate{
			Role:            "Test Notification",
			CompanyName:     "jobagg",
			Location:        "Everywhere",
			JobType:         model.JobTypeRemote,
			ApplicationLink: "https://example.com/jobs",
			Source:          "test",
			PostedDate:      now,
		},
		FirstSeen: now,
	}
	return n.Notify(ctx, []model.StoredJob{testJob})
}

func buildPayload(jobs []model.StoredJob, total int) slackPayload {
	title := fmt.Sprintf("%d new job", total)
	if total != 1 {
		title += "s"
	}

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: title},
	}}

	for _, j := range jobs {
		var details []string
		if j.Location != "" {
			details = append(details, j.Location)
		}
		if j.JobType != "" && j.JobType != model.JobTypeUnknown {
			details = append(details, string(j.JobType))
		}
		if j.ExperienceRequired != "" {
			details = append(details, j.ExperienceRequired)
		}

		text := fmt.Sprintf("*%s* at *%s*", j.Role, j.CompanyName)
		if len(details) > 0 {
			text += "\n" + strings.Join(details, " · ")
		}
		text += fmt.Sprintf("\n_%s, %s_", j.Source, j.PostedDate.Format("Jan 2"))

		block := slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}}
		if strings.HasPrefix(j.ApplicationLink, "http") {
			block.Accessory = &slackElement{
				Type: "button",
				Text: slackText{Type: "plain_text", Text: "Apply"},
				URL:  j.ApplicationLink,
			}
		}
		blocks = append(blocks, block, slackBlock{Type: "divider"})
	}

	return slackPayload{Text: title, Blocks: blocks}
}
