package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/retry"
)

// Public job board endpoints per ATS.
var boardBaseURLs = map[string]string{
	"greenhouse": "https://boards-api.greenhouse.io/v1/boards",
	"lever":      "https://api.lever.co/v0/postings",
	"ashby":      "https://api.ashbyhq.com/posting-api/job-board",
}

// maxBoardDescription caps the listing body copied into a post.
const maxBoardDescription = 4000

// BoardConfig points a BoardSource at one company's public ATS board.
type BoardConfig struct {
	ATS     string // greenhouse, lever or ashby
	Token   string // board token or company slug
	Company string
	BaseURL string // overrides the public endpoint, for tests
}

// BoardSource reads a company's public ATS job board and renders every
// listing as a text post, so board listings go through the same extraction
// and dedup as chat posts.
type BoardSource struct {
	name   string
	cfg    BoardConfig
	client *http.Client
}

// NewBoardSource returns a source for the board described by cfg.
func NewBoardSource(name string, cfg BoardConfig, client *http.Client) *BoardSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = boardBaseURLs[cfg.ATS]
	}
	if cfg.Company == "" {
		cfg.Company = name
	}
	return &BoardSource{name: name, cfg: cfg, client: client}
}

func (s *BoardSource) Name() string { return s.name }

// boardListing is the ATS-neutral shape a listing is rendered from.
type boardListing struct {
	id          string
	title       string
	location    string
	workplace   string
	commitment  string
	url         string
	description string
	posted      time.Time
}

func (s *BoardSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	var (
		listings []boardListing
		err      error
	)
	switch s.cfg.ATS {
	case "greenhouse":
		listings, err = s.fetchGreenhouse(ctx)
	case "lever":
		listings, err = s.fetchLever(ctx)
	case "ashby":
		listings, err = s.fetchAshby(ctx)
	default:
		return nil, retry.Permanent(fmt.Errorf("unsupported ats %q", s.cfg.ATS))
	}
	if err != nil {
		return nil, err
	}

	posts := make([]model.RawPost, 0, len(listings))
	for _, l := range listings {
		posts = append(posts, model.RawPost{
			Source:    s.name,
			ID:        s.cfg.ATS + ":" + l.id,
			Text:      s.render(l),
			Timestamp: l.posted,
		})
	}
	return posts, nil
}

// render lays a listing out the way job channels usually post them.
func (s *BoardSource) render(l boardListing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s\n", l.title, s.cfg.Company)
	if l.location != "" {
		fmt.Fprintf(&b, "Location: %s\n", l.location)
	}
	if l.workplace != "" {
		fmt.Fprintf(&b, "Workplace: %s\n", l.workplace)
	}
	if l.commitment != "" {
		fmt.Fprintf(&b, "Type: %s\n", l.commitment)
	}
	if l.url != "" {
		fmt.Fprintf(&b, "Apply: %s\n", l.url)
	}
	if d := strings.TrimSpace(l.description); d != "" {
		if r := []rune(d); len(r) > maxBoardDescription {
			d = string(r[:maxBoardDescription])
		}
		b.WriteString("\n" + d + "\n")
	}
	return b.String()
}

// getJSON fetches url into v. Non-200 answers become *model.HTTPError so the
// retry decorator can classify them.
func (s *BoardSource) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s fetch for %s: %w", s.cfg.ATS, s.cfg.Token, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s fetch for %s: %w", s.cfg.ATS, s.cfg.Token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("%s fetch for %s: unexpected status %d", s.cfg.ATS, s.cfg.Token, resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s fetch for %s: %w", s.cfg.ATS, s.cfg.Token, err)
	}
	return nil
}

type greenhouseJob struct {
	ID       int64 `json:"id"`
	Title    string `json:"title"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	AbsoluteURL string `json:"absolute_url"`
	UpdatedAt   string `json:"updated_at"`
	Content     string `json:"content"`
}

func (s *BoardSource) fetchGreenhouse(ctx context.Context) ([]boardListing, error) {
	var resp struct {
		Jobs []greenhouseJob `json:"jobs"`
	}
	if err := s.getJSON(ctx, fmt.Sprintf("%s/%s/jobs?content=true", s.cfg.BaseURL, s.cfg.Token), &resp); err != nil {
		return nil, err
	}

	out := make([]boardListing, 0, len(resp.Jobs))
	for _, gj := range resp.Jobs {
		l := boardListing{
			id:       strconv.FormatInt(gj.ID, 10),
			title:    gj.Title,
			location: gj.Location.Name,
			url:      gj.AbsoluteURL,
			posted:   parseRFC3339(gj.UpdatedAt),
		}
		// Greenhouse double-encodes content; unescape before parsing.
		if gj.Content != "" {
			if text, err := HTMLToText(strings.NewReader(html.UnescapeString(gj.Content))); err == nil {
				l.description = text
			}
		}
		out = append(out, l)
	}
	return out, nil
}

type leverJob struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	DescriptionPlain string `json:"descriptionPlain"`
	Categories       struct {
		Location     string   `json:"location"`
		Commitment   string   `json:"commitment"`
		AllLocations []string `json:"allLocations"`
	} `json:"categories"`
	CreatedAt     int64  `json:"createdAt"`
	WorkplaceType string `json:"workplaceType"`
	HostedURL     string `json:"hostedUrl"`
	ApplyURL      string `json:"applyUrl"`
}

func (s *BoardSource) fetchLever(ctx context.Context) ([]boardListing, error) {
	var jobs []leverJob
	if err := s.getJSON(ctx, fmt.Sprintf("%s/%s?mode=json", s.cfg.BaseURL, s.cfg.Token), &jobs); err != nil {
		return nil, err
	}

	out := make([]boardListing, 0, len(jobs))
	for _, lj := range jobs {
		// Prefer allLocations if available, fall back to location.
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}
		url := lj.ApplyURL
		if url == "" {
			url = lj.HostedURL
		}
		l := boardListing{
			id:          lj.ID,
			title:       lj.Text,
			location:    location,
			workplace:   lj.WorkplaceType,
			commitment:  lj.Categories.Commitment,
			url:         url,
			description: lj.DescriptionPlain,
		}
		if lj.CreatedAt > 0 {
			l.posted = time.UnixMilli(lj.CreatedAt)
		}
		out = append(out, l)
	}
	return out, nil
}

type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	WorkplaceType    string `json:"workplaceType"`
	EmploymentType   string `json:"employmentType"`
	IsRemote         bool   `json:"isRemote"`
	JobURL           string `json:"jobUrl"`
	ApplyURL         string `json:"applyUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (s *BoardSource) fetchAshby(ctx context.Context) ([]boardListing, error) {
	var resp struct {
		Jobs []ashbyJob `json:"jobs"`
	}
	if err := s.getJSON(ctx, fmt.Sprintf("%s/%s", s.cfg.BaseURL, s.cfg.Token), &resp); err != nil {
		return nil, err
	}

	out := make([]boardListing, 0, len(resp.Jobs))
	for _, aj := range resp.Jobs {
		if !aj.IsListed {
			continue
		}
		id := aj.ID
		if id == "" {
			id = aj.JobURL
		}
		workplace := aj.WorkplaceType
		if workplace == "" && aj.IsRemote {
			workplace = "Remote"
		}
		url := aj.ApplyURL
		if url == "" {
			url = aj.JobURL
		}
		out = append(out, boardListing{
			id:          id,
			title:       aj.Title,
			location:    aj.Location,
			workplace:   workplace,
			commitment:  aj.EmploymentType,
			url:         url,
			description: aj.DescriptionPlain,
			posted:      parseRFC3339(aj.PublishedAt),
		})
	}
	return out, nil
}

func parseRFC3339(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseRetryAfter reads a Retry-After header in seconds. Zero if absent or
// unparseable.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
