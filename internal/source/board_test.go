package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobagg/internal/model"
)

func boardServer(t *testing.T, wantPath, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBoardSource_Greenhouse(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": 12345,
				"title": "Software Engineer",
				"location": {"name": "San Francisco, CA"},
				"absolute_url": "https://boards.greenhouse.io/acme/jobs/12345",
				"updated_at": "2026-02-13T10:00:00Z",
				"content": "&lt;p&gt;Build &lt;b&gt;payments&lt;/b&gt; APIs.&lt;/p&gt;&lt;ul&gt;&lt;li&gt;3+ years Go&lt;/li&gt;&lt;/ul&gt;"
			}
		]
	}`
	srv := boardServer(t, "/acme/jobs?content=true", payload)

	src := NewBoardSource("acme-board", BoardConfig{ATS: "greenhouse", Token: "acme", Company: "Acme Corp", BaseURL: srv.URL}, srv.Client())
	posts, err := src.FetchPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "acme-board", p.Source)
	assert.Equal(t, "greenhouse:12345", p.ID)
	assert.True(t, p.Timestamp.Equal(time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Software Engineer at Acme Corp\n"+
		"Location: San Francisco, CA\n"+
		"Apply: https://boards.greenhouse.io/acme/jobs/12345\n"+
		"\nBuild payments APIs.\n3+ years Go\n", p.Text)
}

func TestBoardSource_Lever(t *testing.T) {
	payload := `[
		{
			"id": "ff7ef527",
			"text": "Backend Engineer",
			"descriptionPlain": "Backend job description",
			"categories": {"location": "Remote", "commitment": "Full-time", "allLocations": ["Remote", "Berlin"]},
			"createdAt": 1769870474110,
			"workplaceType": "remote",
			"hostedUrl": "https://jobs.lever.co/acme/ff7ef527",
			"applyUrl": "https://jobs.lever.co/acme/ff7ef527/apply"
		},
		{
			"id": "a1b2",
			"text": "SRE",
			"categories": {"location": "Austin"},
			"hostedUrl": "https://jobs.lever.co/acme/a1b2"
		}
	]`
	srv := boardServer(t, "/acme?mode=json", payload)

	src := NewBoardSource("acme", BoardConfig{ATS: "lever", Token: "acme", BaseURL: srv.URL}, srv.Client())
	posts, err := src.FetchPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "lever:ff7ef527", posts[0].ID)
	assert.Equal(t, time.UnixMilli(1769870474110), posts[0].Timestamp)
	assert.Contains(t, posts[0].Text, "Backend Engineer at acme\n")
	assert.Contains(t, posts[0].Text, "Location: Remote, Berlin\n")
	assert.Contains(t, posts[0].Text, "Workplace: remote\nType: Full-time\n")
	assert.Contains(t, posts[0].Text, "Apply: https://jobs.lever.co/acme/ff7ef527/apply\n")

	assert.True(t, posts[1].Timestamp.IsZero())
	assert.Contains(t, posts[1].Text, "Location: Austin\nApply: https://jobs.lever.co/acme/a1b2\n")
}

func TestBoardSource_AshbySkipsUnlisted(t *testing.T) {
	payload := `{"jobs": [
		{"id": "j1", "title": "Data Engineer", "location": "NYC", "isRemote": true, "jobUrl": "https://jobs.ashbyhq.com/acme/j1", "publishedAt": "2026-01-05T08:00:00Z", "isListed": true},
		{"id": "j2", "title": "Hidden", "isListed": false}
	]}`
	srv := boardServer(t, "/acme", payload)

	src := NewBoardSource("acme", BoardConfig{ATS: "ashby", Token: "acme", Company: "Acme", BaseURL: srv.URL}, srv.Client())
	posts, err := src.FetchPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "ashby:j1", posts[0].ID)
	assert.Contains(t, posts[0].Text, "Workplace: Remote\n")
}

func TestBoardSource_EmptyBoard(t *testing.T) {
	srv := boardServer(t, "/empty/jobs?content=true", `{"jobs": []}`)
	src := NewBoardSource("empty", BoardConfig{ATS: "greenhouse", Token: "empty", BaseURL: srv.URL}, srv.Client())
	posts, err := src.FetchPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestBoardSource_MalformedJSON(t *testing.T) {
	srv := boardServer(t, "/bad?mode=json", `{not valid json`)
	src := NewBoardSource("bad", BoardConfig{ATS: "lever", Token: "bad", BaseURL: srv.URL}, srv.Client())
	_, err := src.FetchPosts(context.Background())
	assert.Error(t, err)
}

func TestBoardSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewBoardSource("busy", BoardConfig{ATS: "ashby", Token: "busy", BaseURL: srv.URL}, srv.Client())
	_, err := src.FetchPosts(context.Background())
	var httpErr *model.HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, 7*time.Second, httpErr.RetryAfter)
}

func TestBoardSource_UnsupportedATS(t *testing.T) {
	src := NewBoardSource("x", BoardConfig{ATS: "workable", Token: "x", BaseURL: "http://127.0.0.1:1"}, http.DefaultClient)
	_, err := src.FetchPosts(context.Background())
	assert.ErrorContains(t, err, "unsupported ats")
}
