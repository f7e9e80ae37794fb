package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/store"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.SetClock(func() time.Time { return testNow })

	jobs := []model.Candidate{
		{Role: "Backend Engineer", CompanyName: "Acme Corp", Location: "Remote", JobType: model.JobTypeRemote, Source: "telegram", PostedDate: testNow.AddDate(0, 0, -3), PostID: "1"},
		{Role: "Data Analyst", CompanyName: "Globex", Location: "Pune", JobType: model.JobTypeOnSite, Source: "whatsapp", PostedDate: testNow.AddDate(0, 0, -1), PostID: "2"},
		{Role: "SRE", CompanyName: "Acme Corp", Location: "Berlin", JobType: model.JobTypeHybrid, Source: "telegram", PostedDate: testNow, PostID: "3"},
	}
	for i, c := range jobs {
		_, err := s.InsertUnique(context.Background(), c, string(rune('a'+i)))
		require.NoError(t, err)
	}

	srv := httptest.NewServer(NewMux(s, discardLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestJobsDefaultsToNewestFirstPage(t *testing.T) {
	srv := seededServer(t)

	var page jobsPage
	status := getJSON(t, srv.URL+"/api/jobs", &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PerPage)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Jobs, 3)
	assert.Equal(t, "SRE", page.Jobs[0].Role)
	assert.Equal(t, "Hybrid", page.Jobs[0].JobType)
}

func TestJobsFiltersAndPaginates(t *testing.T) {
	srv := seededServer(t)

	var page jobsPage
	getJSON(t, srv.URL+"/api/jobs?company=acme&page=2&per_page=1&order=insertion", &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, "SRE", page.Jobs[0].Role)

	getJSON(t, srv.URL+"/api/jobs?source=whatsapp&job_type=all", &page)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, "Data Analyst", page.Jobs[0].Role)
}

func TestJobsRejectsBadFilter(t *testing.T) {
	srv := seededServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/jobs?date_range=yesterday", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "date_range")
}

func TestStatisticsAndCharts(t *testing.T) {
	srv := seededServer(t)

	var st map[string]int
	getJSON(t, srv.URL+"/api/statistics", &st)
	assert.Equal(t, 3, st["total_jobs"])
	assert.Equal(t, 1, st["today_jobs"])
	assert.Equal(t, 1, st["remote_jobs"])
	assert.Equal(t, 2, st["companies"])

	var charts struct {
		JobTypes map[string]int `json:"job_types"`
		Sources  map[string]int `json:"sources"`
	}
	getJSON(t, srv.URL+"/api/charts", &charts)
	assert.Equal(t, 2, charts.Sources["telegram"])
	assert.Equal(t, 1, charts.JobTypes["On-site"])
}

func TestFilterOptions(t *testing.T) {
	srv := seededServer(t)

	var opts map[string][]string
	getJSON(t, srv.URL+"/api/filter-options", &opts)
	assert.Equal(t, []string{"telegram", "whatsapp"}, opts["sources"])
	assert.Equal(t, []string{"Acme Corp", "Globex"}, opts["companies"])
	assert.Len(t, opts["job_types"], 4)
}

func TestHealth(t *testing.T) {
	srv := seededServer(t)

	var body map[string]bool
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body["ok"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := seededServer(t)

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type brokenQuerier struct{}

func (brokenQuerier) Query(context.Context, model.Filters) ([]model.StoredJob, error) {
	return nil, errors.New("disk gone")
}
func (brokenQuerier) Count(context.Context, model.Filters) (int, error) {
	return 0, errors.New("disk gone")
}
func (brokenQuerier) Stats(context.Context) (model.Stats, error) {
	return model.Stats{}, errors.New("disk gone")
}
func (brokenQuerier) FilterOptions(context.Context) (model.FilterOptions, error) {
	return model.FilterOptions{}, errors.New("disk gone")
}

func TestStorageErrorsAreInternal(t *testing.T) {
	srv := httptest.NewServer(NewServer("", brokenQuerier{}, discardLogger()).Handler)
	defer srv.Close()

	for _, path := range []string{"/api/jobs", "/api/statistics", "/api/charts", "/api/filter-options"} {
		var body map[string]string
		status := getJSON(t, srv.URL+path, &body)
		assert.Equal(t, http.StatusInternalServerError, status, path)
		assert.Equal(t, "internal error", body["error"], path)
	}
}
