package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobagg/internal/extract"
	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/store"
)

// --- fakes ---

type fakeSource struct {
	name  string
	posts []model.RawPost
	err   error
	delay time.Duration
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.RawPost, len(s.posts))
	copy(out, s.posts)
	return out, nil
}

func source(name string, texts ...string) *fakeSource {
	s := &fakeSource{name: name}
	for _, text := range texts {
		s.posts = append(s.posts, model.RawPost{Source: name, Text: text, Timestamp: testNow})
	}
	return s
}

type recordingNotifier struct {
	mu       sync.Mutex
	notified []model.StoredJob
}

func (n *recordingNotifier) Notify(_ context.Context, jobs []model.StoredJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, jobs...)
	return nil
}

// failingStore fails the failOn-th Admit call.
type failingStore struct {
	model.JobStore
	failOn int
	calls  int
}

func (s *failingStore) Admit(ctx context.Context, c model.Candidate, fp string) (model.Admission, error) {
	s.calls++
	if s.calls == s.failOn {
		return model.Admission{}, errors.New("disk I/O error")
	}
	return s.JobStore.Admit(ctx, c, fp)
}

// cancellingExtractor cancels the run during its nth extraction, so that
// post never reaches the store.
type cancellingExtractor struct {
	inner  Extractor
	after  int
	cancel context.CancelFunc
	count  int
}

func (e *cancellingExtractor) Extract(ctx context.Context, post model.RawPost) (model.Candidate, error) {
	c, err := e.inner.Extract(ctx, post)
	e.count++
	if e.count == e.after {
		e.cancel()
	}
	return c, err
}

// --- helpers ---

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	s.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { s.Close() })
	return s
}

func fallbackEngine() *extract.Engine {
	return extract.NewEngine(nil, discardLogger(), extract.WithClock(func() time.Time { return testNow }))
}

func allJobs(t *testing.T, s *store.SQLiteStore) []model.StoredJob {
	t.Helper()
	jobs, err := s.Query(context.Background(), model.Filters{})
	require.NoError(t, err)
	return jobs
}

const (
	acme    = "Senior Backend Engineer at Acme Corp, Remote"
	globex  = "Data Analyst at Globex, Pune"
	initech = "SRE at Initech, Austin"
	chatter = "Good morning everyone! Any updates on the referral?"
)

// --- tests ---

func TestAggregate_AddsAndCounts(t *testing.T) {
	s := newStore(t)
	agg := New([]model.Source{
		source("telegram", acme, globex),
		source("whatsapp", acme, chatter, "hi"),
	}, fallbackEngine(), s, discardLogger())

	stats, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Fetched)
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, stats.AdapterFailures)
	assert.NotEmpty(t, stats.RunID)

	jobs := allJobs(t, s)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Senior Backend Engineer", jobs[0].Role)
	assert.Equal(t, "telegram", jobs[0].Source, "first sighting wins")
	assert.Equal(t, model.JobTypeRemote, jobs[0].JobType)
	assert.Equal(t, "Globex", jobs[1].CompanyName)
}

func TestAggregate_Idempotent(t *testing.T) {
	s := newStore(t)
	sources := []model.Source{
		source("telegram", acme, globex),
		source("whatsapp", initech, acme),
	}

	first, err := New(sources, fallbackEngine(), s, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Added)
	assert.Equal(t, 1, first.Duplicates)
	before := allJobs(t, s)

	second, err := New(sources, fallbackEngine(), s, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 4, second.Duplicates)
	assert.Equal(t, 0, second.Failed)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Equal(t, before, allJobs(t, s))
}

func TestAggregate_FailureIsolation(t *testing.T) {
	s := newStore(t)
	agg := New([]model.Source{
		&fakeSource{name: "broken", err: errors.New("network unreachable")},
		source("telegram", acme),
		&fakeSource{name: "slow", delay: time.Second},
		source("whatsapp", globex),
	}, fallbackEngine(), s, discardLogger(), WithFetchTimeout(50*time.Millisecond))

	stats, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.AdapterFailures)
	assert.Equal(t, 2, stats.Added)
	assert.Len(t, allJobs(t, s), 2)
}

func TestAggregate_TripleBlind(t *testing.T) {
	s := newStore(t)
	tg := &fakeSource{name: "telegram", posts: []model.RawPost{{
		Text:      "Senior Backend Engineer at Acme Corp, Remote\nApply: https://acme.example/1",
		Timestamp: testNow.AddDate(0, 0, -3),
	}}}
	wa := &fakeSource{name: "whatsapp", posts: []model.RawPost{{
		Text:      "senior backend engineer  at ACME CORP, remote\nGreat team, apply at https://jobs.example/acme",
		Timestamp: testNow,
	}}}

	stats, err := New([]model.Source{tg, wa}, fallbackEngine(), s, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Duplicates)

	jobs := allJobs(t, s)
	require.Len(t, jobs, 1)
	assert.Equal(t, "https://acme.example/1", jobs[0].ApplicationLink)

	links, err := s.Links(context.Background(), jobs[0].Fingerprint)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "whatsapp", links[0].Source)
}

func TestAggregate_StorageErrorCountsAsFailed(t *testing.T) {
	s := newStore(t)
	fs := &failingStore{JobStore: s, failOn: 1}
	stats, err := New([]model.Source{source("telegram", acme, globex)}, fallbackEngine(), fs, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Added)
}

func TestAggregate_CancelledBetweenPosts(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ex := &cancellingExtractor{inner: fallbackEngine(), after: 2, cancel: cancel}
	stats, err := New([]model.Source{source("telegram", acme, globex, initech)}, ex, s, discardLogger()).Aggregate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Added)
	assert.Zero(t, stats.Failed)
	assert.False(t, stats.Finished.IsZero())
	assert.Len(t, allJobs(t, s), 1)
}

func TestAggregate_NotifiesAddedOnly(t *testing.T) {
	s := newStore(t)
	n := &recordingNotifier{}
	sources := []model.Source{source("telegram", acme, globex)}

	_, err := New(sources, fallbackEngine(), s, discardLogger(), WithNotifier(n)).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Len(t, n.notified, 2)

	_, err = New(sources, fallbackEngine(), s, discardLogger(), WithNotifier(n)).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Len(t, n.notified, 2, "re-run must not notify again")
}

func TestAggregate_DryRunLeavesStoreUntouched(t *testing.T) {
	s := newStore(t)
	_, err := New([]model.Source{source("telegram", acme)}, fallbackEngine(), s, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)

	dry := store.NewNopStore(s)
	stats, err := New([]model.Source{source("whatsapp", acme, globex, globex)}, fallbackEngine(), dry, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Len(t, allJobs(t, s), 1)
}

func TestAggregate_AllFailedIsNotAnError(t *testing.T) {
	s := newStore(t)
	stats, err := New([]model.Source{source("telegram", chatter, chatter)}, fallbackEngine(), s, discardLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RunStats{RunID: stats.RunID, Started: stats.Started, Finished: stats.Finished, Fetched: 2, Failed: 2}, stats)
}

func TestSources(t *testing.T) {
	agg := New([]model.Source{source("a"), source("b")}, fallbackEngine(), newStore(t), discardLogger())
	assert.Equal(t, []string{"a", "b"}, agg.Sources())
}
