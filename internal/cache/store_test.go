package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/store"
)

type memCache struct {
	st          *model.Stats
	gets, sets  int
	invalidated int
	failGet     bool
}

func (m *memCache) GetStats(context.Context) (model.Stats, bool, error) {
	m.gets++
	if m.failGet {
		return model.Stats{}, false, errors.New("connection refused")
	}
	if m.st == nil {
		return model.Stats{}, false, nil
	}
	return *m.st, true, nil
}

func (m *memCache) SetStats(_ context.Context, st model.Stats) error {
	m.sets++
	m.st = &st
	return nil
}

func (m *memCache) Invalidate(context.Context) error {
	m.invalidated++
	m.st = nil
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBackend(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func candidate(role string) model.Candidate {
	return model.Candidate{Role: role, CompanyName: "Acme", JobType: model.JobTypeRemote, Source: "test", PostID: role, PostedDate: time.Now()}
}

func TestStoreServesCachedStatsUntilWrite(t *testing.T) {
	ctx := context.Background()
	mc := &memCache{}
	s := NewStore(newBackend(t), mc, discardLogger())

	_, err := s.Admit(ctx, candidate("SRE"), "fp-1")
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, mc.sets)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, mc.sets, "second read should be a cache hit")

	_, err = s.Admit(ctx, candidate("PM"), "fp-2")
	require.NoError(t, err)
	assert.Nil(t, mc.st)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, mc.sets)
}

func TestStoreInvalidatesOnDuplicate(t *testing.T) {
	ctx := context.Background()
	mc := &memCache{}
	s := NewStore(newBackend(t), mc, discardLogger())

	_, err := s.InsertUnique(ctx, candidate("SRE"), "fp-1")
	require.NoError(t, err)
	_, err = s.RecordDuplicate(ctx, "fp-1", "whatsapp", "wa-1")
	require.NoError(t, err)
	assert.Equal(t, 2, mc.invalidated)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.DuplicateSightings)
}

func TestStoreFallsBackWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newBackend(t), &memCache{failGet: true}, discardLogger())

	_, err := s.Admit(ctx, candidate("SRE"), "fp-1")
	require.NoError(t, err)
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
}

func TestRedisCacheLive(t *testing.T) {
	url := os.Getenv("JOBAGG_REDIS_URL")
	if url == "" {
		t.Skip("JOBAGG_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := New(url, t.Name(), time.Minute)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Invalidate(ctx))

	_, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := model.Stats{Total: 3, ByType: map[model.JobType]int{model.JobTypeRemote: 3}, BySource: map[string]int{"telegram": 3}}
	require.NoError(t, c.SetStats(ctx, want))
	got, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	require.NoError(t, c.Invalidate(ctx))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url", "x", time.Minute)
	var ce *model.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}
