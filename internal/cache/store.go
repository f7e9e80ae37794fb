package cache

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobagg/internal/model"
)

// Backend is the storage being fronted.
type Backend interface {
	model.JobStore
	model.JobQuerier
}

// StatsCache is what Store needs from a cache.
type StatsCache interface {
	GetStats(ctx context.Context) (model.Stats, bool, error)
	SetStats(ctx context.Context, st model.Stats) error
	Invalidate(ctx context.Context) error
}

// Store serves Stats from the cache and drops the cached value on every
// successful write. Cache errors are logged and the backend answers instead.
type Store struct {
	Backend
	cache  StatsCache
	logger *slog.Logger
}

var (
	_ model.JobStore   = (*Store)(nil)
	_ model.JobQuerier = (*Store)(nil)
)

// NewStore wraps backend with a stats cache.
func NewStore(backend Backend, cache StatsCache, logger *slog.Logger) *Store {
	return &Store{Backend: backend, cache: cache, logger: logger}
}

func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	st, ok, err := s.cache.GetStats(ctx)
	if err != nil {
		s.logger.Warn("stats cache read failed", "error", err)
	}
	if ok {
		return st, nil
	}

	st, err = s.Backend.Stats(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	if err := s.cache.SetStats(ctx, st); err != nil {
		s.logger.Warn("stats cache write failed", "error", err)
	}
	return st, nil
}

func (s *Store) InsertUnique(ctx context.Context, c model.Candidate, fingerprint string) (model.StoredJob, error) {
	job, err := s.Backend.InsertUnique(ctx, c, fingerprint)
	if err == nil {
		s.invalidate(ctx)
	}
	return job, err
}

func (s *Store) RecordDuplicate(ctx context.Context, fingerprint, source, postID string) (model.DuplicateLink, error) {
	link, err := s.Backend.RecordDuplicate(ctx, fingerprint, source, postID)
	if err == nil {
		s.invalidate(ctx)
	}
	return link, err
}

func (s *Store) Admit(ctx context.Context, c model.Candidate, fingerprint string) (model.Admission, error) {
	adm, err := s.Backend.Admit(ctx, c, fingerprint)
	if err == nil {
		s.invalidate(ctx)
	}
	return adm, err
}

func (s *Store) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("stats cache invalidation failed", "error", err)
	}
}
