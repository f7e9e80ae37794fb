package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amishk599/jobagg/internal/dedup"
	"github.com/amishk599/jobagg/internal/model"
)

// NopStore is used in dry-run mode. It answers duplicate checks from an
// optional backing store plus the fingerprints admitted during its own
// lifetime, and never writes anything.
type NopStore struct {
	backing dedup.Lookup // may be nil

	mu   sync.Mutex
	seen map[string]bool
	next int64
}

var _ model.JobStore = (*NopStore)(nil)

// NewNopStore returns a store that reads through to backing, which may be nil.
func NewNopStore(backing dedup.Lookup) *NopStore {
	return &NopStore{backing: backing, seen: make(map[string]bool)}
}

func (s *NopStore) IsDuplicate(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	hit := s.seen[fingerprint]
	s.mu.Unlock()
	if hit || s.backing == nil {
		return hit, nil
	}
	return s.backing.IsDuplicate(ctx, fingerprint)
}

func (s *NopStore) InsertUnique(ctx context.Context, c model.Candidate, fingerprint string) (model.StoredJob, error) {
	dup, err := s.IsDuplicate(ctx, fingerprint)
	if err != nil {
		return model.StoredJob{}, err
	}
	if dup {
		return model.StoredJob{}, &model.ConstraintError{Fingerprint: fingerprint}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[fingerprint] = true
	s.next++
	return model.StoredJob{Candidate: c, ID: s.next, Fingerprint: fingerprint, FirstSeen: time.Now()}, nil
}

func (s *NopStore) RecordDuplicate(_ context.Context, fingerprint, source, postID string) (model.DuplicateLink, error) {
	return model.DuplicateLink{Fingerprint: fingerprint, Source: source, PostID: postID, ObservedAt: time.Now()}, nil
}

func (s *NopStore) Admit(ctx context.Context, c model.Candidate, fingerprint string) (model.Admission, error) {
	job, err := s.InsertUnique(ctx, c, fingerprint)
	if err == nil {
		return model.Admission{Job: job, Added: true}, nil
	}
	var ce *model.ConstraintError
	if !errors.As(err, &ce) {
		return model.Admission{}, err
	}
	link, _ := s.RecordDuplicate(ctx, fingerprint, c.Source, c.PostID)
	return model.Admission{Link: link}, nil
}
