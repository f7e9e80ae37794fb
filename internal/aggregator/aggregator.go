// Package aggregator drives one pass of the pipeline over every registered
// source: fetch, extract, canonicalize, fingerprint, store.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobagg/internal/canon"
	"github.com/amishk599/jobagg/internal/dedup"
	"github.com/amishk599/jobagg/internal/model"
)

// Extractor turns a raw post into a candidate or an *model.ExtractionFailure.
type Extractor interface {
	Extract(ctx context.Context, post model.RawPost) (model.Candidate, error)
}

// Aggregator owns the pipeline for a set of sources. It keeps no state
// between runs; everything durable lives in the store.
type Aggregator struct {
	sources      []model.Source
	extractor    Extractor
	store        model.JobStore
	notifier     model.Notifier // nil disables notifications
	concurrency  int
	fetchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithNotifier announces newly added jobs after each run.
func WithNotifier(n model.Notifier) Option {
	return func(a *Aggregator) { a.notifier = n }
}

// WithConcurrency caps how many sources are fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithFetchTimeout bounds each source's fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.fetchTimeout = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an aggregator wired with all its dependencies.
func New(sources []model.Source, extractor Extractor, store model.JobStore, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:      sources,
		extractor:    extractor,
		store:        store,
		concurrency:  4,
		fetchTimeout: 5 * time.Minute,
		logger:       logger,
		now:          time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Sources returns the registered source names in order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Aggregate runs one pass over all sources. Per-post and per-source failures
// are counted, never returned. The only error is ctx's, in which case the
// stats cover the posts handled before cancellation.
func (a *Aggregator) Aggregate(ctx context.Context) (model.RunStats, error) {
	stats := model.RunStats{RunID: uuid.NewString(), Started: a.now()}
	logger := a.logger.With("run_id", stats.RunID)

	batches, failures := a.fetchAll(ctx)
	for _, f := range failures {
		stats.AdapterFailures++
		logger.Warn("source failed, continuing with the rest", "source", f.Source, "error", f.Err)
	}
	if err := ctx.Err(); err != nil {
		return a.finish(ctx, logger, stats, nil), err
	}

	var added []model.StoredJob
	for _, posts := range batches {
		stats.Fetched += len(posts)
		for _, post := range posts {
			if err := ctx.Err(); err != nil {
				return a.finish(ctx, logger, stats, added), err
			}

			adm, err := a.process(ctx, logger, post)
			if err != nil {
				if ctx.Err() != nil {
					return a.finish(ctx, logger, stats, added), ctx.Err()
				}
				stats.Failed++
				continue
			}
			if adm.Added {
				stats.Added++
				added = append(added, adm.Job)
			} else {
				stats.Duplicates++
			}
		}
	}

	return a.finish(ctx, logger, stats, added), nil
}

// fetchAll reads every source concurrently. Results keep registration order.
func (a *Aggregator) fetchAll(ctx context.Context) ([][]model.RawPost, []*model.AdapterFailure) {
	batches := make([][]model.RawPost, len(a.sources))
	errs := make([]error, len(a.sources))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, src := range a.sources {
		g.Go(func() error {
			fctx := ctx
			if a.fetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, a.fetchTimeout)
				defer cancel()
			}
			posts, err := src.FetchPosts(fctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			for j := range posts {
				if posts[j].Source == "" {
					posts[j].Source = src.Name()
				}
			}
			batches[i] = posts
			a.logger.Debug("source fetched", "source", src.Name(), "posts", len(posts))
			return nil
		})
	}
	_ = g.Wait()

	var failures []*model.AdapterFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &model.AdapterFailure{Source: a.sources[i].Name(), Err: err})
		}
	}
	return batches, failures
}

// process runs one post through extraction, canonicalization and storage.
// The store call is the post's only write and is atomic.
func (a *Aggregator) process(ctx context.Context, logger *slog.Logger, post model.RawPost) (model.Admission, error) {
	c, err := a.extractor.Extract(ctx, post)
	if err != nil {
		var ef *model.ExtractionFailure
		if errors.As(err, &ef) {
			logger.Info("extraction failed", "source", post.Source, "post_id", post.ID, "reason", ef.Reason)
		} else {
			logger.Warn("extraction failed", "source", post.Source, "post_id", post.ID, "error", err)
		}
		return model.Admission{}, err
	}

	c = canon.Canonicalize(c)
	fp := dedup.Fingerprint(c)

	adm, err := a.store.Admit(ctx, c, fp)
	if err != nil {
		logger.Error("storing post failed", "source", post.Source, "post_id", c.PostID, "fingerprint", fp, "error", err)
		return model.Admission{}, err
	}

	if adm.Added {
		logger.Debug("new job", "source", c.Source, "post_id", c.PostID, "fingerprint", fp,
			"role", c.Role, "company", c.CompanyName, "extracted_by", c.ExtractedBy)
	} else {
		logger.Debug("duplicate sighting", "source", c.Source, "post_id", c.PostID, "fingerprint", fp)
	}
	return adm, nil
}

func (a *Aggregator) finish(ctx context.Context, logger *slog.Logger, stats model.RunStats, added []model.StoredJob) model.RunStats {
	stats.Finished = a.now()

	if a.notifier != nil && len(added) > 0 && ctx.Err() == nil {
		if err := a.notifier.Notify(ctx, added); err != nil {
			logger.Error("notifying new jobs failed", "jobs", len(added), "error", err)
		}
	}

	logger.Info("run complete",
		"fetched", stats.Fetched,
		"added", stats.Added,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
		"adapter_failures", stats.AdapterFailures,
		"duration", stats.Finished.Sub(stats.Started).Round(time.Millisecond),
	)
	return stats
}
