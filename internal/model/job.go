package model

import (
	"context"
	"time"
)

// RawPost is one unstructured message as handed over by a source.
type RawPost struct {
	Source    string    // adapter name, e.g. "whatsapp", "telegram"
	ID        string    // source-local identifier, empty if the channel has none
	Text      string    // the message body
	Timestamp time.Time // zero if the source could not tell
}

// Candidate is the structured posting produced by extraction.
type Candidate struct {
	Role               string
	CompanyName        string
	Location           string
	ExperienceRequired string
	JobType            JobType
	ApplicationLink    string
	Description        string
	Source             string
	PostedDate         time.Time
	PostID             string
	ExtractedBy        string // ExtractedByLLM or ExtractedByFallback
}

const (
	ExtractedByLLM      = "llm"
	ExtractedByFallback = "fallback"
)

// CanonicalKey is the folded triple a fingerprint is computed from.
// It is never persisted.
type CanonicalKey struct {
	Company  string
	Role     string
	Location string
}

// StoredJob is a persisted, deduplicated posting.
type StoredJob struct {
	Candidate
	ID          int64
	Fingerprint string
	FirstSeen   time.Time
}

// DuplicateLink records a later sighting of an already stored posting.
type DuplicateLink struct {
	Fingerprint string
	Source      string
	PostID      string
	ObservedAt  time.Time
}

// Admission is the outcome of offering a candidate to storage.
type Admission struct {
	Job   StoredJob     // set when Added
	Link  DuplicateLink // set when !Added
	Added bool
}

// RunStats summarizes one aggregation run.
type RunStats struct {
	RunID           string
	Started         time.Time
	Finished        time.Time
	Fetched         int
	Added           int
	Duplicates      int
	Failed          int
	AdapterFailures int
}

// Stats is the dashboard summary of stored postings.
type Stats struct {
	Total              int
	Today              int
	LastWeek           int
	Companies          int
	DuplicateSightings int
	ByType             map[JobType]int
	BySource           map[string]int
}

// FilterOptions lists the distinct values a caller can filter on.
type FilterOptions struct {
	JobTypes  []JobType
	Sources   []string
	Locations []string
	Companies []string
}

// Source yields raw posts from one channel.
type Source interface {
	Name() string
	FetchPosts(ctx context.Context) ([]RawPost, error)
}

// JobStore is the write side of storage used by the pipeline.
type JobStore interface {
	IsDuplicate(ctx context.Context, fingerprint string) (bool, error)
	InsertUnique(ctx context.Context, c Candidate, fingerprint string) (StoredJob, error)
	RecordDuplicate(ctx context.Context, fingerprint, source, postID string) (DuplicateLink, error)
	Admit(ctx context.Context, c Candidate, fingerprint string) (Admission, error)
}

// JobQuerier is the read side of storage used by the query surfaces.
type JobQuerier interface {
	Query(ctx context.Context, f Filters) ([]StoredJob, error)
	Count(ctx context.Context, f Filters) (int, error)
	Stats(ctx context.Context) (Stats, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
}

// Notifier announces newly stored postings.
type Notifier interface {
	Notify(ctx context.Context, jobs []StoredJob) error
}
