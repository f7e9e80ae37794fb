package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobagg/internal/model"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint         TEXT NOT NULL UNIQUE,
		post_id             TEXT NOT NULL,
		role                TEXT NOT NULL,
		company_name        TEXT NOT NULL,
		location            TEXT NOT NULL DEFAULT '',
		experience_required TEXT NOT NULL DEFAULT '',
		job_type            TEXT NOT NULL DEFAULT 'Unknown',
		application_link    TEXT NOT NULL DEFAULT '',
		description         TEXT NOT NULL DEFAULT '',
		source              TEXT NOT NULL,
		posted_date         TEXT NOT NULL,
		extracted_by        TEXT NOT NULL DEFAULT '',
		first_seen          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_posted_date ON jobs (posted_date)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs (source)`,
	`CREATE TABLE IF NOT EXISTS duplicate_links (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL,
		source      TEXT NOT NULL,
		post_id     TEXT NOT NULL,
		observed_at TEXT NOT NULL,
		UNIQUE (fingerprint, source, post_id)
	)`,
}

// SQLiteStore persists deduplicated jobs and their duplicate sightings.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ model.JobStore   = (*SQLiteStore)(nil)
	_ model.JobQuerier = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Transactions take the write lock at BEGIN so that concurrent Admit calls
	// from separate processes serialize on the fingerprint check.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection per store; other processes are held off by _txlock.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// SetClock replaces time.Now, for tests.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

// IsDuplicate returns true if the fingerprint is already stored.
func (s *SQLiteStore) IsDuplicate(ctx context.Context, fingerprint string) (bool, error) {
	return exists(ctx, s.db, fingerprint)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q queryer, fingerprint string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM jobs WHERE fingerprint = ?", fingerprint).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking fingerprint %s: %w", short(fingerprint), err)
	}
	return true, nil
}

// InsertUnique stores a new job. It fails with *model.ConstraintError if the
// fingerprint already exists.
func (s *SQLiteStore) InsertUnique(ctx context.Context, c model.Candidate, fingerprint string) (model.StoredJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StoredJob{}, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	dup, err := exists(ctx, tx, fingerprint)
	if err != nil {
		return model.StoredJob{}, err
	}
	if dup {
		return model.StoredJob{}, &model.ConstraintError{Fingerprint: fingerprint}
	}
	job, err := s.insertJob(ctx, tx, c, fingerprint)
	if err != nil {
		return model.StoredJob{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.StoredJob{}, fmt.Errorf("commit insert: %w", err)
	}
	return job, nil
}

// RecordDuplicate notes a later sighting of fingerprint. Recording the same
// (fingerprint, source, postID) twice keeps a single row.
func (s *SQLiteStore) RecordDuplicate(ctx context.Context, fingerprint, source, postID string) (model.DuplicateLink, error) {
	return s.recordLink(ctx, s.db, fingerprint, source, postID)
}

// Admit stores c if its fingerprint is new, otherwise records a duplicate
// sighting. Both paths run in one transaction.
func (s *SQLiteStore) Admit(ctx context.Context, c model.Candidate, fingerprint string) (model.Admission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Admission{}, fmt.Errorf("begin admit: %w", err)
	}
	defer tx.Rollback()

	dup, err := exists(ctx, tx, fingerprint)
	if err != nil {
		return model.Admission{}, err
	}

	var adm model.Admission
	if dup {
		link, err := s.recordLink(ctx, tx, fingerprint, c.Source, c.PostID)
		if err != nil {
			return model.Admission{}, err
		}
		adm = model.Admission{Link: link}
	} else {
		job, err := s.insertJob(ctx, tx, c, fingerprint)
		if err != nil {
			return model.Admission{}, err
		}
		adm = model.Admission{Job: job, Added: true}
	}

	if err := tx.Commit(); err != nil {
		return model.Admission{}, fmt.Errorf("commit admit: %w", err)
	}
	return adm, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insertJob(ctx context.Context, ex execer, c model.Candidate, fingerprint string) (model.StoredJob, error) {
	firstSeen := s.now().UTC()
	if c.JobType == "" {
		c.JobType = model.JobTypeUnknown
	}
	res, err := ex.ExecContext(ctx, `INSERT INTO jobs
		(fingerprint, post_id, role, company_name, location, experience_required,
		 job_type, application_link, description, source, posted_date, extracted_by, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint, c.PostID, c.Role, c.CompanyName, c.Location, c.ExperienceRequired,
		string(c.JobType), c.ApplicationLink, c.Description, c.Source,
		formatTime(c.PostedDate), c.ExtractedBy, formatTime(firstSeen),
	)
	if err != nil {
		return model.StoredJob{}, fmt.Errorf("inserting job %s: %w", short(fingerprint), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.StoredJob{}, fmt.Errorf("reading job id: %w", err)
	}
	c.PostedDate = c.PostedDate.UTC()
	return model.StoredJob{Candidate: c, ID: id, Fingerprint: fingerprint, FirstSeen: firstSeen}, nil
}

func (s *SQLiteStore) recordLink(ctx context.Context, ex execer, fingerprint, source, postID string) (model.DuplicateLink, error) {
	observed := s.now().UTC()
	_, err := ex.ExecContext(ctx,
		"INSERT OR IGNORE INTO duplicate_links (fingerprint, source, post_id, observed_at) VALUES (?, ?, ?, ?)",
		fingerprint, source, postID, formatTime(observed),
	)
	if err != nil {
		return model.DuplicateLink{}, fmt.Errorf("recording duplicate of %s from %s: %w", short(fingerprint), source, err)
	}
	return model.DuplicateLink{Fingerprint: fingerprint, Source: source, PostID: postID, ObservedAt: observed}, nil
}

// Links returns the duplicate sightings of a fingerprint, oldest first.
func (s *SQLiteStore) Links(ctx context.Context, fingerprint string) ([]model.DuplicateLink, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT fingerprint, source, post_id, observed_at FROM duplicate_links WHERE fingerprint = ? ORDER BY id",
		fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("listing links of %s: %w", short(fingerprint), err)
	}
	defer rows.Close()

	var out []model.DuplicateLink
	for rows.Next() {
		var l model.DuplicateLink
		var observed string
		if err := rows.Scan(&l.Fingerprint, &l.Source, &l.PostID, &observed); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		l.ObservedAt = parseTime(observed)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
