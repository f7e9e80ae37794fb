package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobagg/internal/model"
)

const jobColumns = `id, fingerprint, post_id, role, company_name, location, experience_required,
	job_type, application_link, description, source, posted_date, extracted_by, first_seen`

// where builds the WHERE clause for f. LIKE is case-insensitive for ASCII.
func (s *SQLiteStore) where(f model.Filters) (string, []any) {
	var conds []string
	var args []any

	if f.JobType != "" {
		conds = append(conds, "job_type = ?")
		args = append(args, string(f.JobType))
	}
	like := func(col, v string) {
		conds = append(conds, col+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(v)+"%")
	}
	if f.Location != "" {
		like("location", f.Location)
	}
	if f.CompanyName != "" {
		like("company_name", f.CompanyName)
	}
	if f.ExperienceRequired != "" {
		like("experience_required", f.ExperienceRequired)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if f.Search != "" {
		p := "%" + escapeLike(f.Search) + "%"
		conds = append(conds, `(role LIKE ? ESCAPE '\' OR company_name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}
	if from, to, ok := s.dateBounds(f.DateRange); ok {
		conds = append(conds, "posted_date >= ? AND posted_date < ?")
		args = append(args, formatTime(from), formatTime(to))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// dateBounds returns the [from, to) window of a date range in local days.
func (s *SQLiteStore) dateBounds(r model.DateRange) (time.Time, time.Time, bool) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := midnight.AddDate(0, 0, 1)
	switch r {
	case model.DateRangeToday:
		return midnight, tomorrow, true
	case model.DateRange3Days:
		return now.AddDate(0, 0, -3), tomorrow, true
	case model.DateRange7Days:
		return now.AddDate(0, 0, -7), tomorrow, true
	}
	return time.Time{}, time.Time{}, false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Query returns stored jobs matching every constraint in f. Results come in
// insertion order unless f.Order asks for newest first.
func (s *SQLiteStore) Query(ctx context.Context, f model.Filters) ([]model.StoredJob, error) {
	where, args := s.where(f)
	q := "SELECT " + jobColumns + " FROM jobs" + where
	if f.Order == model.OrderNewest {
		q += " ORDER BY posted_date DESC, id DESC"
	} else {
		q += " ORDER BY id"
	}
	if f.PerPage > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.PerPage, f.Offset())
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.StoredJob
	for rows.Next() {
		var j model.StoredJob
		var jobType, posted, firstSeen string
		if err := rows.Scan(&j.ID, &j.Fingerprint, &j.PostID, &j.Role, &j.CompanyName, &j.Location,
			&j.ExperienceRequired, &jobType, &j.ApplicationLink, &j.Description, &j.Source,
			&posted, &j.ExtractedBy, &firstSeen); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		j.JobType = model.JobType(jobType)
		j.PostedDate = parseTime(posted)
		j.FirstSeen = parseTime(firstSeen)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

// Count returns how many jobs match f, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, f model.Filters) (int, error) {
	where, args := s.where(f)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return n, nil
}

// Stats computes dashboard counts from the stored rows.
func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	st := model.Stats{
		ByType:   make(map[model.JobType]int),
		BySource: make(map[string]int),
	}

	today, tomorrow, _ := s.dateBounds(model.DateRangeToday)
	weekAgo := s.now().AddDate(0, 0, -7)
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(posted_date >= ? AND posted_date < ?), 0),
			COALESCE(SUM(posted_date >= ?), 0),
			COUNT(DISTINCT lower(company_name))
		FROM jobs`,
		formatTime(today), formatTime(tomorrow), formatTime(weekAgo),
	).Scan(&st.Total, &st.Today, &st.LastWeek, &st.Companies)
	if err != nil {
		return model.Stats{}, fmt.Errorf("computing totals: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM duplicate_links").Scan(&st.DuplicateSightings); err != nil {
		return model.Stats{}, fmt.Errorf("counting duplicate links: %w", err)
	}

	if err := s.groupCount(ctx, "job_type", func(k string, n int) { st.ByType[model.JobType(k)] = n }); err != nil {
		return model.Stats{}, err
	}
	if err := s.groupCount(ctx, "source", func(k string, n int) { st.BySource[k] = n }); err != nil {
		return model.Stats{}, err
	}
	return st, nil
}

// groupCount runs a GROUP BY over a fixed column name.
func (s *SQLiteStore) groupCount(ctx context.Context, column string, fn func(string, int)) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM jobs GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("grouping by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return fmt.Errorf("scanning %s count: %w", column, err)
		}
		fn(k, n)
	}
	return rows.Err()
}

// FilterOptions lists the distinct values present for the filterable columns.
func (s *SQLiteStore) FilterOptions(ctx context.Context) (model.FilterOptions, error) {
	opts := model.FilterOptions{JobTypes: model.JobTypes}
	var err error
	if opts.Sources, err = s.distinct(ctx, "source", 0); err != nil {
		return model.FilterOptions{}, err
	}
	if opts.Locations, err = s.distinct(ctx, "location", 20); err != nil {
		return model.FilterOptions{}, err
	}
	if opts.Companies, err = s.distinct(ctx, "company_name", 50); err != nil {
		return model.FilterOptions{}, err
	}
	return opts, nil
}

func (s *SQLiteStore) distinct(ctx context.Context, column string, limit int) ([]string, error) {
	q := "SELECT DISTINCT " + column + " FROM jobs WHERE " + column + " != '' ORDER BY " + column
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing %s values: %w", column, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
