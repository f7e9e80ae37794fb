// Package filter turns loosely typed filter maps into query filters and
// matches stored jobs against them in memory.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/amishk599/jobagg/internal/canon"
	"github.com/amishk599/jobagg/internal/model"
)

// Keys are the recognized filter keys. Anything else is ignored.
var Keys = mapset.NewSet(
	"job_type", "location", "company_name", "experience_required", "source",
	"search", "date_range", "order", "page", "per_page",
)

// aliases accepted for dashboard-style parameter names.
var aliases = map[string]string{
	"company":    "company_name",
	"experience": "experience_required",
	"type":       "job_type",
	"q":          "search",
}

var dateRanges = mapset.NewSet(model.DateRangeToday, model.DateRange3Days, model.DateRange7Days)

// FromMap builds Filters from a key/value map. Empty values and "all" impose
// no constraint. Unknown keys are ignored.
func FromMap(m map[string]string) (model.Filters, error) {
	var f model.Filters
	for k, v := range m {
		k = strings.ToLower(strings.TrimSpace(k))
		if a, ok := aliases[k]; ok {
			k = a
		}
		if !Keys.Contains(k) {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "all") {
			continue
		}

		switch k {
		case "job_type":
			jt, ok := canon.LookupJobType(v)
			if !ok {
				return model.Filters{}, fmt.Errorf("invalid job_type %q", v)
			}
			f.JobType = jt
		case "location":
			f.Location = v
		case "company_name":
			f.CompanyName = v
		case "experience_required":
			f.ExperienceRequired = v
		case "source":
			f.Source = v
		case "search":
			f.Search = v
		case "date_range":
			dr := model.DateRange(strings.ToLower(v))
			if dr == "last_7_days" {
				dr = model.DateRange7Days
			}
			if !dateRanges.Contains(dr) {
				return model.Filters{}, fmt.Errorf("invalid date_range %q", v)
			}
			f.DateRange = dr
		case "order":
			switch o := model.Order(strings.ToLower(v)); o {
			case model.OrderInsertion, model.OrderNewest:
				f.Order = o
			default:
				return model.Filters{}, fmt.Errorf("invalid order %q", v)
			}
		case "page", "per_page":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return model.Filters{}, fmt.Errorf("invalid %s %q", k, v)
			}
			if k == "page" {
				f.Page = n
			} else {
				f.PerPage = n
			}
		}
	}
	if f.Page > 0 && f.PerPage == 0 {
		f.PerPage = 20
	}
	return f, nil
}

// Match reports whether job satisfies every constraint in f. It mirrors the
// storage query semantics, including the date windows relative to now.
func Match(f model.Filters, job model.StoredJob, now time.Time) bool {
	if f.JobType != "" && job.JobType != f.JobType {
		return false
	}
	if !containsFold(job.Location, f.Location) ||
		!containsFold(job.CompanyName, f.CompanyName) ||
		!containsFold(job.ExperienceRequired, f.ExperienceRequired) {
		return false
	}
	if f.Source != "" && job.Source != f.Source {
		return false
	}
	if f.Search != "" &&
		!containsFold(job.Role, f.Search) &&
		!containsFold(job.CompanyName, f.Search) &&
		!containsFold(job.Description, f.Search) {
		return false
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := midnight.AddDate(0, 0, 1)
	var from time.Time
	switch f.DateRange {
	case model.DateRangeToday:
		from = midnight
	case model.DateRange3Days:
		from = now.AddDate(0, 0, -3)
	case model.DateRange7Days:
		from = now.AddDate(0, 0, -7)
	default:
		return true
	}
	return !job.PostedDate.Before(from) && job.PostedDate.Before(tomorrow)
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
