// Package httpapi serves the stored postings as a read-only JSON API.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobagg/internal/filter"
	"github.com/amishk599/jobagg/internal/model"
)

// NewMux wires the query endpoints onto a fresh ServeMux.
func NewMux(q model.JobQuerier, logger *slog.Logger) *http.ServeMux {
	h := handler{q: q, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs", h.jobs)
	mux.HandleFunc("GET /api/statistics", h.statistics)
	mux.HandleFunc("GET /api/charts", h.charts)
	mux.HandleFunc("GET /api/filter-options", h.filterOptions)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}

// NewServer returns an http.Server for addr with access logging applied.
func NewServer(addr string, q model.JobQuerier, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           accessLog(NewMux(q, logger), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type handler struct {
	q      model.JobQuerier
	logger *slog.Logger
}

type jobJSON struct {
	ID                 int64     `json:"id"`
	Role               string    `json:"role"`
	CompanyName        string    `json:"company_name"`
	Location           string    `json:"location"`
	ExperienceRequired string    `json:"experience_required"`
	JobType            string    `json:"job_type"`
	ApplicationLink    string    `json:"application_link"`
	Description        string    `json:"description"`
	Source             string    `json:"source"`
	PostedDate         time.Time `json:"posted_date"`
	FirstSeen          time.Time `json:"first_seen"`
	Fingerprint        string    `json:"fingerprint"`
}

type jobsPage struct {
	Jobs       []jobJSON `json:"jobs"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

func (h handler) jobs(w http.ResponseWriter, r *http.Request) {
	params := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	f, err := filter.FromMap(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PerPage == 0 {
		f.PerPage = 20
	}
	if f.Order == "" {
		f.Order = model.OrderNewest
	}

	total, err := h.q.Count(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	stored, err := h.q.Query(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := jobsPage{
		Jobs:       make([]jobJSON, 0, len(stored)),
		Total:      total,
		Page:       f.Page,
		PerPage:    f.PerPage,
		TotalPages: (total + f.PerPage - 1) / f.PerPage,
	}
	for _, j := range stored {
		page.Jobs = append(page.Jobs, jobJSON{
			ID:                 j.ID,
			Role:               j.Role,
			CompanyName:        j.CompanyName,
			Location:           j.Location,
			ExperienceRequired: j.ExperienceRequired,
			JobType:            string(j.JobType),
			ApplicationLink:    j.ApplicationLink,
			Description:        j.Description,
			Source:             j.Source,
			PostedDate:         j.PostedDate,
			FirstSeen:          j.FirstSeen,
			Fingerprint:        j.Fingerprint,
		})
	}
	writeJSON(w, http.StatusOK, page)
}

func (h handler) statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.q.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total_jobs":          st.Total,
		"today_jobs":          st.Today,
		"remote_jobs":         st.ByType[model.JobTypeRemote],
		"week_jobs":           st.LastWeek,
		"companies":           st.Companies,
		"duplicate_sightings": st.DuplicateSightings,
	})
}

func (h handler) charts(w http.ResponseWriter, r *http.Request) {
	st, err := h.q.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	byType := make(map[string]int, len(st.ByType))
	for k, v := range st.ByType {
		byType[string(k)] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_types": byType,
		"sources":   st.BySource,
	})
}

func (h handler) filterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.q.FilterOptions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	types := make([]string, len(opts.JobTypes))
	for i, t := range opts.JobTypes {
		types[i] = string(t)
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"job_types": types,
		"sources":   nonNil(opts.Sources),
		"locations": nonNil(opts.Locations),
		"companies": nonNil(opts.Companies),
	})
}

func (h handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("query failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
