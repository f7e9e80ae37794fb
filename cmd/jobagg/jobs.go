package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagg/internal/filter"
	"github.com/amishk599/jobagg/internal/model"
)

var jobsFlags struct {
	jobType    string
	location   string
	company    string
	experience string
	source     string
	search     string
	since      string
	newest     bool
	page       int
	perPage    int
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List stored jobs",
	Long:  "Prints stored jobs matching every given filter, in insertion order unless --newest is set.",
	RunE:  runJobs,
}

func init() {
	f := jobsCmd.Flags()
	f.StringVar(&jobsFlags.jobType, "type", "", "job type: remote, on-site, hybrid or unknown")
	f.StringVar(&jobsFlags.location, "location", "", "location substring")
	f.StringVar(&jobsFlags.company, "company", "", "company substring")
	f.StringVar(&jobsFlags.experience, "experience", "", "experience substring")
	f.StringVar(&jobsFlags.source, "source", "", "exact source name")
	f.StringVarP(&jobsFlags.search, "search", "s", "", "substring of role, company or description")
	f.StringVar(&jobsFlags.since, "since", "", "date range: today, 3days or 7days")
	f.BoolVar(&jobsFlags.newest, "newest", false, "newest posts first")
	f.IntVar(&jobsFlags.page, "page", 0, "page number (1-based)")
	f.IntVar(&jobsFlags.perPage, "per-page", 0, "results per page (default 20 when --page is set)")
	rootCmd.AddCommand(jobsCmd)
}

// jobsFilters maps the command flags onto the shared filter keys.
func jobsFilters() (model.Filters, error) {
	m := map[string]string{
		"job_type":            jobsFlags.jobType,
		"location":            jobsFlags.location,
		"company_name":        jobsFlags.company,
		"experience_required": jobsFlags.experience,
		"source":              jobsFlags.source,
		"search":              jobsFlags.search,
		"date_range":          jobsFlags.since,
	}
	if jobsFlags.newest {
		m["order"] = string(model.OrderNewest)
	}
	if jobsFlags.page > 0 {
		m["page"] = strconv.Itoa(jobsFlags.page)
	}
	if jobsFlags.perPage > 0 {
		m["per_page"] = strconv.Itoa(jobsFlags.perPage)
	}
	return filter.FromMap(m)
}

func runJobs(cmd *cobra.Command, args []string) error {
	f, err := jobsFilters()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	st, err := openStore(cfg, silentLogger())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	jobs, err := st.backend.Query(ctx, f)
	if err != nil {
		return err
	}
	total, err := st.backend.Count(ctx, f)
	if err != nil {
		return err
	}

	t := newTable("ID", "Posted", "Role", "Company", "Location", "Type", "Source").
		limit(2, 40).limit(3, 24).limit(4, 24)
	for _, j := range jobs {
		t.add(strconv.FormatInt(j.ID, 10), j.PostedDate.Local().Format("2006-01-02"),
			j.Role, j.CompanyName, j.Location, string(j.JobType), j.Source)
	}
	t.render(os.Stdout)

	fmt.Printf("\nShowing %d of %d jobs\n", len(jobs), total)
	return nil
}
