package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableAlignsWideRunes(t *testing.T) {
	tb := newTable("Role", "Company")
	tb.add("工程师", "Acme")
	tb.add("SRE", "Globex")

	var buf bytes.Buffer
	tb.render(&buf)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	// "工程师" is six cells wide, so the company column starts at cell 8.
	if lines[2] != "工程师  Acme" {
		t.Errorf("row = %q", lines[2])
	}
	if lines[3] != "SRE     Globex" {
		t.Errorf("row = %q", lines[3])
	}
}

func TestTableTruncatesLimitedColumns(t *testing.T) {
	tb := newTable("Role", "Source").limit(0, 8)
	tb.add("Principal   Backend\nEngineer", "telegram")

	var buf bytes.Buffer
	tb.render(&buf)
	if !strings.Contains(buf.String(), "Princip…  telegram") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestJobsFiltersFromFlags(t *testing.T) {
	saved := jobsFlags
	t.Cleanup(func() { jobsFlags = saved })

	jobsFlags.jobType = "remote"
	jobsFlags.company = "Acme"
	jobsFlags.since = "7days"
	jobsFlags.newest = true
	jobsFlags.page = 2

	f, err := jobsFilters()
	if err != nil {
		t.Fatalf("jobsFilters: %v", err)
	}
	if f.JobType != "Remote" || f.CompanyName != "Acme" || f.DateRange != "7days" {
		t.Errorf("unexpected filters %+v", f)
	}
	if f.Order != "newest" || f.Page != 2 || f.PerPage != 20 {
		t.Errorf("unexpected ordering/paging %+v", f)
	}

	jobsFlags.since = "fortnight"
	if _, err := jobsFilters(); err == nil {
		t.Error("expected error for bad --since")
	}
}
