package model

// Order controls result ordering for queries.
type Order string

const (
	OrderInsertion Order = "insertion"
	OrderNewest    Order = "newest"
)

// DateRange restricts results by posted date relative to now.
type DateRange string

const (
	DateRangeAny   DateRange = ""
	DateRangeToday DateRange = "today"
	DateRange3Days DateRange = "3days"
	DateRange7Days DateRange = "7days"
)

// Filters is a conjunction of optional constraints. Zero values impose no
// constraint.
type Filters struct {
	JobType            JobType // exact
	Location           string  // case-insensitive substring
	CompanyName        string  // case-insensitive substring
	ExperienceRequired string  // case-insensitive substring
	Source             string  // exact
	Search             string  // substring of role, company or description
	DateRange          DateRange
	Order              Order
	Page               int // 1-based; 0 disables pagination
	PerPage            int
}

// Offset returns the row offset for the requested page.
func (f Filters) Offset() int {
	if f.Page <= 1 || f.PerPage <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}
