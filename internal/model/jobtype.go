package model

// JobType is the work arrangement of a posting.
type JobType string

const (
	JobTypeRemote  JobType = "Remote"
	JobTypeOnSite  JobType = "On-site"
	JobTypeHybrid  JobType = "Hybrid"
	JobTypeUnknown JobType = "Unknown"
)

// JobTypes lists every value in display order.
var JobTypes = []JobType{JobTypeRemote, JobTypeOnSite, JobTypeHybrid, JobTypeUnknown}

// Valid reports whether t is one of the four known values.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeRemote, JobTypeOnSite, JobTypeHybrid, JobTypeUnknown:
		return true
	}
	return false
}
