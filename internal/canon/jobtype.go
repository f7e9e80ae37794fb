package canon

import (
	"strings"

	"github.com/amishk599/jobagg/internal/model"
)

// synonyms maps lowercased phrases onto the job type enumeration. Order
// matters for substring matching: hybrid wins over any office mention.
// Vague entries only count inside a longer phrase, never on their own as a
// filter value.
var synonyms = []struct {
	phrase string
	t      model.JobType
	vague  bool
}{
	{"hybrid", model.JobTypeHybrid, false},
	{"flexible", model.JobTypeHybrid, true},
	{"work from home", model.JobTypeRemote, false},
	{"work from office", model.JobTypeOnSite, false},
	{"remote work", model.JobTypeRemote, false},
	{"fully remote", model.JobTypeRemote, false},
	{"in-office", model.JobTypeOnSite, false},
	{"in office", model.JobTypeOnSite, false},
	{"on-site", model.JobTypeOnSite, false},
	{"on site", model.JobTypeOnSite, false},
	{"onsite", model.JobTypeOnSite, false},
	{"remote", model.JobTypeRemote, false},
	{"wfh", model.JobTypeRemote, false},
	{"wfo", model.JobTypeOnSite, false},
	{"office", model.JobTypeOnSite, true},
}

// LookupJobType accepts only an enumeration spelling or a well-known
// synonym such as "WFH", compared case-insensitively as a whole.
func LookupJobType(s string) (model.JobType, bool) {
	v := strings.ToLower(Clean(s))
	for _, t := range model.JobTypes {
		if v == strings.ToLower(string(t)) {
			return t, true
		}
	}
	for _, syn := range synonyms {
		if !syn.vague && v == syn.phrase {
			return syn.t, true
		}
	}
	return "", false
}

// ParseJobType maps a free-form work arrangement onto the enumeration,
// returning Unknown when nothing matches.
func ParseJobType(s string) model.JobType {
	if t, ok := LookupJobType(s); ok {
		return t
	}
	v := strings.ToLower(Clean(s))
	if v == "" {
		return model.JobTypeUnknown
	}
	// "Remote (India)", "Hybrid - 3 days in office", "Flexible"
	for _, syn := range synonyms {
		if strings.Contains(v, syn.phrase) {
			return syn.t
		}
	}
	return model.JobTypeUnknown
}
