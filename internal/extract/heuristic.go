package extract

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobagg/internal/canon"
	"github.com/amishk599/jobagg/internal/model"
)

var (
	labelRe = regexp.MustCompile(`(?im)^[\s*•\-#>]*(job title|position|role|title|designation|opening|company name|company|organi[sz]ation|employer|hiring company|work location|location|based in|city|experience required|experience|exp|yoe|job type|work mode|work type|mode|apply link|apply here|apply at|apply|link)(?:\s*[:=]\s*|\s+[\-–]\s+)(.+?)\s*$`)

	// "Senior Backend Engineer at Acme Corp, Remote"
	roleAtCompanyRe = regexp.MustCompile(`(?i)^\s*(?:(?:urgent(?:ly)?\s+)?hiring\s*[:!\-]?\s*|we(?:'re| are)\s+hiring\s*[:!\-]?\s*(?:an?\s+)?)?(?P<role>[^,\n@:]{2,80}?)\s+(?:at|@)\s+(?P<company>[^,\n(|]{2,80}?)(?:(?:\s*[,(|]\s*|\s+[-–]\s+)(?P<loc>[^\n)|]{2,60}?))?\s*\)?[.!]?\s*$`)

	// "Globex is hiring a Data Engineer in Pune"
	companyHiringRe = regexp.MustCompile(`(?i)^\s*(?P<company>[^\n,]{2,60}?)\s+(?:is|are)\s+hiring(?:\s+for)?\s*[:\-]?\s*(?:an?\s+)?(?P<role>[^\n,.!(]{2,80}?)(?:\s+(?:in|at|for)\s+(?P<loc>[^\n,.!(]{2,60}?))?\s*(?:[.!,(]|$)`)

	jobTypeRe    = regexp.MustCompile(`(?i)\b(work from home|work from office|fully remote|remote|wfh|wfo|hybrid|on-?site|in[- ]office)\b`)
	experienceRe = regexp.MustCompile(`(?i)\b(\d{1,2}\s*(?:-|–|to)\s*\d{1,2}|\d{1,2}\s*\+?)\s*(?:\+\s*)?(?:years?|yrs?)\b`)
	seniorityRe  = regexp.MustCompile(`(?i)\b(fresher|freshers|entry[- ]level|internship|intern|junior|mid[- ]level|senior|lead|principal)\b`)
	urlRe        = regexp.MustCompile(`https?://[^\s<>"']+`)
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Heuristic is the deterministic fallback parser. It recognizes labelled
// lines ("Company: X"), "<Role> at <Company>, <Location>" headlines and
// "<Company> is hiring <Role>" sentences.
type Heuristic struct{}

// Parse returns a candidate and whether both role and company were found.
func (Heuristic) Parse(text string) (model.Candidate, bool) {
	var c model.Candidate

	for _, m := range labelRe.FindAllStringSubmatch(text, -1) {
		key, val := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		switch key {
		case "job title", "position", "role", "title", "designation", "opening":
			setOnce(&c.Role, val)
		case "company name", "company", "organisation", "organization", "employer", "hiring company":
			if looksLikeCompany(val) {
				setOnce(&c.CompanyName, val)
			}
		case "work location", "location", "based in", "city":
			setOnce(&c.Location, val)
		case "experience required", "experience", "exp", "yoe":
			setOnce(&c.ExperienceRequired, val)
		case "job type", "work mode", "work type", "mode":
			if c.JobType == "" {
				c.JobType = canon.ParseJobType(val)
			}
		case "apply link", "apply here", "apply at", "apply", "link":
			if u := firstLink(val); u != "" {
				setOnce(&c.ApplicationLink, u)
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if c.Role != "" && c.CompanyName != "" {
			break
		}
		line = strings.Trim(strings.TrimSpace(line), "*_~")
		if line == "" {
			continue
		}
		if m := roleAtCompanyRe.FindStringSubmatch(line); m != nil && looksLikeCompany(m[roleAtCompanyRe.SubexpIndex("company")]) {
			setOnce(&c.Role, m[roleAtCompanyRe.SubexpIndex("role")])
			setOnce(&c.CompanyName, m[roleAtCompanyRe.SubexpIndex("company")])
			setOnce(&c.Location, m[roleAtCompanyRe.SubexpIndex("loc")])
			continue
		}
		if m := companyHiringRe.FindStringSubmatch(line); m != nil && looksLikeCompany(m[companyHiringRe.SubexpIndex("company")]) {
			setOnce(&c.CompanyName, m[companyHiringRe.SubexpIndex("company")])
			setOnce(&c.Role, m[companyHiringRe.SubexpIndex("role")])
			setOnce(&c.Location, m[companyHiringRe.SubexpIndex("loc")])
		}
	}

	if c.JobType == "" || c.JobType == model.JobTypeUnknown {
		switch {
		case canon.ParseJobType(c.Location) != model.JobTypeUnknown:
			c.JobType = canon.ParseJobType(c.Location)
		default:
			if m := jobTypeRe.FindString(text); m != "" {
				c.JobType = canon.ParseJobType(m)
			} else {
				c.JobType = model.JobTypeUnknown
			}
		}
	}

	if c.ExperienceRequired == "" {
		if m := experienceRe.FindString(text); m != "" {
			c.ExperienceRequired = strings.TrimSpace(m)
		} else if m := seniorityRe.FindString(text); m != "" {
			c.ExperienceRequired = m
		}
	}
	if c.ApplicationLink == "" {
		c.ApplicationLink = firstLink(text)
	}

	c.Role = strings.TrimSpace(c.Role)
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.ExtractedBy = model.ExtractedByFallback
	return c, c.Role != "" && c.CompanyName != ""
}

// looksLikeCompany rejects links and addresses, which show up after "at" in
// "apply at ..." lines.
func looksLikeCompany(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.Contains(v, "://") || strings.Contains(v, "@") || strings.HasPrefix(strings.ToLower(v), "www.") {
		return false
	}
	return !urlRe.MatchString(v) && !emailRe.MatchString(v)
}

func firstLink(s string) string {
	if u := urlRe.FindString(s); u != "" {
		return strings.TrimRight(u, ".,;:!?)]}*")
	}
	return emailRe.FindString(s)
}

func setOnce(dst *string, v string) {
	v = strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "*_~"))
	if *dst == "" && v != "" {
		*dst = v
	}
}
