// Package canon normalizes extracted postings so equivalent postings compare equal.
package canon

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobagg/internal/model"
)

// invisible strips zero-width and other format characters that chat clients
// sprinkle into copied text, and control characters other than whitespace.
var invisible = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.Is(unicode.Cf, r) || (unicode.IsControl(r) && !unicode.IsSpace(r))
}))

var placeholders = map[string]bool{
	"":              true,
	"-":             true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"not specified": true,
	"not mentioned": true,
	"unspecified":   true,
}

// Canonicalize returns a copy of c with whitespace cleaned on every text
// field, the job type mapped onto the enumeration and placeholder locations
// blanked. Display casing is kept.
func Canonicalize(c model.Candidate) model.Candidate {
	out := c
	out.Role = Clean(c.Role)
	out.CompanyName = Clean(c.CompanyName)
	out.Location = Clean(c.Location)
	out.ExperienceRequired = Clean(c.ExperienceRequired)
	out.ApplicationLink = Clean(c.ApplicationLink)
	out.Description = cleanMultiline(c.Description)
	out.Source = Clean(c.Source)

	if placeholders[strings.ToLower(out.Location)] {
		out.Location = ""
	}
	if placeholders[strings.ToLower(out.ExperienceRequired)] {
		out.ExperienceRequired = ""
	}
	out.JobType = ParseJobType(string(c.JobType))
	return out
}

// Key folds the identifying triple of an already canonical candidate.
func Key(c model.Candidate) model.CanonicalKey {
	return model.CanonicalKey{
		Company:  fold(c.CompanyName),
		Role:     fold(c.Role),
		Location: fold(c.Location),
	}
}

// Clean removes format and control characters, trims, and collapses internal whitespace
// runs to a single space.
func Clean(s string) string {
	s, _, _ = transform.String(invisible, s)
	return strings.Join(strings.Fields(s), " ")
}

func cleanMultiline(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = Clean(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

var folder = cases.Fold()

func fold(s string) string {
	s = Clean(s)
	s = norm.NFKC.String(s)
	s = folder.String(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if placeholders[s] {
		return ""
	}
	return s
}
