package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobagg/internal/canon"
	"github.com/amishk599/jobagg/internal/model"
)

func TestFingerprint_Deterministic(t *testing.T) {
	c := canon.Canonicalize(model.Candidate{
		Role:        "Senior Backend Engineer",
		CompanyName: "Acme Corp",
		Location:    "Remote",
	})
	first := Fingerprint(c)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Fingerprint(canon.Canonicalize(c)))
	}
	assert.Len(t, first, 64)
}

func TestFingerprint_KnownValue(t *testing.T) {
	// Pinned so a change to the payload layout is noticed.
	k := model.CanonicalKey{Company: "acme corp", Role: "senior backend engineer", Location: "remote"}
	assert.Equal(t, FingerprintKey(k), Fingerprint(model.Candidate{
		CompanyName: "Acme Corp",
		Role:        "Senior Backend Engineer",
		Location:    "Remote",
	}))
}

func TestFingerprint_TripleBlind(t *testing.T) {
	a := model.Candidate{
		Role:            "Data Engineer",
		CompanyName:     "Globex",
		Location:        "Bengaluru",
		Description:     "first wording",
		ApplicationLink: "https://a.example",
		Source:          "telegram",
		PostID:          "1",
		JobType:         model.JobTypeOnSite,
	}
	b := a
	b.Description = "completely different wording"
	b.ApplicationLink = "https://b.example"
	b.Source = "whatsapp"
	b.PostID = "99"
	b.JobType = model.JobTypeHybrid
	b.ExperienceRequired = "3-5 years"

	assert.Equal(t, Fingerprint(canon.Canonicalize(a)), Fingerprint(canon.Canonicalize(b)))
}

func TestFingerprint_DiffersOnKeyFields(t *testing.T) {
	base := model.Candidate{Role: "SRE", CompanyName: "Initech", Location: "Austin"}
	for name, mutate := range map[string]func(*model.Candidate){
		"role":     func(c *model.Candidate) { c.Role = "SWE" },
		"company":  func(c *model.Candidate) { c.CompanyName = "Initrode" },
		"location": func(c *model.Candidate) { c.Location = "Dallas" },
	} {
		t.Run(name, func(t *testing.T) {
			other := base
			mutate(&other)
			assert.NotEqual(t, Fingerprint(base), Fingerprint(other))
		})
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// Shifting text across fields must not collide.
	a := model.Candidate{CompanyName: "ab", Role: "c"}
	b := model.Candidate{CompanyName: "a", Role: "bc"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_SeparatorInFieldText(t *testing.T) {
	a := model.Candidate{CompanyName: "a\x1fb", Role: "c"}
	b := model.Candidate{CompanyName: "a", Role: "b\x1fc"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, Fingerprint(model.Candidate{CompanyName: "ab", Role: "c"}), Fingerprint(a))
}

type fakeLookup struct {
	seen map[string]bool
	err  error
}

func (f *fakeLookup) IsDuplicate(_ context.Context, fp string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.seen[fp], nil
}

func TestDetector_IsDuplicate(t *testing.T) {
	c := model.Candidate{Role: "SRE", CompanyName: "Initech", Location: "Austin"}
	lookup := &fakeLookup{seen: map[string]bool{Fingerprint(c): true}}
	d := NewDetector(lookup)

	dup, fp, err := d.IsDuplicate(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, Fingerprint(c), fp)

	dup, _, err = d.IsDuplicate(context.Background(), model.Candidate{Role: "PM", CompanyName: "Initech"})
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDetector_PropagatesStorageError(t *testing.T) {
	boom := errors.New("disk on fire")
	d := NewDetector(&fakeLookup{err: boom})
	_, _, err := d.IsDuplicate(context.Background(), model.Candidate{Role: "x", CompanyName: "y"})
	assert.ErrorIs(t, err, boom)
}
