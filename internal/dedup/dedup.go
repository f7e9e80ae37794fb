// Package dedup computes content fingerprints and answers whether a posting
// has been stored before.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/amishk599/jobagg/internal/canon"
	"github.com/amishk599/jobagg/internal/model"
)

const (
	version = "v1"
	sep     = "\x1f" // unit separator, canon.Clean strips it from every field
)

// Fingerprint returns the hex SHA-256 of the canonical (company, role,
// location) key. Only those three fields contribute.
func Fingerprint(c model.Candidate) string {
	return FingerprintKey(canon.Key(c))
}

// FingerprintKey hashes an already folded key.
func FingerprintKey(k model.CanonicalKey) string {
	payload := strings.Join([]string{version, k.Company, k.Role, k.Location}, sep)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Lookup is the storage capability the detector needs.
type Lookup interface {
	IsDuplicate(ctx context.Context, fingerprint string) (bool, error)
}

// Detector reports whether a candidate collides with a stored posting.
type Detector struct {
	lookup Lookup
}

func NewDetector(lookup Lookup) *Detector {
	return &Detector{lookup: lookup}
}

// IsDuplicate fingerprints c and asks storage whether it is already present.
func (d *Detector) IsDuplicate(ctx context.Context, c model.Candidate) (bool, string, error) {
	fp := Fingerprint(c)
	dup, err := d.lookup.IsDuplicate(ctx, fp)
	if err != nil {
		return false, fp, fmt.Errorf("checking fingerprint %s: %w", fp[:12], err)
	}
	return dup, fp, nil
}
