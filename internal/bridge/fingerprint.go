package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// fingerprintLen is the hex length of a fingerprint: 128 bits of SHA-256,
// enough to make collisions between distinct bucket names infeasible.
const fingerprintLen = 32

var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Fingerprint derives the stable identity for a bucket. It is deterministic,
// has no side effects, and deliberately does not incorporate credentials:
// rotating an access key pair never changes which bridge a bucket maps to.
func Fingerprint(bucket string) string {
	sum := sha256.Sum256([]byte(NormalizeBucket(bucket)))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// NormalizeBucket canonicalizes a bucket name for fingerprinting. S3 bucket
// names are case-insensitive in practice (DNS names), so case and surrounding
// whitespace must not produce distinct identities.
func NormalizeBucket(bucket string) string {
	return strings.ToLower(strings.TrimSpace(bucket))
}

// IsFingerprint reports whether s is syntactically a fingerprint. Used by the
// CLI for early validation; a well-formed but unknown fingerprint still fails
// lookup with ErrNotFound.
func IsFingerprint(s string) bool {
	return fingerprintRe.MatchString(s)
}
