package bridge

import (
	"fmt"

	"sdcli/internal/model"
)

// BridgeRequest identifies the bridge a caller wants started. It is a tagged
// variant: either the fingerprint of an existing bridge, or a bucket name with
// optional credentials. The two forms are mutually exclusive by construction,
// so the controller never has to guess whether an argument is a fingerprint
// or a bucket name.
type BridgeRequest struct {
	fingerprint string
	bucket      string
	creds       *model.Credentials
}

// ByFingerprint builds a request for an already-registered bridge.
func ByFingerprint(fingerprint string) (BridgeRequest, error) {
	if fingerprint == "" {
		return BridgeRequest{}, fmt.Errorf("fingerprint must not be empty")
	}
	return BridgeRequest{fingerprint: fingerprint}, nil
}

// ByBucket builds a request for a bucket. Credentials may be nil when the
// bucket is expected to already have a record; a first-time bridge without
// them fails later with ErrMissingCredentials.
func ByBucket(bucket string, creds *model.Credentials) (BridgeRequest, error) {
	if NormalizeBucket(bucket) == "" {
		return BridgeRequest{}, fmt.Errorf("bucket name must not be empty")
	}
	if creds != nil && (creds.AccessKeyID == "" || creds.SecretAccessKey == "") {
		return BridgeRequest{}, fmt.Errorf("both access key ID and secret access key are required")
	}
	return BridgeRequest{bucket: bucket, creds: creds}, nil
}

// byFingerprint reports whether the request names an existing bridge directly.
func (r BridgeRequest) byFingerprint() bool { return r.fingerprint != "" }

// resolve returns the fingerprint the request refers to, deriving it from the
// bucket name when necessary.
func (r BridgeRequest) resolve() string {
	if r.byFingerprint() {
		return r.fingerprint
	}
	return Fingerprint(r.bucket)
}
