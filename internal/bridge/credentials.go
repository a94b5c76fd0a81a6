package bridge

import "sdcli/internal/model"

// CredentialStore persists access key pairs keyed by an opaque reference.
// Secret material lives only inside the store's own persistence location and
// is never echoed in command output or logs. Concurrent writers to the same
// ref are not supported; the lifecycle controller serializes through the
// per-identity lock.
type CredentialStore interface {
	// Put stores an access key pair under ref.
	Put(ref string, creds *model.Credentials) error

	// Get returns the key pair for ref, or nil if none is stored.
	Get(ref string) (*model.Credentials, error)

	// Delete removes the entry for ref. Absence is not an error.
	Delete(ref string) error
}
