package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for operations on a fingerprint with no
	// registry record.
	ErrNotFound = errors.New("bridge not found")

	// ErrMissingCredentials is returned when a bucket is bridged for the
	// first time without an access key pair.
	ErrMissingCredentials = errors.New("credentials required for a new bridge")

	// ErrEndpointConflict is returned when a new record would claim a listen
	// endpoint already held by another record.
	ErrEndpointConflict = errors.New("listen endpoint already in use")

	// ErrCorruptState is returned when persisted state cannot be read.
	// The controller refuses to guess and never overwrites on read failure.
	ErrCorruptState = errors.New("persisted bridge state is unreadable")
)

// SupervisorError indicates the external gateway process failed to start or
// stop within bounds. It carries enough context to retry.
type SupervisorError struct {
	Fingerprint string
	Op          string // "start" or "stop"
	Err         error
}

func (e *SupervisorError) Error() string {
	return fmt.Sprintf("supervisor %s failed for bridge %s: %v", e.Op, e.Fingerprint, e.Err)
}

func (e *SupervisorError) Unwrap() error { return e.Err }

// StorageError indicates the registry or credential store persistence failed.
type StorageError struct {
	Store string // "registry" or "credentials"
	Op    string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Store, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PartialTeardownError indicates delete-bridge completed some but not all of
// its steps. The registry record remains, flagged for cleanup, so a repeated
// delete-bridge resumes from the failed step.
type PartialTeardownError struct {
	Fingerprint string
	Remaining   []string // steps not yet completed, e.g. "credentials", "record"
	Err         error
}

func (e *PartialTeardownError) Error() string {
	return fmt.Sprintf("partial teardown of bridge %s, remaining: %v: %v", e.Fingerprint, e.Remaining, e.Err)
}

func (e *PartialTeardownError) Unwrap() error { return e.Err }
