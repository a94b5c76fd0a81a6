package model

import (
	"fmt"
	"time"
)

// BridgeStatus is the lifecycle state of a bridge.
type BridgeStatus string

const (
	// StatusCreated means the record exists but the gateway process has
	// never been started.
	StatusCreated BridgeStatus = "created"
	// StatusRunning means the gateway process was alive as of the last
	// observation. A running record always carries a supervisor handle.
	StatusRunning BridgeStatus = "running"
	// StatusStopped means the gateway process was terminated cleanly or
	// found dead during reconciliation.
	StatusStopped BridgeStatus = "stopped"
	// StatusFailed means the last start attempt failed.
	StatusFailed BridgeStatus = "failed"
)

// Valid reports whether s is a known bridge status.
func (s BridgeStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusRunning, StatusStopped, StatusFailed:
		return true
	}
	return false
}

// BridgeRecord is the durable unit of truth for one bridge. Records live in
// the registry with a lifetime independent of any single CLI invocation.
type BridgeRecord struct {
	Fingerprint      string // Derived from the bucket name; primary key
	Bucket           string // Remote object-store bucket name
	CredentialRef    string // Opaque reference into the credential store (never the secret)
	ListenHost       string // Host the gateway listens on
	ListenPort       int    // Port the gateway listens on
	Status           BridgeStatus
	SupervisorHandle string // Opaque process handle; set only while running
	CleanupPending   bool   // Set when a delete-bridge attempt did not finish
	CreatedAt        time.Time
	LastTransitionAt time.Time
}

// Endpoint returns the host:port the bridge's gateway listens on.
func (r *BridgeRecord) Endpoint() string {
	return fmt.Sprintf("%s:%d", r.ListenHost, r.ListenPort)
}

// Credentials is an access key pair for the remote object store. It is held
// in memory only while needed and must never be logged or persisted outside
// the credential store.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}
