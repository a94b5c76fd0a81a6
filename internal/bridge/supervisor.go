package bridge

import (
	"context"

	"sdcli/internal/model"
)

// Supervisor starts, probes, and terminates the external gateway process that
// serves a bridge. It is a thin seam over OS process control: the lifecycle
// controller depends only on this contract, so the gateway can be a local
// subprocess, a container, or anything else that honors it.
type Supervisor interface {
	// Start launches the gateway for the record, bound to the record's
	// listen endpoint and authenticated with creds. It blocks until the
	// gateway is ready or a bounded launch timeout elapses, and returns an
	// opaque handle for the running process.
	Start(ctx context.Context, record *model.BridgeRecord, creds *model.Credentials) (string, error)

	// IsAlive is a non-blocking liveness probe for a handle.
	IsAlive(handle string) bool

	// Stop requests graceful termination, blocking up to a bounded grace
	// period before escalating to forceful termination. Stopping an
	// already-dead handle is a no-op, not an error.
	Stop(ctx context.Context, handle string) error
}

// BucketVerifier checks that a bucket is reachable with the supplied
// credentials before a record is created for it.
type BucketVerifier interface {
	VerifyBucket(ctx context.Context, bucket string, creds *model.Credentials) error
}
