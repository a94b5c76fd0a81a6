package bridge

import "sdcli/internal/model"

// Registry is the durable store of bridge records and the system's source of
// truth for what exists. Implementations must make every mutation durable
// before returning, and Put must be atomic with respect to concurrent
// readers: a reader never observes a partially written record.
type Registry interface {
	// Get returns the record for a fingerprint, or nil if none exists.
	Get(fingerprint string) (*model.BridgeRecord, error)

	// Put upserts a full record. It returns ErrEndpointConflict (wrapped)
	// if another record already claims the same listen endpoint.
	Put(record *model.BridgeRecord) error

	// Delete removes a record. Deleting an absent fingerprint is a no-op.
	Delete(fingerprint string) error

	// List returns all records, ordered by creation time.
	List() ([]*model.BridgeRecord, error)

	// Close releases the underlying storage.
	Close() error
}
