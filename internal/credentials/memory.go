package credentials

import (
	"sync"

	"sdcli/internal/bridge"
	"sdcli/internal/model"
)

// MemoryStore is an in-memory implementation of the CredentialStore
// interface, useful for testing. This implementation is safe for concurrent
// use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.Credentials
}

var _ bridge.CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.Credentials)}
}

func (m *MemoryStore) Put(ref string, creds *model.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ref] = *creds
	return nil
}

func (m *MemoryStore) Get(ref string) (*model.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	creds, ok := m.entries[ref]
	if !ok {
		return nil, nil // Not found
	}
	return &creds, nil
}

func (m *MemoryStore) Delete(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, ref)
	return nil
}
