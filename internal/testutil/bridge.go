package testutil

import (
	"context"
	"sync"

	"sdcli/internal/bridge"
	"sdcli/internal/credentials"
	"sdcli/internal/model"
)

// NewTestCredentialStore creates a new in-memory credential store for
// testing.
func NewTestCredentialStore() bridge.CredentialStore {
	return credentials.NewMemoryStore()
}

// NopLocker satisfies bridge.Locker without doing any locking. Service
// tests run single-threaded; cross-process locking is covered by the locker
// package's own tests.
type NopLocker struct{}

func (NopLocker) Lock(string) (func(), error) { return func() {}, nil }

// FakeVerifier records bucket verification calls and fails with Err when
// set.
type FakeVerifier struct {
	mu      sync.Mutex
	buckets []string

	Err error
}

func NewFakeVerifier() *FakeVerifier { return &FakeVerifier{} }

func (f *FakeVerifier) VerifyBucket(_ context.Context, bucket string, _ *model.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.buckets = append(f.buckets, bucket)
	return nil
}

// Verified returns the buckets verified so far.
func (f *FakeVerifier) Verified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.buckets...)
}
