package locker

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"sdcli/internal/bridge"
)

// FlockLocker implements bridge.Locker with one advisory file lock per
// identity under a shared lock directory. Two CLI invocations racing on the
// same fingerprint serialize here; invocations for different fingerprints
// never contend. Locks release automatically if the holding process dies.
type FlockLocker struct {
	dir string
}

var _ bridge.Locker = (*FlockLocker)(nil)

// NewFlockLocker creates a FlockLocker rooted at dir, creating it if needed.
func NewFlockLocker(dir string) (*FlockLocker, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	return &FlockLocker{dir: dir}, nil
}

// Lock blocks until the per-identity lock is held and returns its release
// function.
func (l *FlockLocker) Lock(fingerprint string) (func(), error) {
	path := filepath.Join(l.dir, fingerprint+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring lock for %s: %w", fingerprint, err)
	}

	return func() {
		// Closing the descriptor drops the flock.
		f.Close()
	}, nil
}

// TryLock attempts the lock without blocking. It returns ok=false when
// another invocation holds it.
func (l *FlockLocker) TryLock(fingerprint string) (release func(), ok bool, err error) {
	path := filepath.Join(l.dir, fingerprint+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, false, fmt.Errorf("opening lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquiring lock for %s: %w", fingerprint, err)
	}

	return func() { f.Close() }, true, nil
}
