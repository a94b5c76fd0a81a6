package bridge

// Locker serializes read-modify-write sequences for a single bridge identity
// across independent CLI invocations. Lock blocks until the lock is held and
// returns a release function.
type Locker interface {
	Lock(fingerprint string) (release func(), err error)
}
