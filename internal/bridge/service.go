package bridge

import (
	"context"
	"fmt"

	"sdcli/internal/model"
)

// EndpointPolicy controls how listen endpoints are assigned to new bridges.
// Each bridge claims one port; the claim persists while the bridge is stopped
// so restarting always yields the same endpoint.
type EndpointPolicy struct {
	Host    string
	PortMin int
	PortMax int
}

// BridgeService is the lifecycle controller: it orchestrates the registry,
// credential store, and supervisor to implement the bridge, stop-bridge and
// delete-bridge operations, and owns the idempotency and force-restart
// policy. A service instance lives for one CLI invocation; durability across
// invocations comes from the registry and credential store, and races between
// invocations are serialized by the per-identity locker.
type BridgeService struct {
	registry    Registry
	credentials CredentialStore
	supervisor  Supervisor
	verifier    BucketVerifier // nil disables bucket verification
	locker      Locker
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	endpoints   EndpointPolicy
}

// NewBridgeService creates a new BridgeService with the provided dependencies.
func NewBridgeService(registry Registry, credentials CredentialStore, supervisor Supervisor, verifier BucketVerifier, locker Locker, logger Logger, clock Clock, idgen IDGenerator, endpoints EndpointPolicy) *BridgeService {
	return &BridgeService{
		registry:    registry,
		credentials: credentials,
		supervisor:  supervisor,
		verifier:    verifier,
		locker:      locker,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		endpoints:   endpoints,
	}
}

// Bridge ensures a running bridge for the requested identity and returns its
// record. listenPort requests a specific port for a new bridge; zero means
// allocate the lowest free port in the configured range.
//
// Re-invoking Bridge for an already-running bucket without forceRestart is a
// no-op that returns the existing endpoint unchanged. With forceRestart the
// running process is stopped first and a fresh one started.
func (s *BridgeService) Bridge(ctx context.Context, req BridgeRequest, forceRestart bool, listenPort int) (*model.BridgeRecord, error) {
	fingerprint := req.resolve()

	release, err := s.locker.Lock(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("locking bridge %s: %w", fingerprint, err)
	}
	defer release()

	record, err := s.loadAndReconcile(fingerprint)
	if err != nil {
		return nil, err
	}

	if record == nil {
		if req.byFingerprint() {
			// A fingerprint names an existing bridge; it is never treated
			// as a bucket name.
			return nil, fmt.Errorf("bridge %s: %w", fingerprint, ErrNotFound)
		}
		record, err = s.createRecord(ctx, req, fingerprint, listenPort)
		if err != nil {
			return nil, err
		}
	} else {
		if record.CleanupPending {
			// A half-deleted bridge may have lost its credential entry
			// already; it must be deleted fully before being recreated.
			return nil, fmt.Errorf("bridge %s has a pending deletion, run delete-bridge to finish it: %w", fingerprint, ErrCorruptState)
		}
		if req.creds != nil {
			// Credentials for an already-registered bucket are ignored;
			// the original credential entry stands.
			s.logger.Warn("bridge already registered, supplied credentials ignored", "fingerprint", fingerprint)
		}
	}

	if record.Status == model.StatusRunning {
		if !forceRestart {
			s.logger.Info("bridge already running", "fingerprint", fingerprint, "endpoint", record.Endpoint())
			return record, nil
		}
		if err := s.stopProcess(ctx, record); err != nil {
			return nil, err
		}
	}

	if err := s.startProcess(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// StopBridge stops the gateway process for an existing bridge. Stopping an
// already-stopped bridge is a no-op; an unknown fingerprint is ErrNotFound.
func (s *BridgeService) StopBridge(ctx context.Context, fingerprint string) error {
	release, err := s.locker.Lock(fingerprint)
	if err != nil {
		return fmt.Errorf("locking bridge %s: %w", fingerprint, err)
	}
	defer release()

	record, err := s.loadAndReconcile(fingerprint)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("bridge %s: %w", fingerprint, ErrNotFound)
	}

	if record.Status != model.StatusRunning {
		s.logger.Info("bridge not running, nothing to stop", "fingerprint", fingerprint)
		return nil
	}

	return s.stopProcess(ctx, record)
}

// DeleteBridge permanently destroys a bridge: it stops the gateway process if
// running, then removes the credential entry and the registry record. The
// record is flagged for cleanup before teardown begins, so if any step fails
// a repeated DeleteBridge resumes from the failed step rather than
// re-attempting completed ones.
func (s *BridgeService) DeleteBridge(ctx context.Context, fingerprint string) error {
	release, err := s.locker.Lock(fingerprint)
	if err != nil {
		return fmt.Errorf("locking bridge %s: %w", fingerprint, err)
	}
	defer release()

	record, err := s.loadAndReconcile(fingerprint)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("bridge %s: %w", fingerprint, ErrNotFound)
	}

	if !record.CleanupPending {
		record.CleanupPending = true
		record.LastTransitionAt = s.clock.Now()
		if err := s.registry.Put(record); err != nil {
			return fmt.Errorf("flagging bridge %s for cleanup: %w", fingerprint, err)
		}
	}

	// Keyed off the handle rather than RUNNING so a retried delete whose
	// stop step failed last time still re-attempts the kill.
	if record.SupervisorHandle != "" && s.supervisor.IsAlive(record.SupervisorHandle) {
		if err := s.stopProcess(ctx, record); err != nil {
			return &PartialTeardownError{
				Fingerprint: fingerprint,
				Remaining:   []string{"process", "credentials", "record"},
				Err:         err,
			}
		}
	}

	if err := s.credentials.Delete(record.CredentialRef); err != nil {
		return &PartialTeardownError{
			Fingerprint: fingerprint,
			Remaining:   []string{"credentials", "record"},
			Err:         err,
		}
	}

	if err := s.registry.Delete(fingerprint); err != nil {
		return &PartialTeardownError{
			Fingerprint: fingerprint,
			Remaining:   []string{"record"},
			Err:         err,
		}
	}

	s.logger.Info("bridge deleted", "fingerprint", fingerprint)
	return nil
}

// List returns all bridge records, reconciling any stale running states so
// the output reflects what is actually alive.
func (s *BridgeService) List(ctx context.Context) ([]*model.BridgeRecord, error) {
	records, err := s.registry.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	for _, record := range records {
		if _, err := s.reconcile(record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// loadAndReconcile reads a record and self-heals stale state before any
// operation acts on it. A registry read failure is treated as corruption:
// the controller reports rather than guessing or overwriting.
func (s *BridgeService) loadAndReconcile(fingerprint string) (*model.BridgeRecord, error) {
	record, err := s.registry.Get(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: reading bridge %s: %v", ErrCorruptState, fingerprint, err)
	}
	if record == nil {
		return nil, nil
	}
	if _, err := s.reconcile(record); err != nil {
		return nil, err
	}
	return record, nil
}

// reconcile detects a record claiming RUNNING whose process is gone (a prior
// invocation crashed between starting the process and persisting, or the
// process died) and transitions it to STOPPED. Returns whether the record
// changed.
func (s *BridgeService) reconcile(record *model.BridgeRecord) (bool, error) {
	if record.Status != model.StatusRunning {
		return false, nil
	}
	if s.supervisor.IsAlive(record.SupervisorHandle) {
		return false, nil
	}

	s.logger.Warn("bridge recorded as running but process is gone, marking stopped",
		"fingerprint", record.Fingerprint, "handle", record.SupervisorHandle)

	record.Status = model.StatusStopped
	record.SupervisorHandle = ""
	record.LastTransitionAt = s.clock.Now()
	if err := s.registry.Put(record); err != nil {
		return false, fmt.Errorf("persisting reconciled bridge %s: %w", record.Fingerprint, err)
	}
	return true, nil
}

// createRecord verifies the bucket, stores the credentials, allocates a
// listen endpoint, and persists a new record in CREATED.
func (s *BridgeService) createRecord(ctx context.Context, req BridgeRequest, fingerprint string, listenPort int) (*model.BridgeRecord, error) {
	if req.creds == nil {
		return nil, fmt.Errorf("bridge %s (bucket %q): %w", fingerprint, req.bucket, ErrMissingCredentials)
	}

	if s.verifier != nil {
		if err := s.verifier.VerifyBucket(ctx, req.bucket, req.creds); err != nil {
			return nil, fmt.Errorf("verifying bucket %q: %w", req.bucket, err)
		}
	}

	port, err := s.allocatePort(listenPort)
	if err != nil {
		return nil, err
	}

	ref := s.idgen.New()
	if err := s.credentials.Put(ref, req.creds); err != nil {
		return nil, fmt.Errorf("storing credentials for bridge %s: %w", fingerprint, err)
	}

	now := s.clock.Now()
	record := &model.BridgeRecord{
		Fingerprint:      fingerprint,
		Bucket:           NormalizeBucket(req.bucket),
		CredentialRef:    ref,
		ListenHost:       s.endpoints.Host,
		ListenPort:       port,
		Status:           model.StatusCreated,
		CreatedAt:        now,
		LastTransitionAt: now,
	}

	if err := s.registry.Put(record); err != nil {
		// Do not leave an orphaned credential entry behind.
		if derr := s.credentials.Delete(ref); derr != nil {
			s.logger.Error("orphaned credential entry after failed record write", "ref", ref, "error", derr)
		}
		return nil, fmt.Errorf("registering bridge %s: %w", fingerprint, err)
	}

	s.logger.Info("bridge registered", "fingerprint", fingerprint, "bucket", record.Bucket, "endpoint", record.Endpoint())
	return record, nil
}

// allocatePort returns the requested port if it is unclaimed, or the lowest
// unclaimed port in the configured range when requested is zero.
func (s *BridgeService) allocatePort(requested int) (int, error) {
	records, err := s.registry.List()
	if err != nil {
		return 0, fmt.Errorf("%w: listing bridges: %v", ErrCorruptState, err)
	}

	claimed := make(map[int]string, len(records))
	for _, r := range records {
		claimed[r.ListenPort] = r.Fingerprint
	}

	if requested != 0 {
		if other, ok := claimed[requested]; ok {
			return 0, fmt.Errorf("port %d claimed by bridge %s: %w", requested, other, ErrEndpointConflict)
		}
		return requested, nil
	}

	for port := s.endpoints.PortMin; port <= s.endpoints.PortMax; port++ {
		if _, ok := claimed[port]; !ok {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %d-%d: %w", s.endpoints.PortMin, s.endpoints.PortMax, ErrEndpointConflict)
}

// startProcess launches the gateway for a record and persists the RUNNING
// transition. On launch failure the record is marked FAILED.
func (s *BridgeService) startProcess(ctx context.Context, record *model.BridgeRecord) error {
	creds, err := s.credentials.Get(record.CredentialRef)
	if err != nil {
		return fmt.Errorf("reading credentials for bridge %s: %w", record.Fingerprint, err)
	}
	if creds == nil {
		return fmt.Errorf("%w: bridge %s has no credential entry %s", ErrCorruptState, record.Fingerprint, record.CredentialRef)
	}

	handle, err := s.supervisor.Start(ctx, record, creds)
	if err != nil {
		record.Status = model.StatusFailed
		record.SupervisorHandle = ""
		record.LastTransitionAt = s.clock.Now()
		if perr := s.registry.Put(record); perr != nil {
			s.logger.Error("persisting failed state", "fingerprint", record.Fingerprint, "error", perr)
		}
		return &SupervisorError{Fingerprint: record.Fingerprint, Op: "start", Err: err}
	}

	record.Status = model.StatusRunning
	record.SupervisorHandle = handle
	record.LastTransitionAt = s.clock.Now()
	if err := s.registry.Put(record); err != nil {
		// The registry is the source of truth; an unrecorded process must
		// not be left behind.
		if serr := s.supervisor.Stop(ctx, handle); serr != nil {
			s.logger.Error("stopping unrecorded process", "fingerprint", record.Fingerprint, "handle", handle, "error", serr)
		}
		return fmt.Errorf("persisting running state for bridge %s: %w", record.Fingerprint, err)
	}

	s.logger.Info("bridge started", "fingerprint", record.Fingerprint, "endpoint", record.Endpoint(), "handle", handle)
	return nil
}

// stopProcess terminates the gateway for a running record and persists the
// STOPPED transition.
func (s *BridgeService) stopProcess(ctx context.Context, record *model.BridgeRecord) error {
	if err := s.supervisor.Stop(ctx, record.SupervisorHandle); err != nil {
		record.Status = model.StatusFailed
		record.LastTransitionAt = s.clock.Now()
		if perr := s.registry.Put(record); perr != nil {
			s.logger.Error("persisting failed state", "fingerprint", record.Fingerprint, "error", perr)
		}
		return &SupervisorError{Fingerprint: record.Fingerprint, Op: "stop", Err: err}
	}

	record.Status = model.StatusStopped
	record.SupervisorHandle = ""
	record.LastTransitionAt = s.clock.Now()
	if err := s.registry.Put(record); err != nil {
		return fmt.Errorf("persisting stopped state for bridge %s: %w", record.Fingerprint, err)
	}

	s.logger.Info("bridge stopped", "fingerprint", record.Fingerprint)
	return nil
}
