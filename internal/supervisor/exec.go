package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"sdcli/internal/bridge"
	"sdcli/internal/model"
)

// ExecSupervisor implements bridge.Supervisor by running the gateway as a
// local subprocess in its own process group. The supervisor handle is the
// process ID; it stays valid across CLI invocations because the gateway
// outlives the invocation that started it.
type ExecSupervisor struct {
	command       string
	grace         time.Duration
	launchTimeout time.Duration
	skipReadiness bool
	logger        bridge.Logger
}

var _ bridge.Supervisor = (*ExecSupervisor)(nil)

// NewExecSupervisor creates an ExecSupervisor that launches command for each
// bridge. grace bounds how long Stop waits for a graceful exit;
// launchTimeout bounds how long Start waits for the endpoint to accept
// connections.
func NewExecSupervisor(command string, grace, launchTimeout time.Duration, skipReadiness bool, logger bridge.Logger) *ExecSupervisor {
	return &ExecSupervisor{
		command:       command,
		grace:         grace,
		launchTimeout: launchTimeout,
		skipReadiness: skipReadiness,
		logger:        logger,
	}
}

// Start launches the gateway bound to the record's endpoint. The bucket and
// endpoint travel as flags; the key pair only ever travels through the child
// environment so it never appears in a process listing.
func (s *ExecSupervisor) Start(ctx context.Context, record *model.BridgeRecord, creds *model.Credentials) (string, error) {
	cmd := exec.Command(s.command,
		"--bucket", record.Bucket,
		"--listen", record.Endpoint(),
	)
	cmd.Env = append(os.Environ(),
		"AWS_ACCESS_KEY_ID="+creds.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY="+creds.SecretAccessKey,
	)
	// Own process group: the gateway must survive this CLI invocation, and
	// Stop kills the whole group so gateway children go down with it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("launching %s: %w", s.command, err)
	}

	pid := cmd.Process.Pid
	// Reap the child if it exits while this invocation is still alive, so
	// liveness probes don't see a zombie.
	go cmd.Wait()

	s.logger.Debug("gateway launched", "command", s.command, "pid", pid, "endpoint", record.Endpoint())

	if !s.skipReadiness {
		if err := s.waitReady(ctx, pid, record.Endpoint()); err != nil {
			s.killGroup(pid, unix.SIGKILL)
			return "", err
		}
	}

	return strconv.Itoa(pid), nil
}

// waitReady polls the endpoint until it accepts a TCP connection, the launch
// timeout elapses, the process dies, or ctx is cancelled.
func (s *ExecSupervisor) waitReady(ctx context.Context, pid int, endpoint string) error {
	deadline := time.Now().Add(s.launchTimeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}

		if !pidAlive(pid) {
			return fmt.Errorf("gateway exited before becoming ready on %s", endpoint)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gateway not ready on %s after %s", endpoint, s.launchTimeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for gateway readiness: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// IsAlive probes the handle's process without blocking.
func (s *ExecSupervisor) IsAlive(handle string) bool {
	pid, err := parseHandle(handle)
	if err != nil {
		return false
	}
	return pidAlive(pid)
}

// Stop terminates the gateway group: SIGTERM first, escalating to SIGKILL
// once the grace period elapses or ctx is cancelled. Stopping an
// already-dead handle is a no-op.
func (s *ExecSupervisor) Stop(ctx context.Context, handle string) error {
	pid, err := parseHandle(handle)
	if err != nil {
		return err
	}
	if !pidAlive(pid) {
		return nil
	}

	s.killGroup(pid, unix.SIGTERM)

	deadline := time.Now().Add(s.grace)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for pidAlive(pid) {
		if time.Now().After(deadline) || ctx.Err() != nil {
			s.logger.Warn("gateway did not exit gracefully, killing", "pid", pid)
			s.killGroup(pid, unix.SIGKILL)
			// SIGKILL cannot be ignored; give the kernel a moment.
			time.Sleep(100 * time.Millisecond)
			return nil
		}
		<-ticker.C
	}

	return nil
}

// killGroup signals the process group, falling back to the single process
// when the group is already gone.
func (s *ExecSupervisor) killGroup(pid int, sig unix.Signal) {
	if err := unix.Kill(-pid, sig); err != nil {
		unix.Kill(pid, sig)
	}
}

func parseHandle(handle string) (int, error) {
	pid, err := strconv.Atoi(handle)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed supervisor handle %q", handle)
	}
	return pid, nil
}

// pidAlive reports whether a process with the given pid exists. EPERM means
// the process exists but belongs to someone else; treat it as alive.
func pidAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
