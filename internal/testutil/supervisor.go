package testutil

import (
	"context"
	"fmt"
	"sync"

	"sdcli/internal/model"
)

// FakeSupervisor is an in-memory stand-in for process control. Handles are
// sequential ("proc-1", "proc-2", ...); tests can kill a handle out of band
// to simulate a crashed gateway, or inject start/stop failures.
type FakeSupervisor struct {
	mu      sync.Mutex
	counter int
	alive   map[string]bool
	stopped []string

	StartErr error // next Start fails with this when set
	StopErr  error // next Stop fails with this when set
}

func NewFakeSupervisor() *FakeSupervisor {
	return &FakeSupervisor{alive: make(map[string]bool)}
}

func (f *FakeSupervisor) Start(_ context.Context, _ *model.BridgeRecord, _ *model.Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		err := f.StartErr
		f.StartErr = nil
		return "", err
	}
	f.counter++
	handle := fmt.Sprintf("proc-%d", f.counter)
	f.alive[handle] = true
	return handle, nil
}

func (f *FakeSupervisor) IsAlive(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[handle]
}

func (f *FakeSupervisor) Stop(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StopErr != nil {
		err := f.StopErr
		f.StopErr = nil
		return err
	}
	delete(f.alive, handle)
	f.stopped = append(f.stopped, handle)
	return nil
}

// Kill marks a handle dead without recording a stop, as if the process
// crashed.
func (f *FakeSupervisor) Kill(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alive, handle)
}

// Stopped returns the handles stopped through Stop, in order.
func (f *FakeSupervisor) Stopped() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stopped...)
}
