package testutil

import (
	"testing"

	"sdcli/internal/bridge"
	"sdcli/internal/registry"
)

// NewTestRegistry creates a new in-memory SQLite registry with the schema
// applied. The registry is automatically closed when the test completes.
func NewTestRegistry(t *testing.T) bridge.Registry {
	t.Helper()

	reg, err := registry.NewSQLiteRegistry(":memory:")
	if err != nil {
		t.Fatalf("failed to open registry: %v", err)
	}

	t.Cleanup(func() {
		reg.Close()
	})

	return reg
}
