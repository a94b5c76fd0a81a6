package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"sdcli/internal/bridge"
	"sdcli/internal/config"
)

// NewRegistryFromConfig creates a Registry implementation based on the
// registry config type.
func NewRegistryFromConfig(cfg config.RegistryConfig) (bridge.Registry, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite registry")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating registry directory: %w", err)
		}
		return NewSQLiteRegistry(filepath.Join(cfg.DataDir, "bridges.db"))
	case "memory":
		return NewSQLiteRegistry(":memory:")
	default:
		return nil, fmt.Errorf("unknown registry type: %s", cfg.Type)
	}
}
