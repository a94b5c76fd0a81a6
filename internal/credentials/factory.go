package credentials

import (
	"fmt"

	"sdcli/internal/bridge"
	"sdcli/internal/config"
)

// NewStoreFromConfig creates a CredentialStore implementation based on the
// credentials config type.
func NewStoreFromConfig(cfg config.CredentialsConfig) (bridge.CredentialStore, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.Dir == "" || cfg.RecipientPath == "" || cfg.IdentityPath == "" {
			return nil, fmt.Errorf("dir, recipient_path and identity_path required for age credentials")
		}
		return NewAgeStore(cfg), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credentials type: %s", cfg.Type)
	}
}
