package supervisor

import (
	"fmt"
	"time"

	"sdcli/internal/bridge"
	"sdcli/internal/config"
)

// NewSupervisorFromConfig creates a Supervisor implementation based on the
// supervisor config type.
func NewSupervisorFromConfig(cfg config.SupervisorConfig, logger bridge.Logger) (bridge.Supervisor, error) {
	switch cfg.Type {
	case "exec", "":
		if cfg.GatewayCommand == "" {
			return nil, fmt.Errorf("gateway_command required for exec supervisor")
		}
		grace := time.Duration(cfg.GracePeriodSecs) * time.Second
		if grace <= 0 {
			grace = 10 * time.Second
		}
		launch := time.Duration(cfg.LaunchTimeoutSecs) * time.Second
		if launch <= 0 {
			launch = 15 * time.Second
		}
		return NewExecSupervisor(cfg.GatewayCommand, grace, launch, cfg.SkipReadinessCheck, logger), nil
	default:
		return nil, fmt.Errorf("unknown supervisor type: %s", cfg.Type)
	}
}
